package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func TerminateHandler() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	s := <-quit
	fmt.Println("terminate handler called:", s)
	os.Exit(2)
}

func real_main(args []string) int {
	options := Options{}
	options.LogFile = kDefaultLogFile
	main1 := NewDepsLogMain(&options)

	exit_code := main1.ReadFlags(&args, &options)
	if exit_code >= 0 {
		return exit_code
	}

	if options.Tool == nil {
		Error("no tool given; see 'depslog -t list'")
		return 1
	}

	if options.Tool.When == RUN_AFTER_LOGS {
		if !main1.OpenDepsLog() {
			return 1
		}
	}

	result := options.Tool.Func1(&options, &args)
	if g_metrics != nil {
		main1.DumpMetrics()
	}
	return result
}

func main() {
	go TerminateHandler()
	os.Exit(real_main(os.Args))
}
