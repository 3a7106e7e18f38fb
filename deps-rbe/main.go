package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
)

var (
	dbName             = flag.String("dbName", "deps-rbe.db", "snapshot metadata db name.")
	blobDbName         = flag.String("blobDbName", "deps-rbe-blobs.db", "blob index db name.")
	addr               = flag.String("addr", "localhost:8080", "TCP address to listen to")
	byteRange          = flag.Bool("byteRange", false, "Enables byte range requests if set to true")
	compress           = flag.Bool("compress", false, "Enables transparent response compression if set to true")
	dir                = flag.String("dir", "blobs", "Directory to store uploaded deps logs in")
	generateIndexPages = flag.Bool("generateIndexPages", false, "Whether to generate directory index pages")
	vhost              = flag.Bool("vhost", false, "Enables virtual hosting by prepending the requested path with the requested hostname")
)

func main() {
	// Parse command-line flags.
	flag.Parse()
	baseDir := filepath.Dir(os.Args[0])
	if err := OpenDb(filepath.Join(baseDir, *dbName)); err != nil {
		logrus.WithError(err).Fatal("open metadata db")
	}
	if err := OpenBlobIndex(filepath.Join(baseDir, *blobDbName)); err != nil {
		logrus.WithError(err).Fatal("open blob index")
	}
	if err := os.MkdirAll(*dir, 0o755); err != nil {
		logrus.WithError(err).Fatal("create blob dir")
	}
	go StartExpiredCleanSchedule()
	go ServeFiles(*addr, *dir, *compress, *byteRange, *generateIndexPages, *vhost)

	// Make a signal channel. Register SIGINT.
	sigch := make(chan os.Signal, 1)
	signal.Notify(sigch, os.Interrupt)

	// Wait for the signal.
	<-sigch

	logrus.Info("interrupted, exiting")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	shutdown(ctx)
}
