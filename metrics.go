package main

import (
	"fmt"
	"time"
)

func NewMetrics() *Metrics {
	return &Metrics{}
}

func (this *Metrics) NewMetric(name string) *Metric {
	for _, metric := range this.metrics_ {
		if metric.name == name {
			return metric
		}
	}
	metric := &Metric{name: name}
	this.metrics_ = append(this.metrics_, metric)
	return metric
}

// / Print a summary report to stdout.
func (this *Metrics) Report() {
	width := 0
	for _, metric := range this.metrics_ {
		if len(metric.name) > width {
			width = len(metric.name)
		}
	}

	fmt.Printf("%-*s\t%-6s\t%-9s\t%s\n", width, "metric", "count", "avg (us)", "total (ms)")
	for _, metric := range this.metrics_ {
		total := float64(TimerToMicrosInt64(metric.sum)) / 1000.0
		avg := float64(TimerToMicrosInt64(metric.sum)) / float64(metric.count)
		fmt.Printf("%-*s\t%-6d\t%-8.1f\t%.1f\n", width, metric.name, metric.count, avg, total)
	}
}

func NewScopedMetric(metric *Metric) *ScopedMetric {
	ret := &ScopedMetric{metric_: metric}
	if metric != nil {
		ret.start_ = HighResTimer()
	}
	return ret
}

func (this *ScopedMetric) ReleaseScopedMetric() {
	if this.metric_ == nil {
		return
	}
	this.metric_.count++
	dt := HighResTimer() - this.start_
	this.metric_.sum += dt
}

// / Compute a platform-specific high-res timer value that fits into an int64.
func HighResTimer() int64 {
	return time.Now().UnixNano()
}

func TimerToMicrosInt64(dt int64) int64 {
	return time.Duration(dt).Microseconds()
}

func NewStopwatch() *Stopwatch {
	ret := Stopwatch{}
	ret.started_ = 0
	return &ret
}

// / Seconds since Restart() call.
func (this *Stopwatch) Elapsed() float64 {
	return 1e-9 * float64(this.NowRaw()-this.started_)
}

func (this *Stopwatch) Restart() {
	this.started_ = this.NowRaw()
}

func (this *Stopwatch) NowRaw() uint64 {
	return uint64(HighResTimer())
}

func GetTimeMillis() int64 {
	return TimerToMicrosInt64(HighResTimer()) / 1000
}
