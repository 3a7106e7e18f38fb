package main

// / The Metrics module is used for the debug mode that dumps timing stats of
// / various actions.  To use, see METRIC_RECORD below.

type Metric struct {
	name string
	/// Number of times we've hit the code path.
	count int
	/// Total time (in platform-dependent units) we've spent on the code path.
	sum int64
}

// / A scoped object for recording a metric across the body of a function.
type ScopedMetric struct {
	metric_ *Metric
	/// Timestamp when the measurement started.
	start_ int64
}

type Metrics struct {
	metrics_ []*Metric
}

// / A simple stopwatch which returns the time
// / in seconds since Restart() was called.
type Stopwatch struct {
	started_ uint64
}

// / The primary interface to metrics.  Use
// /   defer METRIC_RECORD("foobar").ReleaseScopedMetric()
// / at the top of a function to get timing stats recorded for each call.
func METRIC_RECORD(name string) *ScopedMetric {
	var metric *Metric
	if g_metrics != nil {
		metric = g_metrics.NewMetric(name)
	}
	return NewScopedMetric(metric)
}

var g_metrics *Metrics = nil
