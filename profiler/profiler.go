// Package profiler - Timing and counters for long running fetch jobs.
package profiler

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// MetricsCollector is polled on every sample tick for gauge style values, e.g. queue depth.
type MetricsCollector interface {
	CollectMetrics() map[string]float64
}

// CollectorFunc adapts a function to MetricsCollector.
type CollectorFunc func() map[string]float64

// CollectMetrics calls f.
func (f CollectorFunc) CollectMetrics() map[string]float64 { return f() }

// Options configures a Profiler.
type Options struct {
	// ReportInterval between periodic log reports. Zero disables them.
	ReportInterval time.Duration
	// SampleInterval between collector polls (default: 500ms).
	SampleInterval time.Duration
	// Window is the number of samples kept per series (default: 600).
	Window int
	// Log receives the reports, the standard logger when nil.
	Log logrus.FieldLogger
}

// Profiler aggregates operation timings and metric samples. It is safe for concurrent use.
type Profiler struct {
	opts Options

	mu         sync.Mutex
	started    time.Time
	metrics    map[string]*series
	operations map[string]*series
	collectors []MetricsCollector

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// series keeps a bounded window of samples plus lifetime extremes.
type series struct {
	window []float64
	sum    float64
	min    float64
	max    float64
	count  int64
}

func (s *series) add(v float64, limit int) {
	if s.count == 0 || v < s.min {
		s.min = v
	}
	if s.count == 0 || v > s.max {
		s.max = v
	}
	s.count++
	s.sum += v
	s.window = append(s.window, v)
	if len(s.window) > limit {
		s.sum -= s.window[0]
		s.window = s.window[1:]
	}
}

func (s *series) stat() Stat {
	st := Stat{Min: s.min, Max: s.max, Count: s.count}
	if len(s.window) > 0 {
		st.Avg = s.sum / float64(len(s.window))
	}
	return st
}

// Stat summarises one series. Operation values are seconds.
type Stat struct {
	Avg   float64 `json:"avg"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Count int64   `json:"count"`
}

// Snapshot is a point in time copy of every series.
type Snapshot struct {
	Uptime     time.Duration   `json:"uptime"`
	Goroutines int             `json:"goroutines"`
	HeapAlloc  uint64          `json:"heapAlloc"`
	Metrics    map[string]Stat `json:"metrics"`
	Operations map[string]Stat `json:"operations"`
}

// New creates a profiler. Call Start to enable sampling and periodic reports.
func New(opts Options) *Profiler {
	if opts.SampleInterval <= 0 {
		opts.SampleInterval = 500 * time.Millisecond
	}
	if opts.Window <= 0 {
		opts.Window = 600
	}
	if opts.Log == nil {
		opts.Log = logrus.StandardLogger()
	}

	return &Profiler{
		opts:       opts,
		started:    time.Now(),
		metrics:    make(map[string]*series),
		operations: make(map[string]*series),
	}
}

// Start launches the sampling and reporting goroutines. They stop with ctx or Stop.
func (p *Profiler) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel != nil {
		return
	}
	ctx, p.cancel = context.WithCancel(ctx)
	p.started = time.Now()

	p.wg.Add(1)
	go p.loop(ctx, p.opts.SampleInterval, p.sample)

	if p.opts.ReportInterval > 0 {
		p.wg.Add(1)
		go p.loop(ctx, p.opts.ReportInterval, func() { p.Report("progress") })
	}
}

// Stop halts the background goroutines and waits for them.
func (p *Profiler) Stop() {
	p.mu.Lock()
	cancel := p.cancel
	p.cancel = nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	p.wg.Wait()
}

func (p *Profiler) loop(ctx context.Context, every time.Duration, fn func()) {
	defer p.wg.Done()

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn()
		}
	}
}

// AddMetricsCollector registers a collector polled on every sample tick.
func (p *Profiler) AddMetricsCollector(c MetricsCollector) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.collectors = append(p.collectors, c)
}

// RecordMetric adds one sample to the named series.
func (p *Profiler) RecordMetric(name string, value float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record(p.metrics, name, value)
}

// StartOperation begins timing an operation.
//
// Arguments:
// - name: The name of the operation to track.
//
// Returns:
// - A function to call when the operation completes.
func (p *Profiler) StartOperation(name string) func() {
	start := time.Now()
	return func() {
		d := time.Since(start)
		p.mu.Lock()
		defer p.mu.Unlock()
		p.record(p.operations, name, d.Seconds())
	}
}

func (p *Profiler) record(set map[string]*series, name string, value float64) {
	s, ok := set[name]
	if !ok {
		s = &series{}
		set[name] = s
	}
	s.add(value, p.opts.Window)
}

func (p *Profiler) sample() {
	p.mu.Lock()
	collectors := append([]MetricsCollector(nil), p.collectors...)
	p.mu.Unlock()

	// Collectors may take their own locks, so they run outside p.mu.
	for _, c := range collectors {
		for name, v := range c.CollectMetrics() {
			p.RecordMetric(name, v)
		}
	}
}

// Snapshot returns the current statistics.
func (p *Profiler) Snapshot() Snapshot {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	p.mu.Lock()
	defer p.mu.Unlock()

	snap := Snapshot{
		Uptime:     time.Since(p.started),
		Goroutines: runtime.NumGoroutine(),
		HeapAlloc:  mem.HeapAlloc,
		Metrics:    make(map[string]Stat, len(p.metrics)),
		Operations: make(map[string]Stat, len(p.operations)),
	}
	for name, s := range p.metrics {
		snap.Metrics[name] = s.stat()
	}
	for name, s := range p.operations {
		snap.Operations[name] = s.stat()
	}
	return snap
}

// Report logs the current snapshot, one line per series in name order.
func (p *Profiler) Report(title string) {
	snap := p.Snapshot()
	log := p.opts.Log

	log.WithFields(logrus.Fields{
		"uptime":     snap.Uptime.Truncate(time.Millisecond),
		"goroutines": snap.Goroutines,
		"heap":       formatBytes(snap.HeapAlloc),
	}).Info(title)

	for _, name := range sortedKeys(snap.Operations) {
		st := snap.Operations[name]
		log.WithFields(logrus.Fields{
			"operation": name,
			"avg":       seconds(st.Avg),
			"min":       seconds(st.Min),
			"max":       seconds(st.Max),
			"count":     st.Count,
		}).Info("timing")
	}
	for _, name := range sortedKeys(snap.Metrics) {
		st := snap.Metrics[name]
		log.WithFields(logrus.Fields{
			"metric": name,
			"avg":    st.Avg,
			"min":    st.Min,
			"max":    st.Max,
			"count":  st.Count,
		}).Info("metric")
	}
}

func seconds(v float64) time.Duration {
	return time.Duration(v * float64(time.Second)).Truncate(time.Microsecond)
}

func sortedKeys(m map[string]Stat) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// formatBytes formats byte counts in human-readable format.
func formatBytes(bytes uint64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
