// Package stats aggregates frame times into once-per-second reports.
package stats

import (
	"fmt"
	"math"
	"time"
)

// Report summarizes the frames of one interval.
type Report struct {
	Frames    int
	FrameTime time.Duration
	FPS       float64
	// MeanDeviation is the mean absolute difference between consecutive
	// frame times.
	MeanDeviation time.Duration
	MaxDeviation  time.Duration
}

// DeviationPercent is the mean deviation relative to the frame time.
func (r Report) DeviationPercent() float64 {
	if r.FrameTime <= 0 {
		return 0
	}
	return 100 * float64(r.MeanDeviation) / float64(r.FrameTime)
}

// MaxDeviationPercent is the max deviation relative to the frame time.
func (r Report) MaxDeviationPercent() float64 {
	if r.FrameTime <= 0 {
		return 0
	}
	return 100 * float64(r.MaxDeviation) / float64(r.FrameTime)
}

func (r Report) String() string {
	return fmt.Sprintf("%.3f ms, %.1f fps, dev %.3f ms (%.1f%%), max %.3f ms (%.1f%%)",
		ms(r.FrameTime), r.FPS,
		ms(r.MeanDeviation), r.DeviationPercent(),
		ms(r.MaxDeviation), r.MaxDeviationPercent())
}

func ms(d time.Duration) float64 { return float64(d) / float64(time.Millisecond) }

// Collector accumulates frame times. Deviations are measured against the
// previous frame, carried across intervals.
type Collector struct {
	interval time.Duration
	start    time.Time
	last     time.Duration

	frames   int
	total    time.Duration
	devTotal time.Duration
	devMax   time.Duration
}

// NewCollector starts an interval at now.
func NewCollector(interval time.Duration, now time.Time) *Collector {
	return &Collector{interval: interval, start: now}
}

// Add records one frame that took dt and ended at now. When the interval
// has elapsed it returns the finished report and starts a new interval.
func (c *Collector) Add(dt time.Duration, now time.Time) (Report, bool) {
	c.frames++
	c.total += dt
	dev := dt - c.last
	if dev < 0 {
		dev = -dev
	}
	c.devTotal += dev
	c.devMax = max(c.devMax, dev)
	c.last = dt

	if now.Sub(c.start) < c.interval {
		return Report{}, false
	}
	r := c.report()
	c.start = now
	c.frames, c.total, c.devTotal, c.devMax = 0, 0, 0, 0
	// The next interval measures deviation from this interval's mean.
	c.last = r.FrameTime
	return r, true
}

func (c *Collector) report() Report {
	if c.frames == 0 {
		return Report{}
	}
	n := time.Duration(c.frames)
	r := Report{
		Frames:        c.frames,
		FrameTime:     c.total / n,
		MeanDeviation: c.devTotal / n,
		MaxDeviation:  c.devMax,
	}
	if r.FrameTime > 0 {
		r.FPS = float64(time.Second) / float64(r.FrameTime)
	} else {
		r.FPS = math.Inf(1)
	}
	return r
}
