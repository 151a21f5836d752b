package timeline

import (
	"math"
	"time"
)

// Axis 时间轴映射，把 [Start, End] 线性映射到 [0, Width] 像素区间
type Axis struct {
	Start time.Time
	End   time.Time
	Width float64
}

// NewAxis create axis
func NewAxis(start, end time.Time, width float64) Axis {
	return Axis{Start: start, End: end, Width: width}
}

func (a Axis) span() time.Duration {
	return a.End.Sub(a.Start)
}

// TimeToX 时间转像素，超出视口的时间会被夹到两端，用于边缘处的部分渲染
func (a Axis) TimeToX(t time.Time) float64 {
	total := a.span()
	if total <= 0 || a.Width <= 0 {
		return 0
	}
	x := float64(t.Sub(a.Start)) / float64(total) * a.Width
	return clamp(x, 0, a.Width)
}

// XToTime 像素转时间，x 先夹到 [0, Width]，结果必然落在 [Start, End]
func (a Axis) XToTime(x float64) time.Time {
	total := a.span()
	if total <= 0 || a.Width <= 0 || math.IsNaN(x) {
		return a.Start
	}
	ratio := clamp(x, 0, a.Width) / a.Width
	return a.Start.Add(time.Duration(math.Round(ratio * float64(total))))
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
