package timeline

import (
	"math"
	"time"
)

// PlayState 回放状态，三者互斥
type PlayState int

const (
	StateIdle PlayState = iota
	StateDragging
	StatePlaying
)

func (s PlayState) String() string {
	switch s {
	case StateDragging:
		return "dragging"
	case StatePlaying:
		return "playing"
	}
	return "idle"
}

// TickInterval 播放时每秒推进一次
const TickInterval = time.Second

// ticksPerWindow 1 倍速下走完一个视口需要的 tick 数，1h 视口即每次 1 分钟
const ticksPerWindow = 60

// Speeds 可选倍速
var Speeds = []float64{0.5, 1, 2, 4}

// DefaultSpeed 默认 1 倍速
const DefaultSpeed = 1.0

// SnapSpeed 取最接近的可选倍速
func SnapSpeed(s float64) float64 {
	if math.IsNaN(s) {
		return DefaultSpeed
	}
	best := Speeds[0]
	for _, v := range Speeds[1:] {
		if math.Abs(v-s) < math.Abs(best-s) {
			best = v
		}
	}
	return best
}

// TickIncrement 每次 tick 游标前进的时长，与缩放和倍速成正比
func TickIncrement(zoom time.Duration, speed float64) time.Duration {
	return time.Duration(float64(zoom/ticksPerWindow) * speed)
}
