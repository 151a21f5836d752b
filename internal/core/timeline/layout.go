package timeline

import (
	"strings"
	"time"
)

// 布局常量，单位像素
const (
	DefaultWidth  = 1200
	HeaderHeight  = 50
	RowHeight     = 50
	BlockInset    = 12
	BlockHeight   = 26
	MinBlockWidth = 8
	LabelMinWidth = 40
	LegendLimit   = 6
	QuickJumpMax  = 3
)

// Block 可直接渲染的事件矩形
type Block struct {
	Incident     Incident `json:"incident"`
	Row          int      `json:"row"`
	X            float64  `json:"x"`
	Y            float64  `json:"y"`
	Width        float64  `json:"width"`
	Height       float64  `json:"height"`
	Color        string   `json:"color"`
	Label        string   `json:"label,omitempty"`
	HighPriority bool     `json:"high_priority"`
	Selected     bool     `json:"selected"`
}

// Contains 命中测试
func (b Block) Contains(x, y float64) bool {
	return x >= b.X && x <= b.X+b.Width && y >= b.Y && y <= b.Y+b.Height
}

// IsVisible 事件开始时间在选中日内，且与视口严格重叠
func IsVisible(inc Incident, v Viewport) bool {
	dayStart, dayEnd := v.DayStart(), v.DayEnd()
	if inc.Start.Before(dayStart) || !inc.Start.Before(dayEnd) {
		return false
	}
	return inc.Start.Before(v.End()) && inc.End.After(v.Start())
}

// VisibleIncidents 保持输入顺序
func VisibleIncidents(incidents []Incident, v Viewport) []Incident {
	out := make([]Incident, 0, len(incidents))
	for _, inc := range incidents {
		if IsVisible(inc, v) {
			out = append(out, inc)
		}
	}
	return out
}

// RowOf 摄像头所在行，找不到时落在第 0 行
func RowOf(cameras []Camera, cameraID int64) int {
	for i, c := range cameras {
		if c.ID == cameraID {
			return i
		}
	}
	return 0
}

// Label 宽度足够时显示分类的第一个单词
func Label(category string, width float64) string {
	if width <= LabelMinWidth {
		return ""
	}
	fields := strings.Fields(category)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// Layout 计算可见事件的矩形，selectedID 为 0 表示无选中
func Layout(incidents []Incident, cameras []Camera, v Viewport, width float64, selectedID int64) []Block {
	axis := v.Axis(width)
	visible := VisibleIncidents(incidents, v)
	blocks := make([]Block, 0, len(visible))
	for _, inc := range visible {
		row := RowOf(cameras, inc.Camera.ID)
		x0, x1 := axis.TimeToX(inc.Start), axis.TimeToX(inc.End)
		w := max(float64(MinBlockWidth), x1-x0)
		blocks = append(blocks, Block{
			Incident:     inc,
			Row:          row,
			X:            x0,
			Y:            float64(HeaderHeight + row*RowHeight + BlockInset),
			Width:        w,
			Height:       BlockHeight,
			Color:        IncidentColor(inc),
			Label:        Label(inc.Category, w),
			HighPriority: inc.Severity.IsHighPriority(),
			Selected:     selectedID != 0 && inc.ID == selectedID,
		})
	}
	return blocks
}

// Height 整个时间轴的高度
func Height(cameras []Camera) float64 {
	return float64(HeaderHeight + len(cameras)*RowHeight)
}

// Marker 时间刻度
type Marker struct {
	Time   time.Time `json:"time"`
	X      float64   `json:"x"`
	Label  string    `json:"label"`
	IsHour bool      `json:"is_hour"`
}

// MarkerInterval 刻度间隔随缩放变化
func MarkerInterval(zoom time.Duration) time.Duration {
	switch {
	case zoom <= time.Hour:
		return 5 * time.Minute
	case zoom <= 6*time.Hour:
		return 30 * time.Minute
	case zoom <= 12*time.Hour:
		return time.Hour
	default:
		return 2 * time.Hour
	}
}

// Markers 起点按间隔向下取整到分钟，直到视口终点（含）
func Markers(v Viewport, width float64) []Marker {
	axis := v.Axis(width)
	interval := MarkerInterval(v.Zoom())
	step := int(interval / time.Minute)

	s := v.Start().In(v.Location())
	minute := s.Minute() / step * step
	t := time.Date(s.Year(), s.Month(), s.Day(), s.Hour(), minute, 0, 0, v.Location())

	end := v.End()
	out := make([]Marker, 0, 16)
	for ; !t.After(end); t = t.Add(interval) {
		if t.Before(v.Start()) {
			continue
		}
		out = append(out, Marker{
			Time:   t,
			X:      axis.TimeToX(t),
			Label:  t.In(v.Location()).Format("15:04"),
			IsHour: t.In(v.Location()).Minute() == 0,
		})
	}
	return out
}

// LegendEntry 图例项
type LegendEntry struct {
	Category string `json:"category"`
	Color    string `json:"color"`
}

// Legend 可见事件中出现的分类，按首次出现顺序，最多 LegendLimit 个
func Legend(visible []Incident) []LegendEntry {
	seen := make(map[string]struct{}, LegendLimit)
	out := make([]LegendEntry, 0, LegendLimit)
	for _, inc := range visible {
		if _, ok := seen[inc.Category]; ok {
			continue
		}
		seen[inc.Category] = struct{}{}
		out = append(out, LegendEntry{Category: inc.Category, Color: CategoryColor(inc.Category)})
		if len(out) == LegendLimit {
			break
		}
	}
	return out
}

// QuickJumps 可见的高优先级事件，最多 QuickJumpMax 个
func QuickJumps(visible []Incident) []Incident {
	out := make([]Incident, 0, QuickJumpMax)
	for _, inc := range visible {
		if !inc.Severity.IsHighPriority() {
			continue
		}
		out = append(out, inc)
		if len(out) == QuickJumpMax {
			break
		}
	}
	return out
}
