package timeline

import "time"

// ZoomLevel 缩放档位
type ZoomLevel struct {
	Duration time.Duration
	Label    string
}

// ZoomLevels 由粗到细，索引 0 为整天
var ZoomLevels = []ZoomLevel{
	{Duration: 24 * time.Hour, Label: "24h"},
	{Duration: 12 * time.Hour, Label: "12h"},
	{Duration: 6 * time.Hour, Label: "6h"},
	{Duration: 3 * time.Hour, Label: "3h"},
	{Duration: time.Hour, Label: "1h"},
	{Duration: 30 * time.Minute, Label: "30m"},
}

// panRatio 每次平移为当前缩放时长的 1/4
const panRatio = 4

// Viewport 视口状态：选中日期、缩放档位、窗口起点
// 窗口终点永远由 start + zoom 推导，不单独存储
type Viewport struct {
	date  Date
	zoom  int
	start time.Time
	loc   *time.Location
}

// NewViewport 视口默认显示整天
func NewViewport(date Date, loc *time.Location) Viewport {
	if loc == nil {
		loc = time.Local
	}
	v := Viewport{date: date, zoom: 0, start: date.Start(loc), loc: loc}
	v.fit()
	return v
}

func (v Viewport) Date() Date               { return v.date }
func (v Viewport) ZoomIndex() int           { return v.zoom }
func (v Viewport) Zoom() time.Duration      { return ZoomLevels[v.zoom].Duration }
func (v Viewport) ZoomLabel() string        { return ZoomLevels[v.zoom].Label }
func (v Viewport) Start() time.Time         { return v.start }
func (v Viewport) End() time.Time           { return v.start.Add(v.Zoom()) }
func (v Viewport) DayStart() time.Time      { return v.date.Start(v.loc) }
func (v Viewport) DayEnd() time.Time        { return v.date.End(v.loc) }
func (v Viewport) Location() *time.Location { return v.loc }

// Axis 当前视口对应的坐标映射
func (v Viewport) Axis(width float64) Axis {
	return NewAxis(v.Start(), v.End(), width)
}

func (v Viewport) CanZoomIn() bool  { return v.zoom < len(ZoomLevels)-1 }
func (v Viewport) CanZoomOut() bool { return v.zoom > 0 }

func (v Viewport) CanPanLeft() bool {
	return !v.start.Add(-v.Zoom() / panRatio).Before(v.DayStart())
}

func (v Viewport) CanPanRight() bool {
	return !v.start.Add(v.Zoom() / panRatio).Add(v.Zoom()).After(v.DayEnd())
}

// ZoomIn 放大一档，已是最细档位时返回 false
func (v *Viewport) ZoomIn() bool {
	if !v.CanZoomIn() {
		return false
	}
	v.zoom++
	v.fit()
	return true
}

// ZoomOut 缩小一档，窗口越过当天结束时把起点往回拉
func (v *Viewport) ZoomOut() bool {
	if !v.CanZoomOut() {
		return false
	}
	v.zoom--
	v.fit()
	return true
}

// PanLeft 向左平移 1/4 窗口，越过当天开始则不动
func (v *Viewport) PanLeft() bool {
	if !v.CanPanLeft() {
		return false
	}
	v.start = v.start.Add(-v.Zoom() / panRatio)
	return true
}

// PanRight 向右平移 1/4 窗口，越过当天结束则不动
func (v *Viewport) PanRight() bool {
	if !v.CanPanRight() {
		return false
	}
	v.start = v.start.Add(v.Zoom() / panRatio)
	return true
}

// SetDate 切换日期，起点回到当天零点，缩放档位保持
func (v *Viewport) SetDate(d Date) {
	v.date = d
	v.start = d.Start(v.loc)
	v.fit()
}

// CenterOn 让 t 落在窗口中间，再夹回当天范围
func (v *Viewport) CenterOn(t time.Time) {
	v.start = t.Truncate(time.Minute).Add(-v.Zoom() / 2)
	v.fit()
}

// fit 保证 start >= 当天零点 且 start + zoom <= 当天结束
// 当天短于缩放时长（夏令时）时以零点为准
func (v *Viewport) fit() {
	dayStart, dayEnd := v.DayStart(), v.DayEnd()
	if v.End().After(dayEnd) {
		v.start = dayEnd.Add(-v.Zoom())
	}
	if v.start.Before(dayStart) {
		v.start = dayStart
	}
}
