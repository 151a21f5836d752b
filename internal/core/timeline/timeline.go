package timeline

import (
	"time"
)

// ISOMilli 通知中使用的时间格式
const ISOMilli = "2006-01-02T15:04:05.000Z07:00"

// FormatInstant 统一以 UTC 毫秒精度输出
func FormatInstant(t time.Time) string {
	return t.UTC().Format(ISOMilli)
}

// Timeline 时间轴视图模型
// 非并发安全，宿主需串行调用（HTTP 会话加锁，TUI 走事件循环）
type Timeline struct {
	loc   *time.Location
	width float64

	viewport Viewport
	cursor   time.Time
	state    PlayState
	speed    float64

	incidents   []Incident
	cameras     []Camera
	placeholder bool
	selected    *Incident

	onTimeChange     func(string)
	onIncidentSelect func(Incident)
	onDateChange     func(string)
}

type Option func(*Timeline)

// WithLocation 日期边界所在时区，默认 time.Local
func WithLocation(loc *time.Location) Option {
	return func(t *Timeline) {
		if loc != nil {
			t.loc = loc
		}
	}
}

// WithWidth 时间轴像素宽度
func WithWidth(w float64) Option {
	return func(t *Timeline) {
		if w > 0 {
			t.width = w
		}
	}
}

// WithOnTimeChange 游标变化通知，参数为 ISO-8601 时间
func WithOnTimeChange(fn func(string)) Option {
	return func(t *Timeline) { t.onTimeChange = fn }
}

// WithOnIncidentSelect 点击事件块或快速跳转时通知
func WithOnIncidentSelect(fn func(Incident)) Option {
	return func(t *Timeline) { t.onIncidentSelect = fn }
}

// WithOnDateChange 日期变化通知，参数为 YYYY-MM-DD
func WithOnDateChange(fn func(string)) Option {
	return func(t *Timeline) { t.onDateChange = fn }
}

// New 以 date 为选中日期创建时间轴，游标位于当天中午
func New(date Date, opts ...Option) *Timeline {
	t := Timeline{loc: time.Local, width: DefaultWidth, speed: DefaultSpeed}
	for _, opt := range opts {
		opt(&t)
	}
	t.viewport = NewViewport(date, t.loc)
	t.cursor = date.Noon(t.loc)
	t.cameras, t.placeholder = CamerasOf(nil)
	return &t
}

func (t *Timeline) Viewport() Viewport       { return t.viewport }
func (t *Timeline) Date() Date               { return t.viewport.Date() }
func (t *Timeline) Cursor() time.Time        { return t.cursor }
func (t *Timeline) State() PlayState         { return t.state }
func (t *Timeline) Playing() bool            { return t.state == StatePlaying }
func (t *Timeline) Dragging() bool           { return t.state == StateDragging }
func (t *Timeline) Speed() float64           { return t.speed }
func (t *Timeline) Width() float64           { return t.width }
func (t *Timeline) Cameras() []Camera        { return t.cameras }
func (t *Timeline) Incidents() []Incident    { return t.incidents }
func (t *Timeline) Location() *time.Location { return t.loc }
func (t *Timeline) Axis() Axis               { return t.viewport.Axis(t.width) }

// Selected 当前选中事件
func (t *Timeline) Selected() (Incident, bool) {
	if t.selected == nil {
		return Incident{}, false
	}
	return *t.selected, true
}

func (t *Timeline) selectedID() int64 {
	if t.selected == nil {
		return 0
	}
	return t.selected.ID
}

// SetIncidents 替换事件列表，重新推导摄像头行
func (t *Timeline) SetIncidents(incidents []Incident) {
	t.incidents = append(t.incidents[:0:0], incidents...)
	t.cameras, t.placeholder = CamerasOf(t.incidents)
	if t.selected == nil {
		return
	}
	for i := range t.incidents {
		if t.incidents[i].ID == t.selected.ID {
			inc := t.incidents[i]
			t.selected = &inc
			return
		}
	}
}

// PlaceholderCameras 当前行是否为占位摄像头
func (t *Timeline) PlaceholderCameras() bool { return t.placeholder }

// Visible 当前日期和视口内的事件
func (t *Timeline) Visible() []Incident {
	return VisibleIncidents(t.incidents, t.viewport)
}

// Blocks 渲染用矩形
func (t *Timeline) Blocks() []Block {
	return Layout(t.incidents, t.cameras, t.viewport, t.width, t.selectedID())
}

// Markers 时间刻度
func (t *Timeline) Markers() []Marker { return Markers(t.viewport, t.width) }

// Legend 图例
func (t *Timeline) Legend() []LegendEntry { return Legend(t.Visible()) }

// QuickJumps 高优先级事件快捷入口
func (t *Timeline) QuickJumps() []Incident { return QuickJumps(t.Visible()) }

// BlockAt 命中测试，坐标系与 Blocks 一致
func (t *Timeline) BlockAt(x, y float64) (Block, bool) {
	blocks := t.Blocks()
	// 后绘制的块在上层
	for i := len(blocks) - 1; i >= 0; i-- {
		if blocks[i].Contains(x, y) {
			return blocks[i], true
		}
	}
	return Block{}, false
}

func (t *Timeline) stop() {
	if t.state == StatePlaying {
		t.state = StateIdle
	}
}

func (t *Timeline) setCursor(c time.Time) {
	t.cursor = c
	if t.onTimeChange != nil {
		t.onTimeChange(FormatInstant(c))
	}
}

func (t *Timeline) notifyDate() {
	if t.onDateChange != nil {
		t.onDateChange(t.viewport.Date().String())
	}
}

func (t *Timeline) notifySelect(inc Incident) {
	if t.onIncidentSelect != nil {
		t.onIncidentSelect(inc)
	}
}

// ZoomIn 放大一档
func (t *Timeline) ZoomIn() bool {
	if !t.viewport.ZoomIn() {
		return false
	}
	t.stop()
	return true
}

// ZoomOut 缩小一档
func (t *Timeline) ZoomOut() bool {
	if !t.viewport.ZoomOut() {
		return false
	}
	t.stop()
	return true
}

// PanLeft 被拒绝时状态完全不变
func (t *Timeline) PanLeft() bool {
	if !t.viewport.PanLeft() {
		return false
	}
	t.stop()
	return true
}

// PanRight 被拒绝时状态完全不变
func (t *Timeline) PanRight() bool {
	if !t.viewport.PanRight() {
		return false
	}
	t.stop()
	return true
}

func (t *Timeline) changeDate(d Date) {
	t.viewport.SetDate(d)
	t.cursor = d.Noon(t.loc)
	t.stop()
}

// SetDate 宿主受控的日期，与当前不同才覆盖，不发通知
func (t *Timeline) SetDate(d Date) bool {
	if d == t.viewport.Date() {
		return false
	}
	t.changeDate(d)
	return true
}

// PickDate 日期选择器：切换日期、清除选中并通知宿主
func (t *Timeline) PickDate(d Date) bool {
	if d == t.viewport.Date() {
		return false
	}
	t.changeDate(d)
	t.selected = nil
	t.notifyDate()
	return true
}

// ClearSelection 宿主清除选中
func (t *Timeline) ClearSelection() { t.selected = nil }

// Click 点击定位，拖拽中忽略
func (t *Timeline) Click(x float64) {
	if t.state == StateDragging {
		return
	}
	t.setCursor(t.Axis().XToTime(x))
}

// BeginDrag 开始拖拽会停止播放
func (t *Timeline) BeginDrag() {
	t.state = StateDragging
}

// DragTo 拖拽移动，每次移动都通知宿主
func (t *Timeline) DragTo(x float64) {
	if t.state != StateDragging {
		return
	}
	t.setCursor(t.Axis().XToTime(clamp(x, 0, t.width)))
}

// EndDrag 结束拖拽
func (t *Timeline) EndDrag() {
	if t.state == StateDragging {
		t.state = StateIdle
	}
}

// TogglePlay 播放/暂停，拖拽中开始播放会取消拖拽
func (t *Timeline) TogglePlay() bool {
	if t.state == StatePlaying {
		t.state = StateIdle
		return false
	}
	t.state = StatePlaying
	return true
}

// Pause 停止播放
func (t *Timeline) Pause() { t.stop() }

// Tick 推进一次游标，越过视口终点时停止且游标不动
func (t *Timeline) Tick() bool {
	if t.state != StatePlaying {
		return false
	}
	next := t.cursor.Add(TickIncrement(t.viewport.Zoom(), t.speed))
	if next.After(t.viewport.End()) {
		t.state = StateIdle
		return false
	}
	t.setCursor(next)
	return true
}

// SetSpeed 下一次 tick 生效，返回实际采用的倍速
func (t *Timeline) SetSpeed(s float64) float64 {
	t.speed = SnapSpeed(s)
	return t.speed
}

// StepSpeed 在可选倍速间前后切换
func (t *Timeline) StepSpeed(delta int) float64 {
	idx := 0
	for i, v := range Speeds {
		if v == t.speed {
			idx = i
		}
	}
	idx = min(max(idx+delta, 0), len(Speeds)-1)
	t.speed = Speeds[idx]
	return t.speed
}

// JumpToStart 游标跳到视口起点
func (t *Timeline) JumpToStart() {
	t.stop()
	t.setCursor(t.viewport.Start())
}

// JumpToEnd 游标跳到视口终点
func (t *Timeline) JumpToEnd() {
	t.stop()
	t.setCursor(t.viewport.End())
}

// Close 释放拖拽与播放状态，之后不再回调
func (t *Timeline) Close() {
	t.state = StateIdle
	t.onTimeChange = nil
	t.onIncidentSelect = nil
	t.onDateChange = nil
}
