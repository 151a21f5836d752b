// Package tui 终端里的事件时间轴
package tui

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/gowvp/vigil/internal/core/incident"
	"github.com/gowvp/vigil/internal/core/timeline"
)

const (
	// CameraPollInterval 摄像头状态轮询间隔
	CameraPollInterval = 30 * time.Second
	requestTimeout     = 5 * time.Second
)

// Source 事件与摄像头数据来源
type Source interface {
	FetchIncidents(ctx context.Context) ([]timeline.Incident, error)
	FetchCameras(ctx context.Context) ([]incident.CameraWithCount, error)
	SetResolved(ctx context.Context, id int64, resolved bool) (timeline.Incident, error)
}

type (
	incidentsMsg struct {
		items []timeline.Incident
		err   error
	}
	camerasMsg struct {
		items []incident.CameraWithCount
		err   error
	}
	// resolvedMsg prev 为乐观更新之前的值，失败时回滚
	resolvedMsg struct {
		id   int64
		prev bool
		inc  timeline.Incident
		err  error
	}
	playTickMsg struct{ gen int }
	pollMsg     struct{}
)

// notices 时间轴回调写入，View 展示最近一次
type notices struct {
	time     string
	date     string
	selected string
}

// Model bubbletea 模型，时间轴只在 Update 中访问
type Model struct {
	src  Source
	tl   *timeline.Timeline
	loc  *time.Location
	note *notices
	help help.Model

	cameras map[int64]incident.CameraWithCount
	// pending 正在提交的处理状态，值为提交前的状态
	pending map[int64]bool

	playGen int
	ticking bool

	width  int
	height int
	loaded bool
	status string
	err    error
}

// New date 为初始日期
func New(src Source, date timeline.Date, loc *time.Location) Model {
	if loc == nil {
		loc = time.Local
	}
	note := &notices{}
	tl := timeline.New(date,
		timeline.WithLocation(loc),
		timeline.WithOnTimeChange(func(v string) { note.time = v }),
		timeline.WithOnDateChange(func(v string) { note.date = v }),
		timeline.WithOnIncidentSelect(func(inc timeline.Incident) {
			note.selected = fmt.Sprintf("#%d %s", inc.ID, inc.Category)
		}),
	)
	return Model{
		src:     src,
		tl:      tl,
		loc:     loc,
		note:    note,
		help:    help.New(),
		cameras: make(map[int64]incident.CameraWithCount),
		pending: make(map[int64]bool),
	}
}

// Timeline 供测试与外部检查状态
func (m Model) Timeline() *timeline.Timeline { return m.tl }

// Init implements tea.Model
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.fetchIncidents(), m.fetchCameras(), pollCameras())
}

func (m Model) fetchIncidents() tea.Cmd {
	src := m.src
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		items, err := src.FetchIncidents(ctx)
		return incidentsMsg{items: items, err: err}
	}
}

func (m Model) fetchCameras() tea.Cmd {
	src := m.src
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		items, err := src.FetchCameras(ctx)
		return camerasMsg{items: items, err: err}
	}
}

func pollCameras() tea.Cmd {
	return tea.Tick(CameraPollInterval, func(time.Time) tea.Msg { return pollMsg{} })
}

func (m Model) resolve(id int64, resolved, prev bool) tea.Cmd {
	src := m.src
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		inc, err := src.SetResolved(ctx, id, resolved)
		return resolvedMsg{id: id, prev: prev, inc: inc, err: err}
	}
}

// syncPlay 播放状态变化后启停 tick，旧的 tick 通过 playGen 失效
func (m *Model) syncPlay() tea.Cmd {
	playing := m.tl.Playing()
	switch {
	case playing && !m.ticking:
		m.ticking = true
		m.playGen++
		return playTick(m.playGen)
	case !playing && m.ticking:
		m.ticking = false
		m.playGen++
	}
	return nil
}

func playTick(gen int) tea.Cmd {
	return tea.Tick(timeline.TickInterval, func(time.Time) tea.Msg { return playTickMsg{gen: gen} })
}

// Update implements tea.Model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case incidentsMsg:
		if msg.err != nil {
			m.err = fmt.Errorf("load incidents: %w", msg.err)
			return m, nil
		}
		m.err = nil
		m.loaded = true
		m.tl.SetIncidents(m.withPending(msg.items))
		return m, nil

	case camerasMsg:
		if msg.err != nil {
			m.err = fmt.Errorf("load cameras: %w", msg.err)
			return m, nil
		}
		cams := make(map[int64]incident.CameraWithCount, len(msg.items))
		for _, c := range msg.items {
			cams[c.ID] = c
		}
		m.cameras = cams
		return m, nil

	case pollMsg:
		return m, tea.Batch(m.fetchCameras(), pollCameras())

	case playTickMsg:
		if msg.gen != m.playGen || !m.ticking {
			return m, nil
		}
		if m.tl.Tick() {
			return m, playTick(msg.gen)
		}
		return m, m.syncPlay()

	case resolvedMsg:
		delete(m.pending, msg.id)
		if msg.err != nil {
			m.setResolved(msg.id, msg.prev)
			m.status = fmt.Sprintf("resolve #%d failed: %v", msg.id, msg.err)
			return m, nil
		}
		m.setResolved(msg.id, msg.inc.Resolved)
		m.status = fmt.Sprintf("#%d %s", msg.id, resolvedLabel(msg.inc.Resolved))
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) {
			m.tl.Close()
			return m, tea.Quit
		}
		cmd := m.handleKey(msg)
		return m, batch(cmd, m.syncPlay())
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	tl := m.tl
	switch {
	case key.Matches(msg, keys.ZoomIn):
		tl.ZoomIn()
	case key.Matches(msg, keys.ZoomOut):
		tl.ZoomOut()
	case key.Matches(msg, keys.PanLeft):
		tl.PanLeft()
	case key.Matches(msg, keys.PanRight):
		tl.PanRight()
	case key.Matches(msg, keys.PrevDay):
		tl.PickDate(tl.Date().AddDays(-1))
	case key.Matches(msg, keys.NextDay):
		tl.PickDate(tl.Date().AddDays(1))
	case key.Matches(msg, keys.Today):
		tl.PickDate(timeline.DateOf(time.Now(), m.loc))
	case key.Matches(msg, keys.Play):
		tl.TogglePlay()
	case key.Matches(msg, keys.Slower):
		tl.StepSpeed(-1)
	case key.Matches(msg, keys.Faster):
		tl.StepSpeed(1)
	case key.Matches(msg, keys.JumpStart):
		tl.JumpToStart()
	case key.Matches(msg, keys.JumpEnd):
		tl.JumpToEnd()
	case key.Matches(msg, keys.StepBack):
		m.scrub(-1)
	case key.Matches(msg, keys.StepForward):
		m.scrub(1)
	case key.Matches(msg, keys.Drag):
		if tl.Dragging() {
			tl.EndDrag()
		} else {
			tl.BeginDrag()
		}
	case key.Matches(msg, keys.NextIncident):
		m.cycle(1)
	case key.Matches(msg, keys.PrevIncident):
		m.cycle(-1)
	case key.Matches(msg, keys.OpenIncident):
		if inc, ok := tl.Selected(); ok {
			tl.JumpToIncident(inc)
		}
	case key.Matches(msg, keys.Focus):
		tl.FocusSelected()
	case key.Matches(msg, keys.ClearSelected):
		tl.ClearSelection()
	case key.Matches(msg, keys.Quick1):
		m.quickJump(0)
	case key.Matches(msg, keys.Quick2):
		m.quickJump(1)
	case key.Matches(msg, keys.Quick3):
		m.quickJump(2)
	case key.Matches(msg, keys.Resolve):
		return m.toggleResolved()
	case key.Matches(msg, keys.Refresh):
		m.status = "refreshing"
		return tea.Batch(m.fetchIncidents(), m.fetchCameras())
	}
	return nil
}

// scrub 游标按一列移动，拖拽中走 DragTo
func (m *Model) scrub(dir int) {
	step := m.tl.Width() / float64(m.trackWidth())
	x := m.tl.Axis().TimeToX(m.tl.Cursor()) + float64(dir)*step
	if m.tl.Dragging() {
		m.tl.DragTo(x)
		return
	}
	m.tl.Click(x)
}

// cycle 按开始时间在可见事件间切换选中
func (m *Model) cycle(dir int) {
	visible := m.tl.Visible()
	if len(visible) == 0 {
		return
	}
	sort.SliceStable(visible, func(i, j int) bool {
		return visible[i].Start.Before(visible[j].Start)
	})
	idx := -1
	if sel, ok := m.tl.Selected(); ok {
		for i, v := range visible {
			if v.ID == sel.ID {
				idx = i
				break
			}
		}
	}
	switch {
	case idx < 0 && dir < 0:
		idx = len(visible) - 1
	case idx < 0:
		idx = 0
	default:
		idx = (idx + dir + len(visible)) % len(visible)
	}
	m.tl.Select(visible[idx])
}

func (m *Model) quickJump(i int) {
	if qs := m.tl.QuickJumps(); i < len(qs) {
		m.tl.JumpToIncident(qs[i])
	}
}

// toggleResolved 先改本地状态，请求失败时在 resolvedMsg 中回滚
func (m *Model) toggleResolved() tea.Cmd {
	inc, ok := m.tl.Selected()
	if !ok {
		m.status = "no incident selected"
		return nil
	}
	if _, busy := m.pending[inc.ID]; busy {
		return nil
	}
	m.pending[inc.ID] = inc.Resolved
	m.setResolved(inc.ID, !inc.Resolved)
	return m.resolve(inc.ID, !inc.Resolved, inc.Resolved)
}

func (m *Model) setResolved(id int64, resolved bool) {
	items := append([]timeline.Incident(nil), m.tl.Incidents()...)
	for i := range items {
		if items[i].ID == id {
			items[i].Resolved = resolved
		}
	}
	m.tl.SetIncidents(items)
}

// withPending 刷新期间保留尚未确认的乐观值
func (m *Model) withPending(items []timeline.Incident) []timeline.Incident {
	if len(m.pending) == 0 {
		return items
	}
	out := append([]timeline.Incident(nil), items...)
	for i := range out {
		if prev, ok := m.pending[out[i].ID]; ok {
			out[i].Resolved = !prev
		}
	}
	return out
}

func batch(cmds ...tea.Cmd) tea.Cmd {
	valid := cmds[:0]
	for _, c := range cmds {
		if c != nil {
			valid = append(valid, c)
		}
	}
	switch len(valid) {
	case 0:
		return nil
	case 1:
		return valid[0]
	}
	return tea.Batch(valid...)
}

func resolvedLabel(v bool) string {
	if v {
		return "resolved"
	}
	return "unresolved"
}
