package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/gowvp/vigil/internal/core/incident"
	"github.com/gowvp/vigil/internal/core/timeline"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/wordwrap"
)

const (
	labelWidth    = 18
	defaultWidth  = 100
	minTrackWidth = 20
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#f8fafc")).Background(lipgloss.Color("#1e293b")).Padding(0, 1)
	mutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#6b7280"))
	cursorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#f43f5e")).Bold(true)
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#dc2626"))
	selectedStyle = lipgloss.NewStyle().Bold(true).Underline(true)
	detailStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#334155")).Padding(0, 1)
)

var cameraStatusColors = map[string]string{
	"online":      "#22c55e",
	"offline":     "#dc2626",
	"maintenance": "#eab308",
}

// trackWidth 时间轴可用的列数
func (m Model) trackWidth() int {
	w := m.width
	if w <= 0 {
		w = defaultWidth
	}
	return max(w-labelWidth-1, minTrackWidth)
}

// column 像素坐标换算到终端列
func (m Model) column(x float64) int {
	cols := m.trackWidth()
	c := int(x / m.tl.Width() * float64(cols))
	return min(max(c, 0), cols-1)
}

// View implements tea.Model
func (m Model) View() string {
	v := m.tl.Snapshot()
	lines := []string{m.renderHeader(v), m.renderMarkers(v)}
	lines = append(lines, m.renderRows(v)...)
	lines = append(lines, "", m.renderLegend(v), m.renderQuickJumps(v))
	if d := m.renderDetail(); d != "" {
		lines = append(lines, d)
	}
	if n := m.renderNotices(); n != "" {
		lines = append(lines, n)
	}
	if m.err != nil {
		lines = append(lines, errorStyle.Render(m.err.Error()))
	} else if m.status != "" {
		lines = append(lines, mutedStyle.Render(m.status))
	}
	lines = append(lines, m.help.ShortHelpView(keys.helpBindings()))
	return strings.Join(lines, "\n")
}

func (m Model) renderHeader(v timeline.View) string {
	state := "⏸ " + v.State
	if v.State == "playing" {
		state = "▶ playing"
	}
	cursor := v.Cursor.In(m.loc).Format("15:04:05")
	info := fmt.Sprintf("%s  zoom %s  %s %gx  cursor %s  %d incidents",
		v.Date, v.ZoomLabel, state, v.Speed, cursor, v.VisibleCount)
	if !m.loaded {
		info += "  loading…"
	}
	if v.PlaceholderCameras {
		info += mutedStyle.Render("  (no cameras)")
	}
	return titleStyle.Render("VIGIL") + " " + info
}

func (m Model) renderMarkers(v timeline.View) string {
	line := []rune(strings.Repeat(" ", m.trackWidth()))
	for _, mk := range v.Markers {
		c := m.column(mk.X)
		label := []rune(mk.Label)
		if c+len(label) > len(line) {
			continue
		}
		// 已被前一个标签占用的位置跳过
		if c > 0 && line[c-1] != ' ' {
			continue
		}
		copy(line[c:], label)
	}
	return strings.Repeat(" ", labelWidth+1) + mutedStyle.Render(string(line))
}

type cell struct {
	ch    rune
	color string
	bold  bool
}

func (m Model) renderRows(v timeline.View) []string {
	cols := m.trackWidth()
	cursorCol := m.column(v.CursorX)
	out := make([]string, 0, len(v.Cameras))
	for row, cam := range v.Cameras {
		cells := make([]cell, cols)
		for i := range cells {
			cells[i] = cell{ch: '·', color: "#334155"}
		}
		for _, mk := range v.Markers {
			if mk.IsHour {
				cells[m.column(mk.X)] = cell{ch: '┊', color: "#475569"}
			}
		}
		for _, b := range v.Blocks {
			if b.Row != row {
				continue
			}
			from := m.column(b.X)
			to := max(from, m.column(b.X+b.Width))
			ch := '█'
			if b.Incident.Resolved {
				ch = '▒'
			}
			for c := from; c <= to; c++ {
				cells[c] = cell{ch: ch, color: b.Color, bold: b.Selected}
			}
			if b.HighPriority {
				cells[from] = cell{ch: '▌', color: b.Color, bold: true}
			}
		}
		cells[cursorCol] = cell{ch: '│', color: "#f43f5e", bold: true}
		out = append(out, m.renderCameraLabel(cam)+" "+renderCells(cells))
	}
	return out
}

// renderCells 相同样式的连续单元合并渲染
func renderCells(cells []cell) string {
	var sb strings.Builder
	start := 0
	for i := 1; i <= len(cells); i++ {
		if i < len(cells) && cells[i].color == cells[start].color && cells[i].bold == cells[start].bold {
			continue
		}
		run := make([]rune, 0, i-start)
		for _, c := range cells[start:i] {
			run = append(run, c.ch)
		}
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(cells[start].color)).Bold(cells[start].bold)
		sb.WriteString(style.Render(string(run)))
		start = i
	}
	return sb.String()
}

func (m Model) renderCameraLabel(cam timeline.Camera) string {
	name := runewidth.Truncate(cam.Name, labelWidth-2, "…")
	dot := mutedStyle.Render("○")
	if c, ok := m.cameras[cam.ID]; ok {
		dot = lipgloss.NewStyle().Foreground(lipgloss.Color(statusColor(c))).Render("●")
	}
	return dot + " " + lipgloss.NewStyle().Width(labelWidth-2).Render(name)
}

func statusColor(c incident.CameraWithCount) string {
	if v, ok := cameraStatusColors[strings.ToLower(c.Status)]; ok {
		return v
	}
	return timeline.ColorNeutral
}

func (m Model) renderLegend(v timeline.View) string {
	parts := make([]string, 0, len(v.Legend))
	for _, e := range v.Legend {
		parts = append(parts, lipgloss.NewStyle().Foreground(lipgloss.Color(e.Color)).Render("■")+" "+e.Category)
	}
	if len(parts) == 0 {
		return mutedStyle.Render("no incidents in view")
	}
	return strings.Join(parts, "  ")
}

func (m Model) renderQuickJumps(v timeline.View) string {
	if len(v.QuickJumps) == 0 {
		return ""
	}
	parts := make([]string, 0, len(v.QuickJumps))
	for i, inc := range v.QuickJumps {
		label := fmt.Sprintf("[%d] %s %s", i+1, inc.Start.In(m.loc).Format("15:04"), inc.Category)
		parts = append(parts, lipgloss.NewStyle().Foreground(lipgloss.Color(timeline.IncidentColor(inc))).Render(label))
	}
	return cursorStyle.Render("!") + " " + strings.Join(parts, "  ")
}

func (m Model) renderDetail() string {
	inc, ok := m.tl.Selected()
	if !ok {
		return ""
	}
	state := resolvedLabel(inc.Resolved)
	if _, busy := m.pending[inc.ID]; busy {
		state += " (saving)"
	}
	lines := []string{
		selectedStyle.Render(fmt.Sprintf("#%d %s", inc.ID, inc.Category)) + "  " + string(inc.Severity) + "  " + state,
		fmt.Sprintf("%s  %s – %s", inc.Camera.Name,
			inc.Start.In(m.loc).Format("15:04:05"), inc.End.In(m.loc).Format("15:04:05")),
	}
	if inc.Description != "" {
		lines = append(lines, mutedStyle.Render(wordwrap.String(inc.Description, max(m.trackWidth()-4, minTrackWidth))))
	}
	return detailStyle.Render(strings.Join(lines, "\n"))
}

// renderNotices 最近一次时间轴回调
func (m Model) renderNotices() string {
	parts := make([]string, 0, 3)
	if m.note.date != "" {
		parts = append(parts, "date "+m.note.date)
	}
	if m.note.selected != "" {
		parts = append(parts, "selected "+m.note.selected)
	}
	if m.note.time != "" {
		parts = append(parts, "time "+m.note.time)
	}
	if len(parts) == 0 {
		return ""
	}
	return mutedStyle.Render(strings.Join(parts, " · "))
}
