package timeline

import "time"

// View 时间轴的可序列化快照，供 HTTP 与终端宿主渲染
type View struct {
	Date               Date          `json:"date"`
	ZoomIndex          int           `json:"zoom_index"`
	ZoomLabel          string        `json:"zoom_label"`
	Start              time.Time     `json:"start"`
	End                time.Time     `json:"end"`
	Cursor             time.Time     `json:"cursor"`
	CursorX            float64       `json:"cursor_x"`
	State              string        `json:"state"`
	Speed              float64       `json:"speed"`
	Width              float64       `json:"width"`
	Height             float64       `json:"height"`
	CanZoomIn          bool          `json:"can_zoom_in"`
	CanZoomOut         bool          `json:"can_zoom_out"`
	CanPanLeft         bool          `json:"can_pan_left"`
	CanPanRight        bool          `json:"can_pan_right"`
	SelectedID         int64         `json:"selected_id,omitempty"`
	PlaceholderCameras bool          `json:"placeholder_cameras"`
	Cameras            []Camera      `json:"cameras"`
	Blocks             []Block       `json:"blocks"`
	Markers            []Marker      `json:"markers"`
	Legend             []LegendEntry `json:"legend"`
	QuickJumps         []Incident    `json:"quick_jumps"`
	VisibleCount       int           `json:"visible_count"`
}

// Snapshot 从当前状态重新计算所有派生值
func (t *Timeline) Snapshot() View {
	v := t.viewport
	visible := t.Visible()
	return View{
		Date:               v.Date(),
		ZoomIndex:          v.ZoomIndex(),
		ZoomLabel:          v.ZoomLabel(),
		Start:              v.Start(),
		End:                v.End(),
		Cursor:             t.cursor,
		CursorX:            t.Axis().TimeToX(t.cursor),
		State:              t.state.String(),
		Speed:              t.speed,
		Width:              t.width,
		Height:             Height(t.cameras),
		CanZoomIn:          v.CanZoomIn(),
		CanZoomOut:         v.CanZoomOut(),
		CanPanLeft:         v.CanPanLeft(),
		CanPanRight:        v.CanPanRight(),
		SelectedID:         t.selectedID(),
		PlaceholderCameras: t.placeholder,
		Cameras:            t.cameras,
		Blocks:             t.Blocks(),
		Markers:            t.Markers(),
		Legend:             Legend(visible),
		QuickJumps:         QuickJumps(visible),
		VisibleCount:       len(visible),
	}
}
