package timeline

import (
	"sort"
	"time"
)

// Severity 严重程度，小写字符串，未知取值走分类配色
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Rank low < medium < high < critical，未知为 0
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	}
	return 0
}

// IsHighPriority critical 与 high 需要额外的高优先级标记
func (s Severity) IsHighPriority() bool {
	return s == SeverityCritical || s == SeverityHigh
}

// Camera 摄像头
type Camera struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Location string `json:"location"`
	Status   string `json:"status,omitempty"`
}

// Incident 时间轴只读的事件数据
type Incident struct {
	ID           int64     `json:"id"`
	Camera       Camera    `json:"camera"`
	Category     string    `json:"type"` // 展示名，如 Gun Threat
	Start        time.Time `json:"ts_start"`
	End          time.Time `json:"ts_end"`
	Severity     Severity  `json:"severity"`
	Resolved     bool      `json:"resolved"`
	Description  string    `json:"description,omitempty"`
	ThumbnailURL string    `json:"thumbnail_url"`
}

// PlaceholderCameras 没有任何真实摄像头时用于撑起布局，不落库
var PlaceholderCameras = []Camera{
	{ID: 1, Name: "Shop Floor A", Location: "Main Production Area"},
	{ID: 2, Name: "Vault Camera", Location: "Security Vault - Level B1"},
	{ID: 3, Name: "Main Entrance", Location: "Building Entrance - Ground Floor"},
	{ID: 4, Name: "Parking Lot", Location: "Employee Parking Area"},
	{ID: 5, Name: "Server Room", Location: "IT Infrastructure - Level 2"},
}

// CamerasOf 事件中出现过的摄像头，按 id 升序去重
// 没有真实摄像头时返回占位列表，两者不会混合
func CamerasOf(incidents []Incident) (cameras []Camera, placeholder bool) {
	seen := make(map[int64]struct{}, 8)
	for _, inc := range incidents {
		if _, ok := seen[inc.Camera.ID]; ok {
			continue
		}
		seen[inc.Camera.ID] = struct{}{}
		cameras = append(cameras, inc.Camera)
	}
	if len(cameras) == 0 {
		out := make([]Camera, len(PlaceholderCameras))
		copy(out, PlaceholderCameras)
		return out, true
	}
	sort.Slice(cameras, func(i, j int) bool { return cameras[i].ID < cameras[j].ID })
	return cameras, false
}
