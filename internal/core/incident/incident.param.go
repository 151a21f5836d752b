package incident

import (
	"strings"
	"time"

	"github.com/gowvp/vigil/internal/core/timeline"
	"github.com/ixugo/goddd/pkg/orm"
)

type FindIncidentInput struct {
	Resolved *bool `form:"resolved"` // 为空时返回全部
}

type ResolveIncidentInput struct {
	Resolved *bool `json:"resolved"` // 为空时切换状态，否则设置为指定值
}

type AddIncidentInput struct {
	CameraID     int64    `json:"camera_id"`
	Type         Type     `json:"type"`
	TsStart      orm.Time `json:"ts_start"`
	TsEnd        orm.Time `json:"ts_end"`
	ThumbnailURL string   `json:"thumbnail_url"`
	Resolved     bool     `json:"resolved"`
	Severity     Severity `json:"severity"`
	Description  *string  `json:"description"`
}

type AddCameraInput struct {
	Name     string       `json:"name"`
	Location string       `json:"location"`
	Status   CameraStatus `json:"status"`
}

type EditCameraStatusInput struct {
	Status string `json:"status"` // online/offline/maintenance
}

// CameraWithCount 摄像头及其事件数
type CameraWithCount struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	Location      string `json:"location"`
	Status        string `json:"status"`
	IncidentCount int64  `json:"incident_count"`
}

// TypeCount 按类型统计
type TypeCount struct {
	Type  string `json:"type"`
	Count int64  `json:"count"`
}

// SeverityCount 按严重程度统计
type SeverityCount struct {
	Severity string `json:"severity"`
	Count    int64  `json:"count"`
}

// StatsOutput 事件统计
type StatsOutput struct {
	TotalIncidents      int64           `json:"total_incidents"`
	UnresolvedIncidents int64           `json:"unresolved_incidents"`
	CriticalIncidents   int64           `json:"critical_incidents"`
	IncidentsByType     []TypeCount     `json:"incidents_by_type"`
	IncidentsBySeverity []SeverityCount `json:"incidents_by_severity"`
}

// ConnectionInfo 数据库连接信息
type ConnectionInfo struct {
	Connected bool      `json:"connected"`
	Dialect   string    `json:"dialect"`
	Version   string    `json:"version,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// View 转为展示结构：类型转为 "Gun Threat"，严重程度与摄像头状态小写
func (i *Incident) View() timeline.Incident {
	out := timeline.Incident{
		ID:           i.ID,
		Camera:       timeline.Camera{ID: i.CameraID},
		Category:     i.Type.DisplayName(),
		Start:        i.TsStart.Time,
		End:          i.TsEnd.Time,
		Severity:     timeline.Severity(i.Severity.Display()),
		Resolved:     i.Resolved,
		ThumbnailURL: i.ThumbnailURL,
	}
	if i.Description != nil {
		out.Description = *i.Description
	}
	if i.Camera != nil {
		out.Camera = i.Camera.View()
	}
	return out
}

// View 摄像头展示结构
func (c *Camera) View() timeline.Camera {
	return timeline.Camera{
		ID:       c.ID,
		Name:     c.Name,
		Location: c.Location,
		Status:   strings.ToLower(string(c.Status)),
	}
}

// Views 批量转换
func Views(items []*Incident) []timeline.Incident {
	out := make([]timeline.Incident, 0, len(items))
	for _, v := range items {
		out = append(out, v.View())
	}
	return out
}
