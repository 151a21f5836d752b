package incident

import (
	"strings"

	"github.com/ixugo/goddd/pkg/orm"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Type 事件类型
type Type string

const (
	TypeGunThreat          Type = "GUN_THREAT"
	TypeUnauthorisedAccess Type = "UNAUTHORISED_ACCESS"
	TypeFaceRecognised     Type = "FACE_RECOGNISED"
	TypeSuspiciousActivity Type = "SUSPICIOUS_ACTIVITY"
	TypeMotionDetection    Type = "MOTION_DETECTION"
	TypeEquipmentTampering Type = "EQUIPMENT_TAMPERING"
)

// Types 全部事件类型
var Types = []Type{
	TypeGunThreat, TypeUnauthorisedAccess, TypeFaceRecognised,
	TypeSuspiciousActivity, TypeMotionDetection, TypeEquipmentTampering,
}

var titleCaser = cases.Title(language.English)

// DisplayName GUN_THREAT -> Gun Threat
func (t Type) DisplayName() string {
	return titleCaser.String(strings.ReplaceAll(strings.ToLower(string(t)), "_", " "))
}

func (t Type) Valid() bool {
	for _, v := range Types {
		if v == t {
			return true
		}
	}
	return false
}

// Severity 严重程度
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// Display 小写，前端与时间轴使用
func (s Severity) Display() string {
	return strings.ToLower(string(s))
}

// CameraStatus 摄像头状态
type CameraStatus string

const (
	CameraOnline      CameraStatus = "ONLINE"
	CameraOffline     CameraStatus = "OFFLINE"
	CameraMaintenance CameraStatus = "MAINTENANCE"
)

// ParseCameraStatus 接受大小写任意的 online/offline/maintenance
func ParseCameraStatus(s string) (CameraStatus, bool) {
	switch v := CameraStatus(strings.ToUpper(strings.TrimSpace(s))); v {
	case CameraOnline, CameraOffline, CameraMaintenance:
		return v, true
	}
	return "", false
}

// Camera domain model
type Camera struct {
	ID        int64        `gorm:"primaryKey" json:"id"`
	Name      string       `gorm:"column:name;notNull;default:'';comment:名称" json:"name"`
	Location  string       `gorm:"column:location;notNull;default:'';comment:安装位置" json:"location"`
	Status    CameraStatus `gorm:"column:status;notNull;default:'ONLINE';comment:状态" json:"status"`
	CreatedAt orm.Time     `gorm:"column:created_at;notNull;comment:创建时间" json:"created_at"`
	UpdatedAt orm.Time     `gorm:"column:updated_at;notNull;comment:更新时间" json:"updated_at"`
}

// TableName database table name
func (*Camera) TableName() string {
	return "cameras"
}

// Incident domain model
type Incident struct {
	ID           int64    `gorm:"primaryKey" json:"id"`
	CameraID     int64    `gorm:"column:camera_id;notNull;index;comment:摄像头" json:"camera_id"`
	Camera       *Camera  `gorm:"foreignKey:CameraID" json:"camera,omitempty"`
	Type         Type     `gorm:"column:type;notNull;comment:事件类型" json:"type"`
	TsStart      orm.Time `gorm:"column:ts_start;notNull;index;comment:开始时间" json:"ts_start"`
	TsEnd        orm.Time `gorm:"column:ts_end;notNull;comment:结束时间" json:"ts_end"`
	ThumbnailURL string   `gorm:"column:thumbnail_url;notNull;default:'';comment:缩略图" json:"thumbnail_url"`
	Resolved     bool     `gorm:"column:resolved;notNull;default:false;index;comment:是否已处理" json:"resolved"`
	Severity     Severity `gorm:"column:severity;notNull;default:'MEDIUM';comment:严重程度" json:"severity"`
	Description  *string  `gorm:"column:description;comment:备注" json:"description"`
	CreatedAt    orm.Time `gorm:"column:created_at;notNull;comment:创建时间" json:"created_at"`
	UpdatedAt    orm.Time `gorm:"column:updated_at;notNull;comment:更新时间" json:"updated_at"`
}

// TableName database table name
func (*Incident) TableName() string {
	return "incidents"
}
