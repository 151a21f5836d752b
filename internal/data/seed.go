package data

import (
	_ "embed"
	"fmt"
	"log/slog"
	"time"

	"github.com/gowvp/vigil/internal/core/incident"
	"github.com/ixugo/goddd/pkg/orm"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

//go:embed seed.yaml
var seedYAML []byte

type seedFile struct {
	Date       string                   `yaml:"date"`
	Thumbnails map[incident.Type]string `yaml:"thumbnails"`
	Cameras    []seedCamera             `yaml:"cameras"`
	Incidents  []seedIncident           `yaml:"incidents"`
}

type seedCamera struct {
	Name     string                `yaml:"name"`
	Location string                `yaml:"location"`
	Status   incident.CameraStatus `yaml:"status"`
}

type seedIncident struct {
	Camera      string            `yaml:"camera"`
	Type        incident.Type     `yaml:"type"`
	Start       string            `yaml:"start"`
	Minutes     int               `yaml:"minutes"`
	Severity    incident.Severity `yaml:"severity"`
	Resolved    bool              `yaml:"resolved"`
	Description string            `yaml:"description"`
}

// SeedResult 写入数量
type SeedResult struct {
	Cameras   int
	Incidents int
	Skipped   bool
}

// Seed 写入演示摄像头与事件，时间按 loc 解释
// force 为 false 且已有事件时跳过；为 true 时先清空两张表
func Seed(db *gorm.DB, loc *time.Location, force bool) (SeedResult, error) {
	var sf seedFile
	if err := yaml.Unmarshal(seedYAML, &sf); err != nil {
		return SeedResult{}, fmt.Errorf("parse seed: %w", err)
	}
	if loc == nil {
		loc = time.Local
	}
	day, err := time.ParseInLocation(time.DateOnly, sf.Date, loc)
	if err != nil {
		return SeedResult{}, fmt.Errorf("parse seed date: %w", err)
	}

	var result SeedResult
	err = db.Transaction(func(tx *gorm.DB) error {
		if force {
			if err := tx.Where("1 = 1").Delete(&incident.Incident{}).Error; err != nil {
				return err
			}
			if err := tx.Where("1 = 1").Delete(&incident.Camera{}).Error; err != nil {
				return err
			}
		} else {
			var n int64
			if err := tx.Model(&incident.Incident{}).Count(&n).Error; err != nil {
				return err
			}
			if n > 0 {
				result.Skipped = true
				return nil
			}
		}

		ids := make(map[string]int64, len(sf.Cameras))
		for _, c := range sf.Cameras {
			cam := incident.Camera{
				Name:      c.Name,
				Location:  c.Location,
				Status:    c.Status,
				CreatedAt: orm.Now(),
				UpdatedAt: orm.Now(),
			}
			// 按名称去重，已存在的摄像头直接复用
			if err := tx.Where(incident.Camera{Name: c.Name}).FirstOrCreate(&cam).Error; err != nil {
				return err
			}
			ids[c.Name] = cam.ID
			result.Cameras++
		}

		items := make([]*incident.Incident, 0, len(sf.Incidents))
		for i, v := range sf.Incidents {
			cid, ok := ids[v.Camera]
			if !ok {
				return fmt.Errorf("incident[%d] unknown camera %q", i, v.Camera)
			}
			clock, err := time.Parse("15:04", v.Start)
			if err != nil {
				return fmt.Errorf("incident[%d] start: %w", i, err)
			}
			start := time.Date(day.Year(), day.Month(), day.Day(), clock.Hour(), clock.Minute(), 0, 0, loc)
			desc := v.Description
			items = append(items, &incident.Incident{
				CameraID:     cid,
				Type:         v.Type,
				TsStart:      orm.Time{Time: start},
				TsEnd:        orm.Time{Time: start.Add(time.Duration(v.Minutes) * time.Minute)},
				ThumbnailURL: thumbnailURL(sf.Thumbnails[v.Type]),
				Resolved:     v.Resolved,
				Severity:     v.Severity,
				Description:  &desc,
				CreatedAt:    orm.Now(),
				UpdatedAt:    orm.Now(),
			})
		}
		if err := tx.Omit("Camera").CreateInBatches(items, 5).Error; err != nil {
			return err
		}
		result.Incidents = len(items)
		return nil
	})
	if err != nil {
		return SeedResult{}, err
	}
	if result.Skipped {
		slog.Info("seed skipped, incidents already exist")
	} else {
		slog.Info("database seeded", "cameras", result.Cameras, "incidents", result.Incidents)
	}
	return result, nil
}

func thumbnailURL(id string) string {
	if id == "" {
		return ""
	}
	return "https://images.unsplash.com/photo-" + id + "?w=160&h=120&fit=crop"
}
