package incident

import (
	"context"
	"log/slog"
	"time"

	"github.com/gowvp/vigil/internal/core/timeline"
	"github.com/ixugo/goddd/pkg/orm"
	"github.com/ixugo/goddd/pkg/reason"
	"github.com/jinzhu/copier"
	"gorm.io/gorm"
)

// IncidentStorer Instantiation interface
type IncidentStorer interface {
	Find(context.Context, *[]*Incident, orm.Pager, ...orm.QueryOption) (int64, error)
	Get(context.Context, *Incident, ...orm.QueryOption) error
	Add(context.Context, *Incident) error
	Edit(context.Context, *Incident, func(*Incident), ...orm.QueryOption) error
	Del(context.Context, *Incident, ...orm.QueryOption) error
	Count(context.Context, ...orm.QueryOption) (int64, error)

	Session(context.Context, ...func(*gorm.DB) error) error
}

func (c Core) findIncidents(ctx context.Context, opts ...orm.QueryOption) ([]timeline.Incident, error) {
	items := make([]*Incident, 0, 64)
	if _, err := c.store.Incident().Find(ctx, &items, &unlimitedPager{limit: maxRows}, opts...); err != nil {
		return nil, reason.ErrDB.Withf(`Find err[%s]`, err.Error())
	}
	return Views(items), nil
}

// FindAllIncidents 全部事件（含摄像头），最新的在前
func (c Core) FindAllIncidents(ctx context.Context) ([]timeline.Incident, error) {
	return c.findIncidents(ctx, orm.OrderBy("ts_start DESC"))
}

// FindIncidents 可按是否已处理筛选
func (c Core) FindIncidents(ctx context.Context, in *FindIncidentInput) ([]timeline.Incident, error) {
	query := orm.NewQuery(2).OrderBy("ts_start DESC")
	if in != nil && in.Resolved != nil {
		query.Where("resolved = ?", *in.Resolved)
	}
	return c.findIncidents(ctx, query.Encode()...)
}

// FindIncidentsByTimeRange 开始时间落在 [start, end] 的事件，按时间升序
func (c Core) FindIncidentsByTimeRange(ctx context.Context, start, end time.Time) ([]timeline.Incident, error) {
	if end.Before(start) {
		return nil, reason.ErrBadRequest.Withf("end[%s] before start[%s]", end, start)
	}
	query := orm.NewQuery(2).OrderBy("ts_start ASC")
	query.Where("ts_start >= ? AND ts_start <= ?", orm.Time{Time: start}, orm.Time{Time: end})
	return c.findIncidents(ctx, query.Encode()...)
}

// GetTimelineData 最近 24 小时的事件
func (c Core) GetTimelineData(ctx context.Context) ([]timeline.Incident, error) {
	now := time.Now()
	return c.FindIncidentsByTimeRange(ctx, now.Add(-24*time.Hour), now)
}

// GetIncident Query a single object
func (c Core) GetIncident(ctx context.Context, id int64) (*Incident, error) {
	var out Incident
	if err := c.store.Incident().Get(ctx, &out, orm.Where("id=?", id)); err != nil {
		if orm.IsErrRecordNotFound(err) {
			return nil, reason.ErrNotFound.Withf(`Incident not found id[%v]`, id)
		}
		return nil, reason.ErrDB.Withf(`Get id[%v] err[%s]`, id, err.Error())
	}
	return &out, nil
}

// AddIncident Insert into database
func (c Core) AddIncident(ctx context.Context, in *AddIncidentInput) (*Incident, error) {
	if !in.Type.Valid() {
		return nil, reason.ErrBadRequest.Withf("invalid type[%s]", in.Type)
	}
	if in.TsEnd.Before(in.TsStart.Time) {
		return nil, reason.ErrBadRequest.Withf("ts_end before ts_start")
	}
	var out Incident
	if err := copier.Copy(&out, in); err != nil {
		slog.ErrorContext(ctx, "Copy", "err", err)
	}
	if out.Severity == "" {
		out.Severity = SeverityMedium
	}
	out.CreatedAt = orm.Now()
	out.UpdatedAt = orm.Now()

	if err := c.store.Incident().Add(ctx, &out); err != nil {
		return nil, reason.ErrDB.Withf(`Add err[%s]`, err.Error())
	}
	return &out, nil
}

// ResolveIncident resolved 为空时切换，否则直接设置，重复请求结果一致
func (c Core) ResolveIncident(ctx context.Context, id int64, in *ResolveIncidentInput) (timeline.Incident, error) {
	if _, err := c.GetIncident(ctx, id); err != nil {
		return timeline.Incident{}, err
	}
	var out Incident
	if err := c.store.Incident().Edit(ctx, &out, func(b *Incident) {
		if in != nil && in.Resolved != nil {
			b.Resolved = *in.Resolved
		} else {
			b.Resolved = !b.Resolved
		}
		b.UpdatedAt = orm.Now()
	}, orm.Where("id=?", id)); err != nil {
		return timeline.Incident{}, reason.ErrDB.Withf(`Edit id[%v] err[%s]`, id, err.Error())
	}

	got, err := c.GetIncident(ctx, id)
	if err != nil {
		return timeline.Incident{}, err
	}
	slog.InfoContext(ctx, "incident resolution changed", "id", id, "resolved", got.Resolved)
	return got.View(), nil
}

// DelIncident Delete object
func (c Core) DelIncident(ctx context.Context, id int64) (*Incident, error) {
	var out Incident
	if err := c.store.Incident().Del(ctx, &out, orm.Where("id=?", id)); err != nil {
		return nil, reason.ErrDB.Withf(`Del id[%v] err[%s]`, id, err.Error())
	}
	return &out, nil
}

// CountIncidents 用于判断是否需要写入演示数据
func (c Core) CountIncidents(ctx context.Context) (int64, error) {
	n, err := c.store.Incident().Count(ctx)
	if err != nil {
		return 0, reason.ErrDB.Withf(`Count err[%s]`, err.Error())
	}
	return n, nil
}

// groupCount 用于接收 GROUP BY 查询结果
type groupCount struct {
	Key   string `gorm:"column:k"`
	Count int64  `gorm:"column:cnt"`
}

// GetIncidentStats 总数、未处理数、严重事件数，以及按类型和严重程度分组（数量降序）
func (c Core) GetIncidentStats(ctx context.Context) (*StatsOutput, error) {
	var out StatsOutput
	var byType, bySeverity []groupCount
	err := c.store.Incident().Session(ctx,
		func(db *gorm.DB) error {
			return db.Model(&Incident{}).Count(&out.TotalIncidents).Error
		},
		func(db *gorm.DB) error {
			return db.Model(&Incident{}).Where("resolved = ?", false).Count(&out.UnresolvedIncidents).Error
		},
		func(db *gorm.DB) error {
			return db.Model(&Incident{}).Where("severity = ?", SeverityCritical).Count(&out.CriticalIncidents).Error
		},
		func(db *gorm.DB) error {
			return db.Model(&Incident{}).Select("type AS k, COUNT(*) AS cnt").Group("type").Order("cnt DESC").Find(&byType).Error
		},
		func(db *gorm.DB) error {
			return db.Model(&Incident{}).Select("severity AS k, COUNT(*) AS cnt").Group("severity").Order("cnt DESC").Find(&bySeverity).Error
		},
	)
	if err != nil {
		return nil, reason.ErrDB.Withf(`GetIncidentStats err[%s]`, err.Error())
	}

	out.IncidentsByType = make([]TypeCount, 0, len(byType))
	for _, v := range byType {
		out.IncidentsByType = append(out.IncidentsByType, TypeCount{Type: Type(v.Key).DisplayName(), Count: v.Count})
	}
	out.IncidentsBySeverity = make([]SeverityCount, 0, len(bySeverity))
	for _, v := range bySeverity {
		out.IncidentsBySeverity = append(out.IncidentsBySeverity, SeverityCount{Severity: Severity(v.Key).Display(), Count: v.Count})
	}
	return &out, nil
}

// HealthCheck SELECT 1
func (c Core) HealthCheck(ctx context.Context) error {
	return c.store.Incident().Session(ctx, func(db *gorm.DB) error {
		return db.Exec("SELECT 1").Error
	})
}

// ConnectionInfo 数据库方言与版本
func (c Core) ConnectionInfo(ctx context.Context) ConnectionInfo {
	out := ConnectionInfo{Timestamp: time.Now()}
	err := c.store.Incident().Session(ctx, func(db *gorm.DB) error {
		out.Dialect = db.Dialector.Name()
		q := "SELECT version()"
		if out.Dialect == "sqlite" {
			q = "SELECT sqlite_version()"
		}
		return db.Raw(q).Scan(&out.Version).Error
	})
	if err != nil {
		out.Error = err.Error()
		return out
	}
	out.Connected = true
	return out
}
