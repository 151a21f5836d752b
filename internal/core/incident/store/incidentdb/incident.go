package incidentdb

import (
	"context"

	"github.com/gowvp/vigil/internal/core/incident"
	"github.com/ixugo/goddd/pkg/orm"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var _ incident.IncidentStorer = Incident{}

// Incident Related business namespaces
type Incident DB

// NewIncident instance object
func NewIncident(db *gorm.DB) Incident {
	return Incident{db: db}
}

// Find 查询结果附带摄像头
func (d Incident) Find(ctx context.Context, bs *[]*incident.Incident, page orm.Pager, opts ...orm.QueryOption) (int64, error) {
	db := d.db.WithContext(ctx).Model(&incident.Incident{})
	for _, fn := range opts {
		db = fn(db)
	}
	var total int64
	if err := db.Session(&gorm.Session{}).Count(&total).Error; err != nil || total <= 0 {
		return total, err
	}
	if page != nil {
		db = db.Offset(page.Offset()).Limit(page.Limit())
	}
	return total, db.Preload("Camera").Find(bs).Error
}

// Get 查询结果附带摄像头
func (d Incident) Get(ctx context.Context, b *incident.Incident, opts ...orm.QueryOption) error {
	db := d.db.WithContext(ctx)
	for _, fn := range opts {
		db = fn(db)
	}
	return db.Preload("Camera").First(b).Error
}

// Add 不级联写入摄像头
func (d Incident) Add(ctx context.Context, b *incident.Incident) error {
	return d.db.WithContext(ctx).Omit(clause.Associations).Create(b).Error
}

// Edit 事务内读取、修改、保存
func (d Incident) Edit(ctx context.Context, b *incident.Incident, changeFn func(*incident.Incident), opts ...orm.QueryOption) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		db := tx
		for _, fn := range opts {
			db = fn(db)
		}
		if err := db.First(b).Error; err != nil {
			return err
		}
		changeFn(b)
		return tx.Omit(clause.Associations).Save(b).Error
	})
}

func (d Incident) Del(ctx context.Context, b *incident.Incident, opts ...orm.QueryOption) error {
	db := d.db.WithContext(ctx).Clauses(clause.Returning{})
	for _, fn := range opts {
		db = fn(db)
	}
	return db.Delete(b).Error
}

func (d Incident) Count(ctx context.Context, opts ...orm.QueryOption) (int64, error) {
	db := d.db.WithContext(ctx).Model(&incident.Incident{})
	for _, fn := range opts {
		db = fn(db)
	}
	var total int64
	err := db.Count(&total).Error
	return total, err
}

func (d Incident) Session(ctx context.Context, changeFns ...func(*gorm.DB) error) error {
	return session(d.db.WithContext(ctx), changeFns...)
}
