package incidentdb

import (
	"context"

	"github.com/gowvp/vigil/internal/core/incident"
	"github.com/ixugo/goddd/pkg/orm"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var _ incident.CameraStorer = Camera{}

// Camera Related business namespaces
type Camera DB

// NewCamera instance object
func NewCamera(db *gorm.DB) Camera {
	return Camera{db: db}
}

func (d Camera) Find(ctx context.Context, bs *[]*incident.Camera, page orm.Pager, opts ...orm.QueryOption) (int64, error) {
	db := d.db.WithContext(ctx).Model(&incident.Camera{})
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
	return total, db.Find(bs).Error
}

func (d Camera) Get(ctx context.Context, b *incident.Camera, opts ...orm.QueryOption) error {
	db := d.db.WithContext(ctx)
	for _, fn := range opts {
		db = fn(db)
	}
	return db.First(b).Error
}

func (d Camera) Add(ctx context.Context, b *incident.Camera) error {
	return d.db.WithContext(ctx).Create(b).Error
}

func (d Camera) Edit(ctx context.Context, b *incident.Camera, changeFn func(*incident.Camera), opts ...orm.QueryOption) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		db := tx
		for _, fn := range opts {
			db = fn(db)
		}
		if err := db.First(b).Error; err != nil {
			return err
		}
		changeFn(b)
		return tx.Save(b).Error
	})
}

func (d Camera) Del(ctx context.Context, b *incident.Camera, opts ...orm.QueryOption) error {
	db := d.db.WithContext(ctx).Clauses(clause.Returning{})
	for _, fn := range opts {
		db = fn(db)
	}
	return db.Delete(b).Error
}

// List 全部摄像头，按 id 升序
func (d Camera) List(ctx context.Context) ([]*incident.Camera, error) {
	out := make([]*incident.Camera, 0, 8)
	err := d.db.WithContext(ctx).Order("id ASC").Find(&out).Error
	return out, err
}

func (d Camera) Session(ctx context.Context, changeFns ...func(*gorm.DB) error) error {
	return session(d.db.WithContext(ctx), changeFns...)
}
