package incidentcache

import (
	"context"
	"sort"

	"github.com/gowvp/vigil/internal/core/incident"
	"github.com/ixugo/goddd/pkg/orm"
	"gorm.io/gorm"
)

var _ incident.CameraStorer = &Camera{}

type Camera Cache

func (c *Camera) cache() *Cache {
	return (*Cache)(c)
}

// Add implements incident.CameraStorer.
func (c *Camera) Add(ctx context.Context, cam *incident.Camera) error {
	if err := c.Storer.Camera().Add(ctx, cam); err != nil {
		return err
	}
	c.cache().written(cam)
	return nil
}

// Del implements incident.CameraStorer.
func (c *Camera) Del(ctx context.Context, cam *incident.Camera, opts ...orm.QueryOption) error {
	if err := c.Storer.Camera().Del(ctx, cam, opts...); err != nil {
		return err
	}
	// 条件删除时 cam.ID 可能为空，直接整表失效
	c.cache().Invalidate()
	return nil
}

// Edit implements incident.CameraStorer.
func (c *Camera) Edit(ctx context.Context, cam *incident.Camera, changeFn func(*incident.Camera), opts ...orm.QueryOption) error {
	if err := c.Storer.Camera().Edit(ctx, cam, changeFn, opts...); err != nil {
		return err
	}
	c.cache().written(cam)
	return nil
}

// Find implements incident.CameraStorer.
func (c *Camera) Find(ctx context.Context, cams *[]*incident.Camera, pager orm.Pager, opts ...orm.QueryOption) (int64, error) {
	return c.Storer.Camera().Find(ctx, cams, pager, opts...)
}

// Get implements incident.CameraStorer.
func (c *Camera) Get(ctx context.Context, cam *incident.Camera, opts ...orm.QueryOption) error {
	return c.Storer.Camera().Get(ctx, cam, opts...)
}

// List implements incident.CameraStorer.
func (c *Camera) List(ctx context.Context) ([]*incident.Camera, error) {
	if c.warm.Load() {
		out := make([]*incident.Camera, 0, 8)
		c.cameras.Range(func(_ int64, cam *incident.Camera) bool {
			v := *cam
			out = append(out, &v)
			return true
		})
		sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
		return out, nil
	}

	c.mu.Lock()
	gen := c.gen
	c.mu.Unlock()

	out, err := c.Storer.Camera().List(ctx)
	if err != nil {
		return nil, err
	}
	c.cache().fill(gen, out)
	return out, nil
}

// Session implements incident.CameraStorer.
func (c *Camera) Session(ctx context.Context, changeFns ...func(*gorm.DB) error) error {
	defer c.cache().Invalidate()
	return c.Storer.Camera().Session(ctx, changeFns...)
}
