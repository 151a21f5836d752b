// Package incidentcache 摄像头整表缓存，事件不缓存
package incidentcache

import (
	"sync"
	"sync/atomic"

	"github.com/gowvp/vigil/internal/core/incident"
	"github.com/ixugo/goddd/pkg/conc"
)

var _ incident.Storer = &Cache{}

type Cache struct {
	incident.Storer

	cameras conc.Map[int64, *incident.Camera]
	// warm 首次 List 后置为 true，之后从内存读取
	warm atomic.Bool

	// mu 保护 gen 与冷加载回填，写操作递增 gen
	mu  sync.Mutex
	gen uint64
}

func NewCache(store incident.Storer) *Cache {
	return &Cache{Storer: store}
}

// Camera implements incident.Storer.
func (c *Cache) Camera() incident.CameraStorer {
	return (*Camera)(c)
}

// Invalidate 丢弃缓存，下次 List 重新加载
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.warm.Store(false)
	c.cameras.Range(func(id int64, _ *incident.Camera) bool {
		c.cameras.Delete(id)
		return true
	})
}

// written 数据库写入成功后调用，冷态下只递增 gen
func (c *Cache) written(cam *incident.Camera) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	if c.warm.Load() {
		c.put(cam)
	}
}

// fill 加载期间有写入时放弃回填，保持冷态
func (c *Cache) fill(gen uint64, cams []*incident.Camera) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen || c.warm.Load() {
		return
	}
	for _, cam := range cams {
		c.put(cam)
	}
	c.warm.Store(true)
}

func (c *Cache) put(cam *incident.Camera) {
	v := *cam
	c.cameras.Store(cam.ID, &v)
}
