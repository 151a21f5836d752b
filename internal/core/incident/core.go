package incident

import (
	"github.com/gowvp/vigil/internal/conf"
)

// Storer data persistence
type Storer interface {
	Incident() IncidentStorer
	Camera() CameraStorer
}

// Core business domain
type Core struct {
	store Storer
	conf  *conf.ServerIncident
}

type Option func(*Core)

// WithConfig 注入事件配置（保留天数、清理间隔）
func WithConfig(conf *conf.ServerIncident) Option {
	return func(c *Core) {
		c.conf = conf
	}
}

// NewCore create business domain
func NewCore(store Storer, opts ...Option) Core {
	c := Core{store: store}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// unlimitedPager 内部使用的分页器，避免传入 nil 导致空指针
type unlimitedPager struct {
	limit int
}

func (p *unlimitedPager) Offset() int { return 0 }
func (p *unlimitedPager) Limit() int  { return p.limit }

// maxRows 单次列表查询的上限
const maxRows = 10000
