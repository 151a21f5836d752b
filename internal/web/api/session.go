package api

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gowvp/vigil/internal/conf"
	"github.com/gowvp/vigil/internal/core/timeline"
	"github.com/ixugo/goddd/pkg/conc"
	"github.com/ixugo/goddd/pkg/reason"
)

// 推送给 websocket 订阅者的事件类型
const (
	EventTimeChange     = "time_change"
	EventIncidentSelect = "incident_select"
	EventDateChange     = "date_change"
	EventSnapshot       = "snapshot"
)

// Event 会话通知
type Event struct {
	Type     string             `json:"type"`
	Time     string             `json:"time,omitempty"`
	Date     string             `json:"date,omitempty"`
	Incident *timeline.Incident `json:"incident,omitempty"`
	View     *timeline.View     `json:"view,omitempty"`
}

const subscriberBuffer = 32

// Session 服务端托管的时间轴，所有对 tl 的访问都在 mu 内
type Session struct {
	ID        string
	CreatedAt time.Time

	mu       sync.Mutex
	tl       *timeline.Timeline
	lastSeen time.Time
	stopPlay context.CancelFunc
	subs     map[chan Event]struct{}
	closed   bool

	removed atomic.Bool
}

func newSession(date timeline.Date, opts ...timeline.Option) *Session {
	s := &Session{
		ID:        uuid.NewString(),
		CreatedAt: time.Now(),
		lastSeen:  time.Now(),
		subs:      make(map[chan Event]struct{}),
	}
	opts = append(opts,
		timeline.WithOnTimeChange(func(v string) {
			s.publish(Event{Type: EventTimeChange, Time: v})
		}),
		timeline.WithOnIncidentSelect(func(inc timeline.Incident) {
			s.publish(Event{Type: EventIncidentSelect, Incident: &inc})
		}),
		timeline.WithOnDateChange(func(v string) {
			s.publish(Event{Type: EventDateChange, Date: v})
		}),
	)
	s.tl = timeline.New(date, opts...)
	return s
}

// Do 串行执行 fn，结束后同步播放协程并返回快照
func (s *Session) Do(fn func(tl *timeline.Timeline) error) (timeline.View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return timeline.View{}, reason.ErrNotFound.SetMsg("session closed")
	}
	s.lastSeen = time.Now()
	if err := fn(s.tl); err != nil {
		return timeline.View{}, err
	}
	s.syncPlayerLocked()
	return s.tl.Snapshot(), nil
}

// publish 在 mu 内调用，订阅者跟不上时丢弃
func (s *Session) publish(e Event) {
	for ch := range s.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

// Subscribe 订阅通知，首条为当前快照
func (s *Session) Subscribe() (<-chan Event, func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, nil, reason.ErrNotFound.SetMsg("session closed")
	}
	ch := make(chan Event, subscriberBuffer)
	view := s.tl.Snapshot()
	ch <- Event{Type: EventSnapshot, View: &view}
	s.subs[ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if _, ok := s.subs[ch]; ok {
				delete(s.subs, ch)
				close(ch)
			}
			s.lastSeen = time.Now()
		})
	}, nil
}

func (s *Session) syncPlayerLocked() {
	switch playing := s.tl.Playing(); {
	case playing && s.stopPlay == nil:
		ctx, cancel := context.WithCancel(context.Background())
		s.stopPlay = cancel
		go s.runPlayer(ctx)
	case !playing && s.stopPlay != nil:
		s.stopPlay()
		s.stopPlay = nil
	}
}

// runPlayer 每秒推进一次游标，到达视口终点自动退出
func (s *Session) runPlayer(ctx context.Context) {
	ticker := time.NewTicker(timeline.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		s.mu.Lock()
		if ctx.Err() != nil {
			s.mu.Unlock()
			return
		}
		s.tl.Tick()
		if !s.tl.Playing() {
			s.stopPlay()
			s.stopPlay = nil
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()
	}
}

// idle 无订阅者且超过 timeout 未访问
func (s *Session) idle(now time.Time, timeout time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs) == 0 && now.Sub(s.lastSeen) > timeout
}

// Close 停止播放，关闭订阅者，释放拖拽状态
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	if s.stopPlay != nil {
		s.stopPlay()
		s.stopPlay = nil
	}
	for ch := range s.subs {
		delete(s.subs, ch)
		close(ch)
	}
	s.tl.Close()
}

// SessionManager 管理时间轴会话
type SessionManager struct {
	sessions conc.Map[string, *Session]
	count    atomic.Int64

	loc         *time.Location
	width       float64
	idleTimeout time.Duration
	maxSessions int
}

// NewSessionManager 启动空闲会话回收，cleanup 时关闭全部会话
func NewSessionManager(bc *conf.Bootstrap) (*SessionManager, func(), error) {
	cfg := bc.Server.Timeline
	loc, err := cfg.LoadLocation()
	if err != nil {
		return nil, nil, fmt.Errorf("timeline location: %w", err)
	}
	m := &SessionManager{
		loc:         loc,
		width:       cfg.Width,
		idleTimeout: cfg.SessionIdleTimeout.Duration(),
		maxSessions: cfg.MaxSessions,
	}
	if m.idleTimeout <= 0 {
		m.idleTimeout = 30 * time.Minute
	}

	ctx, cancel := context.WithCancel(context.Background())
	interval := min(m.idleTimeout/2, time.Minute)
	go conc.Timer(ctx, interval, interval, func() {
		m.Reap(time.Now())
	})

	return m, func() {
		cancel()
		m.CloseAll()
	}, nil
}

// Location 日期边界所在时区
func (m *SessionManager) Location() *time.Location {
	return m.loc
}

// Create 新建会话，width 为 0 时使用配置值
func (m *SessionManager) Create(date timeline.Date, width float64) (*Session, error) {
	// 先占名额，超出上限再退回
	if n := m.count.Add(1); m.maxSessions > 0 && n > int64(m.maxSessions) {
		m.count.Add(-1)
		return nil, reason.ErrBadRequest.SetMsg("too many timeline sessions")
	}
	if width <= 0 {
		width = m.width
	}
	s := newSession(date, timeline.WithLocation(m.loc), timeline.WithWidth(width))
	m.sessions.Store(s.ID, s)
	slog.Debug("timeline session created", "id", s.ID, "date", date.String())
	return s, nil
}

func (m *SessionManager) Get(id string) (*Session, error) {
	s, ok := m.sessions.Load(id)
	if !ok {
		return nil, reason.ErrNotFound.Withf("session not found id[%s]", id)
	}
	return s, nil
}

func (m *SessionManager) Delete(id string) error {
	s, ok := m.sessions.Load(id)
	if !ok {
		return reason.ErrNotFound.Withf("session not found id[%s]", id)
	}
	m.remove(s)
	return nil
}

func (m *SessionManager) remove(s *Session) {
	if !s.removed.CompareAndSwap(false, true) {
		return
	}
	m.sessions.Delete(s.ID)
	m.count.Add(-1)
	s.Close()
}

// Reap 回收空闲会话，返回回收数量
func (m *SessionManager) Reap(now time.Time) int {
	expired := make([]*Session, 0, 4)
	m.sessions.Range(func(_ string, s *Session) bool {
		if s.idle(now, m.idleTimeout) {
			expired = append(expired, s)
		}
		return true
	})
	for _, s := range expired {
		m.remove(s)
	}
	if len(expired) > 0 {
		slog.Info("timeline sessions reaped", "count", len(expired))
	}
	return len(expired)
}

// Len 当前会话数
func (m *SessionManager) Len() int {
	return int(m.count.Load())
}

func (m *SessionManager) CloseAll() {
	all := make([]*Session, 0, m.Len())
	m.sessions.Range(func(_ string, s *Session) bool {
		all = append(all, s)
		return true
	})
	for _, s := range all {
		m.remove(s)
	}
}
