package api

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/gowvp/vigil/internal/core/incident"
	"github.com/gowvp/vigil/internal/core/timeline"
	"github.com/ixugo/goddd/pkg/reason"
	"github.com/ixugo/goddd/pkg/web"
)

// 会话支持的操作
const (
	ActionZoomIn         = "zoom_in"
	ActionZoomOut        = "zoom_out"
	ActionPanLeft        = "pan_left"
	ActionPanRight       = "pan_right"
	ActionSetDate        = "set_date"
	ActionPickDate       = "pick_date"
	ActionClick          = "click"
	ActionDragStart      = "drag_start"
	ActionDragMove       = "drag_move"
	ActionDragEnd        = "drag_end"
	ActionTogglePlay     = "toggle_play"
	ActionSetSpeed       = "set_speed"
	ActionJumpStart      = "jump_start"
	ActionJumpEnd        = "jump_end"
	ActionSelectIncident = "select_incident"
	ActionClickIncident  = "click_incident"
	ActionClearSelection = "clear_selection"
	ActionFocusSelected  = "focus_selected"
	ActionRefresh        = "refresh"
)

const wsWriteTimeout = 5 * time.Second

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     sameOrigin,
}

// sameOrigin 浏览器跨站连接需拒绝，非浏览器客户端不带 Origin 直接放行
func sameOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(u.Host), strings.TrimSpace(r.Host))
}

// TimelineAPI 时间轴会话
type TimelineAPI struct {
	sessions *SessionManager
	core     incident.Core
}

func NewTimelineAPI(sessions *SessionManager, core incident.Core) TimelineAPI {
	return TimelineAPI{sessions: sessions, core: core}
}

func RegisterTimeline(g gin.IRouter, api TimelineAPI, handler ...gin.HandlerFunc) {
	group := g.Group("/timeline/sessions", handler...)
	group.POST("", web.WrapH(api.createSession))
	group.GET("/:id", web.WrapH(api.getSession))
	group.DELETE("/:id", web.WrapH(api.deleteSession))
	group.POST("/:id/actions", web.WrapH(api.doAction))
	group.GET("/:id/ws", api.watchSession)
}

type createSessionInput struct {
	Date  string  `json:"date"`  // YYYY-MM-DD，为空使用今天
	Width float64 `json:"width"` // 为空使用配置值
}

type sessionOutput struct {
	ID   string        `json:"id"`
	View timeline.View `json:"view"`
}

type actionInput struct {
	Action     string  `json:"action"`
	Date       string  `json:"date"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	HitTest    bool    `json:"hit_test"` // click 时先检测是否命中事件块
	Speed      float64 `json:"speed"`
	IncidentID int64   `json:"incident_id"`
}

func (a TimelineAPI) createSession(c *gin.Context, in *createSessionInput) (sessionOutput, error) {
	date := timeline.DateOf(time.Now(), a.sessions.Location())
	if in.Date != "" {
		d, err := timeline.ParseDate(in.Date)
		if err != nil {
			return sessionOutput{}, reason.ErrBadRequest.Withf("invalid date[%s]", in.Date)
		}
		date = d
	}
	incidents, err := a.core.FindAllIncidents(c.Request.Context())
	if err != nil {
		return sessionOutput{}, err
	}

	s, err := a.sessions.Create(date, in.Width)
	if err != nil {
		return sessionOutput{}, err
	}
	view, err := s.Do(func(tl *timeline.Timeline) error {
		tl.SetIncidents(incidents)
		return nil
	})
	return sessionOutput{ID: s.ID, View: view}, err
}

func (a TimelineAPI) getSession(c *gin.Context, _ *struct{}) (sessionOutput, error) {
	s, err := a.sessions.Get(c.Param("id"))
	if err != nil {
		return sessionOutput{}, err
	}
	view, err := s.Do(func(*timeline.Timeline) error { return nil })
	return sessionOutput{ID: s.ID, View: view}, err
}

func (a TimelineAPI) deleteSession(c *gin.Context, _ *struct{}) (gin.H, error) {
	id := c.Param("id")
	if err := a.sessions.Delete(id); err != nil {
		return nil, err
	}
	return gin.H{"id": id}, nil
}

func (a TimelineAPI) doAction(c *gin.Context, in *actionInput) (sessionOutput, error) {
	s, err := a.sessions.Get(c.Param("id"))
	if err != nil {
		return sessionOutput{}, err
	}

	// refresh 在锁外查询数据库
	var incidents []timeline.Incident
	if in.Action == ActionRefresh {
		if incidents, err = a.core.FindAllIncidents(c.Request.Context()); err != nil {
			return sessionOutput{}, err
		}
	}

	view, err := s.Do(func(tl *timeline.Timeline) error {
		return applyAction(tl, in, incidents)
	})
	return sessionOutput{ID: s.ID, View: view}, err
}

// applyAction 把请求映射到时间轴操作，越界等情况由时间轴自身吸收
func applyAction(tl *timeline.Timeline, in *actionInput, incidents []timeline.Incident) error {
	switch in.Action {
	case ActionZoomIn:
		tl.ZoomIn()
	case ActionZoomOut:
		tl.ZoomOut()
	case ActionPanLeft:
		tl.PanLeft()
	case ActionPanRight:
		tl.PanRight()
	case ActionSetDate, ActionPickDate:
		d, err := timeline.ParseDate(in.Date)
		if err != nil {
			return reason.ErrBadRequest.Withf("invalid date[%s]", in.Date)
		}
		if in.Action == ActionSetDate {
			tl.SetDate(d)
		} else {
			tl.PickDate(d)
		}
	case ActionClick:
		if in.HitTest {
			if b, ok := tl.BlockAt(in.X, in.Y); ok {
				tl.ClickIncident(b.Incident.ID)
				return nil
			}
		}
		tl.Click(in.X)
	case ActionDragStart:
		tl.BeginDrag()
	case ActionDragMove:
		tl.DragTo(in.X)
	case ActionDragEnd:
		tl.EndDrag()
	case ActionTogglePlay:
		tl.TogglePlay()
	case ActionSetSpeed:
		tl.SetSpeed(in.Speed)
	case ActionJumpStart:
		tl.JumpToStart()
	case ActionJumpEnd:
		tl.JumpToEnd()
	case ActionSelectIncident, ActionClickIncident:
		inc, ok := findIncident(tl.Incidents(), in.IncidentID)
		if !ok {
			return reason.ErrNotFound.Withf("incident not found id[%d]", in.IncidentID)
		}
		if in.Action == ActionSelectIncident {
			tl.Select(inc)
		} else {
			tl.JumpToIncident(inc)
		}
	case ActionClearSelection:
		tl.ClearSelection()
	case ActionFocusSelected:
		tl.FocusSelected()
	case ActionRefresh:
		tl.SetIncidents(incidents)
	default:
		return reason.ErrBadRequest.Withf("unknown action[%s]", in.Action)
	}
	return nil
}

func findIncident(items []timeline.Incident, id int64) (timeline.Incident, bool) {
	for _, v := range items {
		if v.ID == id {
			return v, true
		}
	}
	return timeline.Incident{}, false
}

// watchSession 推送会话通知，连接断开或会话关闭时退出
func (a TimelineAPI) watchSession(c *gin.Context) {
	s, err := a.sessions.Get(c.Param("id"))
	if err != nil {
		web.Fail(c, err)
		return
	}
	events, unsubscribe, err := s.Subscribe()
	if err != nil {
		web.Fail(c, err)
		return
	}
	defer unsubscribe()

	conn, err := wsUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.WarnContext(c.Request.Context(), "websocket upgrade", "err", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()
	// 只读控制帧，客户端断开时退出
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "session closed"),
					time.Now().Add(wsWriteTimeout))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(e); err != nil {
				return
			}
		}
	}
}
