package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gowvp/vigil/internal/conf"
	"github.com/gowvp/vigil/internal/core/incident"
	"github.com/gowvp/vigil/internal/core/incident/store/incidentcache"
	"github.com/gowvp/vigil/internal/core/incident/store/incidentdb"
	"github.com/gowvp/vigil/internal/core/timeline"
	"github.com/gowvp/vigil/internal/data"
	"github.com/grafov/m3u8"
	"github.com/ixugo/goddd/pkg/orm"
	"github.com/ixugo/goddd/pkg/reason"
	"github.com/ixugo/goddd/pkg/web"
	"gorm.io/gorm"
)

// IncidentAPI 为 http 提供业务方法
type IncidentAPI struct {
	core incident.Core
	conf *conf.Bootstrap
}

// NewIncidentStore 创建事件存储层，摄像头整表缓存
// SeedOnEmpty 开启时空库写入演示数据
func NewIncidentStore(db *gorm.DB, bc *conf.Bootstrap) (incident.Storer, error) {
	store := incidentdb.NewDB(db).AutoMigrate(orm.GetEnabledAutoMigrate())
	if bc.Data.Database.SeedOnEmpty {
		loc, err := bc.Server.Timeline.LoadLocation()
		if err != nil {
			return nil, err
		}
		if _, err := data.Seed(db, loc, false); err != nil {
			return nil, err
		}
	}
	return incidentcache.NewCache(store), nil
}

// NewIncidentCore 创建事件核心服务并启动清理协程
func NewIncidentCore(store incident.Storer, cfg *conf.Bootstrap) (incident.Core, func()) {
	core := incident.NewCore(store, incident.WithConfig(&cfg.Server.Incident))

	ctx, cancel := context.WithCancel(context.Background())
	go core.StartCleanupWorker(ctx)

	return core, cancel
}

func NewIncidentAPI(core incident.Core, conf *conf.Bootstrap) IncidentAPI {
	return IncidentAPI{core: core, conf: conf}
}

func RegisterIncident(g gin.IRouter, api IncidentAPI, handler ...gin.HandlerFunc) {
	{
		group := g.Group("/incidents", handler...)
		group.GET("", web.WrapH(api.findIncidents))
		group.GET("/all", web.WrapH(api.findAllIncidents))
		group.PATCH("/:id/resolve", api.resolveIncident)
		// HLS 播放列表，覆盖事件前后 PaddingSeconds
		group.GET("/:id/playlist.m3u8", api.incidentPlaylist)
	}
	{
		group := g.Group("/cameras", handler...)
		group.GET("", web.WrapH(api.findCameras))
		group.PATCH("/:id/status", api.updateCameraStatus)
	}
	{
		group := g.Group("", handler...)
		group.GET("/timeline", web.WrapH(api.getTimelineData))
		group.GET("/stats", web.WrapH(api.getStats))
		group.GET("/debug/incidents", web.WrapH(api.debugIncidents))
	}
}

func (a IncidentAPI) findIncidents(c *gin.Context, in *incident.FindIncidentInput) ([]timeline.Incident, error) {
	return a.core.FindIncidents(c.Request.Context(), in)
}

func (a IncidentAPI) findAllIncidents(c *gin.Context, _ *struct{}) ([]timeline.Incident, error) {
	return a.core.FindAllIncidents(c.Request.Context())
}

// resolveIncident 请求体可为空，为空时切换状态
func (a IncidentAPI) resolveIncident(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		web.Fail(c, err)
		return
	}
	var in incident.ResolveIncidentInput
	if err := bindOptionalJSON(c, &in); err != nil {
		web.Fail(c, err)
		return
	}
	out, err := a.core.ResolveIncident(c.Request.Context(), id, &in)
	if err != nil {
		web.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (a IncidentAPI) findCameras(c *gin.Context, _ *struct{}) ([]incident.CameraWithCount, error) {
	return a.core.FindCameras(c.Request.Context())
}

func (a IncidentAPI) updateCameraStatus(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		web.Fail(c, err)
		return
	}
	var in incident.EditCameraStatusInput
	if err := bindOptionalJSON(c, &in); err != nil {
		web.Fail(c, err)
		return
	}
	cam, err := a.core.UpdateCameraStatus(c.Request.Context(), id, &in)
	if err != nil {
		web.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, cam.View())
}

func (a IncidentAPI) getTimelineData(c *gin.Context, _ *struct{}) ([]timeline.Incident, error) {
	return a.core.GetTimelineData(c.Request.Context())
}

func (a IncidentAPI) getStats(c *gin.Context, _ *struct{}) (*incident.StatsOutput, error) {
	return a.core.GetIncidentStats(c.Request.Context())
}

type debugIncidentsOutput struct {
	Success         bool                `json:"success"`
	Count           int                 `json:"count"`
	Incidents       []timeline.Incident `json:"incidents"`
	Sample          *timeline.Incident  `json:"sample,omitempty"`
	DatabaseHealthy bool                `json:"database_healthy"`
}

// debugIncidents 排查数据问题时使用
func (a IncidentAPI) debugIncidents(c *gin.Context, _ *struct{}) (debugIncidentsOutput, error) {
	ctx := c.Request.Context()
	healthy := a.core.HealthCheck(ctx) == nil
	items, err := a.core.FindAllIncidents(ctx)
	if err != nil {
		return debugIncidentsOutput{}, err
	}
	slog.DebugContext(ctx, "debug incidents", "count", len(items), "healthy", healthy)
	out := debugIncidentsOutput{
		Success:         true,
		Count:           len(items),
		Incidents:       items,
		DatabaseHealthy: healthy,
	}
	if len(items) > 0 {
		out.Sample = &items[0]
	}
	return out, nil
}

// incidentPlaylist 生成事件片段的 VOD 播放列表
func (a IncidentAPI) incidentPlaylist(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		web.Fail(c, err)
		return
	}
	inc, err := a.core.GetIncident(c.Request.Context(), id)
	if err != nil {
		web.Fail(c, err)
		return
	}

	baseURL := strings.TrimSuffix(a.conf.Server.Playlist.BaseURL, "/")
	if baseURL == "" {
		scheme := "http"
		if c.Request.TLS != nil {
			scheme = "https"
		}
		baseURL = fmt.Sprintf("%s://%s/clips", scheme, c.Request.Host)
	}

	body, err := buildPlaylist(inc, &a.conf.Server.Playlist, baseURL)
	if err != nil {
		web.Fail(c, reason.ErrServer.SetMsg(err.Error()))
		return
	}
	c.Header("Content-Type", "application/vnd.apple.mpegurl")
	c.Header("Cache-Control", "no-cache")
	c.String(http.StatusOK, body)
}

// buildPlaylist 将 [start-pad, end+pad] 按 SegmentSeconds 切片
// 片段地址 {base}/{camera_id}/{unix_ms}.ts
func buildPlaylist(inc *incident.Incident, cfg *conf.ServerPlaylist, baseURL string) (string, error) {
	seg := time.Duration(cfg.SegmentSeconds) * time.Second
	if seg <= 0 {
		seg = 6 * time.Second
	}
	pad := time.Duration(max(cfg.PaddingSeconds, 0)) * time.Second
	from := inc.TsStart.Add(-pad)
	to := inc.TsEnd.Add(pad)

	count := max(int((to.Sub(from)+seg-1)/seg), 1)
	pl, err := m3u8.NewMediaPlaylist(0, uint(count))
	if err != nil {
		return "", err
	}
	pl.MediaType = m3u8.VOD

	for t := from; t.Before(to) || t.Equal(from); t = t.Add(seg) {
		d := min(seg, to.Sub(t))
		if d <= 0 {
			d = seg
		}
		uri := fmt.Sprintf("%s/%d/%d.ts", baseURL, inc.CameraID, t.UnixMilli())
		if err := pl.Append(uri, d.Seconds(), ""); err != nil {
			return "", err
		}
	}
	pl.Close()
	return pl.String(), nil
}

// bindOptionalJSON 空请求体视为零值
func bindOptionalJSON(c *gin.Context, out any) error {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return nil
	}
	if err := c.ShouldBindJSON(out); err != nil && !errors.Is(err, io.EOF) {
		return reason.ErrBadRequest.Withf("invalid body err[%s]", err.Error())
	}
	return nil
}

func parseID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, reason.ErrBadRequest.Withf("invalid id[%s]", c.Param("id"))
	}
	return id, nil
}
