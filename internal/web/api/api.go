package api

import (
	"expvar"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"sort"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/gowvp/vigil/internal/core/incident"
	"github.com/ixugo/goddd/pkg/system"
	"github.com/ixugo/goddd/pkg/web"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
)

var startRuntime = time.Now()

const (
	apiPrefix    = "/api"
	staticPrefix = "/web"
	staticDir    = "www"
)

func setupRouter(r *gin.Engine, uc *Usecase) {
	r.Use(
		// 格式化输出到控制台，然后记录到日志
		gin.CustomRecovery(func(c *gin.Context, err any) {
			slog.ErrorContext(c.Request.Context(), "panic", "err", err, "stack", string(debug.Stack()))
			c.AbortWithStatus(http.StatusInternalServerError)
		}),
		web.Metrics(),
		web.Logger(web.IgnorePrefix(staticPrefix),
			web.IgnoreMethod(http.MethodOptions),
			web.IgnorePrefix(apiPrefix+"/timeline/sessions"), // 拖拽与播放请求频繁
		),
	)

	r.Use(cors.New(cors.Config{
		AllowMethods: []string{"GET", "POST", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders: []string{
			"Accept", "Content-Length", "Content-Type", "Range", "Accept-Language",
			"Origin", "Authorization", "Referer", "User-Agent", "Accept-Encoding",
			"Cache-Control", "Pragma", "X-Requested-With", "X-Request-ID",
		},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
		AllowOriginFunc: func(_ string) bool {
			return true
		},
	}))

	// 前端构建产物，可选
	if dir := filepath.Join(system.Getwd(), staticDir); isDir(dir) {
		admin := r.Group(staticPrefix, gzip.Gzip(gzip.DefaultCompression))
		admin.Static("/", dir)
		r.GET("/", func(c *gin.Context) {
			c.Redirect(http.StatusPermanentRedirect, staticPrefix+"/index.html")
		})
	}
	r.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, staticPrefix) {
			c.File(filepath.Join(system.Getwd(), staticDir, "index.html"))
			return
		}
		c.JSON(http.StatusNotFound, gin.H{"msg": "来到了无人的荒漠"})
	})

	g := r.Group(apiPrefix)
	g.GET("/health", uc.getHealth)
	g.GET("/metrics", web.WrapH(uc.getMetricsAPI))

	RegisterIncident(g, uc.IncidentAPI)
	RegisterTimeline(g, uc.TimelineAPI)
}

func isDir(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.IsDir()
}

type hostInfo struct {
	MemTotal       uint64  `json:"mem_total"`
	MemUsedPercent float64 `json:"mem_used_percent"`
	CPUPercent     float64 `json:"cpu_percent"`
}

type getHealthOutput struct {
	Status    string                  `json:"status"`
	Database  incident.ConnectionInfo `json:"database"`
	Version   string                  `json:"version"`
	StartAt   time.Time               `json:"start_at"`
	Host      *hostInfo               `json:"host,omitempty"`
	Timestamp time.Time               `json:"timestamp"`
}

// getHealth 数据库不可用时返回 500，主机信息获取失败不影响结果
func (uc *Usecase) getHealth(c *gin.Context) {
	ctx := c.Request.Context()
	out := getHealthOutput{
		Status:    "healthy",
		Database:  uc.IncidentAPI.core.ConnectionInfo(ctx),
		Version:   uc.Conf.BuildVersion,
		StartAt:   startRuntime,
		Timestamp: time.Now(),
	}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		out.Host = &hostInfo{MemTotal: vm.Total, MemUsedPercent: vm.UsedPercent}
		if pct, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(pct) > 0 {
			out.Host.CPUPercent = pct[0]
		}
	}

	status := http.StatusOK
	if err := uc.IncidentAPI.core.HealthCheck(ctx); err != nil || !out.Database.Connected {
		slog.ErrorContext(ctx, "health check", "err", err, "db_err", out.Database.Error)
		out.Status = "unhealthy"
		status = http.StatusInternalServerError
	}
	c.JSON(status, out)
}

type getMetricsAPIOutput struct {
	RealTimeRequests int64  `json:"real_time_requests"` // 实时请求数
	TotalRequests    int64  `json:"total_requests"`     // 总请求数
	TotalResponses   int64  `json:"total_responses"`    // 总响应数
	RequestTop10     []KV   `json:"request_top10"`      // 请求TOP10
	StatusCodeTop10  []KV   `json:"status_code_top10"`  // 状态码TOP10
	Sessions         int    `json:"sessions"`           // 时间轴会话数
	Goroutines       int    `json:"goroutines"`         // 协程数量
	NumGC            uint32 `json:"num_gc"`             // gc 次数
	SysAlloc         uint64 `json:"sys_alloc"`          // 内存占用
	StartAt          string `json:"start_at"`           // 运行时间
}

func (uc *Usecase) getMetricsAPI(_ *gin.Context, _ *struct{}) (*getMetricsAPIOutput, error) {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)

	return &getMetricsAPIOutput{
		RealTimeRequests: expvarInt("request"),
		TotalRequests:    expvarInt("requests"),
		TotalResponses:   expvarInt("responses"),
		RequestTop10:     sortExpvarMap(expvarMap("requestURLs"), 10),
		StatusCodeTop10:  sortExpvarMap(expvarMap("statusCodes"), 10),
		Sessions:         uc.TimelineAPI.sessions.Len(),
		Goroutines:       runtime.NumGoroutine(),
		NumGC:            stats.NumGC,
		SysAlloc:         stats.Sys,
		StartAt:          startRuntime.Format(time.DateTime),
	}, nil
}

// expvarInt web.Metrics 未注册时返回 0
func expvarInt(name string) int64 {
	if v, ok := expvar.Get(name).(*expvar.Int); ok {
		return v.Value()
	}
	return 0
}

func expvarMap(name string) *expvar.Map {
	v, _ := expvar.Get(name).(*expvar.Map)
	return v
}

type KV struct {
	Key   string `json:"key"`
	Value int64  `json:"value"`
}

func sortExpvarMap(data *expvar.Map, top int) []KV {
	kvs := make([]KV, 0, 8)
	if data == nil {
		return kvs
	}
	data.Do(func(kv expvar.KeyValue) {
		if v, ok := kv.Value.(*expvar.Int); ok {
			kvs = append(kvs, KV{Key: kv.Key, Value: v.Value()})
		}
	})
	sort.Slice(kvs, func(i, j int) bool {
		return kvs[i].Value > kvs[j].Value
	})
	return kvs[:min(top, len(kvs))]
}
