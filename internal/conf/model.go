package conf

import (
	"fmt"
	"time"
)

// Bootstrap 配置文件根结构
type Bootstrap struct {
	BuildVersion string `toml:"-"`
	ConfigDir    string `toml:"-"`
	ConfigPath   string `toml:"-"`
	Debug        bool   `toml:"-"`

	Server Server `comment:"服务配置"`
	Data   Data   `comment:"数据存储"`
	Log    Log    `comment:"日志"`
}

type Server struct {
	Debug    bool           `comment:"调试模式，输出更详细的日志"`
	HTTP     ServerHTTP     `comment:"HTTP 服务"`
	Timeline ServerTimeline `comment:"时间轴会话"`
	Incident ServerIncident `comment:"事件数据"`
	Playlist ServerPlaylist `comment:"事件片段 HLS 播放列表"`
}

type ServerHTTP struct {
	Port    int         `comment:"监听端口"`
	Timeout Duration    `comment:"请求超时"`
	PProf   ServerPPROF `comment:"性能分析"`
}

type ServerPPROF struct {
	Enabled   bool     `comment:"是否启用 pprof"`
	AccessIps []string `comment:"允许访问的 IP"`
}

type ServerTimeline struct {
	Width              float64  `comment:"时间轴像素宽度"`
	Location           string   `comment:"日期边界所在时区，Local/UTC/IANA 名称"`
	SessionIdleTimeout Duration `comment:"会话空闲多久后回收"`
	MaxSessions        int      `comment:"同时存在的最大会话数"`
}

// LoadLocation 解析时区，空值为本地时区
func (s ServerTimeline) LoadLocation() (*time.Location, error) {
	switch s.Location {
	case "", "Local":
		return time.Local, nil
	default:
		return time.LoadLocation(s.Location)
	}
}

type ServerIncident struct {
	RetainDays      int      `comment:"已处理事件保留天数，0 表示不清理"`
	CleanupInterval Duration `comment:"清理间隔"`
}

type ServerPlaylist struct {
	BaseURL        string `comment:"录像片段地址前缀，为空则使用请求地址"`
	SegmentSeconds int    `comment:"每个片段时长（秒）"`
	PaddingSeconds int    `comment:"事件前后额外包含的时长（秒）"`
}

type Data struct {
	Database Database `comment:"数据库，支持 sqlite/postgres/mysql"`
}

type Database struct {
	Dsn             string   `comment:"sqlite 文件路径，或 postgres:// mysql:// 开头的连接串"`
	MaxIdleConns    int32    `comment:"最大空闲连接"`
	MaxOpenConns    int32    `comment:"最大连接"`
	ConnMaxLifetime Duration `comment:"连接最大存活时间"`
	SlowThreshold   Duration `comment:"慢查询阈值"`
	SeedOnEmpty     bool     `comment:"空库启动时写入演示数据"`
}

type Log struct {
	Dir        string `comment:"日志目录"`
	Level      string `comment:"debug/info/warn/error"`
	MaxAgeDays int    `comment:"日志保留天数"`
	MaxSizeMB  int    `comment:"单个日志文件大小（MB）"`
	MaxBackups int    `comment:"保留的历史文件数"`
	Compress   bool   `comment:"历史文件是否 gzip 压缩"`
}

// Duration 以 Go 时长字符串读写，如 "30s" "5m"
type Duration time.Duration

func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return fmt.Errorf("duration %q: %w", string(b), err)
	}
	*d = Duration(v)
	return nil
}
