package conf

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// DefaultConfig 默认配置
func DefaultConfig() Bootstrap {
	return Bootstrap{
		Server: Server{
			HTTP: ServerHTTP{
				Port:    15123,
				Timeout: Duration(60 * time.Second),
				PProf:   ServerPPROF{AccessIps: []string{"::1", "127.0.0.1"}},
			},
			Timeline: ServerTimeline{
				Width:              1200,
				Location:           "Local",
				SessionIdleTimeout: Duration(30 * time.Minute),
				MaxSessions:        256,
			},
			Incident: ServerIncident{
				RetainDays:      0,
				CleanupInterval: Duration(24 * time.Hour),
			},
			Playlist: ServerPlaylist{
				SegmentSeconds: 6,
				PaddingSeconds: 10,
			},
		},
		Data: Data{
			Database: Database{
				Dsn:             "configs/data.db",
				MaxIdleConns:    10,
				MaxOpenConns:    50,
				ConnMaxLifetime: Duration(6 * time.Hour),
				SlowThreshold:   Duration(200 * time.Millisecond),
				SeedOnEmpty:     true,
			},
		},
		Log: Log{
			Dir:        "logs",
			Level:      "info",
			MaxAgeDays: 7,
			MaxSizeMB:  100,
			MaxBackups: 5,
			Compress:   true,
		},
	}
}

// SetupConfig 读取配置文件，不存在时写入默认配置
func SetupConfig(path string) (Bootstrap, error) {
	bc := DefaultConfig()
	bc.ConfigPath = path
	bc.ConfigDir = filepath.Dir(path)

	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return bc, WriteConfig(&bc, path)
	}
	if err != nil {
		return bc, fmt.Errorf("read config: %w", err)
	}
	if err := toml.Unmarshal(b, &bc); err != nil {
		return bc, fmt.Errorf("decode config %s: %w", path, err)
	}
	return bc, nil
}

// WriteConfig 持久化配置
func WriteConfig(bc *Bootstrap, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := toml.Marshal(bc)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return os.WriteFile(path, b, 0o644)
}
