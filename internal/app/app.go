package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gowvp/vigil/internal/conf"
	"github.com/gowvp/vigil/internal/core/incident/store/incidentdb"
	"github.com/gowvp/vigil/internal/data"
)

const shutdownTimeout = 5 * time.Second

// Run 启动 HTTP 服务，ctx 取消后优雅退出
func Run(ctx context.Context, bc *conf.Bootstrap) error {
	handler, cleanup, err := wireApp(bc)
	if err != nil {
		return fmt.Errorf("wire app: %w", err)
	}
	defer cleanup()

	timeout := bc.Server.HTTP.Timeout.Duration()
	svc := &http.Server{
		Addr:              fmt.Sprintf(":%d", bc.Server.HTTP.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       timeout,
		IdleTimeout:       2 * timeout,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "port", bc.Server.HTTP.Port, "version", bc.BuildVersion)
		if err := svc.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := svc.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown", "err", err)
	}
	return nil
}

// Seed 独立写入演示数据，force 会先清空
func Seed(bc *conf.Bootstrap, force bool) (data.SeedResult, error) {
	loc, err := bc.Server.Timeline.LoadLocation()
	if err != nil {
		return data.SeedResult{}, err
	}
	db, err := data.SetupDB(bc)
	if err != nil {
		return data.SeedResult{}, err
	}
	incidentdb.NewDB(db).AutoMigrate(true)
	return data.Seed(db, loc, force)
}
