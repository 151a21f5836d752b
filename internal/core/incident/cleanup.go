package incident

import (
	"context"
	"log/slog"
	"time"

	"github.com/ixugo/goddd/pkg/orm"
	"github.com/ixugo/goddd/pkg/web"
	"gorm.io/gorm"
)

// StartCleanupWorker 启动定时清理协程，删除超过保留天数的已处理事件
// 启动时先执行一次，之后按 CleanupInterval 执行，ctx 取消后退出
func (c Core) StartCleanupWorker(ctx context.Context) {
	if c.conf == nil || c.conf.RetainDays <= 0 {
		slog.Info("incident cleanup disabled")
		return
	}
	interval := c.conf.CleanupInterval.Duration()
	if interval <= 0 {
		interval = 24 * time.Hour
	}

	slog.Info("incident cleanup worker started", "retain_days", c.conf.RetainDays, "interval", interval)

	c.CleanupResolved(ctx, c.conf.RetainDays)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.CleanupResolved(ctx, c.conf.RetainDays)
		}
	}
}

// CleanupResolved 分批删除结束时间早于 now-days 的已处理事件，返回删除数量
// 未处理的事件无论多旧都保留
func (c Core) CleanupResolved(ctx context.Context, days int) int {
	cutoff := time.Now().AddDate(0, 0, -days)
	slog.Info("starting incident cleanup", "cutoff_time", cutoff.Format(time.DateTime), "retain_days", days)

	const batchSize = 100
	total := 0
	for {
		if ctx.Err() != nil {
			break
		}
		var items []*Incident
		pager := web.PagerFilter{Page: 1, Size: batchSize}
		_, err := c.store.Incident().Find(ctx, &items, &pager,
			orm.Where("resolved = ? AND ts_end < ?", true, orm.Time{Time: cutoff}),
		)
		if err != nil {
			slog.Error("failed to query expired incidents", "err", err)
			break
		}
		if len(items) == 0 {
			break
		}

		ids := make([]int64, 0, len(items))
		for _, v := range items {
			ids = append(ids, v.ID)
		}
		// 批量删除数据库记录，使用 WHERE IN 一次性删除
		if err := c.store.Incident().Session(ctx, func(tx *gorm.DB) error {
			return tx.Where("id IN ?", ids).Delete(&Incident{}).Error
		}); err != nil {
			slog.Warn("failed to batch delete incidents", "count", len(ids), "err", err)
			break
		}
		total += len(ids)
	}

	slog.Info("incident cleanup completed", "incidents_deleted", total)
	return total
}
