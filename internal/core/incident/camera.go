package incident

import (
	"context"
	"log/slog"
	"sort"

	"github.com/ixugo/goddd/pkg/orm"
	"github.com/ixugo/goddd/pkg/reason"
	"github.com/jinzhu/copier"
	"gorm.io/gorm"
)

// CameraStorer Instantiation interface
type CameraStorer interface {
	Find(context.Context, *[]*Camera, orm.Pager, ...orm.QueryOption) (int64, error)
	Get(context.Context, *Camera, ...orm.QueryOption) error
	Add(context.Context, *Camera) error
	Edit(context.Context, *Camera, func(*Camera), ...orm.QueryOption) error
	Del(context.Context, *Camera, ...orm.QueryOption) error
	// List 全部摄像头，按 id 升序，数据量小可整表缓存
	List(context.Context) ([]*Camera, error)

	Session(context.Context, ...func(*gorm.DB) error) error
}

// cameraCount 用于接收 GROUP BY 查询结果
type cameraCount struct {
	CameraID int64 `gorm:"column:camera_id"`
	Count    int64 `gorm:"column:cnt"`
}

// FindCameras 摄像头列表附带事件数，按名称排序
func (c Core) FindCameras(ctx context.Context) ([]CameraWithCount, error) {
	cams, err := c.store.Camera().List(ctx)
	if err != nil {
		return nil, reason.ErrDB.Withf(`List err[%s]`, err.Error())
	}

	var counts []cameraCount
	if err := c.store.Incident().Session(ctx, func(db *gorm.DB) error {
		return db.Model(&Incident{}).
			Select("camera_id, COUNT(*) as cnt").
			Group("camera_id").
			Find(&counts).Error
	}); err != nil {
		return nil, reason.ErrDB.Withf(`count incidents err[%s]`, err.Error())
	}
	byCamera := make(map[int64]int64, len(counts))
	for _, v := range counts {
		byCamera[v.CameraID] = v.Count
	}

	out := make([]CameraWithCount, 0, len(cams))
	for _, cam := range cams {
		v := cam.View()
		out = append(out, CameraWithCount{
			ID:            v.ID,
			Name:          v.Name,
			Location:      v.Location,
			Status:        v.Status,
			IncidentCount: byCamera[cam.ID],
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// GetCamera Query a single object
func (c Core) GetCamera(ctx context.Context, id int64) (*Camera, error) {
	var out Camera
	if err := c.store.Camera().Get(ctx, &out, orm.Where("id=?", id)); err != nil {
		if orm.IsErrRecordNotFound(err) {
			return nil, reason.ErrNotFound.Withf(`Camera not found id[%v]`, id)
		}
		return nil, reason.ErrDB.Withf(`Get id[%v] err[%s]`, id, err.Error())
	}
	return &out, nil
}

// AddCamera Insert into database
func (c Core) AddCamera(ctx context.Context, in *AddCameraInput) (*Camera, error) {
	var out Camera
	if err := copier.Copy(&out, in); err != nil {
		slog.ErrorContext(ctx, "Copy", "err", err)
	}
	if out.Status == "" {
		out.Status = CameraOnline
	}
	out.CreatedAt = orm.Now()
	out.UpdatedAt = orm.Now()
	if err := c.store.Camera().Add(ctx, &out); err != nil {
		return nil, reason.ErrDB.Withf(`Add err[%s]`, err.Error())
	}
	return &out, nil
}

// UpdateCameraStatus 状态只接受 online/offline/maintenance
func (c Core) UpdateCameraStatus(ctx context.Context, id int64, in *EditCameraStatusInput) (*Camera, error) {
	status, ok := ParseCameraStatus(in.Status)
	if !ok {
		return nil, reason.ErrBadRequest.Withf("Invalid status[%s]", in.Status)
	}
	if _, err := c.GetCamera(ctx, id); err != nil {
		return nil, err
	}
	var out Camera
	if err := c.store.Camera().Edit(ctx, &out, func(b *Camera) {
		b.Status = status
		b.UpdatedAt = orm.Now()
	}, orm.Where("id=?", id)); err != nil {
		return nil, reason.ErrDB.Withf(`Edit id[%v] err[%s]`, id, err.Error())
	}
	slog.InfoContext(ctx, "camera status changed", "id", id, "status", status)
	return &out, nil
}
