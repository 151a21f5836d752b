package incident_test

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/gowvp/vigil/internal/conf"
	"github.com/gowvp/vigil/internal/core/incident"
	"github.com/gowvp/vigil/internal/core/incident/store/incidentcache"
	"github.com/gowvp/vigil/internal/core/incident/store/incidentdb"
	"github.com/ixugo/goddd/pkg/orm"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newCore(t *testing.T) incident.Core {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Discard})
	if err != nil {
		t.Fatal(err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatal(err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	store := incidentcache.NewCache(incidentdb.NewDB(db).AutoMigrate(true))
	return incident.NewCore(store, incident.WithConfig(&conf.ServerIncident{RetainDays: 30}))
}

func mustCamera(t *testing.T, c incident.Core, name string) *incident.Camera {
	t.Helper()
	cam, err := c.AddCamera(context.Background(), &incident.AddCameraInput{Name: name, Location: name + " area"})
	if err != nil {
		t.Fatal(err)
	}
	return cam
}

func mustIncident(t *testing.T, c incident.Core, camID int64, typ incident.Type, start time.Time, resolved bool) *incident.Incident {
	t.Helper()
	inc, err := c.AddIncident(context.Background(), &incident.AddIncidentInput{
		CameraID: camID,
		Type:     typ,
		TsStart:  orm.Time{Time: start},
		TsEnd:    orm.Time{Time: start.Add(5 * time.Minute)},
		Resolved: resolved,
		Severity: incident.SeverityHigh,
	})
	if err != nil {
		t.Fatal(err)
	}
	return inc
}

func TestTypeDisplayName(t *testing.T) {
	cases := map[incident.Type]string{
		incident.TypeGunThreat:          "Gun Threat",
		incident.TypeUnauthorisedAccess: "Unauthorised Access",
		incident.TypeEquipmentTampering: "Equipment Tampering",
	}
	for typ, want := range cases {
		if got := typ.DisplayName(); got != want {
			t.Errorf("%s: got %q want %q", typ, got, want)
		}
	}
	if incident.Type("FIRE").Valid() {
		t.Error("FIRE should be invalid")
	}
}

func TestParseCameraStatus(t *testing.T) {
	if s, ok := incident.ParseCameraStatus(" maintenance "); !ok || s != incident.CameraMaintenance {
		t.Errorf("got %s %v", s, ok)
	}
	if _, ok := incident.ParseCameraStatus("broken"); ok {
		t.Error("broken should be rejected")
	}
}

func TestAddIncidentValidation(t *testing.T) {
	c := newCore(t)
	ctx := context.Background()
	cam := mustCamera(t, c, "Vault")
	now := time.Now()

	_, err := c.AddIncident(ctx, &incident.AddIncidentInput{
		CameraID: cam.ID, Type: "FIRE",
		TsStart: orm.Time{Time: now}, TsEnd: orm.Time{Time: now},
	})
	if err == nil {
		t.Errorf("invalid type: %v", err)
	}
	_, err = c.AddIncident(ctx, &incident.AddIncidentInput{
		CameraID: cam.ID, Type: incident.TypeGunThreat,
		TsStart: orm.Time{Time: now}, TsEnd: orm.Time{Time: now.Add(-time.Minute)},
	})
	if err == nil {
		t.Errorf("end before start: %v", err)
	}

	inc, err := c.AddIncident(ctx, &incident.AddIncidentInput{
		CameraID: cam.ID, Type: incident.TypeGunThreat,
		TsStart: orm.Time{Time: now}, TsEnd: orm.Time{Time: now.Add(time.Minute)},
	})
	if err != nil {
		t.Fatal(err)
	}
	if inc.Severity != incident.SeverityMedium {
		t.Errorf("default severity = %s", inc.Severity)
	}
}

func TestFindIncidents(t *testing.T) {
	c := newCore(t)
	ctx := context.Background()
	cam := mustCamera(t, c, "Vault")
	base := time.Date(2024, 1, 21, 0, 0, 0, 0, time.UTC)
	mustIncident(t, c, cam.ID, incident.TypeGunThreat, base.Add(2*time.Hour), false)
	mustIncident(t, c, cam.ID, incident.TypeFaceRecognised, base.Add(8*time.Hour), true)
	mustIncident(t, c, cam.ID, incident.TypeMotionDetection, base.Add(14*time.Hour), false)

	all, err := c.FindAllIncidents(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 || all[0].Category != "Motion Detection" {
		t.Fatalf("expect newest first, got %+v", all)
	}
	if all[0].Camera.Name != "Vault" {
		t.Errorf("camera not joined: %+v", all[0].Camera)
	}
	if all[0].Severity != "high" {
		t.Errorf("severity = %s", all[0].Severity)
	}

	f := false
	open, err := c.FindIncidents(ctx, &incident.FindIncidentInput{Resolved: &f})
	if err != nil {
		t.Fatal(err)
	}
	if len(open) != 2 {
		t.Errorf("unresolved = %d", len(open))
	}

	ranged, err := c.FindIncidentsByTimeRange(ctx, base.Add(time.Hour), base.Add(9*time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if len(ranged) != 2 || ranged[0].Category != "Gun Threat" {
		t.Errorf("range = %+v", ranged)
	}

	if _, err := c.FindIncidentsByTimeRange(ctx, base.Add(time.Hour), base); err == nil {
		t.Errorf("inverted range: %v", err)
	}
}

func TestResolveIncident(t *testing.T) {
	c := newCore(t)
	ctx := context.Background()
	cam := mustCamera(t, c, "Vault")
	inc := mustIncident(t, c, cam.ID, incident.TypeGunThreat, time.Now(), false)

	got, err := c.ResolveIncident(ctx, inc.ID, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Resolved || got.Camera.Name != "Vault" {
		t.Fatalf("toggle: %+v", got)
	}
	got, _ = c.ResolveIncident(ctx, inc.ID, nil)
	if got.Resolved {
		t.Fatal("second toggle should unresolve")
	}

	// 显式设置重复请求结果一致
	tr := true
	for range 2 {
		got, err = c.ResolveIncident(ctx, inc.ID, &incident.ResolveIncidentInput{Resolved: &tr})
		if err != nil {
			t.Fatal(err)
		}
		if !got.Resolved {
			t.Fatal("expect resolved")
		}
	}

	if _, err := c.ResolveIncident(ctx, 9999, nil); err == nil {
		t.Errorf("missing id: %v", err)
	}
}

func TestCamerasAndStatus(t *testing.T) {
	c := newCore(t)
	ctx := context.Background()
	vault := mustCamera(t, c, "Vault")
	dock := mustCamera(t, c, "Loading Dock")
	mustIncident(t, c, vault.ID, incident.TypeGunThreat, time.Now(), false)
	mustIncident(t, c, vault.ID, incident.TypeGunThreat, time.Now(), false)

	cams, err := c.FindCameras(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(cams) != 2 || cams[0].Name != "Loading Dock" || cams[0].IncidentCount != 0 || cams[1].IncidentCount != 2 {
		t.Fatalf("cameras = %+v", cams)
	}
	if cams[0].Status != "online" {
		t.Errorf("status = %s", cams[0].Status)
	}

	if _, err := c.UpdateCameraStatus(ctx, dock.ID, &incident.EditCameraStatusInput{Status: "broken"}); err == nil {
		t.Errorf("invalid status: %v", err)
	}
	if _, err := c.UpdateCameraStatus(ctx, 9999, &incident.EditCameraStatusInput{Status: "offline"}); err == nil {
		t.Errorf("missing camera: %v", err)
	}
	out, err := c.UpdateCameraStatus(ctx, dock.ID, &incident.EditCameraStatusInput{Status: "offline"})
	if err != nil {
		t.Fatal(err)
	}
	if out.Status != incident.CameraOffline {
		t.Errorf("status = %s", out.Status)
	}
	cams, _ = c.FindCameras(ctx)
	if cams[0].Status != "offline" {
		t.Errorf("cached status = %s", cams[0].Status)
	}
}

func TestStatsAndHealth(t *testing.T) {
	c := newCore(t)
	ctx := context.Background()
	cam := mustCamera(t, c, "Vault")
	now := time.Now()
	mustIncident(t, c, cam.ID, incident.TypeGunThreat, now, false)
	mustIncident(t, c, cam.ID, incident.TypeGunThreat, now, true)
	mustIncident(t, c, cam.ID, incident.TypeMotionDetection, now, false)

	stats, err := c.GetIncidentStats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalIncidents != 3 || stats.UnresolvedIncidents != 2 || stats.CriticalIncidents != 0 {
		t.Fatalf("stats = %+v", stats)
	}
	if len(stats.IncidentsByType) != 2 || stats.IncidentsByType[0].Type != "Gun Threat" || stats.IncidentsByType[0].Count != 2 {
		t.Errorf("by type = %+v", stats.IncidentsByType)
	}
	if len(stats.IncidentsBySeverity) != 1 || stats.IncidentsBySeverity[0].Severity != "high" {
		t.Errorf("by severity = %+v", stats.IncidentsBySeverity)
	}

	if err := c.HealthCheck(ctx); err != nil {
		t.Fatal(err)
	}
	info := c.ConnectionInfo(ctx)
	if !info.Connected || info.Dialect != "sqlite" || info.Version == "" {
		t.Errorf("info = %+v", info)
	}
}

func TestCleanupResolved(t *testing.T) {
	c := newCore(t)
	ctx := context.Background()
	cam := mustCamera(t, c, "Vault")
	old := time.Now().AddDate(0, 0, -60)
	mustIncident(t, c, cam.ID, incident.TypeGunThreat, old, true)
	mustIncident(t, c, cam.ID, incident.TypeGunThreat, old, false)
	mustIncident(t, c, cam.ID, incident.TypeGunThreat, time.Now(), true)

	if n := c.CleanupResolved(ctx, 30); n != 1 {
		t.Fatalf("deleted = %d", n)
	}
	n, err := c.CountIncidents(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("remaining = %d", n)
	}
}
