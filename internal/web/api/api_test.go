package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/gowvp/vigil/internal/conf"
	"github.com/gowvp/vigil/internal/core/incident"
	"github.com/gowvp/vigil/internal/core/incident/store/incidentdb"
	"github.com/gowvp/vigil/internal/core/timeline"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestRouter(t *testing.T) (*gin.Engine, *Usecase) {
	t.Helper()
	gin.SetMode(gin.TestMode)

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
	incidentdb.NewDB(db).AutoMigrate(true)

	bc := conf.DefaultConfig()
	bc.Server.Timeline.Location = "UTC"
	bc.Server.Playlist.BaseURL = "http://nvr.local/clips"

	store, err := NewIncidentStore(db, &bc)
	if err != nil {
		t.Fatal(err)
	}
	core, cleanup := NewIncidentCore(store, &bc)
	t.Cleanup(cleanup)
	sessions, cleanup2, err := NewSessionManager(&bc)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(cleanup2)

	uc := &Usecase{
		Conf:        &bc,
		DB:          db,
		IncidentAPI: NewIncidentAPI(core, &bc),
		TimelineAPI: NewTimelineAPI(sessions, core),
	}
	r := gin.New()
	g := r.Group(apiPrefix)
	g.GET("/health", uc.getHealth)
	RegisterIncident(g, uc.IncidentAPI)
	RegisterTimeline(g, uc.TimelineAPI)
	return r, uc
}

func doJSON(t *testing.T, r http.Handler, method, path string, in, out any) int {
	t.Helper()
	var body *bytes.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			t.Fatal(err)
		}
		body = bytes.NewReader(b)
	} else {
		body = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, body)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if out != nil && w.Code < 300 {
		if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
			t.Fatalf("decode %s %s: %v body[%s]", method, path, err, w.Body.String())
		}
	}
	return w.Code
}

func TestSeededIncidents(t *testing.T) {
	r, _ := newTestRouter(t)

	var all []timeline.Incident
	if code := doJSON(t, r, http.MethodGet, "/api/incidents/all", nil, &all); code != http.StatusOK {
		t.Fatalf("code %d", code)
	}
	if len(all) != 24 {
		t.Fatalf("expect 24 seeded incidents, got %d", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i].Start.After(all[i-1].Start) {
			t.Fatalf("not newest first at %d", i)
		}
	}
	if all[0].Camera.Name == "" {
		t.Fatal("camera not joined")
	}

	var open []timeline.Incident
	doJSON(t, r, http.MethodGet, "/api/incidents?resolved=false", nil, &open)
	for _, v := range open {
		if v.Resolved {
			t.Fatalf("resolved incident %d in unresolved filter", v.ID)
		}
	}
	if len(open) == 0 || len(open) >= len(all) {
		t.Fatalf("unexpected filter size %d of %d", len(open), len(all))
	}
}

func TestResolveEndpoint(t *testing.T) {
	r, _ := newTestRouter(t)

	var all []timeline.Incident
	doJSON(t, r, http.MethodGet, "/api/incidents/all", nil, &all)
	target := all[0]

	// 空请求体切换状态
	var toggled timeline.Incident
	if code := doJSON(t, r, http.MethodPatch, "/api/incidents/"+itoa(target.ID)+"/resolve", nil, &toggled); code != http.StatusOK {
		t.Fatalf("code %d", code)
	}
	if toggled.Resolved == target.Resolved {
		t.Fatal("expect toggled")
	}

	// 显式值可重复提交
	want := true
	for range 2 {
		var out timeline.Incident
		doJSON(t, r, http.MethodPatch, "/api/incidents/"+itoa(target.ID)+"/resolve",
			incident.ResolveIncidentInput{Resolved: &want}, &out)
		if !out.Resolved {
			t.Fatal("expect resolved")
		}
	}

	if code := doJSON(t, r, http.MethodPatch, "/api/incidents/999999/resolve", nil, nil); code < 400 {
		t.Fatalf("missing incident code %d", code)
	}
	if code := doJSON(t, r, http.MethodPatch, "/api/incidents/abc/resolve", nil, nil); code < 400 {
		t.Fatalf("bad id code %d", code)
	}
}

func TestCamerasEndpoint(t *testing.T) {
	r, _ := newTestRouter(t)

	var cams []incident.CameraWithCount
	if code := doJSON(t, r, http.MethodGet, "/api/cameras", nil, &cams); code != http.StatusOK {
		t.Fatalf("code %d", code)
	}
	if len(cams) != 5 {
		t.Fatalf("expect 5 cameras, got %d", len(cams))
	}
	var total int64
	for _, c := range cams {
		total += c.IncidentCount
	}
	if total != 24 {
		t.Fatalf("incident count sum %d", total)
	}

	var cam timeline.Camera
	code := doJSON(t, r, http.MethodPatch, "/api/cameras/"+itoa(cams[0].ID)+"/status",
		incident.EditCameraStatusInput{Status: "offline"}, &cam)
	if code != http.StatusOK || cam.Status != "offline" {
		t.Fatalf("code %d status %q", code, cam.Status)
	}
	if code := doJSON(t, r, http.MethodPatch, "/api/cameras/"+itoa(cams[0].ID)+"/status",
		incident.EditCameraStatusInput{Status: "melting"}, nil); code < 400 {
		t.Fatalf("invalid status code %d", code)
	}
}

func TestPlaylistEndpoint(t *testing.T) {
	r, _ := newTestRouter(t)

	var all []timeline.Incident
	doJSON(t, r, http.MethodGet, "/api/incidents/all", nil, &all)

	req := httptest.NewRequest(http.MethodGet, "/api/incidents/"+itoa(all[0].ID)+"/playlist.m3u8", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("code %d body %s", w.Code, w.Body.String())
	}
	body := w.Body.String()
	if !strings.HasPrefix(body, "#EXTM3U") || !strings.Contains(body, "#EXT-X-ENDLIST") {
		t.Fatalf("not a closed playlist: %s", body)
	}
	if !strings.Contains(body, "http://nvr.local/clips/"+itoa(all[0].Camera.ID)+"/") {
		t.Fatalf("segment uri missing base: %s", body)
	}
}

func TestBuildPlaylistCoversPadding(t *testing.T) {
	start := time.Date(2024, 1, 21, 2, 15, 0, 0, time.UTC)
	inc := &incident.Incident{
		ID:       1,
		CameraID: 3,
	}
	inc.TsStart.Time = start
	inc.TsEnd.Time = start.Add(time.Minute)

	body, err := buildPlaylist(inc, &conf.ServerPlaylist{SegmentSeconds: 6, PaddingSeconds: 12}, "http://x")
	if err != nil {
		t.Fatal(err)
	}
	// 60s + 2*12s = 84s，14 个片段
	if n := strings.Count(body, "#EXTINF"); n != 14 {
		t.Fatalf("expect 14 segments, got %d\n%s", n, body)
	}
	first := "http://x/3/" + itoa(start.Add(-12*time.Second).UnixMilli()) + ".ts"
	if !strings.Contains(body, first) {
		t.Fatalf("missing first segment %s", first)
	}
}

func TestStatsAndHealthEndpoints(t *testing.T) {
	r, _ := newTestRouter(t)

	var stats incident.StatsOutput
	if code := doJSON(t, r, http.MethodGet, "/api/stats", nil, &stats); code != http.StatusOK {
		t.Fatalf("code %d", code)
	}
	if stats.TotalIncidents != 24 || stats.UnresolvedIncidents == 0 || stats.UnresolvedIncidents >= 24 {
		t.Fatalf("stats %+v", stats)
	}

	// 演示数据在 2024 年，最近 24 小时为空
	var recent []timeline.Incident
	if code := doJSON(t, r, http.MethodGet, "/api/timeline", nil, &recent); code != http.StatusOK || len(recent) != 0 {
		t.Fatalf("code %d recent %d", code, len(recent))
	}

	var health getHealthOutput
	if code := doJSON(t, r, http.MethodGet, "/api/health", nil, &health); code != http.StatusOK {
		t.Fatalf("code %d", code)
	}
	if health.Status != "healthy" || !health.Database.Connected {
		t.Fatalf("health %+v", health)
	}
}

func TestTimelineSessionFlow(t *testing.T) {
	r, uc := newTestRouter(t)

	var created sessionOutput
	code := doJSON(t, r, http.MethodPost, "/api/timeline/sessions", createSessionInput{Date: "2024-01-21", Width: 1200}, &created)
	if code != http.StatusOK || created.ID == "" {
		t.Fatalf("code %d id %q", code, created.ID)
	}
	if created.View.VisibleCount != 24 || len(created.View.Cameras) != 5 || created.View.PlaceholderCameras {
		t.Fatalf("view %+v", created.View)
	}
	if uc.TimelineAPI.sessions.Len() != 1 {
		t.Fatal("session not tracked")
	}

	path := "/api/timeline/sessions/" + created.ID
	var out sessionOutput
	doJSON(t, r, http.MethodPost, path+"/actions", actionInput{Action: ActionZoomIn}, &out)
	if out.View.ZoomLabel != "12h" {
		t.Fatalf("zoom %s", out.View.ZoomLabel)
	}

	var all []timeline.Incident
	doJSON(t, r, http.MethodGet, "/api/incidents/all", nil, &all)
	var gun timeline.Incident
	for _, v := range all {
		if v.Category == "Gun Threat" {
			gun = v
		}
	}
	if gun.ID == 0 {
		t.Fatal("gun threat not seeded")
	}
	doJSON(t, r, http.MethodPost, path+"/actions", actionInput{Action: ActionClickIncident, IncidentID: gun.ID}, &out)
	if out.View.SelectedID != gun.ID || out.View.ZoomLabel != "12h" {
		t.Fatalf("focus selected %d zoom %s", out.View.SelectedID, out.View.ZoomLabel)
	}
	if !out.View.Cursor.Equal(gun.Start) {
		t.Fatalf("cursor %s", out.View.Cursor)
	}
	if out.View.Start.After(gun.Start) || !out.View.End.After(gun.Start) {
		t.Fatalf("incident outside viewport %s-%s", out.View.Start, out.View.End)
	}

	if code := doJSON(t, r, http.MethodPost, path+"/actions", actionInput{Action: "explode"}, nil); code < 400 {
		t.Fatalf("unknown action code %d", code)
	}
	if code := doJSON(t, r, http.MethodPost, path+"/actions", actionInput{Action: ActionSelectIncident, IncidentID: 999999}, nil); code < 400 {
		t.Fatalf("missing incident code %d", code)
	}

	doJSON(t, r, http.MethodDelete, path, nil, nil)
	if code := doJSON(t, r, http.MethodGet, path, nil, nil); code < 400 {
		t.Fatalf("deleted session code %d", code)
	}
	if uc.TimelineAPI.sessions.Len() != 0 {
		t.Fatal("session still tracked")
	}
}

func TestWebsocketOrigin(t *testing.T) {
	cases := []struct {
		origin string
		allow  bool
	}{
		{"", true},
		{"http://nvr.local:15123", true},
		{"HTTP://NVR.LOCAL:15123", true},
		{"http://evil.example", false},
		{"http://nvr.local:8080", false},
		{"://bad", false},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "http://nvr.local:15123/api/timeline/sessions/x/ws", nil)
		if tc.origin != "" {
			req.Header.Set("Origin", tc.origin)
		}
		if got := wsUpgrader.CheckOrigin(req); got != tc.allow {
			t.Errorf("origin %q: got %v, want %v", tc.origin, got, tc.allow)
		}
	}
}

func itoa(v int64) string {
	b, _ := json.Marshal(v)
	return string(b)
}
