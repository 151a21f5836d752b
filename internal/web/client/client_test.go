package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gowvp/vigil/internal/core/timeline"
)

func TestFetchIncidents(t *testing.T) {
	start := time.Date(2024, 1, 21, 2, 15, 0, 0, time.UTC)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/incidents/all" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode([]timeline.Incident{{
			ID:       1,
			Camera:   timeline.Camera{ID: 2, Name: "Vault"},
			Category: "Gun Threat",
			Start:    start,
			End:      start.Add(5 * time.Minute),
			Severity: timeline.SeverityCritical,
		}})
	}))
	defer srv.Close()

	items, err := New(srv.URL).FetchIncidents(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 || items[0].Camera.Name != "Vault" || !items[0].Start.Equal(start) {
		t.Fatalf("got %+v", items)
	}
}

func TestSetResolved(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch || r.URL.Path != "/api/incidents/7/resolve" {
			http.NotFound(w, r)
			return
		}
		var in struct {
			Resolved *bool `json:"resolved"`
		}
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Resolved == nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(timeline.Incident{ID: 7, Resolved: *in.Resolved})
	}))
	defer srv.Close()

	out, err := New(srv.URL).SetResolved(context.Background(), 7, true)
	if err != nil {
		t.Fatal(err)
	}
	if out.ID != 7 || !out.Resolved {
		t.Fatalf("got %+v", out)
	}
}

func TestStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := New(srv.URL).FetchCameras(context.Background())
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusInternalServerError || se.Body != "boom" {
		t.Fatalf("got %v", err)
	}
}
