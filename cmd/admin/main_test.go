package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLatestSnapshotPicksHighestTurn(t *testing.T) {
	dir := t.TempDir()
	snaps := filepath.Join(dir, "snapshots")
	if err := os.MkdirAll(snaps, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	for _, name := range []string{"9.snap.zst", "120.snap.zst", "35.snap.zst", "notes.txt", "x.snap.zst"} {
		if err := os.WriteFile(filepath.Join(snaps, name), nil, 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	got := latestSnapshot(dir)
	if filepath.Base(got) != "120.snap.zst" {
		t.Fatalf("latest=%q", got)
	}
	if p := latestSnapshot(filepath.Join(dir, "missing")); p != "" {
		t.Fatalf("expected empty, got %q", p)
	}
}

func TestFetchReportsStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/metrics" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("kitchenrush_turn 7\n"))
	}))
	defer srv.Close()

	var out bytes.Buffer
	if code := fetch(srv.URL+"/", "/metrics", &out); code != 0 {
		t.Fatalf("code=%d", code)
	}
	if !strings.Contains(out.String(), "kitchenrush_turn 7") {
		t.Fatalf("body=%q", out.String())
	}
	out.Reset()
	if code := fetch(srv.URL, "/nope", &out); code != 1 {
		t.Fatalf("code=%d", code)
	}
}
