package download

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/europython/programapi/internal/raw"
)

func newServer(t *testing.T, withSchedule bool) *httptest.Server {
	t.Helper()
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Token secret" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		switch {
		case r.URL.Path == "/ep2025/submissions/" && r.URL.Query().Get("page") == "":
			next := srv.URL + "/ep2025/submissions/?page=2"
			fmt.Fprintf(w, `{"next": %q, "results": [{"code": "AAA111"}, {"code": "BBB222"}]}`, next)
		case r.URL.Path == "/ep2025/submissions/":
			fmt.Fprint(w, `{"next": null, "results": [{"code": "CCC333"}]}`)
		case r.URL.Path == "/ep2025/speakers/":
			fmt.Fprint(w, `{"next": null, "results": [{"code": "SPK001"}]}`)
		case r.URL.Path == "/ep2025/schedules/latest/" && withSchedule:
			fmt.Fprint(w, `{"slots": [], "breaks": []}`)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestListFollowsNext(t *testing.T) {
	srv := newServer(t, false)
	c := NewClient(srv.URL, "ep2025", "secret", 2, 5*time.Second)

	records, err := c.List(context.Background(), "submissions")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}
	var last struct{ Code string }
	if err := json.Unmarshal(records[2], &last); err != nil {
		t.Fatal(err)
	}
	if last.Code != "CCC333" {
		t.Errorf("last record = %q, want CCC333", last.Code)
	}
}

func TestListUnauthorized(t *testing.T) {
	srv := newServer(t, false)
	c := NewClient(srv.URL, "ep2025", "wrong", 0, 5*time.Second)

	_, err := c.List(context.Background(), "speakers")
	if err == nil || !strings.Contains(err.Error(), "401") {
		t.Fatalf("List err = %v, want 401", err)
	}
}

func TestDownloadWritesFiles(t *testing.T) {
	srv := newServer(t, true)
	c := NewClient(srv.URL, "ep2025", "secret", 0, 5*time.Second)
	dir := filepath.Join(t.TempDir(), "raw", "ep2025")

	results, err := Download(context.Background(), c, dir)
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	if results[0].Resource != raw.ResourceSubmissions || results[0].Records != 3 {
		t.Errorf("results[0] = %+v", results[0])
	}

	snap, err := raw.LoadSnapshot(dir)
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	if len(snap.Submissions) != 3 || len(snap.Speakers) != 1 {
		t.Errorf("snapshot has %d submissions, %d speakers", len(snap.Submissions), len(snap.Speakers))
	}
}

func TestDownloadSkipsMissingSchedule(t *testing.T) {
	srv := newServer(t, false)
	c := NewClient(srv.URL, "ep2025", "secret", 0, 5*time.Second)
	dir := t.TempDir()

	results, err := Download(context.Background(), c, dir)
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if !results[2].Skipped {
		t.Errorf("schedule result = %+v, want skipped", results[2])
	}
	if _, err := os.Stat(raw.Path(dir, raw.ResourceSchedule)); !os.IsNotExist(err) {
		t.Error("schedule file written for a missing schedule")
	}
}

func TestDownloadFailureKeepsExistingFiles(t *testing.T) {
	srv := newServer(t, true)
	c := NewClient(srv.URL, "other", "secret", 0, 5*time.Second)
	dir := t.TempDir()

	path := raw.Path(dir, raw.ResourceSpeakers)
	if err := os.WriteFile(path, []byte(`[{"code":"OLD"}]`), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := Download(context.Background(), c, dir); err == nil {
		t.Fatal("expected error for unknown event")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "OLD") {
		t.Errorf("existing file replaced: %s", data)
	}
}
