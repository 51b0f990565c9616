package reference

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestClientNames(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/now/table/cmdb_model" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("sysparm_fields") != "name" {
			t.Errorf("unexpected fields %q", r.URL.Query().Get("sysparm_fields"))
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != "admin" || pass != "secret" {
			t.Errorf("missing basic auth")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"result":[{"name":"PowerEdge R740"},{"name":" "},{"name":"ProLiant DL380"}]}`))
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL+"/", "admin", "secret", time.Second)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	names, err := c.Names(context.Background(), "cmdb_model")
	if err != nil {
		t.Fatalf("Names: %v", err)
	}
	if diff := cmp.Diff([]string{"PowerEdge R740", "ProLiant DL380"}, names); diff != "" {
		t.Fatalf("names (-want +got):\n%s", diff)
	}
}

func TestClientNames_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "denied", http.StatusUnauthorized)
	}))
	defer srv.Close()

	c, _ := NewClient(srv.URL, "", "", time.Second)
	if _, err := c.Names(context.Background(), "cmdb_model"); err == nil {
		t.Fatalf("expected an error for 401")
	}
}

func TestClientNames_BodyIsBounded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"result":[` + strings.Repeat(`{"name":"x"},`, 50) + `{"name":"y"}]}`))
	}))
	defer srv.Close()

	c, _ := NewClient(srv.URL, "", "", time.Second)
	c.maxBody = 64
	if _, err := c.Names(context.Background(), "cmdb_model"); err == nil || !strings.Contains(err.Error(), "exceeds 64 bytes") {
		t.Fatalf("expected an oversized response error, got %v", err)
	}
}

func TestClientNames_TruncatedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "100")
		w.Write([]byte(`{"result":[`))
	}))
	defer srv.Close()

	c, _ := NewClient(srv.URL, "", "", time.Second)
	if _, err := c.Names(context.Background(), "cmdb_model"); err == nil || !strings.Contains(err.Error(), "unable to read") {
		t.Fatalf("expected a read error, got %v", err)
	}
}

func TestNewClient_RequiresBaseURL(t *testing.T) {
	if _, err := NewClient("  ", "", "", 0); err == nil {
		t.Fatalf("expected an error for an empty base url")
	}
}

func TestKnownSet(t *testing.T) {
	known := NewKnownSet([]string{"Dell", "dell", "HP", "", "Lenovo "})
	if len(known) != 3 || known["dell"] != "Dell" || known["lenovo"] != "Lenovo" {
		t.Fatalf("unexpected set %v", known)
	}
	if diff := cmp.Diff([]string{"dell", "hp", "lenovo"}, known.Keys()); diff != "" {
		t.Fatalf("keys (-want +got):\n%s", diff)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vendors.txt")
	if err := os.WriteFile(path, []byte("# vendors\nDell\n\nHP\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	src, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	names, _ := src.Names(context.Background(), "any")
	if diff := cmp.Diff([]string{"Dell", "HP"}, names); diff != "" {
		t.Fatalf("names (-want +got):\n%s", diff)
	}
}
