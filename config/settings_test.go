package config

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func TestLoadSettings_Defaults(t *testing.T) {
	for _, key := range []string{"PORT", "MAX_UPLOAD_MB", "AI_PROVIDER", "ISSUE_CACHE_TTL_MINUTES", "DB_HOST", "DEFAULT_PHONE_REGION"} {
		t.Setenv(key, "")
	}
	s := LoadSettings()
	if s.Port != "8080" {
		t.Fatalf("expected default port 8080, got %q", s.Port)
	}
	if s.MaxUploadBytes != 20<<20 {
		t.Fatalf("expected 20MB upload limit, got %d", s.MaxUploadBytes)
	}
	if s.AIProvider != "anthropic" || s.IssueCacheTTL != time.Hour || s.DefaultPhoneRegion != "US" {
		t.Fatalf("unexpected defaults: %+v", s)
	}
	if s.DatabaseConfigured() {
		t.Fatalf("database must be optional")
	}
}

func TestLoadSettings_Overrides(t *testing.T) {
	t.Setenv("PORT", " 9090 ")
	t.Setenv("MAX_UPLOAD_MB", "5")
	t.Setenv("REFERENCE_TIMEOUT_SECONDS", "not-a-number")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.test, ,http://b.test")
	t.Setenv("DB_AUTO_MIGRATE", "false")
	s := LoadSettings()
	if s.Port != "9090" || s.MaxUploadBytes != 5<<20 {
		t.Fatalf("unexpected overrides: %+v", s)
	}
	if s.ReferenceTimeout != 15*time.Second {
		t.Fatalf("invalid numbers fall back to the default, got %s", s.ReferenceTimeout)
	}
	if len(s.CORSAllowedOrigins) != 2 || s.CORSAllowedOrigins[1] != "http://b.test" {
		t.Fatalf("unexpected origins %v", s.CORSAllowedOrigins)
	}
	if s.DBAutoMigrate {
		t.Fatalf("DB_AUTO_MIGRATE=false must disable migration")
	}
}

func TestLogLevel(t *testing.T) {
	cases := []struct {
		raw      string
		expected logrus.Level
	}{
		{"", logrus.InfoLevel},
		{"debug", logrus.DebugLevel},
		{" error ", logrus.ErrorLevel},
		{"loud", logrus.InfoLevel},
	}
	for _, tc := range cases {
		if got := logLevel(tc.raw); got != tc.expected {
			t.Fatalf("logLevel(%q) expected %s, got %s", tc.raw, tc.expected, got)
		}
	}
}
