package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/caarlos0/env/v11"
)

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	c := DefaultConfig()
	if c.Listen != defaultListen || c.APIBaseURL != "http://localhost:3000" || c.Timezone != "Europe/Amsterdam" {
		t.Fatalf("defaults = %+v", c)
	}
	if c.DefaultCategoryID != 1 || c.RequestTimeout() != 15*time.Second {
		t.Fatalf("defaults = %+v", c)
	}
	if c.BasicAuth != nil {
		t.Fatal("basic auth enabled by default")
	}
}

func TestNormalizeFillsZeroValues(t *testing.T) {
	t.Parallel()

	c := &Config{APIBaseURL: " http://store:3000/ ", LogLevel: "LOUD", BasicAuth: &BasicAuthConfig{}}
	c.Normalize()
	if c.APIBaseURL != "http://store:3000" {
		t.Fatalf("api_base_url = %q", c.APIBaseURL)
	}
	if c.LogLevel != "info" {
		t.Fatalf("log_level = %q, want info", c.LogLevel)
	}
	if c.BasicAuth != nil {
		t.Fatal("empty basic auth kept")
	}
	if c.Snapshot.Cron == "" || c.Snapshot.Width == 0 || c.MaxImageBytes == 0 {
		t.Fatalf("snapshot = %+v", c.Snapshot)
	}
}

func TestLoadCreatesDefaultFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "eventboard.yaml")
	c, err := loadFile(path)
	if err != nil {
		t.Fatalf("loadFile: %v", err)
	}
	if c.Listen != defaultListen {
		t.Fatalf("listen = %q", c.Listen)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("perm = %v, want 0600", info.Mode().Perm())
	}
}

func TestSaveThenLoad(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "eventboard.yaml")
	c := DefaultConfig()
	c.Listen = "0.0.0.0:9000"
	c.DefaultCategoryID = 4
	c.BasicAuth = &BasicAuthConfig{Username: "ops", Password: "secret"}
	c.Snapshot.Enabled = true
	if err := c.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := loadFile(path)
	if err != nil {
		t.Fatalf("loadFile: %v", err)
	}
	if got.Listen != "0.0.0.0:9000" || got.DefaultCategoryID != 4 || !got.Snapshot.Enabled {
		t.Fatalf("loaded = %+v", got)
	}
	if got.BasicAuth == nil || got.BasicAuth.Username != "ops" {
		t.Fatalf("basic auth = %+v", got.BasicAuth)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Fatalf("temp file left behind: %s", e.Name())
		}
	}
}

func TestLoadRejectsBadYAML(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "eventboard.yaml")
	if err := os.WriteFile(path, []byte("listen: [oops"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := loadFile(path); err == nil || !strings.Contains(err.Error(), "parse config") {
		t.Fatalf("loadFile = %v, want parse error", err)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Parallel()

	c := DefaultConfig()
	err := c.applyEnv(env.Options{
		Prefix: "EVENTBOARD_",
		Environment: map[string]string{
			"EVENTBOARD_LISTEN":               ":8081",
			"EVENTBOARD_API_BASE_URL":         "http://api.internal:3000/",
			"EVENTBOARD_DEFAULT_CATEGORY_ID":  "7",
			"EVENTBOARD_BASIC_AUTH_USERNAME":  "ops",
			"EVENTBOARD_BASIC_AUTH_PASSWORD":  "pw",
			"EVENTBOARD_SNAPSHOT_ENABLED":     "true",
			"EVENTBOARD_SNAPSHOT_OUTPUT_PATH": "/tmp/board.png",
		},
	})
	if err != nil {
		t.Fatalf("applyEnv: %v", err)
	}
	if c.Listen != ":8081" || c.APIBaseURL != "http://api.internal:3000" || c.DefaultCategoryID != 7 {
		t.Fatalf("config = %+v", c)
	}
	if c.BasicAuth == nil || c.BasicAuth.Username != "ops" || c.BasicAuth.Password != "pw" {
		t.Fatalf("basic auth = %+v", c.BasicAuth)
	}
	if !c.Snapshot.Enabled || c.Snapshot.OutputPath != "/tmp/board.png" {
		t.Fatalf("snapshot = %+v", c.Snapshot)
	}
}

func TestApplyEnvWithoutCredentialsKeepsAuthOff(t *testing.T) {
	t.Parallel()

	c := DefaultConfig()
	if err := c.applyEnv(env.Options{Prefix: "EVENTBOARD_", Environment: map[string]string{}}); err != nil {
		t.Fatalf("applyEnv: %v", err)
	}
	if c.BasicAuth != nil {
		t.Fatalf("basic auth = %+v, want nil", c.BasicAuth)
	}
}

func TestApplyEnvLogLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{name: "unprefixed", env: map[string]string{"LOG_LEVEL": "debug"}, want: "debug"},
		{name: "prefixed wins", env: map[string]string{"LOG_LEVEL": "debug", "EVENTBOARD_LOG_LEVEL": "error"}, want: "error"},
		{name: "unset", env: map[string]string{}, want: DefaultConfig().LogLevel},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			c := DefaultConfig()
			if err := c.applyEnv(env.Options{Prefix: "EVENTBOARD_", Environment: tc.env}); err != nil {
				t.Fatalf("applyEnv: %v", err)
			}
			if c.LogLevel != tc.want {
				t.Fatalf("LogLevel = %q, want %q", c.LogLevel, tc.want)
			}
		})
	}
}

func TestApplyEnvError(t *testing.T) {
	t.Parallel()

	c := DefaultConfig()
	err := c.applyEnv(env.Options{
		Prefix:      "EVENTBOARD_",
		Environment: map[string]string{"EVENTBOARD_DEFAULT_CATEGORY_ID": "music"},
	})
	if err == nil || !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("applyEnv = %v, want parse env error", err)
	}
}
