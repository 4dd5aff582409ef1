package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { os.Chdir(wd) })
}

func TestLoadDefaultsAndEnv(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("SCHEDULER_RUN_AT", "05:45")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 8080 || cfg.Server.ShutdownTimeout != 10*time.Second {
		t.Errorf("server defaults = %+v", cfg.Server)
	}
	if cfg.Database.Host != "db.internal" || cfg.JWT.Secret != "s3cret" {
		t.Errorf("env overrides not applied: db=%s jwt=%s", cfg.Database.Host, cfg.JWT.Secret)
	}
	if cfg.Scheduler.RunAt != "05:45" || cfg.Scheduler.StuckApprovalDays != 3 {
		t.Errorf("scheduler = %+v", cfg.Scheduler)
	}
	if cfg.JWT.RefreshTokenExpire != 7*24*time.Hour {
		t.Errorf("refresh expiry = %v", cfg.JWT.RefreshTokenExpire)
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	os.MkdirAll(filepath.Join(dir, "configs"), 0o755)
	yaml := []byte("server:\n  port: 9090\nminio:\n  bucket: textiles\n")
	if err := os.WriteFile(filepath.Join(dir, "configs", "config.yaml"), yaml, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	chdir(t, dir)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9090 || cfg.MinIO.Bucket != "textiles" {
		t.Errorf("file values not applied: port=%d bucket=%s", cfg.Server.Port, cfg.MinIO.Bucket)
	}
}

func TestSchedulerLocation(t *testing.T) {
	if loc := (SchedulerConfig{}).Location(); loc != time.UTC {
		t.Errorf("empty timezone = %v, want UTC", loc)
	}
	if loc := (SchedulerConfig{Timezone: "Not/AZone"}).Location(); loc != time.UTC {
		t.Errorf("invalid timezone = %v, want UTC", loc)
	}
	if _, err := time.LoadLocation("Asia/Dhaka"); err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	if loc := (SchedulerConfig{Timezone: "Asia/Dhaka"}).Location(); loc.String() != "Asia/Dhaka" {
		t.Errorf("timezone = %v", loc)
	}
}

func TestDSN(t *testing.T) {
	c := DatabaseConfig{Host: "h", Port: 5432, User: "u", Password: "p", DBName: "d", SSLMode: "disable"}
	want := "host=h port=5432 user=u password=p dbname=d sslmode=disable"
	if got := c.DSN(); got != want {
		t.Errorf("DSN = %q, want %q", got, want)
	}
}
