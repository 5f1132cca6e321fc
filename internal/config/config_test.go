package config

import (
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/theirongolddev/finpilot/internal/engine"
	"github.com/theirongolddev/finpilot/internal/model"
)

func TestDefaultConfig_MatchesEngineDefaults(t *testing.T) {
	got, err := DefaultConfig().EngineConfig()
	if err != nil {
		t.Fatalf("EngineConfig: %v", err)
	}
	want := engine.DefaultConfig()
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("EngineConfig() = %+v\nwant %+v", got, want)
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	if Exists() {
		t.Fatal("Exists() = true before Save")
	}
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load without file: %v", err)
	}
	if cfg.General.UserID != "me" {
		t.Fatalf("default UserID = %q, want me", cfg.General.UserID)
	}

	cfg.General.UserID = "alex"
	cfg.Risk.DangerDays = 7
	cfg.Daemon.Users = []string{"alex", "sam"}
	cfg.Notify.To = []string{"alex@example.com"}
	if err := Save(cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !Exists() {
		t.Fatal("Exists() = false after Save")
	}

	back, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(back, cfg) {
		t.Fatalf("Load() = %+v\nwant %+v", back, cfg)
	}
}

func TestEngineConfig_Overrides(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Engine.ValidityHours = 6
	cfg.Engine.Strategy = "snowball"
	cfg.Engine.SafetyBufferCents = 10000
	cfg.Debt.APRCeilingPercent = 45.5

	ec, err := cfg.EngineConfig()
	if err != nil {
		t.Fatalf("EngineConfig: %v", err)
	}
	if ec.Validity != 6*time.Hour {
		t.Fatalf("Validity = %s, want 6h", ec.Validity)
	}
	if ec.Strategy != "snowball" {
		t.Fatalf("Strategy = %s, want snowball", ec.Strategy)
	}
	if ec.Runway.SafetyBuffer != 10000 {
		t.Fatalf("SafetyBuffer = %d, want 10000", ec.Runway.SafetyBuffer)
	}
	if ec.Debt.APRCeilingPercent != 45.5 {
		t.Fatalf("APRCeilingPercent = %v, want 45.5", ec.Debt.APRCeilingPercent)
	}
}

func TestEngineConfig_Invalid(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Engine.Strategy = "lottery"
	if _, err := cfg.EngineConfig(); err == nil {
		t.Fatal("expected error for unknown strategy")
	}

	cfg = DefaultConfig()
	cfg.Risk.DangerDays = 20
	if _, err := cfg.EngineConfig(); err == nil {
		t.Fatal("expected error for danger_days > warning_days")
	}
}

func TestEnvOverrides(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Notify.Password = "from-file"

	t.Setenv("XDG_DATA_HOME", "/data")
	t.Setenv("FINPILOT_DB", "")
	if got, want := StoreDSN(cfg), filepath.Join("/data", "finpilot", "finpilot.db"); got != want {
		t.Fatalf("StoreDSN = %q, want %q", got, want)
	}

	t.Setenv("FINPILOT_DB", "postgres://localhost/finpilot")
	if got := StoreDSN(cfg); got != "postgres://localhost/finpilot" {
		t.Fatalf("StoreDSN with env = %q", got)
	}

	if got := SMTPPassword(cfg); got != "from-file" {
		t.Fatalf("SMTPPassword = %q, want from-file", got)
	}
	t.Setenv("FINPILOT_SMTP_PASSWORD", "from-env")
	if got := SMTPPassword(cfg); got != "from-env" {
		t.Fatalf("SMTPPassword with env = %q, want from-env", got)
	}
}

func TestNotifyMinRisk(t *testing.T) {
	cfg := DefaultConfig()
	if got := cfg.NotifyMinRisk(); got != model.RiskDanger {
		t.Fatalf("default NotifyMinRisk = %s, want danger", got)
	}
	cfg.Notify.MinRisk = "warning"
	if got := cfg.NotifyMinRisk(); got != model.RiskWarning {
		t.Fatalf("NotifyMinRisk = %s, want warning", got)
	}
	cfg.Notify.MinRisk = "bogus"
	if got := cfg.NotifyMinRisk(); got != model.RiskDanger {
		t.Fatalf("NotifyMinRisk(bogus) = %s, want danger", got)
	}
}
