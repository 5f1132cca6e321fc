package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/theirongolddev/finpilot/internal/command"
	"github.com/theirongolddev/finpilot/internal/debt"
	"github.com/theirongolddev/finpilot/internal/engine"
	"github.com/theirongolddev/finpilot/internal/model"
	"github.com/theirongolddev/finpilot/internal/risk"
	"github.com/theirongolddev/finpilot/internal/runway"
)

// Config holds all finpilot configuration.
type Config struct {
	General    GeneralConfig    `toml:"general"`
	Engine     EngineConfig     `toml:"engine"`
	Risk       RiskConfig       `toml:"risk"`
	Debt       DebtConfig       `toml:"debt"`
	Daemon     DaemonConfig     `toml:"daemon"`
	Notify     NotifyConfig     `toml:"notify"`
	Benchmark  BenchmarkConfig  `toml:"benchmark"`
	Appearance AppearanceConfig `toml:"appearance"`
	TUI        TUIConfig        `toml:"tui"`
}

// GeneralConfig holds the user and storage settings.
type GeneralConfig struct {
	UserID   string `toml:"user_id"`
	DBDriver string `toml:"db_driver"`
	DSN      string `toml:"dsn,omitempty"`
	LogLevel string `toml:"log_level"`
}

// EngineConfig holds decision and runway settings.
type EngineConfig struct {
	ValidityHours     int    `toml:"validity_hours"`
	LookbackDays      int    `toml:"lookback_days"`
	HorizonDays       int    `toml:"horizon_days"`
	SafetyBufferCents int64  `toml:"safety_buffer_cents"`
	MinObservedDays   int    `toml:"min_observed_days"`
	Strategy          string `toml:"strategy"`
	WarningDays       int    `toml:"warning_days"`
}

// RiskConfig holds the risk table cut-offs.
type RiskConfig struct {
	CriticalDays           int     `toml:"critical_days"`
	DangerDays             int     `toml:"danger_days"`
	WarningDays            int     `toml:"warning_days"`
	HighDangerScore        int     `toml:"high_danger_score"`
	CautionObligationRatio float64 `toml:"caution_obligation_ratio"`
}

// DebtConfig holds payoff simulation and danger scoring settings.
type DebtConfig struct {
	MaxMonths         int     `toml:"max_months"`
	APRCeilingPercent float64 `toml:"apr_ceiling_percent"`
	WarningScore      int     `toml:"warning_score"`
}

// DaemonConfig holds background service settings.
type DaemonConfig struct {
	Addr         string   `toml:"addr"`
	Schedule     string   `toml:"schedule"`
	Users        []string `toml:"users,omitempty"`
	EventsBuffer int      `toml:"events_buffer"`
}

// NotifyConfig holds SMTP alert settings.
type NotifyConfig struct {
	Enabled  bool     `toml:"enabled"`
	MinRisk  string   `toml:"min_risk"`
	SMTPHost string   `toml:"smtp_host,omitempty"`
	SMTPPort int      `toml:"smtp_port,omitempty"`
	Username string   `toml:"username,omitempty"`
	Password string   `toml:"password,omitempty"`
	From     string   `toml:"from,omitempty"`
	To       []string `toml:"to,omitempty"`
}

// BenchmarkConfig holds the reference-rate source.
type BenchmarkConfig struct {
	URL           string  `toml:"url,omitempty"`
	MarginPercent float64 `toml:"margin_percent"`
	Schedule      string  `toml:"schedule,omitempty"`
}

// AppearanceConfig holds theme settings.
type AppearanceConfig struct {
	Theme string `toml:"theme"`
}

// TUIConfig holds dashboard settings.
type TUIConfig struct {
	AutoRefresh     bool `toml:"auto_refresh"`
	RefreshInterval int  `toml:"refresh_interval_sec"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	ec := engine.DefaultConfig()
	return Config{
		General: GeneralConfig{
			UserID:   "me",
			DBDriver: "sqlite",
			LogLevel: "info",
		},
		Engine: EngineConfig{
			ValidityHours:     int(ec.Validity / time.Hour),
			LookbackDays:      ec.LookbackDays,
			HorizonDays:       ec.Runway.HorizonDays,
			SafetyBufferCents: int64(ec.Runway.SafetyBuffer),
			MinObservedDays:   ec.Runway.MinObservedDays,
			Strategy:          string(ec.Strategy),
			WarningDays:       ec.Command.WarningDays,
		},
		Risk: RiskConfig{
			CriticalDays:           ec.Risk.CriticalDays,
			DangerDays:             ec.Risk.DangerDays,
			WarningDays:            ec.Risk.WarningDays,
			HighDangerScore:        ec.Risk.HighDangerScore,
			CautionObligationRatio: ec.Risk.CautionObligationRatio,
		},
		Debt: DebtConfig{
			MaxMonths:         ec.Debt.MaxMonths,
			APRCeilingPercent: ec.Debt.APRCeilingPercent,
			WarningScore:      ec.Command.DebtWarningScore,
		},
		Daemon: DaemonConfig{
			Addr:         "127.0.0.1:8787",
			Schedule:     "@every 15m",
			EventsBuffer: 200,
		},
		Notify: NotifyConfig{
			MinRisk:  model.RiskDanger.String(),
			SMTPPort: 587,
		},
		Benchmark: BenchmarkConfig{
			MarginPercent: 20,
			Schedule:      "@daily",
		},
		Appearance: AppearanceConfig{
			Theme: "flexoki-dark",
		},
		TUI: TUIConfig{
			AutoRefresh:     true,
			RefreshInterval: 60,
		},
	}
}

// ConfigDir returns the XDG-compliant config directory.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "finpilot")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "finpilot")
}

// ConfigPath returns the full path to the config file.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// DataDir returns the XDG-compliant data directory.
func DataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "finpilot")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "finpilot")
}

// Load reads the config file, returning defaults if it doesn't exist.
func Load() (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(ConfigPath())
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// Save writes the config to disk.
func Save(cfg Config) error {
	dir := ConfigDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	f, err := os.OpenFile(ConfigPath(), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	defer f.Close()

	enc := toml.NewEncoder(f)
	return enc.Encode(cfg)
}

// Exists returns true if a config file exists on disk.
func Exists() bool {
	_, err := os.Stat(ConfigPath())
	return err == nil
}

// StoreDSN returns the database location from env var or config, in that
// order. For sqlite it defaults to a file in the data directory.
func StoreDSN(cfg Config) string {
	if dsn := os.Getenv("FINPILOT_DB"); dsn != "" {
		return dsn
	}
	if cfg.General.DSN != "" {
		return cfg.General.DSN
	}
	return filepath.Join(DataDir(), "finpilot.db")
}

// SMTPPassword returns the SMTP password from env var or config, in that order.
func SMTPPassword(cfg Config) string {
	if pw := os.Getenv("FINPILOT_SMTP_PASSWORD"); pw != "" {
		return pw
	}
	return cfg.Notify.Password
}

// RunwayParams converts the [engine] section.
func (c Config) RunwayParams() runway.Params {
	return runway.Params{
		HorizonDays:     c.Engine.HorizonDays,
		SafetyBuffer:    model.Cents(c.Engine.SafetyBufferCents),
		MinObservedDays: c.Engine.MinObservedDays,
	}
}

// RiskThresholds converts the [risk] section.
func (c Config) RiskThresholds() risk.Thresholds {
	return risk.Thresholds{
		CriticalDays:           c.Risk.CriticalDays,
		DangerDays:             c.Risk.DangerDays,
		WarningDays:            c.Risk.WarningDays,
		HighDangerScore:        c.Risk.HighDangerScore,
		CautionObligationRatio: c.Risk.CautionObligationRatio,
	}
}

// DebtParams converts the [debt] section. Weights are not configurable.
func (c Config) DebtParams() debt.Params {
	p := debt.DefaultParams()
	if c.Debt.MaxMonths > 0 {
		p.MaxMonths = c.Debt.MaxMonths
	}
	if c.Debt.APRCeilingPercent > 0 {
		p.APRCeilingPercent = c.Debt.APRCeilingPercent
	}
	return p
}

// CommandParams converts the command thresholds.
func (c Config) CommandParams() command.Params {
	return command.Params{
		WarningDays:      c.Engine.WarningDays,
		HighDangerScore:  c.Risk.HighDangerScore,
		DebtWarningScore: c.Debt.WarningScore,
	}
}

// EngineConfig assembles the full engine configuration.
func (c Config) EngineConfig() (engine.Config, error) {
	strategy, ok := debt.ParseStrategy(c.Engine.Strategy)
	if !ok {
		return engine.Config{}, fmt.Errorf("config: unknown strategy %q", c.Engine.Strategy)
	}
	if c.Risk.CriticalDays > c.Risk.DangerDays || c.Risk.DangerDays > c.Risk.WarningDays {
		return engine.Config{}, fmt.Errorf("config: risk days must satisfy critical <= danger <= warning (%d, %d, %d)",
			c.Risk.CriticalDays, c.Risk.DangerDays, c.Risk.WarningDays)
	}
	return engine.Config{
		Validity:     time.Duration(c.Engine.ValidityHours) * time.Hour,
		LookbackDays: c.Engine.LookbackDays,
		Strategy:     strategy,
		Runway:       c.RunwayParams(),
		Debt:         c.DebtParams(),
		Risk:         c.RiskThresholds(),
		Command:      c.CommandParams(),
	}, nil
}

// NotifyMinRisk parses the alert threshold, defaulting to danger.
func (c Config) NotifyMinRisk() model.RiskLevel {
	lvl, err := model.ParseRiskLevel(c.Notify.MinRisk)
	if err != nil {
		return model.RiskDanger
	}
	return lvl
}
