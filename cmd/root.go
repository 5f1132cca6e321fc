package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/theirongolddev/finpilot/internal/config"
	"github.com/theirongolddev/finpilot/internal/engine"
	"github.com/theirongolddev/finpilot/internal/store"
)

var (
	flagUser     string
	flagDriver   string
	flagDSN      string
	flagLogLevel string
	flagLogJSON  bool
	flagQuiet    bool
)

var rootCmd = &cobra.Command{
	Use:   "finpilot",
	Short: "Personal finance decision engine",
	Long:  "Turn balances, spending, bills and debts into one time-boxed instruction: what to do with your money right now.",
	RunE:  runStatus,

	SilenceUsage: true,
}

// Execute is the main entry point called from main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagUser, "user", "u", "", "User ID (default from config)")
	rootCmd.PersistentFlags().StringVar(&flagDriver, "driver", "", "Store driver: sqlite, postgres or memory")
	rootCmd.PersistentFlags().StringVar(&flagDSN, "db", "", "Database path or DSN (env FINPILOT_DB)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level (env LOG_LEVEL)")
	rootCmd.PersistentFlags().BoolVar(&flagLogJSON, "log-json", false, "Log as JSON")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "Only log warnings and errors")
}

// loadConfig reads the config file and applies command-line overrides.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, err
	}
	if flagUser != "" {
		cfg.General.UserID = flagUser
	}
	if flagDriver != "" {
		cfg.General.DBDriver = flagDriver
	}
	if flagDSN != "" {
		cfg.General.DSN = flagDSN
	}
	return cfg, nil
}

func newLogger(cfg config.Config) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)

	levelName := cfg.General.LogLevel
	if env := os.Getenv("LOG_LEVEL"); env != "" {
		levelName = env
	}
	if flagLogLevel != "" {
		levelName = flagLogLevel
	}
	level, err := logrus.ParseLevel(strings.TrimSpace(levelName))
	if err != nil {
		level = logrus.InfoLevel
	}
	if flagQuiet && level > logrus.WarnLevel {
		level = logrus.WarnLevel
	}
	log.SetLevel(level)

	if flagLogJSON || !isatty.IsTerminal(os.Stderr.Fd()) {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return log
}

// session bundles what most commands need: config, logger, store and engine.
type session struct {
	cfg  config.Config
	log  *logrus.Logger
	repo store.Repository
	eng  *engine.Engine
	user string
}

func openSession(opts ...engine.Option) (*session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	log := newLogger(cfg)

	ecfg, err := cfg.EngineConfig()
	if err != nil {
		return nil, err
	}

	driver := cfg.General.DBDriver
	repo, err := store.Open(driver, config.StoreDSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("opening %s store: %w", driver, err)
	}
	log.WithField("driver", driver).Debug("store opened")

	opts = append([]engine.Option{engine.WithLogger(log)}, opts...)
	return &session{
		cfg:  cfg,
		log:  log,
		repo: repo,
		eng:  engine.New(repo, repo, ecfg, opts...),
		user: cfg.General.UserID,
	}, nil
}

func (s *session) Close() {
	if err := s.repo.Close(); err != nil {
		s.log.WithError(err).Warn("closing store")
	}
}
