package cli

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/querydesk/querydesk/internal/config"
	"github.com/querydesk/querydesk/internal/logger"
	"github.com/querydesk/querydesk/pkg/agent"
	"github.com/querydesk/querydesk/pkg/approval"
	"github.com/querydesk/querydesk/pkg/notify"
	"github.com/querydesk/querydesk/pkg/ticket"
)

// app bundles the wired collaborators every command needs.
type app struct {
	cfg      *config.Config
	log      *logger.Logger
	store    *ticket.SQLiteStore
	provider agent.Provider
	notifier notify.Notifier
	tokens   *approval.Tokens
}

// newApp loads config, opens the store and builds the provider stack.
// Callers must Close it.
func newApp() (*app, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	level := cfg.Logging.Level
	if logLevel != "" {
		level = logLevel
	}
	log, err := logger.New(logger.Config{
		Level:   level,
		File:    cfg.Logging.File,
		Console: true,
		Pretty:  true,
	})
	if err != nil {
		return nil, err
	}

	store, err := ticket.OpenSQLite(cfg.Database.Path, log.Zerolog())
	if err != nil {
		log.Close()
		return nil, err
	}

	provider, err := agent.NewProvider(agent.ProviderConfig{
		Provider: cfg.AI.Provider,
		APIKey:   cfg.AI.APIKey,
		BaseURL:  cfg.AI.BaseURL,
	})
	if err != nil {
		store.Close()
		log.Close()
		return nil, err
	}

	return &app{
		cfg:      cfg,
		log:      log,
		store:    store,
		provider: provider,
		notifier: buildNotifier(cfg, log.Zerolog()),
		tokens:   approval.NewTokens(cfg.Approval.Secret),
	}, nil
}

func buildNotifier(cfg *config.Config, log zerolog.Logger) notify.Notifier {
	if cfg.SMTP.Host == "" {
		return &notify.LogNotifier{Logger: log}
	}
	return notify.NewSMTP(notify.SMTPConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	}, log)
}

func (a *app) Close() {
	a.store.Close()
	a.log.Close()
}
