package listener

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"attendance/internal/config"
	"attendance/internal/connectors"
	"attendance/internal/pipeline"
	"attendance/internal/storage"
)

const lastCycleKey = "listener.last_cycle"

type Service struct {
	db        *storage.DB
	cfg       config.Config
	logger    *zap.Logger
	connector func(ctx context.Context, provider string) (connectors.MailConnector, error)
}

type CycleResult struct {
	Provider     string
	Fetched      int
	Stored       int
	Reports      int
	Participants int
}

func NewService(db *storage.DB, cfg config.Config, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{db: db, cfg: cfg, logger: logger}
	s.connector = s.makeConnector
	return s
}

// Run polls the mailbox until ctx is cancelled. A failed cycle is logged and
// retried on the next tick.
func (s *Service) Run(ctx context.Context) error {
	interval := time.Duration(s.cfg.MailListenerIntervalSec) * time.Second
	if interval <= 0 {
		interval = time.Minute
	}

	s.logger.Info("listener started", zap.String("provider", s.cfg.MailListenerProvider), zap.Duration("interval", interval))
	for {
		if _, err := s.RunCycle(ctx); err != nil && ctx.Err() == nil {
			s.logger.Error("listener cycle failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			s.logger.Info("listener stopped")
			return nil
		case <-time.After(interval):
		}
	}
}

func (s *Service) RunCycle(ctx context.Context) (CycleResult, error) {
	provider := strings.ToLower(strings.TrimSpace(s.cfg.MailListenerProvider))
	res := CycleResult{Provider: provider}

	mailConnector, err := s.connector(ctx, provider)
	if err != nil {
		return res, err
	}

	fetched, err := connectors.NewFetchService(s.db, s.cfg.RawMailDir, mailConnector, s.logger).
		FetchAndStore(ctx, s.cfg.MailListenerLabel, s.cfg.MailListenerFetchMax)
	if err != nil {
		return res, err
	}
	res.Fetched, res.Stored = fetched.Fetched, fetched.Stored

	processor := pipeline.NewProcessingService(s.db, s.cfg, s.logger)
	res.Reports, res.Participants, err = processor.ProcessPending(ctx, s.cfg.MailListenerProcessBatch, provider)
	if err != nil {
		return res, err
	}

	if err := s.db.SetMetadata(lastCycleKey, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return res, err
	}

	s.logger.Info("listener cycle done",
		zap.String("provider", provider),
		zap.Int("fetched", res.Fetched),
		zap.Int("stored", res.Stored),
		zap.Int("reports", res.Reports),
		zap.Int("participants", res.Participants),
	)
	return res, nil
}

func (s *Service) makeConnector(ctx context.Context, provider string) (connectors.MailConnector, error) {
	return connectors.New(ctx, s.cfg, provider)
}
