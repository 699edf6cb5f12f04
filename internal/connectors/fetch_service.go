package connectors

import (
	"context"

	"go.uber.org/zap"

	"attendance/internal/storage"
)

type FetchService struct {
	connector MailConnector
	store     *MailStoreService
	logger    *zap.Logger
}

type FetchResult struct {
	Fetched int
	Stored  int
}

func NewFetchService(db *storage.DB, rawMailDir string, connector MailConnector, logger *zap.Logger) *FetchService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FetchService{
		connector: connector,
		store:     NewMailStoreService(db, rawMailDir),
		logger:    logger,
	}
}

func (s *FetchService) FetchAndStore(ctx context.Context, label string, max int) (FetchResult, error) {
	messages, err := s.connector.FetchInbox(ctx, label, max)
	if err != nil {
		return FetchResult{}, err
	}

	stored := 0
	for _, msg := range messages {
		report, err := s.store.Store(msg)
		if err != nil {
			return FetchResult{}, err
		}
		s.logger.Debug("message stored", zap.Int("report_id", report.ID), zap.String("message_id", msg.MessageID))
		stored++
	}

	return FetchResult{Fetched: len(messages), Stored: stored}, nil
}
