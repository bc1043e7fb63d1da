package health

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sakhihub/sakhi/internal/backend"
	"github.com/sakhihub/sakhi/internal/store"
)

// Known bots.
const (
	BotPeriod    = "period"
	BotPregnancy = "pregnancy"
	BotKrishi    = "krishi"
)

// BotChatter is the backend surface the service needs.
type BotChatter interface {
	BotChat(ctx context.Context, bot string, req *backend.ChatRequest) (*backend.ChatResponse, error)
}

// Service owns cycle tracking and health-bot conversations. Bot logs are
// persisted per bot with the newest hundred turns retained.
type Service struct {
	db      *store.DB
	backend BotChatter
	logger  *zap.Logger
}

// NewService creates a health service.
func NewService(db *store.DB, b BotChatter, logger *zap.Logger) *Service {
	return &Service{db: db, backend: b, logger: logger.Named("health")}
}

// RecordCycleDate stores one period start date.
func (s *Service) RecordCycleDate(date string) error {
	if _, err := time.Parse(DateLayout, date); err != nil {
		return fmt.Errorf("invalid cycle date %q: %w", date, err)
	}
	return s.db.AddCycleDate(date)
}

// RemoveCycleDate deletes a recorded date.
func (s *Service) RemoveCycleDate(date string) error {
	return s.db.RemoveCycleDate(date)
}

// CycleDates returns the recorded dates, ascending.
func (s *Service) CycleDates() ([]string, error) {
	return s.db.CycleDates()
}

// Predict computes the next-period outlook from stored dates. Nil when there
// is not enough history.
func (s *Service) Predict() (*Prediction, error) {
	dates, err := s.db.CycleDates()
	if err != nil {
		return nil, err
	}
	return PredictNext(dates)
}

// Ask sends one turn to a named bot, logging both sides of the exchange.
// When the backend is unreachable the user turn is still logged and the
// period bot degrades to the local prediction if one exists.
func (s *Service) Ask(ctx context.Context, bot string, req *backend.ChatRequest) (*backend.ChatResponse, error) {
	now := time.Now().UnixMilli()
	if err := s.db.AppendBotMessage(&store.BotMessage{
		Bot: bot, Role: "user", Content: req.UserMessage, Timestamp: now,
	}); err != nil {
		return nil, err
	}

	resp, err := s.backend.BotChat(ctx, bot, req)
	if err != nil {
		s.logger.Warn("bot backend unavailable", zap.String("bot", bot), zap.Error(err))
		if bot == BotPeriod {
			if p, perr := s.Predict(); perr == nil && p != nil {
				resp = &backend.ChatResponse{
					Response:   fmt.Sprintf("I cannot reach the assistant right now, but based on your history your next period is around %s.", p.NextDate),
					Prediction: p.NextDate,
				}
				err = nil
			}
		}
		if err != nil {
			return nil, err
		}
	}

	if aerr := s.db.AppendBotMessage(&store.BotMessage{
		Bot: bot, Role: "assistant", Content: resp.Response, Timestamp: time.Now().UnixMilli(),
	}); aerr != nil {
		return nil, aerr
	}
	return resp, nil
}

// History returns a bot's conversation log, oldest first.
func (s *Service) History(bot string) ([]store.BotMessage, error) {
	return s.db.BotLog(bot)
}

// ClearHistory drops a bot's conversation log.
func (s *Service) ClearHistory(bot string) error {
	return s.db.ClearBotLog(bot)
}
