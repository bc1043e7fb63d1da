package gamification

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sakhihub/sakhi/internal/bus"
	"github.com/sakhihub/sakhi/internal/store"
)

// Result summarizes one point-awarding call.
type Result struct {
	Action        string  `json:"action"`
	PointsAwarded int     `json:"pointsAwarded"`
	TotalPoints   int     `json:"totalPoints"`
	Level         int     `json:"level"`
	LoginStreak   int     `json:"loginStreak"`
	NewBadges     []Badge `json:"newBadges"`
}

// Service applies point-awarding actions to the stored profile.
type Service struct {
	db     *store.DB
	bus    *bus.Bus
	logger *zap.Logger
	now    func() time.Time
}

// NewService creates a gamification service.
func NewService(db *store.DB, b *bus.Bus, logger *zap.Logger) *Service {
	return &Service{
		db:     db,
		bus:    b,
		logger: logger.Named("gamification"),
		now:    time.Now,
	}
}

// Award applies one action: bumps its counter, adds its points, awards any
// newly earned badges and recomputes the level. Unknown actions award zero
// points but still count, so new client actions degrade gracefully. Badge
// points are display metadata and never feed the total.
func (s *Service) Award(action string) (*Result, error) {
	profile, err := s.db.GetGameProfile()
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}

	if _, err := s.db.IncrementActionCount(action); err != nil {
		return nil, fmt.Errorf("count action: %w", err)
	}
	if action == ActionLogin {
		s.bumpStreak(profile)
	}

	profile.TotalPoints += Points[action]
	profile.Level = Level(profile.TotalPoints)
	if err := s.db.SaveGameProfile(profile); err != nil {
		return nil, fmt.Errorf("save profile: %w", err)
	}

	counts, err := s.db.ActionCounts()
	if err != nil {
		return nil, fmt.Errorf("load counters: %w", err)
	}

	var newBadges []Badge
	for _, id := range EligibleBadges(counts, profile.LoginStreak) {
		earned, err := s.db.AwardBadge(id)
		if err != nil {
			return nil, fmt.Errorf("award badge: %w", err)
		}
		if !earned {
			continue
		}
		if b, ok := BadgeByID(id); ok {
			newBadges = append(newBadges, b)
			s.logger.Info("badge earned", zap.String("badge", id))
			s.bus.Publish(bus.Event{
				Kind:      "game.badge_earned",
				Timestamp: time.Now(),
				Payload:   b,
			})
		}
	}

	return &Result{
		Action:        action,
		PointsAwarded: Points[action],
		TotalPoints:   profile.TotalPoints,
		Level:         profile.Level,
		LoginStreak:   profile.LoginStreak,
		NewBadges:     newBadges,
	}, nil
}

// Profile returns the stored profile plus earned badges.
func (s *Service) Profile() (*store.GameProfile, []Badge, error) {
	profile, err := s.db.GetGameProfile()
	if err != nil {
		return nil, nil, err
	}
	ids, err := s.db.EarnedBadges()
	if err != nil {
		return nil, nil, err
	}
	badges := make([]Badge, 0, len(ids))
	for _, id := range ids {
		if b, ok := BadgeByID(id); ok {
			badges = append(badges, b)
		}
	}
	return profile, badges, nil
}

// bumpStreak maintains the consecutive-day login streak: next calendar day
// extends it, a gap resets it, same-day logins leave it alone.
func (s *Service) bumpStreak(p *store.GameProfile) {
	today := s.now().Truncate(24 * time.Hour)
	last := time.UnixMilli(p.LastLogin).Truncate(24 * time.Hour)

	switch days := int(today.Sub(last).Hours() / 24); {
	case p.LastLogin == 0:
		p.LoginStreak = 1
	case days == 0:
		// Same day, streak unchanged.
	case days == 1:
		p.LoginStreak++
	default:
		p.LoginStreak = 1
	}
	p.LastLogin = s.now().UnixMilli()
}
