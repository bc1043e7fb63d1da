package gamification

import (
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/sakhihub/sakhi/internal/bus"
	"github.com/sakhihub/sakhi/internal/store"
)

func testService(t *testing.T) *Service {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := store.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewService(db, bus.New(), zap.NewNop())
}

// Every award strictly increases the total by the action's defined points and
// the total never goes negative.
func TestAwardIncreasesPoints(t *testing.T) {
	s := testService(t)

	total := 0
	for _, action := range []string{ActionLogin, ActionVote, ActionHealthQuery, ActionProductList} {
		res, err := s.Award(action)
		if err != nil {
			t.Fatal(err)
		}
		if res.PointsAwarded != Points[action] {
			t.Errorf("%s awarded %d, want %d", action, res.PointsAwarded, Points[action])
		}
		if res.TotalPoints != total+Points[action] {
			t.Errorf("total after %s = %d, want %d", action, res.TotalPoints, total+Points[action])
		}
		total = res.TotalPoints
		if total < 0 {
			t.Fatal("total went negative")
		}
	}
}

// Badge set grows monotonically: repeating an action never duplicates or
// removes a badge.
func TestBadgeSetMonotonic(t *testing.T) {
	s := testService(t)

	res, err := s.Award(ActionVote)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.NewBadges) != 1 || res.NewBadges[0].ID != "first_vote" {
		t.Fatalf("new badges = %v, want [first_vote]", res.NewBadges)
	}

	prevSize := 1
	for i := 0; i < 10; i++ {
		res, err := s.Award(ActionVote)
		if err != nil {
			t.Fatal(err)
		}
		_, badges, err := s.Profile()
		if err != nil {
			t.Fatal(err)
		}
		if len(badges) < prevSize {
			t.Fatalf("badge set shrank: %d -> %d", prevSize, len(badges))
		}
		for _, b := range res.NewBadges {
			if b.ID == "first_vote" {
				t.Fatal("first_vote awarded twice")
			}
		}
		prevSize = len(badges)
	}

	// five_votes arrived along the way, exactly once.
	_, badges, err := s.Profile()
	if err != nil {
		t.Fatal(err)
	}
	ids := map[string]int{}
	for _, b := range badges {
		ids[b.ID]++
	}
	if ids["five_votes"] != 1 || ids["first_vote"] != 1 {
		t.Errorf("badge counts = %v", ids)
	}
}

// Badge points are metadata only: earning sos_setup (50 badge points) adds
// the action's 50 points, not 100.
func TestBadgePointsNotAddedToTotal(t *testing.T) {
	s := testService(t)

	res, err := s.Award(ActionSOSSetup)
	if err != nil {
		t.Fatal(err)
	}
	if res.TotalPoints != Points[ActionSOSSetup] {
		t.Errorf("total = %d, want %d (badge metadata must not add)", res.TotalPoints, Points[ActionSOSSetup])
	}
}

func TestLevelUpdatesWithPoints(t *testing.T) {
	s := testService(t)

	var res *Result
	var err error
	// 12 points per scheme check; 9 checks = 108 points = level 2.
	for i := 0; i < 9; i++ {
		res, err = s.Award(ActionSchemeCheck)
		if err != nil {
			t.Fatal(err)
		}
	}
	if res.TotalPoints != 108 {
		t.Fatalf("total = %d, want 108", res.TotalPoints)
	}
	if res.Level != 2 {
		t.Errorf("level = %d, want 2", res.Level)
	}
}

func TestLoginStreak(t *testing.T) {
	s := testService(t)

	day := time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return day }

	res, err := s.Award(ActionLogin)
	if err != nil {
		t.Fatal(err)
	}
	if res.LoginStreak != 1 {
		t.Errorf("streak = %d, want 1", res.LoginStreak)
	}

	// Same-day login leaves the streak alone.
	day = day.Add(2 * time.Hour)
	if res, err = s.Award(ActionLogin); err != nil {
		t.Fatal(err)
	}
	if res.LoginStreak != 1 {
		t.Errorf("streak after same-day login = %d, want 1", res.LoginStreak)
	}

	// Six consecutive days extend it to 7 and earn week_streak.
	var sawWeekStreak bool
	for i := 0; i < 6; i++ {
		day = day.Add(24 * time.Hour)
		if res, err = s.Award(ActionLogin); err != nil {
			t.Fatal(err)
		}
		for _, b := range res.NewBadges {
			if b.ID == "week_streak" {
				sawWeekStreak = true
			}
		}
	}
	if res.LoginStreak != 7 {
		t.Errorf("streak = %d, want 7", res.LoginStreak)
	}
	if !sawWeekStreak {
		t.Error("week_streak badge never awarded")
	}

	// A gap resets to 1.
	day = day.Add(72 * time.Hour)
	if res, err = s.Award(ActionLogin); err != nil {
		t.Fatal(err)
	}
	if res.LoginStreak != 1 {
		t.Errorf("streak after gap = %d, want 1", res.LoginStreak)
	}
}

func TestUnknownActionCountsButAwardsNothing(t *testing.T) {
	s := testService(t)

	res, err := s.Award("future_feature")
	if err != nil {
		t.Fatal(err)
	}
	if res.PointsAwarded != 0 || res.TotalPoints != 0 {
		t.Errorf("result = %+v, want zero points", res)
	}
}
