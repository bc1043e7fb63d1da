package health

import (
	"math"
	"sort"
	"time"
)

// DateLayout is the storage format for cycle dates.
const DateLayout = "2006-01-02"

// Prediction is the computed cycle outlook.
type Prediction struct {
	AverageCycleDays int    `json:"averageCycleDays"`
	LastDate         string `json:"lastDate"`
	NextDate         string `json:"nextDate"`
}

// AverageCycleDays returns the mean gap in days between consecutive recorded
// dates, rounded to the nearest day. Fewer than two dates yield 0.
func AverageCycleDays(dates []time.Time) int {
	if len(dates) < 2 {
		return 0
	}
	sorted := make([]time.Time, len(dates))
	copy(sorted, dates)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	total := 0.0
	for i := 1; i < len(sorted); i++ {
		days := math.Round(sorted[i].Sub(sorted[i-1]).Hours() / 24)
		total += days
	}
	return int(math.Round(total / float64(len(sorted)-1)))
}

// PredictNext projects the next period date: last recorded date plus the
// average cycle. Returns nil when there is not enough history to predict.
func PredictNext(dates []string) (*Prediction, error) {
	parsed := make([]time.Time, 0, len(dates))
	for _, d := range dates {
		t, err := time.Parse(DateLayout, d)
		if err != nil {
			return nil, err
		}
		parsed = append(parsed, t)
	}

	avg := AverageCycleDays(parsed)
	if avg == 0 {
		return nil, nil
	}

	sort.Slice(parsed, func(i, j int) bool { return parsed[i].Before(parsed[j]) })
	last := parsed[len(parsed)-1]
	next := last.AddDate(0, 0, avg)

	return &Prediction{
		AverageCycleDays: avg,
		LastDate:         last.Format(DateLayout),
		NextDate:         next.Format(DateLayout),
	}, nil
}
