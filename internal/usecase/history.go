package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/example/nutriscan/internal/repository"
)

// HistoryLimit is how many recent scans the history view shows.
const HistoryLimit = 20

// ErrHistoryDisabled is returned when no history database is configured.
var ErrHistoryDisabled = errors.New("scan history is not enabled")

// Totals sums the nutrition facts of successful scans.
type Totals struct {
	Calories      float64 `json:"calories"`
	Fat           float64 `json:"fat"`
	Carbohydrates float64 `json:"carbs"`
	Protein       float64 `json:"protein"`
}

func (t *Totals) add(log *repository.ScanLog) {
	t.Calories += log.Calories
	t.Fat += log.Fat
	t.Carbohydrates += log.Carbohydrates
	t.Protein += log.Protein
}

// History is the recent scans of a session with day and week totals. The
// totals cover every successful scan in the period, not just Items.
type History struct {
	Items     []*repository.ScanLog `json:"items"`
	DayTotal  Totals                `json:"day_total"`
	WeekTotal Totals                `json:"week_total"`
}

// GetHistory aggregates the session's recent scans. Weeks start on Sunday.
func (uc *ScanUseCase) GetHistory(ctx context.Context, sessionID string) (*History, error) {
	if uc.repo == nil {
		return nil, ErrHistoryDisabled
	}

	logs, err := uc.repo.Recent(ctx, sessionID, HistoryLimit)
	if err != nil {
		return nil, err
	}

	now := uc.now()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	startOfWeek := startOfDay.AddDate(0, 0, -int(now.Weekday()))

	week, err := uc.repo.SuccessfulSince(ctx, sessionID, startOfWeek)
	if err != nil {
		return nil, err
	}

	history := &History{Items: logs}
	if history.Items == nil {
		history.Items = []*repository.ScanLog{}
	}
	for _, log := range week {
		history.WeekTotal.add(log)
		if !log.CreatedAt.Before(startOfDay) {
			history.DayTotal.add(log)
		}
	}
	return history, nil
}
