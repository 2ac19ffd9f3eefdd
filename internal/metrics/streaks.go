package metrics

import (
	"sort"
	"time"

	"trade-journal-go/internal/models"
)

// StreakSummary reports the portfolio's win/loss streaks. Current is
// signed: positive while on a winning streak, negative while on a losing
// streak. LongestWin and LongestLoss are historical magnitudes.
type StreakSummary struct {
	Current     int `json:"current"`
	LongestWin  int `json:"longest_win"`
	LongestLoss int `json:"longest_loss"`
}

// Streaks scans closed trades and computes the current streak and the
// longest win and loss streaks. A trade is a win iff its realized P&L is
// strictly positive. The walk runs from the most recently closed trade
// backward; the first run of same-type results is the current streak.
func Streaks(closed []*models.Trade) StreakSummary {
	var s StreakSummary
	if len(closed) == 0 {
		return s
	}

	sorted := make([]*models.Trade, len(closed))
	copy(sorted, closed)
	sort.SliceStable(sorted, func(i, j int) bool {
		return exitTime(sorted[i]).After(exitTime(sorted[j]))
	})

	run := 0
	currentSet := false
	commit := func() {
		if run > 0 && run > s.LongestWin {
			s.LongestWin = run
		}
		if run < 0 && -run > s.LongestLoss {
			s.LongestLoss = -run
		}
	}

	for i, t := range sorted {
		step := -1
		if t.RealizedPnL > 0 {
			step = 1
		}
		switch {
		case i == 0:
			run = step
		case (run > 0) == (step > 0):
			run += step
		default:
			if !currentSet {
				s.Current = run
				currentSet = true
			}
			commit()
			run = step
		}
	}
	if !currentSet {
		s.Current = run
	}
	commit()

	return s
}

func exitTime(t *models.Trade) time.Time {
	if t.ClosedAt != nil {
		return *t.ClosedAt
	}
	return t.OpenedAt
}
