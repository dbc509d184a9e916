package pipeline

import (
	"sort"
	"time"

	"leadboard/internal/storage"
)

// SplitFollowUps groups open accounts with a scheduled follow-up relative
// to now: overdue (before today, most recent first), today, and upcoming
// (after today, soonest first). Closed accounts are left out.
func SplitFollowUps(accounts []storage.Account, now time.Time) (overdue, today, upcoming []storage.Account) {
	loc := now.Location()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	endOfDay := startOfDay.AddDate(0, 0, 1)

	for _, a := range accounts {
		if a.NextFollowUpDate == nil || a.Stage == storage.StageClosedWon || a.Stage == storage.StageClosedLost {
			continue
		}
		t := a.NextFollowUpDate.In(loc)
		switch {
		case t.Before(startOfDay):
			overdue = append(overdue, a)
		case t.Before(endOfDay):
			today = append(today, a)
		default:
			upcoming = append(upcoming, a)
		}
	}

	sort.SliceStable(overdue, func(i, j int) bool { return overdue[i].NextFollowUpDate.After(*overdue[j].NextFollowUpDate) })
	sort.SliceStable(today, func(i, j int) bool { return today[i].NextFollowUpDate.Before(*today[j].NextFollowUpDate) })
	sort.SliceStable(upcoming, func(i, j int) bool { return upcoming[i].NextFollowUpDate.Before(*upcoming[j].NextFollowUpDate) })

	return overdue, today, upcoming
}
