// Package pipeline turns account snapshots into the board: stage columns,
// follow-up ordering and aggregate metrics.
package pipeline

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"leadboard/internal/storage"
)

// Column is one stage of the board with its accounts in display order.
type Column struct {
	Stage    storage.Stage
	Accounts []storage.Account
}

// Partition buckets accounts by stage, one column per funnel stage in
// board order, each sorted by next follow-up date.
func Partition(accounts []storage.Account) []Column {
	columns := make([]Column, len(storage.Stages))
	for i, stage := range storage.Stages {
		columns[i] = Column{Stage: stage, Accounts: []storage.Account{}}
	}
	for _, a := range accounts {
		idx := a.Stage.Index()
		if idx < 0 {
			continue
		}
		columns[idx].Accounts = append(columns[idx].Accounts, a)
	}
	for i := range columns {
		SortByFollowUp(columns[i].Accounts)
	}
	return columns
}

// SortByFollowUp orders accounts by ascending next follow-up date.
// Accounts with no follow-up scheduled come last; ties keep their order.
func SortByFollowUp(accounts []storage.Account) {
	sort.SliceStable(accounts, func(i, j int) bool {
		return followUpBefore(accounts[i].NextFollowUpDate, accounts[j].NextFollowUpDate)
	})
}

func followUpBefore(a, b *time.Time) bool {
	switch {
	case a == nil:
		return false
	case b == nil:
		return true
	default:
		return a.Before(*b)
	}
}

// StageValue is the summed value of one active stage.
type StageValue struct {
	Stage storage.Stage
	Value decimal.Decimal
	// Ratio is Value relative to the largest stage value, in [0, 1].
	Ratio float64
}

// Metrics aggregates a snapshot.
type Metrics struct {
	TotalValue  decimal.Decimal
	ActiveCount int
	DueThisWeek int
	StageValues []StageValue
}

// dueWindowDays is how far ahead DueThisWeek looks, today included.
const dueWindowDays = 7

// Compute derives the board metrics from a snapshot. Only active stages
// contribute to value totals and stage values; the follow-up count spans
// every stage and covers today through today+7 in now's location.
func Compute(accounts []storage.Account, now time.Time) Metrics {
	m := Metrics{TotalValue: decimal.Zero}
	perStage := make(map[storage.Stage]decimal.Decimal)

	loc := now.Location()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	end := start.AddDate(0, 0, dueWindowDays+1)

	for _, a := range accounts {
		if a.Stage.Active() {
			m.TotalValue = m.TotalValue.Add(a.Value)
			m.ActiveCount++
			perStage[a.Stage] = perStage[a.Stage].Add(a.Value)
		}
		if a.NextFollowUpDate != nil {
			t := a.NextFollowUpDate.In(loc)
			if !t.Before(start) && t.Before(end) {
				m.DueThisWeek++
			}
		}
	}

	peak := decimal.Zero
	for _, stage := range storage.Stages {
		if !stage.Active() {
			continue
		}
		value := perStage[stage]
		if value.GreaterThan(peak) {
			peak = value
		}
		m.StageValues = append(m.StageValues, StageValue{Stage: stage, Value: value})
	}
	if peak.IsPositive() {
		for i := range m.StageValues {
			ratio := m.StageValues[i].Value.Div(peak).InexactFloat64()
			if ratio < 0 {
				ratio = 0
			}
			m.StageValues[i].Ratio = ratio
		}
	}
	return m
}
