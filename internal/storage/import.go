package storage

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"
)

// ImportResult summarizes a CSV import operation.
type ImportResult struct {
	Created int
	Skipped int
	Errors  []string
}

// ImportAccountsCSV ingests accounts for ownerID from a CSV reader.
// Rows whose company already exists for the owner are skipped.
func (s *Store) ImportAccountsCSV(ctx context.Context, ownerID string, r io.Reader, loc *time.Location) (ImportResult, error) {
	result := ImportResult{}
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1
	header, err := reader.Read()
	if err != nil {
		return result, fmt.Errorf("read header: %w", err)
	}
	index := map[string]int{}
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(h))
		if key != "" {
			index[key] = i
		}
	}
	nameIdx, ok := index["company_name"]
	if !ok {
		nameIdx, ok = index["company"]
	}
	if !ok {
		return result, fmt.Errorf("csv missing 'company_name' column")
	}
	locUsed := loc
	if locUsed == nil {
		locUsed = time.Local
	}

	existing, err := s.ListAccounts(ctx, ownerID)
	if err != nil {
		return result, err
	}
	seen := make(map[string]struct{}, len(existing))
	for _, a := range existing {
		seen[strings.ToLower(strings.TrimSpace(a.CompanyName))] = struct{}{}
	}

	row := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		row++
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: %v", row, err))
			result.Skipped++
			continue
		}
		field := func(key string) string {
			if idx, ok := index[key]; ok && idx < len(record) {
				return strings.TrimSpace(record[idx])
			}
			return ""
		}
		if nameIdx >= len(record) {
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: missing company field", row))
			result.Skipped++
			continue
		}
		name := strings.TrimSpace(record[nameIdx])
		if name == "" {
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: company name required", row))
			result.Skipped++
			continue
		}
		if _, dup := seen[strings.ToLower(name)]; dup {
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: duplicate account '%s'", row, name))
			result.Skipped++
			continue
		}

		account := Account{
			CompanyName:    name,
			ServicesNeeded: field("services_needed"),
			Industry:       field("industry"),
			Website:        field("website"),
			CompanySize:    field("company_size"),
			LeadSource:     field("lead_source"),
			ContactName:    field("contact_name"),
			ContactTitle:   field("contact_title"),
			ContactEmail:   field("contact_email"),
			ContactPhone:   field("contact_phone"),
			Stage:          StageBusinessIntel,
			Value:          parseDecimal(field("value")),
			MonthlyValue:   parseDecimal(field("monthly_value")),
			DealScore:      DefaultDealScore,
		}
		if raw := field("stage"); raw != "" {
			stage, err := ParseStage(raw)
			if err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("row %d: %v", row, err))
				result.Skipped++
				continue
			}
			account.Stage = stage
		}
		switch account.Stage {
		case StageClosedWon:
			account.DealScore = 100
		case StageClosedLost:
			account.LostReason = field("lost_reason")
			if account.LostReason == "" {
				result.Errors = append(result.Errors, fmt.Sprintf("row %d: lost_reason required for %s", row, StageClosedLost))
				result.Skipped++
				continue
			}
			account.DealScore = 0
		}
		if t, ok := parseImportTime(field("expected_close_date"), locUsed); ok {
			account.ExpectedCloseDate = &t
		}
		if t, ok := parseImportTime(field("next_follow_up_date"), locUsed); ok {
			account.NextFollowUpDate = &t
		}
		if t, ok := parseImportTime(field("created_at"), locUsed); ok {
			account.CreatedAt = t
		}
		if err := s.CreateAccount(ctx, ownerID, &account); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: %v", row, err))
			result.Skipped++
			continue
		}
		seen[strings.ToLower(name)] = struct{}{}
		result.Created++
	}
	return result, nil
}

func parseImportTime(value string, loc *time.Location) (time.Time, bool) {
	if value == "" {
		return time.Time{}, false
	}
	layouts := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04",
		"2006-01-02",
	}
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, true
		}
	}
	if t, err := time.Parse(time.RFC1123, value); err == nil {
		return t.In(loc), true
	}
	return time.Time{}, false
}
