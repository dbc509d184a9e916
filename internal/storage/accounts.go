package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const accountColumns = `id, owner_id, company_name, services_needed, industry, website, company_size, lead_source,
        contact_name, contact_title, contact_email, contact_phone, stage, value, monthly_value, deal_score,
        expected_close_date, next_follow_up_date, notes, lost_reason, created_at, updated_at`

// ListAccounts loads every account owned by ownerID, oldest first.
func (s *Store) ListAccounts(ctx context.Context, ownerID string) ([]Account, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE owner_id = ? ORDER BY created_at, id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("query accounts: %w", err)
	}
	defer rows.Close()

	accounts := []Account{}
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("accounts rows: %w", err)
	}
	return accounts, nil
}

// AccountByID retrieves one of ownerID's accounts.
func (s *Store) AccountByID(ctx context.Context, ownerID, id string) (*Account, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE owner_id = ? AND id = ?`, ownerID, id)
	account, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get account: %w", err)
	}
	return &account, nil
}

// CreateAccount inserts a new account for ownerID and assigns its ID.
func (s *Store) CreateAccount(ctx context.Context, ownerID string, a *Account) (err error) {
	defer func() { s.observe("create", err) }()
	if a == nil {
		return fmt.Errorf("nil account")
	}
	if strings.TrimSpace(a.CompanyName) == "" {
		return fmt.Errorf("company name required")
	}
	if a.Stage == "" {
		a.Stage = StageBusinessIntel
	}
	if !a.Stage.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStage, a.Stage)
	}
	notes, err := encodeNotes(a.Notes)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now
	a.ID = newID()
	a.OwnerID = ownerID

	_, err = s.db.ExecContext(ctx, `INSERT INTO accounts (`+accountColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, ownerID, strings.TrimSpace(a.CompanyName), nullString(a.ServicesNeeded), nullString(a.Industry), nullString(a.Website),
		nullString(a.CompanySize), nullString(a.LeadSource), nullString(a.ContactName), nullString(a.ContactTitle),
		nullString(a.ContactEmail), nullString(a.ContactPhone), string(a.Stage), a.Value.String(), a.MonthlyValue.String(),
		a.DealScore, nullTime(a.ExpectedCloseDate), nullTime(a.NextFollowUpDate), notes, nullString(a.LostReason),
		a.CreatedAt.UTC().Format(time.RFC3339), a.UpdatedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("insert account: %w", err)
	}
	s.publish(ctx, ownerID)
	return nil
}

// UpdateAccount persists every editable field of an existing account.
func (s *Store) UpdateAccount(ctx context.Context, ownerID string, a *Account) (err error) {
	defer func() { s.observe("update", err) }()
	if a == nil {
		return fmt.Errorf("nil account")
	}
	if strings.TrimSpace(a.CompanyName) == "" {
		return fmt.Errorf("company name required")
	}
	if !a.Stage.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStage, a.Stage)
	}
	notes, err := encodeNotes(a.Notes)
	if err != nil {
		return err
	}
	a.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `UPDATE accounts SET company_name = ?, services_needed = ?, industry = ?, website = ?,
            company_size = ?, lead_source = ?, contact_name = ?, contact_title = ?, contact_email = ?, contact_phone = ?,
            stage = ?, value = ?, monthly_value = ?, deal_score = ?, expected_close_date = ?, next_follow_up_date = ?,
            notes = ?, lost_reason = ?, updated_at = ?
        WHERE owner_id = ? AND id = ?`,
		strings.TrimSpace(a.CompanyName), nullString(a.ServicesNeeded), nullString(a.Industry), nullString(a.Website),
		nullString(a.CompanySize), nullString(a.LeadSource), nullString(a.ContactName), nullString(a.ContactTitle),
		nullString(a.ContactEmail), nullString(a.ContactPhone), string(a.Stage), a.Value.String(), a.MonthlyValue.String(),
		a.DealScore, nullTime(a.ExpectedCloseDate), nullTime(a.NextFollowUpDate), notes, nullString(a.LostReason),
		a.UpdatedAt.Format(time.RFC3339), ownerID, a.ID)
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	if err := requireAffected(res); err != nil {
		return err
	}
	s.publish(ctx, ownerID)
	return nil
}

// UpdateFields applies a field-level patch to one account.
func (s *Store) UpdateFields(ctx context.Context, ownerID, id string, patch Patch) (err error) {
	defer func() { s.observe("patch", err) }()
	if len(patch) == 0 {
		return nil
	}
	sets := make([]string, 0, len(patch)+1)
	args := make([]any, 0, len(patch)+3)
	for field, value := range patch {
		column, arg, err := patchColumn(field, value)
		if err != nil {
			return err
		}
		sets = append(sets, column+" = ?")
		args = append(args, arg)
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, time.Now().UTC().Format(time.RFC3339), ownerID, id)

	res, err := s.db.ExecContext(ctx, `UPDATE accounts SET `+strings.Join(sets, ", ")+` WHERE owner_id = ? AND id = ?`, args...)
	if err != nil {
		return fmt.Errorf("patch account: %w", err)
	}
	if err := requireAffected(res); err != nil {
		return err
	}
	s.publish(ctx, ownerID)
	return nil
}

// DeleteAccount removes one of ownerID's accounts.
func (s *Store) DeleteAccount(ctx context.Context, ownerID, id string) (err error) {
	defer func() { s.observe("delete", err) }()
	res, err := s.db.ExecContext(ctx, `DELETE FROM accounts WHERE owner_id = ? AND id = ?`, ownerID, id)
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	if err := requireAffected(res); err != nil {
		return err
	}
	s.publish(ctx, ownerID)
	return nil
}

func patchColumn(field string, value any) (string, any, error) {
	switch field {
	case FieldStage:
		stage, ok := value.(Stage)
		if !ok || !stage.Valid() {
			return "", nil, fmt.Errorf("%w: %v", ErrInvalidStage, value)
		}
		return "stage", string(stage), nil
	case FieldNotes:
		notes, ok := value.([]Note)
		if !ok {
			return "", nil, fmt.Errorf("notes patch: unexpected %T", value)
		}
		encoded, err := encodeNotes(notes)
		return "notes", encoded, err
	case FieldDealScore:
		score, ok := value.(int)
		if !ok {
			return "", nil, fmt.Errorf("deal score patch: unexpected %T", value)
		}
		return "deal_score", score, nil
	case FieldNextFollowUpDate:
		t, ok := value.(*time.Time)
		if !ok {
			return "", nil, fmt.Errorf("follow-up patch: unexpected %T", value)
		}
		return "next_follow_up_date", nullTime(t), nil
	case FieldLostReason:
		reason, ok := value.(string)
		if !ok {
			return "", nil, fmt.Errorf("lost reason patch: unexpected %T", value)
		}
		return "lost_reason", nullString(reason), nil
	}
	return "", nil, fmt.Errorf("%w: %q", ErrUnknownField, field)
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func encodeNotes(notes []Note) (string, error) {
	if notes == nil {
		notes = []Note{}
	}
	bytes, err := json.Marshal(notes)
	if err != nil {
		return "", fmt.Errorf("encode notes: %w", err)
	}
	return string(bytes), nil
}

func scanAccount(rs rowScanner) (Account, error) {
	var a Account
	var services, industry, website, size, source sql.NullString
	var contactName, contactTitle, contactEmail, contactPhone sql.NullString
	var stage, value, monthly, notes, created, updated string
	var expected, followUp, lost sql.NullString
	if err := rs.Scan(&a.ID, &a.OwnerID, &a.CompanyName, &services, &industry, &website, &size, &source,
		&contactName, &contactTitle, &contactEmail, &contactPhone, &stage, &value, &monthly, &a.DealScore,
		&expected, &followUp, &notes, &lost, &created, &updated); err != nil {
		return Account{}, err
	}
	a.ServicesNeeded = nullStringToString(services)
	a.Industry = nullStringToString(industry)
	a.Website = nullStringToString(website)
	a.CompanySize = nullStringToString(size)
	a.LeadSource = nullStringToString(source)
	a.ContactName = nullStringToString(contactName)
	a.ContactTitle = nullStringToString(contactTitle)
	a.ContactEmail = nullStringToString(contactEmail)
	a.ContactPhone = nullStringToString(contactPhone)
	a.Stage = Stage(stage)
	a.Value = parseDecimal(value)
	a.MonthlyValue = parseDecimal(monthly)
	a.ExpectedCloseDate = parseNullTime(expected)
	a.NextFollowUpDate = parseNullTime(followUp)
	a.LostReason = nullStringToString(lost)
	a.Notes = []Note{}
	if notes != "" {
		if err := json.Unmarshal([]byte(notes), &a.Notes); err != nil {
			return Account{}, fmt.Errorf("decode notes: %w", err)
		}
	}
	if t, err := time.Parse(time.RFC3339, created); err == nil {
		a.CreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339, updated); err == nil {
		a.UpdatedAt = t
	}
	return a, nil
}

func parseDecimal(value string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return decimal.Zero
	}
	return d
}
