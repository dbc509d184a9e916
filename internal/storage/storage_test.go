package storage

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenPath(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func newOwner(t *testing.T, store *Store, email string) string {
	t.Helper()
	u := &User{Email: email, PasswordHash: "x", DisplayName: "Owner"}
	require.NoError(t, store.CreateUser(context.Background(), u))
	return u.ID
}

func recvSnapshot(t *testing.T, ch <-chan []Account) []Account {
	t.Helper()
	select {
	case snap, ok := <-ch:
		require.True(t, ok, "subscription closed")
		return snap
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot delivered")
	}
	return nil
}

type recordingObserver struct {
	ops  []string
	errs []error
}

func (r *recordingObserver) ObserveWrite(op string, err error) {
	r.ops = append(r.ops, op)
	r.errs = append(r.errs, err)
}

func TestCreateAccountAppliesDefaults(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	owner := newOwner(t, store, "a@example.com")

	account := Account{CompanyName: "Acme", Value: decimal.NewFromInt(1000), MonthlyValue: decimal.NewFromInt(100), DealScore: DefaultDealScore}
	require.NoError(t, store.CreateAccount(ctx, owner, &account))
	assert.NotEmpty(t, account.ID)

	accounts, err := store.ListAccounts(ctx, owner)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	got := accounts[0]
	assert.Equal(t, StageBusinessIntel, got.Stage)
	assert.Equal(t, 50, got.DealScore)
	assert.Empty(t, got.Notes)
	assert.NotNil(t, got.Notes)
	assert.True(t, got.Value.Equal(decimal.NewFromInt(1000)))
	assert.True(t, got.MonthlyValue.Equal(decimal.NewFromInt(100)))
	assert.Nil(t, got.NextFollowUpDate)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestCreateAccountRejectsInvalidStage(t *testing.T) {
	store := newTestStore(t)
	owner := newOwner(t, store, "a@example.com")
	err := store.CreateAccount(context.Background(), owner, &Account{CompanyName: "Acme", Stage: "Somewhere"})
	assert.True(t, errors.Is(err, ErrInvalidStage))
}

func TestUpdateAccountRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	owner := newOwner(t, store, "a@example.com")
	account := Account{CompanyName: "Acme"}
	require.NoError(t, store.CreateAccount(ctx, owner, &account))

	follow := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	account.Stage = StageClosedLost
	account.LostReason = "Budget"
	account.NextFollowUpDate = &follow
	account.Notes = []Note{{Text: "call back", Timestamp: follow, Sentiment: SentimentNeutral}}
	account.DealScore = 0
	require.NoError(t, store.UpdateAccount(ctx, owner, &account))

	got, err := store.AccountByID(ctx, owner, account.ID)
	require.NoError(t, err)
	assert.Equal(t, StageClosedLost, got.Stage)
	assert.Equal(t, "Budget", got.LostReason)
	require.NotNil(t, got.NextFollowUpDate)
	assert.True(t, got.NextFollowUpDate.Equal(follow))
	require.Len(t, got.Notes, 1)
	assert.Equal(t, "call back", got.Notes[0].Text)
	assert.Equal(t, SentimentNeutral, got.Notes[0].Sentiment)
}

func TestUpdateFieldsPatchesOnlyNamedColumns(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	owner := newOwner(t, store, "a@example.com")
	account := Account{CompanyName: "Acme", Stage: StageNewLeads, ContactName: "Jo"}
	require.NoError(t, store.CreateAccount(ctx, owner, &account))

	require.NoError(t, store.UpdateFields(ctx, owner, account.ID, Patch{FieldStage: StageQualified}))
	got, err := store.AccountByID(ctx, owner, account.ID)
	require.NoError(t, err)
	assert.Equal(t, StageQualified, got.Stage)
	assert.Equal(t, "Jo", got.ContactName)

	err = store.UpdateFields(ctx, owner, account.ID, Patch{FieldStage: Stage("Nope")})
	assert.True(t, errors.Is(err, ErrInvalidStage))
	err = store.UpdateFields(ctx, owner, account.ID, Patch{"website": "x"})
	assert.True(t, errors.Is(err, ErrUnknownField))
}

func TestAccountsAreScopedToOwner(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	alice := newOwner(t, store, "alice@example.com")
	bob := newOwner(t, store, "bob@example.com")
	account := Account{CompanyName: "Acme"}
	require.NoError(t, store.CreateAccount(ctx, alice, &account))

	accounts, err := store.ListAccounts(ctx, bob)
	require.NoError(t, err)
	assert.Empty(t, accounts)

	err = store.UpdateFields(ctx, bob, account.ID, Patch{FieldStage: StageContacted})
	assert.True(t, errors.Is(err, ErrNotFound))
	err = store.DeleteAccount(ctx, bob, account.ID)
	assert.True(t, errors.Is(err, ErrNotFound))

	require.NoError(t, store.DeleteAccount(ctx, alice, account.ID))
	_, err = store.AccountByID(ctx, alice, account.ID)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestSubscribeDeliversSnapshotsInWriteOrder(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	owner := newOwner(t, store, "a@example.com")

	ch, cancel, err := store.Subscribe(ctx, owner)
	require.NoError(t, err)
	assert.Empty(t, recvSnapshot(t, ch))

	account := Account{CompanyName: "Acme"}
	require.NoError(t, store.CreateAccount(ctx, owner, &account))
	snap := recvSnapshot(t, ch)
	require.Len(t, snap, 1)
	assert.Equal(t, StageBusinessIntel, snap[0].Stage)

	require.NoError(t, store.UpdateFields(ctx, owner, account.ID, Patch{FieldStage: StageNewLeads}))
	snap = recvSnapshot(t, ch)
	require.Len(t, snap, 1)
	assert.Equal(t, StageNewLeads, snap[0].Stage)

	cancel()
	cancel()
	_, ok := <-ch
	assert.False(t, ok)
}

func TestSubscribeIgnoresOtherOwners(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	alice := newOwner(t, store, "alice@example.com")
	bob := newOwner(t, store, "bob@example.com")

	ch, cancel, err := store.Subscribe(ctx, alice)
	require.NoError(t, err)
	defer cancel()
	recvSnapshot(t, ch)

	require.NoError(t, store.CreateAccount(ctx, bob, &Account{CompanyName: "Other"}))
	select {
	case snap := <-ch:
		t.Fatalf("unexpected snapshot %v", snap)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestObserverSeesWrites(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	obs := &recordingObserver{}
	store.SetObserver(obs)
	owner := newOwner(t, store, "a@example.com")

	account := Account{CompanyName: "Acme"}
	require.NoError(t, store.CreateAccount(ctx, owner, &account))
	_ = store.DeleteAccount(ctx, owner, "missing")

	assert.Equal(t, []string{"create", "delete"}, obs.ops)
	assert.NoError(t, obs.errs[0])
	assert.True(t, errors.Is(obs.errs[1], ErrNotFound))
}

func TestPublishFailureIsObserved(t *testing.T) {
	store := newTestStore(t)
	owner := newOwner(t, store, "a@example.com")
	ch, cancel, err := store.Subscribe(context.Background(), owner)
	require.NoError(t, err)
	defer cancel()
	recvSnapshot(t, ch)
	obs := &recordingObserver{}
	store.SetObserver(obs)

	ctx, stop := context.WithCancel(context.Background())
	stop()
	store.publish(ctx, owner)

	require.Equal(t, []string{"publish"}, obs.ops)
	assert.Error(t, obs.errs[0])
	select {
	case snap := <-ch:
		t.Fatalf("unexpected snapshot %v", snap)
	default:
	}
}

func TestUserLifecycle(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	u := &User{Email: " Jo@Example.com ", PasswordHash: "hash", DisplayName: "Jo"}
	require.NoError(t, store.CreateUser(ctx, u))

	err := store.CreateUser(ctx, &User{Email: "jo@example.com", PasswordHash: "hash"})
	assert.True(t, errors.Is(err, ErrUserExists))

	got, err := store.UserByEmail(ctx, "JO@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	require.NoError(t, store.UpdateDisplayName(ctx, u.ID, "Jo Smith"))
	got, err = store.UserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Jo Smith", got.DisplayName)

	_, err = store.UserByEmail(ctx, "nobody@example.com")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestImportAccountsCSV(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	owner := newOwner(t, store, "a@example.com")
	require.NoError(t, store.CreateAccount(ctx, owner, &Account{CompanyName: "Existing"}))

	csvData := strings.Join([]string{
		"company_name,contact_email,value,stage,next_follow_up_date",
		"Acme,jo@acme.test,1200,New Leads,2026-06-01",
		"existing,,,,",
		",missing@name.test,,,",
		"Globex,,,Somewhere,",
	}, "\n")
	result, err := store.ImportAccountsCSV(ctx, owner, strings.NewReader(csvData), time.UTC)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Created)
	assert.Equal(t, 3, result.Skipped)
	assert.Len(t, result.Errors, 3)

	accounts, err := store.ListAccounts(ctx, owner)
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	acme := accounts[1]
	assert.Equal(t, "Acme", acme.CompanyName)
	assert.Equal(t, StageNewLeads, acme.Stage)
	assert.True(t, acme.Value.Equal(decimal.NewFromInt(1200)))
	require.NotNil(t, acme.NextFollowUpDate)
}

func TestImportAccountsCSVTerminalStages(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	owner := newOwner(t, store, "a@example.com")

	csvData := strings.Join([]string{
		"company_name,stage,lost_reason",
		"WonCo,Closed Won,",
		"LostCo,Closed Lost,went with a competitor",
		"NoReasonCo,Closed Lost,",
	}, "\n")
	result, err := store.ImportAccountsCSV(ctx, owner, strings.NewReader(csvData), time.UTC)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Created)
	assert.Equal(t, 1, result.Skipped)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "lost_reason")

	accounts, err := store.ListAccounts(ctx, owner)
	require.NoError(t, err)
	byName := map[string]Account{}
	for _, a := range accounts {
		byName[a.CompanyName] = a
	}
	require.Len(t, byName, 2)
	assert.Equal(t, 100, byName["WonCo"].DealScore)
	assert.Equal(t, 0, byName["LostCo"].DealScore)
	assert.Equal(t, "went with a competitor", byName["LostCo"].LostReason)
}

func TestImportAccountsCSVRequiresCompanyColumn(t *testing.T) {
	store := newTestStore(t)
	owner := newOwner(t, store, "a@example.com")
	_, err := store.ImportAccountsCSV(context.Background(), owner, strings.NewReader("name\nAcme\n"), nil)
	assert.Error(t, err)
}

func TestParseStage(t *testing.T) {
	stage, err := ParseStage(" closed won ")
	require.NoError(t, err)
	assert.Equal(t, StageClosedWon, stage)
	_, err = ParseStage("won")
	assert.True(t, errors.Is(err, ErrInvalidStage))

	assert.False(t, StageBusinessIntel.Active())
	assert.False(t, StageClosedWon.Active())
	assert.False(t, StageClosedLost.Active())
	assert.True(t, StageNegotiation.Active())
	assert.Len(t, Stages, 9)
}
