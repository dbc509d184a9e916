package editor

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"leadboard/internal/ai"
	"leadboard/internal/storage"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) CreateAccount(ctx context.Context, ownerID string, a *storage.Account) error {
	args := m.Called(ctx, ownerID, a)
	if args.Error(0) == nil {
		a.ID = "new-id"
		a.OwnerID = ownerID
	}
	return args.Error(0)
}

func (m *mockStore) UpdateAccount(ctx context.Context, ownerID string, a *storage.Account) error {
	return m.Called(ctx, ownerID, a).Error(0)
}

func (m *mockStore) UpdateFields(ctx context.Context, ownerID, id string, patch storage.Patch) error {
	return m.Called(ctx, ownerID, id, patch).Error(0)
}

func (m *mockStore) DeleteAccount(ctx context.Context, ownerID, id string) error {
	return m.Called(ctx, ownerID, id).Error(0)
}

type stubGenerator struct {
	replies map[string]string
	err     error
	calls   []ai.Request
}

func (g *stubGenerator) Generate(_ context.Context, req ai.Request) (string, error) {
	g.calls = append(g.calls, req)
	if g.err != nil {
		return "", g.err
	}
	return g.replies[req.Feature], nil
}

func newService(store Store, gen Generator) *Service {
	return NewService(store, gen, time.UTC, zerolog.Nop())
}

func TestSaveNewAccountUsesDefaults(t *testing.T) {
	store := new(mockStore)
	gen := &stubGenerator{}
	store.On("CreateAccount", mock.Anything, "owner-1", mock.MatchedBy(func(a *storage.Account) bool {
		return a.CompanyName == "Acme" &&
			a.Stage == storage.StageBusinessIntel &&
			a.DealScore == 50 &&
			len(a.Notes) == 0 && a.Notes != nil &&
			a.Value.Equal(decimal.NewFromInt(1000)) &&
			a.MonthlyValue.Equal(decimal.NewFromInt(100))
	})).Return(nil).Once()

	form := NewForm(nil, time.UTC)
	form.CompanyName = "Acme"
	form.Value = "1000"
	form.MonthlyValue = "100"

	saved, err := newService(store, gen).Save(context.Background(), "owner-1", form)
	require.NoError(t, err)
	assert.Equal(t, "new-id", saved.ID)
	assert.Equal(t, 50, saved.DealScore)
	assert.Empty(t, gen.calls)
	store.AssertExpectations(t)
}

func TestSaveTerminalStagesFixScore(t *testing.T) {
	gen := &stubGenerator{replies: map[string]string{ai.FeatureScore: "73"}}
	for stage, want := range map[storage.Stage]int{storage.StageClosedWon: 100, storage.StageClosedLost: 0} {
		store := new(mockStore)
		store.On("UpdateAccount", mock.Anything, "owner-1", mock.MatchedBy(func(a *storage.Account) bool {
			return a.DealScore == want
		})).Return(nil).Once()

		form := NewForm(&storage.Account{ID: "acc-1", CompanyName: "Acme", Stage: stage}, time.UTC)
		form.LostReason = "went with a competitor"
		saved, err := newService(store, gen).Save(context.Background(), "owner-1", form)
		require.NoError(t, err)
		assert.Equal(t, want, saved.DealScore)
		store.AssertExpectations(t)
	}
	assert.Empty(t, gen.calls)
}

func TestSaveExistingAccountAsksForScore(t *testing.T) {
	store := new(mockStore)
	gen := &stubGenerator{replies: map[string]string{ai.FeatureScore: "Probability: 82"}}
	store.On("UpdateAccount", mock.Anything, "owner-1", mock.Anything).Return(nil).Once()

	form := NewForm(&storage.Account{ID: "acc-1", CompanyName: "Acme", Stage: storage.StageNegotiation}, time.UTC)
	saved, err := newService(store, gen).Save(context.Background(), "owner-1", form)
	require.NoError(t, err)
	assert.Equal(t, 82, saved.DealScore)
	require.Len(t, gen.calls, 1)
	assert.Equal(t, ai.FeatureScore, gen.calls[0].Feature)
}

func TestSaveScoreFallsBackWhenAIFails(t *testing.T) {
	store := new(mockStore)
	store.On("UpdateAccount", mock.Anything, "owner-1", mock.Anything).Return(nil).Once()
	form := NewForm(&storage.Account{ID: "acc-1", CompanyName: "Acme", Stage: storage.StageContacted}, time.UTC)
	saved, err := newService(store, &stubGenerator{err: errors.New("unreachable")}).Save(context.Background(), "owner-1", form)
	require.NoError(t, err)
	assert.Equal(t, storage.DefaultDealScore, saved.DealScore)
}

func TestSaveClosedLostNeedsReasonBeforeAnyWrite(t *testing.T) {
	store := new(mockStore)
	gen := &stubGenerator{}
	form := NewForm(&storage.Account{ID: "acc-1", CompanyName: "Acme", Stage: storage.StageNegotiation}, time.UTC)
	form.Stage = storage.StageClosedLost
	form.LostReason = "   "

	_, err := newService(store, gen).Save(context.Background(), "owner-1", form)
	assert.True(t, errors.Is(err, ErrLostReasonRequired))
	store.AssertNotCalled(t, "UpdateAccount", mock.Anything, mock.Anything, mock.Anything)
	store.AssertNotCalled(t, "CreateAccount", mock.Anything, mock.Anything, mock.Anything)
	assert.Empty(t, gen.calls)
}

func TestSaveRejectsBadInput(t *testing.T) {
	store := new(mockStore)
	svc := newService(store, &stubGenerator{})

	_, err := svc.Save(context.Background(), "owner-1", NewForm(nil, time.UTC))
	assert.True(t, errors.Is(err, ErrCompanyRequired))

	form := NewForm(nil, time.UTC)
	form.CompanyName = "Acme"
	form.NextFollowUpDate = "next tuesday"
	_, err = svc.Save(context.Background(), "owner-1", form)
	assert.True(t, errors.Is(err, ErrInvalidDate))
	store.AssertNotCalled(t, "CreateAccount", mock.Anything, mock.Anything, mock.Anything)
}

func TestSaveInvalidDateSkipsScoring(t *testing.T) {
	store := new(mockStore)
	gen := &stubGenerator{replies: map[string]string{ai.FeatureScore: "80"}}

	form := NewForm(&storage.Account{ID: "acc-1", CompanyName: "Acme", Stage: storage.StageNewLeads}, time.UTC)
	form.NextFollowUpDate = "next tuesday"
	_, err := newService(store, gen).Save(context.Background(), "owner-1", form)
	assert.True(t, errors.Is(err, ErrInvalidDate))
	assert.Empty(t, gen.calls)
	store.AssertNotCalled(t, "UpdateAccount", mock.Anything, mock.Anything, mock.Anything)
}

func TestSaveConvertsDatesInLocation(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	store := new(mockStore)
	store.On("CreateAccount", mock.Anything, "owner-1", mock.MatchedBy(func(a *storage.Account) bool {
		return a.NextFollowUpDate != nil &&
			a.NextFollowUpDate.Equal(time.Date(2026, 10, 20, 0, 0, 0, 0, loc)) &&
			a.ExpectedCloseDate == nil
	})).Return(nil).Once()

	form := NewForm(nil, loc)
	form.CompanyName = "Acme"
	form.NextFollowUpDate = "2026-10-20"
	_, err := NewService(store, &stubGenerator{}, loc, zerolog.Nop()).Save(context.Background(), "owner-1", form)
	require.NoError(t, err)
	store.AssertExpectations(t)
}

func TestSaveStoreFailureKeepsError(t *testing.T) {
	store := new(mockStore)
	store.On("CreateAccount", mock.Anything, "owner-1", mock.Anything).Return(errors.New("disk full"))
	form := NewForm(nil, time.UTC)
	form.CompanyName = "Acme"
	_, err := newService(store, &stubGenerator{}).Save(context.Background(), "owner-1", form)
	assert.Error(t, err)
}

func TestParseAmount(t *testing.T) {
	assert.True(t, ParseAmount("$1,250.50").Equal(decimal.RequireFromString("1250.50")))
	assert.True(t, ParseAmount("abc").IsZero())
	assert.True(t, ParseAmount("").IsZero())
}

func TestDraftEmailFallback(t *testing.T) {
	svc := newService(new(mockStore), &stubGenerator{err: errors.New("connection refused")})
	form := NewForm(nil, time.UTC)
	assert.Equal(t, "Failed to generate email draft. Please try again.", svc.DraftEmail(context.Background(), form))
	assert.Equal(t, AgendaFallback, svc.Agenda(context.Background(), form))
}

func TestDraftEmailReturnsReply(t *testing.T) {
	gen := &stubGenerator{replies: map[string]string{ai.FeatureEmail: "\nSubject: Hi\n\nHello Jo\n"}}
	svc := newService(new(mockStore), gen)
	form := NewForm(nil, time.UTC)
	form.Notes = []storage.Note{{Text: "Asked for pricing", Sentiment: storage.SentimentPositive}}
	assert.Equal(t, "Subject: Hi\n\nHello Jo", svc.DraftEmail(context.Background(), form))
	assert.Contains(t, gen.calls[0].Parts[0].Text, "Asked for pricing")
}

func writeCard(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "card.png")
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	require.NoError(t, os.WriteFile(path, png, 0o600))
	return path
}

func TestScanCardMalformedJSONIsSilent(t *testing.T) {
	var logs bytes.Buffer
	gen := &stubGenerator{replies: map[string]string{ai.FeatureCard: "{companyName: Acme"}}
	svc := NewService(new(mockStore), gen, time.UTC, zerolog.New(&logs))

	form := NewForm(nil, time.UTC)
	form.CompanyName = "Original"
	form.ContactEmail = "jo@original.io"
	before := form

	card, err := svc.ScanCard(context.Background(), writeCard(t))
	require.NoError(t, err)
	form.MergeCard(card)

	assert.Equal(t, before, form)
	assert.Contains(t, logs.String(), `"level":"error"`)
	assert.Contains(t, logs.String(), "business card")
	require.Len(t, gen.calls, 1)
	assert.Equal(t, "image/png", gen.calls[0].Parts[1].MimeType)
}

func TestScanCardMergesFields(t *testing.T) {
	gen := &stubGenerator{replies: map[string]string{ai.FeatureCard: `{"companyName":"Acme","contactName":"Jo","contactEmail":"","website":"acme.io"}`}}
	svc := newService(new(mockStore), gen)
	form := NewForm(nil, time.UTC)
	form.ContactEmail = "kept@acme.io"

	card, err := svc.ScanCard(context.Background(), writeCard(t))
	require.NoError(t, err)
	form.MergeCard(card)
	assert.Equal(t, "Acme", form.CompanyName)
	assert.Equal(t, "Jo", form.ContactName)
	assert.Equal(t, "kept@acme.io", form.ContactEmail)
	assert.Equal(t, "acme.io", form.Website)
}

func TestScanCardRejectsNonImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "card.txt")
	require.NoError(t, os.WriteFile(path, []byte("plain text"), 0o600))
	gen := &stubGenerator{}
	_, err := newService(new(mockStore), gen).ScanCard(context.Background(), path)
	assert.Error(t, err)
	assert.Empty(t, gen.calls)
}

func TestExtractAccountMerges(t *testing.T) {
	gen := &stubGenerator{replies: map[string]string{ai.FeatureExtraction: `{"companyName":"Globex","servicesNeeded":"SEO","value":12000,"monthlyValue":1500.5}`}}
	x, err := newService(new(mockStore), gen).ExtractAccount(context.Background(), "Globex wants SEO")
	require.NoError(t, err)

	form := NewForm(nil, time.UTC)
	form.ContactName = "Hank"
	form.MergeExtraction(x)
	assert.Equal(t, "Globex", form.CompanyName)
	assert.Equal(t, "SEO", form.ServicesNeeded)
	assert.Equal(t, "12000", form.Value)
	assert.Equal(t, "1500.5", form.MonthlyValue)
	assert.Equal(t, "Hank", form.ContactName)
}

func TestStructureNote(t *testing.T) {
	gen := &stubGenerator{replies: map[string]string{ai.FeatureNote: `{"summary":["Demo went well"],"actionItems":["Send pricing"],"concerns":[],"sentiment":"positive"}`}}
	text, sentiment, err := newService(new(mockStore), gen).StructureNote(context.Background(), "demo went well send pricing")
	require.NoError(t, err)
	assert.Equal(t, "positive", sentiment)
	assert.Equal(t, "**Summary**\n- Demo went well\n\n**Action Items**\n- Send pricing\n\nSentiment: positive", text)
}

func TestAppendNotePatchesSavedAccount(t *testing.T) {
	store := new(mockStore)
	now := time.Date(2026, 10, 18, 10, 0, 0, 0, time.UTC)
	existing := []storage.Note{{Text: "first", Timestamp: now.Add(-time.Hour)}}
	want := append(append([]storage.Note{}, existing...), storage.Note{Text: "second", Timestamp: now, Sentiment: "neutral"})
	store.On("UpdateFields", mock.Anything, "owner-1", "acc-1", storage.Patch{storage.FieldNotes: want}).Return(nil).Once()

	svc := newService(store, &stubGenerator{})
	svc.now = func() time.Time { return now }
	form := NewForm(&storage.Account{ID: "acc-1", CompanyName: "Acme", Stage: storage.StageContacted, Notes: existing}, time.UTC)

	require.NoError(t, svc.AppendNote(context.Background(), "owner-1", &form, "  second ", "neutral"))
	assert.Equal(t, want, form.Notes)
	store.AssertExpectations(t)
}

func TestAppendNoteStaysLocalForNewAccount(t *testing.T) {
	store := new(mockStore)
	svc := newService(store, &stubGenerator{})
	form := NewForm(nil, time.UTC)
	require.NoError(t, svc.AppendNote(context.Background(), "owner-1", &form, "hello", ""))
	assert.Len(t, form.Notes, 1)
	store.AssertNotCalled(t, "UpdateFields", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	assert.True(t, errors.Is(svc.AppendNote(context.Background(), "owner-1", &form, " ", ""), ErrEmptyNote))
}

func TestEditNoteFailureLeavesForm(t *testing.T) {
	store := new(mockStore)
	store.On("UpdateFields", mock.Anything, "owner-1", "acc-1", mock.Anything).Return(errors.New("locked"))
	form := NewForm(&storage.Account{ID: "acc-1", CompanyName: "Acme", Stage: storage.StageContacted, Notes: []storage.Note{{Text: "old"}}}, time.UTC)

	err := newService(store, &stubGenerator{}).EditNote(context.Background(), "owner-1", &form, 0, "new")
	assert.Error(t, err)
	assert.Equal(t, "old", form.Notes[0].Text)
}

func TestDeleteNeedsConfirmation(t *testing.T) {
	created := NewSession(nil, time.UTC)
	assert.False(t, created.ArmDelete())
	assert.False(t, created.ConfirmDelete())

	s := NewSession(&storage.Account{ID: "acc-1", CompanyName: "Acme", Stage: storage.StageNewLeads}, time.UTC)
	assert.False(t, s.ConfirmDelete())
	require.True(t, s.ArmDelete())
	s.CancelDelete()
	assert.False(t, s.ConfirmDelete())

	require.True(t, s.ArmDelete())
	assert.True(t, s.DeleteArmed())
	assert.True(t, s.ConfirmDelete())
	assert.False(t, s.DeleteArmed())

	store := new(mockStore)
	store.On("DeleteAccount", mock.Anything, "owner-1", "acc-1").Return(nil).Once()
	require.NoError(t, newService(store, &stubGenerator{}).Delete(context.Background(), "owner-1", s.Form.ID))
	store.AssertExpectations(t)
}
