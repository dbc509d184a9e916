package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"leadboard/internal/storage"
)

// ErrMoveFailed is returned when a stage change could not be written.
var ErrMoveFailed = errors.New("failed to move account")

// MoveFailedMessage is shown to the user when a drop fails.
const MoveFailedMessage = "Failed to move account. Please try again."

// FieldUpdater applies a field-level patch to one account.
type FieldUpdater interface {
	UpdateFields(ctx context.Context, ownerID, id string, patch storage.Patch) error
}

// Move is a pending stage change produced by dropping a card.
type Move struct {
	AccountID string
	From      storage.Stage
	To        storage.Stage
}

// Apply writes the stage change as a single-field update. The board is
// not touched; it changes when the store's next snapshot arrives.
func (mv Move) Apply(ctx context.Context, store FieldUpdater, ownerID string) error {
	if err := store.UpdateFields(ctx, ownerID, mv.AccountID, storage.Patch{storage.FieldStage: mv.To}); err != nil {
		return fmt.Errorf("%w: %v", ErrMoveFailed, err)
	}
	return nil
}

// Board is the local view of the pipeline: the latest snapshot split into
// columns, its metrics, a cursor and an optional card being dragged.
type Board struct {
	columns  []Column
	metrics  Metrics
	loaded   bool
	col, row int
	dragging *storage.Account
}

// NewBoard returns an empty board with its cursor on the first column.
func NewBoard() *Board {
	b := &Board{}
	b.Reset()
	return b
}

// Reset clears everything, as on sign-out.
func (b *Board) Reset() {
	b.columns = Partition(nil)
	b.metrics = Compute(nil, time.Now())
	b.loaded = false
	b.col, b.row = 0, 0
	b.dragging = nil
}

// Apply replaces the board with a new snapshot. The cursor follows the
// selected account when it still exists.
func (b *Board) Apply(snapshot []storage.Account, now time.Time) {
	selectedID := ""
	if a := b.Selected(); a != nil {
		selectedID = a.ID
	}
	b.columns = Partition(snapshot)
	b.metrics = Compute(snapshot, now)
	b.loaded = true

	if selectedID != "" && !b.isDragging() {
		for ci, column := range b.columns {
			for ri, a := range column.Accounts {
				if a.ID == selectedID {
					b.col, b.row = ci, ri
					return
				}
			}
		}
	}
	b.clampRow()
}

// Loaded reports whether a snapshot has arrived since the last reset.
func (b *Board) Loaded() bool { return b.loaded }

// Columns returns the stage columns in board order.
func (b *Board) Columns() []Column { return b.columns }

// Metrics returns the aggregates of the latest snapshot.
func (b *Board) Metrics() Metrics { return b.metrics }

// Cursor returns the focused column and row.
func (b *Board) Cursor() (int, int) { return b.col, b.row }

// Selected returns the account under the cursor, or nil.
func (b *Board) Selected() *storage.Account {
	if b.col < 0 || b.col >= len(b.columns) {
		return nil
	}
	accounts := b.columns[b.col].Accounts
	if b.row < 0 || b.row >= len(accounts) {
		return nil
	}
	a := accounts[b.row]
	return &a
}

// MoveCursor shifts the cursor by the given column and row deltas.
func (b *Board) MoveCursor(dcol, drow int) {
	b.col += dcol
	if b.col < 0 {
		b.col = 0
	}
	if b.col >= len(b.columns) {
		b.col = len(b.columns) - 1
	}
	b.row += drow
	b.clampRow()
}

// PickUp starts dragging the selected card.
func (b *Board) PickUp() bool {
	a := b.Selected()
	if a == nil {
		return false
	}
	b.dragging = a
	return true
}

// Dragging returns the card being dragged.
func (b *Board) Dragging() (storage.Account, bool) {
	if b.dragging == nil {
		return storage.Account{}, false
	}
	return *b.dragging, true
}

// CancelDrag drops the card back where it came from.
func (b *Board) CancelDrag() {
	b.dragging = nil
}

// Drop releases the dragged card on the focused column. ok is false when
// nothing is dragged or the card is dropped on its own stage.
func (b *Board) Drop() (Move, bool) {
	if b.dragging == nil || b.col < 0 || b.col >= len(b.columns) {
		return Move{}, false
	}
	from := b.dragging
	b.dragging = nil
	target := b.columns[b.col].Stage
	if from.Stage == target {
		return Move{}, false
	}
	return Move{AccountID: from.ID, From: from.Stage, To: target}, true
}

func (b *Board) isDragging() bool { return b.dragging != nil }

func (b *Board) clampRow() {
	if b.col < 0 || b.col >= len(b.columns) {
		b.row = 0
		return
	}
	n := len(b.columns[b.col].Accounts)
	if b.row >= n {
		b.row = n - 1
	}
	if b.row < 0 {
		b.row = 0
	}
}
