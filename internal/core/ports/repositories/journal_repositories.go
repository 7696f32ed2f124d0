package repositories

import (
	"context"
	"time"

	"github.com/finbook-oss/finbook_backend/internal/core/domain"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// JournalReader defines read operations for journal data.
type JournalReader interface {
	// FindJournalByID retrieves a specific journal by its unique identifier.
	FindJournalByID(ctx context.Context, journalID string) (*domain.Journal, error)

	// FindJournalByIDForUpdate retrieves a journal and locks its row within the
	// supplied transaction, serializing concurrent state transitions.
	FindJournalByIDForUpdate(ctx context.Context, tx pgx.Tx, journalID string) (*domain.Journal, error)

	// ListJournals retrieves a page of journals for an organization, most recent
	// first. Draft journals are excluded when postedOnly is set, which is the
	// read contract reporting consumers rely on.
	ListJournals(ctx context.Context, orgID string, limit int, offset int, postedOnly bool) ([]domain.Journal, error)
}

// JournalWriter defines write operations for journal data.
type JournalWriter interface {
	// SaveDraft persists a new DRAFT journal and its lines. No balances move.
	SaveDraft(ctx context.Context, journal domain.Journal, lines []domain.JournalLine) error

	// UpdateDraft replaces the mutable fields (and optionally lines) of a DRAFT journal.
	UpdateDraft(ctx context.Context, journal domain.Journal, lines []domain.JournalLine) error

	// DeleteDraft hard-deletes a DRAFT journal and its lines.
	DeleteDraft(ctx context.Context, journalID string) error

	// MarkPostedInTx flips a journal to POSTED within the supplied transaction.
	MarkPostedInTx(ctx context.Context, tx pgx.Tx, journalID string, userID string, now time.Time) error

	// SavePostedInTx persists a journal directly in POSTED status, with its
	// lines, within the supplied transaction. Used for reversing journals,
	// which are born posted.
	SavePostedInTx(ctx context.Context, tx pgx.Tx, journal domain.Journal, lines []domain.JournalLine) error

	// MarkReversedInTx flips a journal to REVERSED and records the reversal link
	// within the supplied transaction.
	MarkReversedInTx(ctx context.Context, tx pgx.Tx, journalID string, reversingJournalID string, userID string, now time.Time) error
}

// JournalLineReader defines read operations for journal lines.
type JournalLineReader interface {
	// FindLinesByJournalID retrieves all lines of a single journal.
	FindLinesByJournalID(ctx context.Context, journalID string) ([]domain.JournalLine, error)

	// FindLinesByJournalIDs retrieves lines for multiple journals, grouped by journal ID.
	FindLinesByJournalIDs(ctx context.Context, journalIDs []string) (map[string][]domain.JournalLine, error)

	// ListLinesByAccountID retrieves a page of lines recorded against an account.
	ListLinesByAccountID(ctx context.Context, orgID string, accountID string, limit int, offset int) ([]domain.JournalLine, error)
}

// JournalRepositoryFacade combines all journal-related repository interfaces.
type JournalRepositoryFacade interface {
	JournalReader
	JournalWriter
	JournalLineReader
}

// JournalRepositoryWithTx extends JournalRepositoryFacade with transaction capabilities.
type JournalRepositoryWithTx interface {
	JournalRepositoryFacade
	TransactionManager
}

// BalanceDeltas is the net signed balance change per account produced by
// posting or reversing one journal.
type BalanceDeltas = map[string]decimal.Decimal
