package pgsql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/finbook-oss/finbook_backend/internal/apperrors"
	"github.com/finbook-oss/finbook_backend/internal/core/domain"
	portsrepo "github.com/finbook-oss/finbook_backend/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const journalColumns = `journal_id, organization_id, journal_date, reference, description, status, original_journal_id, reversing_journal_id, amount, created_at, created_by, last_updated_at, last_updated_by`

const journalLineColumns = `line_id, journal_id, account_id, debit, credit, narration, created_at, created_by, last_updated_at, last_updated_by`

// PgxJournalRepository persists journals and their lines in PostgreSQL.
type PgxJournalRepository struct {
	BaseRepository
}

// newPgxJournalRepository creates a new repository for journal data.
func newPgxJournalRepository(pool *pgxpool.Pool) portsrepo.JournalRepositoryWithTx {
	return &PgxJournalRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.JournalRepositoryWithTx = (*PgxJournalRepository)(nil)

// scanJournal scans one journal row in journalColumns order.
func scanJournal(row pgxRow) (*domain.Journal, error) {
	var j domain.Journal
	var reference, originalID, reversingID sql.NullString
	err := row.Scan(
		&j.JournalID,
		&j.OrganizationID,
		&j.JournalDate,
		&reference,
		&j.Description,
		&j.Status,
		&originalID,
		&reversingID,
		&j.Amount,
		&j.CreatedAt,
		&j.CreatedBy,
		&j.LastUpdatedAt,
		&j.LastUpdatedBy,
	)
	if err != nil {
		return nil, err
	}
	if reference.Valid {
		j.Reference = &reference.String
	}
	if originalID.Valid {
		j.OriginalJournalID = &originalID.String
	}
	if reversingID.Valid {
		j.ReversingJournalID = &reversingID.String
	}
	return &j, nil
}

// scanJournalLine scans one line row in journalLineColumns order.
func scanJournalLine(row pgxRow) (*domain.JournalLine, error) {
	var l domain.JournalLine
	err := row.Scan(
		&l.LineID,
		&l.JournalID,
		&l.AccountID,
		&l.Debit,
		&l.Credit,
		&l.Narration,
		&l.CreatedAt,
		&l.CreatedBy,
		&l.LastUpdatedAt,
		&l.LastUpdatedBy,
	)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// SaveDraft persists a new DRAFT journal and its lines atomically. No balances move.
func (r *PgxJournalRepository) SaveDraft(ctx context.Context, journal domain.Journal, lines []domain.JournalLine) error {
	tx, err := r.Pool.Begin(ctx)
	if err != nil {
		return apperrors.NewAppError(500, "failed to begin transaction for draft save", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := insertJournal(ctx, tx, journal); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: journal reference already in use", apperrors.ErrDuplicate)
		}
		return apperrors.NewAppError(500, "failed to insert journal "+journal.JournalID, err)
	}
	if err := insertLines(ctx, tx, lines); err != nil {
		return apperrors.NewAppError(500, "failed to insert lines for journal "+journal.JournalID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return apperrors.NewAppError(500, "failed to commit draft save", err)
	}
	return nil
}

// insertJournal inserts a journal row within a transaction.
func insertJournal(ctx context.Context, tx pgx.Tx, journal domain.Journal) error {
	query := `
		INSERT INTO journals (` + journalColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13);
	`
	_, err := tx.Exec(ctx, query,
		journal.JournalID,
		journal.OrganizationID,
		journal.JournalDate,
		journal.Reference,
		journal.Description,
		journal.Status,
		journal.OriginalJournalID,
		journal.ReversingJournalID,
		journal.Amount,
		journal.CreatedAt,
		journal.CreatedBy,
		journal.LastUpdatedAt,
		journal.LastUpdatedBy,
	)
	return err
}

// insertLines batch-inserts journal lines within a transaction.
func insertLines(ctx context.Context, tx pgx.Tx, lines []domain.JournalLine) error {
	if len(lines) == 0 {
		return nil
	}
	query := `
		INSERT INTO journal_lines (` + journalLineColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10);
	`
	batch := &pgx.Batch{}
	for _, line := range lines {
		batch.Queue(query,
			line.LineID,
			line.JournalID,
			line.AccountID,
			line.Debit,
			line.Credit,
			line.Narration,
			line.CreatedAt,
			line.CreatedBy,
			line.LastUpdatedAt,
			line.LastUpdatedBy,
		)
	}
	br := tx.SendBatch(ctx, batch)
	var batchErr error
	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil && batchErr == nil {
			batchErr = fmt.Errorf("failed to insert journal line %s: %w", lines[i].LineID, err)
		}
	}
	if closeErr := br.Close(); closeErr != nil && batchErr == nil {
		batchErr = fmt.Errorf("failed to close line insert batch: %w", closeErr)
	}
	return batchErr
}

// UpdateDraft replaces the mutable fields (and optionally lines) of a DRAFT
// journal. The update is conditioned on the row still being in DRAFT status;
// a journal that was posted or deleted concurrently yields ErrConflict or
// ErrNotFound respectively.
func (r *PgxJournalRepository) UpdateDraft(ctx context.Context, journal domain.Journal, lines []domain.JournalLine) error {
	tx, err := r.Pool.Begin(ctx)
	if err != nil {
		return apperrors.NewAppError(500, "failed to begin transaction for draft update", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	query := `
		UPDATE journals
		SET journal_date = $2, reference = $3, description = $4, amount = $5, last_updated_at = $6, last_updated_by = $7
		WHERE journal_id = $1 AND status = 'DRAFT';
	`
	ct, err := tx.Exec(ctx, query,
		journal.JournalID,
		journal.JournalDate,
		journal.Reference,
		journal.Description,
		journal.Amount,
		journal.LastUpdatedAt,
		journal.LastUpdatedBy,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: journal reference already in use", apperrors.ErrDuplicate)
		}
		return apperrors.NewAppError(500, "failed to update draft journal "+journal.JournalID, err)
	}
	if ct.RowsAffected() == 0 {
		// Distinguish a missing journal from one that left DRAFT under us.
		var exists bool
		if scanErr := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM journals WHERE journal_id = $1);`, journal.JournalID).Scan(&exists); scanErr != nil {
			return apperrors.NewAppError(500, "failed to check journal existence", scanErr)
		}
		if !exists {
			return apperrors.ErrNotFound
		}
		return fmt.Errorf("%w: journal %s is no longer a draft", apperrors.ErrConflict, journal.JournalID)
	}

	if lines != nil {
		if _, err := tx.Exec(ctx, `DELETE FROM journal_lines WHERE journal_id = $1;`, journal.JournalID); err != nil {
			return apperrors.NewAppError(500, "failed to clear lines for journal "+journal.JournalID, err)
		}
		if err := insertLines(ctx, tx, lines); err != nil {
			return apperrors.NewAppError(500, "failed to insert lines for journal "+journal.JournalID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return apperrors.NewAppError(500, "failed to commit draft update", err)
	}
	return nil
}

// DeleteDraft hard-deletes a DRAFT journal and its lines. Like UpdateDraft,
// the delete is conditioned on the row still being DRAFT.
func (r *PgxJournalRepository) DeleteDraft(ctx context.Context, journalID string) error {
	tx, err := r.Pool.Begin(ctx)
	if err != nil {
		return apperrors.NewAppError(500, "failed to begin transaction for draft delete", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM journal_lines WHERE journal_id = $1;`, journalID); err != nil {
		return apperrors.NewAppError(500, "failed to delete lines for journal "+journalID, err)
	}
	ct, err := tx.Exec(ctx, `DELETE FROM journals WHERE journal_id = $1 AND status = 'DRAFT';`, journalID)
	if err != nil {
		return apperrors.NewAppError(500, "failed to delete draft journal "+journalID, err)
	}
	if ct.RowsAffected() == 0 {
		var exists bool
		if scanErr := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM journals WHERE journal_id = $1);`, journalID).Scan(&exists); scanErr != nil {
			return apperrors.NewAppError(500, "failed to check journal existence", scanErr)
		}
		if !exists {
			return apperrors.ErrNotFound
		}
		return fmt.Errorf("%w: journal %s is no longer a draft", apperrors.ErrConflict, journalID)
	}

	if err := tx.Commit(ctx); err != nil {
		return apperrors.NewAppError(500, "failed to commit draft delete", err)
	}
	return nil
}

// MarkPostedInTx flips a journal to POSTED within the supplied transaction.
func (r *PgxJournalRepository) MarkPostedInTx(ctx context.Context, tx pgx.Tx, journalID string, userID string, now time.Time) error {
	query := `
		UPDATE journals
		SET status = 'POSTED', last_updated_at = $2, last_updated_by = $3
		WHERE journal_id = $1 AND status = 'DRAFT';
	`
	ct, err := tx.Exec(ctx, query, journalID, now, userID)
	if err != nil {
		return fmt.Errorf("failed to mark journal %s posted: %w", journalID, err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("%w: journal %s is not a draft", apperrors.ErrConflict, journalID)
	}
	return nil
}

// SavePostedInTx persists a journal directly in POSTED status, with its lines,
// within the supplied transaction.
func (r *PgxJournalRepository) SavePostedInTx(ctx context.Context, tx pgx.Tx, journal domain.Journal, lines []domain.JournalLine) error {
	if err := insertJournal(ctx, tx, journal); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: journal reference already in use", apperrors.ErrDuplicate)
		}
		return fmt.Errorf("failed to insert posted journal %s: %w", journal.JournalID, err)
	}
	if err := insertLines(ctx, tx, lines); err != nil {
		return fmt.Errorf("failed to insert lines for posted journal %s: %w", journal.JournalID, err)
	}
	return nil
}

// MarkReversedInTx flips a journal to REVERSED and records the reversal link
// within the supplied transaction.
func (r *PgxJournalRepository) MarkReversedInTx(ctx context.Context, tx pgx.Tx, journalID string, reversingJournalID string, userID string, now time.Time) error {
	query := `
		UPDATE journals
		SET status = 'REVERSED', reversing_journal_id = $2, last_updated_at = $3, last_updated_by = $4
		WHERE journal_id = $1 AND status = 'POSTED';
	`
	ct, err := tx.Exec(ctx, query, journalID, reversingJournalID, now, userID)
	if err != nil {
		return fmt.Errorf("failed to mark journal %s reversed: %w", journalID, err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("%w: journal %s is not posted", apperrors.ErrConflict, journalID)
	}
	return nil
}

// FindJournalByID retrieves a specific journal by its unique identifier.
func (r *PgxJournalRepository) FindJournalByID(ctx context.Context, journalID string) (*domain.Journal, error) {
	query := `SELECT ` + journalColumns + ` FROM journals WHERE journal_id = $1;`
	journal, err := scanJournal(r.Pool.QueryRow(ctx, query, journalID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.NewAppError(500, "failed to find journal by ID "+journalID, err)
	}
	return journal, nil
}

// FindJournalByIDForUpdate retrieves a journal and locks its row within the
// supplied transaction.
func (r *PgxJournalRepository) FindJournalByIDForUpdate(ctx context.Context, tx pgx.Tx, journalID string) (*domain.Journal, error) {
	query := `SELECT ` + journalColumns + ` FROM journals WHERE journal_id = $1 FOR UPDATE;`
	journal, err := scanJournal(tx.QueryRow(ctx, query, journalID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to lock journal %s: %w", journalID, err)
	}
	return journal, nil
}

// ListJournals retrieves a page of journals for an organization, most recent first.
func (r *PgxJournalRepository) ListJournals(ctx context.Context, orgID string, limit int, offset int, postedOnly bool) ([]domain.Journal, error) {
	query := `SELECT ` + journalColumns + ` FROM journals WHERE organization_id = $1`
	if postedOnly {
		query += ` AND status <> 'DRAFT'`
	}
	query += ` ORDER BY journal_date DESC, created_at DESC LIMIT $2 OFFSET $3;`

	rows, err := r.Pool.Query(ctx, query, orgID, limit, offset)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to list journals", err)
	}
	defer rows.Close()

	var journals []domain.Journal
	for rows.Next() {
		j, err := scanJournal(rows)
		if err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan journal row", err)
		}
		journals = append(journals, *j)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating journal rows", err)
	}
	return journals, nil
}

// FindLinesByJournalID retrieves all lines of a single journal.
func (r *PgxJournalRepository) FindLinesByJournalID(ctx context.Context, journalID string) ([]domain.JournalLine, error) {
	query := `SELECT ` + journalLineColumns + ` FROM journal_lines WHERE journal_id = $1 ORDER BY created_at, line_id;`
	rows, err := r.Pool.Query(ctx, query, journalID)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query lines for journal "+journalID, err)
	}
	defer rows.Close()

	var lines []domain.JournalLine
	for rows.Next() {
		l, err := scanJournalLine(rows)
		if err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan journal line row", err)
		}
		lines = append(lines, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating journal line rows", err)
	}
	return lines, nil
}

// FindLinesByJournalIDs retrieves lines for multiple journals, grouped by journal ID.
func (r *PgxJournalRepository) FindLinesByJournalIDs(ctx context.Context, journalIDs []string) (map[string][]domain.JournalLine, error) {
	if len(journalIDs) == 0 {
		return map[string][]domain.JournalLine{}, nil
	}

	query := `SELECT ` + journalLineColumns + ` FROM journal_lines WHERE journal_id = ANY($1) ORDER BY created_at, line_id;`
	rows, err := r.Pool.Query(ctx, query, journalIDs)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query lines for journals", err)
	}
	defer rows.Close()

	grouped := make(map[string][]domain.JournalLine)
	for rows.Next() {
		l, err := scanJournalLine(rows)
		if err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan journal line row", err)
		}
		grouped[l.JournalID] = append(grouped[l.JournalID], *l)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating journal line rows", err)
	}
	return grouped, nil
}

// ListLinesByAccountID retrieves a page of lines recorded against an account,
// restricted to posted or reversed journals of the caller's organization.
func (r *PgxJournalRepository) ListLinesByAccountID(ctx context.Context, orgID string, accountID string, limit int, offset int) ([]domain.JournalLine, error) {
	query := `
		SELECT l.line_id, l.journal_id, l.account_id, l.debit, l.credit, l.narration, l.created_at, l.created_by, l.last_updated_at, l.last_updated_by
		FROM journal_lines l
		JOIN journals j ON j.journal_id = l.journal_id
		WHERE j.organization_id = $1 AND l.account_id = $2 AND j.status <> 'DRAFT'
		ORDER BY l.created_at DESC, l.line_id
		LIMIT $3 OFFSET $4;
	`
	rows, err := r.Pool.Query(ctx, query, orgID, accountID, limit, offset)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query lines for account "+accountID, err)
	}
	defer rows.Close()

	var lines []domain.JournalLine
	for rows.Next() {
		l, err := scanJournalLine(rows)
		if err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan journal line row", err)
		}
		lines = append(lines, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating journal line rows", err)
	}
	return lines, nil
}
