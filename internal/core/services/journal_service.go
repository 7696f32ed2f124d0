package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/finbook-oss/finbook_backend/internal/apperrors"
	"github.com/finbook-oss/finbook_backend/internal/core/domain"
	portsrepo "github.com/finbook-oss/finbook_backend/internal/core/ports/repositories"
	portssvc "github.com/finbook-oss/finbook_backend/internal/core/ports/services"
	"github.com/finbook-oss/finbook_backend/internal/dto"
	"github.com/finbook-oss/finbook_backend/internal/middleware"
	"github.com/finbook-oss/finbook_backend/internal/utils/accounting"
)

var (
	// ErrUnbalancedEntry indicates the journal's debit and credit totals are
	// not exactly equal. Never auto-corrected or rounded.
	ErrUnbalancedEntry = errors.New("journal debits do not equal credits")

	ErrNotDraft               = errors.New("journal must be in DRAFT status")
	ErrNotPosted              = errors.New("journal must be in POSTED status")
	ErrReversalOfReversal     = errors.New("cannot reverse a journal that is itself a reversal")
	ErrJournalAccountNotFound = errors.New("account not found")
)

// journalService enforces the double-entry invariant and the
// DRAFT -> POSTED -> REVERSED lifecycle. Every state transition on a single
// journal runs inside its own database transaction with the journal row and
// all affected account rows locked, so concurrent transitions serialize.
type journalService struct {
	journalRepo portsrepo.JournalRepositoryWithTx
	accountRepo portsrepo.AccountRepositoryFacade
}

// NewJournalService creates a new journal service.
func NewJournalService(journalRepo portsrepo.JournalRepositoryWithTx, accountRepo portsrepo.AccountRepositoryFacade) portssvc.JournalSvcFacade {
	return &journalService{
		journalRepo: journalRepo,
		accountRepo: accountRepo,
	}
}

var _ portssvc.JournalSvcFacade = (*journalService)(nil)

// validateBalance checks line shape and the entry-wide double-entry
// invariant. Comparison is decimal-exact on the minor unit, tolerance-free.
func (s *journalService) validateBalance(lines []domain.JournalLine) error {
	if err := accounting.ValidateLines(lines); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
	}
	debits, credits := accounting.SumSides(lines)
	if !debits.Equal(credits) {
		return fmt.Errorf("%w: debits sum is %s and credits sum is %s", ErrUnbalancedEntry, debits.String(), credits.String())
	}
	return nil
}

// resolveAccounts fetches and checks every account referenced by lines.
func (s *journalService) resolveAccounts(ctx context.Context, orgID string, lines []domain.JournalLine) (map[string]domain.Account, error) {
	ids := make([]string, 0, len(lines))
	seen := make(map[string]struct{}, len(lines))
	for _, line := range lines {
		if _, ok := seen[line.AccountID]; !ok {
			seen[line.AccountID] = struct{}{}
			ids = append(ids, line.AccountID)
		}
	}

	accounts, err := s.accountRepo.FindAccountsByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch accounts: %w", err)
	}
	for _, id := range ids {
		acc, found := accounts[id]
		if !found {
			return nil, fmt.Errorf("%w: ID %s", ErrJournalAccountNotFound, id)
		}
		if acc.OrganizationID != orgID {
			return nil, fmt.Errorf("%w: account %s does not belong to organization %s", ErrJournalAccountNotFound, id, orgID)
		}
		if !acc.IsActive {
			return nil, fmt.Errorf("%w: account %s is inactive", apperrors.ErrValidation, id)
		}
	}
	return accounts, nil
}

// linesFromRequest materializes domain lines from a create/update request.
func linesFromRequest(journalID string, reqLines []dto.CreateJournalLineRequest, userID string, now time.Time) []domain.JournalLine {
	lines := make([]domain.JournalLine, len(reqLines))
	for i, lr := range reqLines {
		lines[i] = domain.JournalLine{
			LineID:    uuid.NewString(),
			JournalID: journalID,
			AccountID: lr.AccountID,
			Debit:     lr.Debit,
			Credit:    lr.Credit,
			Narration: lr.Narration,
			AuditFields: domain.AuditFields{
				CreatedAt:     now,
				CreatedBy:     userID,
				LastUpdatedAt: now,
				LastUpdatedBy: userID,
			},
		}
	}
	return lines
}

// CreateJournal validates and persists a new DRAFT journal. No balances move.
func (s *journalService) CreateJournal(ctx context.Context, orgID string, req dto.CreateJournalRequest, userID string) (*domain.Journal, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	now := time.Now().UTC()
	journalID := uuid.NewString()
	lines := linesFromRequest(journalID, req.Lines, userID, now)

	if err := s.validateBalance(lines); err != nil {
		return nil, err
	}
	if _, err := s.resolveAccounts(ctx, orgID, lines); err != nil {
		return nil, err
	}

	debits, _ := accounting.SumSides(lines)
	journal := domain.Journal{
		JournalID:      journalID,
		OrganizationID: orgID,
		JournalDate:    req.Date,
		Reference:      req.Reference,
		Description:    req.Description,
		Status:         domain.Draft,
		Amount:         debits,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     userID,
			LastUpdatedAt: now,
			LastUpdatedBy: userID,
		},
	}

	if err := s.journalRepo.SaveDraft(ctx, journal, lines); err != nil {
		logger.Error("Failed to save draft journal", slog.String("error", err.Error()), slog.String("journal_id", journalID))
		return nil, fmt.Errorf("failed to save journal: %w", err)
	}

	logger.Info("Draft journal created", slog.String("journal_id", journalID))
	journal.Lines = lines
	return &journal, nil
}

// UpdateDraft patches a DRAFT journal. When lines change the balance
// invariant is re-validated before anything is written. The repository
// conditions the write on the journal still being DRAFT, so a concurrent
// post wins cleanly.
func (s *journalService) UpdateDraft(ctx context.Context, orgID string, journalID string, req dto.UpdateJournalRequest, userID string) (*domain.Journal, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	journal, err := s.GetJournalByID(ctx, orgID, journalID)
	if err != nil {
		return nil, err
	}
	if journal.Status != domain.Draft {
		return nil, fmt.Errorf("%w: status is %s", ErrNotDraft, journal.Status)
	}

	now := time.Now().UTC()
	if req.Date != nil {
		journal.JournalDate = *req.Date
	}
	if req.Reference != nil {
		journal.Reference = req.Reference
	}
	if req.Description != nil {
		journal.Description = *req.Description
	}

	var lines []domain.JournalLine
	if req.Lines != nil {
		lines = linesFromRequest(journalID, *req.Lines, userID, now)
		if err := s.validateBalance(lines); err != nil {
			return nil, err
		}
		if _, err := s.resolveAccounts(ctx, orgID, lines); err != nil {
			return nil, err
		}
		debits, _ := accounting.SumSides(lines)
		journal.Amount = debits
		journal.Lines = lines
	}

	journal.LastUpdatedAt = now
	journal.LastUpdatedBy = userID

	if err := s.journalRepo.UpdateDraft(ctx, *journal, lines); err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			return nil, fmt.Errorf("%w: journal was posted concurrently", ErrNotDraft)
		}
		logger.Error("Failed to update draft journal", slog.String("error", err.Error()), slog.String("journal_id", journalID))
		return nil, fmt.Errorf("failed to update journal: %w", err)
	}

	logger.Info("Draft journal updated", slog.String("journal_id", journalID))
	return journal, nil
}

// PostJournals posts each named journal independently. One entry's failure
// does not abort the rest; the result separates successes from failures.
func (s *journalService) PostJournals(ctx context.Context, orgID string, journalIDs []string, userID string) (*dto.BulkOperationResult, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	result := &dto.BulkOperationResult{Succeeded: []string{}, Failed: []dto.BulkFailure{}}
	for _, id := range journalIDs {
		if err := s.postOne(ctx, orgID, id, userID); err != nil {
			logger.Warn("Journal post failed", slog.String("journal_id", id), slog.String("error", err.Error()))
			result.Failed = append(result.Failed, dto.BulkFailure{JournalID: id, Error: err.Error()})
			continue
		}
		result.Succeeded = append(result.Succeeded, id)
	}

	logger.Info("Bulk post finished", slog.Int("posted", len(result.Succeeded)), slog.Int("failed", len(result.Failed)))
	return result, nil
}

// postOne applies one DRAFT journal to account balances inside its own
// transaction. The journal row lock serializes concurrent posts of the same
// entry; the account row locks serialize concurrent balance applications.
func (s *journalService) postOne(ctx context.Context, orgID string, journalID string, userID string) error {
	tx, err := s.journalRepo.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer s.journalRepo.Rollback(ctx, tx)

	journal, err := s.journalRepo.FindJournalByIDForUpdate(ctx, tx, journalID)
	if err != nil {
		return err
	}
	if journal.OrganizationID != orgID {
		return apperrors.ErrNotFound
	}
	if journal.Status != domain.Draft {
		return fmt.Errorf("%w: status is %s", ErrNotDraft, journal.Status)
	}

	lines, err := s.journalRepo.FindLinesByJournalID(ctx, journalID)
	if err != nil {
		return fmt.Errorf("failed to fetch journal lines: %w", err)
	}

	// Re-validate at the transition boundary; a draft may have been patched
	// since creation.
	if err := s.validateBalance(lines); err != nil {
		return err
	}

	deltas, err := s.computeDeltas(ctx, tx, lines)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	if err := s.accountRepo.ApplyBalanceDeltasInTx(ctx, tx, deltas, userID, now); err != nil {
		return fmt.Errorf("failed to apply balance deltas: %w", err)
	}
	if err := s.journalRepo.MarkPostedInTx(ctx, tx, journalID, userID, now); err != nil {
		return fmt.Errorf("failed to mark journal posted: %w", err)
	}

	return s.journalRepo.Commit(ctx, tx)
}

// computeDeltas locks the affected accounts and computes the net signed
// balance change per account for the given lines.
func (s *journalService) computeDeltas(ctx context.Context, tx pgx.Tx, lines []domain.JournalLine) (map[string]decimal.Decimal, error) {
	ids := make([]string, 0, len(lines))
	seen := make(map[string]struct{}, len(lines))
	for _, line := range lines {
		if _, ok := seen[line.AccountID]; !ok {
			seen[line.AccountID] = struct{}{}
			ids = append(ids, line.AccountID)
		}
	}

	locked, err := s.accountRepo.FindAccountsByIDsForUpdate(ctx, tx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to lock accounts: %w", err)
	}

	deltas := make(map[string]decimal.Decimal, len(locked))
	for _, line := range lines {
		acc, ok := locked[line.AccountID]
		if !ok {
			return nil, fmt.Errorf("%w: ID %s", ErrJournalAccountNotFound, line.AccountID)
		}
		delta, err := accounting.BalanceDelta(line, acc.NormalBalance)
		if err != nil {
			return nil, err
		}
		deltas[line.AccountID] = deltas[line.AccountID].Add(delta)
	}
	return deltas, nil
}

// ReverseJournals reverses each named journal independently with the same
// partial-success contract as PostJournals.
func (s *journalService) ReverseJournals(ctx context.Context, orgID string, journalIDs []string, userID string) (*dto.BulkOperationResult, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	result := &dto.BulkOperationResult{Succeeded: []string{}, Failed: []dto.BulkFailure{}}
	for _, id := range journalIDs {
		if err := s.reverseOne(ctx, orgID, id, userID); err != nil {
			logger.Warn("Journal reversal failed", slog.String("journal_id", id), slog.String("error", err.Error()))
			result.Failed = append(result.Failed, dto.BulkFailure{JournalID: id, Error: err.Error()})
			continue
		}
		result.Succeeded = append(result.Succeeded, id)
	}

	logger.Info("Bulk reverse finished", slog.Int("reversed", len(result.Succeeded)), slog.Int("failed", len(result.Failed)))
	return result, nil
}

// reverseOne creates a mirrored reversing journal (every line's debit/credit
// swapped), posts it, and flips the original to REVERSED, all in one
// transaction. Reporting consumers see the pair as two POSTED journals that
// net to zero.
func (s *journalService) reverseOne(ctx context.Context, orgID string, journalID string, userID string) error {
	tx, err := s.journalRepo.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer s.journalRepo.Rollback(ctx, tx)

	original, err := s.journalRepo.FindJournalByIDForUpdate(ctx, tx, journalID)
	if err != nil {
		return err
	}
	if original.OrganizationID != orgID {
		return apperrors.ErrNotFound
	}
	if original.Status != domain.Posted {
		return fmt.Errorf("%w: status is %s", ErrNotPosted, original.Status)
	}
	if original.OriginalJournalID != nil {
		return fmt.Errorf("%w: journal %s", ErrReversalOfReversal, journalID)
	}

	originalLines, err := s.journalRepo.FindLinesByJournalID(ctx, journalID)
	if err != nil {
		return fmt.Errorf("failed to fetch journal lines: %w", err)
	}

	now := time.Now().UTC()
	reversingID := uuid.NewString()
	reversingLines := make([]domain.JournalLine, len(originalLines))
	for i, orig := range originalLines {
		reversingLines[i] = domain.JournalLine{
			LineID:    uuid.NewString(),
			JournalID: reversingID,
			AccountID: orig.AccountID,
			Debit:     orig.Credit,
			Credit:    orig.Debit,
			Narration: orig.Narration,
			AuditFields: domain.AuditFields{
				CreatedAt:     now,
				CreatedBy:     userID,
				LastUpdatedAt: now,
				LastUpdatedBy: userID,
			},
		}
	}

	reversing := domain.Journal{
		JournalID:         reversingID,
		OrganizationID:    orgID,
		JournalDate:       original.JournalDate,
		Description:       fmt.Sprintf("Reversal of: %s", original.Description),
		Status:            domain.Posted,
		OriginalJournalID: &original.JournalID,
		Amount:            original.Amount,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     userID,
			LastUpdatedAt: now,
			LastUpdatedBy: userID,
		},
	}

	deltas, err := s.computeDeltas(ctx, tx, reversingLines)
	if err != nil {
		return err
	}
	if err := s.accountRepo.ApplyBalanceDeltasInTx(ctx, tx, deltas, userID, now); err != nil {
		return fmt.Errorf("failed to apply reversal balance deltas: %w", err)
	}
	if err := s.journalRepo.SavePostedInTx(ctx, tx, reversing, reversingLines); err != nil {
		return fmt.Errorf("failed to save reversing journal: %w", err)
	}
	if err := s.journalRepo.MarkReversedInTx(ctx, tx, journalID, reversingID, userID, now); err != nil {
		return fmt.Errorf("failed to mark journal reversed: %w", err)
	}

	return s.journalRepo.Commit(ctx, tx)
}

// DeleteDraft hard-deletes a DRAFT journal. POSTED journals can only be
// reversed, never deleted.
func (s *journalService) DeleteDraft(ctx context.Context, orgID string, journalID string, userID string) error {
	logger := middleware.GetLoggerFromCtx(ctx)

	journal, err := s.GetJournalByID(ctx, orgID, journalID)
	if err != nil {
		return err
	}
	if journal.Status != domain.Draft {
		return fmt.Errorf("%w: status is %s", ErrNotDraft, journal.Status)
	}

	if err := s.journalRepo.DeleteDraft(ctx, journalID); err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			return fmt.Errorf("%w: journal was posted concurrently", ErrNotDraft)
		}
		logger.Error("Failed to delete draft journal", slog.String("error", err.Error()), slog.String("journal_id", journalID))
		return fmt.Errorf("failed to delete journal: %w", err)
	}

	logger.Info("Draft journal deleted", slog.String("journal_id", journalID))
	return nil
}

// GetJournalByID retrieves a journal with its lines.
func (s *journalService) GetJournalByID(ctx context.Context, orgID string, journalID string) (*domain.Journal, error) {
	journal, err := s.journalRepo.FindJournalByID(ctx, journalID)
	if err != nil {
		return nil, err
	}
	if journal.OrganizationID != orgID {
		// Obscure existence across organizations.
		return nil, apperrors.ErrNotFound
	}

	lines, err := s.journalRepo.FindLinesByJournalID(ctx, journalID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch journal lines: %w", err)
	}
	journal.Lines = lines
	return journal, nil
}

// ListJournals retrieves a page of journals.
func (s *journalService) ListJournals(ctx context.Context, orgID string, limit int, offset int, postedOnly bool) ([]domain.Journal, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.journalRepo.ListJournals(ctx, orgID, limit, offset, postedOnly)
}

// ListLinesByAccount retrieves a page of lines recorded against an account.
func (s *journalService) ListLinesByAccount(ctx context.Context, orgID string, accountID string, limit int, offset int) ([]domain.JournalLine, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.journalRepo.ListLinesByAccountID(ctx, orgID, accountID, limit, offset)
}
