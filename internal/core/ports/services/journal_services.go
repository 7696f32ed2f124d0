package services

import (
	"context"

	"github.com/finbook-oss/finbook_backend/internal/core/domain"
	"github.com/finbook-oss/finbook_backend/internal/dto"
)

// JournalSvcFacade is the journal engine service surface. It owns the
// DRAFT -> POSTED -> REVERSED state machine and the double-entry invariant.
type JournalSvcFacade interface {
	// CreateJournal validates and persists a new DRAFT journal. Balances do
	// not move until the journal is posted.
	CreateJournal(ctx context.Context, orgID string, req dto.CreateJournalRequest, userID string) (*domain.Journal, error)

	// UpdateDraft patches a DRAFT journal, re-validating the balance
	// invariant when lines change.
	UpdateDraft(ctx context.Context, orgID string, journalID string, req dto.UpdateJournalRequest, userID string) (*domain.Journal, error)

	// PostJournals posts each named DRAFT journal independently, applying its
	// lines to account balances. Partial success is the contract.
	PostJournals(ctx context.Context, orgID string, journalIDs []string, userID string) (*dto.BulkOperationResult, error)

	// ReverseJournals reverses each named POSTED journal independently,
	// creating a mirrored reversing journal and un-applying balances.
	ReverseJournals(ctx context.Context, orgID string, journalIDs []string, userID string) (*dto.BulkOperationResult, error)

	// DeleteDraft hard-deletes a DRAFT journal.
	DeleteDraft(ctx context.Context, orgID string, journalID string, userID string) error

	// GetJournalByID retrieves a journal with its lines.
	GetJournalByID(ctx context.Context, orgID string, journalID string) (*domain.Journal, error)

	// ListJournals retrieves a page of journals. postedOnly excludes drafts,
	// which is the visibility contract for reporting consumers.
	ListJournals(ctx context.Context, orgID string, limit int, offset int, postedOnly bool) ([]domain.Journal, error)

	// ListLinesByAccount retrieves a page of lines recorded against an account.
	ListLinesByAccount(ctx context.Context, orgID string, accountID string, limit int, offset int) ([]domain.JournalLine, error)
}
