package dto

import (
	"time"

	"github.com/finbook-oss/finbook_backend/internal/core/domain"
	"github.com/shopspring/decimal"
)

// CreateJournalLineRequest is one line of a journal creation request.
// Exactly one of debit/credit must be set.
type CreateJournalLineRequest struct {
	AccountID string          `json:"accountID" binding:"required"`
	Debit     decimal.Decimal `json:"debit"`
	Credit    decimal.Decimal `json:"credit"`
	Narration string          `json:"narration"`
}

// CreateJournalRequest is the payload for creating a DRAFT journal.
type CreateJournalRequest struct {
	Date        time.Time                  `json:"date" binding:"required"`
	Reference   *string                    `json:"reference"`
	Description string                     `json:"description"`
	Lines       []CreateJournalLineRequest `json:"lines" binding:"required,min=2"`
}

// UpdateJournalRequest is the payload for patching a DRAFT journal.
// Nil fields are left unchanged; a non-nil Lines slice replaces all lines.
type UpdateJournalRequest struct {
	Date        *time.Time                  `json:"date"`
	Reference   *string                     `json:"reference"`
	Description *string                     `json:"description"`
	Lines       *[]CreateJournalLineRequest `json:"lines"`
}

// BulkJournalRequest names the journals for a bulk post or reverse.
type BulkJournalRequest struct {
	JournalIDs []string `json:"journalIDs" binding:"required,min=1"`
}

// BulkFailure describes one failed member of a bulk operation.
type BulkFailure struct {
	JournalID string `json:"journalID"`
	Error     string `json:"error"`
}

// BulkOperationResult separates succeeded from failed members of a bulk
// post/reverse. Failure of one member is an expected outcome for the others,
// not an error for the batch.
type BulkOperationResult struct {
	Succeeded []string      `json:"succeeded"`
	Failed    []BulkFailure `json:"failed"`
}

// JournalLineResponse is the API representation of a journal line.
type JournalLineResponse struct {
	LineID    string          `json:"lineID"`
	AccountID string          `json:"accountID"`
	Debit     decimal.Decimal `json:"debit"`
	Credit    decimal.Decimal `json:"credit"`
	Narration string          `json:"narration,omitempty"`
}

// JournalResponse is the API representation of a journal.
type JournalResponse struct {
	JournalID          string                `json:"journalID"`
	Date               time.Time             `json:"date"`
	Reference          *string               `json:"reference,omitempty"`
	Description        string                `json:"description,omitempty"`
	Status             domain.JournalStatus  `json:"status"`
	Amount             decimal.Decimal       `json:"amount"`
	OriginalJournalID  *string               `json:"originalJournalID,omitempty"`
	ReversingJournalID *string               `json:"reversingJournalID,omitempty"`
	Lines              []JournalLineResponse `json:"lines,omitempty"`
}

// ToJournalResponse maps a domain journal to its API representation.
func ToJournalResponse(j *domain.Journal) JournalResponse {
	resp := JournalResponse{
		JournalID:          j.JournalID,
		Date:               j.JournalDate,
		Reference:          j.Reference,
		Description:        j.Description,
		Status:             j.Status,
		Amount:             j.Amount,
		OriginalJournalID:  j.OriginalJournalID,
		ReversingJournalID: j.ReversingJournalID,
	}
	for _, line := range j.Lines {
		resp.Lines = append(resp.Lines, JournalLineResponse{
			LineID:    line.LineID,
			AccountID: line.AccountID,
			Debit:     line.Debit,
			Credit:    line.Credit,
			Narration: line.Narration,
		})
	}
	return resp
}
