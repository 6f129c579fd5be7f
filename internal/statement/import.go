package statement

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// RowStatus classifies the outcome of one import row.
type RowStatus string

const (
	RowImported  RowStatus = "importado"
	RowDuplicate RowStatus = "duplicado"
	RowError     RowStatus = "erro"
)

type RowDetail struct {
	Row      int
	Document string
	Status   RowStatus
	Error    string
	LineID   *uuid.UUID
}

type ImportParams struct {
	AccountID     uuid.UUID
	CondominiumID uuid.UUID
	Rows          []ParsedRow
}

type ImportResult struct {
	Total     int
	Inserted  int
	Duplicate int
	Errored   int
	Detail    []RowDetail
	Lines     []*Line
}

// Import normalizes, categorizes and stores parsed rows. Rows whose document
// already exists for the account, or repeats earlier in the same batch, are
// reported as duplicates and skipped. Row failures never abort the batch.
// Once new lines are committed the ingest hook runs once for the account.
func (s *Service) Import(ctx context.Context, params ImportParams) (*ImportResult, error) {
	if params.AccountID == uuid.Nil || params.CondominiumID == uuid.Nil {
		return nil, fmt.Errorf("%w: account id and condominium id are required", ErrValidation)
	}

	result := &ImportResult{
		Total:  len(params.Rows),
		Detail: make([]RowDetail, len(params.Rows)),
	}

	var candidates []importCandidate

	seen := make(occurrences)

	for i, row := range params.Rows {
		result.Detail[i] = RowDetail{Row: row.Number, Document: row.Params.Document}

		if row.Err != nil {
			result.Detail[i].Status = RowError
			result.Detail[i].Error = row.Err.Error()

			continue
		}

		line, err := normalize(row.Params, params.AccountID, params.CondominiumID, seen.next(row.Params))
		if err != nil {
			result.Detail[i].Status = RowError
			result.Detail[i].Error = err.Error()

			continue
		}

		result.Detail[i].Document = line.Document

		category, err := s.categorizer.Categorize(ctx, line.History)
		if err != nil {
			s.logger.Warn("failed to categorize line", "document", line.Document, "error", err)
		}

		line.Category = category

		candidates = append(candidates, importCandidate{detail: i, line: line})
	}

	if len(candidates) > 0 {
		if err := s.insertNew(ctx, params.AccountID, candidates, result); err != nil {
			return nil, err
		}
	}

	for _, d := range result.Detail {
		if d.Status == RowError {
			result.Errored++
		}
	}

	if result.Inserted == 0 {
		return result, nil
	}

	if s.invalidator != nil {
		if err := s.invalidator.Invalidate(ctx, params.CondominiumID); err != nil {
			s.logger.Warn("failed to invalidate cache", "condominium_id", params.CondominiumID, "error", err)
		}
	}

	if s.hook != nil {
		if err := s.hook.RunIngestPass(ctx, params.CondominiumID, params.AccountID); err != nil {
			s.logger.Error("ingest reconciliation pass failed",
				"condominium_id", params.CondominiumID, "account_id", params.AccountID, "error", err)
		}
	}

	return result, nil
}

type importCandidate struct {
	detail int
	line   *Line
}

func (s *Service) insertNew(ctx context.Context, accountID uuid.UUID, candidates []importCandidate, result *ImportResult) error {
	itx, err := s.repo.BeginImport(ctx, accountID)
	if err != nil {
		return fmt.Errorf("begin import: %w", err)
	}
	defer itx.Rollback()

	documents := make([]string, len(candidates))
	for i, c := range candidates {
		documents[i] = c.line.Document
	}

	existing, err := itx.ExistingDocuments(ctx, accountID, documents)
	if err != nil {
		return fmt.Errorf("find existing documents: %w", err)
	}

	seen := make(map[string]bool, len(candidates))

	var (
		fresh      []*Line
		freshIndex []int
	)

	for _, c := range candidates {
		doc := c.line.Document
		if existing[doc] || seen[doc] {
			result.Detail[c.detail].Status = RowDuplicate
			result.Duplicate++

			continue
		}

		seen[doc] = true
		fresh = append(fresh, c.line)
		freshIndex = append(freshIndex, c.detail)
	}

	if len(fresh) == 0 {
		return nil
	}

	if err := itx.CreateLines(ctx, fresh); err != nil {
		return fmt.Errorf("create lines: %w", err)
	}

	if err := itx.Commit(); err != nil {
		return fmt.Errorf("commit import: %w", err)
	}

	for i, line := range fresh {
		d := &result.Detail[freshIndex[i]]
		d.Status = RowImported
		d.LineID = &line.ID
	}

	result.Inserted = len(fresh)
	result.Lines = fresh

	return nil
}
