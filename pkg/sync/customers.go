package sync

import (
	"context"
	"net/http"

	"github.com/gradeworks/estimate-sync/pkg/client"
	"github.com/gradeworks/estimate-sync/pkg/reconcile"
)

// Customers reconciles the customer categories referenced by the Customers
// sheet, then batch-creates one customer per row. A customer that already
// exists is not a failure; only hard errors mark the row.
func (s *Syncer) Customers(ctx context.Context) (Report, error) {
	rows, err := s.source.Rows("Customers")
	if err != nil {
		return Report{}, err
	}
	if s.noData(rows) {
		return Report{}, nil
	}

	categories := uniqueColumn(rows, "Category")
	out, err := s.rec.Categories(ctx, reconcile.KindCustomerCategory, categories)
	if err != nil {
		return Report{}, err
	}
	if len(out.Failed) > 0 {
		return Report{}, &reconcile.DependencyError{Kind: reconcile.KindCustomerCategory, Names: out.Failed}
	}

	reqs := make([]client.Request, len(rows))
	for i, row := range rows {
		reqs[i] = client.Request{
			Method: http.MethodPost,
			Path:   "/Resource/Organization/Customer",
			Body:   s.payload(row),
		}
	}
	resps, err := s.client.Dispatch(ctx, reqs)
	if err != nil {
		return Report{}, err
	}

	var failedRows []int
	for _, resp := range resps {
		switch s.client.Classify(resp) {
		case client.ClassConflict:
			s.logger.Debug().
				Int("row", sheetRow(resp.Index)).
				Str("name", rows[resp.Index].String("Name")).
				Msg("Customer already existed")
		case client.ClassHardFailure, client.ClassTransient:
			s.logger.Error().
				Int("row", sheetRow(resp.Index)).
				Str("name", rows[resp.Index].String("Name")).
				Int("status", resp.StatusCode).
				Str("body", string(resp.Body)).
				Msg("Customer creation failed")
			failedRows = append(failedRows, sheetRow(resp.Index))
		}
	}

	s.finish(failedRows)
	return Report{FailedRows: failedRows}, nil
}
