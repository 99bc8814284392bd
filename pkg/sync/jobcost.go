package sync

import (
	"context"
	"net/http"

	"github.com/gradeworks/estimate-sync/pkg/client"
)

// JobCostIDs batch-creates one job cost ID record per row, posted verbatim.
// There is no parent entity to reconcile.
func (s *Syncer) JobCostIDs(ctx context.Context) (Report, error) {
	rows, err := s.source.Rows("Job Cost IDs")
	if err != nil {
		return Report{}, err
	}
	if s.noData(rows) {
		return Report{}, nil
	}

	reqs := make([]client.Request, len(rows))
	for i, row := range rows {
		reqs[i] = client.Request{
			Method: http.MethodPost,
			Path:   "/Resource/JobCostID",
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
				Msg("Job cost ID already existed")
		case client.ClassHardFailure, client.ClassTransient:
			s.logger.Error().
				Int("row", sheetRow(resp.Index)).
				Int("status", resp.StatusCode).
				Str("body", string(resp.Body)).
				Msg("Job cost ID creation failed")
			failedRows = append(failedRows, sheetRow(resp.Index))
		}
	}

	s.finish(failedRows)
	return Report{FailedRows: failedRows}, nil
}
