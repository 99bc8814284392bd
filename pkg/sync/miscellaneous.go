package sync

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gradeworks/estimate-sync/pkg/client"
)

// SystemOfMeasure selects which unit-of-measure field a miscellaneous row's
// UM column fills.
type SystemOfMeasure string

const (
	// Imperial units of measure.
	Imperial SystemOfMeasure = "Imperial"

	// Metric units of measure.
	Metric SystemOfMeasure = "Metric"
)

// ParseSystemOfMeasure validates a user-supplied system name.
func ParseSystemOfMeasure(s string) (SystemOfMeasure, error) {
	switch SystemOfMeasure(s) {
	case Imperial, Metric:
		return SystemOfMeasure(s), nil
	default:
		return "", fmt.Errorf("unknown system of measure %q (want Imperial or Metric)", s)
	}
}

// Miscellaneous converts each row to a DTO under the chosen system of
// measure and batch-creates the records.
func (s *Syncer) Miscellaneous(ctx context.Context, system SystemOfMeasure) (Report, error) {
	rows, err := s.source.Rows("Miscellaneous")
	if err != nil {
		return Report{}, err
	}
	if s.noData(rows) {
		return Report{}, nil
	}

	reqs := make([]client.Request, len(rows))
	for i, row := range rows {
		body := map[string]any{
			"Name":                    row.String("Name"),
			"EstimateREF":             s.client.TenantRef(),
			"UnitCostSystemOfMeasure": string(system),
		}
		um := row.String("UM")
		if system == Metric {
			body["MetricUnitOfMeasure"] = um
		} else {
			body["ImperialUnitOfMeasure"] = um
		}
		for _, key := range []string{"Notes", "JobCostIDCode", "MiscellaneousCategory"} {
			if row.Has(key) {
				body[key] = row.String(key)
			}
		}
		if cost, ok := row.Float("UnitCost"); ok {
			body["UnitCost"] = cost
		}
		reqs[i] = client.Request{
			Method: http.MethodPost,
			Path:   "/Resource/Miscellaneous",
			Body:   body,
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
				Msg("Miscellaneous item already existed")
		case client.ClassHardFailure, client.ClassTransient:
			s.logger.Error().
				Int("row", sheetRow(resp.Index)).
				Str("name", rows[resp.Index].String("Name")).
				Int("status", resp.StatusCode).
				Str("body", string(resp.Body)).
				Msg("Miscellaneous item creation failed")
			failedRows = append(failedRows, sheetRow(resp.Index))
		}
	}

	s.finish(failedRows)
	return Report{FailedRows: failedRows}, nil
}
