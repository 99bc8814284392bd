package sync

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gradeworks/estimate-sync/pkg/client"
	"github.com/gradeworks/estimate-sync/pkg/pagination"
	"github.com/gradeworks/estimate-sync/pkg/query"
	"github.com/gradeworks/estimate-sync/pkg/sheet"
)

// Organization mirrors the remote organization record fields the pipelines
// use for reference resolution. Name alone is not unique; (Name, City) is.
type Organization struct {
	ObjectID string `json:"ObjectID"`
	Name     string `json:"Name"`
	City     string `json:"City"`
}

// listOrganizations walks every page of one organization kind.
func (s *Syncer) listOrganizations(ctx context.Context, orgType, q string) ([]Organization, error) {
	return pagination.ListAll[Organization](ctx, s.client, strings.ToLower(orgType),
		"/Resource/Organization/"+orgType, q)
}

// createOrganizations batch-creates one organization per row and reconciles
// conflicts with a single composite (name, city) fetch-back, so every
// non-failed row has a resolved identifier. Returned failure indices are
// 0-based row positions.
func (s *Syncer) createOrganizations(ctx context.Context, orgType string, rows []sheet.Row, bodies []any) ([]Organization, []int, error) {
	reqs := make([]client.Request, len(bodies))
	for i, body := range bodies {
		reqs[i] = client.Request{
			Method: http.MethodPost,
			Path:   "/Resource/Organization/" + orgType,
			Body:   body,
		}
	}
	resps, err := s.client.Dispatch(ctx, reqs)
	if err != nil {
		return nil, nil, err
	}

	var orgs []Organization
	var failed []int
	var toFetch []query.NameCity
	for _, resp := range resps {
		row := rows[resp.Index]
		switch s.client.Classify(resp) {
		case client.ClassCreated:
			var envelope struct {
				Item Organization `json:"Item"`
			}
			if json.Unmarshal(resp.Body, &envelope) != nil || envelope.Item.ObjectID == "" {
				s.logger.Error().
					Str("kind", orgType).
					Int("row", sheetRow(resp.Index)).
					Msg("Created record could not be decoded")
				failed = append(failed, resp.Index)
				continue
			}
			orgs = append(orgs, envelope.Item)
		case client.ClassConflict:
			s.logger.Debug().
				Str("kind", orgType).
				Str("name", row.String("Name")).
				Int("row", sheetRow(resp.Index)).
				Msg("Organization already exists")
			toFetch = append(toFetch, query.NameCity{Name: row.String("Name"), City: row.String("City")})
		default:
			s.logger.Error().
				Str("kind", orgType).
				Str("name", row.String("Name")).
				Int("row", sheetRow(resp.Index)).
				Int("status", resp.StatusCode).
				Str("body", string(resp.Body)).
				Msg("Organization creation failed")
			failed = append(failed, resp.Index)
		}
	}

	if len(toFetch) > 0 {
		existing, fetchErr := s.listOrganizations(ctx, orgType, query.NamesCities(s.client.TenantRef(), toFetch))
		if fetchErr != nil {
			return nil, nil, fetchErr
		}
		orgs = append(orgs, existing...)
	}
	return orgs, failed, nil
}

// createLinks batch-creates association records. Conflicts mean the link
// already exists and are fine; hard failures come back as descriptions for
// the aggregate report.
func (s *Syncer) createLinks(ctx context.Context, path string, bodies []any, descs []string) ([]string, error) {
	if len(bodies) == 0 {
		return nil, nil
	}
	reqs := make([]client.Request, len(bodies))
	for i, body := range bodies {
		reqs[i] = client.Request{Method: http.MethodPost, Path: path, Body: body}
	}
	resps, err := s.client.Dispatch(ctx, reqs)
	if err != nil {
		return nil, err
	}

	var failed []string
	for _, resp := range resps {
		switch s.client.Classify(resp) {
		case client.ClassConflict:
			s.logger.Debug().Str("link", descs[resp.Index]).Msg("Association already exists")
		case client.ClassHardFailure, client.ClassTransient:
			s.logger.Error().
				Str("link", descs[resp.Index]).
				Int("status", resp.StatusCode).
				Str("body", string(resp.Body)).
				Msg("Association creation failed")
			failed = append(failed, descs[resp.Index])
		}
	}
	return failed, nil
}
