package sync

import (
	"context"
	"net/http"
	"sort"
	"strings"

	"github.com/gradeworks/estimate-sync/pkg/client"
	"github.com/gradeworks/estimate-sync/pkg/query"
)

// organization kinds a contact may belong to.
var contactOrgTypes = []string{"Customer", "Subcontractor", "Vendor"}

// Contacts resolves each row's "Name, City" organization reference against
// the remote organization lists (one composite filter query per kind), then
// batch-creates the contacts with the resolved identifiers substituted.
// Rows whose organization cannot be found fail without a create call.
func (s *Syncer) Contacts(ctx context.Context) (Report, error) {
	rows, err := s.source.Rows("Contacts")
	if err != nil {
		return Report{}, err
	}
	if s.noData(rows) {
		return Report{}, nil
	}

	// Group wanted (name, city) pairs per organization kind.
	wanted := make(map[string][]query.NameCity)
	seen := make(map[string]bool)
	for _, row := range rows {
		orgType := row.String("Organization Type")
		if !validOrgType(orgType) {
			continue
		}
		name, city := splitOrganization(row.String("Organization"))
		key := orgType + "|" + name + "|" + city
		if seen[key] {
			continue
		}
		seen[key] = true
		wanted[orgType] = append(wanted[orgType], query.NameCity{Name: name, City: city})
	}

	refs := make(map[string]string)
	for _, orgType := range contactOrgTypes {
		pairs := wanted[orgType]
		if len(pairs) == 0 {
			continue
		}
		orgs, listErr := s.listOrganizations(ctx, orgType, query.NamesCities(s.client.TenantRef(), pairs))
		if listErr != nil {
			return Report{}, listErr
		}
		for _, org := range orgs {
			refs[orgType+"|"+org.Name+"|"+org.City] = org.ObjectID
		}
	}

	var reqs []client.Request
	var reqRows []int
	var failedRows []int
	for i, row := range rows {
		orgType := row.String("Organization Type")
		name, city := splitOrganization(row.String("Organization"))
		ref, ok := refs[orgType+"|"+name+"|"+city]
		if !validOrgType(orgType) || !ok {
			s.logger.Error().
				Int("row", sheetRow(i)).
				Str("organization", row.String("Organization")).
				Str("organization_type", orgType).
				Msg("Contact organization could not be resolved")
			failedRows = append(failedRows, sheetRow(i))
			continue
		}
		body := s.payload(row, "Organization", "Organization Type")
		body["OrganizationREF"] = ref
		reqs = append(reqs, client.Request{
			Method: http.MethodPost,
			Path:   "/Resource/Organization/Contact",
			Body:   body,
		})
		reqRows = append(reqRows, i)
	}

	resps, err := s.client.Dispatch(ctx, reqs)
	if err != nil {
		return Report{}, err
	}
	for _, resp := range resps {
		rowIdx := reqRows[resp.Index]
		switch s.client.Classify(resp) {
		case client.ClassConflict:
			s.logger.Debug().
				Int("row", sheetRow(rowIdx)).
				Str("name", rows[rowIdx].String("Name")).
				Msg("Contact already exists on organization")
		case client.ClassHardFailure, client.ClassTransient:
			s.logger.Error().
				Int("row", sheetRow(rowIdx)).
				Str("name", rows[rowIdx].String("Name")).
				Int("status", resp.StatusCode).
				Str("body", string(resp.Body)).
				Msg("Contact creation failed")
			failedRows = append(failedRows, sheetRow(rowIdx))
		}
	}

	sort.Ints(failedRows)
	s.finish(failedRows)
	return Report{FailedRows: failedRows}, nil
}

// splitOrganization splits a "Name, City" cell into its parts.
func splitOrganization(value string) (name, city string) {
	parts := strings.SplitN(value, ",", 2)
	name = strings.TrimSpace(parts[0])
	if len(parts) > 1 {
		city = strings.TrimSpace(parts[1])
	}
	return name, city
}

func validOrgType(orgType string) bool {
	for _, t := range contactOrgTypes {
		if t == orgType {
			return true
		}
	}
	return false
}
