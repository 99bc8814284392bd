package sync

import (
	"context"

	"github.com/gradeworks/estimate-sync/pkg/reconcile"
)

// workTypeLink associates an organization with a work type.
type workTypeLink struct {
	OrganizationREF string `json:"OrganizationREF"`
	WorkTypeREF     string `json:"WorkTypeREF"`
	EstimateREF     string `json:"EstimateREF,omitempty"`
}

// Subcontractors reconciles subcontractor categories and the work types the
// sheet references, batch-creates one subcontractor per row, then links
// every subcontractor to its work types. Rows that failed creation are
// excluded from linking.
func (s *Syncer) Subcontractors(ctx context.Context) (Report, error) {
	rows, err := s.source.Rows("Subcontractors")
	if err != nil {
		return Report{}, err
	}
	if s.noData(rows) {
		return Report{}, nil
	}

	categories := uniqueColumn(rows, "Subcontractor Category")
	catOut, err := s.rec.Categories(ctx, reconcile.KindSubcontractorCategory, categories)
	if err != nil {
		return Report{}, err
	}
	if len(catOut.Failed) > 0 {
		return Report{}, &reconcile.DependencyError{Kind: reconcile.KindSubcontractorCategory, Names: catOut.Failed}
	}

	// Work types are parents of the association records, so a failure here
	// aborts before any subcontractor row is created.
	workTypes := uniqueList(rows, "Work Types")
	wtOut, err := s.rec.Categories(ctx, reconcile.KindWorkType, workTypes)
	if err != nil {
		return Report{}, err
	}
	if len(wtOut.Failed) > 0 {
		return Report{}, &reconcile.DependencyError{Kind: reconcile.KindWorkType, Names: wtOut.Failed}
	}

	bodies := make([]any, len(rows))
	for i, row := range rows {
		body := s.payload(row, "Subcontractor Category", "Work Types")
		if row.Has("Subcontractor Category") {
			body["Category"] = row.String("Subcontractor Category")
		}
		bodies[i] = body
	}
	subs, failedIdx, err := s.createOrganizations(ctx, "Subcontractor", rows, bodies)
	if err != nil {
		return Report{}, err
	}

	report := Report{}
	failedSet := make(map[int]bool, len(failedIdx))
	for _, i := range failedIdx {
		failedSet[i] = true
		report.FailedRows = append(report.FailedRows, sheetRow(i))
	}

	subRefs := make(map[string]string, len(subs))
	for _, org := range subs {
		if _, ok := subRefs[org.Name]; !ok {
			subRefs[org.Name] = org.ObjectID
		}
	}
	wtRefs := wtOut.RefByName()

	var linkBodies []any
	var linkDescs []string
	for i, row := range rows {
		if failedSet[i] || !row.Has("Work Types") {
			continue
		}
		name := row.String("Name")
		orgRef, ok := subRefs[name]
		if !ok {
			s.logger.Warn().Str("name", name).Int("row", sheetRow(i)).
				Msg("Subcontractor has no resolved identifier, skipping work type links")
			continue
		}
		for _, wtName := range row.List("Work Types") {
			wtRef, ok := wtRefs[wtName]
			if !ok {
				report.FailedAssociations = append(report.FailedAssociations,
					describeLink(name, "work type", wtName))
				continue
			}
			linkBodies = append(linkBodies, workTypeLink{
				OrganizationREF: orgRef,
				WorkTypeREF:     wtRef,
				EstimateREF:     s.client.TenantRef(),
			})
			linkDescs = append(linkDescs, describeLink(name, "work type", wtName))
		}
	}

	failedLinks, err := s.createLinks(ctx, "/Resource/Organization/OrganizationWorkType", linkBodies, linkDescs)
	if err != nil {
		return report, err
	}
	report.FailedAssociations = append(report.FailedAssociations, failedLinks...)

	if len(report.FailedAssociations) > 0 {
		s.notify.Alert("Some subcontractors and work types failed to be connected: " +
			joinStrings(report.FailedAssociations))
	}
	s.finish(report.FailedRows)
	return report, nil
}
