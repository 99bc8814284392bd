package sync

import (
	"context"

	"github.com/gradeworks/estimate-sync/pkg/pagination"
	"github.com/gradeworks/estimate-sync/pkg/query"
	"github.com/gradeworks/estimate-sync/pkg/reconcile"
)

// materialLink associates an organization with a material category or
// subcategory.
type materialLink struct {
	OrganizationREF        string `json:"OrganizationREF"`
	MaterialCategoryREF    string `json:"MaterialCategoryREF,omitempty"`
	MaterialSubcategoryREF string `json:"MaterialSubcategoryREF,omitempty"`
	EstimateREF            string `json:"EstimateREF,omitempty"`
}

// Vendors reconciles vendor categories, batch-creates one vendor per row
// (fetching back pre-existing vendors by name and city), then links every
// vendor to the material categories its row names. Rows that failed
// creation have no resolved identifier and are skipped during linking.
func (s *Syncer) Vendors(ctx context.Context) (Report, error) {
	rows, err := s.source.Rows("Vendors")
	if err != nil {
		return Report{}, err
	}
	if s.noData(rows) {
		return Report{}, nil
	}

	vendorCategories := uniqueColumn(rows, "Vendor Category")
	catOut, err := s.rec.Categories(ctx, reconcile.KindVendorCategory, vendorCategories)
	if err != nil {
		return Report{}, err
	}
	if len(catOut.Failed) > 0 {
		return Report{}, &reconcile.DependencyError{Kind: reconcile.KindVendorCategory, Names: catOut.Failed}
	}

	bodies := make([]any, len(rows))
	for i, row := range rows {
		body := s.payload(row, "Vendor Category", "Material Categories")
		if row.Has("Vendor Category") {
			body["Category"] = row.String("Vendor Category")
		}
		bodies[i] = body
	}
	vendors, failedIdx, err := s.createOrganizations(ctx, "Vendor", rows, bodies)
	if err != nil {
		return Report{}, err
	}

	report := Report{}
	failedSet := make(map[int]bool, len(failedIdx))
	for _, i := range failedIdx {
		failedSet[i] = true
		report.FailedRows = append(report.FailedRows, sheetRow(i))
	}

	// The linking stage resolves against the full server-side material
	// taxonomy, not just what this run created.
	tenant := s.client.TenantRef()
	allCategories, err := pagination.ListAll[reconcile.Entity](ctx, s.client, "material category",
		"/Resource/Category/MaterialCategory", query.Tenant(tenant))
	if err != nil {
		return report, err
	}
	allSubcategories, err := pagination.ListAll[reconcile.Entity](ctx, s.client, "material subcategory",
		"/Resource/Subcategory/MaterialSubcategory", query.Tenant(tenant))
	if err != nil {
		return report, err
	}
	resolver := reconcile.NewResolver(allCategories, allSubcategories)

	vendorRefs := make(map[string]string, len(vendors))
	for _, v := range vendors {
		if _, ok := vendorRefs[v.Name]; !ok {
			vendorRefs[v.Name] = v.ObjectID
		}
	}

	var catBodies, subBodies []any
	var catDescs, subDescs []string
	for i, row := range rows {
		if failedSet[i] || !row.Has("Material Categories") {
			continue
		}
		name := row.String("Name")
		orgRef, ok := vendorRefs[name]
		if !ok {
			// Created or fetched back under a different name; nothing to
			// link against.
			s.logger.Warn().Str("name", name).Int("row", sheetRow(i)).
				Msg("Vendor has no resolved identifier, skipping material links")
			continue
		}
		for _, matName := range row.List("Material Categories") {
			refs := resolver.Resolve(matName)
			if len(refs) == 0 {
				s.logger.Warn().
					Str("vendor", name).
					Str("material_category", matName).
					Msg("Material category not found")
				report.FailedAssociations = append(report.FailedAssociations,
					describeLink(name, "material category", matName))
				continue
			}
			for _, ref := range refs {
				link := materialLink{OrganizationREF: orgRef, EstimateREF: tenant}
				if ref.Subcategory {
					link.MaterialSubcategoryREF = ref.ObjectID
					subBodies = append(subBodies, link)
					subDescs = append(subDescs, describeLink(name, "material subcategory", matName))
				} else {
					link.MaterialCategoryREF = ref.ObjectID
					catBodies = append(catBodies, link)
					catDescs = append(catDescs, describeLink(name, "material category", matName))
				}
			}
		}
	}

	failedLinks, err := s.createLinks(ctx, "/Resource/Organization/OrganizationMaterialCategory", catBodies, catDescs)
	if err != nil {
		return report, err
	}
	report.FailedAssociations = append(report.FailedAssociations, failedLinks...)

	failedLinks, err = s.createLinks(ctx, "/Resource/Organization/OrganizationMaterialSubcategory", subBodies, subDescs)
	if err != nil {
		return report, err
	}
	report.FailedAssociations = append(report.FailedAssociations, failedLinks...)

	if len(report.FailedAssociations) > 0 {
		s.notify.Alert("Some vendors and material categories failed to be connected: " +
			joinStrings(report.FailedAssociations))
	}
	s.finish(report.FailedRows)
	return report, nil
}
