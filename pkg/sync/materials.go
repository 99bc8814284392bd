package sync

import (
	"context"
	"net/http"
	"sort"

	"github.com/gradeworks/estimate-sync/pkg/client"
	"github.com/gradeworks/estimate-sync/pkg/reconcile"
)

// Materials reconciles the material categories and subcategories the sheet
// references (a subcategory's parent is its own row's Category), then
// batch-creates one material per row with the resolved references
// substituted for the names.
func (s *Syncer) Materials(ctx context.Context) (Report, error) {
	rows, err := s.source.Rows("Materials")
	if err != nil {
		return Report{}, err
	}
	if s.noData(rows) {
		return Report{}, nil
	}

	categories := uniqueColumn(rows, "Category")
	catOut, err := s.rec.Categories(ctx, reconcile.KindMaterialCategory, categories)
	if err != nil {
		return Report{}, err
	}
	if len(catOut.Failed) > 0 {
		return Report{}, &reconcile.DependencyError{Kind: reconcile.KindMaterialCategory, Names: catOut.Failed}
	}

	// Subcategory pairs deduplicated by the parent|child composite key; the
	// same subcategory name may appear under different parents.
	seen := make(map[string]bool)
	var subs []reconcile.Subcategory
	for _, row := range rows {
		name := row.String("Subcategory")
		if name == "" {
			continue
		}
		sub := reconcile.Subcategory{Name: name, Parent: row.String("Category")}
		if seen[sub.Key()] {
			continue
		}
		seen[sub.Key()] = true
		subs = append(subs, sub)
	}
	subOut, err := s.rec.Subcategories(ctx, reconcile.KindMaterialSubcategory, subs, catOut.Resolved())
	if err != nil {
		return Report{}, err
	}

	catRefs := catOut.RefByName()
	catNameByRef := make(map[string]string, len(catRefs))
	for name, ref := range catRefs {
		catNameByRef[ref] = name
	}
	subRefByKey := make(map[string]string)
	for _, e := range subOut.Resolved() {
		key := catNameByRef[e.CategoryREF] + "|" + e.Name
		if _, ok := subRefByKey[key]; !ok {
			subRefByKey[key] = e.ObjectID
		}
	}

	var reqs []client.Request
	var reqRows []int
	var failedRows []int
	for i, row := range rows {
		body := s.payload(row, "Category", "Subcategory")
		if row.Has("Category") {
			body["CategoryREF"] = catRefs[row.String("Category")]
		}
		if row.Has("Subcategory") {
			key := row.String("Category") + "|" + row.String("Subcategory")
			ref, ok := subRefByKey[key]
			if !ok {
				s.logger.Error().
					Int("row", sheetRow(i)).
					Str("subcategory", row.String("Subcategory")).
					Msg("Material subcategory has no identifier")
				failedRows = append(failedRows, sheetRow(i))
				continue
			}
			body["SubcategoryREF"] = ref
		}
		reqs = append(reqs, client.Request{
			Method: http.MethodPost,
			Path:   "/Resource/Material",
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
				Msg("Material already existed")
		case client.ClassHardFailure, client.ClassTransient:
			s.logger.Error().
				Int("row", sheetRow(rowIdx)).
				Str("name", rows[rowIdx].String("Name")).
				Int("status", resp.StatusCode).
				Str("body", string(resp.Body)).
				Msg("Material creation failed")
			failedRows = append(failedRows, sheetRow(rowIdx))
		}
	}

	sort.Ints(failedRows)
	s.finish(failedRows)
	return Report{FailedRows: failedRows}, nil
}
