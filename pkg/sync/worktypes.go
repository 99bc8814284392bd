package sync

import (
	"context"

	"github.com/gradeworks/estimate-sync/pkg/reconcile"
)

// WorkTypes reconciles the unique values of the Work Type column, then
// creates one work subtype per distinct (work type, subtype) pair. Pairs are
// deduplicated by their composite key before dispatch; a failed subtype
// marks every sheet row that references it.
func (s *Syncer) WorkTypes(ctx context.Context) (Report, error) {
	rows, err := s.source.Rows("Work Types")
	if err != nil {
		return Report{}, err
	}
	if s.noData(rows) {
		return Report{}, nil
	}

	names := uniqueColumn(rows, "Work Type")
	out, err := s.rec.Categories(ctx, reconcile.KindWorkType, names)
	if err != nil {
		return Report{}, err
	}
	if len(out.Failed) > 0 {
		return Report{}, &reconcile.DependencyError{Kind: reconcile.KindWorkType, Names: out.Failed}
	}

	seen := make(map[string]bool)
	var subtypes []reconcile.Subcategory
	for _, row := range rows {
		name := row.String("Work Subtype")
		if name == "" {
			continue
		}
		sub := reconcile.Subcategory{Name: name, Parent: row.String("Work Type")}
		if seen[sub.Key()] {
			continue
		}
		seen[sub.Key()] = true
		subtypes = append(subtypes, sub)
	}

	subOut, err := s.rec.Subcategories(ctx, reconcile.KindWorkSubType, subtypes, out.Resolved())
	if err != nil {
		return Report{}, err
	}

	failedNames := make(map[string]bool, len(subOut.Failed))
	for _, name := range subOut.Failed {
		failedNames[name] = true
	}
	var failedRows []int
	for i, row := range rows {
		if failedNames[row.String("Work Subtype")] {
			failedRows = append(failedRows, sheetRow(i))
		}
	}

	s.finish(failedRows)
	return Report{FailedRows: failedRows}, nil
}
