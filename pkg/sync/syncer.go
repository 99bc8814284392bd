// Package sync implements the per-entity pipelines that push spreadsheet
// rows into the estimating service. Each pipeline extracts unique parent
// names from its rows, reconciles the parents, creates the row entities, and
// finally creates any association records — aborting only when a required
// parent cannot be created.
package sync

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/gradeworks/estimate-sync/pkg/client"
	"github.com/gradeworks/estimate-sync/pkg/logging"
	"github.com/gradeworks/estimate-sync/pkg/notify"
	"github.com/gradeworks/estimate-sync/pkg/reconcile"
	"github.com/gradeworks/estimate-sync/pkg/sheet"
)

// Syncer runs the entity pipelines against one authenticated API client and
// one tabular source.
type Syncer struct {
	client *client.Client
	rec    *reconcile.Reconciler
	source sheet.Source
	notify notify.Notifier
	logger zerolog.Logger
}

// New creates a syncer. A nil notifier discards notifications.
func New(c *client.Client, source sheet.Source, notifier notify.Notifier) *Syncer {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &Syncer{
		client: c,
		rec:    reconcile.New(c),
		source: source,
		notify: notifier,
		logger: logging.NewLogger("sync"),
	}
}

// Report aggregates one pipeline run. FailedRows are 1-based sheet rows
// (data begins at row 2, under the header). FailedAssociations describe
// association records that could not be created.
type Report struct {
	FailedRows         []int
	FailedAssociations []string
}

// OK reports whether every row and association succeeded.
func (r Report) OK() bool {
	return len(r.FailedRows) == 0 && len(r.FailedAssociations) == 0
}

// sheetRow converts a 0-based data index to its 1-based sheet row,
// accounting for the header row.
func sheetRow(index int) int {
	return index + 2
}

// joinInts renders row numbers for user-facing messages.
func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ", ")
}

// joinStrings renders association descriptions for user-facing messages.
func joinStrings(values []string) string {
	return strings.Join(values, "; ")
}

// finish delivers the standard end-of-pipeline notification and highlights
// failed rows.
func (s *Syncer) finish(failedRows []int) {
	if len(failedRows) > 0 {
		s.notify.HighlightRows(failedRows, "red")
		s.notify.Alert("Some rows failed to be created. Failed rows: " + joinInts(failedRows))
		return
	}
	s.notify.Alert("All rows were created successfully.")
}

// payload copies a row into a create body, dropping excluded columns and
// attaching the tenant marker every payload must carry.
func (s *Syncer) payload(row sheet.Row, exclude ...string) map[string]any {
	body := make(map[string]any, len(row)+1)
	for key, value := range row {
		body[key] = value
	}
	for _, key := range exclude {
		delete(body, key)
	}
	body["EstimateREF"] = s.client.TenantRef()
	return body
}

// uniqueColumn collects the distinct non-empty values of one column in
// first-seen order.
func uniqueColumn(rows []sheet.Row, key string) []string {
	seen := make(map[string]bool)
	var values []string
	for _, row := range rows {
		v := row.String(key)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		values = append(values, v)
	}
	return values
}

// uniqueList collects the distinct values across a comma-separated column in
// first-seen order.
func uniqueList(rows []sheet.Row, key string) []string {
	seen := make(map[string]bool)
	var values []string
	for _, row := range rows {
		for _, v := range row.List(key) {
			if seen[v] {
				continue
			}
			seen[v] = true
			values = append(values, v)
		}
	}
	return values
}

// noData notifies and reports whether the sheet had nothing to send.
func (s *Syncer) noData(rows []sheet.Row) bool {
	if len(rows) > 0 {
		return false
	}
	s.logger.Info().Msg("No data to send")
	s.notify.Alert("No data to send!")
	return true
}

// describeLink renders an association for failure reporting.
func describeLink(owner, kind, target string) string {
	return fmt.Sprintf("%s -> %s %q", owner, kind, target)
}
