// Package notify carries user-facing progress and error reporting for
// synchronization runs. Notifiers are purely side-effecting; nothing in the
// engine consults them for control flow.
package notify

import (
	"github.com/rs/zerolog"

	"github.com/gradeworks/estimate-sync/pkg/logging"
)

// Notifier receives progress and outcome notifications from pipelines.
type Notifier interface {
	// Alert delivers a message the user should see immediately.
	Alert(msg string)

	// Log records a diagnostic message.
	Log(msg string)

	// HighlightRows marks sheet rows (1-based) that need user attention.
	HighlightRows(rows []int, color string)
}

// LogNotifier writes notifications to a zerolog logger. It is the default
// sink for CLI runs, standing in for the interactive dialogs of a
// spreadsheet frontend.
type LogNotifier struct {
	logger zerolog.Logger
}

// NewLogNotifier creates a notifier backed by the global logger.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{logger: logging.NewLogger("notify")}
}

// Alert implements Notifier.
func (n *LogNotifier) Alert(msg string) {
	n.logger.Info().Str("channel", "alert").Msg(msg)
}

// Log implements Notifier.
func (n *LogNotifier) Log(msg string) {
	n.logger.Debug().Msg(msg)
}

// HighlightRows implements Notifier.
func (n *LogNotifier) HighlightRows(rows []int, color string) {
	if len(rows) == 0 {
		return
	}
	n.logger.Warn().Ints("rows", rows).Str("color", color).Msg("Rows need attention")
}

// Nop discards all notifications.
type Nop struct{}

// Alert implements Notifier.
func (Nop) Alert(string) {}

// Log implements Notifier.
func (Nop) Log(string) {}

// HighlightRows implements Notifier.
func (Nop) HighlightRows([]int, string) {}
