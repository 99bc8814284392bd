package sync

import (
	"encoding/json"
	"fmt"
	"net/http"
	gosync "sync"
	"testing"

	"github.com/gradeworks/estimate-sync/internal/testutil"
	"github.com/gradeworks/estimate-sync/pkg/client"
	"github.com/gradeworks/estimate-sync/pkg/sheet"
)

// fakeSource serves in-memory rows keyed by sheet name.
type fakeSource map[string][]sheet.Row

func (f fakeSource) Rows(name string) ([]sheet.Row, error) {
	return f[name], nil
}

// recordingNotifier captures alerts and highlights for assertions.
type recordingNotifier struct {
	alerts      []string
	highlighted []int
}

func (n *recordingNotifier) Alert(msg string) { n.alerts = append(n.alerts, msg) }

func (n *recordingNotifier) Log(msg string) {}

func (n *recordingNotifier) HighlightRows(rows []int, color string) {
	n.highlighted = append(n.highlighted, rows...)
}

func (n *recordingNotifier) lastAlert() string {
	if len(n.alerts) == 0 {
		return ""
	}
	return n.alerts[len(n.alerts)-1]
}

// resourceHandler simulates one remote resource endpoint. POST creates,
// conflicts, or hard-fails by the body's Name; GET answers list calls with
// the configured items.
type resourceHandler struct {
	mu gosync.Mutex

	// listItems answer GET list calls.
	listItems []map[string]any

	// conflictNames answer 409 on create.
	conflictNames map[string]bool

	// hardFailNames answer 400 on create.
	hardFailNames map[string]bool

	// posts records every decoded POST body in arrival order.
	posts []map[string]any

	idPrefix string
}

func (h *resourceHandler) handle(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()
	w.Header().Set("Content-Type", "application/json; charset=utf-8")

	if r.Method == http.MethodGet {
		json.NewEncoder(w).Encode(map[string]any{
			"Items":      h.listItems,
			"Pagination": map[string]any{"NextPage": ""},
		})
		return
	}

	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	h.posts = append(h.posts, body)

	name, _ := body["Name"].(string)
	switch {
	case h.hardFailNames[name]:
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"Message":"invalid entity"}`))
	case h.conflictNames[name]:
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"Message":"Violation of UNIQUE KEY constraint"}`))
	default:
		item := map[string]any{"ObjectID": h.idPrefix + name}
		for _, key := range []string{"Name", "City", "CategoryREF"} {
			if v, ok := body[key]; ok {
				item[key] = v
			}
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{"Item": item})
	}
}

func (h *resourceHandler) postCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.posts)
}

func (h *resourceHandler) postedNames() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	names := make([]string, len(h.posts))
	for i, p := range h.posts {
		names[i], _ = p["Name"].(string)
	}
	return names
}

// postWith returns the first recorded body carrying the given key/value.
func (h *resourceHandler) postWith(key, value string) map[string]any {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, p := range h.posts {
		if v, _ := p[key].(string); v == value {
			return p
		}
	}
	return nil
}

// newHandler installs a fresh resourceHandler on the mock for a path.
func newHandler(mock *testutil.MockAPI, path, idPrefix string) *resourceHandler {
	h := &resourceHandler{
		conflictNames: make(map[string]bool),
		hardFailNames: make(map[string]bool),
		idPrefix:      idPrefix,
	}
	mock.SetHandler(path, h.handle)
	return h
}

func newTestSyncer(t *testing.T, mock *testutil.MockAPI, source fakeSource) (*Syncer, *recordingNotifier) {
	t.Helper()

	cfg := client.DefaultConfig(mock.URL(), "test-token")
	c, err := client.New(cfg)
	if err != nil {
		t.Fatalf("client.New: %v", err)
	}
	notifier := &recordingNotifier{}
	return New(c, source, notifier), notifier
}

// ref renders the identifier a handler hands out for a name.
func ref(prefix, name string) string {
	return fmt.Sprintf("%s%s", prefix, name)
}
