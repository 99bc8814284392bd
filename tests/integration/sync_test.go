// Package integration exercises the full stack end to end: login handshake,
// spreadsheet reading, reconciliation, batched dispatch, and reporting,
// against the mock estimating API.
package integration

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/gradeworks/estimate-sync/internal/testutil"
	"github.com/gradeworks/estimate-sync/pkg/auth"
	"github.com/gradeworks/estimate-sync/pkg/client"
	"github.com/gradeworks/estimate-sync/pkg/sheet"
	syncpkg "github.com/gradeworks/estimate-sync/pkg/sync"
)

// recordingHandler answers creates with an Item envelope and remembers every
// body it saw.
type recordingHandler struct {
	mu    sync.Mutex
	posts []map[string]any
}

func (h *recordingHandler) handle(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()
	w.Header().Set("Content-Type", "application/json; charset=utf-8")

	var body map[string]any
	json.NewDecoder(r.Body).Decode(&body)
	h.posts = append(h.posts, body)

	name, _ := body["Name"].(string)
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]any{
		"Item": map[string]any{"ObjectID": "id-" + name, "Name": name},
	})
}

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "customers.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	return path
}

func TestCustomersEndToEnd(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()

	categories := &recordingHandler{}
	customers := &recordingHandler{}
	mock.SetHandler("/Resource/Category/CustomerCategory", categories.handle)
	mock.SetHandler("/Resource/Organization/Customer", customers.handle)

	// Login with real connection properties against the mock.
	props := auth.Properties{
		BaseURL:      mock.URL(),
		ClientID:     "cid",
		ClientSecret: "csecret",
		UserName:     "user",
		Password:     "pass",
		ServerName:   "db-server",
		DatabaseName: "estimating",
	}
	session, err := auth.NewProvider(props).Authenticate(context.Background())
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}

	cfg := client.DefaultConfig(session.BaseURL, session.Token)
	cfg.ClientID = props.ClientID
	cfg.ClientSecret = props.ClientSecret
	cfg.ConnectionString = props.ConnectionString()
	c, err := client.New(cfg)
	if err != nil {
		t.Fatalf("client.New: %v", err)
	}

	path := writeCSV(t, "Name,City,Category\nAcme Builders,Denver,Commercial\nBeta Homes,Boulder,Residential\n")
	syncer := syncpkg.New(c, sheet.NewCSVSource(path), nil)

	report, err := syncer.Customers(context.Background())
	if err != nil {
		t.Fatalf("Customers: %v", err)
	}
	if !report.OK() {
		t.Fatalf("report not OK: %+v", report)
	}

	if len(categories.posts) != 2 {
		t.Errorf("category creates = %d, want 2", len(categories.posts))
	}
	if len(customers.posts) != 2 {
		t.Errorf("customer creates = %d, want 2", len(customers.posts))
	}

	// Write calls carry the bearer token and tenant connection headers.
	h := mock.LastRequestHeader
	if got := h.Get("Authorization"); got != "Bearer test-token" {
		t.Errorf("Authorization = %q", got)
	}
	if got := h.Get("ConnectionString"); got != props.ConnectionString() {
		t.Errorf("ConnectionString = %q", got)
	}
}

func TestTransientRecoveryEndToEnd(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()

	mock.SetHandler("/Resource/Category/CustomerCategory", (&recordingHandler{}).handle)

	// The single customer row fails with the timeout signature twice, then
	// succeeds. The run must end clean without duplicating anything.
	mock.SetScript("/Resource/Organization/Customer", []testutil.MockResponse{
		testutil.NewTransientResponse(),
		testutil.NewTransientResponse(),
		testutil.NewCreatedResponse("cust-1", "Acme Builders"),
	})

	cfg := client.DefaultConfig(mock.URL(), "test-token")
	cfg.RetryBackoffUnit = 0 // no real waiting in tests
	c, err := client.New(cfg)
	if err != nil {
		t.Fatalf("client.New: %v", err)
	}

	path := writeCSV(t, "Name,City,Category\nAcme Builders,Denver,Commercial\n")
	syncer := syncpkg.New(c, sheet.NewCSVSource(path), nil)

	report, err := syncer.Customers(context.Background())
	if err != nil {
		t.Fatalf("Customers: %v", err)
	}
	if !report.OK() {
		t.Fatalf("report not OK: %+v", report)
	}
	if got := mock.GetPathCount("/Resource/Organization/Customer"); got != 3 {
		t.Errorf("customer endpoint hit %d times, want 3", got)
	}
}
