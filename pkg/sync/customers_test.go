package sync

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gradeworks/estimate-sync/internal/testutil"
	"github.com/gradeworks/estimate-sync/pkg/reconcile"
	"github.com/gradeworks/estimate-sync/pkg/sheet"
)

func customerRows() []sheet.Row {
	return []sheet.Row{
		{"Name": "Acme Builders", "City": "Denver", "Category": "Commercial"},
		{"Name": "Beta Homes", "City": "Boulder", "Category": "Residential"},
		{"Name": "Acme Annex", "City": "Denver", "Category": "Commercial"},
	}
}

func TestCustomers(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()
	categories := newHandler(mock, "/Resource/Category/CustomerCategory", "cat-")
	customers := newHandler(mock, "/Resource/Organization/Customer", "cust-")

	syncer, notifier := newTestSyncer(t, mock, fakeSource{"Customers": customerRows()})
	report, err := syncer.Customers(context.Background())
	require.NoError(t, err)
	assert.True(t, report.OK())

	// One category create per unique name, one customer per row.
	assert.ElementsMatch(t, []string{"Commercial", "Residential"}, categories.postedNames())
	assert.Equal(t, 3, customers.postCount())

	// Every payload carries the tenant marker.
	body := customers.postWith("Name", "Acme Builders")
	require.NotNil(t, body)
	assert.Equal(t, syncer.client.TenantRef(), body["EstimateREF"])
	assert.Equal(t, "Commercial", body["Category"])

	assert.Equal(t, "All rows were created successfully.", notifier.lastAlert())
}

func TestCustomers_FailedRowNumbers(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()
	newHandler(mock, "/Resource/Category/CustomerCategory", "cat-")
	customers := newHandler(mock, "/Resource/Organization/Customer", "cust-")
	customers.hardFailNames["Acme Builders"] = true
	customers.hardFailNames["Acme Annex"] = true

	syncer, notifier := newTestSyncer(t, mock, fakeSource{"Customers": customerRows()})
	report, err := syncer.Customers(context.Background())
	require.NoError(t, err)

	// Data indices 0 and 2 map to sheet rows 2 and 4 (row 1 is the header).
	assert.Equal(t, []int{2, 4}, report.FailedRows)
	assert.Equal(t, []int{2, 4}, notifier.highlighted)
	assert.Contains(t, notifier.lastAlert(), "Failed rows: 2, 4")
}

func TestCustomers_ExistingCustomerIsNotAFailure(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()
	newHandler(mock, "/Resource/Category/CustomerCategory", "cat-")
	customers := newHandler(mock, "/Resource/Organization/Customer", "cust-")
	customers.conflictNames["Beta Homes"] = true

	syncer, _ := newTestSyncer(t, mock, fakeSource{"Customers": customerRows()})
	report, err := syncer.Customers(context.Background())
	require.NoError(t, err)
	assert.True(t, report.OK())
}

func TestCustomers_CategoryFailureAborts(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()
	categories := newHandler(mock, "/Resource/Category/CustomerCategory", "cat-")
	categories.hardFailNames["Commercial"] = true
	customers := newHandler(mock, "/Resource/Organization/Customer", "cust-")

	syncer, _ := newTestSyncer(t, mock, fakeSource{"Customers": customerRows()})
	_, err := syncer.Customers(context.Background())

	var depErr *reconcile.DependencyError
	require.ErrorAs(t, err, &depErr)
	assert.Equal(t, []string{"Commercial"}, depErr.Names)
	// No customer row was attempted.
	assert.Equal(t, 0, customers.postCount())
}

func TestCustomers_NoData(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()

	syncer, notifier := newTestSyncer(t, mock, fakeSource{})
	report, err := syncer.Customers(context.Background())
	require.NoError(t, err)
	assert.True(t, report.OK())
	assert.Equal(t, "No data to send!", notifier.lastAlert())
	assert.Equal(t, 0, mock.GetRequestCount())
}

func TestCustomers_SourceError(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()

	syncer, _ := newTestSyncer(t, mock, nil)
	syncer.source = erroringSource{}
	_, err := syncer.Customers(context.Background())
	assert.Error(t, err)
}

type erroringSource struct{}

func (erroringSource) Rows(string) ([]sheet.Row, error) {
	return nil, errors.New("sheet unreadable")
}
