package query

import (
	"net/url"
	"strings"
	"testing"
)

const tenant = "00000000-0000-0000-0000-000000000000"

// decodeFilter extracts the decoded $filter expression from a built query
// string, the way a server would see it.
func decodeFilter(t *testing.T, q string) string {
	t.Helper()
	if !strings.HasPrefix(q, "?") {
		t.Fatalf("query %q lacks leading ?", q)
	}
	values, err := url.ParseQuery(q[1:])
	if err != nil {
		t.Fatalf("parse query %q: %v", q, err)
	}
	return values.Get("$filter")
}

func TestTenant(t *testing.T) {
	got := decodeFilter(t, Tenant(tenant))
	want := "EstimateREF eq 00000000-0000-0000-0000-000000000000"
	if got != want {
		t.Errorf("Tenant() filter = %q, want %q", got, want)
	}
}

func TestNames(t *testing.T) {
	tests := []struct {
		name  string
		names []string
		want  string
	}{
		{
			name:  "single name",
			names: []string{"Concrete"},
			want:  "EstimateREF eq " + tenant + " and (Name eq 'Concrete')",
		},
		{
			name:  "multiple names joined with or",
			names: []string{"Concrete", "Steel"},
			want:  "EstimateREF eq " + tenant + " and (Name eq 'Concrete' or Name eq 'Steel')",
		},
		{
			name:  "single quote is doubled",
			names: []string{"O'Brien Supply"},
			want:  "EstimateREF eq " + tenant + " and (Name eq 'O''Brien Supply')",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := decodeFilter(t, Names(tenant, tt.names)); got != tt.want {
				t.Errorf("Names() filter = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNamesCities(t *testing.T) {
	pairs := []NameCity{
		{Name: "Acme", City: "Denver"},
		{Name: "O'Neil", City: "Colorado Springs"},
	}
	got := decodeFilter(t, NamesCities(tenant, pairs))
	want := "EstimateREF eq " + tenant +
		" and ((Name eq 'Acme' and City eq 'Denver') or (Name eq 'O''Neil' and City eq 'Colorado Springs'))"
	if got != want {
		t.Errorf("NamesCities() filter = %q, want %q", got, want)
	}
}

func TestNamesParents(t *testing.T) {
	pairs := []NameParent{
		{Name: "Rebar", ParentRef: "ref-123"},
	}
	got := decodeFilter(t, NamesParents(tenant, pairs))
	want := "EstimateREF eq " + tenant +
		" and ((Name eq 'Rebar' and CategoryREF eq ref-123))"
	if got != want {
		t.Errorf("NamesParents() filter = %q, want %q", got, want)
	}
}

func TestQueryIsTransportSafe(t *testing.T) {
	q := Names(tenant, []string{"O'Brien Supply"})
	if strings.ContainsAny(q, " '") {
		t.Errorf("built query %q carries unencoded characters", q)
	}
}
