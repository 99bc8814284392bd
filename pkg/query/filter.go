// Package query builds the narrow OData filter subset the estimating API
// understands: a tenant predicate plus parenthesized name predicates joined
// by " or ". It is not a general query builder.
package query

import (
	"fmt"
	"net/url"
	"strings"
)

// escape doubles single quotes per OData string-literal rules.
func escape(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

// filter percent-encodes the assembled expression into a query string.
func filter(expr string) string {
	return "?$filter=" + url.QueryEscape(expr)
}

// Tenant returns the base filter scoping a list call to the tenant marker.
func Tenant(tenantRef string) string {
	return filter(fmt.Sprintf("EstimateREF eq %s", tenantRef))
}

// Names selects entities matching any of the given names within the tenant
// scope. Callers pass at least one name.
func Names(tenantRef string, names []string) string {
	preds := make([]string, len(names))
	for i, name := range names {
		preds[i] = fmt.Sprintf("Name eq '%s'", escape(name))
	}
	return filter(fmt.Sprintf("EstimateREF eq %s and (%s)", tenantRef, strings.Join(preds, " or ")))
}

// NameCity is a composite organization key. Organization names alone are not
// unique remotely; the city disambiguates.
type NameCity struct {
	Name string
	City string
}

// NamesCities selects organizations matching any of the (name, city) pairs.
func NamesCities(tenantRef string, pairs []NameCity) string {
	preds := make([]string, len(pairs))
	for i, p := range pairs {
		preds[i] = fmt.Sprintf("(Name eq '%s' and City eq '%s')", escape(p.Name), escape(p.City))
	}
	return filter(fmt.Sprintf("EstimateREF eq %s and (%s)", tenantRef, strings.Join(preds, " or ")))
}

// NameParent is a composite subcategory key: the subcategory name plus the
// server identifier of its parent category.
type NameParent struct {
	Name      string
	ParentRef string
}

// NamesParents selects subcategories matching any of the (name, parent)
// pairs. Parent references are server-issued identifiers and are not quoted.
func NamesParents(tenantRef string, pairs []NameParent) string {
	preds := make([]string, len(pairs))
	for i, p := range pairs {
		preds[i] = fmt.Sprintf("(Name eq '%s' and CategoryREF eq %s)", escape(p.Name), p.ParentRef)
	}
	return filter(fmt.Sprintf("EstimateREF eq %s and (%s)", tenantRef, strings.Join(preds, " or ")))
}
