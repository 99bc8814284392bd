package reconcile

// Ref is an identifier a dependent record must reference, tagged with
// whether it points at a subcategory.
type Ref struct {
	ObjectID    string
	Subcategory bool
}

// Resolver maps bare category-or-subcategory names to the identifiers a
// dependent record (e.g. an organization-to-material-category link) must
// reference.
type Resolver struct {
	categories    map[string]string
	subcategories map[string][]string
}

// NewResolver builds a resolver from freshly reconciled category and
// subcategory lists. Duplicate category names keep the first identifier.
func NewResolver(categories, subcategories []Entity) *Resolver {
	r := &Resolver{
		categories:    make(map[string]string, len(categories)),
		subcategories: make(map[string][]string, len(subcategories)),
	}
	for _, c := range categories {
		if _, ok := r.categories[c.Name]; !ok {
			r.categories[c.Name] = c.ObjectID
		}
	}
	for _, s := range subcategories {
		r.subcategories[s.Name] = append(r.subcategories[s.Name], s.ObjectID)
	}
	return r
}

// Resolve returns the references for a name. A top-level category match
// takes precedence over any subcategory match; a subcategory name may map
// to several entities when it appears under different parents. Unknown
// names return nil.
//
// The category-first precedence mirrors the remote schema's lookup rules;
// it is not validated against the user's intent when a name is ambiguous.
func (r *Resolver) Resolve(name string) []Ref {
	if id, ok := r.categories[name]; ok {
		return []Ref{{ObjectID: id}}
	}
	ids, ok := r.subcategories[name]
	if !ok {
		return nil
	}
	refs := make([]Ref, len(ids))
	for i, id := range ids {
		refs[i] = Ref{ObjectID: id, Subcategory: true}
	}
	return refs
}
