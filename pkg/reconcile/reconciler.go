// Package reconcile turns "ensure these named entities exist remotely" into
// batched creates plus a single fetch-back for the ones the server already
// had. The create endpoint does not echo an existing record on conflict, so
// the follow-up filtered read is the only way to learn its identifier.
package reconcile

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/gradeworks/estimate-sync/pkg/client"
	"github.com/gradeworks/estimate-sync/pkg/logging"
	"github.com/gradeworks/estimate-sync/pkg/pagination"
	"github.com/gradeworks/estimate-sync/pkg/query"
)

// Entity is a named remote record. ObjectID is server-issued and opaque; it
// does not exist until the server creates or returns the record. CategoryREF
// is set only for subcategory kinds.
type Entity struct {
	ObjectID    string `json:"ObjectID,omitempty"`
	EstimateREF string `json:"EstimateREF,omitempty"`
	Name        string `json:"Name"`
	CategoryREF string `json:"CategoryREF,omitempty"`
}

// Kind names one remote resource family with its own creation endpoint.
type Kind struct {
	// Path is the resource path under /Resource, e.g. "Category/WorkType".
	Path string

	// Label is the human-readable singular used in logs and errors.
	Label string
}

// The resource families the pipelines reconcile.
var (
	KindCustomerCategory      = Kind{Path: "Category/CustomerCategory", Label: "customer category"}
	KindVendorCategory        = Kind{Path: "Category/VendorCategory", Label: "vendor category"}
	KindSubcontractorCategory = Kind{Path: "Category/SubcontractorCategory", Label: "subcontractor category"}
	KindMaterialCategory      = Kind{Path: "Category/MaterialCategory", Label: "material category"}
	KindWorkType              = Kind{Path: "Category/WorkType", Label: "work type"}
	KindMaterialSubcategory   = Kind{Path: "Subcategory/MaterialSubcategory", Label: "material subcategory"}
	KindWorkSubType           = Kind{Path: "Subcategory/WorkSubType", Label: "work subtype"}
)

// Outcome is the three-way partition of one reconciliation: every requested
// name ends up in exactly one of Created, AlreadyExisted (by entity), or
// Failed (by name).
type Outcome struct {
	Created        []Entity
	AlreadyExisted []Entity
	Failed         []string
}

// Resolved returns the authoritative identifier source for dependent calls:
// the union of created and fetched-back entities.
func (o Outcome) Resolved() []Entity {
	resolved := make([]Entity, 0, len(o.Created)+len(o.AlreadyExisted))
	resolved = append(resolved, o.Created...)
	resolved = append(resolved, o.AlreadyExisted...)
	return resolved
}

// RefByName maps entity names to their identifiers. The first occurrence of
// a name wins.
func (o Outcome) RefByName() map[string]string {
	refs := make(map[string]string)
	for _, e := range o.Resolved() {
		if _, ok := refs[e.Name]; !ok {
			refs[e.Name] = e.ObjectID
		}
	}
	return refs
}

// DependencyError aborts a pipeline when required parent entities could not
// be created: dependent rows cannot be meaningfully created without them.
type DependencyError struct {
	Kind  Kind
	Names []string
}

// Error implements the error interface.
func (e *DependencyError) Error() string {
	return fmt.Sprintf("creating required %s entries failed: %s", e.Kind.Label, strings.Join(e.Names, ", "))
}

// Subcategory is one requested child entity: its name plus the name of the
// parent category it belongs to. Callers deduplicate by the parent|child
// composite key before reconciling.
type Subcategory struct {
	Name   string
	Parent string
}

// Key returns the composite dedup key.
func (s Subcategory) Key() string {
	return s.Parent + "|" + s.Name
}

// Reconciler batches entity creation against the remote API and reconciles
// already-exists responses via fetch-back.
type Reconciler struct {
	client *client.Client
	logger zerolog.Logger
}

// New creates a reconciler on top of an API client.
func New(c *client.Client) *Reconciler {
	return &Reconciler{
		client: c,
		logger: logging.NewLogger("reconcile"),
	}
}

// Categories ensures one top-level entity per unique name exists remotely.
// Zero names short-circuits without any network call.
func (r *Reconciler) Categories(ctx context.Context, kind Kind, names []string) (Outcome, error) {
	var out Outcome
	if len(names) == 0 {
		return out, nil
	}

	reqs := make([]client.Request, len(names))
	for i, name := range names {
		reqs[i] = client.Request{
			Method: http.MethodPost,
			Path:   "/Resource/" + kind.Path,
			Body:   Entity{Name: name, EstimateREF: r.client.TenantRef()},
		}
	}
	resps, err := r.client.Dispatch(ctx, reqs)
	if err != nil {
		return out, err
	}

	var toFetch []string
	for _, resp := range resps {
		name := names[resp.Index]
		switch r.client.Classify(resp) {
		case client.ClassCreated:
			item, decodeErr := decodeItem(resp.Body)
			if decodeErr != nil {
				r.logger.Error().Err(decodeErr).
					Str("kind", kind.Label).
					Str("name", name).
					Msg("Created record could not be decoded")
				out.Failed = append(out.Failed, name)
				continue
			}
			out.Created = append(out.Created, item)
		case client.ClassConflict:
			r.logger.Debug().
				Str("kind", kind.Label).
				Str("name", name).
				Msg("Entity already existed")
			toFetch = append(toFetch, name)
		default:
			r.logger.Error().
				Str("kind", kind.Label).
				Str("name", name).
				Int("status", resp.StatusCode).
				Str("body", string(resp.Body)).
				Msg("Entity creation failed")
			out.Failed = append(out.Failed, name)
		}
	}

	if len(toFetch) > 0 {
		q := query.Names(r.client.TenantRef(), toFetch)
		existing, fetchErr := pagination.ListAll[Entity](ctx, r.client, kind.Label, "/Resource/"+kind.Path, q)
		if fetchErr != nil {
			return out, fetchErr
		}
		out.AlreadyExisted = append(out.AlreadyExisted, existing...)
	}

	r.logger.Info().
		Str("kind", kind.Label).
		Int("created", len(out.Created)).
		Int("already_existed", len(out.AlreadyExisted)).
		Int("failed", len(out.Failed)).
		Msg("Reconciliation complete")
	return out, nil
}

// Subcategories ensures one child entity per (parent, name) pair exists
// remotely, resolving parent names through the given parent list. Pairs
// whose parent has no known identifier fail immediately without a create
// call. The fetch-back filter carries the parent reference because child
// names alone are not unique.
func (r *Reconciler) Subcategories(ctx context.Context, kind Kind, subs []Subcategory, parents []Entity) (Outcome, error) {
	var out Outcome
	if len(subs) == 0 {
		return out, nil
	}

	parentRefs := make(map[string]string, len(parents))
	for _, p := range parents {
		if _, ok := parentRefs[p.Name]; !ok {
			parentRefs[p.Name] = p.ObjectID
		}
	}

	var reqs []client.Request
	var requested []Subcategory
	var requestedRefs []string
	for _, s := range subs {
		ref, ok := parentRefs[s.Parent]
		if !ok {
			r.logger.Warn().
				Str("kind", kind.Label).
				Str("name", s.Name).
				Str("parent", s.Parent).
				Msg("Parent category has no identifier")
			out.Failed = append(out.Failed, s.Name)
			continue
		}
		reqs = append(reqs, client.Request{
			Method: http.MethodPost,
			Path:   "/Resource/" + kind.Path,
			Body:   Entity{Name: s.Name, EstimateREF: r.client.TenantRef(), CategoryREF: ref},
		})
		requested = append(requested, s)
		requestedRefs = append(requestedRefs, ref)
	}

	resps, err := r.client.Dispatch(ctx, reqs)
	if err != nil {
		return out, err
	}

	var toFetch []query.NameParent
	for _, resp := range resps {
		s := requested[resp.Index]
		switch r.client.Classify(resp) {
		case client.ClassCreated:
			item, decodeErr := decodeItem(resp.Body)
			if decodeErr != nil {
				r.logger.Error().Err(decodeErr).
					Str("kind", kind.Label).
					Str("name", s.Name).
					Msg("Created record could not be decoded")
				out.Failed = append(out.Failed, s.Name)
				continue
			}
			out.Created = append(out.Created, item)
		case client.ClassConflict:
			toFetch = append(toFetch, query.NameParent{Name: s.Name, ParentRef: requestedRefs[resp.Index]})
		default:
			r.logger.Error().
				Str("kind", kind.Label).
				Str("name", s.Name).
				Int("status", resp.StatusCode).
				Str("body", string(resp.Body)).
				Msg("Entity creation failed")
			out.Failed = append(out.Failed, s.Name)
		}
	}

	if len(toFetch) > 0 {
		q := query.NamesParents(r.client.TenantRef(), toFetch)
		existing, fetchErr := pagination.ListAll[Entity](ctx, r.client, kind.Label, "/Resource/"+kind.Path, q)
		if fetchErr != nil {
			return out, fetchErr
		}
		out.AlreadyExisted = append(out.AlreadyExisted, existing...)
	}

	r.logger.Info().
		Str("kind", kind.Label).
		Int("created", len(out.Created)).
		Int("already_existed", len(out.AlreadyExisted)).
		Int("failed", len(out.Failed)).
		Msg("Reconciliation complete")
	return out, nil
}

// decodeItem parses the single-create response envelope. A missing ObjectID
// means the body carried no usable record.
func decodeItem(body []byte) (Entity, error) {
	var envelope struct {
		Item Entity `json:"Item"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return Entity{}, err
	}
	if envelope.Item.ObjectID == "" {
		return Entity{}, fmt.Errorf("response carried no Item record")
	}
	return envelope.Item, nil
}
