// Package catalog maps logical task categories to provider call templates.
//
// A misconfigured catalog is an operator error: building a call for an
// unknown category or subkey, or for a template whose credential reference
// cannot be resolved, returns an error instead of substituting something else.
package catalog

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrUnknownCategory is returned for a category missing from the catalog.
	ErrUnknownCategory = errors.New("unknown category")
	// ErrUnknownSubkey is returned for a missing or unconfigured subkey.
	ErrUnknownSubkey = errors.New("unknown subkey")
	// ErrUnresolvedCredential is returned when a credential reference cannot be resolved.
	ErrUnresolvedCredential = errors.New("unresolved credential reference")
	// ErrInvalidTemplate is returned for templates without a provider or model.
	ErrInvalidTemplate = errors.New("invalid template")
	// ErrInvalidFallbacks is returned when a category declares more fallbacks than it supports.
	ErrInvalidFallbacks = errors.New("invalid fallback chain")
)

// singleFallback lists categories whose chain is a single secondary model.
var singleFallback = map[Category]bool{
	CategoryCoding:  true,
	CategoryGeneral: true,
}

// Catalog resolves categories to call specifications. It is read-only after
// construction and safe for concurrent use.
type Catalog struct {
	entries  map[Category]Entry
	resolver Resolver
}

// New creates a catalog. A nil resolver accepts every non-empty reference.
func New(entries map[Category]Entry, resolver Resolver) *Catalog {
	if resolver == nil {
		resolver = AllowAll
	}
	copied := make(map[Category]Entry, len(entries))
	for k, v := range entries {
		copied[k] = v
	}
	return &Catalog{entries: copied, resolver: resolver}
}

// Entry returns the raw entry for a category.
func (c *Catalog) Entry(category Category) (Entry, bool) {
	e, ok := c.entries[category]
	return e, ok
}

// Categories lists configured categories: known ones in canonical order,
// then any others alphabetically.
func (c *Catalog) Categories() []Category {
	out := make([]Category, 0, len(c.entries))
	known := make(map[Category]bool, len(canonicalOrder))
	for _, cat := range canonicalOrder {
		known[cat] = true
		if _, ok := c.entries[cat]; ok {
			out = append(out, cat)
		}
	}
	var extra []Category
	for cat := range c.entries {
		if !known[cat] {
			extra = append(extra, cat)
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })
	return append(out, extra...)
}

// Subkeys returns the sorted subkeys configured for a category.
func (c *Catalog) Subkeys(category Category) []string {
	e, ok := c.entries[category]
	if !ok {
		return nil
	}
	keys := make([]string, 0, len(e.Subkeys))
	for k := range e.Subkeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Build assembles the primary call for category and, when the category uses
// subkeys, subkey.
func (c *Catalog) Build(category Category, subkey string) (*CallSpec, error) {
	entry, ok := c.entries[category]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCategory, category)
	}

	tmpl, err := primaryTemplate(category, subkey, entry)
	if err != nil {
		return nil, err
	}
	return c.build(category, entry, tmpl)
}

// Fallbacks assembles the category's fallback chain in configured order.
func (c *Catalog) Fallbacks(category Category) ([]*CallSpec, error) {
	entry, ok := c.entries[category]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCategory, category)
	}
	if singleFallback[category] && len(entry.Fallbacks) > 1 {
		return nil, fmt.Errorf("%w: %s supports one fallback, got %d", ErrInvalidFallbacks, category, len(entry.Fallbacks))
	}

	specs := make([]*CallSpec, 0, len(entry.Fallbacks))
	for _, tmpl := range entry.Fallbacks {
		spec, err := c.build(category, entry, tmpl)
		if err != nil {
			return nil, fmt.Errorf("fallback %s: %w", tmpl.Model, err)
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

// Validate builds every primary and fallback so configuration mistakes
// surface at startup. All problems are reported together.
func (c *Catalog) Validate() error {
	var errs []error
	for _, category := range c.Categories() {
		entry := c.entries[category]
		if len(entry.Subkeys) > 0 {
			for _, subkey := range c.Subkeys(category) {
				if _, err := c.Build(category, subkey); err != nil {
					errs = append(errs, err)
				}
			}
		} else if _, err := c.Build(category, ""); err != nil {
			errs = append(errs, err)
		}
		if _, err := c.Fallbacks(category); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", category, err))
		}
	}
	return errors.Join(errs...)
}

func primaryTemplate(category Category, subkey string, entry Entry) (Template, error) {
	if len(entry.Subkeys) == 0 {
		if subkey != "" {
			return Template{}, fmt.Errorf("%w: %s has no subkeys, got %q", ErrUnknownSubkey, category, subkey)
		}
		return Template{
			Provider:    entry.Provider,
			Model:       entry.Model,
			Credentials: entry.Credentials,
		}, nil
	}
	if subkey == "" {
		return Template{}, fmt.Errorf("%w: %s requires a subkey", ErrUnknownSubkey, category)
	}
	tmpl, ok := entry.Subkeys[subkey]
	if !ok {
		return Template{}, fmt.Errorf("%w: %s/%s", ErrUnknownSubkey, category, subkey)
	}
	return tmpl, nil
}

func (c *Catalog) build(category Category, entry Entry, tmpl Template) (*CallSpec, error) {
	if strings.TrimSpace(tmpl.Provider) == "" || strings.TrimSpace(tmpl.Model) == "" {
		return nil, fmt.Errorf("%w: %s needs provider and model", ErrInvalidTemplate, category)
	}

	refs := tmpl.Credentials
	if len(refs) == 0 {
		refs = entry.Credentials
	}
	if len(refs) == 0 {
		return nil, fmt.Errorf("%w: %s/%s declares no credentials", ErrUnresolvedCredential, category, tmpl.Model)
	}
	for _, ref := range refs {
		if !c.resolver.Resolve(ref) {
			return nil, fmt.Errorf("%w: %q for %s/%s", ErrUnresolvedCredential, ref, category, tmpl.Model)
		}
	}

	return &CallSpec{
		Provider:       tmpl.Provider,
		ProviderModel:  tmpl.Model,
		CredentialRefs: append([]string(nil), refs...),
		Tunables:       entry.Tunables.Merge(tmpl.Tunables),
	}, nil
}
