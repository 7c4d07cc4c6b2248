package catalog

import (
	"os"
	"strings"
)

// Resolver decides whether a credential reference points at a usable secret.
// The secret itself never enters the catalog.
type Resolver interface {
	Resolve(ref string) bool
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(ref string) bool

// Resolve calls f.
func (f ResolverFunc) Resolve(ref string) bool { return f(ref) }

// AllowAll resolves every non-empty reference.
var AllowAll Resolver = ResolverFunc(func(ref string) bool {
	return strings.TrimSpace(ref) != ""
})

// StaticResolver resolves a fixed set of references.
type StaticResolver map[string]struct{}

// NewStaticResolver builds a StaticResolver from refs.
func NewStaticResolver(refs ...string) StaticResolver {
	s := make(StaticResolver, len(refs))
	for _, ref := range refs {
		s[ref] = struct{}{}
	}
	return s
}

// Resolve reports whether ref is in the set.
func (s StaticResolver) Resolve(ref string) bool {
	_, ok := s[ref]
	return ok
}

// EnvResolver treats a reference as the name of an environment variable that
// must be set and non-empty.
type EnvResolver struct {
	Lookup func(string) (string, bool)
}

// Resolve reports whether the variable named by ref holds a value.
func (r EnvResolver) Resolve(ref string) bool {
	lookup := r.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}
	val, ok := lookup(ref)
	return ok && strings.TrimSpace(val) != ""
}
