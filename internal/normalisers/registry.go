package normalisers

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/quarry-labs/quarry-cli/internal/core/domain"
	"github.com/quarry-labs/quarry-cli/internal/core/ports/driven"
)

// Fallback normalisers register with a priority below this band; the
// registry routes unrecognised content types to the best of them.
const fallbackPriorityBand = 10

// Ensure Registry implements the interface.
var _ driven.NormaliserRegistry = (*Registry)(nil)

// Registry dispatches records to the highest-priority normaliser registered
// for their content type.
type Registry struct {
	mu     sync.RWMutex
	byType map[string][]driven.Normaliser
	all    []driven.Normaliser
}

// NewRegistry creates an empty normaliser registry.
func NewRegistry() *Registry {
	return &Registry{
		byType: make(map[string][]driven.Normaliser),
	}
}

// Register adds a normaliser to the registry.
// Registration order does not matter; priority decides dispatch.
func (r *Registry) Register(normaliser driven.Normaliser) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.all = append(r.all, normaliser)
	for _, ct := range normaliser.SupportedContentTypes() {
		key := canonicalContentType(ct)
		r.byType[key] = append(r.byType[key], normaliser)
		sort.SliceStable(r.byType[key], func(i, j int) bool {
			return r.byType[key][i].Priority() > r.byType[key][j].Priority()
		})
	}
}

// Normalise converts a raw record using the best matching normaliser.
// Unrecognised content types fall through to the best fallback-band
// normaliser so a record is never dropped for its content type alone.
func (r *Registry) Normalise(ctx context.Context, raw *domain.RawRecord) (*domain.CanonicalDocument, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	n := r.forContentType(raw.ContentType)
	if n == nil {
		n = r.fallback()
	}
	if n == nil {
		return nil, &domain.MalformedRecordError{
			Source:   raw.Source,
			SourceID: raw.SourceID,
			Reason:   "no normaliser registered for content type " + raw.ContentType,
		}
	}

	return n.Normalise(ctx, raw)
}

// SupportedContentTypes returns all content types with a registered
// normaliser, sorted for stable output.
func (r *Registry) SupportedContentTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.byType))
	for ct := range r.byType {
		types = append(types, ct)
	}
	sort.Strings(types)
	return types
}

// forContentType returns the highest-priority normaliser for ct, or nil.
func (r *Registry) forContentType(ct string) driven.Normaliser {
	r.mu.RLock()
	defer r.mu.RUnlock()

	candidates := r.byType[canonicalContentType(ct)]
	if len(candidates) == 0 {
		return nil
	}
	return candidates[0]
}

// fallback returns the best normaliser in the fallback priority band.
func (r *Registry) fallback() driven.Normaliser {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var best driven.Normaliser
	for _, n := range r.all {
		if n.Priority() >= fallbackPriorityBand {
			continue
		}
		if best == nil || n.Priority() > best.Priority() {
			best = n
		}
	}
	return best
}

// canonicalContentType lowercases a MIME type and drops parameters, so
// "text/HTML; charset=utf-8" matches "text/html".
func canonicalContentType(ct string) string {
	base, _, _ := strings.Cut(ct, ";")
	return strings.ToLower(strings.TrimSpace(base))
}
