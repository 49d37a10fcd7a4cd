package locator

import (
	"context"
	"log/slog"
	"strings"

	"golang.org/x/sync/singleflight"

	"scenekit/internal/models"
	"scenekit/internal/naming"
	"scenekit/internal/probe"
)

// Locator turns asset references into retrieval URLs.
//
// Probe order has three stages:
//   - priority: only for allow-listed names; tier outer, name inner.
//   - store sweep: name outer, tier inner.
//   - local: tier outer, name inner, skipping URLs already tried.
//
// When nothing answers, the first candidate of the plan is returned
// unconfirmed and is not cached.
type Locator struct {
	normalizer *naming.Normalizer
	priority   []models.Backend
	store      []models.Backend
	local      []models.Backend
	prober     probe.Prober
	cache      Cache
	group      singleflight.Group
	logger     *slog.Logger
}

// Options configures a Locator.
type Options struct {
	Normalizer *naming.Normalizer
	// Backends defaults to DefaultBackends when empty.
	Backends []models.Backend
	Prober   probe.Prober
	// Cache defaults to an in-process MemoryCache.
	Cache  Cache
	Logger *slog.Logger
}

// New builds a Locator. It never fails; missing collaborators get defaults
// that keep Resolve total.
func New(opts Options) *Locator {
	l := &Locator{
		normalizer: opts.Normalizer,
		prober:     opts.Prober,
		cache:      opts.Cache,
		logger:     opts.Logger,
	}
	if l.normalizer == nil {
		l.normalizer = naming.New(naming.DefaultTables())
	}
	if l.prober == nil {
		l.prober = probe.Func(func(context.Context, models.Candidate) bool { return false })
	}
	if l.cache == nil {
		l.cache = NewMemoryCache()
	}
	if l.logger == nil {
		l.logger = slog.Default()
	}
	l.logger = l.logger.With("component", "locator")

	backends := opts.Backends
	if len(backends) == 0 {
		backends = DefaultBackends()
	}
	for _, b := range backends {
		switch b.Tier {
		case models.TierPriority:
			l.priority = append(l.priority, b)
		case models.TierLocal:
			l.local = append(l.local, b)
		default:
			l.store = append(l.store, b)
		}
	}
	return l
}

// Resolve returns a URL for raw. It never fails: an empty reference yields
// "", and an unconfirmed lookup yields the best guess.
func (l *Locator) Resolve(ctx context.Context, raw string, kind models.AssetKind) string {
	return l.ResolveAsset(ctx, raw, kind).URL
}

// ResolveAsset is Resolve with the source of the answer.
func (l *Locator) ResolveAsset(ctx context.Context, raw string, kind models.AssetKind) models.ResolvedAsset {
	ref := models.AssetReference{RawName: raw, Kind: kind}
	if strings.TrimSpace(raw) == "" {
		return models.ResolvedAsset{Reference: ref}
	}

	key := cacheKey(ref)
	if hit, ok := l.cache.Get(ctx, key); ok {
		return hit
	}

	v, _, _ := l.group.Do(key, func() (any, error) {
		if hit, ok := l.cache.Get(ctx, key); ok {
			return hit, nil
		}
		res := l.sweep(ctx, ref)
		if res.Confirmed() {
			l.cache.Set(ctx, key, res)
		}
		return res, nil
	})
	return v.(models.ResolvedAsset)
}

// Plan returns the ordered candidates Resolve would try for raw.
func (l *Locator) Plan(raw string, kind models.AssetKind) []models.Candidate {
	names := l.normalizer.Normalize(raw)
	if names[0] == "" {
		return nil
	}

	seen := map[string]struct{}{}
	var plan []models.Candidate
	add := func(name string, b models.Backend) {
		c := models.NewCandidate(name, kind, b)
		if _, ok := seen[c.URL]; ok {
			return
		}
		seen[c.URL] = struct{}{}
		plan = append(plan, c)
	}

	if l.normalizer.Prioritized(raw) {
		for _, b := range l.priority {
			for _, name := range names {
				add(name, b)
			}
		}
	}
	for _, name := range names {
		for _, b := range l.store {
			add(name, b)
		}
	}
	for _, b := range l.local {
		for _, name := range names {
			add(name, b)
		}
	}
	return plan
}

func (l *Locator) sweep(ctx context.Context, ref models.AssetReference) models.ResolvedAsset {
	plan := l.Plan(ref.RawName, ref.Kind)
	if len(plan) == 0 {
		guess := l.normalizer.Normalize(ref.RawName)[0]
		if guess == "" {
			guess = strings.TrimSpace(ref.RawName)
		}
		return models.ResolvedAsset{Reference: ref, URL: guess, Source: models.SourceFallback}
	}

	for _, c := range plan {
		if !c.Backend.Probeable {
			continue
		}
		if err := ctx.Err(); err != nil {
			break
		}
		if l.prober.Probe(ctx, c) {
			source := c.Backend.ID
			if c.Backend.IsLocal() {
				source = models.SourceLocal
			}
			l.logger.Debug("asset resolved", "name", ref.RawName, "kind", ref.Kind, "url", c.URL, "backend", c.Backend.ID)
			return models.ResolvedAsset{Reference: ref, URL: c.URL, Source: source}
		}
	}

	guess := plan[0]
	l.logger.Debug("asset unconfirmed, using best guess", "name", ref.RawName, "kind", ref.Kind, "url", guess.URL, "tried", len(plan))
	return models.ResolvedAsset{Reference: ref, URL: guess.URL, Source: models.SourceFallback}
}

func cacheKey(ref models.AssetReference) string {
	return string(ref.Kind) + ":" + ref.RawName
}
