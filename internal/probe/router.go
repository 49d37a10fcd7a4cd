package probe

import (
	"context"

	"scenekit/internal/models"
)

// Prober checks one candidate.
type Prober interface {
	Probe(ctx context.Context, c models.Candidate) bool
}

// Router dispatches candidates to the probe matching their backend.
type Router struct {
	HTTP *HTTP
	GCS  *GCS
}

// Probe returns false for non-probeable backends and for backends whose
// probe kind has no configured prober.
func (r Router) Probe(ctx context.Context, c models.Candidate) bool {
	if !c.Backend.Probeable {
		return false
	}
	switch c.Backend.ProbeKind {
	case models.ProbeGCS:
		return r.GCS.Probe(ctx, c.Backend.Bucket, c.ObjectKey)
	case models.ProbeHTTP, "":
		return r.HTTP.Probe(ctx, c.URL)
	default:
		return false
	}
}

// Func adapts a function to Prober.
type Func func(ctx context.Context, c models.Candidate) bool

func (f Func) Probe(ctx context.Context, c models.Candidate) bool {
	return f(ctx, c)
}
