package models

import (
	"net/url"
	"strings"
)

// Source values for resolutions that did not come from a probed backend.
const (
	SourceLocal    = "local"
	SourceFallback = "fallback"
)

// AssetReference is a logical asset lookup.
type AssetReference struct {
	RawName string    `json:"raw_name" yaml:"raw_name"`
	Kind    AssetKind `json:"kind" yaml:"kind"`
}

// Backend describes one storage location tried during resolution.
// Backends are process-wide configuration and are not mutated after startup.
type Backend struct {
	ID          string    `json:"id" toml:"id" yaml:"id"`
	Tier        Tier      `json:"tier" toml:"tier" yaml:"tier"`
	URLTemplate string    `json:"url_template" toml:"url_template" yaml:"url_template"`
	Probeable   bool      `json:"probeable" toml:"probeable" yaml:"probeable"`
	ProbeKind   ProbeKind `json:"probe,omitempty" toml:"probe" yaml:"probe,omitempty"`

	// Bucket and ObjectTemplate are used by gcs probes only.
	Bucket         string `json:"bucket,omitempty" toml:"bucket" yaml:"bucket,omitempty"`
	ObjectTemplate string `json:"object_template,omitempty" toml:"object_template" yaml:"object_template,omitempty"`
}

// URL expands the backend template for a clean asset name.
func (b Backend) URL(name string, kind AssetKind) string {
	return expandTemplate(b.URLTemplate, url.PathEscape(name), kind)
}

// ObjectKey expands the object template; an empty template falls back to {kind}/{name}.
func (b Backend) ObjectKey(name string, kind AssetKind) string {
	tmpl := b.ObjectTemplate
	if strings.TrimSpace(tmpl) == "" {
		tmpl = "{kind}/{name}"
	}
	return strings.TrimPrefix(expandTemplate(tmpl, name, kind), "/")
}

// IsLocal reports whether the backend points at the local filesystem tier.
func (b Backend) IsLocal() bool {
	return b.Tier == TierLocal
}

// Candidate is one (name variant, backend) pair considered during probing.
type Candidate struct {
	Name      string  `json:"name" yaml:"name"`
	Backend   Backend `json:"backend" yaml:"backend"`
	URL       string  `json:"url" yaml:"url"`
	ObjectKey string  `json:"object_key,omitempty" yaml:"object_key,omitempty"`
}

// NewCandidate builds the candidate for a name on a backend.
func NewCandidate(name string, kind AssetKind, backend Backend) Candidate {
	c := Candidate{
		Name:    name,
		Backend: backend,
		URL:     backend.URL(name, kind),
	}
	if backend.ProbeKind == ProbeGCS {
		c.ObjectKey = backend.ObjectKey(name, kind)
	}
	return c
}

// ResolvedAsset is the outcome of one resolution.
type ResolvedAsset struct {
	Reference AssetReference `json:"reference" yaml:"reference"`
	URL       string         `json:"url" yaml:"url"`
	Source    string         `json:"source" yaml:"source"`
}

// Confirmed reports whether the URL was confirmed by a probe.
func (r ResolvedAsset) Confirmed() bool {
	return r.Source != "" && r.Source != SourceFallback
}

func expandTemplate(tmpl, name string, kind AssetKind) string {
	return strings.NewReplacer("{name}", name, "{kind}", kind.Folder()).Replace(tmpl)
}
