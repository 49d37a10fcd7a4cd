package naming

import (
	"regexp"
	"sort"
	"strings"
)

var versionPrefixPattern = regexp.MustCompile(`^[vV][0-9]+[_\-.]`)

// Normalizer turns raw asset references into ordered name variants.
// It is immutable after New and safe for concurrent use.
type Normalizer struct {
	aliases   map[string]string
	fallbacks map[string][]string
	priority  map[string]struct{}
}

// New builds a Normalizer from tables. Alias chains are collapsed to their
// final target up front so lookups never walk the table.
func New(tables Tables) *Normalizer {
	n := &Normalizer{
		aliases:   make(map[string]string, len(tables.Aliases)),
		fallbacks: make(map[string][]string, len(tables.Fallbacks)),
		priority:  make(map[string]struct{}, len(tables.Priority)),
	}

	edges := make(map[string]string, len(tables.Aliases))
	for from, to := range tables.Aliases {
		from = clean(from)
		to = clean(to)
		if from == "" || to == "" {
			continue
		}
		edges[strings.ToLower(from)] = to
	}
	for key := range edges {
		n.aliases[key] = collapse(key, edges)
	}

	for name, chain := range tables.Fallbacks {
		canonical := n.resolveAlias(clean(name))
		if canonical == "" {
			continue
		}
		key := strings.ToLower(canonical)
		for _, entry := range chain {
			entry = clean(entry)
			if entry == "" {
				continue
			}
			n.fallbacks[key] = append(n.fallbacks[key], entry)
		}
	}

	for _, name := range tables.Priority {
		canonical := n.resolveAlias(clean(name))
		if canonical != "" {
			n.priority[strings.ToLower(canonical)] = struct{}{}
		}
	}
	return n
}

// Normalize returns the canonical name followed by its fallback chain.
// The result is never empty; an empty reference yields [""].
func (n *Normalizer) Normalize(raw string) []string {
	canonical := n.Canonical(raw)
	out := []string{canonical}
	if canonical == "" {
		return out
	}
	seen := map[string]struct{}{strings.ToLower(canonical): {}}
	for _, entry := range n.fallbacks[strings.ToLower(canonical)] {
		key := strings.ToLower(entry)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, entry)
	}
	return out
}

// Canonical strips path and version decoration and applies the alias table.
func (n *Normalizer) Canonical(raw string) string {
	return n.resolveAlias(clean(raw))
}

// Prioritized reports whether raw is on the priority allow-list.
func (n *Normalizer) Prioritized(raw string) bool {
	canonical := n.Canonical(raw)
	if canonical == "" {
		return false
	}
	_, ok := n.priority[strings.ToLower(canonical)]
	return ok
}

func (n *Normalizer) resolveAlias(name string) string {
	if name == "" {
		return ""
	}
	if target, ok := n.aliases[strings.ToLower(name)]; ok {
		return target
	}
	return name
}

// collapse follows alias edges from key to a fixed point. A cycle resolves
// to its lexically smallest member so every entry point agrees.
func collapse(key string, edges map[string]string) string {
	order := []string{}
	index := map[string]int{}
	names := map[string]string{}
	current := key
	for {
		if i, ok := index[current]; ok {
			cycle := append([]string(nil), order[i:]...)
			sort.Strings(cycle)
			return names[cycle[0]]
		}
		target, ok := edges[current]
		if !ok {
			return names[current]
		}
		index[current] = len(order)
		order = append(order, current)
		if _, seen := names[current]; !seen {
			names[current] = current
		}
		next := strings.ToLower(target)
		names[next] = target
		current = next
	}
}

// clean strips query, directory, and leading version segments.
func clean(raw string) string {
	name := strings.TrimSpace(raw)
	if i := strings.IndexAny(name, "?#"); i >= 0 {
		name = name[:i]
	}
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	name = strings.TrimSpace(name)
	for {
		loc := versionPrefixPattern.FindStringIndex(name)
		if loc == nil {
			break
		}
		// "v2.glb" has no name left once the prefix goes.
		rest := strings.TrimSpace(name[loc[1]:])
		if rest == "" || strings.HasPrefix(rest, ".") || !strings.Contains(rest, ".") {
			break
		}
		name = rest
	}
	return name
}
