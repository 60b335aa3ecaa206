package ogm

import (
	"fmt"
	"sort"
	"strings"

	"github.com/neogm/neogm/cypher"
)

// Prefetch describes which relationships to load eagerly alongside the
// matched nodes, nested to arbitrary depth. The zero value prefetches
// nothing.
type Prefetch map[string]Prefetch

// PrefetchPaths builds a Prefetch tree from dotted paths, so
// PrefetchPaths("friends", "friends.employer") eagerly loads friends and
// each friend's employer.
func PrefetchPaths(paths ...string) Prefetch {
	root := Prefetch{}
	for _, path := range paths {
		cur := root
		for _, seg := range strings.Split(path, ".") {
			if seg == "" {
				continue
			}
			next, ok := cur[seg]
			if !ok || next == nil {
				next = Prefetch{}
				cur[seg] = next
			}
			cur = next
		}
	}
	return root
}

// BuildProjection renders the map projection for one node alias, embedding
// a pattern comprehension per prefetched relationship. Each comprehension
// yields { rel: ..., node: ... } pairs where the nested node projection is
// built recursively, so a single round trip carries the whole subtree.
func BuildProjection(reg *Registry, info *NodeInfo, alias string, prefetch Prefetch) (string, error) {
	parts := []string{".*", fmt.Sprintf("_internal_id: elementId(%s)", alias)}

	names := make([]string, 0, len(prefetch))
	for name := range prefetch {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		rel, ok := info.RelByName(name)
		if !ok {
			return "", &UnknownRelationshipError{Label: info.Label, Name: name}
		}
		target, err := reg.Lookup(rel.Target)
		if err != nil {
			return "", err
		}

		childAlias := "_" + alias + "_" + name
		relAlias := "r" + childAlias

		nested, err := BuildProjection(reg, target, childAlias, prefetch[name])
		if err != nil {
			return "", err
		}

		pattern := "(" + alias + ")" +
			cypher.RelPattern(relAlias, rel.Type, rel.Direction) +
			cypher.NodePattern(childAlias, target.Label)

		parts = append(parts, fmt.Sprintf(
			"%s: [%s | { rel: %s { .*, _internal_id: elementId(%s) }, node: %s }]",
			name, pattern, relAlias, relAlias, nested))
	}

	return alias + " { " + strings.Join(parts, ", ") + " }", nil
}
