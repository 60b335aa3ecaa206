package ext

import (
	"context"
	"fmt"

	"github.com/neogm/neogm/ogm"
)

// GDS exposes a subset of the Graph Data Science procedure library over
// named in-memory graph projections.
type GDS struct {
	db *ogm.DB
}

// NewGDS creates the GDS wrapper over a session.
func NewGDS(db *ogm.DB) *GDS {
	return &GDS{db: db}
}

// GraphProject creates a named projection from label and relationship-type
// selectors. Projecting an existing name fails server-side; drop it first.
func (g *GDS) GraphProject(ctx context.Context, name string, nodeSelector, relSelector any) error {
	query := "CALL gds.graph.project($name, $nodes, $rels)"
	_, err := g.db.Run(ctx, query, map[string]any{
		"name":  name,
		"nodes": nodeSelector,
		"rels":  relSelector,
	})
	return err
}

// GraphDrop removes a named projection. Missing projections are not an
// error.
func (g *GDS) GraphDrop(ctx context.Context, name string) error {
	query := "CALL gds.graph.drop($name, false)"
	_, err := g.db.Run(ctx, query, map[string]any{"name": name})
	return err
}

// Mutate runs an algorithm in mutate mode, writing its result back into
// the named projection under the given property. It reports how many node
// properties were written. The algorithm name is the procedure prefix, for
// example "pageRank".
func (g *GDS) Mutate(ctx context.Context, algorithm, graph, mutateProperty string, config map[string]any) (int64, error) {
	merged := map[string]any{"mutateProperty": mutateProperty}
	for k, v := range config {
		merged[k] = v
	}
	query := fmt.Sprintf("CALL gds.%s.mutate($graph, $config) "+
		"YIELD nodePropertiesWritten RETURN nodePropertiesWritten", algorithm)
	rows, err := g.db.Run(ctx, query, map[string]any{"graph": graph, "config": merged})
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, fmt.Errorf("ext: gds.%s.mutate returned no row", algorithm)
	}
	written, _ := rows[0]["nodePropertiesWritten"].(int64)
	return written, nil
}

// ScoreRow is one node's score from a streaming algorithm call.
type ScoreRow struct {
	NodeID int64
	Score  float64
}

// PageRank streams PageRank scores over a named projection. The config map
// passes through to the procedure and may be nil.
func (g *GDS) PageRank(ctx context.Context, graph string, config map[string]any) ([]ScoreRow, error) {
	if config == nil {
		config = map[string]any{}
	}
	query := "CALL gds.pageRank.stream($graph, $config) " +
		"YIELD nodeId, score RETURN nodeId, score ORDER BY score DESC"
	rows, err := g.db.Run(ctx, query, map[string]any{"graph": graph, "config": config})
	if err != nil {
		return nil, err
	}

	out := make([]ScoreRow, 0, len(rows))
	for _, row := range rows {
		id, ok := row["nodeId"].(int64)
		if !ok {
			return nil, fmt.Errorf("ext: pageRank returned nodeId %T", row["nodeId"])
		}
		score, ok := row["score"].(float64)
		if !ok {
			return nil, fmt.Errorf("ext: pageRank returned score %T", row["score"])
		}
		out = append(out, ScoreRow{NodeID: id, Score: score})
	}
	return out, nil
}

// CommunityRow is one node's community assignment from a streaming
// community-detection call.
type CommunityRow struct {
	NodeID      int64
	CommunityID int64
}

// Louvain streams Louvain community assignments over a named projection.
func (g *GDS) Louvain(ctx context.Context, graph string, config map[string]any) ([]CommunityRow, error) {
	if config == nil {
		config = map[string]any{}
	}
	query := "CALL gds.louvain.stream($graph, $config) " +
		"YIELD nodeId, communityId RETURN nodeId, communityId"
	rows, err := g.db.Run(ctx, query, map[string]any{"graph": graph, "config": config})
	if err != nil {
		return nil, err
	}

	out := make([]CommunityRow, 0, len(rows))
	for _, row := range rows {
		id, ok := row["nodeId"].(int64)
		if !ok {
			return nil, fmt.Errorf("ext: louvain returned nodeId %T", row["nodeId"])
		}
		community, ok := row["communityId"].(int64)
		if !ok {
			return nil, fmt.Errorf("ext: louvain returned communityId %T", row["communityId"])
		}
		out = append(out, CommunityRow{NodeID: id, CommunityID: community})
	}
	return out, nil
}
