package services

import (
	"context"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/iota-uz/organi-flow/modules/org/domain/orgtree"
)

const (
	defaultSearchLimit = 10
	maxSearchLimit     = 100
)

type SearchResult struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	Title     string `json:"title"`
	ManagerID int    `json:"manager_id"`
	Distance  int    `json:"distance"`
}

// Search ranks employees whose name or title fuzzily contains query.
// Closer matches come first; ties keep tree order.
func (s *OrgService) Search(ctx context.Context, query string, limit int) []SearchResult {
	query = strings.TrimSpace(query)
	if query == "" {
		return []SearchResult{}
	}
	switch {
	case limit <= 0:
		limit = defaultSearchLimit
	case limit > maxSearchLimit:
		limit = maxSearchLimit
	}

	s.mu.RLock()
	members := orgtree.Roster(s.root)
	s.mu.RUnlock()

	targets := make([]string, len(members))
	for i, m := range members {
		targets[i] = m.Name + " " + m.Title
	}
	ranks := fuzzy.RankFindNormalizedFold(query, targets)
	sort.SliceStable(ranks, func(i, j int) bool {
		if ranks[i].Distance != ranks[j].Distance {
			return ranks[i].Distance < ranks[j].Distance
		}
		return ranks[i].OriginalIndex < ranks[j].OriginalIndex
	})

	out := make([]SearchResult, 0, min(limit, len(ranks)))
	for _, r := range ranks {
		if len(out) == limit {
			break
		}
		m := members[r.OriginalIndex]
		out = append(out, SearchResult{
			ID:        m.ID,
			Name:      m.Name,
			Title:     m.Title,
			ManagerID: m.ManagerID,
			Distance:  r.Distance,
		})
	}
	return out
}
