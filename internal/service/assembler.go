package service

import (
	"github.com/florianreyes/shipba-rag/internal/domain"
)

// Enrichment is the per-candidate output of the vector path.
type Enrichment struct {
	Summary  domain.SummaryResult
	Keywords []string
}

// UniqueProfileIDs returns owner IDs in first-seen order.
func UniqueProfileIDs(hits []domain.ChunkMatch) []string {
	ids := make([]string, 0, len(hits))
	seen := make(map[string]struct{}, len(hits))
	for _, h := range hits {
		if _, ok := seen[h.ProfileID]; ok {
			continue
		}
		seen[h.ProfileID] = struct{}{}
		ids = append(ids, h.ProfileID)
	}
	return ids
}

// ResolveProfiles maps ids to stored profiles, keeping the order of ids.
// IDs that do not resolve and duplicates are dropped.
func ResolveProfiles(ids []string, profiles []*domain.Profile) []*domain.Profile {
	byID := make(map[string]*domain.Profile, len(profiles))
	for _, p := range profiles {
		if p != nil {
			byID[p.ID] = p
		}
	}

	resolved := make([]*domain.Profile, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		p, ok := byID[id]
		if !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		resolved = append(resolved, p)
	}
	return resolved
}

// AssembleVectorMatches builds matches from resolved profiles and their
// enrichments, dropping candidates the summarizer rejected.
// enrichments[i] belongs to profiles[i].
func AssembleVectorMatches(profiles []*domain.Profile, enrichments []Enrichment) []domain.CandidateMatch {
	matches := make([]domain.CandidateMatch, 0, len(profiles))
	for i, p := range profiles {
		e := enrichments[i]
		if !e.Summary.ShouldRender {
			continue
		}
		matches = append(matches, canonicalMatch(p, e.Summary.Text(), e.Keywords, ""))
	}
	return matches
}

// canonicalMatch takes identity fields and social handles from the stored
// profile. Only summary, keywords and reason come from the model.
func canonicalMatch(p *domain.Profile, summary string, keywords []string, reason string) domain.CandidateMatch {
	if keywords == nil {
		keywords = []string{}
	}
	return domain.CandidateMatch{
		ProfileID:   p.ID,
		Name:        p.DisplayName(),
		Content:     p.Content,
		Summary:     summary,
		Keywords:    keywords,
		MatchReason: reason,
		Social:      p.Social,
	}
}
