package domain

import "strings"

// MaxKeywords bounds the keyword list on a match.
const MaxKeywords = 5

// MinQueryLength is the shortest query accepted after trimming.
const MinQueryLength = 3

// SearchQuery is one person-search request.
type SearchQuery struct {
	Text        string
	WorkspaceID string
	// ProfileID is the caller, recorded in the search log.
	ProfileID string
}

// Validate checks the query text and scope.
func (q SearchQuery) Validate() error {
	if len([]rune(strings.TrimSpace(q.Text))) < MinQueryLength {
		return ErrQueryTooShort
	}
	if strings.TrimSpace(q.WorkspaceID) == "" {
		return ErrWorkspaceRequired
	}
	return nil
}

// CandidateMatch is a ranked search result. Identity fields always come from
// the stored profile, never from model output.
type CandidateMatch struct {
	ProfileID   string        `json:"userId"`
	Name        string        `json:"name"`
	Content     string        `json:"content"`
	Summary     string        `json:"contentSummary"`
	Keywords    []string      `json:"keywords"`
	MatchReason string        `json:"matchReason,omitempty"`
	Social      SocialHandles `json:"social"`
}

// SummaryResult is the relevance summarizer verdict for one candidate.
type SummaryResult struct {
	Summary      string
	ShouldRender bool
	// Reason explains a rejection. Rejected candidates are never shown, so it
	// only reaches the search logs.
	Reason      string
	NeedsReview bool
}

// Text is the summary when the candidate is relevant, otherwise the reason
// it was rejected.
func (r SummaryResult) Text() string {
	if !r.ShouldRender && r.Reason != "" {
		return r.Reason
	}
	return r.Summary
}
