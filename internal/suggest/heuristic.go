package suggest

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
	"unicode"
)

// Scoring weights for the heuristic recommender.
const (
	scoreBase        = 1.0
	scoreCategory    = 3.0
	scoreType        = 2.0
	scorePublished   = 1.0
	scoreUnderReview = 0.5
	scoreOwn         = 0.5
	recencyWindow    = 45
	recencyDivisor   = 15.0
	highPriority     = 6.0
	mediumPriority   = 3.5
	maxRecommended   = 5
	titleSimilarity  = 0.6
)

var stopwords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true, "from": true, "this": true, "that": true,
	"into": true, "your": true, "our": true, "are": true, "was": true, "were": true, "will": true,
}

// HeuristicProvider answers every Kind without an external service.
type HeuristicProvider struct{}

// NewHeuristicProvider creates the deterministic provider.
func NewHeuristicProvider() *HeuristicProvider {
	return &HeuristicProvider{}
}

func (h *HeuristicProvider) Suggest(_ context.Context, req SuggestionRequest) (*Suggestion, error) {
	switch req.Kind {
	case KindCategorize:
		return h.categorize(req), nil
	case KindDuplicates:
		return h.duplicates(req), nil
	case KindRecommend:
		return h.recommend(req), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedKind, req.Kind)
}

func tokens(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := fields[:0]
	for _, f := range fields {
		if len(f) >= 3 && !stopwords[f] {
			out = append(out, f)
		}
	}
	return out
}

func (h *HeuristicProvider) categorize(req SuggestionRequest) *Suggestion {
	text := strings.ToLower(req.Title + " " + req.Description + " " + req.TextPreview)

	s := &Suggestion{Kind: KindCategorize, Source: "heuristic"}
	for _, c := range req.AvailableCategories {
		if c == "" || !strings.Contains(text, strings.ToLower(c)) {
			continue
		}
		if s.Category == "" {
			s.Category = c
		} else {
			s.SecondaryCategories = append(s.SecondaryCategories, c)
		}
	}

	seen := make(map[string]bool)
	for _, t := range req.ExistingKeywords {
		seen[strings.ToLower(t)] = true
		s.Keywords = append(s.Keywords, t)
	}
	for _, t := range tokens(req.Title + " " + req.Description) {
		if len(s.Keywords) >= 10 {
			break
		}
		if !seen[t] {
			seen[t] = true
			s.Keywords = append(s.Keywords, t)
		}
	}
	s.Tags = append(s.Tags, req.ExistingTags...)

	confidence := 0.1
	if s.Category != "" {
		confidence = 0.4
	}
	s.Confidence = &confidence
	s.Notes = []string{"Generated from title and description keywords."}
	return s
}

// jaccard returns the token overlap of two titles.
func jaccard(a, b string) float64 {
	ta, tb := tokens(a), tokens(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	set := make(map[string]bool, len(ta))
	for _, t := range ta {
		set[t] = true
	}
	union := len(set)
	inter := 0
	seen := make(map[string]bool, len(tb))
	for _, t := range tb {
		if seen[t] {
			continue
		}
		seen[t] = true
		if set[t] {
			inter++
		} else {
			union++
		}
	}
	return float64(inter) / float64(union)
}

func (h *HeuristicProvider) duplicates(req SuggestionRequest) *Suggestion {
	s := &Suggestion{Kind: KindDuplicates, Source: "heuristic"}
	if req.Candidate == nil {
		return s
	}
	var matches []DuplicateMatch
	for _, d := range req.Existing {
		if req.Candidate.FileHash != "" && strings.EqualFold(d.FileHash, req.Candidate.FileHash) {
			s.HasExactMatch = true
			matches = append(matches, DuplicateMatch{ID: d.ID, Title: d.Title, Similarity: 1.0, Reasoning: "Exact file hash match"})
			continue
		}
		if sim := jaccard(req.Candidate.Title, d.Title); sim >= titleSimilarity {
			matches = append(matches, DuplicateMatch{
				ID:         d.ID,
				Title:      d.Title,
				Similarity: math.Round(sim*100) / 100,
				Reasoning:  "Similar title",
			})
		}
	}
	s.Duplicates = MergeDuplicates(matches)
	return s
}

type scored struct {
	score float64
	rec   Recommendation
	doc   DocumentSummary
}

func (h *HeuristicProvider) recommend(req SuggestionRequest) *Suggestion {
	now := req.Now
	if now.IsZero() {
		now = time.Now()
	}

	recentIDs := make(map[string]bool)
	recentCategories := make(map[string]bool)
	recentTypes := make(map[string]bool)
	for _, d := range req.Recent {
		recentIDs[d.ID] = true
		if d.Category != "" {
			recentCategories[d.Category] = true
		}
		if d.Type != "" {
			recentTypes[d.Type] = true
		}
	}

	var results []scored
	for _, d := range req.Library {
		if recentIDs[d.ID] {
			continue
		}

		score := scoreBase
		var reasons []string

		if d.Category != "" && recentCategories[d.Category] {
			score += scoreCategory
			reasons = append(reasons, fmt.Sprintf("Matches your recent %s documents", d.Category))
		}
		if d.Type != "" && recentTypes[d.Type] {
			score += scoreType
			reasons = append(reasons, fmt.Sprintf("Similar %s content", strings.ReplaceAll(d.Type, "_", " ")))
		}
		if !d.UpdatedAt.IsZero() {
			ageDays := int(now.Sub(d.UpdatedAt).Hours() / 24)
			if bonus := math.Max(0, float64(recencyWindow-ageDays)) / recencyDivisor; bonus > 0 {
				score += bonus
			}
			if ageDays <= 30 {
				reasons = append(reasons, "Recently updated")
			}
		}
		switch d.Status {
		case "published":
			score += scorePublished
			reasons = append(reasons, "Published and ready to use")
		case "under_review":
			score += scoreUnderReview
			reasons = append(reasons, "Currently under review")
		}
		if d.OwnerID != "" && d.OwnerID == req.User.ID {
			score += scoreOwn
			reasons = append(reasons, "Created by you")
		}
		if len(reasons) == 0 {
			reasons = append(reasons, "Popular document in your workspace")
		}

		results = append(results, scored{
			score: score,
			doc:   d,
			rec: Recommendation{
				ID:       d.ID,
				Title:    d.Title,
				Reason:   strings.Join(reasons, "; "),
				Priority: priority(score),
			},
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].score == results[j].score {
			return results[i].doc.UpdatedAt.After(results[j].doc.UpdatedAt)
		}
		return results[i].score > results[j].score
	})
	if len(results) > maxRecommended {
		results = results[:maxRecommended]
	}

	s := &Suggestion{Kind: KindRecommend, Source: "heuristic"}
	for _, r := range results {
		s.Recommendations = append(s.Recommendations, r.rec)
	}
	if len(s.Recommendations) > 0 {
		s.Summary = "Showing heuristic suggestions based on recency and similarity to your recent documents."
	} else {
		s.Summary = "There are no documents to suggest yet."
	}
	return s
}

func priority(score float64) string {
	switch {
	case score >= highPriority:
		return "high"
	case score >= mediumPriority:
		return "medium"
	}
	return "low"
}
