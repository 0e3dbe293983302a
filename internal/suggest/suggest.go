// Package suggest produces AI-assisted document suggestions: categorisation,
// duplicate detection and recommendations. The service depends only on the
// SuggestionProvider interface.
package suggest

import (
	"context"
	"errors"
	"sort"
	"time"

	"go.uber.org/zap"
)

// Kind selects the suggestion being requested.
type Kind string

const (
	KindCategorize Kind = "categorize"
	KindDuplicates Kind = "duplicates"
	KindRecommend  Kind = "recommend"
)

// ErrUnsupportedKind is returned for a Kind the provider does not implement.
var ErrUnsupportedKind = errors.New("unsupported suggestion kind")

// DocumentSummary is the slice of document metadata shared with a provider.
type DocumentSummary struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Type        string    `json:"document_type"`
	Status      string    `json:"status"`
	AccessLevel string    `json:"access_level"`
	Category    string    `json:"category,omitempty"`
	FileHash    string    `json:"file_hash,omitempty"`
	OwnerID     string    `json:"owner_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// UserProfile describes who the suggestion is for.
type UserProfile struct {
	ID         string `json:"id"`
	Role       string `json:"role"`
	Department string `json:"department,omitempty"`
}

// Candidate is a prospective document checked for duplicates.
type Candidate struct {
	Title        string   `json:"title"`
	Description  string   `json:"description,omitempty"`
	DocumentType string   `json:"document_type,omitempty"`
	FileHash     string   `json:"file_hash,omitempty"`
	Keywords     []string `json:"keywords,omitempty"`
	Tags         []string `json:"tags,omitempty"`
}

// SuggestionRequest carries the inputs for every Kind; only the fields of
// the requested Kind are read.
type SuggestionRequest struct {
	Kind Kind
	User UserProfile
	Now  time.Time

	// KindCategorize
	Title               string
	Description         string
	TextPreview         string
	ExistingTags        []string
	ExistingKeywords    []string
	AvailableCategories []string

	// KindDuplicates
	Candidate *Candidate
	Existing  []DocumentSummary

	// KindRecommend
	Recent  []DocumentSummary
	Library []DocumentSummary
}

// DuplicateMatch is one suspected duplicate.
type DuplicateMatch struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Similarity float64 `json:"similarity"`
	Reasoning  string  `json:"reasoning,omitempty"`
}

// Recommendation is one suggested document.
type Recommendation struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Reason   string `json:"reason,omitempty"`
	Priority string `json:"priority,omitempty"`
}

// Suggestion is a provider's answer.
type Suggestion struct {
	Kind   Kind   `json:"kind"`
	Source string `json:"source"`

	Category            string   `json:"category,omitempty"`
	SecondaryCategories []string `json:"secondary_categories,omitempty"`
	Tags                []string `json:"tags,omitempty"`
	Keywords            []string `json:"keywords,omitempty"`
	Confidence          *float64 `json:"confidence,omitempty"`

	Duplicates    []DuplicateMatch `json:"duplicates,omitempty"`
	HasExactMatch bool             `json:"has_exact_match,omitempty"`

	Recommendations []Recommendation `json:"recommendations,omitempty"`

	Summary string   `json:"summary,omitempty"`
	Notes   []string `json:"notes,omitempty"`
	Raw     string   `json:"raw,omitempty"`
}

// SuggestionProvider answers suggestion requests.
type SuggestionProvider interface {
	Suggest(ctx context.Context, req SuggestionRequest) (*Suggestion, error)
}

// FallbackProvider asks Primary first and Secondary when Primary fails.
type FallbackProvider struct {
	Primary   SuggestionProvider
	Secondary SuggestionProvider
	Logger    *zap.Logger
	// OnFallback is called with the kind whenever Secondary is used.
	OnFallback func(Kind)
}

func (f *FallbackProvider) Suggest(ctx context.Context, req SuggestionRequest) (*Suggestion, error) {
	if f.Primary != nil {
		s, err := f.Primary.Suggest(ctx, req)
		if err == nil {
			return s, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if f.Logger != nil {
			f.Logger.Warn("falling back to heuristic suggestions", zap.String("kind", string(req.Kind)), zap.Error(err))
		}
	}
	if f.OnFallback != nil {
		f.OnFallback(req.Kind)
	}
	return f.Secondary.Suggest(ctx, req)
}

// MergeDuplicates combines match lists keeping the highest similarity per id.
// Order follows similarity, highest first.
func MergeDuplicates(lists ...[]DuplicateMatch) []DuplicateMatch {
	best := make(map[string]DuplicateMatch)
	for _, list := range lists {
		for _, m := range list {
			if m.ID == "" {
				continue
			}
			if cur, ok := best[m.ID]; !ok || cur.Similarity < m.Similarity {
				best[m.ID] = m
			}
		}
	}
	out := make([]DuplicateMatch, 0, len(best))
	for _, m := range best {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Similarity == out[j].Similarity {
			return out[i].ID < out[j].ID
		}
		return out[i].Similarity > out[j].Similarity
	})
	return out
}
