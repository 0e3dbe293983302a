package service

import (
	"context"
	"sort"
	"strings"

	"github.com/complyx/complyx/internal/suggest"
	"github.com/complyx/complyx/internal/validation"
	"github.com/complyx/complyx/pkg/schema"
)

const (
	recentLimit  = 10
	libraryLimit = 75
)

// CategorizeInput describes a document awaiting classification.
type CategorizeInput struct {
	Title       string   `json:"title" validate:"required,max=500"`
	Description string   `json:"description" validate:"max=10000"`
	TextPreview string   `json:"text_preview" validate:"max=20000"`
	Tags        []string `json:"tags"`
	Keywords    []string `json:"keywords"`
}

// Recommendations pairs a suggestion with the documents it refers to.
type Recommendations struct {
	Suggestion *suggest.Suggestion `json:"suggestion"`
	Documents  []schema.Document   `json:"documents"`
}

func summarize(d *schema.Document) suggest.DocumentSummary {
	return suggest.DocumentSummary{
		ID:          d.ID,
		Title:       d.Title,
		Type:        string(d.Type),
		Status:      string(d.Status),
		AccessLevel: string(d.AccessLevel),
		Category:    d.Category,
		FileHash:    d.FileHash,
		OwnerID:     d.OwnerID,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

func profile(u *schema.User) suggest.UserProfile {
	if u == nil {
		return suggest.UserProfile{}
	}
	return suggest.UserProfile{ID: u.ID, Role: string(u.Role), Department: u.Department}
}

// SuggestCategories proposes a category, tags and keywords. Only the
// categories of documents the caller can read are offered to the provider.
func (s *Service) SuggestCategories(ctx context.Context, c Caller, in CategorizeInput) (*suggest.Suggestion, error) {
	ctx, end := s.span(ctx, "suggest.categorize", c)
	defer end()

	if err := validation.Struct(&in); err != nil {
		return nil, err
	}
	docs, err := s.readable(c)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var categories []string
	for _, d := range docs {
		if d.Category != "" && !seen[d.Category] {
			seen[d.Category] = true
			categories = append(categories, d.Category)
		}
	}
	sort.Strings(categories)

	return s.suggest.Suggest(ctx, suggest.SuggestionRequest{
		Kind:                suggest.KindCategorize,
		User:                profile(c.User),
		Now:                 s.clock(),
		Title:               in.Title,
		Description:         in.Description,
		TextPreview:         in.TextPreview,
		ExistingTags:        in.Tags,
		ExistingKeywords:    in.Keywords,
		AvailableCategories: categories,
	})
}

// SuggestDuplicates looks for readable documents resembling the candidate.
// Exact file hash matches are always reported, whatever the provider says.
func (s *Service) SuggestDuplicates(ctx context.Context, c Caller, cand suggest.Candidate) (*suggest.Suggestion, error) {
	ctx, end := s.span(ctx, "suggest.duplicates", c)
	defer end()

	if strings.TrimSpace(cand.Title) == "" && cand.FileHash == "" {
		return nil, validation.Errorf("title or file_hash is required")
	}
	docs, err := s.readable(c)
	if err != nil {
		return nil, err
	}

	existing := make([]suggest.DocumentSummary, 0, len(docs))
	var exact []suggest.DuplicateMatch
	for i := range docs {
		d := &docs[i]
		existing = append(existing, summarize(d))
		if cand.FileHash != "" && strings.EqualFold(d.FileHash, cand.FileHash) {
			exact = append(exact, suggest.DuplicateMatch{ID: d.ID, Title: d.Title, Similarity: 1.0, Reasoning: "Exact file hash match"})
		}
	}

	out, err := s.suggest.Suggest(ctx, suggest.SuggestionRequest{
		Kind:      suggest.KindDuplicates,
		User:      profile(c.User),
		Now:       s.clock(),
		Candidate: &cand,
		Existing:  existing,
	})
	if err != nil {
		return nil, err
	}

	// Drop ids the caller cannot read in case the provider invented them.
	known := make(map[string]bool, len(docs))
	for _, d := range docs {
		known[d.ID] = true
	}
	kept := out.Duplicates[:0]
	for _, m := range out.Duplicates {
		if known[m.ID] {
			kept = append(kept, m)
		}
	}
	out.Duplicates = suggest.MergeDuplicates(exact, kept)
	out.HasExactMatch = out.HasExactMatch || len(exact) > 0
	return out, nil
}

// Recommend suggests readable documents based on the caller's recent work.
func (s *Service) Recommend(ctx context.Context, c Caller) (*Recommendations, error) {
	ctx, end := s.span(ctx, "suggest.recommend", c)
	defer end()

	docs, err := s.readable(c)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*schema.Document, len(docs))
	var recent, library []suggest.DocumentSummary
	for i := range docs {
		d := &docs[i]
		byID[d.ID] = d
		if c.User != nil && d.OwnerID == c.User.ID && len(recent) < recentLimit {
			recent = append(recent, summarize(d))
		}
		if len(library) < libraryLimit {
			library = append(library, summarize(d))
		}
	}

	out, err := s.suggest.Suggest(ctx, suggest.SuggestionRequest{
		Kind:    suggest.KindRecommend,
		User:    profile(c.User),
		Now:     s.clock(),
		Recent:  recent,
		Library: library,
	})
	if err != nil {
		return nil, err
	}

	res := &Recommendations{Suggestion: out, Documents: make([]schema.Document, 0, len(out.Recommendations))}
	kept := out.Recommendations[:0]
	for _, r := range out.Recommendations {
		d, ok := byID[r.ID]
		if !ok {
			continue
		}
		kept = append(kept, r)
		res.Documents = append(res.Documents, *s.decorate(d))
	}
	out.Recommendations = kept
	return res, nil
}
