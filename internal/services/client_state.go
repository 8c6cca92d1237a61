package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"socialfeed/internal/kvstore"

	"github.com/google/uuid"
)

const (
	MaxSearchHistory = 10
	MaxDrafts        = 10
)

// ErrDraftNotFound is returned when deleting an unknown draft
var ErrDraftNotFound = errors.New("draft not found")

// SearchHistory keeps each user's recent search terms in a KV store
type SearchHistory struct {
	kv kvstore.KV
}

// NewSearchHistory creates a SearchHistory on kv
func NewSearchHistory(kv kvstore.KV) *SearchHistory {
	return &SearchHistory{kv: kv}
}

func searchHistoryKey(userID uuid.UUID) string {
	return "search_history:" + userID.String()
}

// List returns the user's searches, most recent first
func (h *SearchHistory) List(ctx context.Context, userID uuid.UUID) ([]string, error) {
	var terms []string
	err := kvstore.GetJSON(ctx, h.kv, searchHistoryKey(userID), &terms)
	if errors.Is(err, kvstore.ErrNotFound) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("search history: %w", err)
	}
	return terms, nil
}

// Add moves term to the front, dropping an older copy and anything past the cap
func (h *SearchHistory) Add(ctx context.Context, userID uuid.UUID, term string) ([]string, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, errors.New("search term is empty")
	}
	terms, err := h.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	updated := []string{term}
	for _, t := range terms {
		if t != term && len(updated) < MaxSearchHistory {
			updated = append(updated, t)
		}
	}
	if err := kvstore.SetJSON(ctx, h.kv, searchHistoryKey(userID), updated, 0); err != nil {
		return nil, fmt.Errorf("search history: %w", err)
	}
	return updated, nil
}

// Clear forgets every search of the user
func (h *SearchHistory) Clear(ctx context.Context, userID uuid.UUID) error {
	return h.kv.Delete(ctx, searchHistoryKey(userID))
}

// Draft is an unpublished post
type Draft struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	MediaURLs []string  `json:"media_urls,omitempty"`
	Tags      []string  `json:"tags,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Drafts keeps each user's most recent drafts in a KV store
type Drafts struct {
	kv  kvstore.KV
	now func() time.Time
}

// NewDrafts creates a Drafts store on kv
func NewDrafts(kv kvstore.KV) *Drafts {
	return &Drafts{kv: kv, now: func() time.Time { return time.Now().UTC() }}
}

func draftsKey(userID uuid.UUID) string {
	return "drafts:" + userID.String()
}

// List returns the user's drafts, newest first
func (d *Drafts) List(ctx context.Context, userID uuid.UUID) ([]Draft, error) {
	var drafts []Draft
	err := kvstore.GetJSON(ctx, d.kv, draftsKey(userID), &drafts)
	if errors.Is(err, kvstore.ErrNotFound) {
		return []Draft{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("drafts: %w", err)
	}
	return drafts, nil
}

// Save stores a new draft in front of the others, keeping at most MaxDrafts
func (d *Drafts) Save(ctx context.Context, userID uuid.UUID, draft Draft) (Draft, error) {
	if strings.TrimSpace(draft.Content) == "" && len(draft.MediaURLs) == 0 {
		return Draft{}, fmt.Errorf("%w: add some content or media", ErrInvalidPost)
	}
	drafts, err := d.List(ctx, userID)
	if err != nil {
		return Draft{}, err
	}
	draft.ID = uuid.NewString()
	draft.CreatedAt = d.now()

	updated := append([]Draft{draft}, drafts...)
	if len(updated) > MaxDrafts {
		updated = updated[:MaxDrafts]
	}
	if err := kvstore.SetJSON(ctx, d.kv, draftsKey(userID), updated, 0); err != nil {
		return Draft{}, fmt.Errorf("drafts: %w", err)
	}
	return draft, nil
}

// Delete removes one draft by id
func (d *Drafts) Delete(ctx context.Context, userID uuid.UUID, id string) error {
	drafts, err := d.List(ctx, userID)
	if err != nil {
		return err
	}
	kept := drafts[:0]
	for _, dr := range drafts {
		if dr.ID != id {
			kept = append(kept, dr)
		}
	}
	if len(kept) == len(drafts) {
		return ErrDraftNotFound
	}
	if err := kvstore.SetJSON(ctx, d.kv, draftsKey(userID), kept, 0); err != nil {
		return fmt.Errorf("drafts: %w", err)
	}
	return nil
}
