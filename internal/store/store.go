// Package store holds the in-memory ordered collection of processed
// items and implements the edit/save/cancel model with revert.
package store

import (
	"fmt"
	"sort"
	"sync"

	"github.com/sakthis4/Alt-Text/internal/models"
)

// Editable field names accepted by Edit
const (
	FieldType     = "type"
	FieldAltText  = "alt_text"
	FieldKeywords = "keywords"
	FieldTaxonomy = "taxonomy"
)

// Store is the session's result collection. Items are kept sorted by
// page number ascending, ties broken by arrival order. Safe for
// concurrent use.
type Store struct {
	items []*models.ProcessedItem
	mu    sync.RWMutex
}

// New returns an empty store
func New() *Store {
	return &Store{}
}

// Append inserts an item and re-sorts the collection. The sort is
// stable, so items sharing a page keep their arrival order.
func (s *Store) Append(item models.ProcessedItem) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = append(s.items, &item)
	sort.SliceStable(s.items, func(i, j int) bool {
		return s.items[i].PageNumber < s.items[j].PageNumber
	})
}

// Items returns a sorted snapshot of the collection
func (s *Store) Items() []models.ProcessedItem {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.ProcessedItem, len(s.items))
	for i, item := range s.items {
		out[i] = *item
	}
	return out
}

// Get returns a copy of the item with the given id
func (s *Store) Get(id string) (models.ProcessedItem, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item := s.find(id)
	if item == nil {
		return models.ProcessedItem{}, false
	}
	return *item, true
}

// Len reports how many items the store holds
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Annotations returns the analysis fields of every item, in order
func (s *Store) Annotations() []models.Annotation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Annotation, len(s.items))
	for i, item := range s.items {
		out[i] = item.Annotation
	}
	return out
}

// Edit applies a field mutation. The first edit since the last save
// snapshots the four editable fields so Cancel can revert.
func (s *Store) Edit(id, field string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item := s.find(id)
	if item == nil {
		return fmt.Errorf("no item with id %s", id)
	}

	if !item.Editing {
		item.Original = models.SnapshotOf(item.Annotation)
		item.Editing = true
	}

	switch field {
	case FieldType:
		v, ok := value.(string)
		if !ok {
			return fmt.Errorf("field %s expects a string", field)
		}
		item.Type = models.NormalizeAssetType(v)
	case FieldAltText:
		v, ok := value.(string)
		if !ok {
			return fmt.Errorf("field %s expects a string", field)
		}
		item.AltText = v
	case FieldKeywords:
		v, ok := toStringSlice(value)
		if !ok {
			return fmt.Errorf("field %s expects a list of strings", field)
		}
		item.Keywords = v
	case FieldTaxonomy:
		v, ok := toStringSlice(value)
		if !ok {
			return fmt.Errorf("field %s expects a list of strings", field)
		}
		item.Taxonomy = v
	default:
		return fmt.Errorf("field %s is not editable", field)
	}
	return nil
}

// Save commits staged edits. Purely a local commit boundary: it clears
// the revert snapshot and edit flag. A no-op when not editing.
func (s *Store) Save(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item := s.find(id)
	if item == nil {
		return fmt.Errorf("no item with id %s", id)
	}
	item.Editing = false
	item.Saving = false
	item.Original = nil
	return nil
}

// Cancel restores the four editable fields from the snapshot taken
// when editing began. A no-op when not editing.
func (s *Store) Cancel(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item := s.find(id)
	if item == nil {
		return fmt.Errorf("no item with id %s", id)
	}
	if !item.Editing || item.Original == nil {
		return nil
	}

	item.Type = item.Original.Type
	item.AltText = item.Original.AltText
	item.Keywords = item.Original.Keywords
	item.Taxonomy = item.Original.Taxonomy
	item.Editing = false
	item.Original = nil
	return nil
}

// BeginRegeneration claims the regeneration gate for an item and
// returns a working copy. Fails if the item is unknown or already
// regenerating, preventing re-entrant double charges.
func (s *Store) BeginRegeneration(id string) (models.ProcessedItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item := s.find(id)
	if item == nil {
		return models.ProcessedItem{}, fmt.Errorf("no item with id %s", id)
	}
	if item.Regenerating {
		return models.ProcessedItem{}, fmt.Errorf("item %s is already regenerating", id)
	}
	item.Regenerating = true
	return *item, nil
}

// AbortRegeneration releases the gate without touching the item
func (s *Store) AbortRegeneration(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if item := s.find(id); item != nil {
		item.Regenerating = false
	}
}

// CompleteRegeneration replaces the analysis fields and confidence,
// charges the item's cumulative spend, clears any in-progress edit
// state, and releases the gate. A non-zero preview replaces the
// existing one.
func (s *Store) CompleteRegeneration(id string, ann models.Annotation, preview models.Raster, cost int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item := s.find(id)
	if item == nil {
		return fmt.Errorf("no item with id %s", id)
	}

	item.Annotation = ann
	if !preview.IsZero() {
		item.Preview = preview
	}
	item.TokensSpent += cost
	item.Editing = false
	item.Saving = false
	item.Original = nil
	item.Regenerating = false
	return nil
}

// Clear empties the collection. Items are never deleted individually;
// the whole set goes at once on session reset.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = nil
}

func (s *Store) find(id string) *models.ProcessedItem {
	for _, item := range s.items {
		if item.ID == id {
			return item
		}
	}
	return nil
}

func toStringSlice(value any) ([]string, bool) {
	switch v := value.(type) {
	case []string:
		return v, true
	case []any:
		out := make([]string, 0, len(v))
		for _, elem := range v {
			s, ok := elem.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	}
	return nil, false
}
