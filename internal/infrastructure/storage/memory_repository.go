package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"PressWatch/internal/domain"
	"PressWatch/internal/ports"
)

// MemoryRepository is a process-local store with the same semantics as SQLRepository.
// Construct one per process and inject it; it holds no package-level state.
type MemoryRepository struct {
	mu         sync.RWMutex
	items      map[string]map[string]domain.KnownItem
	watermarks map[string]time.Time
	now        func() time.Time
}

var (
	_ ports.ItemRepository      = (*MemoryRepository)(nil)
	_ ports.WatermarkRepository = (*MemoryRepository)(nil)
)

// NewMemoryRepository builds an empty store.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		items:      map[string]map[string]domain.KnownItem{},
		watermarks: map[string]time.Time{},
		now:        time.Now,
	}
}

func (m *MemoryRepository) Upsert(_ context.Context, item domain.KnownItem) error {
	if item.ItemID == "" {
		item.ItemID = domain.ItemID(item.URL)
	}
	now := m.now().UTC()

	m.mu.Lock()
	defer m.mu.Unlock()

	group, ok := m.items[item.GroupID]
	if !ok {
		group = map[string]domain.KnownItem{}
		m.items[item.GroupID] = group
	}

	if existing, ok := group[item.ItemID]; ok {
		item.CreatedAt = existing.CreatedAt
		if item.PublishedAt.IsZero() {
			item.PublishedAt = existing.PublishedAt
		}
		if item.SummaryText == "" {
			item.SummaryText = existing.SummaryText
			item.Glossary = existing.Glossary
		}
	} else if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	item.UpdatedAt = now
	item.Glossary = append([]domain.GlossaryEntry(nil), item.Glossary...)

	group[item.ItemID] = item
	return nil
}

func (m *MemoryRepository) ListByGroup(_ context.Context, groupID string, limit int) ([]domain.KnownItem, error) {
	m.mu.RLock()
	group := m.items[groupID]
	items := make([]domain.KnownItem, 0, len(group))
	for _, item := range group {
		items = append(items, item)
	}
	m.mu.RUnlock()

	sort.Slice(items, func(i, j int) bool {
		return domain.SortKey(items[i].PublishedAt, items[i].ItemID) > domain.SortKey(items[j].PublishedAt, items[j].ItemID)
	})

	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (m *MemoryRepository) Get(_ context.Context, groupID, itemID string) (domain.KnownItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	item, ok := m.items[groupID][itemID]
	if !ok {
		return domain.KnownItem{}, fmt.Errorf("item %s in group %s: %w", itemID, groupID, domain.ErrNotFound)
	}
	return item, nil
}

func (m *MemoryRepository) KnownURLs(_ context.Context, groupID string, urls []string) (map[string]struct{}, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	known := map[string]struct{}{}
	group := m.items[groupID]
	for _, u := range urls {
		if item, ok := group[domain.ItemID(u)]; ok && item.URL == u {
			known[u] = struct{}{}
		}
	}
	return known, nil
}

func (m *MemoryRepository) GetWatermark(_ context.Context, groupID string) (domain.Watermark, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	wm := domain.Watermark{GroupID: groupID}
	if at, ok := m.watermarks[groupID]; ok {
		wm.LastNotifiedAt = &at
	}
	return wm, nil
}

func (m *MemoryRepository) AdvanceWatermark(_ context.Context, groupID string, at time.Time) error {
	if at.IsZero() {
		return fmt.Errorf("%w: zero watermark for group %s", domain.ErrStoreWriteFailed, groupID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if current, ok := m.watermarks[groupID]; ok && !at.After(current) {
		return nil
	}
	m.watermarks[groupID] = at.UTC()
	return nil
}
