package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iliyamo/seat-pos/internal/model"
	"github.com/iliyamo/seat-pos/internal/repository"
)

// MenuCatalog is the list of sellable items.
type MenuCatalog struct {
	gw    *repository.Gateway
	clock Clock
	log   *zap.Logger

	mu    sync.RWMutex
	items []model.MenuItem
}

// NewMenuCatalog panics when gw is nil.
func NewMenuCatalog(gw *repository.Gateway, clock Clock, log *zap.Logger) *MenuCatalog {
	if gw == nil {
		panic("nil gateway passed to NewMenuCatalog")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &MenuCatalog{gw: gw, clock: clock, log: log}
}

// Load replaces the catalog with the stored menus, ordered by display
// position.
func (m *MenuCatalog) Load(ctx context.Context) repository.Result {
	raws, res := m.gw.Query(ctx, repository.Menus, repository.Filter{})
	if res.Failed() {
		return res
	}
	items := make([]model.MenuItem, 0, len(raws))
	for _, raw := range raws {
		var it model.MenuItem
		if err := json.Unmarshal(raw, &it); err != nil {
			m.log.Warn("skip undecodable menu item", zap.Error(err))
			continue
		}
		items = append(items, it)
	}
	sortMenu(items)

	m.mu.Lock()
	m.items = items
	m.mu.Unlock()
	return res
}

func sortMenu(items []model.MenuItem) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Order != items[j].Order {
			return items[i].Order < items[j].Order
		}
		return items[i].Name < items[j].Name
	})
}

// Add appends a new available item at the end of the display order.
func (m *MenuCatalog) Add(ctx context.Context, name string, price int64, category string) (model.MenuItem, repository.Result, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.MenuItem{}, repository.Result{}, fmt.Errorf("%w: menu name is required", ErrInvalidInput)
	}
	if price < 0 {
		return model.MenuItem{}, repository.Result{}, fmt.Errorf("%w: price must not be negative", ErrInvalidInput)
	}

	m.mu.Lock()
	next := 0
	for _, it := range m.items {
		if it.Order >= next {
			next = it.Order + 1
		}
	}
	item := model.MenuItem{
		ID:        "menu_" + uuid.NewString(),
		Name:      name,
		Price:     price,
		Category:  strings.TrimSpace(category),
		Available: true,
		Order:     next,
		CreatedAt: m.clock.Now().UTC(),
	}
	m.items = append(m.items, item)
	m.mu.Unlock()

	res := m.gw.Write(ctx, repository.Menus, repository.Key{ID: item.ID}, "", item)
	return item, res, nil
}

// SetAvailable toggles whether an item can be ordered.
func (m *MenuCatalog) SetAvailable(ctx context.Context, id string, available bool) (model.MenuItem, repository.Result, error) {
	m.mu.Lock()
	idx := -1
	for i := range m.items {
		if m.items[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		m.mu.Unlock()
		return model.MenuItem{}, repository.Result{}, ErrMenuNotFound
	}
	m.items[idx].Available = available
	item := m.items[idx]
	m.mu.Unlock()

	res := m.gw.Write(ctx, repository.Menus, repository.Key{ID: item.ID}, "", item)
	return item, res, nil
}

// GetAvailable returns the items that can be ordered, in display order.
func (m *MenuCatalog) GetAvailable() []model.MenuItem {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []model.MenuItem{}
	for _, it := range m.items {
		if it.Available {
			out = append(out, it)
		}
	}
	return out
}

// GetByID returns the item with the given id, available or not.
func (m *MenuCatalog) GetByID(id string) (model.MenuItem, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, it := range m.items {
		if it.ID == id {
			return it, true
		}
	}
	return model.MenuItem{}, false
}

// All returns every item in display order.
func (m *MenuCatalog) All() []model.MenuItem {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]model.MenuItem{}, m.items...)
}
