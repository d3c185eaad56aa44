package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/seat-pos/internal/model"
	"github.com/iliyamo/seat-pos/internal/repository"
)

// fakeClock is a settable clock in the business zone.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(date string) *fakeClock {
	c := &fakeClock{}
	c.setDate(date)
	return c
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) setDate(date string) {
	d, err := time.Parse(DateLayout, date)
	if err != nil {
		panic(err)
	}
	c.mu.Lock()
	c.now = d.Add(12 * time.Hour)
	c.mu.Unlock()
}

// remoteStore is an in-memory remote document store that can go offline.
type remoteStore struct {
	mu   sync.Mutex
	docs map[string]map[string]repository.Document
	down bool

	// onGet runs before every Get, outside the lock.
	onGet func(collection string)
}

var errOffline = errors.New("network unreachable")

func newRemoteStore() *remoteStore {
	return &remoteStore{docs: map[string]map[string]repository.Document{}}
}

func (r *remoteStore) setDown(v bool) {
	r.mu.Lock()
	r.down = v
	r.mu.Unlock()
}

func (r *remoteStore) Put(_ context.Context, c string, d repository.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.down {
		return errOffline
	}
	if r.docs[c] == nil {
		r.docs[c] = map[string]repository.Document{}
	}
	r.docs[c][d.ID] = d
	return nil
}

func (r *remoteStore) Get(_ context.Context, c, id string) (repository.Document, error) {
	r.mu.Lock()
	hook := r.onGet
	r.mu.Unlock()
	if hook != nil {
		hook(c)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.down {
		return repository.Document{}, errOffline
	}
	d, ok := r.docs[c][id]
	if !ok {
		return repository.Document{}, repository.ErrNotFound
	}
	return d, nil
}

func (r *remoteStore) Delete(_ context.Context, c, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.down {
		return errOffline
	}
	delete(r.docs[c], id)
	return nil
}

func (r *remoteStore) Query(_ context.Context, c string, f repository.Filter) ([]repository.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.down {
		return nil, errOffline
	}
	var out []repository.Document
	for _, d := range r.docs[c] {
		if (f.DateFrom != "" && d.Date < f.DateFrom) || (f.DateTo != "" && d.Date > f.DateTo) ||
			(f.Status != "" && d.Status != f.Status) {
			continue
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date > out[j].Date
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *remoteStore) Latest(_ context.Context, c string) (repository.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.down {
		return repository.Document{}, errOffline
	}
	var best repository.Document
	found := false
	for _, d := range r.docs[c] {
		if !found || d.UpdatedAt.After(best.UpdatedAt) {
			best, found = d, true
		}
	}
	if !found {
		return repository.Document{}, repository.ErrNotFound
	}
	return best, nil
}

func (r *remoteStore) setOnGet(fn func(collection string)) {
	r.mu.Lock()
	r.onGet = fn
	r.mu.Unlock()
}

func (r *remoteStore) count(c string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.docs[c])
}

// recordingPublisher keeps every published event.
type recordingPublisher struct {
	mu     sync.Mutex
	keys   []string
	events []interface{}
}

func (p *recordingPublisher) Publish(_ context.Context, key string, ev interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, key)
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) routingKeys() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.keys...)
}

func newLocal(t *testing.T) *repository.SQLiteLocalStore {
	t.Helper()
	db, err := sqlx.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	store := repository.NewSQLiteLocalStore(db)
	require.NoError(t, store.EnsureSchema(context.Background()))
	return store
}

type harness struct {
	sess   *Session
	clock  *fakeClock
	remote *remoteStore
	local  *repository.SQLiteLocalStore
	gw     *repository.Gateway
	events *recordingPublisher
}

// newHarness builds a session on date backed by an in-memory remote and an
// in-memory SQLite local store.
func newHarness(t *testing.T, date string) *harness {
	t.Helper()
	h := &harness{
		clock:  newFakeClock(date),
		remote: newRemoteStore(),
		local:  newLocal(t),
		events: &recordingPublisher{},
	}
	h.gw = repository.NewGateway(h.remote, h.local)
	h.sess = NewSession(Deps{Gateway: h.gw, Clock: h.clock, Events: h.events})
	return h
}

var (
	coffee = model.MenuItem{ID: "m_coffee", Name: "Coffee", Price: 5000, Available: true}
	cake   = model.MenuItem{ID: "m_cake", Name: "Cake", Price: 3000, Available: true}
	tea    = model.MenuItem{ID: "m_tea", Name: "Tea", Price: 4500, Available: true}
)

func (h *harness) open(t *testing.T) {
	t.Helper()
	_, _, err := h.sess.Day.Start(context.Background())
	require.NoError(t, err)
}

func confirmYes(int64) bool { return true }
func confirmNo(int64) bool  { return false }
