package service

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iliyamo/seat-pos/internal/model"
	"github.com/iliyamo/seat-pos/internal/repository"
)

// SeatLookup resolves a seat id to its current definition.
type SeatLookup interface {
	GetByID(id string) (model.Seat, bool)
}

// seatName returns the display name of a seat, or the raw id when the seat
// is unknown.
func seatName(seats SeatLookup, id string) string {
	if seats != nil {
		if s, ok := seats.GetByID(id); ok && s.Name != "" {
			return s.Name
		}
	}
	return id
}

// SeatRegistry holds the seat layout of the current business date.
type SeatRegistry struct {
	gw    *repository.Gateway
	cal   *Calendar
	clock Clock
	log   *zap.Logger

	mu    sync.RWMutex
	seats []model.Seat
}

// NewSeatRegistry panics when gw or cal is nil.
func NewSeatRegistry(gw *repository.Gateway, cal *Calendar, clock Clock, log *zap.Logger) *SeatRegistry {
	if gw == nil || cal == nil {
		panic("nil dependency passed to NewSeatRegistry")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &SeatRegistry{gw: gw, cal: cal, clock: clock, log: log}
}

// Load reads the layout saved for date.  A date without its own layout
// inherits the most recently saved one; with neither the registry is empty.
func (r *SeatRegistry) Load(ctx context.Context, date string) repository.Result {
	var cfg model.SeatConfig
	found, res := r.gw.Read(ctx, repository.SeatConfigs, repository.Key{ID: date, Date: date}, &cfg)
	if !found {
		var latest model.SeatConfig
		var ok bool
		ok, res = r.gw.Latest(ctx, repository.SeatConfigs, &latest)
		if ok {
			cfg = latest
			r.log.Info("no seat layout for date, using latest", zap.String("date", date), zap.String("from", latest.Date))
		}
	}
	r.mu.Lock()
	r.seats = append([]model.Seat(nil), cfg.Seats...)
	r.mu.Unlock()
	return res
}

// Save replaces the layout of the current business date.  Seats without an
// id get a fresh one; names must be present and unique.
func (r *SeatRegistry) Save(ctx context.Context, seats []model.Seat) ([]model.Seat, repository.Result, error) {
	names := map[string]bool{}
	out := make([]model.Seat, 0, len(seats))
	for _, s := range seats {
		s.Name = strings.TrimSpace(s.Name)
		if s.Name == "" {
			return nil, repository.Result{}, fmt.Errorf("%w: seat name is required", ErrInvalidInput)
		}
		if names[s.Name] {
			return nil, repository.Result{}, fmt.Errorf("%w: duplicate seat name %q", ErrInvalidInput, s.Name)
		}
		names[s.Name] = true
		if s.ID == "" {
			s.ID = "seat_" + uuid.NewString()
		}
		out = append(out, s)
	}

	date := r.cal.Date()
	cfg := model.SeatConfig{Date: date, Seats: out, CreatedAt: r.clock.Now().UTC()}
	res := r.gw.Write(ctx, repository.SeatConfigs, repository.Key{ID: date, Date: date}, "", cfg)

	r.mu.Lock()
	r.seats = out
	r.mu.Unlock()
	return append([]model.Seat(nil), out...), res, nil
}

// GetByID returns the seat with the given id.
func (r *SeatRegistry) GetByID(id string) (model.Seat, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.seats {
		if s.ID == id {
			return s, true
		}
	}
	return model.Seat{}, false
}

// All returns a copy of the layout.
func (r *SeatRegistry) All() []model.Seat {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]model.Seat{}, r.seats...)
}
