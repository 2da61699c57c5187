// Package registry owns zone capacity and pricing. Each zone's slot
// counter is a serialized resource: allocation is a compare-and-
// decrement under that zone's own lock, so two callers racing for the
// last slot can never both win. Operations on different zones do not
// contend.
package registry

import (
	"fmt"
	"log"
	"sort"
	"sync"

	"campuspark/internal/db"
	apperrors "campuspark/internal/errors"
)

// ZoneStore persists zone snapshots. Persistence is write-behind and
// best-effort; the in-memory counters are the authority.
type ZoneStore interface {
	SaveZone(z db.Zone) error
}

type zoneState struct {
	mu   sync.Mutex
	zone db.Zone
}

type Registry struct {
	mu    sync.RWMutex
	zones map[string]*zoneState
	store ZoneStore // may be nil
}

func New(store ZoneStore) *Registry {
	return &Registry{
		zones: make(map[string]*zoneState),
		store: store,
	}
}

// Add registers a zone, typically at startup from the store or the
// seed set. Replaces any prior zone with the same id.
func (r *Registry) Add(z db.Zone) error {
	if z.TotalSlots < 0 || z.AvailableSlots < 0 || z.AvailableSlots > z.TotalSlots {
		return fmt.Errorf("%w: zone %s has %d/%d slots", apperrors.ErrValidation, z.ID, z.AvailableSlots, z.TotalSlots)
	}
	if z.PriceCentsPerHour <= 0 {
		return fmt.Errorf("%w: zone %s price must be positive", apperrors.ErrInvalidPrice, z.ID)
	}
	r.mu.Lock()
	r.zones[z.ID] = &zoneState{zone: z}
	r.mu.Unlock()
	return nil
}

func (r *Registry) lookup(zoneID string) (*zoneState, error) {
	r.mu.RLock()
	zs, ok := r.zones[zoneID]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("zone %s: %w", zoneID, apperrors.ErrNotFound)
	}
	return zs, nil
}

// Get returns a snapshot of the zone.
func (r *Registry) Get(zoneID string) (db.Zone, error) {
	zs, err := r.lookup(zoneID)
	if err != nil {
		return db.Zone{}, err
	}
	zs.mu.Lock()
	z := zs.zone
	zs.mu.Unlock()
	return z, nil
}

// List returns snapshots of all zones ordered by id.
func (r *Registry) List() []db.Zone {
	r.mu.RLock()
	states := make([]*zoneState, 0, len(r.zones))
	for _, zs := range r.zones {
		states = append(states, zs)
	}
	r.mu.RUnlock()

	zones := make([]db.Zone, 0, len(states))
	for _, zs := range states {
		zs.mu.Lock()
		zones = append(zones, zs.zone)
		zs.mu.Unlock()
	}
	sort.Slice(zones, func(i, j int) bool { return zones[i].ID < zones[j].ID })
	return zones
}

// TryAllocate takes one slot from the zone iff one is available.
func (r *Registry) TryAllocate(zoneID string) error {
	zs, err := r.lookup(zoneID)
	if err != nil {
		return err
	}
	zs.mu.Lock()
	if zs.zone.AvailableSlots <= 0 {
		zs.mu.Unlock()
		return fmt.Errorf("zone %s: %w", zoneID, apperrors.ErrSlotUnavailable)
	}
	zs.zone.AvailableSlots--
	snapshot := zs.zone
	zs.mu.Unlock()

	r.persist(snapshot)
	return nil
}

// Release returns one slot to the zone. Callers release exactly once
// per successful allocate; AvailableSlots never exceeds TotalSlots.
func (r *Registry) Release(zoneID string) error {
	zs, err := r.lookup(zoneID)
	if err != nil {
		return err
	}
	zs.mu.Lock()
	if zs.zone.AvailableSlots < zs.zone.TotalSlots {
		zs.zone.AvailableSlots++
	} else {
		log.Printf("zone %s: release ignored, already at capacity %d", zoneID, zs.zone.TotalSlots)
	}
	snapshot := zs.zone
	zs.mu.Unlock()

	r.persist(snapshot)
	return nil
}

// SetPrice changes the hourly price. Applies only to reservations
// created afterwards; existing reservations keep their rate snapshot.
func (r *Registry) SetPrice(zoneID string, priceCentsPerHour int64) error {
	if priceCentsPerHour <= 0 {
		return fmt.Errorf("zone %s: %w", zoneID, apperrors.ErrInvalidPrice)
	}
	zs, err := r.lookup(zoneID)
	if err != nil {
		return err
	}
	zs.mu.Lock()
	zs.zone.PriceCentsPerHour = priceCentsPerHour
	snapshot := zs.zone
	zs.mu.Unlock()

	r.persist(snapshot)
	return nil
}

// SetActive toggles whether new reservations may target the zone.
// Already-active reservations are unaffected.
func (r *Registry) SetActive(zoneID string, active bool) error {
	zs, err := r.lookup(zoneID)
	if err != nil {
		return err
	}
	zs.mu.Lock()
	zs.zone.Active = active
	snapshot := zs.zone
	zs.mu.Unlock()

	r.persist(snapshot)
	return nil
}

func (r *Registry) persist(z db.Zone) {
	if r.store == nil {
		return
	}
	if err := r.store.SaveZone(z); err != nil {
		log.Printf("persisting zone %s snapshot: %v", z.ID, err)
	}
}
