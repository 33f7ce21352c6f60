package tour

import (
	"fmt"
	"time"

	"github.com/example/route-crm/internal/calendar"
	"github.com/example/route-crm/internal/crm"
	"github.com/example/route-crm/internal/recurrence"
)

// Entry is one customer's line in a tour section, with the assessments for
// both appointment types that placed it there.
type Entry struct {
	Customer crm.Customer
	Pickup   recurrence.Assessment
	Delivery recurrence.Assessment
}

// OverallState is the more urgent of the two appointment states.
func (e Entry) OverallState() recurrence.DueState {
	if e.Delivery.State.Urgency() > e.Pickup.State.Urgency() {
		return e.Delivery.State
	}
	return e.Pickup.State
}

// Snapshot is one day's tour, bucketed by urgency. Customers whose pickup and
// delivery both classify as none are omitted entirely.
type Snapshot struct {
	Day      time.Time
	Overdue  []Entry
	DueToday []Entry
	Upcoming []Entry
	Done     []Entry
	Stats    Stats
}

// Stats carries the section counts. FullyDone counts customers whose pickup
// and delivery were both completed on the snapshot day; such a customer
// contributes once, not twice.
type Stats struct {
	Overdue   int
	DueToday  int
	Upcoming  int
	Done      int
	FullyDone int
}

// Aggregator builds day snapshots from an in-memory set of customers and
// lists. It owns no data: callers pass the current snapshot of the store on
// every build, and the optional cache only short-circuits recomputation for
// customers whose data has not been touched since the previous build.
type Aggregator struct {
	engine       *recurrence.Engine
	cache        *Cache
	lookbackDays int
	horizonDays  int
}

func NewAggregator(engine *recurrence.Engine, cache *Cache, lookbackDays, horizonDays int) *Aggregator {
	if engine == nil {
		engine = recurrence.NewEngine(nil)
	}
	if lookbackDays <= 0 {
		lookbackDays = 28
	}
	if horizonDays <= 0 {
		horizonDays = 28
	}
	return &Aggregator{
		engine:       engine,
		cache:        cache,
		lookbackDays: lookbackDays,
		horizonDays:  horizonDays,
	}
}

func (a *Aggregator) Cache() *Cache {
	return a.cache
}

// Aggregate classifies every customer for the reference day and groups them
// into sections by their most urgent appointment state. Customers preserve
// their input order within each section.
func (a *Aggregator) Aggregate(referenceDay time.Time, customers []crm.Customer, lists []crm.CustomerList) (Snapshot, error) {
	loc := a.engine.Location()
	day := calendar.StartOfDay(referenceDay, loc)
	window := recurrence.Window{
		Start: calendar.AddDays(day, -a.lookbackDays, loc),
		End:   calendar.AddDays(day, a.horizonDays, loc),
	}

	byID := make(map[string]*crm.CustomerList, len(lists))
	for i := range lists {
		byID[lists[i].ID] = &lists[i]
	}

	snapshot := Snapshot{Day: day}
	for _, customer := range customers {
		list := byID[customer.ListID]

		entry, ok := a.cache.get(customer.ID, day)
		if !ok {
			pickup, err := a.engine.Assess(customer, list, crm.Pickup, day, window)
			if err != nil {
				return Snapshot{}, fmt.Errorf("assess pickup for customer %s: %w", customer.ID, err)
			}
			delivery, err := a.engine.Assess(customer, list, crm.Delivery, day, window)
			if err != nil {
				return Snapshot{}, fmt.Errorf("assess delivery for customer %s: %w", customer.ID, err)
			}
			entry = cacheEntry{day: day, pickup: pickup, delivery: delivery}
			a.cache.store(customer.ID, entry)
		}

		line := Entry{Customer: customer, Pickup: entry.pickup, Delivery: entry.delivery}
		switch line.OverallState() {
		case recurrence.StateOverdue:
			snapshot.Overdue = append(snapshot.Overdue, line)
		case recurrence.StateDueToday:
			snapshot.DueToday = append(snapshot.DueToday, line)
		case recurrence.StateUpcoming:
			snapshot.Upcoming = append(snapshot.Upcoming, line)
		case recurrence.StateDone:
			snapshot.Done = append(snapshot.Done, line)
			if entry.pickup.State == recurrence.StateDone && entry.delivery.State == recurrence.StateDone {
				snapshot.Stats.FullyDone++
			}
		}
	}

	snapshot.Stats.Overdue = len(snapshot.Overdue)
	snapshot.Stats.DueToday = len(snapshot.DueToday)
	snapshot.Stats.Upcoming = len(snapshot.Upcoming)
	snapshot.Stats.Done = len(snapshot.Done)
	return snapshot, nil
}
