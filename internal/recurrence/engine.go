package recurrence

import (
	"errors"
	"sort"
	"time"

	"github.com/example/route-crm/internal/calendar"
	"github.com/example/route-crm/internal/crm"
)

var (
	// ErrInvalidWindow indicates the query window is unbounded or reversed.
	// A bounded window is mandatory: repeating intervals are otherwise
	// unbounded generators.
	ErrInvalidWindow = errors.New("recurrence: query window requires ordered day bounds")
	// ErrInvalidStep indicates a repeating interval with a step below one day.
	ErrInvalidStep = errors.New("recurrence: interval step must be at least one day")
	// ErrInvalidOccurrences indicates a negative occurrence limit.
	ErrInvalidOccurrences = errors.New("recurrence: max occurrences must not be negative")
	// ErrInvalidVacation indicates a vacation range that ends before it starts.
	ErrInvalidVacation = errors.New("recurrence: vacation range ends before it starts")
	// ErrUnknownList indicates the customer references a list that was not
	// supplied with the snapshot.
	ErrUnknownList = errors.New("recurrence: customer references an unknown list")
)

// Window bounds a candidate query. Both ends are normalized to day
// granularity and are inclusive.
type Window struct {
	Start time.Time
	End   time.Time
}

// Engine expands customer scheduling rules into concrete due dates. All
// methods are pure over the snapshot passed in; the engine holds no state
// beyond its timezone.
type Engine struct {
	loc *time.Location
}

// NewEngine constructs an engine that normalizes all days to the provided
// location. If loc is nil the service default location is used.
func NewEngine(loc *time.Location) *Engine {
	if loc == nil {
		loc = calendar.DefaultLocation()
	}
	return &Engine{loc: loc}
}

// Location returns the timezone the engine normalizes to.
func (e *Engine) Location() *time.Location {
	if e == nil || e.loc == nil {
		return calendar.DefaultLocation()
	}
	return e.loc
}

// candidate is one potential due date together with the earliest day it may
// actually come due. Interval occurrences anchor at their interval's creation
// day, weekday and term occurrences at the customer's creation day.
type candidate struct {
	day    time.Time
	anchor time.Time
}

// EffectiveWeekdays returns the union of the customer's personal weekday
// defaults and the weekday injected by list membership, sorted ascending.
// Computed on read so list membership changes can never leave a stale set
// behind.
func (e *Engine) EffectiveWeekdays(c crm.Customer, list *crm.CustomerList, t crm.AppointmentType) []calendar.Weekday {
	seen := make(map[calendar.Weekday]struct{})
	for _, day := range c.DefaultWeekdays(t) {
		if day.Valid() {
			seen[day] = struct{}{}
		}
	}
	if list != nil && c.ListID == list.ID && list.IsWeekdayList() && list.Weekday.Valid() {
		seen[list.Weekday] = struct{}{}
	}
	if len(seen) == 0 {
		return nil
	}
	out := make([]calendar.Weekday, 0, len(seen))
	for day := range seen {
		out = append(out, day)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// CandidateDates expands every scheduling source of the customer into the
// sorted, de-duplicated set of day timestamps inside the window. A day
// emitted by multiple sources counts once. The reschedule override, when
// set, has already replaced the earliest open occurrence.
func (e *Engine) CandidateDates(c crm.Customer, list *crm.CustomerList, t crm.AppointmentType, w Window) ([]time.Time, error) {
	candidates, err := e.resolve(c, list, t, w)
	if err != nil {
		return nil, err
	}
	days := make([]time.Time, 0, len(candidates))
	for _, cand := range candidates {
		days = append(days, cand.day)
	}
	return days, nil
}

// IsSuppressed reports whether the day must not produce a due occurrence for
// the customer, either because the customer is paused or because the day
// falls inside a vacation range.
func (e *Engine) IsSuppressed(c crm.Customer, day time.Time) (bool, error) {
	if c.Status == crm.StatusPaused {
		return true, nil
	}
	loc := e.Location()
	day = calendar.StartOfDay(day, loc)
	for _, entry := range c.VacationPeriods() {
		from := calendar.StartOfDay(entry.From, loc)
		to := calendar.StartOfDay(entry.To, loc)
		if to.Before(from) {
			return false, ErrInvalidVacation
		}
		if !day.Before(from) && !day.After(to) {
			return true, nil
		}
	}
	return false, nil
}

func (e *Engine) resolve(c crm.Customer, list *crm.CustomerList, t crm.AppointmentType, w Window) ([]candidate, error) {
	loc := e.Location()

	if w.Start.IsZero() || w.End.IsZero() {
		return nil, ErrInvalidWindow
	}
	start := calendar.StartOfDay(w.Start, loc)
	end := calendar.StartOfDay(w.End, loc)
	if end.Before(start) {
		return nil, ErrInvalidWindow
	}
	if c.ListID != "" && (list == nil || list.ID != c.ListID) {
		return nil, ErrUnknownList
	}

	customerAnchor := start
	if !c.CreatedAt.IsZero() {
		customerAnchor = calendar.StartOfDay(c.CreatedAt, loc)
	}

	byDay := make(map[time.Time]candidate)
	add := func(day, anchor time.Time) {
		existing, ok := byDay[day]
		if !ok || anchor.Before(existing.anchor) {
			byDay[day] = candidate{day: day, anchor: anchor}
		}
	}

	// Interval occurrences.
	for _, iv := range c.Intervals {
		base, ok := iv.BaseDate(t)
		if !ok {
			continue
		}
		if iv.MaxOccurrences < 0 {
			return nil, ErrInvalidOccurrences
		}
		base = calendar.StartOfDay(base, loc)
		anchor := base
		if !iv.CreatedAt.IsZero() {
			anchor = calendar.StartOfDay(iv.CreatedAt, loc)
		}
		if !iv.Repeats {
			if !base.Before(start) && !base.After(end) {
				add(base, anchor)
			}
			continue
		}
		if iv.StepDays < 1 {
			return nil, ErrInvalidStep
		}
		day := base
		for k := 0; ; k++ {
			if iv.MaxOccurrences > 0 && k >= iv.MaxOccurrences {
				break
			}
			if day.After(end) {
				break
			}
			if !day.Before(start) {
				add(day, anchor)
			}
			day = calendar.AddDays(day, iv.StepDays, loc)
		}
	}

	// Effective weekday occurrences.
	weekdays := e.EffectiveWeekdays(c, list, t)
	if len(weekdays) > 0 {
		set := make(map[calendar.Weekday]struct{}, len(weekdays))
		for _, day := range weekdays {
			set[day] = struct{}{}
		}
		for day := start; !day.After(end); day = calendar.AddDays(day, 1, loc) {
			if _, ok := set[calendar.WeekdayOf(day, loc)]; ok {
				add(day, customerAnchor)
			}
		}
	}

	// Term occurrences, both the copies on the customer and the terms of a
	// term based list.
	for _, term := range c.ListTerms {
		if term.Type != t || term.Date.IsZero() {
			continue
		}
		day := calendar.StartOfDay(term.Date, loc)
		if !day.Before(start) && !day.After(end) {
			add(day, customerAnchor)
		}
	}
	if list != nil && c.ListID == list.ID && list.IsTermList() {
		for _, term := range list.TermsOfType(t) {
			if term.Date.IsZero() {
				continue
			}
			day := calendar.StartOfDay(term.Date, loc)
			if !day.Before(start) && !day.After(end) {
				add(day, customerAnchor)
			}
		}
	}

	candidates := make([]candidate, 0, len(byDay))
	for _, cand := range byDay {
		candidates = append(candidates, cand)
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].day.Before(candidates[j].day) })

	return e.applyReschedule(c, t, candidates, start, end), nil
}

// applyReschedule replaces the earliest occurrence of the series that is not
// yet completed with the manual override date. Only that single occurrence
// moves; the underlying rules are untouched. Completion of the other
// appointment type never shields an occurrence of this one.
func (e *Engine) applyReschedule(c crm.Customer, t crm.AppointmentType, candidates []candidate, start, end time.Time) []candidate {
	if c.RescheduledTo == nil || len(candidates) == 0 {
		return candidates
	}
	loc := e.Location()
	target := calendar.StartOfDay(*c.RescheduledTo, loc)

	doneDays := make(map[time.Time]struct{}, 1)
	if at, ok := c.CompletedAt(t); ok {
		doneDays[calendar.StartOfDay(at, loc)] = struct{}{}
	}

	replaced := false
	out := make([]candidate, 0, len(candidates))
	for _, cand := range candidates {
		if !replaced {
			if _, done := doneDays[cand.day]; !done {
				replaced = true
				if cand.day.Equal(target) {
					out = append(out, cand)
					continue
				}
				if !target.Before(start) && !target.After(end) {
					anchor := cand.anchor
					if target.Before(anchor) {
						anchor = target
					}
					out = append(out, candidate{day: target, anchor: anchor})
				}
				continue
			}
		}
		out = append(out, cand)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].day.Before(out[j].day) })
	deduped := out[:0]
	for _, cand := range out {
		if len(deduped) > 0 && deduped[len(deduped)-1].day.Equal(cand.day) {
			if cand.anchor.Before(deduped[len(deduped)-1].anchor) {
				deduped[len(deduped)-1].anchor = cand.anchor
			}
			continue
		}
		deduped = append(deduped, cand)
	}
	return deduped
}
