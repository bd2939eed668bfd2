package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"orgie/internal/domain"
)

// MemoryStore keeps users, events and terms in process. It enforces the same
// unique (event, date) rule as the terms table and hands out copies so callers
// never alias stored documents. Used when no DATABASE_URL is configured and
// in tests.
type MemoryStore struct {
	mu     sync.RWMutex
	users  map[string]*domain.User
	events map[string]*domain.Event
	terms  map[string]*domain.Term
	seq    int64
	// created keeps insertion order for stable listings
	created map[string]int64
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:   make(map[string]*domain.User),
		events:  make(map[string]*domain.Event),
		terms:   make(map[string]*domain.Term),
		created: make(map[string]int64),
	}
}

// Repositories exposes the store through the repository interfaces
func (s *MemoryStore) Repositories() *Repositories {
	return &Repositories{
		Users:  &memoryUsers{s},
		Events: &memoryEvents{s},
		Terms:  &memoryTerms{s},
	}
}

func (s *MemoryStore) stamp(id string) {
	s.seq++
	s.created[id] = s.seq
}

func cloneUser(u *domain.User) *domain.User {
	c := *u
	if u.Email != nil {
		email := *u.Email
		c.Email = &email
	}
	return &c
}

func cloneAttendees(l domain.Attendees) domain.Attendees {
	out := make(domain.Attendees, len(l))
	copy(out, l)
	return out
}

func cloneEvent(e *domain.Event) *domain.Event {
	c := *e
	if e.Date != nil {
		d := *e.Date
		c.Date = &d
	}
	if e.Recurrence != nil {
		r := *e.Recurrence
		r.WeekDays = append([]int(nil), e.Recurrence.WeekDays...)
		r.MonthDays = append([]int(nil), e.Recurrence.MonthDays...)
		c.Recurrence = &r
	}
	c.Administrators = append([]string{}, e.Administrators...)
	c.Attendees = cloneAttendees(e.Attendees)
	c.Guests = append([]domain.Guest{}, e.Guests...)
	return &c
}

func cloneStatistics(s *domain.Statistics) *domain.Statistics {
	if s == nil {
		return nil
	}
	teams := make([]domain.TeamResult, len(s.Teams))
	for i, t := range s.Teams {
		teams[i] = t
		teams[i].Members = append([]domain.Attendee{}, t.Members...)
	}
	return &domain.Statistics{Teams: teams}
}

func cloneTerm(t *domain.Term) *domain.Term {
	c := *t
	c.Date = domain.Day(t.Date)
	c.Attendees = cloneAttendees(t.Attendees)
	c.Statistics = cloneStatistics(t.Statistics)
	return &c
}

type memoryUsers struct{ s *MemoryStore }

func (r *memoryUsers) Create(_ context.Context, u *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[u.ID]; ok {
		return ErrDuplicate
	}
	if u.Email != nil {
		for _, existing := range r.s.users {
			if existing.Email != nil && strings.EqualFold(*existing.Email, *u.Email) {
				return ErrDuplicate
			}
		}
	}
	r.s.users[u.ID] = cloneUser(u)
	r.s.stamp(u.ID)
	return nil
}

func (r *memoryUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if u, ok := r.s.users[id]; ok {
		return cloneUser(u), nil
	}
	return nil, nil
}

func (r *memoryUsers) find(match func(*domain.User) bool) *domain.User {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, u := range r.s.users {
		if match(u) {
			return cloneUser(u)
		}
	}
	return nil
}

func (r *memoryUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	return r.find(func(u *domain.User) bool {
		return u.Email != nil && strings.EqualFold(*u.Email, email)
	}), nil
}

func (r *memoryUsers) GetByRefreshToken(_ context.Context, token string) (*domain.User, error) {
	if token == "" {
		return nil, nil
	}
	return r.find(func(u *domain.User) bool { return u.RefreshToken == token }), nil
}

func (r *memoryUsers) GetByIDs(_ context.Context, ids []string) (map[string]*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make(map[string]*domain.User, len(ids))
	for _, id := range ids {
		if u, ok := r.s.users[id]; ok {
			out[id] = cloneUser(u)
		}
	}
	return out, nil
}

func (r *memoryUsers) Search(_ context.Context, q string, limit int) ([]*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	needle := strings.ToLower(q)
	out := make([]*domain.User, 0)
	for _, u := range r.s.users {
		fields := []string{u.FirstName, u.LastName, u.Nickname}
		if u.Email != nil {
			fields = append(fields, *u.Email)
		}
		for _, f := range fields {
			if strings.Contains(strings.ToLower(f), needle) {
				out = append(out, cloneUser(u))
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].FirstName != out[j].FirstName {
			return out[i].FirstName < out[j].FirstName
		}
		return out[i].LastName < out[j].LastName
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memoryUsers) Update(_ context.Context, u *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	existing, ok := r.s.users[u.ID]
	if !ok {
		return fmt.Errorf("user %s not found", u.ID)
	}
	existing.FirstName = u.FirstName
	existing.LastName = u.LastName
	existing.Nickname = u.Nickname
	existing.PreferNickname = u.PreferNickname
	existing.UpdatedAt = u.UpdatedAt
	return nil
}

func (r *memoryUsers) SetRefreshToken(_ context.Context, userID, token string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if u, ok := r.s.users[userID]; ok {
		u.RefreshToken = token
	}
	return nil
}

type memoryEvents struct{ s *MemoryStore }

func (r *memoryEvents) Create(_ context.Context, e *domain.Event) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.events[e.ID]; ok {
		return ErrDuplicate
	}
	for _, existing := range r.s.events {
		if existing.UUID == e.UUID {
			return ErrDuplicate
		}
	}
	r.s.events[e.ID] = cloneEvent(e)
	r.s.stamp(e.ID)
	return nil
}

func (r *memoryEvents) GetByID(_ context.Context, id string) (*domain.Event, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if e, ok := r.s.events[id]; ok {
		return cloneEvent(e), nil
	}
	return nil, nil
}

func (r *memoryEvents) GetByUUID(_ context.Context, uuid string) (*domain.Event, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, e := range r.s.events {
		if e.UUID == uuid {
			return cloneEvent(e), nil
		}
	}
	return nil, nil
}

// filter returns matching events newest first
func (r *memoryEvents) filter(match func(*domain.Event) bool) []*domain.Event {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]*domain.Event, 0)
	for _, e := range r.s.events {
		if match(e) {
			out = append(out, cloneEvent(e))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return r.s.created[out[i].ID] > r.s.created[out[j].ID]
	})
	return out
}

func (r *memoryEvents) List(_ context.Context) ([]*domain.Event, error) {
	return r.filter(func(*domain.Event) bool { return true }), nil
}

func (r *memoryEvents) ListManagedBy(_ context.Context, userID string) ([]*domain.Event, error) {
	return r.filter(func(e *domain.Event) bool { return e.IsManager(userID) }), nil
}

func (r *memoryEvents) ListByIDs(_ context.Context, ids []string) ([]*domain.Event, error) {
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	return r.filter(func(e *domain.Event) bool {
		_, ok := want[e.ID]
		return ok
	}), nil
}

func (r *memoryEvents) ListWithAttendee(_ context.Context, a domain.Attendee) ([]*domain.Event, error) {
	return r.filter(func(e *domain.Event) bool { return e.Attendees.Contains(a) }), nil
}

func (r *memoryEvents) Update(_ context.Context, e *domain.Event) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.events[e.ID]; !ok {
		return fmt.Errorf("event %s not found", e.ID)
	}
	r.s.events[e.ID] = cloneEvent(e)
	return nil
}

func (r *memoryEvents) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.events, id)
	delete(r.s.created, id)
	return nil
}

type memoryTerms struct{ s *MemoryStore }

// dayTaken must be called with the lock held
func (r *memoryTerms) dayTaken(eventID string, day time.Time) bool {
	for _, t := range r.s.terms {
		if t.EventID == eventID && t.Date.Equal(day) {
			return true
		}
	}
	return false
}

func (r *memoryTerms) Create(_ context.Context, t *domain.Term) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.terms[t.ID]; ok || r.dayTaken(t.EventID, domain.Day(t.Date)) {
		return ErrDuplicate
	}
	r.s.terms[t.ID] = cloneTerm(t)
	r.s.stamp(t.ID)
	return nil
}

func (r *memoryTerms) CreateMany(_ context.Context, terms []*domain.Term) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	inserted := 0
	for _, t := range terms {
		if _, ok := r.s.terms[t.ID]; ok || r.dayTaken(t.EventID, domain.Day(t.Date)) {
			continue
		}
		r.s.terms[t.ID] = cloneTerm(t)
		r.s.stamp(t.ID)
		inserted++
	}
	return inserted, nil
}

func (r *memoryTerms) GetByID(_ context.Context, id string) (*domain.Term, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if t, ok := r.s.terms[id]; ok {
		return cloneTerm(t), nil
	}
	return nil, nil
}

func (r *memoryTerms) filter(match func(*domain.Term) bool, ascending bool) []*domain.Term {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]*domain.Term, 0)
	for _, t := range r.s.terms {
		if match(t) {
			out = append(out, cloneTerm(t))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if ascending {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].Date.After(out[j].Date)
	})
	return out
}

func (r *memoryTerms) ListByEventAndDates(_ context.Context, eventID string, dates []time.Time) ([]*domain.Term, error) {
	want := make(map[string]struct{}, len(dates))
	for _, d := range dates {
		want[domain.Day(d).Format(domain.DateLayout)] = struct{}{}
	}
	return r.filter(func(t *domain.Term) bool {
		_, ok := want[t.Date.Format(domain.DateLayout)]
		return t.EventID == eventID && ok
	}, true), nil
}

func (r *memoryTerms) ListActive(_ context.Context, eventID string, today time.Time) ([]*domain.Term, error) {
	return r.filter(func(t *domain.Term) bool {
		return t.EventID == eventID && !t.IsArchived(today)
	}, true), nil
}

func (r *memoryTerms) ListArchived(_ context.Context, eventID string, today time.Time) ([]*domain.Term, error) {
	return r.filter(func(t *domain.Term) bool {
		return t.EventID == eventID && t.IsArchived(today)
	}, false), nil
}

func (r *memoryTerms) ListEventIDsWithAttendee(_ context.Context, a domain.Attendee) ([]string, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	seen := make(map[string]struct{})
	ids := make([]string, 0)
	for _, t := range r.s.terms {
		if _, ok := seen[t.EventID]; ok || !t.Attendees.Contains(a) {
			continue
		}
		seen[t.EventID] = struct{}{}
		ids = append(ids, t.EventID)
	}
	sort.Strings(ids)
	return ids, nil
}

func (r *memoryTerms) UpdateAttendees(_ context.Context, termID string, attendees domain.Attendees) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.terms[termID]
	if !ok {
		return fmt.Errorf("term %s not found", termID)
	}
	t.Attendees = cloneAttendees(attendees)
	return nil
}

func (r *memoryTerms) UpdateStatistics(_ context.Context, termID string, statistics *domain.Statistics) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.terms[termID]
	if !ok {
		return fmt.Errorf("term %s not found", termID)
	}
	t.Statistics = cloneStatistics(statistics)
	return nil
}

func (r *memoryTerms) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.terms, id)
	delete(r.s.created, id)
	return nil
}

func (r *memoryTerms) deleteWhere(match func(*domain.Term) bool) int64 {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for id, t := range r.s.terms {
		if match(t) {
			delete(r.s.terms, id)
			delete(r.s.created, id)
			n++
		}
	}
	return n
}

func (r *memoryTerms) DeleteByEvent(_ context.Context, eventID string) (int64, error) {
	return r.deleteWhere(func(t *domain.Term) bool { return t.EventID == eventID }), nil
}

func (r *memoryTerms) DeleteRange(_ context.Context, eventID string, start, end time.Time) (int64, error) {
	from, until := domain.Day(start), domain.Day(end)
	return r.deleteWhere(func(t *domain.Term) bool {
		return t.EventID == eventID && !t.Date.Before(from) && !t.Date.After(until)
	}), nil
}

func (r *memoryTerms) RemoveAttendee(_ context.Context, eventID string, a domain.Attendee) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, t := range r.s.terms {
		if t.EventID == eventID && t.Attendees.Contains(a) {
			t.Attendees = t.Attendees.Without(a)
			n++
		}
	}
	return n, nil
}
