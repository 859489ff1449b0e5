// Package qrauth implements the QR login handshake: a logged-in device
// mints a short-lived single-use ticket, a second device redeems it for a
// fresh token pair, and the first device polls ticket status for feedback.
package qrauth

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	// TicketTTL is how long a ticket stays redeemable after creation.
	// Older tickets are treated as nonexistent even before the sweeper
	// physically removes them.
	TicketTTL = 5 * time.Minute

	// SweepInterval is how often expired tickets are purged.
	SweepInterval = time.Minute
)

// Ticket binds one QR login attempt to a user. The owning user never
// changes after creation; the only mutation is the consumed flag flipping
// once, inside Consume.
type Ticket struct {
	Key       string
	UserID    int64
	Username  string
	CreatedAt time.Time
	Consumed  bool
}

func (t Ticket) expiredAt(now time.Time) bool {
	return now.Sub(t.CreatedAt) > TicketTTL
}

// TicketStore holds pending tickets in process memory. State is volatile:
// a restart drops every in-flight handshake, and tickets are not shared
// across replicas. All access goes through the store's methods, each a
// short critical section so request handlers never serialize behind one
// another.
type TicketStore struct {
	mu      sync.Mutex
	tickets map[string]*Ticket
}

func NewTicketStore() *TicketStore {
	return &TicketStore{tickets: make(map[string]*Ticket)}
}

// Put mints a ticket bound to the given user under a fresh random key and
// returns a snapshot of it. Key collisions are practically impossible at
// UUID entropy; the loop regenerates anyway rather than overwrite.
func (s *TicketStore) Put(userID int64, username string, now time.Time) Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()

	var key string
	for {
		key = uuid.NewString()
		if _, exists := s.tickets[key]; !exists {
			break
		}
	}

	t := &Ticket{
		Key:       key,
		UserID:    userID,
		Username:  username,
		CreatedAt: now,
	}
	s.tickets[key] = t
	return *t
}

// Get returns a snapshot of the ticket under key. It does not filter by
// age; callers judge expiry against the same clock reading they use for
// the rest of the operation.
func (s *TicketStore) Get(key string) (Ticket, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tickets[key]
	if !ok {
		return Ticket{}, false
	}
	return *t, true
}

// Delete removes the ticket under key. Deleting an absent key is a no-op.
func (s *TicketStore) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tickets, key)
}

// Consume atomically claims the ticket under key: the lookup, the expiry
// check, and the consumed check-and-set all happen inside one critical
// section, so at most one of any number of racing callers wins. Absent or
// expired tickets return ErrTicketNotFound; already-claimed tickets return
// ErrTicketUsed.
func (s *TicketStore) Consume(key string, now time.Time) (Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tickets[key]
	if !ok || t.expiredAt(now) {
		return Ticket{}, ErrTicketNotFound
	}
	if t.Consumed {
		return Ticket{}, ErrTicketUsed
	}
	t.Consumed = true
	return *t, nil
}

// SweepExpired removes every ticket older than TicketTTL as of now and
// returns how many were removed.
func (s *TicketStore) SweepExpired(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, t := range s.tickets {
		if t.expiredAt(now) {
			delete(s.tickets, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of tickets currently held, expired or not.
func (s *TicketStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tickets)
}
