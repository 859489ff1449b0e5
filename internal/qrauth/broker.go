package qrauth

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"photobox/internal/model"
	"photobox/internal/token"
)

// Broker error taxonomy. Every failure is terminal for its request; in
// particular a failed redeem must never be retried against the same key.
var (
	ErrUnauthenticated  = errors.New("invalid or expired session")
	ErrIdentityNotFound = errors.New("user not found")
	ErrTicketNotFound   = errors.New("qr code not found or expired")
	ErrTicketUsed       = errors.New("qr code already used")
)

// Status values reported to the polling device.
type Status string

const (
	StatusPending Status = "pending"
	StatusScanned Status = "scanned"
	StatusExpired Status = "expired"
)

// TokenService verifies the generating device's credential and issues the
// pair handed to the redeeming device.
type TokenService interface {
	Verify(credential string) (int64, error)
	Issue(userID int64) (token.Pair, error)
}

// IdentityStore resolves user IDs to accounts; a (nil, nil) return means
// the account no longer exists.
type IdentityStore interface {
	GetByID(id int64) (*model.User, error)
}

// GenerateResult is handed back to the already-authenticated device; the
// key is what gets rendered into the QR code client-side.
type GenerateResult struct {
	TicketKey        string `json:"ticketKey"`
	ExpiresInSeconds int    `json:"expiresInSeconds"`
}

// Identity is the denormalized account summary returned on redemption.
type Identity struct {
	ID          int64  `json:"id"`
	DisplayName string `json:"displayName"`
}

// RedeemResult logs the scanning device in as the ticket's owner.
type RedeemResult struct {
	AccessToken  string   `json:"accessToken"`
	RefreshToken string   `json:"refreshToken"`
	Identity     Identity `json:"identity"`
}

// Broker mediates the handshake over the ticket store. The scanning
// device never sees the primary credential; it only ever holds the ticket
// key and the tokens minted on redemption.
type Broker struct {
	store  *TicketStore
	tokens TokenService
	users  IdentityStore
	logger *slog.Logger

	now func() time.Time
}

func NewBroker(store *TicketStore, tokens TokenService, users IdentityStore, logger *slog.Logger) *Broker {
	return &Broker{
		store:  store,
		tokens: tokens,
		users:  users,
		logger: logger,
		now:    time.Now,
	}
}

// Generate verifies the caller's session credential, confirms the account
// still exists, and mints a ticket bound to it. The only state change is
// the ticket insert.
func (b *Broker) Generate(credential string) (GenerateResult, error) {
	userID, err := b.tokens.Verify(credential)
	if err != nil {
		return GenerateResult{}, ErrUnauthenticated
	}

	user, err := b.users.GetByID(userID)
	if err != nil {
		return GenerateResult{}, fmt.Errorf("resolve identity: %w", err)
	}
	if user == nil {
		return GenerateResult{}, ErrIdentityNotFound
	}

	t := b.store.Put(user.ID, user.Username, b.now())
	b.logger.Debug("ticket generated", "user_id", user.ID)

	return GenerateResult{
		TicketKey:        t.Key,
		ExpiresInSeconds: int(TicketTTL.Seconds()),
	}, nil
}

// Redeem claims the ticket under key and, if its owner still exists,
// issues a fresh token pair for the scanning device. The claim is the
// store's atomic consume, so concurrent redeems of the same key produce
// exactly one winner; losers see ErrTicketUsed. Expiry is checked here
// against the wall clock rather than waiting on the sweep, and the ticket
// is deleted once redemption finishes, win or lose.
func (b *Broker) Redeem(key string) (RedeemResult, error) {
	t, err := b.store.Consume(key, b.now())
	if err != nil {
		return RedeemResult{}, err
	}

	user, err := b.users.GetByID(t.UserID)
	if err != nil {
		return RedeemResult{}, fmt.Errorf("resolve identity: %w", err)
	}
	if user == nil {
		// Account deleted between generate and scan.
		b.store.Delete(key)
		return RedeemResult{}, ErrIdentityNotFound
	}

	pair, err := b.tokens.Issue(user.ID)
	if err != nil {
		return RedeemResult{}, fmt.Errorf("issue tokens: %w", err)
	}

	b.store.Delete(key)
	b.logger.Info("ticket redeemed", "user_id", user.ID)

	return RedeemResult{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		Identity:     Identity{ID: user.ID, DisplayName: user.Username},
	}, nil
}

// TicketStatus reports the ticket's state for polling UIs. Pure read,
// idempotent, never mutates the ticket.
func (b *Broker) TicketStatus(key string) Status {
	t, ok := b.store.Get(key)
	if !ok || t.expiredAt(b.now()) {
		return StatusExpired
	}
	if t.Consumed {
		return StatusScanned
	}
	return StatusPending
}
