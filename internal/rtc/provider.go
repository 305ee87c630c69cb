package rtc

import (
	"context"
	"time"
)

// TokenProvider defines the provider-agnostic interface for minting
// media-room credentials.
//
// Rules:
// - No provider SDK calls outside rtc adapters.
// - Party authorization happens before minting; a provider only signs.
type TokenProvider interface {
	Name() string

	// MintToken returns a credential letting identity join the room for
	// one call. Room naming is provider-internal; callers treat the token
	// as opaque.
	MintToken(ctx context.Context, req TokenRequest) (Token, error)
}

// TokenRequest identifies who joins which call's room.
type TokenRequest struct {
	CallID   string `json:"call_id"`
	Identity string `json:"identity"`

	// Role distinguishes the two legs of the session.
	Role string `json:"role"`
}

// Token is the minted credential.
type Token struct {
	Provider string    `json:"provider"`
	Room     string    `json:"room"`
	Token    string    `json:"token"`
	ExpireAt time.Time `json:"expire_at"`
}
