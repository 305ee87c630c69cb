package rtc

import (
	"context"
	"testing"
	"time"
)

func TestMintAndVerify(t *testing.T) {
	now := time.Date(2026, 2, 3, 10, 0, 0, 0, time.UTC)
	p := NewHMACProvider("app-1", "secret", time.Hour)
	p.clock = func() time.Time { return now }

	tok, err := p.MintToken(context.Background(), TokenRequest{CallID: "c1", Identity: "u1", Role: "caller"})
	if err != nil {
		t.Fatalf("MintToken: %v", err)
	}
	if tok.Room != "call:c1" || !tok.ExpireAt.Equal(now.Add(time.Hour)) {
		t.Fatalf("token = %+v", tok)
	}

	got, err := p.VerifyToken(tok.Token, now.Add(30*time.Minute))
	if err != nil {
		t.Fatalf("VerifyToken: %v", err)
	}
	if got.CallID != "c1" || got.Identity != "u1" || got.Role != "caller" {
		t.Fatalf("payload = %+v", got)
	}
}

func TestVerify_Expired(t *testing.T) {
	now := time.Date(2026, 2, 3, 10, 0, 0, 0, time.UTC)
	p := NewHMACProvider("app-1", "secret", time.Minute)
	p.clock = func() time.Time { return now }

	tok, err := p.MintToken(context.Background(), TokenRequest{CallID: "c1", Identity: "u1"})
	if err != nil {
		t.Fatalf("MintToken: %v", err)
	}
	if _, err := p.VerifyToken(tok.Token, now.Add(2*time.Minute)); err == nil {
		t.Fatal("expired token verified")
	}
}

func TestVerify_WrongSecret(t *testing.T) {
	p := NewHMACProvider("app-1", "secret", time.Hour)
	tok, err := p.MintToken(context.Background(), TokenRequest{CallID: "c1", Identity: "u1"})
	if err != nil {
		t.Fatalf("MintToken: %v", err)
	}

	other := NewHMACProvider("app-1", "other-secret", time.Hour)
	if _, err := other.VerifyToken(tok.Token, time.Now()); err == nil {
		t.Fatal("token verified with the wrong secret")
	}
}

func TestMint_RequiresCallAndIdentity(t *testing.T) {
	p := NewHMACProvider("app-1", "secret", time.Hour)
	if _, err := p.MintToken(context.Background(), TokenRequest{Identity: "u1"}); err == nil {
		t.Fatal("minted without call id")
	}
	if _, err := p.MintToken(context.Background(), TokenRequest{CallID: "c1"}); err == nil {
		t.Fatal("minted without identity")
	}
}
