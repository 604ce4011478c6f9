package auth

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophrelief/internal/common"
	"github.com/dmitrijs2005/gophrelief/internal/keyx"
)

const (
	nonceSize = 32
	// maxPending bounds outstanding challenges; Challenge needs no login.
	maxPending = 10000
)

type challenge struct {
	nonce   []byte
	expires time.Time
}

// Authenticator issues one-time login challenges and exchanges a signed
// challenge for an access token.
type Authenticator struct {
	secretKey    []byte
	tokenTTL     time.Duration
	challengeTTL time.Duration
	maxPending   int
	now          func() time.Time

	mu      sync.Mutex
	pending map[keyx.Address]challenge
}

func NewAuthenticator(secretKey []byte, tokenTTL time.Duration) *Authenticator {
	return &Authenticator{
		secretKey:    secretKey,
		tokenTTL:     tokenTTL,
		challengeTTL: time.Minute,
		maxPending:   maxPending,
		now:          time.Now,
		pending:      make(map[keyx.Address]challenge),
	}
}

// Challenge returns a fresh nonce for addr, replacing any earlier one.
// Expired challenges are dropped first; if the table is still full the
// request fails with common.ErrRateLimited.
func (a *Authenticator) Challenge(_ context.Context, addr keyx.Address) ([]byte, error) {
	nonce := common.GenerateRandByteArray(nonceSize)

	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.now()
	if _, ok := a.pending[addr]; !ok && len(a.pending) >= a.maxPending {
		for k, c := range a.pending {
			if now.After(c.expires) {
				delete(a.pending, k)
			}
		}
		if len(a.pending) >= a.maxPending {
			return nil, common.ErrRateLimited
		}
	}

	a.pending[addr] = challenge{nonce: nonce, expires: now.Add(a.challengeTTL)}
	return append([]byte(nil), nonce...), nil
}

// Login consumes the pending challenge for addr. The public key must hash to
// addr and sig must sign the login digest of the nonce.
func (a *Authenticator) Login(_ context.Context, addr keyx.Address, pub, sig []byte) (string, error) {
	a.mu.Lock()
	c, ok := a.pending[addr]
	delete(a.pending, addr)
	a.mu.Unlock()

	if !ok || a.now().After(c.expires) {
		return "", common.ErrUnauthorized
	}

	derived, err := keyx.AddressFromPublicKey(pub)
	if err != nil || derived != addr {
		return "", common.ErrUnauthorized
	}
	if err := keyx.Verify(pub, keyx.LoginDigest(c.nonce), sig); err != nil {
		return "", common.ErrUnauthorized
	}

	return GenerateToken(addr, a.secretKey, a.tokenTTL)
}

// Authenticate resolves an access token to its wallet address.
func (a *Authenticator) Authenticate(token string) (keyx.Address, error) {
	return GetAddressFromToken(token, a.secretKey)
}
