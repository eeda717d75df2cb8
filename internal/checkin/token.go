package checkin

import (
	"crypto/rand"
	"encoding/base32"
	"fmt"
	"time"
)

// tokenBytes of entropy per token; 20 bytes renders to 32 base32 characters.
const tokenBytes = 20

var tokenEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// TokenIssuer mints the opaque credential attached to each new request,
// together with its fixed-TTL expiry.
type TokenIssuer struct {
	TTL time.Duration
}

// Issue returns a fresh token and its expiry computed from now. Tokens are
// practically unique; the store's uniqueness constraint is the backstop.
func (i TokenIssuer) Issue(now time.Time) (string, time.Time, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", time.Time{}, fmt.Errorf("token entropy: %w", err)
	}
	return tokenEncoding.EncodeToString(buf), now.Add(i.TTL), nil
}
