package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrInvalidLink covers malformed tokens and signature mismatches.
	ErrInvalidLink = errors.New("invalid download link")
	// ErrLinkExpired is returned for a correctly signed link past its expiry.
	ErrLinkExpired = errors.New("download link expired")
)

// Link is the payload carried by a signed download token.
type Link struct {
	ExportID  string `json:"id"`
	Path      string `json:"p"`
	Scope     string `json:"s,omitempty"`
	ExpiresAt int64  `json:"e"`
}

// Expiry returns the link expiry as a time.
func (l Link) Expiry() time.Time {
	return time.Unix(l.ExpiresAt, 0)
}

// SignedURLSigner issues and checks unauthenticated download tokens of the
// form base64(payload) "." base64(hmac-sha256).
type SignedURLSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSignedURLSigner constructs a signer. A non-positive ttl defaults to one hour.
func NewSignedURLSigner(secret string, ttl time.Duration) *SignedURLSigner {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &SignedURLSigner{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Sign returns a token for the stored file relPath, recording the caller scope it was rendered for.
func (s *SignedURLSigner) Sign(exportID, relPath, scope string) (string, time.Time, error) {
	if exportID == "" || relPath == "" {
		return "", time.Time{}, fmt.Errorf("export id and path required")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("signing secret missing")
	}
	expiresAt := s.now().Add(s.ttl).Truncate(time.Second)
	payload, err := json.Marshal(Link{ExportID: exportID, Path: relPath, Scope: scope, ExpiresAt: expiresAt.Unix()})
	if err != nil {
		return "", time.Time{}, fmt.Errorf("encode link: %w", err)
	}
	encoded := base64.RawURLEncoding.EncodeToString(payload)
	return encoded + "." + s.signature(encoded), expiresAt, nil
}

// Verify checks the signature and expiry of token and returns its link.
func (s *SignedURLSigner) Verify(token string) (Link, error) {
	encoded, signature, ok := strings.Cut(token, ".")
	if !ok || encoded == "" || signature == "" {
		return Link{}, ErrInvalidLink
	}
	if !hmac.Equal([]byte(s.signature(encoded)), []byte(signature)) {
		return Link{}, ErrInvalidLink
	}
	payload, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return Link{}, ErrInvalidLink
	}
	var link Link
	if err := json.Unmarshal(payload, &link); err != nil || link.Path == "" {
		return Link{}, ErrInvalidLink
	}
	if s.now().After(link.Expiry()) {
		return link, ErrLinkExpired
	}
	return link, nil
}

func (s *SignedURLSigner) signature(encoded string) string {
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(encoded))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
