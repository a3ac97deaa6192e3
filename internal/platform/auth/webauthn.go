package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"
)

// ChallengeStore issues short-lived random challenges for biometric login.
// The browser-side ceremony is opaque to the server; all we verify is that
// the assertion was produced over a challenge we issued and the credential
// the account registered.
type ChallengeStore struct {
	mu         sync.Mutex
	challenges map[string]challengeEntry
	ttl        time.Duration
}

type challengeEntry struct {
	challenge string
	issuedAt  time.Time
}

func NewChallengeStore(ttl time.Duration) *ChallengeStore {
	return &ChallengeStore{
		challenges: make(map[string]challengeEntry),
		ttl:        ttl,
	}
}

// Issue generates a fresh challenge for the given account email, replacing
// any outstanding one.
func (s *ChallengeStore) Issue(email string) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate challenge: %w", err)
	}
	challenge := hex.EncodeToString(buf)

	s.mu.Lock()
	s.challenges[email] = challengeEntry{challenge: challenge, issuedAt: time.Now()}
	s.mu.Unlock()

	return challenge, nil
}

// Consume returns the outstanding challenge for an email and removes it.
// Expired challenges are treated as absent.
func (s *ChallengeStore) Consume(email string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.challenges[email]
	if !ok {
		return "", false
	}
	delete(s.challenges, email)

	if time.Since(entry.issuedAt) > s.ttl {
		return "", false
	}
	return entry.challenge, true
}

// VerifyAssertion checks an assertion produced by the client over the issued
// challenge with the registered credential. The signature is an HMAC-SHA256
// of the challenge keyed by the credential secret established at
// registration time.
func VerifyAssertion(challenge, credentialSecret, signature string) bool {
	mac := hmac.New(sha256.New, []byte(credentialSecret))
	mac.Write([]byte(challenge))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
