package apiclient

import (
	"context"
	"net/http"
	"sync"

	"golang.org/x/oauth2"

	"github.com/dmitrymomot/deskkit/pkg/identity"
)

// CredentialSlot holds the credential attached to outgoing requests.
// It is shared between the session manager (the only writer) and every client.
type CredentialSlot struct {
	mu   sync.RWMutex
	cred identity.Credential
}

func NewCredentialSlot() *CredentialSlot {
	return &CredentialSlot{}
}

func (s *CredentialSlot) Set(cred identity.Credential) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cred = cred
}

func (s *CredentialSlot) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cred = identity.Credential{}
}

// Current returns the credential and whether one is set.
func (s *CredentialSlot) Current() (identity.Credential, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cred, !s.cred.IsZero()
}

// Token implements oauth2.TokenSource.
func (s *CredentialSlot) Token() (*oauth2.Token, error) {
	cred, ok := s.Current()
	if !ok {
		return nil, ErrNoCredential
	}
	return &oauth2.Token{AccessToken: cred.Token, TokenType: "Bearer"}, nil
}

// authorize sets the bearer header when a credential is present.
func (s *CredentialSlot) authorize(req *http.Request) bool {
	tok, err := s.Token()
	if err != nil {
		return false
	}
	tok.SetAuthHeader(req)
	return true
}

var _ oauth2.TokenSource = (*CredentialSlot)(nil)

// Rejecter is told when the server refuses the credential of a request.
// Components read Generation before the request goes out and pass it back to
// CredentialRejectedAt, so a refusal of a credential that was replaced while
// the request was in flight is ignored. session.Manager implements it.
type Rejecter interface {
	Generation() uint64
	CredentialRejectedAt(ctx context.Context, gen uint64)
}

// RejectFunc adapts a plain function to Rejecter. It reports every refusal.
type RejectFunc func(ctx context.Context)

func (f RejectFunc) Generation() uint64 { return 0 }

func (f RejectFunc) CredentialRejectedAt(ctx context.Context, _ uint64) { f(ctx) }
