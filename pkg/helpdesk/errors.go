package helpdesk

import (
	"errors"
	"fmt"

	"github.com/dmitrymomot/deskkit/pkg/apiclient"
)

var (
	ErrNotSignedIn = errors.New("helpdesk: not signed in")
	// ErrNotPermitted is returned before any request when the signed-in role lacks a capability.
	ErrNotPermitted = fmt.Errorf("helpdesk: not permitted: %w", apiclient.ErrAuthorizationDenied)
)
