package cli

import (
	"errors"
	"fmt"

	"github.com/samvad-hq/samvad-ops-client/internal/app"
	"github.com/samvad-hq/samvad-ops-client/pkg/apiclient"
)

// Exit codes returned by opsctl.
const (
	ExitOK              = 0
	ExitGeneric         = 1
	ExitUsage           = 2
	ExitTransport       = 3
	ExitUnauthenticated = 4
)

type usageError struct{ err error }

func (u *usageError) Error() string { return u.err.Error() }
func (u *usageError) Unwrap() error { return u.err }

func usage(format string, args ...any) error {
	return &usageError{err: fmt.Errorf(format, args...)}
}

// ExitCode maps a command error to the process exit status.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	var u *usageError
	if errors.As(err, &u) {
		return ExitUsage
	}
	for _, target := range []error{app.ErrUnknownProfile, app.ErrTokenRequired, app.ErrNotStoredProfile, app.ErrEmptyToken} {
		if errors.Is(err, target) {
			return ExitUsage
		}
	}

	apiErr, ok := apiclient.AsError(err)
	if !ok {
		return ExitGeneric
	}
	switch {
	case apiclient.IsUnauthenticated(err):
		return ExitUnauthenticated
	case apiErr.Kind == apiclient.KindTransport:
		return ExitTransport
	case apiErr.Kind == apiclient.KindInvalidRequest:
		return ExitUsage
	default:
		return ExitGeneric
	}
}

// FormatError renders err for stderr. API failures print as "status: message".
func FormatError(err error) string {
	apiErr, ok := apiclient.AsError(err)
	if !ok {
		return fmt.Sprintf("error: %v", err)
	}
	msg := apiErr.Message
	if apiErr.Status > 0 {
		msg = fmt.Sprintf("%d: %s", apiErr.Status, apiErr.Message)
	}
	if apiErr.Detail != "" {
		msg += "\n" + apiErr.Detail
	}
	return msg
}
