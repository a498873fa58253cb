package provider

import (
	"errors"
	"fmt"
)

var (
	ErrAuthFailed       = errors.New("authentication failed")
	ErrNotFound         = errors.New("not found")
	ErrBuildFailed      = errors.New("remote build failed")
	ErrBuildTimeout     = errors.New("timed out waiting for remote builds")
	ErrMissingArtifacts = errors.New("build produced no rock artifacts")
)

// UserError wraps errors with user-friendly messages
type UserError struct {
	Message string
	Hint    string
	Err     error
}

func (e *UserError) Error() string {
	msg := e.Message
	if e.Hint != "" {
		msg += "\n\nHint: " + e.Hint
	}
	if e.Err != nil {
		msg += fmt.Sprintf("\n\nDetails: %v", e.Err)
	}
	return msg
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// WrapError converts provider errors to user-friendly messages
func WrapError(err error) error {
	if err == nil {
		return nil
	}

	var userErr *UserError
	if errors.As(err, &userErr) {
		return err
	}

	switch {
	case errors.Is(err, ErrAuthFailed):
		return &UserError{
			Message: "Authentication failed",
			Hint:    "Check that your Launchpad credentials are valid and not expired.\n  - Pass them with --lp-credentials-file or --lp-credentials-b64",
			Err:     err,
		}
	case errors.Is(err, ErrBuildTimeout):
		return &UserError{
			Message: "Remote builds did not finish in time",
			Hint:    "Increase --timeout. The Launchpad repository was kept so the builds can be inspected.",
			Err:     err,
		}
	case errors.Is(err, ErrBuildFailed):
		return &UserError{
			Message: "A remote build failed",
			Hint:    "Check the saved build log. Use --allow-build-failures to keep the successful builds.",
			Err:     err,
		}
	case errors.Is(err, ErrMissingArtifacts):
		return &UserError{
			Message: "A successful build has no rock artifacts",
			Hint:    "Check that the build job lists \"*.rock\" in its output paths.",
			Err:     err,
		}
	}

	return err
}
