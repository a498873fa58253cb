package provider

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestWrapError_Sentinels(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantMessage string
		wantHint    string
	}{
		{
			name:        "auth failed",
			err:         fmt.Errorf("request failed: %w", ErrAuthFailed),
			wantMessage: "Authentication failed",
			wantHint:    "--lp-credentials-file",
		},
		{
			name:        "timeout",
			err:         ErrBuildTimeout,
			wantMessage: "Remote builds did not finish in time",
			wantHint:    "--timeout",
		},
		{
			name:        "build failed",
			err:         fmt.Errorf("amd64: %w", ErrBuildFailed),
			wantMessage: "A remote build failed",
			wantHint:    "--allow-build-failures",
		},
		{
			name:        "missing artifacts",
			err:         fmt.Errorf("%w: arm64", ErrMissingArtifacts),
			wantMessage: "A successful build has no rock artifacts",
			wantHint:    "*.rock",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := WrapError(tt.err)

			userErr, ok := wrapped.(*UserError)
			if !ok {
				t.Fatalf("WrapError() returned %T, want *UserError", wrapped)
			}
			if userErr.Message != tt.wantMessage {
				t.Errorf("Message = %q, want %q", userErr.Message, tt.wantMessage)
			}
			if !strings.Contains(userErr.Hint, tt.wantHint) {
				t.Errorf("Hint should contain %q, got %q", tt.wantHint, userErr.Hint)
			}
			if !errors.Is(wrapped, tt.err) {
				t.Error("wrapped error does not unwrap to the original")
			}
		})
	}
}

func TestWrapError_PassThrough(t *testing.T) {
	if WrapError(nil) != nil {
		t.Error("WrapError(nil) should be nil")
	}

	generic := errors.New("something went wrong")
	if got := WrapError(generic); got != generic {
		t.Errorf("WrapError() = %v, want original error", got)
	}

	already := &UserError{Message: "already friendly"}
	if got := WrapError(already); got != error(already) {
		t.Errorf("WrapError() rewrapped a UserError")
	}
}

func TestUserError_Error(t *testing.T) {
	err := &UserError{Message: "msg", Hint: "hint", Err: errors.New("cause")}
	want := "msg\n\nHint: hint\n\nDetails: cause"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestBuild_StateClassification(t *testing.T) {
	tests := []struct {
		state    string
		terminal bool
		success  bool
	}{
		{"Successfully built", true, true},
		{"Failed to build", true, false},
		{"Chroot problem", true, false},
		{"Cancelled build", true, false},
		{"Dependency wait", false, false},
		{"Currently building", false, false},
		{"Needs building", false, false},
		{"Uploading build", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.state, func(t *testing.T) {
			b := &Build{State: tt.state}
			if got := b.IsTerminal(); got != tt.terminal {
				t.Errorf("IsTerminal() = %v, want %v", got, tt.terminal)
			}
			if got := b.IsSuccess(); got != tt.success {
				t.Errorf("IsSuccess() = %v, want %v", got, tt.success)
			}
		})
	}
}

func TestBuild_Arch(t *testing.T) {
	b := &Build{
		ArchTag:              "amd64",
		DistroArchSeriesLink: "https://api.launchpad.net/devel/ubuntu/jammy/arm64",
	}
	if got := b.Arch(); got != "arm64" {
		t.Errorf("Arch() = %q, want arm64", got)
	}

	b.DistroArchSeriesLink = ""
	if got := b.Arch(); got != "amd64" {
		t.Errorf("Arch() fallback = %q, want amd64", got)
	}
}
