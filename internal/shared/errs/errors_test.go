package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/containerd/errdefs"
	"github.com/stretchr/testify/assert"
)

func TestErrorsMatchSentinels(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
		class    func(error) bool
	}{
		{"duplicate", &DuplicateNameError{Name: "alpha"}, ErrDuplicateName, errdefs.IsAlreadyExists},
		{"invalid type", &InvalidTypeError{Type: "bogus"}, ErrInvalidType, errdefs.IsInvalidArgument},
		{"missing content", &MissingContentError{Path: "/tmp/x"}, ErrMissingContent, errdefs.IsNotFound},
		{"provisioning", &ProvisioningError{Path: "/tmp/x", Err: errors.New("disk full")}, ErrProvisioning, errdefs.IsFailedPrecondition},
		{"declined", &ProvisioningError{Path: "/tmp/x", Err: ErrDeclined}, ErrProvisioning, errdefs.IsAborted},
		{"invalid status", &InvalidStatusError{Status: "nope"}, ErrInvalidStatus, errdefs.IsInvalidArgument},
		{"unsupported", &UnsupportedOperationError{Op: "set project"}, ErrUnsupportedOperation, errdefs.IsNotImplemented},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("register: %w", tt.err)
			assert.ErrorIs(t, wrapped, tt.sentinel)
			assert.True(t, tt.class(wrapped))
		})
	}
}

func TestErrorMessagesNameResource(t *testing.T) {
	assert.Contains(t, (&DuplicateNameError{Name: "alpha"}).Error(), `"alpha"`)
	assert.Contains(t, (&MissingContentError{Path: "/data/tasks/beta"}).Error(), "/data/tasks/beta")
	assert.Contains(t, (&ProvisioningError{Path: "/data/tasks/beta", Err: ErrDeclined}).Error(), "/data/tasks/beta")
	assert.Contains(t, (&InvalidTypeError{Type: "x", Valid: []string{"generic", "mock"}}).Error(), "generic, mock")
}

func TestProvisioningErrorUnwrap(t *testing.T) {
	err := &ProvisioningError{Path: "p", Err: ErrDeclined}
	assert.ErrorIs(t, err, ErrDeclined)
	assert.False(t, errdefs.IsFailedPrecondition(err))
}
