package errs

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyNil(t *testing.T) {
	assert.Nil(t, Classify(KindCorrupted, nil))
}

func TestClassifyWrapsCause(t *testing.T) {
	cause := errors.New("xref table broken")
	err := Classify(KindCorrupted, cause)

	var te *ToolError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, KindCorrupted, te.Kind)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "corrupted")
}

func TestWrapMapsKinds(t *testing.T) {
	cases := []struct {
		kind        Kind
		code        string
		recoverable bool
	}{
		{KindCorrupted, CodeCorrupted, true},
		{KindTimeout, CodeTimeout, true},
		{KindOutOfMemory, CodeOutOfMemory, false},
		{KindUnsupported, CodeUnsupported, false},
		{KindUnknown, CodeProcessing, true},
	}

	for _, tc := range cases {
		t.Run(tc.code, func(t *testing.T) {
			cause := fmt.Errorf("vendor failure")
			pe := Wrap(Classify(tc.kind, cause), map[string]string{"tool": "merge-pdf"})

			assert.Equal(t, tc.code, pe.Code)
			assert.Equal(t, tc.recoverable, pe.Recoverable)
			assert.Equal(t, "merge-pdf", pe.Context["tool"])
			assert.ErrorIs(t, pe, cause)
		})
	}
}

func TestWrapDeadline(t *testing.T) {
	pe := Wrap(fmt.Errorf("stage: %w", context.DeadlineExceeded), nil)

	assert.Equal(t, CodeTimeout, pe.Code)
	assert.True(t, pe.Recoverable)
}

func TestWrapCancelled(t *testing.T) {
	pe := Wrap(context.Canceled, nil)

	assert.Equal(t, CodeProcessing, pe.Code)
	assert.Contains(t, pe.Message, "cancelled")
}

func TestWrapPassesThroughProcessingError(t *testing.T) {
	orig := NewValidation("File type text/plain not supported", nil)
	pe := Wrap(orig, map[string]string{"tool": "merge-pdf"})

	assert.Same(t, orig, pe)
}

func TestWrapGenericError(t *testing.T) {
	pe := Wrap(errors.New("something odd"), nil)

	assert.Equal(t, CodeProcessing, pe.Code)
	assert.True(t, pe.Recoverable)
	// User-facing message never leaks the internal error text.
	assert.NotContains(t, pe.Message, "something odd")
}

func TestNewToolNotFound(t *testing.T) {
	pe := NewToolNotFound("rotate-pdf")

	assert.Equal(t, CodeToolNotFound, pe.Code)
	assert.False(t, pe.Recoverable)
	assert.Equal(t, "rotate-pdf", pe.Context["tool"])
}

func TestNewValidationRecoverable(t *testing.T) {
	pe := NewValidation("File size exceeds maximum limit of 1024 bytes", map[string]string{"file": "big.pdf"})

	assert.Equal(t, CodeValidation, pe.Code)
	assert.True(t, pe.Recoverable)
	assert.Equal(t, "big.pdf", pe.Context["file"])
}
