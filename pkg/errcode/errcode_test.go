package errcode

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestIs(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target *Error
		want   bool
	}{
		{name: "nil", err: nil, target: ErrInputIllegal, want: false},
		{name: "direct", err: ErrInputIllegal, target: ErrInputIllegal, want: true},
		{name: "wrapped", err: errors.Wrap(ErrEvidenceNotFound, "get info"), target: ErrEvidenceNotFound, want: true},
		{name: "double wrapped", err: errors.Wrapf(errors.WithStack(ErrSignatureInvalid), "verify %s", "x"), target: ErrSignatureInvalid, want: true},
		{name: "other code", err: errors.Wrap(ErrSignatureBroken, "verify"), target: ErrSignatureInvalid, want: false},
		{name: "plain error", err: errors.New("boom"), target: ErrLedgerCallFailure, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Is(tt.err, tt.target))
		})
	}
}

func TestCode(t *testing.T) {
	require.Equal(t, ErrStructuralMismatch.Code, Code(errors.Wrap(ErrStructuralMismatch, "redact")))
	require.Equal(t, ErrCredentialError.Code, Code(errors.New("boom")))
}
