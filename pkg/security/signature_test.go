package security

import (
	"strings"
	"testing"

	"github.com/DrawzeoBarrela/pix-pocket-brasil/internal/domain"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestSignatureVerifier(t *testing.T) {
	body := []byte(`{"data":{"id":"987"},"type":"payment"}`)
	valid := ExpectedSignature(body, "s3cret")

	tests := []struct {
		name      string
		secret    string
		signature string
		wantErr   bool
	}{
		{name: "no signature skips verification", secret: "s3cret"},
		{name: "bare digest", secret: "s3cret", signature: valid},
		{name: "ts and v1 header", secret: "s3cret", signature: "ts=1700000000,v1=" + valid},
		{name: "uppercase digest", secret: "s3cret", signature: "v1=" + strings.ToUpper(valid)},
		{name: "wrong digest", secret: "s3cret", signature: "v1=deadbeef", wantErr: true},
		{name: "digest for other secret", secret: "s3cret", signature: ExpectedSignature(body, "other"), wantErr: true},
		{name: "signature without secret is accepted", signature: "v1=anything"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewSignatureVerifier(tt.secret, zap.NewNop())
			err := v.Verify(tt.signature, body)
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrInvalidSignature)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestSignatureVerifierWarnsInDegradedMode(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	v := NewSignatureVerifier("", zap.New(core))

	assert.NoError(t, v.Verify("v1=abc", []byte(`{}`)))
	assert.Equal(t, 1, logs.Len())
}
