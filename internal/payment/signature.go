package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"log/slog"

	errors "github.com/emmanuelnurit/cawl-gateway/internal"
)

// SignatureVerifier authenticates webhook payloads with an HMAC-SHA256 over
// the raw request body. The secret is injected at construction; there is no
// ambient configuration lookup.
type SignatureVerifier struct {
	secret     string
	production bool
	logger     *slog.Logger
}

func NewSignatureVerifier(secret string, production bool, logger *slog.Logger) *SignatureVerifier {
	return &SignatureVerifier{
		secret:     secret,
		production: production,
		logger:     logger,
	}
}

// Verify checks the signature header against the raw body. An empty
// configured secret rejects everything in production; outside production it
// accepts with a warning so test environments without a secret keep working.
// A missing signature header is always rejected.
func (v *SignatureVerifier) Verify(rawBody []byte, signatureHeader string) error {
	if v.secret == "" {
		if v.production {
			v.logger.Error("webhook rejected: no webhook secret configured")
			return errors.ErrInvalidSignature
		}
		v.logger.Warn("webhook signature not verified: no webhook secret configured")
		return nil
	}

	if signatureHeader == "" {
		v.logger.Warn("webhook rejected: missing signature header")
		return errors.ErrInvalidSignature
	}

	mac := hmac.New(sha256.New, []byte(v.secret))
	mac.Write(rawBody)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(signatureHeader)) {
		v.logger.Warn("webhook rejected: signature mismatch")
		return errors.ErrInvalidSignature
	}

	return nil
}
