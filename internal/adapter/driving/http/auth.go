package httphandler

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strings"
)

// cronSecretOK checks the sync trigger auth: a bearer token carrying the cron
// secret, or, outside production, a cron_secret query parameter so the
// endpoints can be poked from a browser during development.
func (h *Handler) cronSecretOK(r *http.Request) bool {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		token := strings.TrimPrefix(auth, "Bearer ")
		return secretsEqual(token, h.cronSecret)
	}

	if !h.production {
		if token := r.URL.Query().Get("cron_secret"); token != "" {
			return secretsEqual(token, h.cronSecret)
		}
	}

	return false
}

// ciTokenOK checks the CI ingestion bearer token.
func (h *Handler) ciTokenOK(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return false
	}
	return secretsEqual(strings.TrimPrefix(auth, "Bearer "), h.ciIngestToken)
}

// webhookSignatureOK verifies the x-vercel-signature header against the hex
// HMAC-SHA1 of the raw request body.
func (h *Handler) webhookSignatureOK(body []byte, signature string) bool {
	if signature == "" {
		return false
	}

	mac := hmac.New(sha1.New, []byte(h.webhookSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	return secretsEqual(signature, expected)
}

// secretsEqual compares two secrets in constant time.
func secretsEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
