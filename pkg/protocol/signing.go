package protocol

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// signingPayload is the subset of Invocation fields that are signed.
// A dedicated struct ensures deterministic JSON marshal order.
type signingPayload struct {
	Command string          `json:"command"`
	Payload json.RawMessage `json:"payload"`
	Source  string          `json:"source"`
}

func canonicalInvocation(inv *Invocation) ([]byte, error) {
	payload := inv.Payload
	if len(payload) == 0 {
		payload = json.RawMessage("null")
	}
	return json.Marshal(signingPayload{
		Command: inv.Command,
		Payload: payload,
		Source:  inv.Source,
	})
}

// SignInvocation computes an HMAC-SHA256 signature and sets inv.Signature.
// If secret is empty, the invocation is left unsigned.
func SignInvocation(inv *Invocation, secret string) error {
	if secret == "" {
		return nil
	}
	canonical, err := canonicalInvocation(inv)
	if err != nil {
		return err
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(canonical)
	inv.Signature = hex.EncodeToString(mac.Sum(nil))
	return nil
}

// VerifyInvocation checks the HMAC-SHA256 signature on an invocation.
// If secret is empty, verification is skipped (returns true).
// If the invocation has no signature but a secret is configured, returns false.
func VerifyInvocation(inv *Invocation, secret string) bool {
	if secret == "" {
		return true
	}
	if inv.Signature == "" {
		return false
	}
	canonical, err := canonicalInvocation(inv)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(canonical)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(inv.Signature))
}
