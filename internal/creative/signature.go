package creative

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// signRequest computes the Wiro request signature:
// hex(HMAC-SHA256(key = apiKey, message = apiSecret + nonce)). The nonce is
// the decimal string of the current Unix time in seconds. The construction
// must match the vendor bit-for-bit.
func signRequest(apiSecret, nonce, apiKey string) string {
	mac := hmac.New(sha256.New, []byte(apiKey))
	mac.Write([]byte(apiSecret + nonce))
	return hex.EncodeToString(mac.Sum(nil))
}
