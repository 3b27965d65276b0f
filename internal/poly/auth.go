package poly

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Credentials hold the CLOB API key material for private endpoints. Public
// endpoints work with the zero value.
type Credentials struct {
	Address       string
	APIKey        string
	APISecret     string
	APIPassphrase string
}

// CredentialsFromEnv reads the POLYMARKET_* variables. Load a .env file with
// godotenv before calling when credentials live there.
func CredentialsFromEnv() Credentials {
	return Credentials{
		Address:       os.Getenv("POLYMARKET_ADDRESS"),
		APIKey:        os.Getenv("POLYMARKET_API_KEY"),
		APISecret:     os.Getenv("POLYMARKET_API_SECRET"),
		APIPassphrase: os.Getenv("POLYMARKET_API_PASSPHRASE"),
	}
}

// Complete reports whether the credentials can sign private requests.
func (c Credentials) Complete() bool {
	return c.Address != "" && c.APIKey != "" && c.APISecret != "" && c.APIPassphrase != ""
}

// l2Headers signs a private CLOB request. The signature is HMAC-SHA256 over
// the canonical string <timestamp><METHOD><path><body>, timestamp in unix
// milliseconds and path excluding the host. body must be the exact compact
// JSON sent on the wire, or empty for GETs.
func (c Credentials) l2Headers(method, requestPath string, body []byte, at time.Time) (map[string]string, error) {
	if !c.Complete() {
		return nil, fmt.Errorf("private endpoint %s requires api credentials", requestPath)
	}
	ts := strconv.FormatInt(at.UnixMilli(), 10)
	msg := ts + strings.ToUpper(method) + requestPath + string(body)
	mac := hmac.New(sha256.New, []byte(c.APISecret))
	mac.Write([]byte(msg))
	return map[string]string{
		"POLY_ADDRESS":    c.Address,
		"POLY_SIGNATURE":  hex.EncodeToString(mac.Sum(nil)),
		"POLY_TIMESTAMP":  ts,
		"POLY_API_KEY":    c.APIKey,
		"POLY_PASSPHRASE": c.APIPassphrase,
	}, nil
}
