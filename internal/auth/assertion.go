package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// DefaultAssertionTTL is the maximum age of an identity assertion's auth_date.
const DefaultAssertionTTL = 5 * time.Minute

var ErrAssertionSecretMissing = errors.New("assertion secret is not configured")

// VerifyIdentityAssertion checks an identity assertion issued by the external
// authentication service. The assertion is a query string carrying username,
// auth_date and hash, where hash is the hex HMAC-SHA256 under secret of the
// other fields as sorted "key=value" lines.
func VerifyIdentityAssertion(assertion, secret string, maxAge time.Duration) (url.Values, error) {
	if secret == "" {
		return nil, ErrAssertionSecretMissing
	}
	if maxAge <= 0 {
		maxAge = DefaultAssertionTTL
	}

	vals, err := url.ParseQuery(assertion)
	if err != nil {
		return nil, fmt.Errorf("invalid assertion format: %w", err)
	}

	receivedHash := vals.Get("hash")
	if receivedHash == "" {
		return nil, fmt.Errorf("hash is missing from assertion")
	}
	if vals.Get("username") == "" {
		return nil, fmt.Errorf("username is missing from assertion")
	}

	authDateStr := vals.Get("auth_date")
	if authDateStr == "" {
		return nil, fmt.Errorf("auth_date is missing from assertion")
	}
	authDateUnix, err := strconv.ParseInt(authDateStr, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("auth_date is not a valid unix timestamp")
	}
	authDate := time.Unix(authDateUnix, 0)
	if time.Since(authDate) > maxAge {
		return nil, fmt.Errorf("assertion expired: auth_date is %s old (max %s)", time.Since(authDate).Round(time.Second), maxAge)
	}
	// one minute of clock skew
	if authDate.After(time.Now().Add(time.Minute)) {
		return nil, fmt.Errorf("auth_date is in the future")
	}

	expected := assertionHash(secret, vals)
	got, err := hex.DecodeString(receivedHash)
	if err != nil || !hmac.Equal(got, expected) {
		return nil, fmt.Errorf("invalid hash: assertion integrity check failed")
	}
	return vals, nil
}

// SignIdentityAssertion builds an assertion for username dated at.
func SignIdentityAssertion(secret, username string, at time.Time) string {
	vals := url.Values{}
	vals.Set("username", username)
	vals.Set("auth_date", strconv.FormatInt(at.Unix(), 10))
	vals.Set("hash", hex.EncodeToString(assertionHash(secret, vals)))
	return vals.Encode()
}

func assertionHash(secret string, vals url.Values) []byte {
	var pairs []string
	for key, values := range vals {
		if key == "hash" {
			continue
		}
		for _, v := range values {
			pairs = append(pairs, key+"="+v)
		}
	}
	sort.Strings(pairs)

	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(strings.Join(pairs, "\n")))
	return h.Sum(nil)
}
