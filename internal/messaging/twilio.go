package messaging

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
)

// SignatureHeader carries the webhook signature.
const SignatureHeader = "X-Twilio-Signature"

// MaxMessageLength is the longest body Twilio accepts in one reply message.
const MaxMessageLength = 1600

// truncateRunes cuts s to at most n runes without splitting a character.
func truncateRunes(s string, n int) string {
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

// ValidateSignature reports whether r carries a valid signature for
// webhookURL. It parses the form as a side effect.
func ValidateSignature(r *http.Request, secret, webhookURL string) bool {
	signature := r.Header.Get(SignatureHeader)
	if signature == "" {
		return false
	}
	if err := r.ParseForm(); err != nil {
		return false
	}
	expected := ComputeSignature(secret, webhookURL, r.PostForm)
	return hmac.Equal([]byte(signature), []byte(expected))
}

// ComputeSignature returns base64(HMAC-SHA256(secret, url + sorted params)).
func ComputeSignature(secret, webhookURL string, params url.Values) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(signaturePayload(webhookURL, params)))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

// signaturePayload is the URL followed by each key and value, keys sorted.
func signaturePayload(webhookURL string, params url.Values) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var payload strings.Builder
	payload.WriteString(webhookURL)
	for _, key := range keys {
		for _, value := range params[key] {
			payload.WriteString(key)
			payload.WriteString(value)
		}
	}
	return payload.String()
}

// WebhookRequest is the subset of the inbound SMS form the router reads.
type WebhookRequest struct {
	MessageSid string
	AccountSid string
	From       string
	To         string
	Body       string
	NumMedia   string
}

// ParseWebhook reads the inbound SMS form.
func ParseWebhook(r *http.Request) (*WebhookRequest, error) {
	if err := r.ParseForm(); err != nil {
		return nil, fmt.Errorf("messaging: parse form: %w", err)
	}
	return &WebhookRequest{
		MessageSid: strings.TrimSpace(r.FormValue("MessageSid")),
		AccountSid: strings.TrimSpace(r.FormValue("AccountSid")),
		From:       strings.TrimSpace(r.FormValue("From")),
		To:         strings.TrimSpace(r.FormValue("To")),
		Body:       r.FormValue("Body"),
		NumMedia:   r.FormValue("NumMedia"),
	}, nil
}
