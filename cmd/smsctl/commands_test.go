package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/sms-router/internal/http/middleware"
	"github.com/wolfman30/sms-router/internal/messaging"
	"github.com/wolfman30/sms-router/internal/processor"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestSignMatchesComputeSignature(t *testing.T) {
	out, err := run(t, "sign", "--url", "https://sms.example.com/hook", "--secret", "s3cret", "From=+15550001111", "Body=hi")
	require.NoError(t, err)

	want := messaging.ComputeSignature("s3cret", "https://sms.example.com/hook", url.Values{
		"From": {"+15550001111"},
		"Body": {"hi"},
	})
	assert.Equal(t, want, strings.TrimSpace(out))
}

func TestSignRejectsMalformedParam(t *testing.T) {
	_, err := run(t, "sign", "--url", "https://sms.example.com/hook", "--secret", "s", "novalue")
	assert.Error(t, err)
}

func TestClassifyPrintsJSON(t *testing.T) {
	out, err := run(t, "classify", "FREE MONEY! CLICK NOW!!!")
	require.NoError(t, err)

	var res processor.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.True(t, res.IsSpam)
	assert.Greater(t, res.SpamScore, processor.SpamThreshold)
}

func TestClassifyUsesPolicyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte("trigger_words: [pineapple]\n"), 0o600))

	out, err := run(t, "classify", "--policy", path, "PINEAPPLE SALE!!!")
	require.NoError(t, err)

	var res processor.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.True(t, res.IsSpam)
}

func TestTokenIsAcceptedByAdminJWT(t *testing.T) {
	out, err := run(t, "token", "--secret", "admin-secret", "--subject", "ops")
	require.NoError(t, err)
	token := strings.TrimSpace(out)

	claims := jwt.RegisteredClaims{}
	_, err = jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return []byte("admin-secret"), nil
	}, jwt.WithAudience(middleware.AdminAudience))
	require.NoError(t, err)
	assert.Equal(t, "ops", claims.Subject)
}

func TestTokenRequiresSecret(t *testing.T) {
	t.Setenv("ADMIN_JWT_SECRET", "")
	_, err := run(t, "token", "--secret", "")
	assert.Error(t, err)
}

func TestSendPostsSignedForm(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !messaging.ValidateSignature(r, "s3cret", srv.URL+"/hook") {
			http.Error(w, "bad signature", http.StatusUnauthorized)
			return
		}
		assert.Equal(t, "+15550001111", r.PostForm.Get("From"))
		assert.True(t, strings.HasPrefix(r.PostForm.Get("MessageSid"), "SMcli"))
		w.Header().Set("Content-Type", "application/xml")
		_, _ = w.Write([]byte("<Response><Message>You said: hi</Message></Response>"))
	}))
	defer srv.Close()

	out, err := run(t, "send", "--url", srv.URL+"/hook", "--secret", "s3cret", "--from", "+15550001111", "--body", "hi")
	require.NoError(t, err)
	assert.Contains(t, out, "You said: hi")

	_, err = run(t, "send", "--url", srv.URL+"/hook", "--secret", "wrong", "--from", "+15550001111", "--body", "hi")
	assert.Error(t, err)
}
