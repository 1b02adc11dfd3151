package agent

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPClientComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		var req agentRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, int64(7), req.UserID)
		assert.Equal(t, "what's up", req.Message)
		_ = json.NewEncoder(w).Encode(agentResponse{Reply: "not much"})
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "secret", srv.Client())
	reply, err := c.Complete(context.Background(), 7, "what's up")
	require.NoError(t, err)
	assert.Equal(t, "not much", reply)
}

func TestHTTPClientErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    string
	}{
		{"status", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusBadGateway) }, "unexpected status 502"},
		{"bad json", func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("{")) }, "decode response"},
		{"agent error", func(w http.ResponseWriter, _ *http.Request) {
			_ = json.NewEncoder(w).Encode(agentResponse{Error: "overloaded"})
		}, "overloaded"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()
			_, err := NewHTTPClient(srv.URL, "", nil).Complete(context.Background(), 1, "x")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestHTTPClientRequiresEndpoint(t *testing.T) {
	_, err := NewHTTPClient(" ", "", nil).Complete(context.Background(), 1, "x")
	assert.Error(t, err)
}
