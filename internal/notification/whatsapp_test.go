package notification

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWhatsAppProvider_Send(t *testing.T) {
	var got messageBody
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/messages", r.URL.Path)
		assert.Equal(t, "Bearer secret-token", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	p := NewWhatsAppProvider(server.URL+"/", "secret-token", time.Second)

	assert.True(t, p.Send(context.Background(), "+51999888777", "hola"))
	assert.Equal(t, "+51999888777", got.To)
	assert.Equal(t, "hola", got.Body)
}

func TestWhatsAppProvider_SendToGroup(t *testing.T) {
	var raw map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/groups/cobranzas 1/messages", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	p := NewWhatsAppProvider(server.URL, "token", time.Second)

	assert.True(t, p.SendToGroup(context.Background(), "cobranzas 1", "resumen"))
	assert.Equal(t, "resumen", raw["body"])
	assert.NotContains(t, raw, "to")
}

func TestWhatsAppProvider_Failures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(`{"error":"boom"}`))
			},
		},
		{
			name: "unauthorized",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
			},
		},
		{
			name: "timeout",
			handler: func(w http.ResponseWriter, r *http.Request) {
				time.Sleep(200 * time.Millisecond)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			p := NewWhatsAppProvider(server.URL, "token", 50*time.Millisecond)
			assert.False(t, p.Send(context.Background(), "+51999888777", "hola"))
			assert.False(t, p.SendToGroup(context.Background(), "g1", "hola"))
		})
	}
}

func TestWhatsAppProvider_NotConfigured(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer server.Close()

	noToken := NewWhatsAppProvider(server.URL, "", time.Second)
	noURL := NewWhatsAppProvider("", "token", time.Second)

	assert.False(t, noToken.Configured())
	assert.False(t, noToken.Send(context.Background(), "+51999888777", "hola"))
	assert.False(t, noURL.SendToGroup(context.Background(), "g1", "hola"))
	assert.Zero(t, calls)
}
