package whatsapp

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

func TestClient_Send(t *testing.T) {
	var (
		gotPath string
		gotAuth string
		gotBody map[string]interface{}
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"messages":[{"id":"wamid.out"}]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", "10987", "secret", time.Second)
	ok := c.Send(context.Background(), "6281111", "✅ makan 25000 dicatat")

	require.True(t, ok)
	assert.Equal(t, "/10987/messages", gotPath)
	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, "whatsapp", gotBody["messaging_product"])
	assert.Equal(t, "6281111", gotBody["to"])
	assert.Equal(t, "text", gotBody["type"])
	assert.Equal(t, map[string]interface{}{"body": "✅ makan 25000 dicatat"}, gotBody["text"])
}

func TestClient_SendFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "non-2xx",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error":{"message":"Invalid OAuth access token"}}`))
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
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			c := NewClient(srv.URL, "10987", "secret", 50*time.Millisecond)
			assert.False(t, c.Send(context.Background(), "6281111", "hi"))
		})
	}
}

func TestWebhookPayload_TextMessages(t *testing.T) {
	raw := `{
		"object": "whatsapp_business_account",
		"entry": [{
			"id": "WABA",
			"changes": [{
				"field": "messages",
				"value": {
					"messaging_product": "whatsapp",
					"messages": [
						{"from": "6281111", "id": "wamid.1", "type": "text", "text": {"body": "makan 25000"}},
						{"from": "6281111", "id": "wamid.2", "type": "image"},
						{"from": "6282222", "id": "wamid.3", "type": "text", "text": {"body": "/summary"}}
					]
				}
			}, {
				"field": "messages",
				"value": {"statuses": [{"id": "wamid.out", "status": "delivered"}]}
			}]
		}]
	}`

	var p WebhookPayload
	require.NoError(t, json.Unmarshal([]byte(raw), &p))

	assert.Equal(t, []Inbound{
		{Sender: "6281111", MessageID: "wamid.1", Text: "makan 25000"},
		{Sender: "6282222", MessageID: "wamid.3", Text: "/summary"},
	}, p.TextMessages())
}
