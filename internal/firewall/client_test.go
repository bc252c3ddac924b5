package firewall

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_CreatePeer(t *testing.T) {
	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/wireguard/client", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "key-1", r.Header.Get("X-API-Key"))
		assert.Equal(t, "key-1 sec-1", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"status":"ok","data":{"id":7}}`))
	}))
	defer server.Close()

	c := New(Options{BaseURL: server.URL + "/api/v1/", APIKey: "key-1", APISecret: "sec-1"})
	id, err := c.CreatePeer(context.Background(), "PUB", "10.0.0.100", "jdoe-JDoe")
	require.NoError(t, err)
	assert.Equal(t, "7", id)

	assert.Equal(t, true, got["enabled"])
	assert.Equal(t, "PUB", got["publickey"])
	assert.Equal(t, "10.0.0.100/32", got["tunneladdress"])
	assert.Equal(t, "10.0.0.100/32", got["allowedips"])
	assert.Equal(t, "jdoe-JDoe", got["description"])
}

func TestClient_CreatePeer_IDVariants(t *testing.T) {
	cases := map[string]struct {
		body     string
		want     string
		generate bool
	}{
		"string id": {body: `{"data":{"id":"peer-9"}}`, want: "peer-9"},
		"no id":     {body: `{"data":{}}`, generate: true},
		"no data":   {body: `{"status":"ok"}`, generate: true},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(tc.body))
			}))
			defer server.Close()

			id, err := New(Options{BaseURL: server.URL}).CreatePeer(context.Background(), "PUB", "10.0.0.100", "d")
			require.NoError(t, err)
			if tc.generate {
				assert.Len(t, id, 36)
			} else {
				assert.Equal(t, tc.want, id)
			}
		})
	}
}

func TestClient_CreatePeer_MalformedBody(t *testing.T) {
	bodies := map[string]string{
		"empty":          ``,
		"garbage":        `not json`,
		"html page":      `<html>login required</html>`,
		"json array":     `[1,2]`,
		"json null":      `null`,
		"data string":    `{"data":"x"}`,
		"data null":      `{"data":null}`,
		"data list":      `{"data":[{"id":1}]}`,
		"empty id":       `{"data":{"id":""}}`,
		"null id":        `{"data":{"id":null}}`,
		"truncated json": `{"data":{"id":`,
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(body))
			}))
			defer server.Close()

			id, err := New(Options{BaseURL: server.URL}).CreatePeer(context.Background(), "PUB", "10.0.0.100", "d")
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrBadResponse))
			assert.Empty(t, id)
		})
	}
}

func TestClient_CreatePeer_NonOK(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "invalid publickey", http.StatusBadRequest)
	}))
	defer server.Close()

	_, err := New(Options{BaseURL: server.URL}).CreatePeer(context.Background(), "PUB", "10.0.0.100", "d")
	require.Error(t, err)
	var serr *StatusError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, http.StatusBadRequest, serr.Code)
	assert.Equal(t, "invalid publickey", serr.Body)
}

func TestClient_DeletePeer(t *testing.T) {
	var path string
	status := http.StatusOK
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		path = r.URL.EscapedPath()
		w.WriteHeader(status)
	}))
	defer server.Close()

	c := New(Options{BaseURL: server.URL, APIKey: "k"})
	require.NoError(t, c.DeletePeer(context.Background(), "12"))
	assert.Equal(t, "/wireguard/client/12", path)

	require.NoError(t, c.DeletePeer(context.Background(), "a/b"))
	assert.Equal(t, "/wireguard/client/a%2Fb", path)

	status = http.StatusNotFound
	assert.Error(t, c.DeletePeer(context.Background(), "12"))
}

func TestClient_TLSVerification(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	strict := New(Options{BaseURL: server.URL})
	assert.Error(t, strict.DeletePeer(context.Background(), "1"))

	insecure := New(Options{BaseURL: server.URL, InsecureSkipVerify: true})
	assert.NoError(t, insecure.DeletePeer(context.Background(), "1"))
}

func TestClient_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	c := New(Options{BaseURL: server.URL, Timeout: 50 * time.Millisecond})
	start := time.Now()
	_, err := c.CreatePeer(context.Background(), "PUB", "10.0.0.100", "d")
	assert.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestClient_TransportError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := New(Options{BaseURL: url}).CreatePeer(context.Background(), "PUB", "10.0.0.100", "d")
	assert.Error(t, err)
}
