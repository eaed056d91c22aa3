package httptransport_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/aretw0/slotflow/pkg/adapters/httptransport"
	"github.com/aretw0/slotflow/pkg/httpcall"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransport_Send(t *testing.T) {
	var got httptransport.Payload
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	tr := httptransport.New(srv.URL, httptransport.WithToken("secret"))
	require.NoError(t, tr.Send(context.Background(), "919876543210", "Which vehicle?"))

	assert.Equal(t, "Bearer secret", auth)
	assert.Equal(t, httptransport.Payload{To: "919876543210", Type: "text", Text: "Which vehicle?"}, got)
}

func TestTransport_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 2 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	tr := httptransport.New(srv.URL, httptransport.WithRetry(3, 0))
	require.NoError(t, tr.Send(context.Background(), "c1", "hi"))
	assert.Equal(t, int32(2), calls.Load())
}

func TestTransport_ClientErrorIsFinal(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	tr := httptransport.New(srv.URL, httptransport.WithRetry(3, 0))
	err := tr.Send(context.Background(), "c1", "hi")
	assert.ErrorIs(t, err, httpcall.ErrClient)
	assert.Equal(t, int32(1), calls.Load())
}
