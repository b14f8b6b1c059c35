package dbadmin

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T, handler http.HandlerFunc) *HTTPClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewHTTPClient(HTTPClientConfig{Endpoint: srv.URL})
}

func TestDescribeInstance(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/instances/api-db", r.URL.Path)
		fmt.Fprint(w, `{"instance_id": "api-db", "instance_class": "db.t3.large", "status": "available"}`)
	})

	class, err := client.DescribeInstance(context.Background(), "api-db")
	require.NoError(t, err)
	assert.Equal(t, "db.t3.large", class)
}

func TestDescribeInstance_NotFound(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := client.DescribeInstance(context.Background(), "ghost-db")
	assert.ErrorIs(t, err, ErrInstanceNotFound)
}

func TestModifyInstance(t *testing.T) {
	var got map[string]string
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/instances/api-db", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	})

	require.NoError(t, client.ModifyInstance(context.Background(), "api-db", "db.r5.large"))
	assert.Equal(t, "db.r5.large", got["instance_class"])
}

func TestModifyInstance_ServerError(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	err := client.ModifyInstance(context.Background(), "api-db", "db.r5.large")
	assert.ErrorIs(t, err, ErrRequestFailed)
}
