package upstream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	apperrors "ebird-proxy/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestClient_Fetch(t *testing.T) {
	var gotToken, gotAccept, gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.Header.Get("X-eBirdApiToken")
		gotAccept = r.Header.Get("Accept")
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"speciesCode":"amecro","comName":"American Crow"}]`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "secret-key", 5*time.Second, zap.NewNop())

	payload, err := client.Fetch(context.Background(), "/data/obs/US-MA/recent")
	require.NoError(t, err)

	assert.JSONEq(t, `[{"speciesCode":"amecro","comName":"American Crow"}]`, string(payload))
	assert.Equal(t, "secret-key", gotToken, "credential travels in the dedicated header")
	assert.Equal(t, "application/json", gotAccept)
	assert.Equal(t, "/data/obs/US-MA/recent", gotPath)
}

func TestClient_Fetch_UpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"errors":[{"status":"404 Not Found"}]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "secret-key", 5*time.Second, zap.NewNop())

	_, err := client.Fetch(context.Background(), "/data/obs/XX-XX/recent")
	require.Error(t, err)

	pe := apperrors.GetProxyError(err)
	require.NotNil(t, pe)
	assert.Equal(t, apperrors.KindUpstreamError, pe.Kind)
	assert.Equal(t, http.StatusNotFound, pe.UpstreamStatus)
	assert.Equal(t, `{"errors":[{"status":"404 Not Found"}]}`, string(pe.UpstreamBody))
}

func TestClient_Fetch_MalformedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>not json</html>`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "secret-key", 5*time.Second, zap.NewNop())

	_, err := client.Fetch(context.Background(), "/data/obs/US-MA/recent")
	assert.True(t, apperrors.IsKind(err, apperrors.KindUpstreamMalformed))
}

func TestClient_Fetch_TransportFailure(t *testing.T) {
	// Server is closed before the call, so the dial fails.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := NewClient(server.URL, "secret-key", 5*time.Second, zap.NewNop())

	_, err := client.Fetch(context.Background(), "/data/obs/US-MA/recent")
	assert.True(t, apperrors.IsKind(err, apperrors.KindUpstreamUnavailable))
}

func TestClient_Fetch_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer func() {
		close(release)
		server.Close()
	}()

	client := NewClient(server.URL, "secret-key", 50*time.Millisecond, zap.NewNop())

	start := time.Now()
	_, err := client.Fetch(context.Background(), "/data/obs/US-MA/recent")

	assert.True(t, apperrors.IsKind(err, apperrors.KindUpstreamUnavailable))
	assert.Less(t, time.Since(start), time.Second, "timeout bounds the call")
}
