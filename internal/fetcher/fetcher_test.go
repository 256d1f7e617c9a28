package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ralt/releasetap/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func descriptorAt(url string) *models.Descriptor {
	return &models.Descriptor{
		Name:     "flux-build",
		Version:  "3.0.10",
		Platform: models.Platform{OS: "linux", Arch: "amd64", Bits: 64},
		URL:      url,
	}
}

func TestFetchReturnsBody(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Write([]byte("artifact"))
	}))
	defer srv.Close()

	f := New(WithUserAgent("test-agent"))
	data, err := f.Fetch(context.Background(), descriptorAt(srv.URL+"/flux-build.tar.gz"))
	require.NoError(t, err)
	assert.Equal(t, "artifact", string(data))
	assert.Equal(t, "test-agent", gotUA)
}

func TestFetchNotFound(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := New().Fetch(context.Background(), descriptorAt(srv.URL+"/gone.tar.gz"))
	require.Error(t, err)
	assert.True(t, models.IsErrorType(err, models.ErrNotFound))
}

func TestFetchServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := New().Fetch(context.Background(), descriptorAt(srv.URL))
	assert.True(t, models.IsErrorType(err, models.ErrNetwork))
}

func TestFetchTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New().Fetch(context.Background(), descriptorAt(url+"/flux-build.tar.gz"))
	assert.True(t, models.IsErrorType(err, models.ErrNetwork))
}

func TestFetchMakesSingleAttempt(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := New().Fetch(context.Background(), descriptorAt(srv.URL))
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestFetchEnforcesMaxSize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(make([]byte, 128))
	}))
	defer srv.Close()

	_, err := New(WithMaxSize(64)).Fetch(context.Background(), descriptorAt(srv.URL))
	assert.True(t, models.IsErrorType(err, models.ErrNetwork))
}

func TestFetchHonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("late"))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New().Fetch(ctx, descriptorAt(srv.URL))
	assert.True(t, models.IsErrorType(err, models.ErrNetwork))
}
