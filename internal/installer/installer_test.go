package installer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/ralt/releasetap/internal/cache"
	"github.com/ralt/releasetap/internal/descriptor"
	"github.com/ralt/releasetap/internal/fetcher"
	"github.com/ralt/releasetap/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var linuxAmd64 = models.Platform{OS: "linux", Arch: "amd64", Bits: 64}

// releaseServer serves artifacts under /download/v{version}/ and counts hits
type releaseServer struct {
	*httptest.Server
	artifacts map[string][]byte
	hits      atomic.Int32
}

func newReleaseServer(t *testing.T) *releaseServer {
	rs := &releaseServer{artifacts: make(map[string][]byte)}
	rs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rs.hits.Add(1)
		data, ok := rs.artifacts[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Write(data)
	}))
	t.Cleanup(rs.Close)
	return rs
}

// publish registers an artifact and returns its descriptor
func (rs *releaseServer) publish(t *testing.T, table *descriptor.Table, version string, p models.Platform, data []byte) {
	t.Helper()
	url := descriptor.ArtifactURL(rs.URL, "flux-build", version, p)
	rs.artifacts[strings.TrimPrefix(url, rs.URL)] = data

	d := descriptorFor(url, data)
	d.Version = version
	d.Platform = p
	require.NoError(t, table.Add(*d))
}

func requireShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script binaries are not executable on windows")
	}
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestRunEndToEnd(t *testing.T) {
	requireShell(t)

	rs := newReleaseServer(t)
	table := descriptor.NewTable()
	rs.publish(t, table, "3.0.10", linuxAmd64, packArtifact(t, okScript))

	dir := t.TempDir()
	inst := New(table, fetcher.New())

	d, err := inst.Resolve("3.0.10", linuxAmd64)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(d.URL, "/download/v3.0.10/flux-build_3.0.10_linux_amd64.tar.gz"))

	result, err := inst.Run(context.Background(), Request{Version: "3.0.10", Platform: linuxAmd64, TargetDir: dir})
	require.NoError(t, err)
	assert.Equal(t, StateInstalled, result.State)
	assert.Equal(t, filepath.Join(dir, "flux-build"), result.Path)
	assert.False(t, result.FromCache)

	// The installed binary answers -h with exit code 0
	require.NoError(t, exec.Command(result.Path, "-h").Run())
}

func TestRunUnsupportedPlatform(t *testing.T) {
	rs := newReleaseServer(t)
	table := descriptor.NewTable()
	rs.publish(t, table, "3.0.10", linuxAmd64, packArtifact(t, okScript))

	arm32 := models.Platform{OS: "linux", Arch: "arm", Bits: 32}
	result, err := New(table, fetcher.New()).Run(context.Background(), Request{Version: "3.0.10", Platform: arm32, TargetDir: t.TempDir()})
	require.Error(t, err)
	assert.True(t, models.IsErrorType(err, models.ErrNotSupported))
	assert.Equal(t, StateUnresolved, result.State)
	assert.Equal(t, int32(0), rs.hits.Load())
}

func TestRunArtifactRemoved(t *testing.T) {
	rs := newReleaseServer(t)
	table := descriptor.NewTable()
	rs.publish(t, table, "3.0.10", linuxAmd64, packArtifact(t, okScript))
	rs.artifacts = map[string][]byte{}

	result, err := New(table, fetcher.New()).Run(context.Background(), Request{Version: "3.0.10", Platform: linuxAmd64, TargetDir: t.TempDir()})
	require.Error(t, err)
	assert.True(t, models.IsErrorType(err, models.ErrNotFound))
	assert.Equal(t, StateResolved, result.State)
}

func TestRunFailsClosedOnIntegrityError(t *testing.T) {
	rs := newReleaseServer(t)
	table := descriptor.NewTable()
	data := packArtifact(t, okScript)
	rs.publish(t, table, "3.0.10", linuxAmd64, data)

	// Serve a tampered artifact at the published URL
	for path := range rs.artifacts {
		tampered := append([]byte{}, data...)
		tampered[len(tampered)-1] ^= 0x01
		rs.artifacts[path] = tampered
	}

	dir := t.TempDir()
	result, err := New(table, fetcher.New()).Run(context.Background(), Request{Version: "3.0.10", Platform: linuxAmd64, TargetDir: dir})
	require.Error(t, err)
	assert.True(t, models.IsErrorType(err, models.ErrIntegrity))
	assert.Equal(t, StateFetched, result.State)
	assert.Empty(t, dirListing(t, dir))
}

func TestRunSmokeTestFailure(t *testing.T) {
	requireShell(t)

	rs := newReleaseServer(t)
	table := descriptor.NewTable()
	rs.publish(t, table, "3.0.10", linuxAmd64, packArtifact(t, "#!/bin/sh\necho broken >&2\nexit 3\n"))

	result, err := New(table, fetcher.New()).Run(context.Background(), Request{Version: "3.0.10", Platform: linuxAmd64, TargetDir: t.TempDir()})
	require.Error(t, err)
	assert.True(t, models.IsErrorType(err, models.ErrInstall))
	assert.Contains(t, err.Error(), "broken")
	assert.Equal(t, StateVerified, result.State)
}

func TestRunUsesCache(t *testing.T) {
	rs := newReleaseServer(t)
	table := descriptor.NewTable()
	rs.publish(t, table, "3.0.10", linuxAmd64, packArtifact(t, okScript))

	c, err := cache.New(t.TempDir())
	require.NoError(t, err)
	inst := New(table, fetcher.New(), WithCache(c), WithSmokeTest(false))
	req := Request{Version: "3.0.10", Platform: linuxAmd64, TargetDir: t.TempDir()}

	first, err := inst.Run(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, first.FromCache)

	second, err := inst.Run(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, StateInstalled, second.State)

	assert.Equal(t, int32(1), rs.hits.Load())
}

func TestRunDefaultsToLatest(t *testing.T) {
	rs := newReleaseServer(t)
	table := descriptor.NewTable()
	rs.publish(t, table, "3.0.9", linuxAmd64, packArtifact(t, "#!/bin/sh\necho 3.0.9\n"))
	rs.publish(t, table, "3.0.10", linuxAmd64, packArtifact(t, okScript))

	result, err := New(table, fetcher.New(), WithSmokeTest(false)).Run(context.Background(), Request{Platform: linuxAmd64, TargetDir: t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, "3.0.10", result.Descriptor.Version)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "Verified", StateVerified.String())
	assert.Equal(t, "Unknown", State(42).String())
}
