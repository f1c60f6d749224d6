package fixture

import (
	"context"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixtureDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "test.html"), []byte("<html><body>Dr. Sarah Johnson</body></html>"), 0644))
	return dir
}

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())
	return port
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestServerServesFixtureImmediately(t *testing.T) {
	dir := fixtureDir(t)
	port := freePort(t)

	srv, err := Start(port, dir)
	require.NoError(t, err)
	defer srv.Stop()

	assert.Equal(t, port, srv.Port())
	assert.Equal(t, "http://localhost:"+strconv.Itoa(port)+"/test.html", srv.URL("test.html"))

	status, body := get(t, srv.URL("/test.html"))
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "Dr. Sarah Johnson")
}

func TestServerStopReleasesPort(t *testing.T) {
	dir := fixtureDir(t)
	port := freePort(t)

	first, err := Start(port, dir)
	require.NoError(t, err)
	require.NoError(t, first.Stop())

	second, err := Start(port, dir)
	require.NoError(t, err, "port should be reusable after Stop")
	defer second.Stop()

	status, _ := get(t, second.URL("test.html"))
	assert.Equal(t, http.StatusOK, status)
}

func TestServerStopIsIdempotent(t *testing.T) {
	srv, err := Start(0, fixtureDir(t))
	require.NoError(t, err)

	require.NoError(t, srv.Stop())
	require.NoError(t, srv.Stop())

	var never *Server
	require.NoError(t, never.Stop())
	require.NoError(t, (&Server{}).Stop())
}

func TestServerPortInUse(t *testing.T) {
	srv, err := Start(0, fixtureDir(t))
	require.NoError(t, err)
	defer srv.Stop()

	_, err = Start(srv.Port(), fixtureDir(t))
	require.Error(t, err)
}

func TestServerRejectsMissingRoot(t *testing.T) {
	_, err := Start(0, filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)

	file := filepath.Join(t.TempDir(), "file.txt")
	require.NoError(t, os.WriteFile(file, nil, 0644))
	_, err = Start(0, file)
	require.Error(t, err)
}

func TestServerConfinesToRoot(t *testing.T) {
	parent := t.TempDir()
	root := filepath.Join(parent, "fixtures")
	require.NoError(t, os.Mkdir(root, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(parent, "secret.txt"), []byte("outside"), 0644))

	srv, err := Start(0, root)
	require.NoError(t, err)
	defer srv.Stop()

	conn, err := net.Dial("tcp", net.JoinHostPort("localhost", strconv.Itoa(srv.Port())))
	require.NoError(t, err)
	defer conn.Close()
	_, err = io.WriteString(conn, "GET /../secret.txt HTTP/1.1\r\nHost: localhost\r\nConnection: close\r\n\r\n")
	require.NoError(t, err)
	raw, err := io.ReadAll(conn)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "outside")
}

func TestServerMissingFileIs404(t *testing.T) {
	srv, err := Start(0, fixtureDir(t))
	require.NoError(t, err)
	defer srv.Stop()

	status, _ := get(t, srv.URL("nope.html"))
	assert.Equal(t, http.StatusNotFound, status)
}

func TestServerWaitReady(t *testing.T) {
	srv, err := Start(0, fixtureDir(t))
	require.NoError(t, err)
	defer srv.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, srv.WaitReady(ctx, 2*time.Second))
}
