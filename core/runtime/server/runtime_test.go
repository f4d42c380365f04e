package server

import (
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/semlayer/semlayer/core/domain"
	"github.com/semlayer/semlayer/core/parser"
)

func testConfig(t *testing.T) *parser.Config {
	t.Helper()
	cfg := &parser.Config{Name: "runtime-lifecycle"}
	cfg.Auth.JWTSecret = "0123456789abcdef"
	cfg.Storage.Local.Dir = t.TempDir()
	cfg.Projects.Projects = []domain.Project{{UUID: "p1", OrganizationUUID: "org-1"}}
	cfg.WithDefaults()
	return cfg
}

func TestRuntimeLifecycle_StartStop(t *testing.T) {
	port := freePort(t)

	rt, err := NewRuntime(testConfig(t), port, WithVersion("test"))
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:"+port, rt.BaseURL())

	require.NoError(t, rt.StartAsync())
	started := true
	defer func() {
		if started {
			_ = rt.Stop()
		}
	}()

	base := fmt.Sprintf("http://127.0.0.1:%s", port)
	require.NoError(t, waitForHTTP200(base+"/heartbeat", 5*time.Second))

	resp, err := http.Get(base + "/api/v1/projects/p1/semantic-layer/views")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	require.NoError(t, rt.Stop())
	started = false

	_, err = http.Get(base + "/heartbeat")
	assert.Error(t, err)
}

func TestRuntime_PortInUse(t *testing.T) {
	listener, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	defer listener.Close()
	port := fmt.Sprintf("%d", listener.Addr().(*net.TCPAddr).Port)

	rt, err := NewRuntime(testConfig(t), port)
	require.NoError(t, err)
	defer rt.Stop()

	assert.Error(t, rt.StartAsync())
}

func TestNewRuntime_BaseURL(t *testing.T) {
	cfg := testConfig(t)
	cfg.Server.PublicURL = "https://semlayer.example.com/"

	rt, err := NewRuntime(cfg, "")
	require.NoError(t, err)
	defer rt.Stop()
	assert.Equal(t, "https://semlayer.example.com", rt.BaseURL())

	rt2, err := NewRuntime(testConfig(t), "", WithBaseURL("http://gateway:9000/"))
	require.NoError(t, err)
	defer rt2.Stop()
	assert.Equal(t, "http://gateway:9000", rt2.BaseURL())
}

func TestNewRuntime_NilConfig(t *testing.T) {
	_, err := NewRuntime(nil, "")
	assert.Error(t, err)
}

func freePort(t *testing.T) string {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err, "failed to reserve free port")
	defer listener.Close()

	addr, ok := listener.Addr().(*net.TCPAddr)
	require.True(t, ok, "failed to resolve reserved TCP address")
	return fmt.Sprintf("%d", addr.Port)
}

func waitForHTTP200(url string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get(url)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		time.Sleep(50 * time.Millisecond)
	}
	return fmt.Errorf("timed out waiting for %s", url)
}
