//go:build integration
// +build integration

package integration

import (
	"bufio"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/fileprediction/internal/config"
	"github.com/GriffinCanCode/fileprediction/internal/infrastructure/eventlog"
	"github.com/GriffinCanCode/fileprediction/internal/shared/types"
	"github.com/GriffinCanCode/fileprediction/internal/ws"
)

// TestNavigationWorkflow drives a project through the HTTP API and checks the
// records that reach the event log file.
func TestNavigationWorkflow(t *testing.T) {
	var logPath string
	e := newEnv(t, func(cfg *config.Config) { logPath = cfg.EventLog.Path })
	pid := e.openProject(t, false)
	base := "/api/projects/" + pid

	t.Run("session is empty before any selection", func(t *testing.T) {
		status, data := e.do(t, http.MethodGet, base+"/session", nil)
		require.Equal(t, http.StatusOK, status)
		assert.Contains(t, string(data), `"session":null`)
	})

	t.Run("selections are accepted", func(t *testing.T) {
		status, _ := e.do(t, http.MethodPost, base+"/opened", map[string]any{"file": "util.go"})
		assert.Equal(t, http.StatusAccepted, status)

		status, _ = e.do(t, http.MethodPost, base+"/selected", map[string]any{"file": "main.go"})
		assert.Equal(t, http.StatusAccepted, status)

		status, _ = e.do(t, http.MethodPost, base+"/selected", map[string]any{"file": "util.go", "prev": "main.go"})
		assert.Equal(t, http.StatusAccepted, status)

		status, _ = e.do(t, http.MethodPost, base+"/closed", map[string]any{"file": "util.go"})
		assert.Equal(t, http.StatusAccepted, status)
	})

	t.Run("records reach the event log", func(t *testing.T) {
		require.Eventually(t, func() bool {
			return len(e.srv.Events().Recent(10)) == 3
		}, 5*time.Second, 10*time.Millisecond)

		f, err := os.Open(logPath)
		require.NoError(t, err)
		defer f.Close()

		var kinds []types.EventKind
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			var ev types.Event
			require.NoError(t, sonic.Unmarshal(scanner.Bytes(), &ev))
			assert.Equal(t, pid, ev.ProjectID)
			kinds = append(kinds, ev.Kind)
		}
		require.NoError(t, scanner.Err())
		assert.Equal(t, []types.EventKind{
			types.EventCandidateCalculated,
			types.EventFileOpened,
			types.EventCandidateCalculated,
		}, kinds)
	})

	t.Run("opened record carries features and references", func(t *testing.T) {
		var opened *types.Event
		for _, ev := range e.srv.Events().Recent(10) {
			if ev.Kind == types.EventFileOpened {
				ev := ev
				opened = &ev
			}
		}
		require.NotNil(t, opened)
		assert.Equal(t, filepath.Join(e.dir, "util.go"), opened.Path)
		assert.Equal(t, true, opened.Features["in_ref"])
		assert.Equal(t, true, opened.Features["same_dir"])
	})

	t.Run("dispose removes the project", func(t *testing.T) {
		status, _ := e.do(t, http.MethodDelete, base, nil)
		assert.Equal(t, http.StatusOK, status)

		status, _ = e.do(t, http.MethodGet, base+"/session", nil)
		assert.Equal(t, http.StatusNotFound, status)
	})
}

func TestLightProjectProducesNoRecords(t *testing.T) {
	e := newEnv(t, nil)
	pid := e.openProject(t, true)

	for _, file := range []string{"/tmp/a.go", "/tmp/b.go", "/tmp/c.go"} {
		status, _ := e.do(t, http.MethodPost, "/api/projects/"+pid+"/selected", map[string]any{"file": file})
		require.Equal(t, http.StatusAccepted, status)
	}

	status, data := e.do(t, http.MethodGet, "/api/projects/"+pid+"/session", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(data), `"session":null`)
	assert.Empty(t, e.srv.Events().Recent(10))
}

func TestEventStream(t *testing.T) {
	e := newEnv(t, func(cfg *config.Config) {
		cfg.EventLog.Driver = eventlog.DriverSQLite
		cfg.EventLog.Path = filepath.Join(t.TempDir(), "events.db")
	})
	pid := e.openProject(t, false)

	url := "ws" + strings.TrimPrefix(e.ts.URL, "http") + "/api/events/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	var msg ws.Message
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "system", msg.Type)

	status, _ := e.do(t, http.MethodPost, "/api/projects/"+pid+"/selected", map[string]any{"file": "main.go"})
	require.Equal(t, http.StatusAccepted, status)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "event", msg.Type)
	require.NotNil(t, msg.Event)
	assert.Equal(t, types.EventCandidateCalculated, msg.Event.Kind)
	assert.NotEmpty(t, msg.Event.Candidates)
}
