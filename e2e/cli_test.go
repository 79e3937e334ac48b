package e2e_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/memorygame/internal/api"
	"github.com/mcoot/memorygame/internal/factory"
	"github.com/mcoot/memorygame/internal/middleware"
)

// cliRunner manages CLI binary execution
type cliRunner struct {
	binaryPath string
	serverURL  string
	tokenFile  string
}

func newCLIRunner(t *testing.T, serverURL string) *cliRunner {
	t.Helper()

	projectRoot := findProjectRoot(t)

	binaryPath := filepath.Join(t.TempDir(), "memgame-test")
	cmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/memgame")
	cmd.Dir = projectRoot
	output, err := cmd.CombinedOutput()
	require.NoError(t, err, "failed to build CLI: %s", string(output))

	return &cliRunner{
		binaryPath: binaryPath,
		serverURL:  serverURL,
		tokenFile:  filepath.Join(t.TempDir(), "token"),
	}
}

// withTokenFile returns a runner sharing the binary but keeping its own token
func (r *cliRunner) withTokenFile(path string) *cliRunner {
	return &cliRunner{
		binaryPath: r.binaryPath,
		serverURL:  r.serverURL,
		tokenFile:  path,
	}
}

func (r *cliRunner) run(args ...string) (string, error) {
	fullArgs := append([]string{
		"--server", r.serverURL,
		"--token-file", r.tokenFile,
		"--output", "json",
	}, args...)

	cmd := exec.Command(r.binaryPath, fullArgs...)
	cmd.Env = cleanEnv()
	output, err := cmd.Output()
	return string(output), err
}

func (r *cliRunner) runWithToken(token string, args ...string) (string, error) {
	fullArgs := append([]string{
		"--server", r.serverURL,
		"--token", token,
		"--output", "json",
	}, args...)

	cmd := exec.Command(r.binaryPath, fullArgs...)
	cmd.Env = cleanEnv()
	output, err := cmd.Output()
	return string(output), err
}

// cleanEnv drops MEMGAME_* variables so the host environment cannot leak
// into CLI runs
func cleanEnv() []string {
	var env []string
	for _, kv := range os.Environ() {
		if strings.HasPrefix(kv, "MEMGAME_") {
			continue
		}
		env = append(env, kv)
	}
	return env
}

func findProjectRoot(t *testing.T) string {
	t.Helper()

	dir, err := os.Getwd()
	require.NoError(t, err)

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatal("could not find project root (go.mod)")
		}
		dir = parent
	}
}

// testServer manages a real HTTP server for e2e tests
type testServer struct {
	addr     string
	shutdown func()
}

func startTestServer(t *testing.T) *testServer {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	app, err := factory.New(context.Background(), factory.Config{Logger: logger})
	require.NoError(t, err)

	router := api.NewRouter(api.RouterConfig{
		Logger:             logger,
		AuthService:        app.AuthService,
		LeaderboardService: app.LeaderboardService,
		WriteLimiter:       middleware.NewIPRateLimiter(100, 100),
		AllowedOrigins:     []string{"*"},
		ExposeMetrics:      true,
	})

	cfg := api.DefaultServerConfig()
	cfg.ShutdownTimeout = 5 * time.Second
	server := api.NewServer(router, cfg, logger)

	go func() {
		if err := server.Serve(listener); err != nil {
			t.Logf("server error: %v", err)
		}
	}()

	serverURL := "http://" + listener.Addr().String()
	waitForServer(t, serverURL+"/api/health")

	return &testServer{
		addr: serverURL,
		shutdown: func() {
			_ = server.Shutdown(context.Background())
			_ = app.Close()
		},
	}
}

func waitForServer(t *testing.T, url string) {
	t.Helper()

	client := &http.Client{Timeout: 100 * time.Millisecond}
	deadline := time.Now().Add(5 * time.Second)

	for time.Now().Before(deadline) {
		resp, err := client.Get(url)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(50 * time.Millisecond)
	}

	t.Fatal("server did not become ready in time")
}

// Response types for JSON parsing
type playerResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type authResponse struct {
	Player playerResponse `json:"player"`
	Token  string         `json:"token"`
}

type scoreResponse struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Score int64  `json:"score"`
	Time  int64  `json:"time"`
}

type createdResponse struct {
	ID int64 `json:"id"`
}

type healthResponse struct {
	Status string `json:"status"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// Tests

func TestCLI_HealthCheck(t *testing.T) {
	ts := startTestServer(t)
	defer ts.shutdown()

	cli := newCLIRunner(t, ts.addr)

	output, err := cli.run("health")
	require.NoError(t, err, "output: %s", output)

	var resp healthResponse
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestCLI_ComputeIsOffline(t *testing.T) {
	cli := newCLIRunner(t, "http://127.0.0.1:1")

	output, err := cli.run("scores", "compute", "--moves", "20", "--time", "100")
	require.NoError(t, err, "output: %s", output)

	var resp struct {
		Score int64 `json:"score"`
	}
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	assert.Equal(t, int64(7800), resp.Score)
}

func TestCLI_GuestSubmission(t *testing.T) {
	ts := startTestServer(t)
	defer ts.shutdown()

	cli := newCLIRunner(t, ts.addr)

	// Guests must name themselves
	_, err := cli.run("scores", "submit", "--score", "9000", "--time", "40")
	require.Error(t, err)

	output, err := cli.run("scores", "submit", "--name", "Bob", "--score", "9000", "--time", "40")
	require.NoError(t, err, "output: %s", output)
	var created createdResponse
	require.NoError(t, json.Unmarshal([]byte(output), &created))
	assert.NotZero(t, created.ID)

	// Telemetry submission is scored by the server
	output, err = cli.run("scores", "submit", "--name", "Carol", "--moves", "8", "--time", "50")
	require.NoError(t, err, "output: %s", output)

	output, err = cli.run("scores", "list")
	require.NoError(t, err, "output: %s", output)

	var scores []scoreResponse
	require.NoError(t, json.Unmarshal([]byte(output), &scores))
	require.Len(t, scores, 2)
	assert.Equal(t, "Carol", scores[0].Name)
	assert.Equal(t, int64(9500), scores[0].Score)
	assert.Equal(t, created.ID, scores[1].ID)
}

func TestCLI_PlayerLifecycle(t *testing.T) {
	ts := startTestServer(t)
	defer ts.shutdown()

	cli := newCLIRunner(t, ts.addr)

	// Register saves the token
	output, err := cli.run("player", "register", "--user", "alice", "--pass", "password123")
	require.NoError(t, err, "output: %s", output)

	var registered authResponse
	require.NoError(t, json.Unmarshal([]byte(output), &registered))
	assert.Equal(t, "alice", registered.Player.Name)
	assert.NotEmpty(t, registered.Token)

	output, err = cli.run("player", "me")
	require.NoError(t, err, "output: %s", output)
	var me playerResponse
	require.NoError(t, json.Unmarshal([]byte(output), &me))
	assert.Equal(t, registered.Player, me)

	// A logged-in submission ignores --name
	output, err = cli.run("scores", "submit", "--name", "spoofed", "--score", "9900", "--time", "10")
	require.NoError(t, err, "output: %s", output)

	guest := cli.withTokenFile(filepath.Join(t.TempDir(), "guest-token"))
	output, err = guest.run("scores", "submit", "--name", "Dave", "--score", "100", "--time", "10")
	require.NoError(t, err, "output: %s", output)

	output, err = cli.run("scores", "list")
	require.NoError(t, err, "output: %s", output)
	var scores []scoreResponse
	require.NoError(t, json.Unmarshal([]byte(output), &scores))
	require.Len(t, scores, 2)
	assert.Equal(t, "alice", scores[0].Name)

	// Login from a fresh token file
	other := cli.withTokenFile(filepath.Join(t.TempDir(), "token2"))
	output, err = other.run("player", "login", "--user", "alice", "--pass", "password123")
	require.NoError(t, err, "output: %s", output)
	var loggedIn authResponse
	require.NoError(t, json.Unmarshal([]byte(output), &loggedIn))
	assert.Equal(t, registered.Player.ID, loggedIn.Player.ID)

	// Deleting the account removes its scores and the token
	_, err = cli.run("player", "delete")
	require.Error(t, err, "delete without --yes must refuse")

	output, err = cli.run("player", "delete", "--yes")
	require.NoError(t, err, "output: %s", output)
	var msg messageResponse
	require.NoError(t, json.Unmarshal([]byte(output), &msg))
	assert.Equal(t, "Account deleted", msg.Message)

	output, err = cli.run("scores", "list")
	require.NoError(t, err, "output: %s", output)
	require.NoError(t, json.Unmarshal([]byte(output), &scores))
	require.Len(t, scores, 1)
	assert.Equal(t, "Dave", scores[0].Name)

	// The old token no longer authenticates
	_, err = cli.runWithToken(loggedIn.Token, "player", "me")
	assert.Error(t, err)
}
