//go:build integration

package integration_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

// testEnv holds paths to isolated test directories.
type testEnv struct {
	HomeDir    string // CN1UPDATE_HOME, the shared cache
	ProjectDir string // a mock consuming project
	Server     *updateServer
}

// setupTestEnv creates isolated temp directories, starts a fake update
// server and points the configuration at both through environment variables.
func setupTestEnv(t *testing.T, files map[string]string) *testEnv {
	t.Helper()

	srv := newUpdateServer(files)
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	srv.URL = ts.URL

	env := &testEnv{
		HomeDir:    t.TempDir(),
		ProjectDir: t.TempDir(),
		Server:     srv,
	}

	t.Setenv("CN1UPDATE_HOME", env.HomeDir)
	t.Setenv("CN1UPDATE_BASE_URL", ts.URL+"/")
	t.Setenv("CN1UPDATE_SKIN_BASE_URL", ts.URL+"/OTA")
	t.Setenv("CN1UPDATE_CATALOG_URL", ts.URL+"/OTA/Skins.xml")
	t.Setenv("CN1UPDATE_SWAP_INITIAL_DELAY", "10ms")
	t.Setenv("CN1UPDATE_SWAP_MAX_DELAY", "50ms")
	t.Setenv("CN1UPDATE_SWAP_SETTLE_DELAY", "10ms")
	return env
}

// updateServer serves fixed files and counts requests per path.
type updateServer struct {
	URL string

	mu    sync.Mutex
	files map[string]string
	hits  map[string]int
}

func newUpdateServer(files map[string]string) *updateServer {
	return &updateServer{files: files, hits: make(map[string]int)}
}

func (s *updateServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.hits[r.URL.Path]++
	body, ok := s.files[r.URL.Path]
	s.mu.Unlock()
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Length", fmt.Sprint(len(body)))
	w.Write([]byte(body))
}

func (s *updateServer) count(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}

// buildBinary compiles the command into a temp directory.
func buildBinary(t *testing.T) string {
	t.Helper()
	bin := filepath.Join(t.TempDir(), "cn1update")
	cmd := exec.Command("go", "build", "-o", bin, "../..")
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("building binary: %v\n%s", err, out)
	}
	return bin
}

// run executes the binary with the test environment and returns its
// combined output.
func run(t *testing.T, bin string, args ...string) (string, error) {
	t.Helper()
	cmd := exec.Command(bin, args...)
	cmd.Env = append(os.Environ(), "NO_COLOR=1")
	out, err := cmd.CombinedOutput()
	return string(out), err
}

// writeFile creates a file at the given path with the given content.
func writeFile(t *testing.T, path, content string) {
	t.Helper()
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("creating dir %s: %v", dir, err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}

// assertFileExists fails the test if the file does not exist.
func assertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected file to exist: %s (error: %v)", path, err)
	}
}

// assertFileNotExists fails the test if the file exists.
func assertFileNotExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err == nil {
		t.Errorf("expected file NOT to exist: %s", path)
	}
}

// assertFileContent fails if the file doesn't hold exactly want.
func assertFileContent(t *testing.T, path, want string) {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Errorf("reading %s: %v", path, err)
		return
	}
	if string(data) != want {
		t.Errorf("file %s = %q, want %q", path, data, want)
	}
}

// assertFileContains fails if the file doesn't exist or doesn't contain substr.
func assertFileContains(t *testing.T, path, substr string) {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Errorf("reading %s: %v", path, err)
		return
	}
	if !strings.Contains(string(data), substr) {
		t.Errorf("file %s does not contain %q.\nContents:\n%s", path, substr, string(data))
	}
}
