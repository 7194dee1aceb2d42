package e2e_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pourline/pourline/internal/domain"
)

var binaryPath string

func TestMain(m *testing.M) {
	// Build binary before running tests
	dir, err := os.MkdirTemp("", "pourline-e2e")
	if err != nil {
		panic(err)
	}
	defer os.RemoveAll(dir)

	binaryPath = filepath.Join(dir, "pourline")
	cmd := exec.Command("go", "build", "-o", binaryPath, "../../cmd/pourline")
	if out, err := cmd.CombinedOutput(); err != nil {
		panic("build failed: " + string(out))
	}

	os.Exit(m.Run())
}

// middleware is a stand-in for the Hart96 middleware.
type middleware struct {
	mu    sync.Mutex
	plus  []float64
	signs []string
}

func (m *middleware) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/api/send-credit" {
		var body struct {
			PLU  float64 `json:"plu_no"`
			Sign string  `json:"sign"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		m.mu.Lock()
		m.plus = append(m.plus, body.PLU)
		m.signs = append(m.signs, body.Sign)
		m.mu.Unlock()
	}
	_, _ = w.Write([]byte("OK"))
}

// workspace copies the bar fixture into a temp dir so runs do not share a
// ledger.
func workspace(t *testing.T) string {
	t.Helper()
	src, err := filepath.Abs("../../testdata/bar")
	require.NoError(t, err)
	dst := t.TempDir()
	err = filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(src, path)
		target := filepath.Join(dst, rel)
		if info.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		return os.WriteFile(target, data, 0o644)
	})
	require.NoError(t, err)
	return dst
}

func run(t *testing.T, dir, url string, args ...string) (string, int) {
	t.Helper()
	full := append([]string{"--dir", dir, "--middleware-url", url}, args...)
	cmd := exec.Command(binaryPath, full...)
	out, err := cmd.Output()
	exitCode := 0
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		}
	}
	return string(out), exitCode
}

func TestE2E_SendTable(t *testing.T) {
	mw := &middleware{}
	srv := httptest.NewServer(mw)
	defer srv.Close()
	dir := workspace(t)

	out, code := run(t, dir, srv.URL, "send", "--order", filepath.Join(dir, "orders", "table-4.yaml"), "--json")
	assert.Equal(t, 0, code)

	var report domain.SessionReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, "3/3", report.Ratio(), "beer, cocktail and cider; mint leaves and chips are not poured")
	assert.ElementsMatch(t, []float64{7, 3, 4, 1}, mw.plus)
}

func TestE2E_SendSnacksIsEmpty(t *testing.T) {
	mw := &middleware{}
	srv := httptest.NewServer(mw)
	defer srv.Close()
	dir := workspace(t)

	out, code := run(t, dir, srv.URL, "send", "--order", filepath.Join(dir, "orders", "snacks.yaml"), "--json")
	assert.Equal(t, 0, code)

	var report domain.SessionReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, domain.ReportEmpty, report.Status)
	assert.Empty(t, mw.plus)
}

func TestE2E_SendThenCancel(t *testing.T) {
	mw := &middleware{}
	srv := httptest.NewServer(mw)
	defer srv.Close()
	dir := workspace(t)

	_, code := run(t, dir, srv.URL, "send", "--order", filepath.Join(dir, "orders", "table-4.yaml"))
	require.Equal(t, 0, code)

	_, code = run(t, dir, srv.URL, "cancel", "--session", "SES-table-4", "--product", "Mojito")
	assert.Equal(t, 0, code)

	out, code := run(t, dir, srv.URL, "credits", "--session", "SES-table-4", "--json")
	require.Equal(t, 0, code)
	var recs []domain.CreditRecord
	require.NoError(t, json.Unmarshal([]byte(out), &recs))

	cancelled := 0
	for _, r := range recs {
		if r.IsCancellation {
			cancelled++
		}
	}
	assert.Equal(t, 2, cancelled, "one withdrawal per cocktail ingredient")
	assert.Equal(t, []string{"+", "+", "+", "+", "-", "-"}, mw.signs)
}

func TestE2E_ProbeUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, code := run(t, workspace(t), url, "probe")
	assert.Equal(t, 1, code)
}

func TestE2E_Version(t *testing.T) {
	cmd := exec.Command(binaryPath, "version")
	out, err := cmd.Output()
	require.NoError(t, err)
	assert.Contains(t, string(out), "pourline")
}
