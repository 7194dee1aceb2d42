package bootstrap_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pourline/pourline/internal/bootstrap"
	"github.com/pourline/pourline/internal/domain"
)

const catalogYAML = `
products:
  - id: 7
    key: Pression
    dispenser_controlled: true
    plu_code: PLU7
  - id: 90
    key: Chips
`

func writeWorkspace(t *testing.T, middlewareURL string) string {
	t.Helper()
	dir := t.TempDir()
	cfg := "catalog: catalog.yaml\nledger: data/ledger.db\nmiddleware:\n  url: " + middlewareURL + "\noperator:\n  name: Alex\n  server_no: 3\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".pourline.yaml"), []byte(cfg), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "catalog.yaml"), []byte(catalogYAML), 0o644))
	return dir
}

func TestNew_WiresEndToEnd(t *testing.T) {
	var credits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/send-credit" {
			credits.Add(1)
		}
		_, _ = w.Write([]byte(`{"success": true}`))
	}))
	t.Cleanup(srv.Close)

	dir := writeWorkspace(t, srv.URL)
	rt, err := bootstrap.New(context.Background(), bootstrap.Options{Dir: dir, Version: "test", LogOutput: &bytes.Buffer{}})
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Close() })

	assert.Equal(t, 3, rt.Operator.ServerNo)
	assert.Len(t, rt.Catalog.Products(), 2)
	assert.FileExists(t, filepath.Join(dir, "data", "ledger.db"))

	p, err := rt.Catalog.ByKey("Pression")
	require.NoError(t, err)
	o := domain.NewOrder("o-1", "s-1")
	_, err = o.AddLine(p, 2)
	require.NoError(t, err)

	notes := &domain.NotificationLog{}
	report := rt.Service(notes).OnSendToDispenserRequested(context.Background(), o)

	assert.True(t, report.AllSucceeded())
	assert.Equal(t, int32(1), credits.Load())

	recs, err := rt.Ledger.List(context.Background(), "s-1")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, 2, recs[0].Quantity)
}

func TestNew_MissingCatalogIsEmpty(t *testing.T) {
	dir := t.TempDir()
	rt, err := bootstrap.New(context.Background(), bootstrap.Options{
		Dir:       dir,
		LogOutput: &bytes.Buffer{},
		Mutate:    func(c *domain.Config) { c.Ledger = ":memory:" },
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Close() })

	assert.Empty(t, rt.Catalog.Products())
}

func TestNew_MutateIsValidated(t *testing.T) {
	_, err := bootstrap.New(context.Background(), bootstrap.Options{
		Dir:       t.TempDir(),
		LogOutput: &bytes.Buffer{},
		Mutate:    func(c *domain.Config) { c.Operator.ServerNo = 500 },
	})
	require.Error(t, err)
}
