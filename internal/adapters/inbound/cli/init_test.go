package cli_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pourline/pourline/internal/adapters/inbound/cli"
	"github.com/pourline/pourline/internal/adapters/outbound/config"
)

func TestInitCmd_CreatesConfigFile(t *testing.T) {
	tmpDir := t.TempDir()

	root := cli.NewRootCmdForTest()
	root.SetArgs([]string{"init", tmpDir, "--server-no", "4", "--operator", "Alex", "--middleware-url", "http://10.0.0.5:5000"})
	require.NoError(t, root.Execute())

	data, err := os.ReadFile(filepath.Join(tmpDir, ".pourline.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "server_no: 4")
	assert.Contains(t, string(data), "url: http://10.0.0.5:5000")
}

func TestInitCmd_OutputLoads(t *testing.T) {
	tmpDir := t.TempDir()

	root := cli.NewRootCmdForTest()
	root.SetArgs([]string{"init", tmpDir, "--server-no", "7", "--operator", "Sam"})
	require.NoError(t, root.Execute())

	cfg, err := config.WithEnv(func(string) string { return "" }).Load(tmpDir)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Operator.ServerNo)
	assert.Equal(t, "Sam", cfg.Operator.Name)
	assert.True(t, cfg.Middleware.AutoConnectEnabled())
	assert.Equal(t, "PLU1", cfg.Dispatch.DefaultPLU)
}

func TestInitCmd_FailsIfExists(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, ".pourline.yaml"), []byte("x: 1"), 0644))

	root := cli.NewRootCmdForTest()
	root.SetArgs([]string{"init", tmpDir})
	assert.ErrorContains(t, root.Execute(), "already exists")

	root = cli.NewRootCmdForTest()
	root.SetArgs([]string{"init", tmpDir, "--force"})
	assert.NoError(t, root.Execute())
}

func TestInitCmd_RejectsServerNo(t *testing.T) {
	root := cli.NewRootCmdForTest()
	root.SetArgs([]string{"init", t.TempDir(), "--server-no", "120"})
	assert.Error(t, root.Execute())
}
