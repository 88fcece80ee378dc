package provider

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/opsprov/internal/config"
	"github.com/imamik/opsprov/internal/platform/hcloud"
	"github.com/imamik/opsprov/internal/util/keygen"
)

func writeKey(t *testing.T) string {
	t.Helper()
	kp, err := keygen.GenerateED25519KeyPair("opsprov")
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "id_ed25519")
	require.NoError(t, kp.WriteFiles(path))
	return path
}

func TestNew(t *testing.T) {
	cfg := config.Default()

	p, err := New(cfg)
	require.NoError(t, err)
	assert.IsType(t, &LocalCLI{}, p)
	assert.Equal(t, "local-cli", p.Name())

	cfg.DryRun = true
	p, err = New(cfg)
	require.NoError(t, err)
	assert.IsType(t, &Mock{}, p)

	cfg.DryRun = false
	cfg.Provider = "telnet"
	_, err = New(cfg)
	assert.Error(t, err)
}

func TestNew_DirectSSH(t *testing.T) {
	cfg := config.Default()
	cfg.Provider = config.ProviderDirectSSH
	cfg.SSHUser = "provisioner"
	cfg.SSHKey = writeKey(t)

	p, err := New(cfg)
	require.NoError(t, err)
	direct, ok := p.(*DirectSSH)
	require.True(t, ok)
	assert.IsType(t, NameResolver{}, direct.hosts)
	assert.Equal(t, cfg.CommandTimeout, direct.timeout)

	cfg.SSHHostSource = config.HostSourceTemplate
	cfg.SSHHostTemplate = "{{.Name}}.internal"
	p, err = New(cfg)
	require.NoError(t, err)
	assert.IsType(t, &TemplateResolver{}, p.(*DirectSSH).hosts)
}

func TestNew_DirectSSH_HCloud(t *testing.T) {
	cfg := config.Default()
	cfg.Provider = config.ProviderDirectSSH
	cfg.SSHUser = "root"
	cfg.SSHKey = writeKey(t)
	cfg.SSHHostSource = config.HostSourceHCloud

	t.Setenv(HCloudTokenEnv, "")
	_, err := New(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), HCloudTokenEnv)

	t.Setenv(HCloudTokenEnv, "test-token")
	p, err := New(cfg)
	require.NoError(t, err)
	assert.IsType(t, &hcloud.Resolver{}, p.(*DirectSSH).hosts)
}

func TestNew_DirectSSH_BadKey(t *testing.T) {
	cfg := config.Default()
	cfg.Provider = config.ProviderDirectSSH
	cfg.SSHUser = "root"
	cfg.SSHKey = filepath.Join(t.TempDir(), "missing")

	_, err := New(cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)

	garbage := filepath.Join(t.TempDir(), "garbage")
	require.NoError(t, os.WriteFile(garbage, []byte("not a key"), 0o600))
	cfg.SSHKey = garbage
	_, err = New(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse private key")
}
