package tlsutil

import (
	"crypto/tls"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteDevCertificate_LoadsAsServerCredentials(t *testing.T) {
	cfg, err := WriteDevCertificate([]string{"localhost", "127.0.0.1"}, t.TempDir())
	require.NoError(t, err)
	assert.True(t, cfg.Enabled())

	creds, err := ServerCredentials(cfg)
	require.NoError(t, err)
	assert.Equal(t, "tls", creds.Info().SecurityProtocol)
}

func TestServerTLS_RequiresClientCertWhenCAConfigured(t *testing.T) {
	cfg, err := WriteDevCertificate([]string{"localhost"}, t.TempDir())
	require.NoError(t, err)
	cfg.ClientCAFile = cfg.CertFile

	tlsCfg, err := serverTLS(cfg)
	require.NoError(t, err)
	assert.Equal(t, tls.RequireAndVerifyClientCert, tlsCfg.ClientAuth)
	assert.NotNil(t, tlsCfg.ClientCAs)
}

func TestServerCredentials_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := ServerCredentials(ServerConfig{CertFile: filepath.Join(dir, "missing.pem"), KeyFile: filepath.Join(dir, "missing-key.pem")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load server key pair")

	cfg, err := WriteDevCertificate([]string{"localhost"}, dir)
	require.NoError(t, err)
	bogus := filepath.Join(dir, "bogus-ca.pem")
	require.NoError(t, os.WriteFile(bogus, []byte("not a certificate"), 0o600))
	cfg.ClientCAFile = bogus

	_, err = ServerCredentials(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no certificates")
}

func TestServerConfig_Enabled(t *testing.T) {
	assert.False(t, ServerConfig{}.Enabled())
	assert.False(t, ServerConfig{CertFile: "a.pem"}.Enabled())
	assert.True(t, ServerConfig{CertFile: "a.pem", KeyFile: "a-key.pem"}.Enabled())
}
