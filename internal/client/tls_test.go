package client

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/web-portfolio-personal/JAML-Ejercicios/internal/config"
)

func TestLoadTLS_WithoutFiles(t *testing.T) {
	cfg, err := loadTLS(config.TLSFiles{}, "clickhouse.internal")
	require.NoError(t, err)
	assert.Equal(t, "clickhouse.internal", cfg.ServerName)
	assert.Nil(t, cfg.RootCAs)
	assert.Empty(t, cfg.Certificates)
}

func TestLoadTLS_MissingCA(t *testing.T) {
	_, err := loadTLS(config.TLSFiles{CAFile: filepath.Join(t.TempDir(), "missing.pem")}, "")
	assert.Error(t, err)
}

func TestLoadTLS_InvalidCA(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ca.pem")
	require.NoError(t, os.WriteFile(path, []byte("not a certificate"), 0o600))

	_, err := loadTLS(config.TLSFiles{CAFile: path}, "")
	assert.Error(t, err)
}

func TestExtractHostPort(t *testing.T) {
	assert.Equal(t, "localhost:9000", extractHostPort("localhost"))
	assert.Equal(t, "ch.example.com:9440", extractHostPort("https://ch.example.com"))
	assert.Equal(t, "ch.example.com:9001", extractHostPort("clickhouse://ch.example.com:9001"))
	assert.Equal(t, "ch.example.com", extractHostname("https://ch.example.com"))
}
