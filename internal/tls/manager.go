// Package tls serves HTTPS with static certificates, ACME autocert or, in
// development, a generated self-signed pair.
package tls

import (
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/crypto/acme/autocert"

	"github.com/web-portfolio-personal/JAML-Ejercicios/internal/config"
	"github.com/web-portfolio-personal/JAML-Ejercicios/internal/util"
)

type TLSManager struct {
	config   *TLSConfig
	autoCert *autocert.Manager

	mu         sync.Mutex
	static     *tls.Certificate
	selfSigned *tls.Certificate
}

type TLSConfig struct {
	EnableTLS   bool
	AutoCert    bool
	Domain      string
	CertFile    string
	KeyFile     string
	AutoCertDir string
	Email       string
	Environment string
}

// ConfigFrom picks the TLS settings out of the server configuration.
func ConfigFrom(cfg *config.Config) *TLSConfig {
	return &TLSConfig{
		EnableTLS:   cfg.Server.EnableTLS,
		AutoCert:    cfg.Server.AutoCert,
		Domain:      cfg.Server.Domain,
		CertFile:    cfg.Server.CertFile,
		KeyFile:     cfg.Server.KeyFile,
		AutoCertDir: cfg.Server.AutoCertDir,
		Email:       cfg.Server.Email,
		Environment: cfg.Environment,
	}
}

func NewTLSManager(cfg *TLSConfig) *TLSManager {
	manager := &TLSManager{
		config: cfg,
	}

	if cfg.AutoCert && cfg.EnableTLS && cfg.Domain != "" {
		manager.setupAutoCert()
	}

	return manager
}

func (m *TLSManager) setupAutoCert() {
	if err := os.MkdirAll(m.config.AutoCertDir, 0o700); err != nil {
		util.Warn("Could not create autocert directory", zap.Error(err))
		return
	}

	m.autoCert = &autocert.Manager{
		Prompt:     autocert.AcceptTOS,
		HostPolicy: autocert.HostWhitelist(m.config.Domain),
		Cache:      autocert.DirCache(m.config.AutoCertDir),
		Email:      m.config.Email,
	}

	util.Info("AutoCert configured",
		zap.String("domain", m.config.Domain),
		zap.String("cache_dir", m.config.AutoCertDir))
}

// GetCertificate tries autocert, then the configured key pair, then a
// self-signed certificate outside production.
func (m *TLSManager) GetCertificate(hello *tls.ClientHelloInfo) (*tls.Certificate, error) {
	if m.autoCert != nil {
		cert, err := m.autoCert.GetCertificate(hello)
		if err == nil {
			return cert, nil
		}
		util.Debug("AutoCert unavailable for handshake", zap.String("server_name", hello.ServerName), zap.Error(err))
	}

	if cert, err := m.staticCert(); err == nil && cert != nil {
		return cert, nil
	}

	if m.config.Environment == "production" {
		return nil, errors.New("no certificate available")
	}
	return m.devCert()
}

func (m *TLSManager) staticCert() (*tls.Certificate, error) {
	if m.config.CertFile == "" || m.config.KeyFile == "" {
		return nil, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.static != nil {
		return m.static, nil
	}
	cert, err := tls.LoadX509KeyPair(m.config.CertFile, m.config.KeyFile)
	if err != nil {
		util.Warn("Failed to load TLS key pair", zap.String("cert_file", m.config.CertFile), zap.Error(err))
		return nil, err
	}
	m.static = &cert
	return m.static, nil
}

func (m *TLSManager) devCert() (*tls.Certificate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.selfSigned != nil {
		return m.selfSigned, nil
	}

	hosts := []string{"localhost", "127.0.0.1", "::1"}
	if m.config.Domain != "" {
		hosts = append([]string{m.config.Domain}, hosts...)
	}
	cert, err := NewDevCertGenerator(m.config.AutoCertDir).GenerateCert(hosts)
	if err != nil {
		return nil, fmt.Errorf("failed to generate self-signed certificate: %w", err)
	}
	m.selfSigned = &cert
	return m.selfSigned, nil
}

func (m *TLSManager) GetTLSConfig() *tls.Config {
	return &tls.Config{
		GetCertificate: m.GetCertificate,
		NextProtos:     []string{"h2", "http/1.1"},
		MinVersion:     tls.VersionTLS12,
		CurvePreferences: []tls.CurveID{
			tls.X25519,
			tls.CurveP256,
		},
		CipherSuites: []uint16{
			tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305,
			tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305,
			tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
			tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
		},
	}
}

// HTTPHandler answers ACME http-01 challenges and passes everything else
// to fallback. Without autocert it returns fallback unchanged.
func (m *TLSManager) HTTPHandler(fallback http.Handler) http.Handler {
	if m.autoCert == nil {
		return fallback
	}
	return m.autoCert.HTTPHandler(fallback)
}

func (m *TLSManager) GetAutocertManager() *autocert.Manager {
	return m.autoCert
}
