package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/web-portfolio-personal/JAML-Ejercicios/internal/config"
	"github.com/web-portfolio-personal/JAML-Ejercicios/internal/factory"
	"github.com/web-portfolio-personal/JAML-Ejercicios/internal/util"
)

// Set at build time via -ldflags
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	serve := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}

	migrate := &cobra.Command{
		Use:   "migrate",
		Short: "Create the schema of the configured backends",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig()
			util.Init(cfg.Environment, cfg.Logging.Level, cfg.Logging.Format)
			defer util.Sync()

			ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
			defer cancel()
			if err := factory.Migrate(ctx, cfg); err != nil {
				util.Error("Migration failed", util.ErrorField(err))
				return err
			}
			util.Info("Migrations completed", util.String("store_backend", cfg.Store.Backend))
			return nil
		},
	}

	root := &cobra.Command{
		Use:           "jaml-ejercicios",
		Short:         "REST API for the JAML exercises",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          serve.RunE,
	}
	root.AddCommand(serve, migrate)
	return root
}

func runServe() error {
	// Initialize factory (which loads config and initializes all clients)
	f, err := factory.NewFactory()
	if err != nil {
		return fmt.Errorf("failed to initialize factory: %w", err)
	}
	defer f.Close()

	cfg := f.Config()
	router := f.Router()

	serverAddr := cfg.GetServerAddress()
	if cfg.Server.EnableTLS {
		serverAddr = fmt.Sprintf(":%d", cfg.Server.TLSPort)
	}

	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	if !cfg.Server.EnableTLS {
		util.Warn("Starting HTTP server - TLS is disabled",
			util.String("environment", cfg.Environment),
			util.Int("port", cfg.Server.Port),
		)
		return serve(f, cfg, server, nil)
	}

	tlsManager := f.TLSManager()
	server.TLSConfig = tlsManager.GetTLSConfig()

	// Plain HTTP only answers ACME challenges and redirects to HTTPS.
	redirect := &http.Server{
		Addr:              cfg.GetServerAddress(),
		Handler:           tlsManager.HTTPHandler(http.HandlerFunc(redirectToHTTPS(cfg))),
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
	}

	util.Info("Starting HTTPS server",
		util.String("environment", cfg.Environment),
		util.Int("port", cfg.Server.TLSPort),
		util.Bool("auto_cert", cfg.Server.AutoCert),
	)
	return serve(f, cfg, server, redirect)
}

func serve(f *factory.Factory, cfg *config.Config, server, redirect *http.Server) error {
	errCh := make(chan error, 2)

	go func() {
		var err error
		if cfg.Server.EnableTLS {
			// Certificates come from TLSConfig.GetCertificate.
			err = server.ListenAndServeTLS("", "")
		} else {
			err = server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("server failed: %w", err)
		}
	}()

	if redirect != nil {
		go func() {
			util.Info("Starting HTTP redirect server", util.String("address", redirect.Addr))
			if err := redirect.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				util.Error("HTTP redirect server failed", util.ErrorField(err))
			}
		}()
	}

	util.Info("Server started successfully",
		util.String("environment", cfg.Environment),
		util.Bool("tls_enabled", cfg.Server.EnableTLS),
		util.String("address", server.Addr),
	)

	return waitForShutdown(f, errCh, server, redirect)
}

func redirectToHTTPS(cfg *config.Config) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		host := r.Host
		if cfg.Server.Domain != "" {
			host = cfg.Server.Domain
		}
		if h, _, err := net.SplitHostPort(host); err == nil {
			host = h
		}
		target := fmt.Sprintf("https://%s:%d%s", host, cfg.Server.TLSPort, r.URL.RequestURI())
		if cfg.Server.TLSPort == 443 {
			target = "https://" + host + r.URL.RequestURI()
		}
		http.Redirect(w, r, target, http.StatusMovedPermanently)
	}
}

func waitForShutdown(f *factory.Factory, errCh <-chan error, servers ...*http.Server) error {
	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer signal.Stop(signalChan)

	var runErr error
	select {
	case sig := <-signalChan:
		util.Info("Received shutdown signal", util.String("signal", sig.String()))
	case runErr = <-errCh:
		util.Error("Server stopped unexpectedly", util.ErrorField(runErr))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, srv := range servers {
		if srv == nil {
			continue
		}
		if err := srv.Shutdown(ctx); err != nil {
			util.Error("Failed to shutdown server gracefully", util.ErrorField(err))
		} else {
			util.Info("Server shutdown completed", util.String("address", srv.Addr))
		}
	}
	f.Close()
	return runErr
}
