package scylla

import (
	"context"
	"fmt"
	"time"

	"github.com/gocql/gocql"
	"go.uber.org/zap"

	"github.com/web-portfolio-personal/JAML-Ejercicios/internal/config"
	"github.com/web-portfolio-personal/JAML-Ejercicios/internal/util"
)

// PreparedStatements holds the CQL used by the document store.
type PreparedStatements struct {
	InsertDocument string
	GetDocument    string
	UpdateDocument string
	DeleteDocument string
	ListBucket     string
	ClaimUnique    string
	ReleaseUnique  string
}

type ScyllaClient struct {
	Session  *gocql.Session
	config   *config.ScyllaConfig
	Prepared *PreparedStatements
}

func newCluster(cfg *config.Config, keyspace string) *gocql.ClusterConfig {
	scyllaConfig := cfg.Scylla

	cluster := gocql.NewCluster(scyllaConfig.Nodes...)
	cluster.Keyspace = keyspace
	cluster.Consistency = gocql.LocalQuorum
	cluster.SerialConsistency = gocql.LocalSerial
	cluster.Timeout = 10 * time.Second
	cluster.ConnectTimeout = 10 * time.Second
	cluster.NumConns = 2
	cluster.SocketKeepalive = 30 * time.Second
	cluster.PageSize = 1000
	cluster.RetryPolicy = &gocql.ExponentialBackoffRetryPolicy{
		Min:        100 * time.Millisecond,
		Max:        2 * time.Second,
		NumRetries: 3,
	}

	if scyllaConfig.TLS {
		cluster.SslOpts = &gocql.SslOptions{
			CaPath:                 scyllaConfig.TLSFiles.CAFile,
			CertPath:               scyllaConfig.TLSFiles.CertFile,
			KeyPath:                scyllaConfig.TLSFiles.KeyFile,
			EnableHostVerification: true,
		}
	}

	if scyllaConfig.Username != "" && scyllaConfig.Password != "" {
		cluster.Authenticator = gocql.PasswordAuthenticator{
			Username: scyllaConfig.Username,
			Password: scyllaConfig.Password,
		}
	}
	return cluster
}

func NewScyllaClient(cfg *config.Config, logger *zap.Logger) (*ScyllaClient, error) {
	scyllaConfig := cfg.Scylla

	session, err := newCluster(cfg, scyllaConfig.Keyspace).CreateSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create scylla session: %w", err)
	}

	client := &ScyllaClient{
		Session:  session,
		config:   &scyllaConfig,
		Prepared: prepareStatements(),
	}

	logger.Info("ScyllaDB client initialized",
		zap.Strings("nodes", scyllaConfig.Nodes),
		zap.String("keyspace", scyllaConfig.Keyspace))

	return client, nil
}

func prepareStatements() *PreparedStatements {
	return &PreparedStatements{
		InsertDocument: `INSERT INTO documents (collection, bucket, id, data, version, uniques, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?) IF NOT EXISTS`,
		GetDocument: `SELECT data, version, uniques FROM documents
			WHERE collection = ? AND bucket = ? AND id = ?`,
		UpdateDocument: `UPDATE documents SET data = ?, version = ?, uniques = ?
			WHERE collection = ? AND bucket = ? AND id = ? IF version = ?`,
		DeleteDocument: `DELETE FROM documents WHERE collection = ? AND bucket = ? AND id = ? IF EXISTS`,
		ListBucket: `SELECT id, data, version, uniques FROM documents
			WHERE collection = ? AND bucket = ?`,
		ClaimUnique: `INSERT INTO unique_keys (collection, field, value, owner)
			VALUES (?, ?, ?, ?) IF NOT EXISTS`,
		ReleaseUnique: `DELETE FROM unique_keys WHERE collection = ? AND field = ? AND value = ? IF owner = ?`,
	}
}

// Migrate creates the keyspace and tables. It opens its own session
// without a keyspace so it can run before the keyspace exists.
func Migrate(ctx context.Context, cfg *config.Config) error {
	session, err := newCluster(cfg, "").CreateSession()
	if err != nil {
		return fmt.Errorf("failed to create scylla session: %w", err)
	}
	defer session.Close()

	ks := cfg.Scylla.Keyspace
	stmts := []string{
		fmt.Sprintf(`CREATE KEYSPACE IF NOT EXISTS %s
			WITH replication = {'class': 'NetworkTopologyStrategy', 'replication_factor': 3}`, ks),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.documents (
			collection text,
			bucket int,
			id text,
			data blob,
			version bigint,
			uniques map<text, text>,
			created_at timestamp,
			PRIMARY KEY ((collection, bucket), id)
		)`, ks),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.unique_keys (
			collection text,
			field text,
			value text,
			owner text,
			PRIMARY KEY ((collection, field, value))
		)`, ks),
	}
	for _, stmt := range stmts {
		if err := session.Query(stmt).WithContext(ctx).Exec(); err != nil {
			return fmt.Errorf("scylla migration failed: %w", err)
		}
	}

	util.Info("ScyllaDB schema is up to date", zap.String("keyspace", ks))
	return nil
}

func (s *ScyllaClient) Close() {
	if s.Session != nil {
		s.Session.Close()
		util.Info("ScyllaDB client closed")
	}
}

func (s *ScyllaClient) Query(ctx context.Context, stmt string, values ...interface{}) *gocql.Query {
	return s.Session.Query(stmt, values...).WithContext(ctx)
}

func (s *ScyllaClient) HealthCheck(ctx context.Context) error {
	var clusterName string
	err := s.Session.Query(`SELECT cluster_name FROM system.local`).WithContext(ctx).Scan(&clusterName)
	if err != nil {
		return fmt.Errorf("scylla health check failed: %w", err)
	}
	util.Debug("ScyllaDB health check passed", zap.String("cluster_name", clusterName))
	return nil
}

// ScanWithRetry retries transient read failures with a short linear backoff.
func (s *ScyllaClient) ScanWithRetry(query *gocql.Query, dest ...interface{}) error {
	var lastErr error
	for i := 0; i < 3; i++ {
		err := query.Scan(dest...)
		if err == nil || err == gocql.ErrNotFound {
			return err
		}
		lastErr = err
		if i < 2 {
			time.Sleep(time.Duration(i+1) * 100 * time.Millisecond)
		}
	}
	return lastErr
}
