package database

import (
	"context"
	"fmt"
	"time"

	"github.com/gocql/gocql"

	"meshline-backend/pkg/config"
)

// DefaultCassandraQueryTimeout bounds queries issued without a deadline
const DefaultCassandraQueryTimeout = 5 * time.Second

// CassandraDB wraps the gocql session with context support
type CassandraDB struct {
	Session *gocql.Session
}

// NewCassandraDB creates a Cassandra session at quorum consistency
func NewCassandraDB(cfg config.CassandraConfig) (*CassandraDB, error) {
	cluster := gocql.NewCluster(cfg.Hosts...)
	cluster.Keyspace = cfg.Keyspace
	cluster.Consistency = gocql.Quorum

	if cfg.Timeout > 0 {
		cluster.Timeout = cfg.Timeout
	} else {
		cluster.Timeout = DefaultCassandraQueryTimeout
	}

	if cfg.Username != "" && cfg.Password != "" {
		cluster.Authenticator = gocql.PasswordAuthenticator{
			Username: cfg.Username,
			Password: cfg.Password,
		}
	}

	session, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create cassandra session: %w", err)
	}
	return &CassandraDB{Session: session}, nil
}

// Close closes the session
func (c *CassandraDB) Close() {
	c.Session.Close()
}

// QueryWithContext builds a query bound to the caller's context
func (c *CassandraDB) QueryWithContext(ctx context.Context, stmt string, values ...interface{}) *gocql.Query {
	return c.Session.Query(stmt, values...).WithContext(ctx)
}

// ExecWithContext executes a statement that returns no rows
func (c *CassandraDB) ExecWithContext(ctx context.Context, stmt string, values ...interface{}) error {
	return c.QueryWithContext(ctx, stmt, values...).Exec()
}
