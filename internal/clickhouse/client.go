package clickhouse

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"syara/config"
)

// Client writes pipeline audit events. Both services record tick and message
// outcomes here; a write failure is logged by callers and never fails the
// pipeline itself.
type Client struct {
	conn     driver.Conn
	database string
}

func NewClient(cfg config.ClickHouseConfig) (*Client, error) {
	opts := &clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
		MaxOpenConns: 10,
		MaxIdleConns: 5,
		DialTimeout:  time.Second * 30,
	}

	// Native protocol on port 9000 runs without TLS; 8443 is the HTTPS port.
	if cfg.Port == 8443 {
		opts.TLS = &tls.Config{
			InsecureSkipVerify: true,
		}
	}

	conn, err := clickhouse.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	return &Client{
		conn:     conn,
		database: cfg.Database,
	}, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

// InsertPipelineEvent appends one audit row for an export tick or a consumed
// message.
func (c *Client) InsertPipelineEvent(ctx context.Context, data map[string]interface{}) error {
	query := fmt.Sprintf(`
		INSERT INTO %s.pipeline_events (
			service, event, stage, message_bytes, car_count, error, event_time
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`, c.database)

	return c.conn.Exec(ctx, query,
		data["service"],
		data["event"],
		data["stage"],
		data["message_bytes"],
		data["car_count"],
		data["error"],
		data["event_time"],
	)
}

func (c *Client) Conn() driver.Conn {
	return c.conn
}
