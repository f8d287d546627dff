package influxdb

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/sensorhub/sensorhub-core/internal/infrastructure/config"
)

const (
	connectTimeout = 10 * time.Second
	pingTimeout    = 5 * time.Second
)

// Mirror defaults applied when the config leaves a value unset.
const (
	defaultOrg           = "sensorhub"
	defaultBucket        = "readings"
	defaultBatchSize     = 100
	defaultFlushInterval = 10 * time.Second
)

// mirrorOptions is the resolved write configuration for the readings mirror.
type mirrorOptions struct {
	org           string
	bucket        string
	batchSize     uint
	flushInterval time.Duration
}

// resolveOptions fills unset or non-positive mirror settings with defaults.
//
// Parameters:
//   - cfg: the influxdb section of config.yaml
//
// Returns:
//   - mirrorOptions: org, bucket and batching ready for the write API
func resolveOptions(cfg config.InfluxDBConfig) mirrorOptions {
	opts := mirrorOptions{
		org:           cfg.Org,
		bucket:        cfg.Bucket,
		batchSize:     defaultBatchSize,
		flushInterval: defaultFlushInterval,
	}
	if opts.org == "" {
		opts.org = defaultOrg
	}
	if opts.bucket == "" {
		opts.bucket = defaultBucket
	}
	if cfg.BatchSize > 0 {
		opts.batchSize = uint(cfg.BatchSize) // #nosec G115 -- checked positive
	}
	if cfg.FlushInterval > 0 {
		opts.flushInterval = time.Duration(cfg.FlushInterval) * time.Second
	}
	return opts
}

// Client mirrors sensor readings into an InfluxDB v2 bucket.
//
// The relational store answers every query; the bucket is a write-only copy
// for dashboards and retention policies. Methods are safe for concurrent use
// and writes never block the ingestion path.
type Client struct {
	client   influxdb2.Client
	writeAPI api.WriteAPI

	connected atomic.Bool

	mu      sync.RWMutex
	onError func(err error)
}

// Connect opens the readings mirror.
//
// Steps:
//  1. Resolve org, bucket and batching, defaulting what the config omits
//  2. Build the client with token auth
//  3. Ping once; an unhealthy or unreachable server aborts startup of the mirror
//  4. Start forwarding async batch errors to the SetOnError callback
//
// Parameters:
//   - cfg: the influxdb section of config.yaml
//
// Returns:
//   - *Client: mirror ready for WriteReading
//   - error: ErrDisabled when the mirror is switched off, wrapped
//     ErrConnectionFailed when the ping fails
func Connect(cfg config.InfluxDBConfig) (*Client, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}

	opts := resolveOptions(cfg)

	client := influxdb2.NewClientWithOptions(
		cfg.URL,
		cfg.Token,
		influxdb2.DefaultOptions().
			SetBatchSize(opts.batchSize).
			SetFlushInterval(uint(opts.flushInterval.Milliseconds())), // #nosec G115 -- positive duration
	)

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	healthy, err := client.Ping(ctx)
	switch {
	case err != nil:
		client.Close()
		return nil, fmt.Errorf("%w: ping %s: %w", ErrConnectionFailed, cfg.URL, err)
	case !healthy:
		client.Close()
		return nil, fmt.Errorf("%w: %s not healthy", ErrConnectionFailed, cfg.URL)
	}

	c := &Client{
		client:   client,
		writeAPI: client.WriteAPI(opts.org, opts.bucket),
	}
	c.connected.Store(true)

	go c.forwardWriteErrors(c.writeAPI.Errors())

	return c, nil
}

func (c *Client) forwardWriteErrors(errs <-chan error) {
	for err := range errs {
		c.mu.RLock()
		fn := c.onError
		c.mu.RUnlock()
		if fn != nil {
			fn(err)
		}
	}
}

// Close flushes buffered readings and releases the client. Safe on nil.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	if !c.connected.Swap(false) {
		return nil
	}

	c.writeAPI.Flush()
	c.client.Close()
	return nil
}

// HealthCheck pings the server.
//
// Returns:
//   - error: ErrNotConnected after Close, otherwise the ping failure if any
func (c *Client) HealthCheck(ctx context.Context) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	healthy, err := c.client.Ping(ctx)
	if err != nil {
		return fmt.Errorf("influxdb health check failed: %w", err)
	}
	if !healthy {
		return fmt.Errorf("influxdb health check failed: server not healthy")
	}
	return nil
}

// IsConnected reports whether the mirror is open.
func (c *Client) IsConnected() bool {
	return c != nil && c.connected.Load()
}

// SetOnError registers the callback for failed batch writes.
func (c *Client) SetOnError(fn func(err error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onError = fn
}

// Flush blocks until buffered readings are sent. No-op after Close.
func (c *Client) Flush() {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.Flush()
}
