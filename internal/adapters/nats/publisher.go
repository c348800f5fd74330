// Package natsadapter publishes job lifecycle events over plain NATS
// pub/sub. Events are fire-and-forget progress signals for dashboard
// clients, not a work queue.
package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/urbanlens/urbanlens/internal/core/domain"
)

const (
	// SubjectPrefix is the root of the job event subject space.
	// Per-job subjects are geodata.jobs.<jobID>.
	SubjectPrefix = "geodata.jobs"

	// SubjectWildcard matches all job events for relay subscribers.
	SubjectWildcard = "geodata.jobs.>"
)

// Publisher implements ports.EventPublisher.
type Publisher struct {
	conn *nats.Conn
}

// NewPublisher connects with unlimited reconnects so a NATS restart
// does not take the pipeline down with it.
func NewPublisher(url string) (*Publisher, error) {
	conn, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return &Publisher{conn: conn}, nil
}

func (p *Publisher) PublishJobEvent(_ context.Context, event *domain.JobEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.conn.Publish(SubjectPrefix+"."+event.JobID, data)
}

// Ping reports whether the connection is currently up.
func (p *Publisher) Ping(_ context.Context) error {
	if !p.conn.IsConnected() {
		return fmt.Errorf("nats disconnected")
	}
	return nil
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}

// RawConn creates a plain NATS connection for subscribing (e.g. WebSocket relay).
func RawConn(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
}
