// Package natssink publishes batch job progress to NATS.
package natssink

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lead-engine/internal/model"
)

// DefaultPrefix is the subject prefix when none is configured.
const DefaultPrefix = "leads.batch"

// Publisher is the subset of *nats.Conn the sink uses.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// Sink publishes each progress snapshot as JSON on <prefix>.<jobId>.
type Sink struct {
	pub    Publisher
	prefix string
	close  func()
}

// New wraps an existing publisher.
func New(pub Publisher, prefix string) *Sink {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Sink{pub: pub, prefix: prefix}
}

// Connect dials NATS and returns a sink that owns the connection.
func Connect(url, prefix string) (*Sink, error) {
	conn, err := nats.Connect(
		url,
		nats.Name("lead-engine"),
		nats.Timeout(2*time.Second),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(60),
		nats.RetryOnFailedConnect(true),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			zap.L().Warn("natssink: disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			zap.L().Info("natssink: reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, eris.Wrap(err, "natssink: connect")
	}
	s := New(conn, prefix)
	s.close = func() {
		if err := conn.Drain(); err != nil {
			conn.Close()
		}
	}
	return s, nil
}

// Subject returns the subject for a job.
func (s *Sink) Subject(jobID string) string {
	return s.prefix + "." + jobID
}

// Publish implements batch.Sink.
func (s *Sink) Publish(ctx context.Context, p model.BatchJobProgress) error {
	if err := ctx.Err(); err != nil {
		return eris.Wrap(err, "natssink: publish")
	}
	data, err := json.Marshal(p)
	if err != nil {
		return eris.Wrap(err, "natssink: marshal progress")
	}
	if err := s.pub.Publish(s.Subject(p.JobID), data); err != nil {
		return eris.Wrapf(err, "natssink: publish %s", p.JobID)
	}
	return nil
}

// Close drains the owned connection, if any.
func (s *Sink) Close() {
	if s.close != nil {
		s.close()
	}
}
