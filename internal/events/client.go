// Package events consumes dispatch events from NATS JetStream.
package events

import (
	"context"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	StreamName      = "NOTIFICATIONS"
	SubjectDispatch = "notifications.dispatch"
)

type Client struct {
	conn   *nats.Conn
	js     nats.JetStreamContext
	log    *logrus.Entry
	closed chan struct{}
}

type Config struct {
	URL           string
	ClientID      string
	MaxReconnects int
	ReconnectWait time.Duration
}

func NewClient(cfg Config, log *logrus.Logger) (*Client, error) {
	entry := log.WithField("component", "nats")
	closed := make(chan struct{})
	if cfg.MaxReconnects == 0 {
		cfg.MaxReconnects = -1
	}
	if cfg.ReconnectWait == 0 {
		cfg.ReconnectWait = 2 * time.Second
	}

	opts := []nats.Option{
		nats.Name(cfg.ClientID),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				entry.WithError(err).Warn("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			entry.Infof("NATS reconnected to %s", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			entry.Info("NATS connection closed")
			close(closed)
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to NATS")
	}

	// JetStream context for durable subscriptions
	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, errors.Wrap(err, "failed to create JetStream context")
	}

	entry.Infof("Connected to NATS at %s", nc.ConnectedUrl())
	return &Client{conn: nc, js: js, log: entry, closed: closed}, nil
}

// EnsureStream creates the work-queue stream for subjects. An existing stream is left as is.
func (c *Client) EnsureStream(name string, subjects []string) error {
	_, err := c.js.AddStream(&nats.StreamConfig{
		Name:      name,
		Subjects:  subjects,
		Storage:   nats.FileStorage,
		MaxAge:    24 * time.Hour * 7,
		Retention: nats.WorkQueuePolicy,
	})
	if err != nil && !errors.Is(err, nats.ErrStreamNameAlreadyInUse) {
		return errors.Wrapf(err, "failed to create stream %s", name)
	}
	return nil
}

// SubscribeDurable creates a JetStream durable queue subscription with manual acks.
func (c *Client) SubscribeDurable(subject, durableName, queueGroup string, ackWait time.Duration, handler nats.MsgHandler) (*nats.Subscription, error) {
	sub, err := c.js.QueueSubscribe(
		subject,
		queueGroup,
		handler,
		nats.Durable(durableName),
		nats.ManualAck(),
		nats.AckExplicit(),
		nats.MaxDeliver(3),
		nats.AckWait(ackWait),
	)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create durable subscription to %s", subject)
	}

	c.log.WithFields(logrus.Fields{"subject": subject, "durable": durableName, "queue": queueGroup}).Info("Durable subscription created")
	return sub, nil
}

// Drain starts draining: in-flight handlers finish, then the connection closes.
// It does not wait; see WaitClosed.
func (c *Client) Drain() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Drain()
}

// WaitClosed blocks until the connection has closed or ctx is done.
func (c *Client) WaitClosed(ctx context.Context) error {
	select {
	case <-c.closed:
		return nil
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "NATS drain did not finish")
	}
}

func (c *Client) Close() {
	if c.conn != nil {
		c.conn.Close()
	}
}
