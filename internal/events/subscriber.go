package events

import (
	"context"
	"time"

	"github.com/anonto42/nano-midea/relay/internal/apperrors"
	"github.com/anonto42/nano-midea/relay/internal/dispatch"
	"github.com/nats-io/nats.go"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Dispatcher is satisfied by *dispatch.Service.
type Dispatcher interface {
	Dispatch(ctx context.Context, ev dispatch.Event) (*dispatch.Report, error)
}

// Acker is the part of *nats.Msg the handler needs.
type Acker interface {
	Ack(opts ...nats.AckOpt) error
	Nak(opts ...nats.AckOpt) error
	Term(opts ...nats.AckOpt) error
}

// DispatchSubscriber feeds events published on SubjectDispatch into the dispatcher.
type DispatchSubscriber struct {
	client     *Client
	dispatcher Dispatcher
	ctx        context.Context
	ackWait    time.Duration
	log        *logrus.Entry
	sub        *nats.Subscription
}

// NewDispatchSubscriber creates the subscriber. ackWait should exceed the longest dispatch.
func NewDispatchSubscriber(ctx context.Context, client *Client, dispatcher Dispatcher, ackWait time.Duration, log *logrus.Logger) *DispatchSubscriber {
	return &DispatchSubscriber{
		client:     client,
		dispatcher: dispatcher,
		ctx:        ctx,
		ackWait:    ackWait,
		log:        log.WithField("component", "dispatch_subscriber"),
	}
}

func (s *DispatchSubscriber) Start() error {
	if err := s.client.EnsureStream(StreamName, []string{SubjectDispatch}); err != nil {
		return err
	}

	sub, err := s.client.SubscribeDurable(SubjectDispatch, "relay-dispatch", "relay-workers", s.ackWait, func(msg *nats.Msg) {
		s.Handle(msg.Data, msg)
	})
	if err != nil {
		return err
	}
	s.sub = sub
	s.log.Info("Dispatch subscriber started successfully")
	return nil
}

// Handle dispatches one message. Malformed events are terminated so they are
// not redelivered; resolution failures and messages that arrive after shutdown
// began are nak'ed for redelivery. Per-endpoint delivery failures never cause
// redelivery.
func (s *DispatchSubscriber) Handle(data []byte, msg Acker) {
	ev, err := dispatch.DecodeEvent(data, time.Now())
	if err != nil {
		s.log.WithError(err).Warn("Dropping malformed dispatch event")
		if err := msg.Term(); err != nil {
			s.log.WithError(err).Error("Failed to terminate message")
		}
		return
	}

	if s.ctx.Err() != nil {
		s.log.WithField("event_id", ev.ID).Info("Shutting down, leaving event for redelivery")
		if err := msg.Nak(); err != nil {
			s.log.WithError(err).Error("Failed to nak message")
		}
		return
	}

	// a dispatch already started finishes while the subscription drains
	report, err := s.dispatcher.Dispatch(context.WithoutCancel(s.ctx), ev)
	if err != nil {
		log := s.log.WithError(err).WithField("event_id", ev.ID)
		if errors.Is(err, apperrors.ErrInvalidEvent) {
			log.Warn("Dropping undeliverable dispatch event")
			if err := msg.Term(); err != nil {
				s.log.WithError(err).Error("Failed to terminate message")
			}
			return
		}
		log.Error("Dispatch failed, requesting redelivery")
		if err := msg.Nak(); err != nil {
			s.log.WithError(err).Error("Failed to nak message")
		}
		return
	}

	s.log.WithFields(logrus.Fields{
		"event_id":  report.EventID,
		"delivered": report.Delivered,
		"failed":    report.TransientFailed + report.TerminalFailed,
	}).Debug("Dispatched event from NATS")
	if err := msg.Ack(); err != nil {
		s.log.WithError(err).Error("Failed to ack message")
	}
}

// Stop drains the subscription and waits for handlers already running to
// ack. If the drain cannot finish before ctx is done the connection is closed;
// unacked events are redelivered once their ack wait expires.
func (s *DispatchSubscriber) Stop(ctx context.Context) error {
	if s.sub != nil {
		if err := s.sub.Drain(); err != nil {
			s.client.Close()
			return errors.Wrap(err, "drain subscription")
		}
	}
	if err := s.client.Drain(); err != nil {
		s.client.Close()
		return errors.Wrap(err, "drain connection")
	}
	if err := s.client.WaitClosed(ctx); err != nil {
		s.client.Close()
		return err
	}
	return nil
}
