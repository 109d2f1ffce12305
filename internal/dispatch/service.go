package dispatch

import (
	"context"
	"time"

	"github.com/anonto42/nano-midea/relay/internal/apperrors"
	"github.com/anonto42/nano-midea/relay/internal/models"
	"github.com/anonto42/nano-midea/relay/internal/push"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultConcurrency      = 16
	DefaultDeliveryTimeout  = 10 * time.Second
	DefaultFollowerPageSize = 100
	DefaultCleanupTimeout   = 5 * time.Second
	DefaultMessageTTL       = 24 * time.Hour
)

// SubscriptionSource lists a user's endpoints and forgets dead ones.
type SubscriptionSource interface {
	ListForUser(ctx context.Context, userID models.UserID) ([]models.PushSubscription, error)
	RemoveDead(ctx context.Context, sub models.PushSubscription) (bool, error)
}

type Config struct {
	// Concurrency bounds both subscription lookups and deliveries in flight.
	Concurrency      int
	DeliveryTimeout  time.Duration
	FollowerPageSize int
	CleanupTimeout   time.Duration
	// MessageTTL is how long push services hold a message for an offline
	// device when the event sets no ttl.
	MessageTTL time.Duration
}

func (c Config) withDefaults() Config {
	if c.Concurrency <= 0 {
		c.Concurrency = DefaultConcurrency
	}
	if c.DeliveryTimeout <= 0 {
		c.DeliveryTimeout = DefaultDeliveryTimeout
	}
	if c.FollowerPageSize <= 0 {
		c.FollowerPageSize = DefaultFollowerPageSize
	}
	if c.CleanupTimeout <= 0 {
		c.CleanupTimeout = DefaultCleanupTimeout
	}
	if c.MessageTTL <= 0 {
		c.MessageTTL = DefaultMessageTTL
	}
	return c
}

// Service resolves recipients for events and delivers to their subscriptions.
type Service struct {
	followers     FollowerSource
	subscriptions SubscriptionSource
	topics        TopicSource
	provider      push.Provider
	cfg           Config
	log           *logrus.Entry
}

// NewService wires the dispatcher. topics may be nil, in which case topic rules are rejected.
func NewService(followers FollowerSource, subscriptions SubscriptionSource, topics TopicSource, provider push.Provider, cfg Config, log *logrus.Logger) *Service {
	return &Service{
		followers:     followers,
		subscriptions: subscriptions,
		topics:        topics,
		provider:      provider,
		cfg:           cfg.withDefaults(),
		log:           log.WithField("component", "dispatch"),
	}
}

// Dispatch delivers ev to every subscription of every recipient its rule
// resolves to, at most once per subscription and without retries.
//
// The returned error is non-nil when recipients could not be resolved, when
// every subscription lookup failed, or when ctx was cancelled before the work
// finished; the Report is returned alongside it whenever recipients may have
// been reached. Delivery failures are reported per pair in the Report. When the event deadline passes, pairs not yet attempted
// are recorded as skipped and attempts already in flight run to their own
// timeout.
func (s *Service) Dispatch(ctx context.Context, ev Event) (*Report, error) {
	if err := ev.Validate(); err != nil {
		return nil, err
	}
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if !ev.Deadline.IsZero() {
		var cancel context.CancelFunc
		ctx, cancel = context.WithDeadline(ctx, ev.Deadline)
		defer cancel()
	}

	log := s.log.WithFields(logrus.Fields{"event_id": ev.ID, "rule": ev.Rule.Kind()})
	report := newReport(ev.ID)
	msg := push.Message{
		ID:      ev.ID,
		Payload: ev.Payload,
		TTL:     ev.TTL,
		Urgency: ev.Urgency,
		Topic:   ev.CollapseKey,
	}
	if msg.TTL == 0 {
		msg.TTL = s.cfg.MessageTTL
	}

	var (
		lookups    errgroup.Group
		deliveries errgroup.Group
	)
	lookups.SetLimit(s.cfg.Concurrency)
	deliveries.SetLimit(s.cfg.Concurrency)

	recipients := make(chan models.UserID)
	resolved := make(chan error, 1)
	go func() {
		defer close(recipients)
		resolved <- s.resolve(ctx, ev.Rule, recipients)
	}()

	for userID := range recipients {
		userID := userID
		report.addRecipient()
		lookups.Go(func() error {
			s.fanOut(ctx, log, userID, msg, &deliveries, report)
			return nil
		})
	}
	lookups.Wait()
	deliveries.Wait()

	if err := <-resolved; err != nil {
		if ctx.Err() == nil {
			log.WithError(err).WithField("recipients", report.Recipients).Error("recipient resolution failed")
			return report, errors.Wrap(err, "resolve recipients")
		}
		report.ResolutionIncomplete = true
		log.WithField("recipients", report.Recipients).Warn("recipient resolution cut short")
	}

	log.WithFields(logrus.Fields{
		"recipients":       report.Recipients,
		"delivered":        report.Delivered,
		"transient_failed": report.TransientFailed,
		"terminal_failed":  report.TerminalFailed,
		"skipped":          report.Skipped,
		"removed":          report.Removed,
	}).Info("dispatch finished")

	// a cancelled caller is not the event deadline: unfinished work must be retried
	if errors.Is(ctx.Err(), context.Canceled) && (report.ResolutionIncomplete || report.DeadlineSkipped > 0) {
		return report, errors.Wrap(ctx.Err(), "dispatch cancelled before completion")
	}
	if report.allLookupsFailed() {
		return report, errors.Wrap(apperrors.ErrStoreUnavailable, "subscription lookup failed for every recipient")
	}
	return report, nil
}

// resolve streams de-duplicated recipients into out until the rule is exhausted
// or ctx is done.
func (s *Service) resolve(ctx context.Context, rule Rule, out chan<- models.UserID) error {
	seen := make(map[models.UserID]struct{})
	resolvers := Resolvers{
		Followers: s.followers,
		Topics:    s.topics,
		PageSize:  s.cfg.FollowerPageSize,
	}
	return rule.Resolve(ctx, resolvers, func(userID models.UserID) error {
		if userID == "" {
			return nil
		}
		if _, ok := seen[userID]; ok {
			return nil
		}
		seen[userID] = struct{}{}
		select {
		case out <- userID:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
}

func (s *Service) fanOut(ctx context.Context, log *logrus.Entry, userID models.UserID, msg push.Message, deliveries *errgroup.Group, report *Report) {
	if ctx.Err() != nil {
		report.skipRecipient(userID, SkipDeadlineExceeded)
		return
	}

	subs, err := s.subscriptions.ListForUser(ctx, userID)
	if err != nil {
		if ctx.Err() != nil {
			report.skipRecipient(userID, SkipDeadlineExceeded)
			return
		}
		log.WithError(err).WithField("user_id", userID).Warn("subscription lookup failed")
		report.skipRecipient(userID, SkipLookupFailed)
		return
	}
	if len(subs) == 0 {
		report.skipRecipient(userID, SkipNoSubscriptions)
		return
	}

	report.addPairs(len(subs))
	for _, sub := range subs {
		sub := sub
		deliveries.Go(func() error {
			report.record(s.deliver(ctx, log, sub, msg))
			return nil
		})
	}
}

func (s *Service) deliver(ctx context.Context, log *logrus.Entry, sub models.PushSubscription, msg push.Message) DeliveryResult {
	res := DeliveryResult{UserID: sub.UserID, Endpoint: sub.Endpoint}
	if ctx.Err() != nil {
		res.Skipped = SkipDeadlineExceeded
		return res
	}

	// Once started, an attempt is bounded by the delivery timeout only.
	target := push.Target{Endpoint: sub.Endpoint, P256dh: sub.Keys.P256dh, Auth: sub.Keys.Auth}
	result := s.provider.Send(context.WithoutCancel(ctx), target, msg, s.cfg.DeliveryTimeout)

	res.Outcome = result.Outcome
	res.Reason = result.Reason
	res.StatusCode = result.StatusCode
	if res.Outcome != push.Delivered && res.Outcome != push.TerminalFailure {
		res.Outcome = push.TransientFailure
	}
	if res.Outcome != push.TerminalFailure {
		return res
	}

	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.CleanupTimeout)
	defer cancel()
	removed, err := s.subscriptions.RemoveDead(cleanupCtx, sub)
	if err != nil {
		log.WithError(err).WithField("user_id", sub.UserID).Warn("failed to remove dead subscription")
	}
	res.Removed = removed
	return res
}
