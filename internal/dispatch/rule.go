package dispatch

import (
	"context"
	"encoding/json"

	"github.com/anonto42/nano-midea/relay/internal/apperrors"
	"github.com/anonto42/nano-midea/relay/internal/models"
	"github.com/anonto42/nano-midea/relay/internal/services"
	"github.com/pkg/errors"
)

// FollowerSource walks every follower of a user.
type FollowerSource interface {
	Followers(userID models.UserID, pageSize int) *services.FollowerIterator
}

// TopicSource streams the members of a topic.
type TopicSource interface {
	Members(ctx context.Context, topic string, fn func(models.UserID) error) error
}

// Resolvers are the lookups a Rule may use. Topics is nil when topic membership is not configured.
type Resolvers struct {
	Followers FollowerSource
	Topics    TopicSource
	PageSize  int
}

// Rule resolves the recipients of an event. Resolve calls emit once per
// recipient it finds and stops at the first error emit returns. Duplicates are
// allowed; the dispatcher removes them.
type Rule interface {
	Kind() string
	Validate() error
	Resolve(ctx context.Context, r Resolvers, emit func(models.UserID) error) error
}

// Explicit targets a fixed list of users.
type Explicit struct {
	UserIDs []models.UserID
}

func (Explicit) Kind() string { return "explicit" }

func (e Explicit) Validate() error { return nil }

func (e Explicit) Resolve(ctx context.Context, _ Resolvers, emit func(models.UserID) error) error {
	for _, id := range e.UserIDs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := emit(id); err != nil {
			return err
		}
	}
	return nil
}

// FollowersOf targets every follower of ActorID, across all pages.
type FollowersOf struct {
	ActorID models.UserID
}

func (FollowersOf) Kind() string { return "followers" }

func (f FollowersOf) Validate() error {
	if f.ActorID == "" {
		return errors.Wrap(apperrors.ErrInvalidEvent, "followers rule needs actor_id")
	}
	return nil
}

func (f FollowersOf) Resolve(ctx context.Context, r Resolvers, emit func(models.UserID) error) error {
	it := r.Followers.Followers(f.ActorID, r.PageSize)
	for it.Next(ctx) {
		if err := emit(it.UserID()); err != nil {
			return err
		}
	}
	return it.Err()
}

// TopicSubscribers targets every member of Topic.
type TopicSubscribers struct {
	Topic string
}

func (TopicSubscribers) Kind() string { return "topic" }

func (t TopicSubscribers) Validate() error {
	if t.Topic == "" {
		return errors.Wrap(apperrors.ErrInvalidEvent, "topic rule needs topic")
	}
	return nil
}

func (t TopicSubscribers) Resolve(ctx context.Context, r Resolvers, emit func(models.UserID) error) error {
	if r.Topics == nil {
		return errors.Wrap(apperrors.ErrInvalidEvent, "topic membership is not configured")
	}
	return r.Topics.Members(ctx, t.Topic, emit)
}

// AnyOf targets the union of its rules.
type AnyOf struct {
	Rules []Rule
}

func (AnyOf) Kind() string { return "any" }

func (a AnyOf) Validate() error {
	if len(a.Rules) == 0 {
		return errors.Wrap(apperrors.ErrInvalidEvent, "any rule needs at least one rule")
	}
	for _, rule := range a.Rules {
		if rule == nil {
			return errors.Wrap(apperrors.ErrInvalidEvent, "nil rule")
		}
		if err := rule.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (a AnyOf) Resolve(ctx context.Context, r Resolvers, emit func(models.UserID) error) error {
	for _, rule := range a.Rules {
		if err := rule.Resolve(ctx, r, emit); err != nil {
			return err
		}
	}
	return nil
}

type ruleJSON struct {
	Type    string            `json:"type"`
	UserIDs []models.UserID   `json:"user_ids,omitempty"`
	ActorID models.UserID     `json:"actor_id,omitempty"`
	Topic   string            `json:"topic,omitempty"`
	Rules   []json.RawMessage `json:"rules,omitempty"`
}

// DecodeRule parses the wire form of a rule:
//
//	{"type":"explicit","user_ids":["a","b"]}
//	{"type":"followers","actor_id":"a"}
//	{"type":"topic","topic":"launches"}
//	{"type":"any","rules":[...]}
func DecodeRule(data []byte) (Rule, error) {
	var raw ruleJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(apperrors.ErrInvalidEvent, "rule: "+err.Error())
	}

	var rule Rule
	switch raw.Type {
	case "explicit":
		rule = Explicit{UserIDs: raw.UserIDs}
	case "followers":
		rule = FollowersOf{ActorID: raw.ActorID}
	case "topic":
		rule = TopicSubscribers{Topic: raw.Topic}
	case "any":
		composite := AnyOf{Rules: make([]Rule, 0, len(raw.Rules))}
		for _, child := range raw.Rules {
			r, err := DecodeRule(child)
			if err != nil {
				return nil, err
			}
			composite.Rules = append(composite.Rules, r)
		}
		rule = composite
	default:
		return nil, errors.Wrapf(apperrors.ErrInvalidEvent, "unknown rule type %q", raw.Type)
	}

	if err := rule.Validate(); err != nil {
		return nil, err
	}
	return rule, nil
}
