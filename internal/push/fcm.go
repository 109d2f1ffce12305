package push

import (
	"context"
	"strconv"
	"time"

	"firebase.google.com/go/v4/messaging"
)

// fcmSender is the part of *messaging.Client the provider uses.
type fcmSender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// FCMProvider delivers through Firebase Cloud Messaging. The stored endpoint is
// the FCM registration token of the device.
type FCMProvider struct {
	client fcmSender
}

func NewFCMProvider(client *messaging.Client) *FCMProvider {
	return &FCMProvider{client: client}
}

func (p *FCMProvider) Name() string { return "fcm" }

func (p *FCMProvider) Send(ctx context.Context, target Target, msg Message, timeout time.Duration) Result {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	message := &messaging.Message{
		Token: target.Endpoint,
		Data: map[string]string{
			"id":      msg.ID,
			"payload": string(msg.Payload),
		},
	}
	if msg.TTL > 0 || msg.Topic != "" || msg.Urgency != "" {
		headers := map[string]string{}
		if msg.TTL > 0 {
			headers["TTL"] = strconv.Itoa(int(msg.TTL / time.Second))
		}
		if msg.Topic != "" {
			headers["Topic"] = msg.Topic
		}
		if msg.Urgency != "" {
			headers["Urgency"] = msg.Urgency
		}
		message.Webpush = &messaging.WebpushConfig{Headers: headers}
	}

	if _, err := p.client.Send(ctx, message); err != nil {
		return classifyFCMError(ctx, err)
	}
	return delivered(200)
}

// classifyFCMError treats only token-specific errors as terminal. INVALID_ARGUMENT
// also covers malformed payloads, which would otherwise wipe every subscription.
func classifyFCMError(ctx context.Context, err error) Result {
	switch {
	case ctx.Err() != nil:
		return transient("timeout: "+ctx.Err().Error(), 0)
	case messaging.IsUnregistered(err):
		return terminal("registration token unregistered: "+err.Error(), 404)
	case messaging.IsSenderIDMismatch(err):
		return terminal("registration token belongs to another sender: "+err.Error(), 403)
	default:
		return transient(err.Error(), 0)
	}
}
