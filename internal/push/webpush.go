package push

import (
	"context"
	"crypto/ecdh"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"
	"github.com/pkg/errors"
)

// VAPIDConfig holds the application server keys used to sign web push requests.
type VAPIDConfig struct {
	PublicKey  string
	PrivateKey string
	// Subject is a mailto: or https: contact for the push service operator.
	Subject string
}

func (v VAPIDConfig) Validate() error {
	if v.PublicKey == "" || v.PrivateKey == "" {
		return errors.New("VAPID public and private keys are required")
	}
	if !strings.HasPrefix(v.Subject, "mailto:") && !strings.HasPrefix(v.Subject, "https://") {
		return errors.New("VAPID subject must be a mailto: or https: URL")
	}
	return nil
}

// WebPushProvider delivers RFC 8030 web push messages with VAPID authentication.
type WebPushProvider struct {
	vapid  VAPIDConfig
	client webpush.HTTPClient
}

func NewWebPushProvider(vapid VAPIDConfig, client *http.Client) *WebPushProvider {
	if client == nil {
		client = &http.Client{}
	}
	return &WebPushProvider{vapid: vapid, client: client}
}

func (p *WebPushProvider) Name() string { return "webpush" }

func (p *WebPushProvider) Send(ctx context.Context, target Target, msg Message, timeout time.Duration) Result {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	if err := ValidateKeys(target.P256dh, target.Auth); err != nil {
		// the push service could never decrypt a message for these keys
		return terminal(err.Error(), 0)
	}

	sub := &webpush.Subscription{
		Endpoint: target.Endpoint,
		Keys:     webpush.Keys{P256dh: target.P256dh, Auth: target.Auth},
	}
	// webpush-go adds the mailto: scheme to the subscriber itself
	opts := &webpush.Options{
		HTTPClient:      p.client,
		Subscriber:      strings.TrimPrefix(p.vapid.Subject, "mailto:"),
		VAPIDPublicKey:  p.vapid.PublicKey,
		VAPIDPrivateKey: p.vapid.PrivateKey,
		TTL:             int(msg.TTL / time.Second),
		Topic:           msg.Topic,
	}
	if msg.Urgency != "" {
		opts.Urgency = webpush.Urgency(msg.Urgency)
	}

	resp, err := webpush.SendNotificationWithContext(ctx, msg.Payload, sub, opts)
	if err != nil {
		if ctx.Err() != nil {
			return transient(fmt.Sprintf("timeout: %v", ctx.Err()), 0)
		}
		return transient(err.Error(), 0)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	return classifyStatus(resp.StatusCode)
}

// classifyStatus maps a push service response to an outcome. Only 404 and 410
// say the subscription itself is gone; anything else may be our request or a
// passing condition.
func classifyStatus(status int) Result {
	switch {
	case status >= 200 && status < 300:
		return delivered(status)
	case status == http.StatusNotFound || status == http.StatusGone:
		return terminal("subscription expired or unsubscribed", status)
	default:
		return transient(http.StatusText(status), status)
	}
}

// ValidateKeys checks that p256dh is an uncompressed P-256 point and auth is
// 16 bytes. Browsers emit both as unpadded base64url.
func ValidateKeys(p256dhKey, authKey string) error {
	p256dh, err := decodeKey(p256dhKey)
	if err != nil {
		return errors.Wrap(err, "invalid p256dh key")
	}
	if _, err := ecdh.P256().NewPublicKey(p256dh); err != nil {
		return errors.Wrap(err, "invalid p256dh key")
	}
	auth, err := decodeKey(authKey)
	if err != nil {
		return errors.Wrap(err, "invalid auth secret")
	}
	if len(auth) != 16 {
		return errors.Errorf("invalid auth secret: %d bytes", len(auth))
	}
	return nil
}

func decodeKey(s string) ([]byte, error) {
	s = strings.TrimRight(s, "=")
	if b, err := base64.RawURLEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	return base64.RawStdEncoding.DecodeString(s)
}
