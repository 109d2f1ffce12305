package push

import (
	"context"
	"errors"
	"testing"
	"time"

	"firebase.google.com/go/v4/messaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFCM struct {
	got *messaging.Message
	err error
}

func (f *fakeFCM) Send(ctx context.Context, message *messaging.Message) (string, error) {
	f.got = message
	if f.err != nil {
		return "", f.err
	}
	return "projects/demo/messages/1", nil
}

func TestFCMProviderSend(t *testing.T) {
	sender := &fakeFCM{}
	provider := &FCMProvider{client: sender}

	res := provider.Send(context.Background(), Target{Endpoint: "device-token"}, Message{
		ID:      "evt-1",
		Payload: []byte(`{"title":"hi"}`),
		TTL:     90 * time.Second,
		Urgency: "high",
	}, time.Second)

	assert.Equal(t, Delivered, res.Outcome)
	require.NotNil(t, sender.got)
	assert.Equal(t, "device-token", sender.got.Token)
	assert.Equal(t, "evt-1", sender.got.Data["id"])
	assert.Equal(t, `{"title":"hi"}`, sender.got.Data["payload"])
	require.NotNil(t, sender.got.Webpush)
	assert.Equal(t, "90", sender.got.Webpush.Headers["TTL"])
	assert.Equal(t, "high", sender.got.Webpush.Headers["Urgency"])
}

func TestFCMProviderUnknownErrorIsTransient(t *testing.T) {
	provider := &FCMProvider{client: &fakeFCM{err: errors.New("connection reset")}}

	res := provider.Send(context.Background(), Target{Endpoint: "device-token"}, Message{Payload: []byte("x")}, time.Second)

	assert.Equal(t, TransientFailure, res.Outcome)
	assert.Contains(t, res.Reason, "connection reset")
}
