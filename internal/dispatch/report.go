package dispatch

import (
	"sync"

	"github.com/anonto42/nano-midea/relay/internal/models"
	"github.com/anonto42/nano-midea/relay/internal/push"
)

// SkipReason says why a recipient or a subscription got no delivery attempt.
type SkipReason string

const (
	SkipNoSubscriptions  SkipReason = "no_subscriptions"
	SkipDeadlineExceeded SkipReason = "deadline_exceeded"
	SkipLookupFailed     SkipReason = "lookup_failed"
)

// DeliveryResult is the fate of one recipient-subscription pair. Recipient-level
// skips have an empty Endpoint.
type DeliveryResult struct {
	UserID     models.UserID `json:"user_id"`
	Endpoint   string        `json:"endpoint,omitempty"`
	Outcome    push.Outcome  `json:"outcome,omitempty"`
	Skipped    SkipReason    `json:"skipped,omitempty"`
	Reason     string        `json:"reason,omitempty"`
	StatusCode int           `json:"status_code,omitempty"`
	// Removed is set when a terminal failure deleted the subscription.
	Removed bool `json:"removed,omitempty"`
}

// Report summarises a dispatch. Delivered+TransientFailed+TerminalFailed+Skipped
// always equals Pairs+RecipientSkips.
type Report struct {
	EventID    string `json:"event_id"`
	Recipients int    `json:"recipients"`
	// Pairs counts recipient-subscription pairs whose subscriptions were fetched.
	Pairs int `json:"pairs"`
	// RecipientSkips counts recipients skipped before their subscriptions were known.
	RecipientSkips int `json:"recipient_skips"`

	Delivered       int `json:"delivered"`
	TransientFailed int `json:"transient_failed"`
	TerminalFailed  int `json:"terminal_failed"`
	Skipped         int `json:"skipped"`
	DeadlineSkipped int `json:"deadline_skipped"`
	Removed         int `json:"removed"`

	NoSubscriptionRecipients []models.UserID `json:"no_subscription_recipients"`
	// ResolutionIncomplete is set when the deadline cut recipient resolution short.
	ResolutionIncomplete bool             `json:"resolution_incomplete"`
	Results              []DeliveryResult `json:"results"`

	mu            sync.Mutex
	lookupFailure int
}

func newReport(eventID string) *Report {
	return &Report{
		EventID:                  eventID,
		NoSubscriptionRecipients: []models.UserID{},
		Results:                  []DeliveryResult{},
	}
}

func (r *Report) addRecipient() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Recipients++
}

func (r *Report) addPairs(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Pairs += n
}

func (r *Report) skipRecipient(userID models.UserID, reason SkipReason) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.RecipientSkips++
	r.Skipped++
	switch reason {
	case SkipNoSubscriptions:
		r.NoSubscriptionRecipients = append(r.NoSubscriptionRecipients, userID)
	case SkipDeadlineExceeded:
		r.DeadlineSkipped++
	case SkipLookupFailed:
		r.lookupFailure++
	}
	r.Results = append(r.Results, DeliveryResult{UserID: userID, Skipped: reason})
}

func (r *Report) record(res DeliveryResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch {
	case res.Skipped != "":
		r.Skipped++
		if res.Skipped == SkipDeadlineExceeded {
			r.DeadlineSkipped++
		}
	case res.Outcome == push.Delivered:
		r.Delivered++
	case res.Outcome == push.TerminalFailure:
		r.TerminalFailed++
	default:
		r.TransientFailed++
	}
	if res.Removed {
		r.Removed++
	}
	r.Results = append(r.Results, res)
}

// Attempted is the number of pairs handed to the provider.
func (r *Report) Attempted() int {
	return r.Delivered + r.TransientFailed + r.TerminalFailed
}

func (r *Report) allLookupsFailed() bool {
	return r.Recipients > 0 && r.lookupFailure == r.Recipients
}
