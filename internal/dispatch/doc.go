// Package dispatch turns one event into push deliveries.
//
// A Rule resolves the recipients of an event (explicit users, followers of an
// actor, members of a topic, or any combination). Recipients are de-duplicated
// and streamed into a bounded fan-out: each recipient's subscriptions are
// looked up and each subscription is delivered to independently, so one slow or
// failing endpoint never holds back the others. Endpoints the provider reports
// as permanently gone are removed from the subscription store.
//
// Dispatch never retries. A producer that wants at-least-once delivery
// re-submits the event; Event.ID travels with every message so receivers can
// drop duplicates.
package dispatch
