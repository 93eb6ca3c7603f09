// Package queue defines message payloads exchanged over the message broker.
package queue

// Kinds of outbound email jobs.
const (
	KindVerification  = "verification"
	KindPasswordReset = "password_reset"
)

// EmailMessage is published whenever the auth service needs a mail sent.
// Delivery happens out of band in the consumer worker, so a slow or failing
// mail transport never stalls an HTTP response.
type EmailMessage struct {
	ID         string `json:"id"`          // unique job id
	To         string `json:"to"`          // recipient address
	Subject    string `json:"subject"`     // mail subject line
	HTML       string `json:"html"`        // HTML body
	Kind       string `json:"kind"`        // verification | password_reset
	EnqueuedAt string `json:"enqueued_at"` // RFC3339 UTC timestamp
}
