package services

import "time"

// Notifier delivers a one-time password to a recipient. Delivery is fully
// decoupled from issuance: a Send failure never invalidates the pending
// code, it only means the user will need a resend.
type Notifier interface {
	Send(recipient, code string, validFor time.Duration) error
}
