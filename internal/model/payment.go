package model

import "time"

// Payment records a card charge covering one or more reserved signups.
// The referenced signups must be reserved at creation time (neither
// waiting nor already accepted) and the list must be free of
// duplicates.  Non-admin callers must supply a card token; admins may
// record a payment without one (e.g. cash at the desk), in which case
// no external charge is made.
//
// Fields:
//
//	ID        – primary key identifier.
//	SignupIDs – signups covered by this payment.
//	Token     – card token passed to the payment provider (unique).
//	ChargeID  – charge identifier returned by the provider.
//	Amount    – total amount in rappen, set by the backend.
//	CreatedAt – creation timestamp.
type Payment struct {
	ID        uint64    // payments.id
	SignupIDs []uint64  // payment_signups rows
	Token     string    // payments.token
	ChargeID  string    // payments.charge_id
	Amount    int       // payments.amount
	CreatedAt time.Time // payments.created_at
}
