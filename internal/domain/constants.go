package domain

// Payment record statuses.
const (
	PaymentStatusPending   = "pending"
	PaymentStatusCompleted = "completed"
	PaymentStatusFailed    = "failed"
	PaymentStatusCancelled = "cancelled"
)

// OrderIDPrefix is prepended to locally generated order ids: BOOK-<bookId>-<unix ms>.
const OrderIDPrefix = "BOOK"

// Reconciliation triggers recorded on payment notifications.
const (
	TriggerIPN    = "ipn"
	TriggerVerify = "verify"
)

// Event types published on the payments topic.
const (
	EventPaymentCreated    = "payment.created"
	EventPaymentReconciled = "payment.reconciled"
	EventPaymentOrphaned   = "payment.orphaned"
)
