package payment

import (
	"strings"

	transactionDatamodel "github.com/emmanuelnurit/cawl-gateway/internal/core/datamodel/transaction"
)

// statusTable maps raw gateway statuses to the internal enum. Unknown values
// fall back to the lower-cased raw string so a growing gateway vocabulary
// never breaks reconciliation.
var statusTable = map[string]string{
	"PAYMENT_CREATED":         transactionDatamodel.StatusPending,
	"IN_PROGRESS":             transactionDatamodel.StatusPending,
	"PENDING_PAYMENT":         transactionDatamodel.StatusPending,
	"PENDING_COMPLETION":      transactionDatamodel.StatusPending,
	"AUTHORIZATION_REQUESTED": transactionDatamodel.StatusPending,
	"CAPTURE_REQUESTED":       transactionDatamodel.StatusPending,
	"PENDING_CAPTURE":         transactionDatamodel.StatusAuthorized,
	"CAPTURED":                transactionDatamodel.StatusCaptured,
	"PAID":                    transactionDatamodel.StatusCaptured,
	"CANCELLED":               transactionDatamodel.StatusCancelled,
	"REJECTED":                transactionDatamodel.StatusRejected,
	"REFUNDED":                transactionDatamodel.StatusRefunded,
	"CHARGEBACKED":            transactionDatamodel.StatusChargebacked,
}

// MapStatus translates a raw gateway status into the internal status enum.
func MapStatus(rawStatus string) string {
	if mapped, ok := statusTable[rawStatus]; ok {
		return mapped
	}
	return strings.ToLower(rawStatus)
}

// paidStatuses is deliberately broader than "maps to captured":
// PENDING_CAPTURE and PAYMENT_CREATED are good enough to confirm the order
// even though settlement has not happened yet. Matching is case sensitive on
// the raw gateway value.
var paidStatuses = map[string]struct{}{
	"CAPTURED":        {},
	"PAID":            {},
	"PENDING_CAPTURE": {},
	"PAYMENT_CREATED": {},
}

// IsPaidStatus reports whether a raw gateway status is sufficient to mark
// the order as paid. Order confirmation uses this predicate, never equality
// with the internal captured status.
func IsPaidStatus(rawStatus string) bool {
	_, ok := paidStatuses[rawStatus]
	return ok
}
