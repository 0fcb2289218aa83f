package handlers

// Order statuses advance in one direction only; an order never moves back to
// an earlier stage and a delivered order is final.
const (
	StatusPending        = "pending"
	StatusConfirmed      = "confirmed"
	StatusShipped        = "shipped"
	StatusOutForDelivery = "out_for_delivery"
	StatusDelivered      = "delivered"
)

var statusRank = map[string]int{
	StatusPending:        0,
	StatusConfirmed:      1,
	StatusShipped:        2,
	StatusOutForDelivery: 3,
	StatusDelivered:      4,
}

func isValidOrderStatus(status string) bool {
	_, ok := statusRank[status]
	return ok
}

func canTransitionStatus(from, to string) bool {
	fromRank, okFrom := statusRank[from]
	toRank, okTo := statusRank[to]
	return okFrom && okTo && toRank > fromRank
}
