package order

// Forward chain pending -> processing -> shipped -> delivered -> completed,
// plus canceled from every non-terminal status.
var allowedTransitions = map[Status]map[Status]bool{
	StatusPending: {
		StatusProcessing: true,
		StatusCanceled:   true,
	},
	StatusProcessing: {
		StatusShipped:  true,
		StatusCanceled: true,
	},
	StatusShipped: {
		StatusDelivered: true,
		StatusCanceled:  true,
	},
	StatusDelivered: {
		StatusCompleted: true,
		StatusCanceled:  true,
	},
	StatusCompleted: {},
	StatusCanceled:  {},
}

var forward = map[Status]Status{
	StatusPending:    StatusProcessing,
	StatusProcessing: StatusShipped,
	StatusShipped:    StatusDelivered,
	StatusDelivered:  StatusCompleted,
}

// CanTransition reports whether an order in from may move to to.
// Re-setting the current status is not a transition.
func CanTransition(from, to Status) bool {
	next, ok := allowedTransitions[from]
	return ok && next[to]
}

// Next returns the single forward successor of s.
func (s Status) Next() (Status, bool) {
	next, ok := forward[s]
	return next, ok
}
