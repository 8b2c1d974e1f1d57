package mutation

// Kind classifies the result of a proposal.
type Kind int

const (
	Accepted Kind = iota + 1
	Conflict
	Rejected
	TransportFailure
)

func (k Kind) String() string {
	switch k {
	case Accepted:
		return "accepted"
	case Conflict:
		return "conflict"
	case Rejected:
		return "rejected"
	case TransportFailure:
		return "transport_failure"
	default:
		return "unknown"
	}
}

// Outcome is the terminal result of one Propose call.
type Outcome[T any] struct {
	Kind Kind
	// Entity is the server's canonical state. Set only for Accepted.
	Entity T
	// Reason is the server's explanation for Rejected, shown as is.
	Reason string
	// Err is the underlying error for every kind but Accepted.
	Err error
	// Suppressed is set when the caller's context ended before the outcome was
	// applied. Listeners were not called.
	Suppressed bool
}

func (o Outcome[T]) Accepted() bool {
	return o.Kind == Accepted
}
