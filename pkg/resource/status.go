package resource

// Status is the lifecycle state of a resource. A resource is effectively a
// loading flag over the last settled outcome: it moves back to
// StatusLoading on every refetch and returns to StatusSuccess or
// StatusError when the invocation settles.
type Status uint8

const (
	// StatusIdle is the zero state before the first invocation starts.
	StatusIdle Status = iota

	// StatusLoading means an invocation is in flight. Data and Err keep
	// their previous values until it settles.
	StatusLoading

	// StatusSuccess means the latest invocation committed a value.
	StatusSuccess

	// StatusError means the latest invocation committed an error.
	StatusError
)

// String returns the lowercase literal for the status.
func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}
