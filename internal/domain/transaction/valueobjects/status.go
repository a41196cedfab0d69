package valueobjects

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusCanceled  Status = "canceled"
	StatusFailed    Status = "failed"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusCanceled, StatusFailed:
		return true
	default:
		return false
	}
}

func (s Status) IsPending() bool {
	return s == StatusPending
}

func (s Status) IsCompleted() bool {
	return s == StatusCompleted
}

// IsTerminal reports whether no further transition is permitted.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCanceled || s == StatusFailed
}

func (s Status) String() string {
	return string(s)
}
