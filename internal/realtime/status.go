package realtime

import "fmt"

// State is the lifecycle state of a room channel.
type State int

const (
	StateClosed State = iota
	StateConnecting
	StateOpen
	StateBackoff
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateBackoff:
		return "backoff"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Status describes a channel at one point of its lifecycle.
type Status struct {
	State State
	// Attempt counts consecutive failed connections; it resets once a connection opens.
	Attempt int
	// Err is the failure that led here. A Closed status with a non-nil Err means
	// the retry ceiling was reached and the channel gave up.
	Err error
}

// Failed reports whether the channel stopped after exhausting its retries.
func (s Status) Failed() bool {
	return s.State == StateClosed && s.Err != nil
}
