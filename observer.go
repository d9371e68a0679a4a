package grainmesh

// Observer receives progress of long running meshing operations.
// Implementations must not call back into the operation reporting to them.
type Observer interface {
	Status(msg string)
	// Progress reports completion in percent, 0 to 100.
	Progress(percent int)
	Error(msg string, code int)
}

// NopObserver discards all notifications.
type NopObserver struct{}

func (NopObserver) Status(string)     {}
func (NopObserver) Progress(int)      {}
func (NopObserver) Error(string, int) {}

// Status is the outcome of an operation that can stop early.
type Status uint8

const (
	Completed Status = iota
	Canceled
)

func (s Status) String() string {
	if s == Canceled {
		return "canceled"
	}
	return "completed"
}
