package encoder

// Status tags an Event
type Status string

const (
	StatusProgress Status = "progress"
	StatusSuccess  Status = "success"
	StatusError    Status = "error"
)

// Event is one update from a run. Value is the percentage for progress
// events and the output size in megabytes for success.
type Event struct {
	Status  Status
	Message string
	Value   float64
}

// Terminal reports whether the event ends the run
func (e Event) Terminal() bool {
	return e.Status == StatusSuccess || e.Status == StatusError
}

// Sink receives events in order. It is called from the runner's goroutine.
type Sink func(Event)

func progressEvent(pct float64, message string) Event {
	return Event{Status: StatusProgress, Message: message, Value: clampPercentage(pct)}
}

func successEvent(message string, sizeMB float64) Event {
	return Event{Status: StatusSuccess, Message: message, Value: sizeMB}
}

func errorEvent(message string) Event {
	return Event{Status: StatusError, Message: message}
}

// Analyzing reports whether the run is still probing its input.
func (e Event) Analyzing() bool {
	return e.Status == StatusProgress && e.Message == msgAnalyzing
}
