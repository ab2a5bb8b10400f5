package compiler

// EventKind classifies driver progress events
type EventKind int

const (
	// EventCompiled is reported after a template's outputs have been written
	EventCompiled EventKind = iota
	// EventFailed is reported when a template could not be compiled or written
	EventFailed
	// EventSkipped is reported for files that do not carry the template extension
	EventSkipped
	// EventPackageMarker is reported when a missing package marker file is created
	EventPackageMarker
)

func (k EventKind) String() string {
	switch k {
	case EventCompiled:
		return "compiled"
	case EventFailed:
		return "failed"
	case EventSkipped:
		return "skipped"
	case EventPackageMarker:
		return "package-marker"
	default:
		return "unknown"
	}
}

// Event describes one step of a compile run
type Event struct {
	Kind    EventKind
	Path    string   // template or directory the event is about
	Outputs []string // files written, for EventCompiled and EventPackageMarker
	Err     error    // set for EventFailed
}

// ReporterFunc receives driver events. Calls are serialized by the driver.
type ReporterFunc func(Event)
