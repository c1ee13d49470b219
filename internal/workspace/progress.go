package workspace

import "time"

// Stage names one step of an environment refresh.
type Stage string

const (
	// StageClasses scans the classpath for compiled classes.
	StageClasses Stage = "classes"
	// StageSources parses host-language sources.
	StageSources Stage = "sources"
)

// Status describes where a project is in a refresh.
type Status string

const (
	StatusQueued  Status = "queued"
	StatusWorking Status = "working"
	StatusDone    Status = "done"
	StatusError   Status = "error"
)

// Event reports refresh progress for one project. Count is the number of
// indexed classes or source files once a stage is done.
type Event struct {
	Project string
	Stage   Stage
	Status  Status
	Count   int
	Err     error
	Elapsed time.Duration
}

// ProgressSink consumes progress events. Implementations must be safe for
// concurrent use.
type ProgressSink interface {
	OnEvent(Event)
}

// ChannelSink forwards events into a channel.
type ChannelSink struct {
	Ch chan<- Event
}

func (s ChannelSink) OnEvent(evt Event) {
	if s.Ch == nil {
		return
	}
	s.Ch <- evt
}

func (e *Environment) emit(evt Event) {
	if e.opts.Progress == nil {
		return
	}
	evt.Project = e.Project
	e.opts.Progress.OnEvent(evt)
}
