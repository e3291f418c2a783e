package container

// Phase is the container's lifecycle position. Transitions are monotonic;
// start and stop each happen at most once per container.
type Phase int

const (
	PhaseNew Phase = iota
	PhaseBuild
	PhasePostConstruct
	PhaseStart
	PhaseRunning
	PhaseStop
	PhasePreDestroy
	PhaseClosed
)

func (p Phase) String() string {
	switch p {
	case PhaseNew:
		return "new"
	case PhaseBuild:
		return "build"
	case PhasePostConstruct:
		return "post-construct"
	case PhaseStart:
		return "start"
	case PhaseRunning:
		return "running"
	case PhaseStop:
		return "stop"
	case PhasePreDestroy:
		return "pre-destroy"
	case PhaseClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// PhaseChanged is published on every phase transition.
type PhaseChanged struct {
	From Phase
	To   Phase
}

// Started is published once startup completes and the container is running.
type Started struct {
	Components int
}

// Stopped is published after on-stop hooks have run.
type Stopped struct{}

// Closed is published when the container reaches its terminal phase,
// whether through orderly shutdown or a startup failure.
type Closed struct {
	Err error
}
