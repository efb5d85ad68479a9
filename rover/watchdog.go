package rover

import (
	"time"

	log "github.com/sirupsen/logrus"
)

// SafetyState classifies whether commands may reach the robot and, if not,
// why. Transitions happen only inside Watchdog.Tick and the connection
// notifications, all invoked from the tick goroutine.
type SafetyState int

const (
	Running SafetyState = iota
	StoppedTimeout
	StoppedDisconnected
	StoppedEmergency
)

var safetyStateNames = map[SafetyState]string{
	Running:             "RUNNING",
	StoppedTimeout:      "STOPPED_TIMEOUT",
	StoppedDisconnected: "STOPPED_DISCONNECTED",
	StoppedEmergency:    "STOPPED_EMERGENCY",
}

func (s SafetyState) String() string {
	return safetyStateNames[s]
}

// Stopped reports whether the state forces a zero command.
func (s SafetyState) Stopped() bool {
	return s != Running
}

// Watchdog enforces a fail-safe stop on stale input, lost connections and the
// emergency-cancel gesture. It never talks to hardware; its only effect is
// substituting commands through Gate.
type Watchdog struct {
	timeout          time.Duration
	stopOnDisconnect bool

	state     SafetyState
	lastInput time.Time
	inputLost bool
	linkLost  bool
}

func NewWatchdog(cfg SafetyConfig) *Watchdog {
	return &Watchdog{
		timeout:          cfg.Timeout(),
		stopOnDisconnect: cfg.StopOnDisconnect,
		state:            Running,
	}
}

// Start seeds the input freshness clock so that an idle controller is not
// classified as timed out before the first event had a chance to arrive.
func (w *Watchdog) Start(now time.Time) {
	w.lastInput = now
}

func (w *Watchdog) State() SafetyState {
	return w.state
}

func (w *Watchdog) InputLost()     { w.inputLost = true }
func (w *Watchdog) InputRestored() { w.inputLost = false }
func (w *Watchdog) LinkLost()      { w.linkLost = true }
func (w *Watchdog) LinkRestored()  { w.linkLost = false }

// Tick evaluates all safety conditions for one control tick and returns the
// resulting state. Emergency-cancel is classified ahead of the other
// conditions; a simultaneous disconnect or timeout is still reported.
func (w *Watchdog) Tick(now time.Time, snap *InputSnapshot, emergency bool) SafetyState {
	fresh := snap != nil && snap.Time.After(w.lastInput)
	if fresh {
		w.lastInput = snap.Time
	}
	// A lost robot link always stops; a lost input device only if configured.
	disconnected := w.linkLost || (w.inputLost && w.stopOnDisconnect)
	timedOut := w.timeout > 0 && now.Sub(w.lastInput) >= w.timeout

	switch {
	case emergency:
		if disconnected && w.state != StoppedDisconnected {
			log.Warnln("Connection lost while emergency-cancel is active")
		}
		w.transition(StoppedEmergency, "both triggers pressed")
	case disconnected:
		w.transition(StoppedDisconnected, "connection lost")
	case timedOut:
		if w.state == Running {
			w.transition(StoppedTimeout, "no input for "+w.timeout.String())
		}
		// Already stopped: stay in the current stopped state, no flapping.
	case w.state.Stopped():
		if fresh {
			w.transition(Running, "fresh input")
		}
	}
	return w.state
}

// Gate substitutes the tick's commands whenever the state is not RUNNING: the
// drive command becomes a stop and all pending servo commands are dropped.
func (w *Watchdog) Gate(drive DriveCommand, servos []ServoCommand) (DriveCommand, []ServoCommand) {
	if w.state.Stopped() {
		return Stop, nil
	}
	return drive, servos
}

func (w *Watchdog) transition(to SafetyState, cause string) {
	if w.state == to {
		return
	}
	// Safety transitions are externally relevant, always report them.
	if to == Running {
		log.Infof("Safety state %v -> %v (%v)", w.state, to, cause)
	} else {
		log.Warnf("Safety state %v -> %v (%v)", w.state, to, cause)
	}
	w.state = to
}
