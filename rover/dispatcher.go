package rover

import (
	"context"
	"errors"
	"sync"

	log "github.com/sirupsen/logrus"
)

// ErrSendFailed is reported when delivering a command to the robot link
// fails. The dispatcher suspends further sends until a fresh link is
// installed.
var ErrSendFailed = errors.New("send to robot link failed")

// Link is the robot collaborator. Implementations deliver commands over the
// wire; the dispatcher treats any send error as a lost connection.
type Link interface {
	SendDrive(cmd DriveCommand) error
	SendServo(cmd ServoCommand) error
	Close() error
}

// TickCommands is the gated output of one control tick.
type TickCommands struct {
	Drive  DriveCommand
	Servos []ServoCommand
	State  SafetyState
}

// Dispatcher delivers tick commands to the robot link from its own
// goroutine. The queue between the tick loop and the dispatcher is bounded
// and newest-wins: when the dispatcher falls behind, the oldest unread entry
// is dropped. Unchanged drive commands are de-duplicated, except across
// transitions into or out of a stopped state, which are always sent.
type Dispatcher struct {
	queue    chan TickCommands
	failures chan error

	mu   sync.Mutex
	link Link
	down bool

	lastDrive DriveCommand
	lastState SafetyState
	sentDrive bool
	lastServo map[uint8]uint8
}

func NewDispatcher(link Link, queueSize int) *Dispatcher {
	return &Dispatcher{
		queue:     make(chan TickCommands, queueSize),
		failures:  make(chan error, 1),
		link:      link,
		lastServo: make(map[uint8]uint8),
	}
}

// Failures delivers at most one ErrSendFailed per link failure.
func (d *Dispatcher) Failures() <-chan error {
	return d.failures
}

// Enqueue hands one tick's commands to the dispatcher. Never blocks: on a
// full queue the oldest entry is dropped in favor of the newest, recency
// beats completeness for a real-time control stream.
func (d *Dispatcher) Enqueue(t TickCommands) {
	for {
		select {
		case d.queue <- t:
			return
		default:
			select {
			case <-d.queue:
			default:
			}
		}
	}
}

// ResetLink installs a re-established robot link and resumes sending. The
// de-duplication state is cleared so the next command is always transmitted.
func (d *Dispatcher) ResetLink(link Link) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.link = link
	d.down = false
	d.sentDrive = false
	d.lastServo = make(map[uint8]uint8)
}

// Run consumes queued commands until the context is cancelled. Before
// exiting it attempts one final stop command if the link is still live.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			d.finalStop()
			return
		case t := <-d.queue:
			d.dispatch(t)
		}
	}
}

func (d *Dispatcher) dispatch(t TickCommands) {
	link, down := d.currentLink()
	if down {
		// Still track transitions so the first send after a reconnect
		// is never suppressed.
		d.lastState = t.State
		return
	}

	// A transition into or out of a stopped state defeats de-duplication:
	// the stop (and the recovery) must actually reach the robot.
	force := !d.sentDrive || t.State.Stopped() != d.lastState.Stopped()
	if force || t.Drive != d.lastDrive {
		if err := link.SendDrive(t.Drive); err != nil {
			d.fail(err)
			return
		}
		d.lastDrive = t.Drive
		d.sentDrive = true
		log.Debugln("Sent", t.Drive)
	}
	d.lastState = t.State

	for _, servo := range t.Servos {
		if last, ok := d.lastServo[servo.Channel]; ok && last == servo.Position {
			continue
		}
		if err := link.SendServo(servo); err != nil {
			d.fail(err)
			return
		}
		d.lastServo[servo.Channel] = servo.Position
		log.Debugln("Sent", servo)
	}
}

func (d *Dispatcher) currentLink() (Link, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.link, d.down
}

func (d *Dispatcher) fail(err error) {
	d.mu.Lock()
	alreadyDown := d.down
	d.down = true
	d.mu.Unlock()
	if alreadyDown {
		return
	}
	log.Errorln("Robot link send failed:", err)
	select {
	case d.failures <- ErrSendFailed:
	default:
	}
}

func (d *Dispatcher) finalStop() {
	link, down := d.currentLink()
	if down || link == nil {
		return
	}
	if err := link.SendDrive(Stop); err != nil {
		log.Errorln("Failed to send final stop command:", err)
	}
}
