package rover

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// Run failure classes, mapped to process exit codes by the daemon.
var (
	ErrStartupFailed   = errors.New("startup connection failed")
	ErrReconnectFailed = errors.New("reconnect attempts exhausted")
)

// Orchestrator owns the component lifecycles and the control tick cadence.
// It runs the sampler and dispatcher goroutines, drives the tick loop, and
// reacts to device/link loss with a bounded number of reconnect attempts.
type Orchestrator struct {
	Config       *Config
	ConnectInput func() (InputDevice, error)
	ConnectLink  func() (Link, error)
}

type reconnectResult struct {
	dev  InputDevice
	link Link
	err  error
}

// Run executes the control loop until the context is cancelled (returns nil)
// or an unrecoverable failure occurs. Startup failures are ErrStartupFailed,
// exhausted reconnects ErrReconnectFailed.
func (o *Orchestrator) Run(ctx context.Context) error {
	dev, link, err := o.connectAll()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStartupFailed, err)
	}
	defer func() {
		dev.Close()
		link.Close()
	}()

	sampler := NewSampler(o.Config.Controller)
	mapper := NewMapper(o.Config)
	watchdog := NewWatchdog(o.Config.Safety)
	dispatcher := NewDispatcher(link, o.Config.Control.QueueSize)

	var wg sync.WaitGroup
	deviceLost := make(chan struct{}, 1)
	startSampler := func(dev InputDevice) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := sampler.Run(ctx, dev); errors.Is(err, ErrDeviceLost) {
				deviceLost <- struct{}{}
			}
		}()
	}
	startSampler(dev)
	wg.Add(1)
	go func() {
		defer wg.Done()
		dispatcher.Run(ctx)
	}()

	watchdog.Start(time.Now())
	ticker := time.NewTicker(o.Config.Control.TickInterval())
	defer ticker.Stop()
	log.Infof("Control loop running (tick %v, input timeout %v)",
		o.Config.Control.TickInterval(), o.Config.Safety.Timeout())

	reconnected := make(chan reconnectResult, 2)
	var prev *InputSnapshot
	for {
		select {
		case <-ctx.Done():
			wg.Wait()
			log.Infoln("Control loop stopped")
			return nil

		case <-deviceLost:
			watchdog.InputLost()
			go o.reconnect(ctx, "input device", reconnected, func() (reconnectResult, error) {
				d, err := o.ConnectInput()
				return reconnectResult{dev: d}, err
			})

		case <-dispatcher.Failures():
			watchdog.LinkLost()
			go o.reconnect(ctx, "robot link", reconnected, func() (reconnectResult, error) {
				l, err := o.ConnectLink()
				return reconnectResult{link: l}, err
			})

		case result := <-reconnected:
			if result.err != nil {
				return fmt.Errorf("%w: %v", ErrReconnectFailed, result.err)
			}
			if result.dev != nil {
				dev.Close()
				dev = result.dev
				watchdog.InputRestored()
				startSampler(dev)
			}
			if result.link != nil {
				link.Close()
				link = result.link
				dispatcher.ResetLink(link)
				watchdog.LinkRestored()
			}

		case <-ticker.C:
			snap := sampler.Snapshot()
			drive, servos := mapper.Map(prev, snap)
			state := watchdog.Tick(time.Now(), snap, mapper.Emergency(snap))
			drive, servos = watchdog.Gate(drive, servos)
			dispatcher.Enqueue(TickCommands{Drive: drive, Servos: servos, State: state})
			prev = snap
		}
	}
}

// connectAll establishes the input device and robot link in parallel. Either
// failure is fatal for startup; the surviving connection is closed again.
func (o *Orchestrator) connectAll() (InputDevice, Link, error) {
	var dev InputDevice
	var link Link
	var devErr, linkErr error

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		dev, devErr = o.ConnectInput()
	}()
	go func() {
		defer wg.Done()
		link, linkErr = o.ConnectLink()
	}()
	wg.Wait()

	if devErr != nil || linkErr != nil {
		if dev != nil {
			dev.Close()
		}
		if link != nil {
			link.Close()
		}
		if devErr != nil {
			return nil, nil, fmt.Errorf("input device: %v", devErr)
		}
		return nil, nil, fmt.Errorf("robot link: %v", linkErr)
	}
	return dev, link, nil
}

// reconnect retries the given connector a bounded number of times with a
// fixed delay. Each attempt's outcome is inspected as a plain result value;
// exhaustion is reported to the orchestrator loop, which terminates the run.
func (o *Orchestrator) reconnect(ctx context.Context, what string, out chan<- reconnectResult,
	connect func() (reconnectResult, error)) {

	attempts := o.Config.Link.ReconnectAttempts
	delay := o.Config.Link.ReconnectDelay()
	for attempt := 1; attempt <= attempts; attempt++ {
		log.Infof("Reconnecting %v (attempt %v/%v)...", what, attempt, attempts)
		result, err := connect()
		if err == nil {
			log.Infof("Reconnected %v", what)
			out <- result
			return
		}
		log.Errorf("Failed to reconnect %v: %v", what, err)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return
		}
	}
	out <- reconnectResult{err: fmt.Errorf("%v: giving up after %v attempts", what, attempts)}
}
