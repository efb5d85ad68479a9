package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/antongulenko/golib"
	log "github.com/sirupsen/logrus"

	"github.com/antongulenko/rover/gamepad"
	"github.com/antongulenko/rover/rover"
	"github.com/antongulenko/rover/rvr"
)

const (
	exitOk             = 0
	exitStartupFailure = 1
	exitUnrecoverable  = 2
)

func main() {
	os.Exit(run())
}

func run() int {
	configFile := flag.String("config", "config.yaml", "Path to the YAML configuration file")
	golib.RegisterFlags(golib.FlagsAll)
	flag.Parse()
	golib.ConfigureLogging()

	cfg, err := rover.LoadConfig(*configFile)
	if err != nil {
		log.Errorln("Failed to load configuration:", err)
		return exitStartupFailure
	}

	// "Clean" shutdown with Ctrl-C signal
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		fmt.Println("Received signal", <-c)
		cancel()
	}()

	orchestrator := &rover.Orchestrator{
		Config: cfg,
		ConnectInput: func() (rover.InputDevice, error) {
			return gamepad.Connect(cfg.Controller)
		},
		ConnectLink: func() (rover.Link, error) {
			return rvr.Connect(cfg.Link)
		},
	}

	switch err := orchestrator.Run(ctx); {
	case err == nil:
		return exitOk
	case errors.Is(err, rover.ErrStartupFailed):
		log.Errorln("Startup failed:", err)
		return exitStartupFailure
	default:
		log.Errorln("Unrecoverable failure:", err)
		return exitUnrecoverable
	}
}
