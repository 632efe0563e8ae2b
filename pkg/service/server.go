package service

import (
	"os"
	"os/signal"
	"syscall"
)

// Server is a long-running process with a lifecycle managed by Run.
type Server interface {
	Init() error
	Start() error
	Stop() error
}

// Run drives a server through Init and Start, then blocks until SIGINT or
// SIGTERM before calling Stop.
func Run(s Server) error {
	if err := s.Init(); err != nil {
		return err
	}

	if err := s.Start(); err != nil {
		return err
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	return s.Stop()
}
