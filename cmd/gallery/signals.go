package main

import (
	"os"
	"os/signal"
	"syscall"

	"gallery-thumbs/internal/logging"
	"gallery-thumbs/internal/thumbnails"
)

// notifyCancel sets flag on the first SIGINT or SIGTERM. The run finishes
// the item it is working on and prints its summary. The returned function
// stops listening.
func notifyCancel(flag *thumbnails.CancelFlag) func() {
	sigChan := make(chan os.Signal, 1)
	done := make(chan struct{})
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			logging.Info("Received %s, finishing the current item", sig)
			flag.Cancel()
		case <-done:
		}
	}()

	return func() {
		signal.Stop(sigChan)
		close(done)
	}
}
