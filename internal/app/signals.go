package app

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"vpnarch/internal/logging"
)

// ForcedShutdownTimeout is the time after a signal after which we force exit.
const ForcedShutdownTimeout = 5 * time.Second

// setupSignalHandler cancels the app context on SIGTERM or SIGQUIT, which
// stops the TUI and any running generation. Interrupts reach the TUI as
// ctrl+c key presses instead.
// Returns a cleanup function that should be called when the app exits.
func (a *App) setupSignalHandler() func() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGQUIT)

	done := make(chan struct{})

	go func() {
		select {
		case sig := <-sigChan:
			logging.Debug("received signal", "signal", sig)

			forceExitTimer := time.AfterFunc(ForcedShutdownTimeout, func() {
				logging.Warn("forced shutdown due to timeout")
				os.Exit(1)
			})
			a.cancel()
			<-done
			forceExitTimer.Stop()

		case <-done:
			return
		}
	}()

	return func() {
		signal.Stop(sigChan)
		close(done)
	}
}
