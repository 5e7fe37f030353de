package ui

import (
	"time"

	"vpnarch/internal/guide"
)

// GuideUpdatedMsg carries an accumulator snapshot into the program.
type GuideUpdatedMsg guide.Snapshot

// RetryNoticeMsg is sent while a generation backs off before retrying.
// Epoch identifies the episode that is retrying.
type RetryNoticeMsg struct {
	Epoch      uint64
	Attempt    int
	MaxRetries int
	Delay      time.Duration
	Reason     string
}

// ConfigReloadedMsg is sent after the config file changed on disk.
type ConfigReloadedMsg struct {
	Model string
	Err   error
}

// copyResultMsg reports the outcome of copying the guide.
type copyResultMsg struct {
	err error
}

// clearStatusMsg hides the status line if it still shows the given id.
type clearStatusMsg struct {
	id int
}
