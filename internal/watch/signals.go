// Package watch provides file-based operator signalling for runs. A second
// terminal (or any external process) can cancel or pause a run by dropping
// a signal file into the run workspace, without going through the HTTP API.
package watch

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// SignalManager watches a run workspace's .autopilot directory for cancel
// and pause signal files, and keeps an operator journal of approval
// decisions for the run.
type SignalManager struct {
	controlDir string

	mu           sync.RWMutex
	cancelSignal bool
	pauseSignal  bool

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewSignalManager creates a signal manager for the given run workspace.
// A failed watcher setup is not fatal; ShouldCancel and ShouldPause fall
// back to polling the signal files directly.
func NewSignalManager(workspacePath string) (*SignalManager, error) {
	controlDir := filepath.Join(workspacePath, ".autopilot")
	signalsDir := filepath.Join(controlDir, "signals")
	if err := os.MkdirAll(signalsDir, 0755); err != nil {
		return nil, err
	}

	sm := &SignalManager{
		controlDir: controlDir,
		done:       make(chan struct{}),
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return sm, nil
	}
	if err := watcher.Add(signalsDir); err != nil {
		watcher.Close()
		return sm, nil
	}
	sm.watcher = watcher

	go sm.watchSignals()
	return sm, nil
}

// watchSignals monitors the signals directory for cancel/pause files.
func (sm *SignalManager) watchSignals() {
	for {
		select {
		case <-sm.done:
			return
		case event, ok := <-sm.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			sm.mu.Lock()
			switch filepath.Base(event.Name) {
			case "cancel":
				sm.cancelSignal = true
			case "pause":
				sm.pauseSignal = true
			}
			sm.mu.Unlock()
		case <-sm.watcher.Errors:
			// Keep watching.
		}
	}
}

// ShouldCancel reports whether a cancel signal has been received.
func (sm *SignalManager) ShouldCancel() bool {
	// Check the file too in case the watcher missed the event.
	if _, err := os.Stat(filepath.Join(sm.controlDir, "signals", "cancel")); err == nil {
		sm.mu.Lock()
		sm.cancelSignal = true
		sm.mu.Unlock()
	}

	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.cancelSignal
}

// ShouldPause reports whether a pause signal has been received.
func (sm *SignalManager) ShouldPause() bool {
	if _, err := os.Stat(filepath.Join(sm.controlDir, "signals", "pause")); err == nil {
		sm.mu.Lock()
		sm.pauseSignal = true
		sm.mu.Unlock()
	}

	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.pauseSignal
}

// SendCancel creates a cancel signal file.
func (sm *SignalManager) SendCancel() error {
	path := filepath.Join(sm.controlDir, "signals", "cancel")
	return os.WriteFile(path, []byte(time.Now().Format(time.RFC3339)), 0644)
}

// SendPause creates a pause signal file.
func (sm *SignalManager) SendPause() error {
	path := filepath.Join(sm.controlDir, "signals", "pause")
	return os.WriteFile(path, []byte(time.Now().Format(time.RFC3339)), 0644)
}

// ClearSignals removes the signal files and resets signal state.
func (sm *SignalManager) ClearSignals() {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	sm.cancelSignal = false
	sm.pauseSignal = false

	os.Remove(filepath.Join(sm.controlDir, "signals", "cancel"))
	os.Remove(filepath.Join(sm.controlDir, "signals", "pause"))
}

// RecordDecision appends an operator decision (approval, rejection,
// cancellation) to the run journal.
func (sm *SignalManager) RecordDecision(decision string) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	path := filepath.Join(sm.controlDir, "journal.md")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	timestamp := time.Now().Format("2006-01-02 15:04")
	_, err = f.WriteString("- " + timestamp + ": " + decision + "\n")
	return err
}

// Journal returns the current contents of the run journal.
func (sm *SignalManager) Journal() string {
	content, _ := os.ReadFile(filepath.Join(sm.controlDir, "journal.md"))
	return string(content)
}

// Close shuts down the signal manager.
func (sm *SignalManager) Close() {
	close(sm.done)
	if sm.watcher != nil {
		sm.watcher.Close()
	}
}
