package coordinator

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// SignalManager watches the project's .foreman/signals directory for
// operator control files. A "stop" file shuts the coordinator down and
// a "pause" file suspends message dispatch until it is removed or
// cleared. A filesystem watcher picks signals up immediately; the
// Should* checks also stat the files directly so a missed event never
// loses a signal.
type SignalManager struct {
	signalsDir string

	mu          sync.RWMutex
	stopSignal  bool
	pauseSignal bool

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewSignalManager creates a signal manager rooted at the project path.
// The watcher is best-effort: if it cannot be started the manager still
// works through polling.
func NewSignalManager(projectPath string) (*SignalManager, error) {
	signalsDir := filepath.Join(projectPath, ".foreman", "signals")
	if err := os.MkdirAll(signalsDir, 0755); err != nil {
		return nil, err
	}

	sm := &SignalManager{
		signalsDir: signalsDir,
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

	go sm.watch()
	return sm, nil
}

// watch flips the signal flags as control files appear.
func (sm *SignalManager) watch() {
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
			case "stop":
				sm.stopSignal = true
			case "pause":
				sm.pauseSignal = true
			}
			sm.mu.Unlock()
		case <-sm.watcher.Errors:
			// Keep watching; polling covers missed events.
		}
	}
}

// ShouldStop returns true if a stop signal has been received.
func (sm *SignalManager) ShouldStop() bool {
	if _, err := os.Stat(filepath.Join(sm.signalsDir, "stop")); err == nil {
		sm.mu.Lock()
		sm.stopSignal = true
		sm.mu.Unlock()
	}

	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.stopSignal
}

// ShouldPause returns true if dispatch is currently paused.
func (sm *SignalManager) ShouldPause() bool {
	if _, err := os.Stat(filepath.Join(sm.signalsDir, "pause")); err == nil {
		sm.mu.Lock()
		sm.pauseSignal = true
		sm.mu.Unlock()
	} else {
		// Removing the pause file resumes dispatch.
		sm.mu.Lock()
		sm.pauseSignal = false
		sm.mu.Unlock()
	}

	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.pauseSignal
}

// SendStop creates the stop signal file.
func (sm *SignalManager) SendStop() error {
	return os.WriteFile(filepath.Join(sm.signalsDir, "stop"), []byte(time.Now().Format(time.RFC3339)), 0644)
}

// SendPause creates the pause signal file.
func (sm *SignalManager) SendPause() error {
	return os.WriteFile(filepath.Join(sm.signalsDir, "pause"), []byte(time.Now().Format(time.RFC3339)), 0644)
}

// ClearSignals removes all signal files and resets signal state.
func (sm *SignalManager) ClearSignals() {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	sm.stopSignal = false
	sm.pauseSignal = false

	os.Remove(filepath.Join(sm.signalsDir, "stop"))
	os.Remove(filepath.Join(sm.signalsDir, "pause"))
}

// Close shuts down the signal manager.
func (sm *SignalManager) Close() {
	close(sm.done)
	if sm.watcher != nil {
		sm.watcher.Close()
	}
}
