package watch

import (
	"strings"
	"testing"
)

func newTestManager(t *testing.T) *SignalManager {
	t.Helper()
	sm, err := NewSignalManager(t.TempDir())
	if err != nil {
		t.Fatalf("NewSignalManager failed: %v", err)
	}
	t.Cleanup(sm.Close)
	return sm
}

func TestCancelSignal(t *testing.T) {
	sm := newTestManager(t)

	if sm.ShouldCancel() {
		t.Fatal("fresh manager should not report cancel")
	}
	if err := sm.SendCancel(); err != nil {
		t.Fatalf("SendCancel failed: %v", err)
	}
	// ShouldCancel stats the file directly, so no watcher wait is needed.
	if !sm.ShouldCancel() {
		t.Error("cancel signal not detected")
	}
}

func TestPauseSignal(t *testing.T) {
	sm := newTestManager(t)

	if sm.ShouldPause() {
		t.Fatal("fresh manager should not report pause")
	}
	if err := sm.SendPause(); err != nil {
		t.Fatalf("SendPause failed: %v", err)
	}
	if !sm.ShouldPause() {
		t.Error("pause signal not detected")
	}
}

func TestClearSignals(t *testing.T) {
	sm := newTestManager(t)

	sm.SendCancel()
	sm.SendPause()
	if !sm.ShouldCancel() || !sm.ShouldPause() {
		t.Fatal("signals not set")
	}

	sm.ClearSignals()
	if sm.ShouldCancel() || sm.ShouldPause() {
		t.Error("signals survived ClearSignals")
	}
}

func TestJournal(t *testing.T) {
	sm := newTestManager(t)

	if sm.Journal() != "" {
		t.Fatal("fresh journal should be empty")
	}

	if err := sm.RecordDecision("approved stripe.create_product for task_006"); err != nil {
		t.Fatalf("RecordDecision failed: %v", err)
	}
	if err := sm.RecordDecision("rejected email.send_campaign for task_009"); err != nil {
		t.Fatalf("RecordDecision failed: %v", err)
	}

	journal := sm.Journal()
	if !strings.Contains(journal, "approved stripe.create_product for task_006") {
		t.Errorf("journal missing first entry: %q", journal)
	}
	if !strings.Contains(journal, "rejected email.send_campaign for task_009") {
		t.Errorf("journal missing second entry: %q", journal)
	}
	if strings.Count(journal, "\n") != 2 {
		t.Errorf("journal should hold two lines: %q", journal)
	}
}

func TestSignalsAcrossManagers(t *testing.T) {
	dir := t.TempDir()
	sender, err := NewSignalManager(dir)
	if err != nil {
		t.Fatalf("NewSignalManager failed: %v", err)
	}
	t.Cleanup(sender.Close)
	receiver, err := NewSignalManager(dir)
	if err != nil {
		t.Fatalf("NewSignalManager failed: %v", err)
	}
	t.Cleanup(receiver.Close)

	if err := sender.SendCancel(); err != nil {
		t.Fatalf("SendCancel failed: %v", err)
	}
	if !receiver.ShouldCancel() {
		t.Error("cancel from another manager not detected")
	}
}
