package log

import "testing"

func TestMemoryLoggerCapturesMessages(t *testing.T) {
	m := NewMemoryLogger()
	m.Info("starting task %d", 1)
	m.Warn("slow task %d", 1)
	m.Error("task %d failed", 1)

	if m.Count() != 3 {
		t.Fatalf("Count() = %d, want 3", m.Count())
	}
	if m.CountByLevel("ERROR") != 1 {
		t.Errorf("CountByLevel(ERROR) = %d, want 1", m.CountByLevel("ERROR"))
	}
	if !m.HasMessage("slow task") {
		t.Error("HasMessage did not find expected substring")
	}
	if !m.HasMessageWithLevel("WARN", "slow task") {
		t.Error("HasMessageWithLevel did not find expected message")
	}
}

func TestMemoryLoggerClear(t *testing.T) {
	m := NewMemoryLogger()
	m.Debug("noise")
	if m.Count() != 1 {
		t.Fatalf("Count() = %d, want 1", m.Count())
	}
	m.Clear()
	if m.Count() != 0 {
		t.Errorf("Count() after Clear = %d, want 0", m.Count())
	}
}

func TestNoOpLoggerDiscardsEverything(t *testing.T) {
	var l LibraryLogger = NoOpLogger{}
	l.Info("ignored")
	l.Error("also ignored")
}
