package logic

import (
	"testing"
	"time"
)

func TestNewButtonDebouncer(t *testing.T) {
	b := NewButtonDebouncer(50 * time.Millisecond)
	if b == nil {
		t.Fatal("NewButtonDebouncer returned nil")
	}
	if b.debounceDuration != 50*time.Millisecond {
		t.Errorf("expected debounce duration 50ms, got %v", b.debounceDuration)
	}
	if b.IsBaselined() {
		t.Error("new debouncer should not be baselined")
	}
}

func TestButtonBaselineEstablishment(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	b := NewButtonDebouncer(50 * time.Millisecond)

	cmds := b.Process(ButtonInput{Time: now})
	if len(cmds) != 0 {
		t.Errorf("expected no commands during baseline, got %d", len(cmds))
	}
	if b.IsBaselined() {
		t.Error("should not be baselined after first sample")
	}

	b.Process(ButtonInput{Time: now.Add(40 * time.Millisecond)})
	if b.IsBaselined() {
		t.Error("should not be baselined before debounce period")
	}

	cmds = b.Process(ButtonInput{Time: now.Add(50 * time.Millisecond)})
	if len(cmds) != 0 {
		t.Errorf("expected no commands at baseline establishment, got %d", len(cmds))
	}
	if !b.IsBaselined() {
		t.Error("should be baselined after debounce period")
	}
}

func TestButtonHeldAtStartupDoesNotFire(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	b := NewButtonDebouncer(50 * time.Millisecond)

	for i := 0; i < 10; i++ {
		cmds := b.Process(ButtonInput{Start: true, Time: now.Add(time.Duration(i) * 20 * time.Millisecond)})
		if len(cmds) != 0 {
			t.Fatalf("sample %d: held button fired %v", i, cmds)
		}
	}
}

func setupBaselinedDebouncer(t *testing.T) (*ButtonDebouncer, time.Time) {
	t.Helper()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	b := NewButtonDebouncer(50 * time.Millisecond)
	b.Process(ButtonInput{Time: now})
	b.Process(ButtonInput{Time: now.Add(50 * time.Millisecond)})
	if !b.IsBaselined() {
		t.Fatal("failed to establish baseline")
	}
	return b, now.Add(50 * time.Millisecond)
}

func TestButtonPressEmitsCommand(t *testing.T) {
	tests := []struct {
		name  string
		input ButtonInput
		want  Action
	}{
		{"start", ButtonInput{Start: true}, ActionStart},
		{"stop", ButtonInput{Stop: true}, ActionStop},
		{"emergency", ButtonInput{Emergency: true}, ActionEmergency},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, now := setupBaselinedDebouncer(t)

			in := tt.input
			in.Time = now.Add(10 * time.Millisecond)
			if cmds := b.Process(in); len(cmds) != 0 {
				t.Fatalf("expected no command before debounce, got %v", cmds)
			}

			in.Time = now.Add(60 * time.Millisecond)
			cmds := b.Process(in)
			if len(cmds) != 1 {
				t.Fatalf("expected 1 command, got %d", len(cmds))
			}
			if cmds[0].Action != tt.want {
				t.Errorf("action: got %s, want %s", cmds[0].Action, tt.want)
			}

			// Holding the button does not repeat.
			in.Time = now.Add(500 * time.Millisecond)
			if cmds := b.Process(in); len(cmds) != 0 {
				t.Errorf("expected no repeat while held, got %v", cmds)
			}
		})
	}
}

func TestButtonReleaseDoesNotEmit(t *testing.T) {
	b, now := setupBaselinedDebouncer(t)

	b.Process(ButtonInput{Start: true, Time: now.Add(10 * time.Millisecond)})
	b.Process(ButtonInput{Start: true, Time: now.Add(60 * time.Millisecond)})

	b.Process(ButtonInput{Time: now.Add(100 * time.Millisecond)})
	cmds := b.Process(ButtonInput{Time: now.Add(200 * time.Millisecond)})
	if len(cmds) != 0 {
		t.Errorf("expected no command on release, got %v", cmds)
	}
}

func TestButtonBounceRejected(t *testing.T) {
	b, now := setupBaselinedDebouncer(t)

	b.Process(ButtonInput{Emergency: true, Time: now.Add(10 * time.Millisecond)})
	b.Process(ButtonInput{Time: now.Add(20 * time.Millisecond)})
	cmds := b.Process(ButtonInput{Time: now.Add(100 * time.Millisecond)})
	if len(cmds) != 0 {
		t.Errorf("expected bounce to be rejected, got %v", cmds)
	}
}

func TestButtonStopBeforeStartOnSameSample(t *testing.T) {
	b, now := setupBaselinedDebouncer(t)

	b.Process(ButtonInput{Start: true, Stop: true, Time: now.Add(10 * time.Millisecond)})
	cmds := b.Process(ButtonInput{Start: true, Stop: true, Time: now.Add(60 * time.Millisecond)})
	if len(cmds) != 2 {
		t.Fatalf("expected 2 commands, got %d", len(cmds))
	}
	if cmds[0].Action != ActionStop || cmds[1].Action != ActionStart {
		t.Errorf("order: got %s,%s want stop,start", cmds[0].Action, cmds[1].Action)
	}
}
