package system

import (
	"context"
	"errors"
	"testing"
)

type recordingService struct {
	NoopService
	events   *[]string
	startErr error
}

func (s recordingService) Start(_ context.Context) error {
	if s.startErr != nil {
		return s.startErr
	}
	*s.events = append(*s.events, "start:"+s.ServiceName)
	return nil
}

func (s recordingService) Stop(_ context.Context) error {
	*s.events = append(*s.events, "stop:"+s.ServiceName)
	return nil
}

func TestManager_StartStopOrder(t *testing.T) {
	var events []string
	m := NewManager()
	for _, name := range []string{"a", "b", "c"} {
		if err := m.Register(recordingService{NoopService: NoopService{ServiceName: name}, events: &events}); err != nil {
			t.Fatalf("register %s: %v", name, err)
		}
	}

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := m.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}

	want := []string{"start:a", "start:b", "start:c", "stop:c", "stop:b", "stop:a"}
	if len(events) != len(want) {
		t.Fatalf("unexpected events: %v", events)
	}
	for i, e := range want {
		if events[i] != e {
			t.Fatalf("event %d: want %s, got %s", i, e, events[i])
		}
	}
}

func TestManager_StartFailureRollsBack(t *testing.T) {
	var events []string
	m := NewManager()
	_ = m.Register(recordingService{NoopService: NoopService{ServiceName: "ok"}, events: &events})
	_ = m.Register(recordingService{NoopService: NoopService{ServiceName: "boom"}, events: &events, startErr: errors.New("boom")})

	if err := m.Start(context.Background()); err == nil {
		t.Fatalf("expected start failure")
	}
	// The already-started service is stopped again.
	want := []string{"start:ok", "stop:ok"}
	for i, e := range want {
		if events[i] != e {
			t.Fatalf("event %d: want %s, got %v", i, e, events)
		}
	}
}

func TestManager_DuplicateRegistration(t *testing.T) {
	m := NewManager()
	if err := m.Register(NoopService{ServiceName: "dup"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := m.Register(NoopService{ServiceName: "dup"}); err == nil {
		t.Fatalf("expected duplicate error")
	}
}
