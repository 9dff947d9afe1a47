package shell

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
)

type recordingObserver struct {
	changes [][2]Selection
	fetches atomic.Int32
}

func (o *recordingObserver) SelectionChanged(prev, next Selection) Fetch {
	o.changes = append(o.changes, [2]Selection{prev, next})
	if prev.FileName == next.FileName {
		return nil
	}
	return func(ctx context.Context) error {
		o.fetches.Add(1)
		return nil
	}
}

func TestNewStartsOnDashboard(t *testing.T) {
	s := New()
	if got := s.Selection(); got.Screen != Dashboard || got.FileName != "" {
		t.Errorf("Selection() = %+v, want dashboard with no file", got)
	}
}

func TestSelectFileNotifiesObservers(t *testing.T) {
	s := New()
	obs := &recordingObserver{}
	s.Subscribe(obs)

	fetches := s.SelectFile("a.xlsx")
	if len(fetches) != 1 {
		t.Fatalf("SelectFile() returned %d fetches, want 1", len(fetches))
	}
	if len(obs.changes) != 1 {
		t.Fatalf("observer saw %d changes, want 1", len(obs.changes))
	}
	if obs.changes[0][0].FileName != "" || obs.changes[0][1].FileName != "a.xlsx" {
		t.Errorf("change = %+v", obs.changes[0])
	}

	if err := Run(context.Background(), fetches); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if obs.fetches.Load() != 1 {
		t.Errorf("fetches run = %d, want 1", obs.fetches.Load())
	}
}

func TestUnchangedSelectionIsSilent(t *testing.T) {
	s := New()
	obs := &recordingObserver{}
	s.Subscribe(obs)

	s.SelectFile("a.xlsx")
	if fetches := s.SelectFile("a.xlsx"); fetches != nil {
		t.Errorf("reselecting the same file returned %d fetches", len(fetches))
	}
	if len(obs.changes) != 1 {
		t.Errorf("observer saw %d changes, want 1", len(obs.changes))
	}
}

func TestNavigateKeepsFile(t *testing.T) {
	s := New()
	obs := &recordingObserver{}
	s.Subscribe(obs)
	s.SelectFile("a.xlsx")

	fetches := s.Navigate(History)
	if len(fetches) != 0 {
		t.Errorf("Navigate() returned %d fetches, want 0 for the recording observer", len(fetches))
	}
	if got := s.Selection(); got.Screen != History || got.FileName != "a.xlsx" {
		t.Errorf("Selection() = %+v", got)
	}
}

func TestOpenSelectsAndNavigates(t *testing.T) {
	s := New()
	s.Open("b.xlsx")
	if got := s.Selection(); got.Screen != Data || got.FileName != "b.xlsx" {
		t.Errorf("Selection() = %+v, want data screen with b.xlsx", got)
	}
}

func TestRunReturnsFirstError(t *testing.T) {
	boom := errors.New("boom")
	var ran atomic.Int32
	fetches := []Fetch{
		func(ctx context.Context) error { ran.Add(1); return boom },
		func(ctx context.Context) error { ran.Add(1); return nil },
	}
	if err := Run(context.Background(), fetches); !errors.Is(err, boom) {
		t.Errorf("Run() error = %v, want boom", err)
	}
	if ran.Load() != 2 {
		t.Errorf("ran %d fetches, want 2", ran.Load())
	}
}

func TestScreensAreValid(t *testing.T) {
	for _, s := range Screens() {
		if !s.Valid() || s.Title() == "" {
			t.Errorf("screen %q invalid or untitled", s)
		}
	}
	if Screen("settings").Valid() {
		t.Error("unknown screen reported valid")
	}
}
