// Package shell holds the process-wide selection: which screen is active
// and which file is selected. Shell is its only writer; everything else
// reads it through View and learns about changes as an Observer.
package shell

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

type Screen string

const (
	Dashboard  Screen = "dashboard"
	Files      Screen = "files"
	Data       Screen = "data"
	Comparison Screen = "comparison"
	History    Screen = "history"
)

// Screens lists screens in navigation order.
func Screens() []Screen {
	return []Screen{Dashboard, Files, Data, Comparison, History}
}

func (s Screen) Title() string {
	switch s {
	case Dashboard:
		return "Dashboard"
	case Files:
		return "Files"
	case Data:
		return "Data"
	case Comparison:
		return "Compare"
	case History:
		return "History"
	default:
		return string(s)
	}
}

// Valid reports whether s is a known screen.
func (s Screen) Valid() bool {
	for _, known := range Screens() {
		if s == known {
			return true
		}
	}
	return false
}

type Selection struct {
	Screen   Screen
	FileName string
}

// Fetch is a pending request an observer wants issued after a change.
type Fetch func(ctx context.Context) error

// Observer is notified after the selection changed. It resets whatever
// depends on the old selection and returns the fetch to run, or nil.
type Observer interface {
	SelectionChanged(prev, next Selection) Fetch
}

// View is the read-only side handed to controllers.
type View interface {
	Selection() Selection
}

type Shell struct {
	mu        sync.RWMutex
	sel       Selection
	observers []Observer
}

func New() *Shell {
	return &Shell{sel: Selection{Screen: Dashboard}}
}

func (s *Shell) Subscribe(o Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, o)
}

func (s *Shell) Selection() Selection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sel
}

// Navigate switches the active screen.
func (s *Shell) Navigate(screen Screen) []Fetch {
	return s.update(func(sel *Selection) { sel.Screen = screen })
}

// SelectFile changes the selected file without leaving the current screen.
func (s *Shell) SelectFile(fileName string) []Fetch {
	return s.update(func(sel *Selection) { sel.FileName = fileName })
}

// Open selects a file and shows it in the data screen.
func (s *Shell) Open(fileName string) []Fetch {
	return s.update(func(sel *Selection) {
		sel.FileName = fileName
		sel.Screen = Data
	})
}

// update applies mutate and notifies observers outside the lock.
func (s *Shell) update(mutate func(*Selection)) []Fetch {
	s.mu.Lock()
	prev := s.sel
	next := prev
	mutate(&next)
	if next == prev {
		s.mu.Unlock()
		return nil
	}
	s.sel = next
	observers := append([]Observer(nil), s.observers...)
	s.mu.Unlock()

	var fetches []Fetch
	for _, o := range observers {
		if f := o.SelectionChanged(prev, next); f != nil {
			fetches = append(fetches, f)
		}
	}
	return fetches
}

// Run issues fetches concurrently and waits for all of them. The first
// error is returned; the others still run to completion.
func Run(ctx context.Context, fetches []Fetch) error {
	var g errgroup.Group
	for _, f := range fetches {
		g.Go(func() error { return f(ctx) })
	}
	return g.Wait()
}
