package cli

import (
	"errors"
	"strconv"

	"github.com/studiowebux/sheetdesk/internal/journal"
	"github.com/studiowebux/sheetdesk/internal/session"
	"github.com/studiowebux/sheetdesk/internal/types"
)

var errNoJournal = errors.New("the request journal is disabled for this session")

func (r *Runner) JournalList(q journal.Query) error {
	if r.App.Journal == nil {
		return errNoJournal
	}
	entries, err := r.App.Journal.Recent(q)
	if err != nil {
		return err
	}
	return r.Out.Print(entries, func() Table { return journalTable(entries) })
}

func (r *Runner) JournalClear() error {
	if r.App.Journal == nil {
		return errNoJournal
	}
	if err := r.confirm("Clear the request journal of profile " + r.App.Profile.Name + "?"); err != nil {
		return err
	}
	n, err := r.App.Journal.Clear()
	if err != nil {
		return err
	}
	r.Out.Message("%d journal entries removed", n)
	return nil
}

type profileRow struct {
	types.Profile
	Active bool `json:"active" yaml:"active"`
}

// ListProfiles prints the configured profiles, marking the active one.
func ListProfiles(p *Printer, mgr *session.Manager) error {
	active := mgr.GetActiveProfile().Name
	var rows []profileRow
	for _, prof := range mgr.GetProfiles() {
		rows = append(rows, profileRow{Profile: session.WithDefaults(prof), Active: prof.Name == active})
	}
	return p.Print(rows, func() Table {
		t := Table{Header: []string{"", "Name", "Base URL", "User", "Page size", "Timeout"}}
		for _, row := range rows {
			mark := ""
			if row.Active {
				mark = "*"
			}
			t.Rows = append(t.Rows, []string{
				mark, row.Name, row.BaseURL, row.User,
				strconv.Itoa(row.PageSize), strconv.Itoa(row.TimeoutSeconds) + "s",
			})
		}
		return t
	})
}
