package controller

import (
	"context"
	"sort"

	"github.com/studiowebux/sheetdesk/internal/api"
	"github.com/studiowebux/sheetdesk/internal/apierr"
	"github.com/studiowebux/sheetdesk/internal/types"
)

// RecentFileCount is how many files the dashboard lists.
const RecentFileCount = 3

// DashboardStats summarizes the file list.
type DashboardStats struct {
	TotalFiles   int
	TotalRecords int
	LastUpload   types.Timestamp
	Recent       []types.FileRecord
}

type Dashboard struct {
	state
	client *api.Client

	seq        sequence
	connection Connection
	files      []types.FileRecord
}

func NewDashboard(client *api.Client) *Dashboard {
	return &Dashboard{client: client}
}

// Load checks connectivity, then loads the file list. A failed check
// skips the list.
func (d *Dashboard) Load(ctx context.Context) error {
	d.mu.Lock()
	token := d.seq.next()
	d.startLocked()
	d.mu.Unlock()

	_, err := d.client.Files.Test(ctx)
	if err != nil {
		d.mu.Lock()
		defer d.mu.Unlock()
		if !d.seq.current(token) {
			return ErrSuperseded
		}
		d.connection = ConnectionDown
		d.files = nil
		d.failLocked(apierr.Message(err, ""))
		return err
	}

	env, err := d.client.Files.List(ctx)

	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.seq.current(token) {
		return ErrSuperseded
	}
	d.connection = ConnectionUp
	if err != nil {
		d.failLocked(apierr.Message(err, ""))
		return err
	}
	if !env.Success {
		err := apierr.Application(env.Message, "Could not load files")
		d.failLocked(err.Error())
		return err
	}
	d.files = env.Data
	d.doneLocked("")
	return nil
}

func (d *Dashboard) Connection() Connection {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.connection
}

// Stats computes the totals. Recent files are ordered newest first.
func (d *Dashboard) Stats() DashboardStats {
	d.mu.RLock()
	files := append([]types.FileRecord(nil), d.files...)
	d.mu.RUnlock()

	stats := DashboardStats{TotalFiles: len(files)}
	for _, f := range files {
		stats.TotalRecords += f.Records()
	}

	sort.SliceStable(files, func(i, j int) bool {
		return files[i].UploadDate.Time.After(files[j].UploadDate.Time)
	})
	if len(files) > 0 {
		stats.LastUpload = files[0].UploadDate
	}
	if len(files) > RecentFileCount {
		files = files[:RecentFileCount]
	}
	stats.Recent = files
	return stats
}
