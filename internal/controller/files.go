package controller

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sahilm/fuzzy"
	"github.com/studiowebux/sheetdesk/internal/api"
	"github.com/studiowebux/sheetdesk/internal/apierr"
	"github.com/studiowebux/sheetdesk/internal/types"
)

// MaxUploadSize is the largest workbook accepted for upload.
const MaxUploadSize = 10 << 20

var uploadExtensions = []string{".xlsx", ".xls"}

// ValidateUpload checks name and size before anything is sent.
func ValidateUpload(name string, size int64) error {
	ext := strings.ToLower(filepath.Ext(name))
	supported := false
	for _, allowed := range uploadExtensions {
		if ext == allowed {
			supported = true
			break
		}
	}
	if !supported {
		return fmt.Errorf("%s: only .xlsx and .xls files are supported", filepath.Base(name))
	}
	if size > MaxUploadSize {
		return fmt.Errorf("%s: file is larger than 10MB", filepath.Base(name))
	}
	if size == 0 {
		return fmt.Errorf("%s: file is empty", filepath.Base(name))
	}
	return nil
}

// FileManager lists, uploads, reprocesses and deletes workbooks.
type FileManager struct {
	state
	client *api.Client
	user   string

	seq           sequence
	connection    Connection
	files         []types.FileRecord
	filter        string
	pendingDelete string
}

func NewFileManager(client *api.Client, user string) *FileManager {
	return &FileManager{client: client, user: user}
}

func (f *FileManager) Connection() Connection {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.connection
}

// CheckConnection updates the connection status.
func (f *FileManager) CheckConnection(ctx context.Context) error {
	_, err := f.client.Files.Test(ctx)

	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil {
		f.connection = ConnectionDown
		return err
	}
	f.connection = ConnectionUp
	return nil
}

// Refresh reloads the file list.
func (f *FileManager) Refresh(ctx context.Context) error {
	f.mu.Lock()
	token := f.seq.next()
	f.startLocked()
	f.mu.Unlock()

	env, err := f.client.Files.List(ctx)

	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.seq.current(token) {
		return ErrSuperseded
	}
	f.connection = connectionAfter(err)
	if err != nil {
		f.failLocked(apierr.Message(err, ""))
		return err
	}
	if !env.Success {
		err := apierr.Application(env.Message, "Could not load files")
		f.failLocked(err.Error())
		return err
	}
	f.files = env.Data
	f.doneLocked("")
	return nil
}

// UploadPath reads a workbook from disk and uploads it.
func (f *FileManager) UploadPath(ctx context.Context, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		f.fail(err.Error())
		return err
	}
	if err := ValidateUpload(path, info.Size()); err != nil {
		f.fail(err.Error())
		return err
	}
	content, err := os.ReadFile(path)
	if err != nil {
		f.fail(err.Error())
		return err
	}
	return f.Upload(ctx, filepath.Base(path), content)
}

// Upload sends the workbook, asks the backend to process it and reloads
// the list. A processing failure is reported but the list still reloads.
func (f *FileManager) Upload(ctx context.Context, name string, content []byte) error {
	if err := ValidateUpload(name, int64(len(content))); err != nil {
		f.fail(err.Error())
		return err
	}

	f.mu.Lock()
	f.startLocked()
	f.mu.Unlock()

	env, err := f.client.Files.Upload(ctx, name, content, f.user)
	if err != nil {
		f.fail(apierr.Message(err, name))
		return err
	}
	if !env.Success {
		err := apierr.Application(env.Message, "Upload failed")
		f.fail(err.Error())
		return err
	}

	readErr := f.process(ctx, name)
	if refreshErr := f.Refresh(ctx); refreshErr != nil && readErr == nil {
		return refreshErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if readErr != nil {
		f.failLocked(fmt.Sprintf("%s was uploaded but could not be processed: %s", name, apierr.Message(readErr, name)))
		return readErr
	}
	f.doneLocked(fmt.Sprintf("%s uploaded and processed", name))
	return nil
}

// Reprocess asks the backend to parse the workbook again.
func (f *FileManager) Reprocess(ctx context.Context, name string) error {
	f.mu.Lock()
	f.startLocked()
	f.mu.Unlock()

	if err := f.process(ctx, name); err != nil {
		f.fail(apierr.Message(err, name))
		return err
	}

	f.mu.Lock()
	f.doneLocked(fmt.Sprintf("%s processed", name))
	f.mu.Unlock()
	return f.Refresh(ctx)
}

func (f *FileManager) process(ctx context.Context, name string) error {
	env, err := f.client.Files.Read(ctx, name, "")
	if err != nil {
		return err
	}
	if !env.Success {
		return apierr.Application(env.Message, "the file may not be a valid workbook")
	}
	return nil
}

// RequestDelete marks a file for deletion. Nothing is sent until
// ConfirmDelete.
func (f *FileManager) RequestDelete(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pendingDelete = name
}

func (f *FileManager) PendingDelete() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.pendingDelete
}

func (f *FileManager) CancelDelete() {
	f.RequestDelete("")
}

// ConfirmDelete deletes the pending file and reloads the list.
func (f *FileManager) ConfirmDelete(ctx context.Context) error {
	f.mu.Lock()
	name := f.pendingDelete
	f.pendingDelete = ""
	if name == "" {
		f.mu.Unlock()
		return nil
	}
	f.startLocked()
	f.mu.Unlock()

	env, err := f.client.Files.DeleteFile(ctx, name)
	if err != nil {
		f.fail(apierr.Message(err, name))
		return err
	}
	if !env.Success {
		err := apierr.Application(env.Message, "Delete failed")
		f.fail(err.Error())
		return err
	}

	f.mu.Lock()
	f.doneLocked(fmt.Sprintf("%s deleted", name))
	f.mu.Unlock()
	return f.Refresh(ctx)
}

// PrepareView makes sure the workbook has sheets before it is opened,
// reprocessing it when the backend reports none.
func (f *FileManager) PrepareView(ctx context.Context, name string) error {
	env, err := f.client.Files.Sheets(ctx, name)
	if err == nil && env.Success && len(env.Data) > 0 {
		return nil
	}

	if err := f.process(ctx, name); err != nil {
		f.fail(apierr.Message(err, name))
		return err
	}
	return nil
}

// SetFilter narrows Files to fuzzy matches of query.
func (f *FileManager) SetFilter(query string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.filter = query
}

func (f *FileManager) Filter() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.filter
}

// Files returns the listed files, best fuzzy matches first when a filter
// is set.
func (f *FileManager) Files() []types.FileRecord {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.filter == "" {
		return append([]types.FileRecord(nil), f.files...)
	}

	names := make([]string, len(f.files))
	for i, file := range f.files {
		names[i] = file.FileName
	}
	matches := fuzzy.Find(f.filter, names)
	out := make([]types.FileRecord, 0, len(matches))
	for _, m := range matches {
		out = append(out, f.files[m.Index])
	}
	return out
}

func (f *FileManager) fail(msg string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failLocked(msg)
}
