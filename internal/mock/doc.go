// Package mock is an in-memory stand-in for the spreadsheet data backend.
//
// It serves the same REST surface under the same base path, so the client
// can be developed and tested without the real service:
//
//	srv := httptest.NewServer(mock.NewBackend(mock.DefaultConfig()).Handler())
//
// Uploaded workbooks are parsed with excelize when processed, every row
// edit is recorded in the change history, and comparisons match rows by
// position within each sheet.
package mock
