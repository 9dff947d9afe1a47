/*
Package types defines the data structures exchanged with the spreadsheet
backend and shared by the client layers of sheetdesk.

# Envelope

Every non-binary backend response is wrapped in an Envelope:

	{"success": true, "data": ..., "message": "..."}

An envelope with success=false is application data, not a transport
failure; callers branch on Success.

# Resources

  - FileRecord, SheetRef, DataRow: uploaded workbooks and their rows
  - ComparisonResult, Difference, ComparisonSummary: diff results
  - ChangeRecord, HistoryFilter, HistoryStats: audit log
  - Page: paginated list wrapper used by the history endpoints

# Configuration

Profile and Session describe the backend a client talks to and who the
acting user is.
*/
package types
