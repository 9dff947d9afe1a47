/*
Package executor runs every request sheetdesk sends to the backend.

# Overview

An Executor owns the base URL, the default header set and the per-request
deadline of one profile. Resource clients build a Request and hand it to
Do; nothing else in the module talks to net/http directly.

# Headers

Default headers (JSON content type, profile headers) are applied first and
caller headers override them. Multipart requests never carry the default
Content-Type: the multipart writer's boundary type is set instead.

# Deadlines

Each call gets its own context.WithTimeout and the cancel func is always
deferred. Expired deadlines and caller cancellation both come back as
*apierr.AbortError. There are no retries.

# Response shapes

Envelope decodes the {success, data, message} wrapper; Binary returns the
raw body for exports and downloads. Both turn non-2xx statuses into
*apierr.HTTPStatusError.

# Journal

A Recorder, when configured, receives one Call per executed request.
*/
package executor
