// Package repository implements the dual-store persistence used by the
// point-of-sale services.  An authoritative remote document store (MySQL or
// Postgres) is paired with an always-written local key/value store (SQLite
// or Redis), and Gateway composes the two so callers never see a remote
// outage as a hard failure.
//
// The sentinel errors below let higher layers distinguish why a remote call
// was skipped or failed.  Both remote kinds are recovered locally; they are
// reported through Result rather than returned to callers.
package repository

import "errors"

// ErrNotFound is returned by stores when a document or key does not exist.
var ErrNotFound = errors.New("not found")

// ErrRemoteUnavailable wraps any failure of the remote document store,
// including timeouts.  The local store is consulted instead.
var ErrRemoteUnavailable = errors.New("remote store unavailable")

// ErrConfigurationMissing means no remote store was configured.  It is
// handled exactly like ErrRemoteUnavailable.
var ErrConfigurationMissing = errors.New("remote store not configured")
