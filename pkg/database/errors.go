package database

import "errors"

// ErrNotReady wraps the ping failure when the server cannot be reached at startup.
var ErrNotReady = errors.New("database not ready")
