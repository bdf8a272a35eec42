package repository

import "errors"

// ErrNotFound is returned by every store when no record exists for the key.
var ErrNotFound = errors.New("record not found")
