package repository

import "errors"

// ErrDuplicate reports a unique constraint violation in the store.
var ErrDuplicate = errors.New("duplicate record")
