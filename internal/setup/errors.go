package setup

import "errors"

var ErrMigrationsPending = errors.New("closing program due to incomplete migrations")
