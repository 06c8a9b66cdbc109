package domain

import "github.com/cockroachdb/errors"

var ErrEntityNotFound = errors.New("entity not found")
var ErrOptimisticLock = errors.New("entity was modified concurrently")
var ErrNativeQueryUnsupported = errors.New("native queries are not supported by this session")
// ErrDuplicateKey is returned when an insert collides with a stored key,
// including one held by a soft-deleted record.
var ErrDuplicateKey = errors.New("duplicate key")
var ErrUnknownField = errors.New("unknown field")
var ErrForbidden = errors.New("access forbidden")

var ErrInvalidCredentials = errors.New("invalid credentials")
var ErrUserNotFound = errors.New("user not found")
var ErrUserExists = errors.New("user already exists")
