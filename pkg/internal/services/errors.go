package services

import "errors"

// Taxonomy roots for service failures. Callers wrap them with context via
// fmt.Errorf("...: %w", ...) so the web layer can pick a status code with
// errors.Is. Missing records surface as gorm.ErrRecordNotFound.
var (
	ErrPermissionDenied = errors.New("permission denied")
	ErrInvalidRequest   = errors.New("invalid request")
)
