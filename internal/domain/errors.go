// Package domain provides shared domain-level sentinel errors.
package domain

import "errors"

// ErrNotFound indicates the requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrNoExtension indicates no registered extension serves the requested
// language server.
var ErrNoExtension = errors.New("no extension registered for language server")
