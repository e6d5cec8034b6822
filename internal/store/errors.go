package store

import "errors"

var (
	ErrSelfConnection      = errors.New("connection endpoints must differ")
	ErrUnknownCard         = errors.New("connection references an unknown card")
	ErrDuplicateConnection = errors.New("a connection between these cards already exists")
	ErrNoActiveConnection  = errors.New("no connection in progress")
)
