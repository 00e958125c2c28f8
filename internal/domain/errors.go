package domain

import "errors"

var (
	ErrNotFound    = errors.New("not found")
	ErrUnsupported = errors.New("operation not supported by venue")
	ErrStaleFeed   = errors.New("feed has no fresh data")
	ErrNilInput    = errors.New("nil required argument")
)
