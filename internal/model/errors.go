package model

import "github.com/rotisserie/eris"

// ErrNotFound is returned by stores when a record does not exist.
var ErrNotFound = eris.New("not found")

// ErrReferenced is returned by stores when a record cannot be removed
// because other records still point at it.
var ErrReferenced = eris.New("still referenced")
