package idgen

import "github.com/google/uuid"

// NewFunc generates an identifier; tests may replace it.
var NewFunc = func() string { return uuid.New().String() }

// New returns a new unique entry identifier.
func New() string { return NewFunc() }
