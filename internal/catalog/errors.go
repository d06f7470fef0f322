package catalog

// Error wraps an underlying error with the store operation for diagnostics.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return "catalog " + e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }
