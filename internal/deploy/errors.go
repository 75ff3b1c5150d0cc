package deploy

import "fmt"

// FileError is a fatal OS-level failure while deploying one file. It aborts
// the run; content anomalies are reported as warnings instead.
type FileError struct {
	// Op is the operation attempted: "read", "read template", "archive" or "write".
	Op   string
	Path string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FileError) Unwrap() error { return e.Err }
