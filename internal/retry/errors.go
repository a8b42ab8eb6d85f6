package retry

import "fmt"

// ExhaustedRetriesError reports that every allowed attempt failed transiently.
// It is fatal for the unit of work only.
type ExhaustedRetriesError struct {
	Attempts int
	Last     error
}

func (err *ExhaustedRetriesError) Error() string {
	return fmt.Sprintf("exhausted %d attempts: %v", err.Attempts, err.Last)
}

func (err *ExhaustedRetriesError) Unwrap() error { return err.Last }

// CanceledError reports that the run was cancelled between attempts.
type CanceledError struct {
	Attempts int
	Err      error
}

func (err *CanceledError) Error() string {
	return fmt.Sprintf("canceled after %d attempts: %v", err.Attempts, err.Err)
}

func (err *CanceledError) Unwrap() error { return err.Err }
