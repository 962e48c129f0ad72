package pipeline

import (
	"errors"
	"fmt"
)

// ErrBusy is returned when a submission arrives while another is running or
// a failure is still on display.
var ErrBusy = errors.New("pipeline busy")

// StageError records which stage a submission failed in.
type StageError struct {
	Stage Status
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
