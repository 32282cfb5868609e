package firefly

import (
	"errors"
	"fmt"
)

var (
	ErrConfig     = errors.New("invalid generation parameters")
	ErrAuth       = errors.New("authentication rejected")
	ErrModeration = errors.New("prompt rejected by content moderation")
	ErrSubmission = errors.New("generation request rejected")
	ErrPoll       = errors.New("status polling failed")
	ErrGeneration = errors.New("generation job failed")
	ErrTimeout    = errors.New("generation timed out")
)

// Fault couples one of the sentinel error kinds with detail that is safe to
// show in chat. Credentials and tokens must never end up in Detail.
type Fault struct {
	Kind   error
	Detail string
}

func (f *Fault) Error() string {
	if f.Detail == "" {
		return f.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", f.Kind.Error(), f.Detail)
}

func (f *Fault) Unwrap() error {
	return f.Kind
}

func newFault(kind error, format string, args ...any) *Fault {
	return &Fault{
		Kind:   kind,
		Detail: fmt.Sprintf(format, args...),
	}
}

// faultDetail extracts the user-presentable detail from an error, if any.
func faultDetail(err error) string {
	var f *Fault
	if errors.As(err, &f) {
		return f.Detail
	}
	return ""
}
