package processor

import (
	"errors"
	"testing"

	"github.com/voxrelay/agentcore/pkg/frame"
)

func TestClassifyErr(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		wantK   frame.ErrorKind
		wantP   string
	}{
		{"transient", Transient("stt", errors.New("timeout")), frame.ErrorTransient, "stt"},
		{"validation", Validation("vad", errors.New("bad frame")), frame.ErrorValidation, "vad"},
		{"fatal", Fatal("llm", errors.New("panic")), frame.ErrorFatal, "llm"},
		{"unclassified", errors.New("boom"), frame.ErrorFatal, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			kind, proc, msg := ClassifyErr(tc.err)
			if kind != tc.wantK {
				t.Errorf("kind = %v, want %v", kind, tc.wantK)
			}
			if proc != tc.wantP {
				t.Errorf("processor = %q, want %q", proc, tc.wantP)
			}
			if msg == "" {
				t.Error("message is empty")
			}
		})
	}
}

func TestClassifyErrWrapped(t *testing.T) {
	inner := Transient("stt", errors.New("timeout"))
	wrapped := errors.New("retry loop: " + inner.Error())
	kind, _, _ := ClassifyErr(wrapped)
	if kind != frame.ErrorFatal {
		t.Errorf("a plain-string wrap should not be recoverable as *Error; got %v", kind)
	}

	wrapped2 := &wrapErr{inner}
	kind2, proc2, _ := ClassifyErr(wrapped2)
	if kind2 != frame.ErrorTransient || proc2 != "stt" {
		t.Errorf("errors.As should unwrap through %%w chains; got kind=%v proc=%q", kind2, proc2)
	}
}

type wrapErr struct{ err error }

func (w *wrapErr) Error() string { return "wrapped: " + w.err.Error() }
func (w *wrapErr) Unwrap() error { return w.err }
