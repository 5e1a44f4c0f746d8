package errors

import (
	stderrors "errors"
	"testing"
)

func TestScanErrorWrapsSentinel(t *testing.T) {
	err := Newf(ErrMalformedInput, "doc-7", "negative token at %d", 3)
	if !stderrors.Is(err, ErrMalformedInput) {
		t.Fatal("errors.Is failed to see the sentinel")
	}
	var scanErr *ScanError
	if !stderrors.As(err, &scanErr) {
		t.Fatal("errors.As failed")
	}
	if scanErr.InputID != "doc-7" {
		t.Errorf("InputID = %q, want doc-7", scanErr.InputID)
	}
}

func TestIsFatal(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{New(ErrInvalidConfig, "", "bad threshold"), true},
		{New(ErrNoCorpus, "dir", "empty"), true},
		{New(ErrNoQueries, "file", "empty"), true},
		{New(ErrInvariant, "", "broken index"), true},
		{New(ErrMalformedInput, "doc-1", "negative id"), false},
		{New(ErrResource, "file", "unreadable"), false},
		{nil, false},
	}
	for _, tt := range tests {
		if got := IsFatal(tt.err); got != tt.want {
			t.Errorf("IsFatal(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{New(ErrInvalidConfig, "", "x"), 2},
		{New(ErrNoCorpus, "", "x"), 3},
		{New(ErrNoQueries, "", "x"), 3},
		{New(ErrInvariant, "", "x"), 4},
		{stderrors.New("anything else"), 1},
	}
	for _, tt := range tests {
		if got := ExitCode(tt.err); got != tt.want {
			t.Errorf("ExitCode(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
