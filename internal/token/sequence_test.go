package token

import (
	stderrors "errors"
	"testing"

	"github.com/overlap-ml/neardup/pkg/errors"
)

func TestFromInts(t *testing.T) {
	s, err := FromInts("doc-1", []int64{0, 1, 4294967295})
	if err != nil {
		t.Fatalf("FromInts: %v", err)
	}
	if s.Len() != 3 || s[2] != 4294967295 {
		t.Errorf("unexpected sequence %v", s)
	}
}

func TestFromIntsRejectsNegative(t *testing.T) {
	_, err := FromInts("doc-2", []int64{1, -5, 3})
	if !stderrors.Is(err, errors.ErrMalformedInput) {
		t.Fatalf("err = %v, want ErrMalformedInput", err)
	}
	var scanErr *errors.ScanError
	if !stderrors.As(err, &scanErr) || scanErr.InputID != "doc-2" {
		t.Errorf("error does not carry the input id: %v", err)
	}
}

func TestFromIntsRejectsOverflow(t *testing.T) {
	_, err := FromInts("doc-3", []int64{4294967296})
	if !stderrors.Is(err, errors.ErrMalformedInput) {
		t.Fatalf("err = %v, want ErrMalformedInput", err)
	}
}

func TestFromIntsEmpty(t *testing.T) {
	s, err := FromInts("doc-4", nil)
	if err != nil {
		t.Fatalf("FromInts: %v", err)
	}
	if s.Len() != 0 {
		t.Errorf("Len = %d, want 0", s.Len())
	}
}

func TestWindow(t *testing.T) {
	s := Sequence{10, 20, 30, 40, 50}
	w := s.Window(1, 3)
	if len(w) != 3 || w[0] != 20 || w[2] != 40 {
		t.Errorf("Window(1, 3) = %v", w)
	}
}
