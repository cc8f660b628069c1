package app

import (
	"context"
	"errors"
	"testing"
)

func TestCompleter_NilClient(t *testing.T) {
	a := &App{}
	// A plain conversion of a nil *ai.Client would produce a non-nil
	// interface and bypass the generator's degraded mode.
	if a.Completer() != nil {
		t.Error("Completer() with nil client must return a nil interface")
	}
}

func TestCollection_WithoutStore(t *testing.T) {
	a := &App{}
	_, err := a.Collection(context.Background())
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Errorf("Collection() error = %v, want ErrStoreUnavailable", err)
	}
}

func TestClose_PartialApp(t *testing.T) {
	a := &App{}
	if err := a.Close(); err != nil {
		t.Errorf("Close() on empty app = %v", err)
	}
}
