package shutdown

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestShutdownRunsInReverseOrder(t *testing.T) {
	m := New(time.Second)

	var order []int
	for i := 0; i < 3; i++ {
		n := i
		m.Register(func(context.Context) error {
			order = append(order, n)
			return nil
		})
	}

	if err := m.Shutdown(); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(order) != 3 || order[0] != 2 || order[2] != 0 {
		t.Errorf("Expected reverse order, got %v", order)
	}
}

func TestShutdownReturnsFirstError(t *testing.T) {
	m := New(time.Second)
	errA := errors.New("a")
	errB := errors.New("b")
	m.Register(func(context.Context) error { return errA })
	m.Register(func(context.Context) error { return errB })

	// errB registered last, runs first
	if err := m.Shutdown(); err != errB {
		t.Errorf("Expected first-run error %v, got %v", errB, err)
	}
}

func TestDoneClosesOnShutdown(t *testing.T) {
	m := New(time.Second)

	select {
	case <-m.Done():
		t.Fatal("Done closed before shutdown")
	default:
	}

	m.Shutdown()

	select {
	case <-m.Done():
	case <-time.After(time.Second):
		t.Fatal("Done not closed after shutdown")
	}
}
