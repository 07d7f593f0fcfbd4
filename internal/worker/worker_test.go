package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestSubmit_PreservesOrder(t *testing.T) {
	s := NewSerial(16)
	defer s.Close()

	var got []int
	for i := 0; i < 100; i++ {
		i := i
		if err := s.Submit(context.Background(), func() {
			got = append(got, i)
		}); err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
	}

	for i, v := range got {
		if v != i {
			t.Fatalf("task %d ran out of order: got %d", i, v)
		}
	}
}

func TestSubmit_NeverOverlaps(t *testing.T) {
	s := NewSerial(16)
	defer s.Close()

	var running, max int
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Submit(context.Background(), func() {
				mu.Lock()
				running++
				if running > max {
					max = running
				}
				mu.Unlock()

				time.Sleep(time.Millisecond)

				mu.Lock()
				running--
				mu.Unlock()
			})
		}()
	}
	wg.Wait()

	if max != 1 {
		t.Errorf("expected at most 1 concurrent task, got %d", max)
	}
}

func TestSubmit_ContextCancelledBeforeAccept(t *testing.T) {
	s := NewSerial(1)
	defer s.Close()

	release := make(chan struct{})
	go s.Submit(context.Background(), func() { <-release })
	time.Sleep(10 * time.Millisecond)

	// Fill the queue so the next submit blocks.
	go s.Submit(context.Background(), func() {})
	time.Sleep(10 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := s.Submit(ctx, func() { t.Error("task should not run") })
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}

	close(release)
}

func TestSubmit_AfterClose(t *testing.T) {
	s := NewSerial(4)
	s.Close()

	err := s.Submit(context.Background(), func() {})
	if !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}

func TestClose_DrainsAcceptedTasks(t *testing.T) {
	s := NewSerial(16)

	ran := 0
	for i := 0; i < 8; i++ {
		go s.Submit(context.Background(), func() { ran++ })
	}
	time.Sleep(20 * time.Millisecond)
	s.Close()

	if ran != 8 {
		t.Errorf("expected 8 tasks drained, got %d", ran)
	}
}

func TestRun_ReturnsTaskError(t *testing.T) {
	s := NewSerial(4)
	defer s.Close()

	want := errors.New("boom")
	if err := s.Run(context.Background(), func() error { return want }); !errors.Is(err, want) {
		t.Errorf("expected task error, got %v", err)
	}
	if err := s.Run(context.Background(), func() error { return nil }); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
