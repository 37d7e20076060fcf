package eventbus

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestPublishFanout(t *testing.T) {
	t.Parallel()
	b := New()
	a, unsubA := b.Subscribe(4)
	c, unsubC := b.Subscribe(4)
	defer unsubC()

	b.Publish(Event{Type: TypeLog, Data: "hello"})
	for _, ch := range []<-chan Event{a, c} {
		select {
		case e := <-ch:
			if e.Type != TypeLog || e.Time.IsZero() {
				t.Fatalf("unexpected event %+v", e)
			}
		case <-time.After(time.Second):
			t.Fatal("event not delivered")
		}
	}

	unsubA()
	unsubA()
	if _, ok := <-a; ok {
		t.Fatal("channel should be closed after unsubscribe")
	}
	b.Publish(Event{Type: TypeEmission})
}

func TestPublishDropsForSlowSubscriber(t *testing.T) {
	t.Parallel()
	b := New()
	ch, unsub := b.Subscribe(1)
	defer unsub()
	for range 10 {
		b.Publish(Event{Type: TypeSchedule})
	}
	if len(ch) != 1 {
		t.Fatalf("buffered = %d, want 1", len(ch))
	}
}

func TestPosterRunsInOrderOnOneGoroutine(t *testing.T) {
	t.Parallel()
	p := NewPoster()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = p.Run(ctx)
		close(done)
	}()

	var mu sync.Mutex
	var got []int
	var wg sync.WaitGroup
	wg.Add(50)
	for i := range 50 {
		p.Post(func() {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
			wg.Done()
		})
	}
	wg.Wait()
	cancel()
	<-done

	for i, v := range got {
		if v != i {
			t.Fatalf("order broken at %d: %v", i, got)
		}
	}
	if p.Post(func() {}) {
		t.Fatal("Post after Run returned should be rejected")
	}
}

func TestPosterDrain(t *testing.T) {
	t.Parallel()
	p := NewPoster()
	n := 0
	p.Post(func() { n++ })
	p.Post(func() { n++ })
	if ran := p.Drain(); ran != 2 || n != 2 {
		t.Fatalf("Drain ran %d, n=%d", ran, n)
	}
	if p.Drain() != 0 {
		t.Fatal("second Drain should be empty")
	}
}
