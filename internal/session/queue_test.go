package session

import (
	"context"
	"errors"
	"testing"
	"time"
)

// gatedPublisher records messages and holds each Publish until released.
type gatedPublisher struct {
	fakePublisher
	started chan struct{}
	release chan struct{}
}

func newGatedPublisher() *gatedPublisher {
	return &gatedPublisher{
		started: make(chan struct{}, 16),
		release: make(chan struct{}),
	}
}

func (g *gatedPublisher) Publish(stream string, payload []byte) error {
	g.started <- struct{}{}
	<-g.release
	return g.fakePublisher.Publish(stream, payload)
}

func waitStarted(t *testing.T, g *gatedPublisher) {
	t.Helper()
	select {
	case <-g.started:
	case <-time.After(2 * time.Second):
		t.Fatal("worker never reached the publisher")
	}
}

func TestPublishQueue_PreservesOrder(t *testing.T) {
	pub := &fakePublisher{}
	q := NewPublishQueue(pub, QueueOptions{})
	defer q.Close()

	for _, p := range []string{"a", "b", "c"} {
		if err := q.Publish("x", []byte(p)); err != nil {
			t.Fatalf("Publish(%s) error: %v", p, err)
		}
	}
	if err := q.Flush(context.Background()); err != nil {
		t.Fatalf("Flush() error: %v", err)
	}

	got := pub.all()
	if len(got) != 3 || got[0].payload != "a" || got[1].payload != "b" || got[2].payload != "c" {
		t.Errorf("published = %+v, want a, b, c in order", got)
	}
}

func TestPublishQueue_DropsWhenFull(t *testing.T) {
	g := newGatedPublisher()
	q := NewPublishQueue(g, QueueOptions{Size: 1})
	defer q.Close()

	q.Publish("x", []byte("a"))
	waitStarted(t, g)

	start := time.Now()
	q.Publish("x", []byte("b")) // buffered
	q.Publish("x", []byte("c")) // dropped
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("Publish waited %v on a stalled publisher", elapsed)
	}
	if q.Dropped() != 1 {
		t.Errorf("Dropped() = %d, want 1", q.Dropped())
	}

	close(g.release)
	if err := q.Flush(context.Background()); err != nil {
		t.Fatalf("Flush() error: %v", err)
	}
	got := g.all()
	if len(got) != 2 || got[0].payload != "a" || got[1].payload != "b" {
		t.Errorf("published = %+v, want a, b", got)
	}
}

func TestPublishQueue_Block(t *testing.T) {
	g := newGatedPublisher()
	q := NewPublishQueue(g, QueueOptions{Size: 1, Block: true})
	defer q.Close()

	q.Publish("x", []byte("a"))
	waitStarted(t, g)
	q.Publish("x", []byte("b"))

	done := make(chan struct{})
	go func() {
		q.Publish("x", []byte("c"))
		close(done)
	}()
	select {
	case <-done:
		t.Fatal("Publish returned while the queue was full")
	case <-time.After(50 * time.Millisecond):
	}

	close(g.release)
	<-done
	if err := q.Flush(context.Background()); err != nil {
		t.Fatalf("Flush() error: %v", err)
	}
	if got := g.all(); len(got) != 3 || q.Dropped() != 0 {
		t.Errorf("published %d, dropped %d, want 3 and 0", len(got), q.Dropped())
	}
}

func TestPublishQueue_CountsFailures(t *testing.T) {
	errDown := errors.New("down")
	q := NewPublishQueue(PublisherFunc(func(string, []byte) error { return errDown }), QueueOptions{})
	defer q.Close()

	q.Publish("x", nil)
	q.Publish("x", nil)
	if err := q.Flush(context.Background()); err != nil {
		t.Fatalf("Flush() error: %v", err)
	}
	if q.Failed() != 2 {
		t.Errorf("Failed() = %d, want 2", q.Failed())
	}
}

func TestPublishQueue_Close(t *testing.T) {
	g := newGatedPublisher()
	q := NewPublishQueue(g, QueueOptions{Size: 4})

	q.Publish("x", []byte("a"))
	waitStarted(t, g)
	q.Publish("x", []byte("b"))
	q.Close()
	q.Close()

	if err := q.Publish("x", []byte("c")); !errors.Is(err, ErrQueueClosed) {
		t.Errorf("Publish after Close error = %v, want ErrQueueClosed", err)
	}
	if err := q.Flush(context.Background()); !errors.Is(err, ErrQueueClosed) {
		t.Errorf("Flush after Close error = %v, want ErrQueueClosed", err)
	}

	close(g.release)
	time.Sleep(20 * time.Millisecond)
	if got := g.all(); len(got) != 1 || got[0].payload != "a" {
		t.Errorf("published = %+v, want only the in-flight a", got)
	}
}

func TestPublishQueue_FlushHonoursContext(t *testing.T) {
	g := newGatedPublisher()
	q := NewPublishQueue(g, QueueOptions{Size: 4})
	defer func() {
		close(g.release)
		q.Close()
	}()

	q.Publish("x", []byte("a"))
	waitStarted(t, g)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := q.Flush(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Flush() error = %v, want deadline exceeded", err)
	}
}
