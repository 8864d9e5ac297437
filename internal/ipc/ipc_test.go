package ipc

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestQueueSendReceiveFIFO(t *testing.T) {
	q := NewQueue(4)
	ctx := context.Background()
	if err := q.Send(ctx, Message{To: "1", Body: []byte("a")}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if err := q.Send(ctx, Message{To: "1", Body: []byte("b")}); err != nil {
		t.Fatalf("Send: %v", err)
	}

	m1, err := q.Receive(ctx, "1", time.Second)
	if err != nil || string(m1.Body) != "a" {
		t.Fatalf("Receive = %v, %v; want a", m1, err)
	}
	m2, err := q.Receive(ctx, "1", time.Second)
	if err != nil || string(m2.Body) != "b" {
		t.Fatalf("Receive = %v, %v; want b", m2, err)
	}
}

func TestQueueReceiveBroadcastAddress(t *testing.T) {
	q := NewQueue(4)
	ctx := context.Background()
	q.Send(ctx, Message{To: "*", Body: []byte("hello all")})

	m, err := q.Receive(ctx, "anyone", time.Second)
	if err != nil || string(m.Body) != "hello all" {
		t.Fatalf("Receive broadcast = %v, %v", m, err)
	}
}

func TestQueueReceiveTimesOutWhenEmpty(t *testing.T) {
	q := NewQueue(4)
	_, err := q.Receive(context.Background(), "1", 20*time.Millisecond)
	if err == nil {
		t.Fatal("expected TIMED_OUT on empty queue")
	}
}

func TestQueueSendBlocksWhenFullThenUnblocks(t *testing.T) {
	q := NewQueue(1)
	ctx := context.Background()
	q.Send(ctx, Message{To: "1", Body: []byte("first")})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := q.Send(ctx, Message{To: "1", Body: []byte("second")}); err != nil {
			t.Errorf("blocked Send failed: %v", err)
		}
	}()

	time.Sleep(10 * time.Millisecond)
	q.Receive(ctx, "1", time.Second) // frees capacity for the blocked Send
	wg.Wait()
}

func TestSemaphoreWaitSignal(t *testing.T) {
	s := NewSemaphore(0)
	done := make(chan struct{})
	go func() {
		s.Wait()
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	select {
	case <-done:
		t.Fatal("Wait should still be blocked with count 0")
	default:
	}

	s.Signal()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Signal did not wake the waiter")
	}
}

func TestSemaphoreFIFOWakeOrder(t *testing.T) {
	s := NewSemaphore(0)
	var order []int
	woke := make(chan int, 3)

	for i := 0; i < 3; i++ {
		i := i
		go func() {
			s.Wait()
			woke <- i
		}()
		time.Sleep(5 * time.Millisecond) // ensure registration order
	}

	// Signal one at a time and wait for the woken goroutine to report, so
	// the recorded order is the wake order rather than a race between
	// goroutines that were all released together.
	for i := 0; i < 3; i++ {
		s.Signal()
		order = append(order, <-woke)
	}

	if len(order) != 3 || order[0] != 0 || order[1] != 1 || order[2] != 2 {
		t.Fatalf("expected FIFO wake order [0 1 2], got %v", order)
	}
}

func TestRegistryUnknownResource(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Queue("missing"); err == nil {
		t.Fatal("expected UNKNOWN_RESOURCE for uncreated queue")
	}
	if _, err := r.Semaphore("missing"); err == nil {
		t.Fatal("expected UNKNOWN_RESOURCE for uncreated semaphore")
	}

	r.CreateQueue("q1", 10)
	r.CreateSemaphore("s1", 1)
	queues, sems := r.Names()
	if len(queues) != 1 || queues[0] != "q1" || len(sems) != 1 || sems[0] != "s1" {
		t.Fatalf("Names() = %v, %v", queues, sems)
	}
}
