package dualbind

import (
	"context"
	"testing"
	"time"
)

func TestFeedGetSet(t *testing.T) {
	f := NewFeed("idle")
	if f.Get() != "idle" {
		t.Errorf("initial value = %q, want idle", f.Get())
	}
	f.Set("running")
	if f.Get() != "running" {
		t.Errorf("value after Set = %q, want running", f.Get())
	}
	f.Update(func(s string) string { return s + "!" })
	if f.Get() != "running!" {
		t.Errorf("value after Update = %q", f.Get())
	}
}

func TestFeedUpdatesDeliversCurrentFirst(t *testing.T) {
	f := NewFeed(1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := f.Updates(ctx)
	select {
	case v := <-ch:
		if v != 1 {
			t.Errorf("first value = %v, want 1", v)
		}
	case <-time.After(time.Second):
		t.Fatal("no initial value delivered")
	}

	f.Set(2)
	select {
	case v := <-ch:
		if v != 2 {
			t.Errorf("update = %v, want 2", v)
		}
	case <-time.After(time.Second):
		t.Fatal("no update delivered")
	}
}

func TestFeedUpdatesClosesOnCancel(t *testing.T) {
	f := NewFeed("x")
	ctx, cancel := context.WithCancel(context.Background())
	ch := f.Updates(ctx)
	<-ch // drain initial value
	cancel()

	select {
	case _, open := <-ch:
		if open {
			// A buffered update may race the cancel; the next receive
			// must observe the close.
			if _, open := <-ch; open {
				t.Error("channel still open after cancel")
			}
		}
	case <-time.After(time.Second):
		t.Fatal("channel not closed after cancel")
	}
}

func TestFeedSlowSubscriberGetsLatest(t *testing.T) {
	f := NewFeed(0)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := f.Updates(ctx)
	<-ch // drain initial value

	// Burst of updates with nobody receiving: latest wins.
	for i := 1; i <= 100; i++ {
		f.Set(i)
	}

	deadline := time.After(time.Second)
	var last any
	for {
		select {
		case v := <-ch:
			last = v
			if v == 100 {
				return
			}
		case <-deadline:
			t.Fatalf("never observed latest value, last = %v", last)
		}
	}
}
