package events

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/mycelian/postybirb/internal/model"
)

func newTestBus() *Bus {
	return NewBus(zerolog.New(io.Discard), time.Second)
}

func TestBus_GroupsKindsIntoOneCallPerCommit(t *testing.T) {
	bus := newTestBus()
	var calls [][]Change
	bus.Subscribe([]model.EntityKind{model.KindSubmission, model.KindWebsiteOption}, func(_ context.Context, c []Change) error {
		calls = append(calls, c)
		return nil
	})

	bus.Publish(context.Background(), []Change{
		{Kind: ChangeCreate, Entity: &model.Submission{ID: "s1"}},
		{Kind: ChangeCreate, Entity: &model.WebsiteOption{ID: "o1"}},
		{Kind: ChangeCreate, Entity: &model.WebsiteOption{ID: "o2"}},
		{Kind: ChangeCreate, Entity: &model.Account{ID: "a1"}},
	})

	if len(calls) != 1 {
		t.Fatalf("expected exactly one callback, got %d", len(calls))
	}
	if len(calls[0]) != 3 {
		t.Fatalf("expected 3 matching changes, got %d", len(calls[0]))
	}
	if calls[0][0].Entity.EntityID() != "s1" || calls[0][2].Entity.EntityID() != "o2" {
		t.Fatalf("commit order not preserved: %+v", calls[0])
	}
}

func TestBus_FoldsExactDuplicates(t *testing.T) {
	bus := newTestBus()
	var got []Change
	bus.Subscribe([]model.EntityKind{model.KindSubmission}, func(_ context.Context, c []Change) error {
		got = c
		return nil
	})
	s := &model.Submission{ID: "s1"}
	bus.Publish(context.Background(), []Change{
		{Kind: ChangeUpdate, Entity: s},
		{Kind: ChangeUpdate, Entity: s},
		{Kind: ChangeDelete, Entity: s},
	})
	if len(got) != 2 {
		t.Fatalf("expected duplicates folded to 2 changes, got %d", len(got))
	}
}

func TestBus_NoMatchNoCall(t *testing.T) {
	bus := newTestBus()
	called := false
	bus.Subscribe([]model.EntityKind{model.KindSettings}, func(context.Context, []Change) error {
		called = true
		return nil
	})
	bus.Publish(context.Background(), []Change{{Kind: ChangeCreate, Entity: &model.Account{ID: "a"}}})
	bus.Publish(context.Background(), nil)
	if called {
		t.Fatalf("callback must not fire without matching changes")
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := newTestBus()
	n := 0
	unsub := bus.Subscribe([]model.EntityKind{model.KindAccount}, func(context.Context, []Change) error {
		n++
		return nil
	})
	change := []Change{{Kind: ChangeCreate, Entity: &model.Account{ID: "a"}}}
	bus.Publish(context.Background(), change)
	unsub()
	unsub()
	bus.Publish(context.Background(), change)
	if n != 1 {
		t.Fatalf("expected 1 call before unsubscribe, got %d", n)
	}
	if bus.Subscribers() != 0 {
		t.Fatalf("expected no subscribers, got %d", bus.Subscribers())
	}
}

func TestBus_FailingCallbacksDoNotStopOthers(t *testing.T) {
	bus := newTestBus()
	kinds := []model.EntityKind{model.KindAccount}
	bus.Subscribe(kinds, func(context.Context, []Change) error { panic("boom") })
	bus.Subscribe(kinds, func(context.Context, []Change) error { return errors.New("nope") })
	reached := 0
	bus.Subscribe(kinds, func(context.Context, []Change) error {
		reached++
		return nil
	})

	bus.Publish(context.Background(), []Change{{Kind: ChangeCreate, Entity: &model.Account{ID: "a"}}})
	if reached != 1 {
		t.Fatalf("third subscriber should run once, ran %d", reached)
	}
}

func TestBus_CallbackContextBoundedAndDetached(t *testing.T) {
	bus := NewBus(zerolog.New(io.Discard), 50*time.Millisecond)
	var deadlineSet bool
	var cancelledOnEntry bool
	bus.Subscribe([]model.EntityKind{model.KindAccount}, func(ctx context.Context, _ []Change) error {
		_, deadlineSet = ctx.Deadline()
		cancelledOnEntry = ctx.Err() != nil
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	bus.Publish(ctx, []Change{{Kind: ChangeCreate, Entity: &model.Account{ID: "a"}}})
	if !deadlineSet {
		t.Fatalf("callback context should carry a deadline")
	}
	if cancelledOnEntry {
		t.Fatalf("callback context should not inherit publisher cancellation")
	}
}
