package bus_test

import (
	"reflect"
	"testing"

	"github.com/Shurtu-gal/studio/internal/bus"
)

func TestPublishInSubscriptionOrder(t *testing.T) {
	b := bus.New()
	var order []int
	for i := 1; i <= 3; i++ {
		i := i
		b.Subscribe(bus.TopicResourceRemoved, func(bus.Event) { order = append(order, i) })
	}

	b.Publish(bus.ResourceRemoved{ID: "a"})

	if !reflect.DeepEqual(order, []int{1, 2, 3}) {
		t.Fatalf("expected [1 2 3], got %v", order)
	}
}

func TestPublishOnlyMatchingTopic(t *testing.T) {
	b := bus.New()
	var removed, created int
	bus.On(b, func(bus.ResourceRemoved) { removed++ })
	bus.On(b, func(bus.ResourceCreated) { created++ })

	b.Publish(bus.ResourceRemoved{ID: "a"})
	b.Publish(bus.ResourceRemoved{ID: "b"})

	if removed != 2 || created != 0 {
		t.Fatalf("expected removed=2 created=0, got %d %d", removed, created)
	}
}

func TestTypedSubscriberReceivesPayload(t *testing.T) {
	b := bus.New()
	var got bus.ActiveTabChanged
	bus.On(b, func(ev bus.ActiveTabChanged) { got = ev })

	want := bus.ActiveTabChanged{TabID: "t1", Kind: bus.TabEditor, ResourceID: "spec.yaml"}
	b.Publish(want)

	if got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
}

func TestUnsubscribe(t *testing.T) {
	b := bus.New()
	var calls int
	unsubscribe := bus.On(b, func(bus.DocumentRemoved) { calls++ })

	b.Publish(bus.DocumentRemoved{URI: "x"})
	unsubscribe()
	unsubscribe()
	b.Publish(bus.DocumentRemoved{URI: "x"})

	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
}

func TestPublishFromHandler(t *testing.T) {
	b := bus.New()
	var seen []string
	bus.On(b, func(ev bus.ResourceRemoved) {
		seen = append(seen, "removed:"+ev.ID)
		b.Publish(bus.DocumentRemoved{URI: ev.URI})
	})
	bus.On(b, func(ev bus.DocumentRemoved) {
		seen = append(seen, "document:"+ev.URI)
	})

	b.Publish(bus.ResourceRemoved{ID: "a", URI: "file:///a"})

	want := []string{"removed:a", "document:file:///a"}
	if !reflect.DeepEqual(seen, want) {
		t.Fatalf("expected %v, got %v", want, seen)
	}
}

func TestSubscribeDuringPublishIsNotCalled(t *testing.T) {
	b := bus.New()
	var late int
	bus.On(b, func(bus.ResourceCreated) {
		bus.On(b, func(bus.ResourceCreated) { late++ })
	})

	b.Publish(bus.ResourceCreated{ID: "a"})
	if late != 0 {
		t.Fatalf("subscriber added during publish must not see the same event")
	}
	b.Publish(bus.ResourceCreated{ID: "b"})
	if late != 1 {
		t.Fatalf("expected late subscriber to see the next event, got %d", late)
	}
}
