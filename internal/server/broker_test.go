package server

import (
	"encoding/json"
	"testing"
)

func TestBrokerPublishToSubscriber(t *testing.T) {
	b := NewBroker()
	ch := b.Subscribe("p1")
	defer b.Unsubscribe("p1", ch)

	b.Publish("p1", Event{Type: "territory_closed", TerritoryID: "t1", AreaM2: 42})

	select {
	case data := <-ch:
		var ev Event
		if err := json.Unmarshal(data, &ev); err != nil {
			t.Fatalf("unmarshal event: %v", err)
		}
		if ev.Type != "territory_closed" || ev.TerritoryID != "t1" {
			t.Fatalf("got %+v", ev)
		}
	default:
		t.Fatal("expected a buffered event")
	}
}

func TestBrokerIsolatesPlayers(t *testing.T) {
	b := NewBroker()
	ch := b.Subscribe("p1")
	defer b.Unsubscribe("p1", ch)

	b.Publish("p2", Event{Type: "construction_started"})

	select {
	case <-ch:
		t.Fatal("p1 must not receive p2 events")
	default:
	}
}

func TestBrokerDropsWhenFull(t *testing.T) {
	b := NewBroker()
	ch := b.Subscribe("p1")
	defer b.Unsubscribe("p1", ch)

	// Channel buffers 16; publishing past that must not block.
	for i := 0; i < 40; i++ {
		b.Publish("p1", Event{Type: "upgrade_started", Level: i})
	}
	if len(ch) != 16 {
		t.Fatalf("buffered %d events, want 16", len(ch))
	}
}
