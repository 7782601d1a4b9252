package iftable

import (
	"net/netip"
	"sync"
	"testing"
)

func TestAddAddressFiresEnabledOnce(t *testing.T) {
	table := New()
	var events []Event
	table.AddListener(ListenerFunc(func(e Event) { events = append(events, e) }))

	addr := netip.MustParseAddr("fe80::1")
	table.AddAddress(2, addr)
	table.AddAddress(2, netip.MustParseAddr("fe80::2"))

	if len(events) != 1 {
		t.Fatalf("got %d events, want 1 (only first address should enable)", len(events))
	}
	if events[0].Kind != Enabled || events[0].Index != 2 || events[0].Family != FamilyV6 {
		t.Fatalf("unexpected event: %+v", events[0])
	}
}

func TestRemoveAddressFiresDisabledOnLast(t *testing.T) {
	table := New()
	addr := netip.MustParseAddr("192.0.2.1")
	table.AddAddress(3, addr)

	var events []Event
	table.AddListener(ListenerFunc(func(e Event) { events = append(events, e) }))
	table.RemoveAddress(3, addr)

	if len(events) != 1 || events[0].Kind != Disabled || events[0].Family != FamilyV4 {
		t.Fatalf("unexpected events: %+v", events)
	}
	if got := table.InAddresses(3); len(got) != 0 {
		t.Fatalf("InAddresses() = %v, want empty", got)
	}
}

func TestSnapshotReturnsBothFamilies(t *testing.T) {
	table := New()
	table.AddAddress(1, netip.MustParseAddr("192.0.2.1"))
	table.AddAddress(1, netip.MustParseAddr("fe80::1"))

	v4, v6 := table.Snapshot(1)
	if len(v4) != 1 || len(v6) != 1 {
		t.Fatalf("Snapshot() = (%v, %v), want one address each", v4, v6)
	}
}

func TestRemoveListener(t *testing.T) {
	table := New()
	var count int
	l := ListenerFunc(func(Event) { count++ })
	h := table.AddListener(l)
	table.RemoveListener(h)
	table.AddAddress(1, netip.MustParseAddr("fe80::1"))
	if count != 0 {
		t.Fatalf("listener fired %d times after removal, want 0", count)
	}
}

func TestConcurrentAddressMutation(t *testing.T) {
	table := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			addr := netip.AddrFrom4([4]byte{192, 0, 2, byte(i)})
			table.AddAddress(1, addr)
		}(i)
	}
	wg.Wait()
	if got := len(table.InAddresses(1)); got != 50 {
		t.Fatalf("InAddresses() len = %d, want 50", got)
	}
}

func TestLen(t *testing.T) {
	table := New()
	if table.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", table.Len())
	}
	table.AddAddress(1, netip.MustParseAddr("fe80::1"))
	table.AddAddress(2, netip.MustParseAddr("fe80::2"))
	if table.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", table.Len())
	}
}
