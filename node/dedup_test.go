package node

import (
	"testing"
	"time"
)

func TestDeduplicatorRejectsRepeat(t *testing.T) {
	d := NewDeduplicator(time.Minute)
	if !d.CheckAndInsert([]byte("frame-1")) {
		t.Fatalf("first sighting should be new")
	}
	if d.CheckAndInsert([]byte("frame-1")) {
		t.Fatalf("repeat within ttl should be rejected")
	}
	if d.Len() != 1 {
		t.Fatalf("len = %d, want 1", d.Len())
	}
}

func TestDeduplicatorExpiresAfterTTL(t *testing.T) {
	now := time.Unix(0, 0)
	d := NewDeduplicator(time.Second)
	d.now = func() time.Time { return now }

	if !d.CheckAndInsert([]byte("frame-1")) {
		t.Fatalf("first sighting should be new")
	}
	now = now.Add(2 * time.Second)
	if !d.CheckAndInsert([]byte("frame-1")) {
		t.Fatalf("frame should be treated as new again after ttl expiry")
	}
}

func TestDeduplicatorDistinguishesFrames(t *testing.T) {
	d := NewDeduplicator(time.Minute)
	if !d.CheckAndInsert([]byte("a")) || !d.CheckAndInsert([]byte("b")) {
		t.Fatalf("distinct frames should both be new")
	}
	if d.Len() != 2 {
		t.Fatalf("len = %d, want 2", d.Len())
	}
}
