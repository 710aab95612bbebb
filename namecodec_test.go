package memphis

import "testing"

func TestSanitizeLowercases(t *testing.T) {
	got, err := sanitize("Orders-Station", false)
	if err != nil {
		t.Fatalf("sanitize: %v", err)
	}
	if got != "orders-station" {
		t.Fatalf("got %q, want %q", got, "orders-station")
	}
}

func TestSanitizeAddsUniqueSuffix(t *testing.T) {
	a, err := sanitize("producer", true)
	if err != nil {
		t.Fatalf("sanitize: %v", err)
	}
	b, err := sanitize("producer", true)
	if err != nil {
		t.Fatalf("sanitize: %v", err)
	}
	if a == b {
		t.Fatalf("expected distinct suffixes, got %q twice", a)
	}
	if len(a) != len("producer")+1+8 {
		t.Fatalf("unexpected suffixed length: %q", a)
	}
}

func TestInternalNameReplacesDots(t *testing.T) {
	got := internalName("orders.eu.west")
	want := "orders#eu#west"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestPartitionOfIsDeterministic(t *testing.T) {
	a := partitionOf("orders.final-3", 8)
	b := partitionOf("orders.final-3", 8)
	if a != b {
		t.Fatalf("partitionOf not deterministic: %d != %d", a, b)
	}
	if a < 0 || a >= 8 {
		t.Fatalf("partitionOf out of range: %d", a)
	}
}

func TestPartitionOfSpreadsKeys(t *testing.T) {
	seen := map[int]bool{}
	for i := 0; i < 64; i++ {
		key := internalName("station.final") + "-" + string(rune('a'+i%26))
		seen[partitionOf(key, 8)] = true
	}
	if len(seen) < 2 {
		t.Fatalf("expected partitionOf to spread keys across buckets, got %v", seen)
	}
}
