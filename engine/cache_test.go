package engine

import (
	"testing"

	"github.com/juliengirard/pandeia-coronagraphy/frame"
	"github.com/juliengirard/pandeia-coronagraphy/scene"
)

func TestFingerprintStability(t *testing.T) {
	inst := scene.Instrument{Name: "nircam", Filter: "f210m", Mask: "mask210r"}

	a, err := Fingerprint(inst)
	if err != nil {
		t.Fatalf("Fingerprint: %v", err)
	}
	b, err := Fingerprint(inst)
	if err != nil {
		t.Fatalf("Fingerprint: %v", err)
	}
	if a != b {
		t.Errorf("same parameters fingerprinted differently: %s vs %s", a, b)
	}
	if len(a) != 64 {
		t.Errorf("fingerprint length = %d, want 64 hex chars", len(a))
	}

	inst.Filter = "f335m"
	c, err := Fingerprint(inst)
	if err != nil {
		t.Fatalf("Fingerprint: %v", err)
	}
	if c == a {
		t.Error("different parameters produced the same fingerprint")
	}
}

func TestFingerprintUnencodable(t *testing.T) {
	if _, err := Fingerprint(func() {}); err == nil {
		t.Error("Fingerprint accepted an unencodable value")
	}
}

func TestPSFCacheEviction(t *testing.T) {
	c := NewPSFCache(2)
	psf := frame.New(2, 2)

	c.Put("a", psf)
	c.Put("b", psf)
	// touch "a" so "b" becomes the eviction candidate
	if _, ok := c.Get("a"); !ok {
		t.Fatal(`Get("a") missed`)
	}
	c.Put("c", psf)

	if c.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", c.Len())
	}
	if _, ok := c.Get("b"); ok {
		t.Error(`"b" survived eviction`)
	}
	if _, ok := c.Get("a"); !ok {
		t.Error(`"a" was evicted despite being recently used`)
	}
	if _, ok := c.Get("c"); !ok {
		t.Error(`"c" missing right after Put`)
	}
}

func TestPSFCacheCopiesFrames(t *testing.T) {
	c := NewPSFCache(4)
	psf := frame.New(2, 2)
	psf[0][0] = 1
	c.Put("k", psf)

	// mutating the frame handed to Put must not reach the cache
	psf[0][0] = 99
	got, ok := c.Get("k")
	if !ok {
		t.Fatal("Get missed")
	}
	if got[0][0] != 1 {
		t.Errorf("cached value = %g, want 1", got[0][0])
	}

	// nor must mutating the frame handed back by Get
	got[0][0] = -5
	again, _ := c.Get("k")
	if again[0][0] != 1 {
		t.Errorf("cache mutated through Get result: %g", again[0][0])
	}
}

func TestPSFCacheUpdateExisting(t *testing.T) {
	c := NewPSFCache(2)
	a := frame.New(1, 1)
	a[0][0] = 1
	b := frame.New(1, 1)
	b[0][0] = 2

	c.Put("k", a)
	c.Put("k", b)
	if c.Len() != 1 {
		t.Fatalf("Len() = %d, want 1 after re-Put", c.Len())
	}
	got, _ := c.Get("k")
	if got[0][0] != 2 {
		t.Errorf("value = %g, want the updated 2", got[0][0])
	}
}

func TestPSFCacheStats(t *testing.T) {
	c := NewPSFCache(1)
	c.Put("k", frame.New(1, 1))

	c.Get("k")
	c.Get("k")
	c.Get("missing")

	hits, misses := c.Stats()
	if hits != 2 || misses != 1 {
		t.Errorf("Stats() = (%d, %d), want (2, 1)", hits, misses)
	}
}

func TestPSFCacheMinimumCapacity(t *testing.T) {
	c := NewPSFCache(0)
	c.Put("a", frame.New(1, 1))
	c.Put("b", frame.New(1, 1))
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want capacity floor of 1", c.Len())
	}
}
