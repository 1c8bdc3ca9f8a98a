package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/juliengirard/pandeia-coronagraphy/frame"
)

// calcFunc adapts a function to the Calculator interface for tests.
type calcFunc func(ctx context.Context, calc Calculation, opts Options) (*Result, error)

func (f calcFunc) Calculate(ctx context.Context, calc Calculation, opts Options) (*Result, error) {
	return f(ctx, calc, opts)
}

func TestSweepPositionalResults(t *testing.T) {
	c := calcFunc(func(_ context.Context, calc Calculation, _ Options) (*Result, error) {
		return &Result{ID: calc.ID, Target: SourceResult{Detector: frame.New(1, 1)}}, nil
	})

	calcs := make([]Calculation, 5)
	for i := range calcs {
		calcs[i] = Calculation{ID: fmt.Sprintf("calc-%d", i)}
	}

	results, err := Sweep(context.Background(), c, calcs, DefaultOptions(), 3)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if len(results) != len(calcs) {
		t.Fatalf("len(results) = %d, want %d", len(results), len(calcs))
	}
	for i, res := range results {
		if res == nil || res.ID != calcs[i].ID {
			t.Errorf("results[%d] = %+v, want ID %q", i, res, calcs[i].ID)
		}
	}
}

func TestSweepCollectsFailures(t *testing.T) {
	boom := errors.New("detector saturated")
	c := calcFunc(func(_ context.Context, calc Calculation, _ Options) (*Result, error) {
		if calc.ID == "bad" {
			return nil, boom
		}
		return &Result{ID: calc.ID}, nil
	})

	calcs := []Calculation{{ID: "ok-1"}, {ID: "bad"}, {ID: "ok-2"}}
	results, err := Sweep(context.Background(), c, calcs, DefaultOptions(), 2)
	if err == nil {
		t.Fatal("Sweep returned nil error despite a failed calculation")
	}
	if !errors.Is(err, boom) {
		t.Errorf("error %v does not wrap the calculation failure", err)
	}
	if !strings.Contains(err.Error(), `"bad"`) {
		t.Errorf("error %q does not name the failed calculation", err)
	}
	if results[0] == nil || results[2] == nil {
		t.Error("successful calculations lost their result slots")
	}
	if results[1] != nil {
		t.Error("failed calculation left a non-nil result")
	}
}

func TestSweepHonorsWorkerLimit(t *testing.T) {
	const workers = 2
	var inFlight, peak int32

	block := make(chan struct{})
	c := calcFunc(func(_ context.Context, calc Calculation, _ Options) (*Result, error) {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		<-block
		atomic.AddInt32(&inFlight, -1)
		return &Result{ID: calc.ID}, nil
	})

	calcs := make([]Calculation, 6)
	for i := range calcs {
		calcs[i] = Calculation{ID: fmt.Sprintf("c%d", i)}
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if _, err := Sweep(context.Background(), c, calcs, DefaultOptions(), workers); err != nil {
			t.Errorf("Sweep: %v", err)
		}
	}()
	close(block)
	wg.Wait()

	if p := atomic.LoadInt32(&peak); p > workers {
		t.Errorf("peak concurrency = %d, want <= %d", p, workers)
	}
}

func TestSweepCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var ran int32
	c := calcFunc(func(_ context.Context, calc Calculation, _ Options) (*Result, error) {
		atomic.AddInt32(&ran, 1)
		return &Result{ID: calc.ID}, nil
	})

	results, err := Sweep(ctx, c, []Calculation{{ID: "a"}, {ID: "b"}}, DefaultOptions(), 2)
	if err == nil {
		t.Fatal("Sweep returned nil error for a canceled context")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error %v does not wrap context.Canceled", err)
	}
	if atomic.LoadInt32(&ran) != 0 {
		t.Errorf("%d calculations ran after cancellation", ran)
	}
	for i, res := range results {
		if res != nil {
			t.Errorf("results[%d] = %+v, want nil", i, res)
		}
	}
}
