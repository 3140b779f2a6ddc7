// Command benchstress drives the reclamation engine at the concurrency
// spec.md section 1 describes benchmarking against: many worker goroutines,
// each allocating and dropping a large number of short-lived handles. It is
// an external collaborator (spec section 1's "benchmark harness"), not part
// of the core engine - grounded in the teacher's
// ExampleBatcher_independentOperations concurrent-submit shape, scaled up.
package main

import (
	"context"
	"flag"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/joeycumines/go-reclaim/reclaim"
	"go.uber.org/automaxprocs/maxprocs"
	"golang.org/x/sync/errgroup"
)

// payload is the object type driven through the engine; it increments a
// package counter on destruction so the benchmark can verify every object
// was destroyed exactly once.
type payload struct {
	id int
}

var destroyed atomic.Int64

func (p *payload) Destroy() { destroyed.Add(1) }

func main() {
	var (
		workers    = flag.Int("workers", 128, "number of concurrent producer goroutines")
		perWorker  = flag.Int("per-worker", 65536, "objects allocated and dropped per worker")
		period     = flag.Duration("period", 0, "reclamation worker wake period (0 selects the default)")
	)
	flag.Parse()

	undo, err := maxprocs.Set(maxprocs.Logger(func(string, ...any) {}))
	defer undo()
	if err != nil {
		fmt.Println("benchstress: automaxprocs:", err)
	}

	if err := reclaim.Start(*period); err != nil {
		fmt.Println("benchstress: reclaim.Start:", err)
	}

	start := time.Now()

	g, _ := errgroup.WithContext(context.Background())
	for w := 0; w < *workers; w++ {
		w := w
		g.Go(func() error {
			for i := 0; i < *perWorker; i++ {
				ref := reclaim.New(payload{id: w*1_000_000 + i})
				_ = ref.Get()
				ref.Drop()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		fmt.Println("benchstress: worker error:", err)
	}

	submitElapsed := time.Since(start)

	reclaim.SuggestRun()
	reclaim.Shutdown()

	totalElapsed := time.Since(start)
	total := int64(*workers) * int64(*perWorker)

	fmt.Printf("objects submitted: %d\n", total)
	fmt.Printf("objects destroyed: %d\n", destroyed.Load())
	fmt.Printf("submit phase: %s, total (incl. shutdown drain): %s\n", submitElapsed, totalElapsed)
	fmt.Printf("reclamation runs: %d\n", reclaim.RunCount())
}
