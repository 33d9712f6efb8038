package transpiler

import (
	"context"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-hll/engine/shader"
)

// batchQueueSize bounds the pool's task queue; SubmitTask blocks while it is full.
const batchQueueSize = 256

// Result is the outcome of one program of a batch.
type Result struct {
	Program  string
	Artifact *Artifact
	Err      error
}

func (t *transpiler) TranspileAll(ctx context.Context, progs []*shader.Program) []Result {
	results := make([]Result, len(progs))
	if len(progs) == 0 {
		return results
	}

	t.poolOnce.Do(func() {
		t.pool = worker.NewDynamicWorkerPool(t.workers, batchQueueSize, 1*time.Second)
	})

	var wg sync.WaitGroup
	for i, prog := range progs {
		results[i].Program = prog.Name
		if err := ctx.Err(); err != nil {
			results[i].Err = err
			continue
		}

		wg.Add(1)
		idx := i
		p := prog
		t.pool.SubmitTask(worker.Task{
			ID:      idx,
			Payload: p.Name,
			Do: func() (any, error) {
				defer wg.Done()

				if err := ctx.Err(); err != nil {
					results[idx].Err = err
					return nil, err
				}
				a, err := t.Transpile(p)
				results[idx].Artifact, results[idx].Err = a, err
				return a, err
			},
		})
	}
	wg.Wait()

	if t.profiler != nil {
		t.profiler.Flush()
	}
	return results
}

func (t *transpiler) Close() {
	if t.pool != nil {
		t.pool.Stop()
	}
}
