// internal/downloader/pool.go
package downloader

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
)

// WorkerPool runs downloads on a fixed number of workers
type WorkerPool struct {
	downloader  *Downloader
	concurrency int
}

// NewWorkerPool creates a pool of concurrency workers sharing d
func NewWorkerPool(concurrency int, d *Downloader) *WorkerPool {
	if concurrency <= 0 {
		concurrency = 4
	}
	if concurrency > 32 {
		concurrency = 32
	}
	return &WorkerPool{downloader: d, concurrency: concurrency}
}

// DownloadBatch downloads jobs concurrently. Results keep the job order;
// jobs not started before ctx is done carry ctx.Err().
func (wp *WorkerPool) DownloadBatch(ctx context.Context, jobs []Job) []*Result {
	results := make([]*Result, len(jobs))
	if len(jobs) == 0 {
		return results
	}

	queue := make(chan int, len(jobs))
	for i := range jobs {
		queue <- i
	}
	close(queue)

	workers := wp.concurrency
	if workers > len(jobs) {
		workers = len(jobs)
	}

	var wg sync.WaitGroup
	for w := 1; w <= workers; w++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for i := range queue {
				if err := ctx.Err(); err != nil {
					results[i] = &Result{URL: jobs[i].URL, Error: err}
					continue
				}
				log.Debug().
					Int("worker_id", id).
					Str("url", jobs[i].URL).
					Msg("Worker processing download")
				results[i] = wp.downloader.Download(ctx, jobs[i])
			}
		}(w)
	}
	wg.Wait()

	return results
}
