package pipeline

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/dudu/facealign/internal/imageio"
)

// BatchItem is the outcome for one input file
type BatchItem struct {
	Index  int
	Path   string
	Result Result
	Err    error
}

// ProcessBatch loads and processes paths on workers goroutines and hands
// every outcome to fn from a single goroutine, in completion order.
// Cancellation is checked between images; an image already in flight is
// finished. A failed image is reported through fn and does not stop the batch.
func (p *Pipeline) ProcessBatch(ctx context.Context, paths []string, workers int, fn func(BatchItem)) error {
	if workers <= 0 {
		workers = p.config.Workers
	}
	workers = min(workers, max(len(paths), 1))

	type task struct {
		index int
		path  string
	}
	taskChan := make(chan task, workers)
	resultsChan := make(chan BatchItem, workers*2)
	var wg sync.WaitGroup

	// Aggregator runs concurrently to prevent deadlock on resultsChan
	aggDone := make(chan struct{})
	go func() {
		for item := range resultsChan {
			fn(item)
		}
		close(aggDone)
	}()

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for t := range taskChan {
				item := BatchItem{Index: t.index, Path: t.path}
				img, _, err := imageio.Load(t.path)
				if err == nil {
					item.Result, err = p.Process(img)
				}
				if err != nil {
					p.logger.Warn("image failed",
						zap.Int("worker", workerID),
						zap.String("path", t.path),
						zap.Error(err))
				}
				item.Err = err
				resultsChan <- item
			}
		}(i)
	}

	var err error
feed:
	for i, path := range paths {
		if err = ctx.Err(); err != nil {
			break
		}
		select {
		case <-ctx.Done():
			err = ctx.Err()
			break feed
		case taskChan <- task{index: i, path: path}:
		}
	}

	close(taskChan)
	wg.Wait()
	close(resultsChan)
	<-aggDone

	return err
}
