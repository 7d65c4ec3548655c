// Package app contains the services that orchestrate the reconciliation
// engine over the storage ports: batch health checks, document resync,
// and the parameter mutation workflow.
package app

import (
	"context"
	"sync"
	"time"

	"github.com/mkowalczyk/schemasync/domain/schemadoc"
	"github.com/mkowalczyk/schemasync/ports"
)

// DocumentError records a failure scoped to a single document within a
// batch operation.
type DocumentError struct {
	Name string `json:"name"`
	Err  string `json:"error"`
}

const (
	defaultFetchWorkers = 10
	defaultFetchTimeout = 15 * time.Second
)

// fetchDocuments reads the named documents through a bounded worker
// pool. Each read carries its own timeout; a slow or failing fetch is
// reported for that one document and never aborts the batch. Results
// are collected into a name-keyed map regardless of completion order.
func fetchDocuments(ctx context.Context, store ports.DocumentStore, names []string, sc ports.StorageContext, workers int, timeout time.Duration) (map[string]schemadoc.Document, []DocumentError) {
	if workers <= 0 {
		workers = defaultFetchWorkers
	}
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}

	type result struct {
		name string
		doc  schemadoc.Document
		err  error
	}

	jobs := make(chan string)
	results := make(chan result)

	var wg sync.WaitGroup
	for i := 0; i < workers && i < len(names); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for name := range jobs {
				fetchCtx, cancel := context.WithTimeout(ctx, timeout)
				doc, err := store.Read(fetchCtx, name, sc)
				cancel()
				results <- result{name: name, doc: doc, err: err}
			}
		}()
	}

	go func() {
		for _, name := range names {
			jobs <- name
		}
		close(jobs)
		wg.Wait()
		close(results)
	}()

	docs := make(map[string]schemadoc.Document, len(names))
	var errs []DocumentError
	for r := range results {
		if r.err != nil {
			errs = append(errs, DocumentError{Name: r.name, Err: r.err.Error()})
			continue
		}
		docs[r.name] = r.doc
	}
	return docs, errs
}
