package app

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/mkowalczyk/schemasync/adapters/metrics"
	"github.com/mkowalczyk/schemasync/domain/reconcile"
	"github.com/mkowalczyk/schemasync/domain/schemadoc"
	"github.com/mkowalczyk/schemasync/ports"
)

// SyncService reconciles stored documents with the parameter
// repository and keeps usage tracking up to date.
type SyncService struct {
	docs    ports.DocumentStore
	repo    ports.RepositoryStore
	logger  zerolog.Logger
	metrics *metrics.Collector

	Workers      int
	FetchTimeout time.Duration
}

// NewSyncService creates a sync service. The metrics collector may be
// nil when metrics are disabled.
func NewSyncService(docs ports.DocumentStore, repo ports.RepositoryStore, logger zerolog.Logger, m *metrics.Collector) *SyncService {
	return &SyncService{
		docs:    docs,
		repo:    repo,
		logger:  logger,
		metrics: m,
	}
}

// ResyncResult reports the outcome of a single document resync.
type ResyncResult struct {
	Name    string `json:"name"`
	Changed bool   `json:"changed"`
}

// ResyncSummary reports a batch resync. Documents that failed to fetch
// or write are listed in Errors; their absence from Results means they
// were not touched.
type ResyncSummary struct {
	Results []ResyncResult  `json:"results"`
	Errors  []DocumentError `json:"errors,omitempty"`
}

// Rewritten returns how many documents were actually modified.
func (s ResyncSummary) Rewritten() int {
	n := 0
	for _, r := range s.Results {
		if r.Changed {
			n++
		}
	}
	return n
}

// ResyncDocument rebuilds one document from the repository and writes
// it back only when something changed. Returns whether it was
// rewritten.
func (s *SyncService) ResyncDocument(ctx context.Context, name string, sc ports.StorageContext, opts reconcile.Options) (bool, error) {
	repo, err := s.repo.Read(ctx, sc)
	if err != nil {
		return false, err
	}
	doc, err := s.docs.Read(ctx, name, sc)
	if err != nil {
		return false, err
	}

	next, changed := reconcile.ResyncFull(doc, repo.Clean(), opts)
	if !changed {
		s.logger.Debug().Str("document", name).Msg("resync: no changes")
		s.observe("noop", false)
		return false, nil
	}

	msg := fmt.Sprintf("resync %s with parameter repository", name)
	if err := s.docs.Write(ctx, name, next, sc, msg); err != nil {
		s.observe("error", false)
		if s.metrics != nil {
			s.metrics.DocumentWriteErrs.Inc()
		}
		return false, fmt.Errorf("write %s: %w", name, err)
	}
	s.logger.Info().Str("document", name).Msg("resync: document rewritten")
	s.observe("rewritten", true)
	return true, nil
}

// ResyncAll reconciles every document in the context. Per-document
// failures are collected; one broken document never stops the rest.
func (s *SyncService) ResyncAll(ctx context.Context, sc ports.StorageContext, opts reconcile.Options) (ResyncSummary, error) {
	var summary ResyncSummary

	repo, err := s.repo.Read(ctx, sc)
	if err != nil {
		return summary, err
	}
	repo = repo.Clean()

	names, err := s.docs.List(ctx, sc)
	if err != nil {
		return summary, err
	}

	docs, fetchErrs := fetchDocuments(ctx, s.docs, names, sc, s.Workers, s.FetchTimeout)
	summary.Errors = append(summary.Errors, fetchErrs...)

	ordered := make([]string, 0, len(docs))
	for name := range docs {
		ordered = append(ordered, name)
	}
	sort.Strings(ordered)

	for _, name := range ordered {
		next, changed := reconcile.ResyncFull(docs[name], repo, opts)
		if !changed {
			summary.Results = append(summary.Results, ResyncResult{Name: name})
			continue
		}
		msg := fmt.Sprintf("resync %s with parameter repository", name)
		if err := s.docs.Write(ctx, name, next, sc, msg); err != nil {
			summary.Errors = append(summary.Errors, DocumentError{Name: name, Err: err.Error()})
			if s.metrics != nil {
				s.metrics.DocumentWriteErrs.Inc()
			}
			continue
		}
		summary.Results = append(summary.Results, ResyncResult{Name: name, Changed: true})
	}

	rewritten := summary.Rewritten()
	if s.metrics != nil {
		s.metrics.ResyncsTotal.WithLabelValues("batch").Inc()
		s.metrics.DocumentsRewritten.Add(float64(rewritten))
	}
	s.logger.Info().
		Int("documents", len(summary.Results)).
		Int("rewritten", rewritten).
		Int("errors", len(summary.Errors)).
		Str("branch", sc.Branch).
		Msg("batch resync complete")
	return summary, nil
}

// BackfillUsage records name in the usedInSchemas list of every
// parameter the document references, then writes the repository back.
// Already-recorded usage is left alone; usage is never removed here.
func (s *SyncService) BackfillUsage(ctx context.Context, name string, doc schemadoc.Document, sc ports.StorageContext) error {
	repo, err := s.repo.Read(ctx, sc)
	if err != nil {
		return err
	}

	changed := false
	for _, field := range doc.Fields() {
		p, ok := repo[field]
		if !ok {
			continue
		}
		if p.UsedInDocument(name) {
			continue
		}
		p.UsedIn = append(p.UsedIn, name)
		sort.Strings(p.UsedIn)
		repo[field] = p
		changed = true
	}
	if !changed {
		return nil
	}

	msg := fmt.Sprintf("record usage of parameters by %s", name)
	if err := s.repo.Write(ctx, repo, sc, msg); err != nil {
		return fmt.Errorf("update repository usage: %w", err)
	}
	s.logger.Info().Str("document", name).Msg("usage backfilled")
	return nil
}

// PublishDocument writes a document and backfills usage for the
// parameters it references. The write is authoritative; a usage
// backfill failure is reported but the document stays written.
func (s *SyncService) PublishDocument(ctx context.Context, name string, doc schemadoc.Document, sc ports.StorageContext, message string) error {
	if message == "" {
		message = fmt.Sprintf("publish %s", name)
	}
	if err := s.docs.Write(ctx, name, doc, sc, message); err != nil {
		if s.metrics != nil {
			s.metrics.DocumentWriteErrs.Inc()
		}
		return err
	}
	return s.BackfillUsage(ctx, name, doc, sc)
}

func (s *SyncService) observe(outcome string, rewritten bool) {
	if s.metrics == nil {
		return
	}
	s.metrics.ResyncsTotal.WithLabelValues(outcome).Inc()
	if rewritten {
		s.metrics.DocumentsRewritten.Inc()
	}
}
