package app

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/mkowalczyk/schemasync/adapters/metrics"
	"github.com/mkowalczyk/schemasync/domain/drift"
	"github.com/mkowalczyk/schemasync/domain/param"
	"github.com/mkowalczyk/schemasync/domain/schemadoc"
	"github.com/mkowalczyk/schemasync/ports"
)

// HealthService evaluates schema documents against the parameter
// repository. Fetching is the only I/O it performs; all comparison runs
// in memory, so a Snapshot can be re-checked after local mutations
// without another round of reads.
type HealthService struct {
	docs    ports.DocumentStore
	repo    ports.RepositoryStore
	logger  zerolog.Logger
	metrics *metrics.Collector

	Workers      int
	FetchTimeout time.Duration
}

// NewHealthService creates a health service. The metrics collector may
// be nil when metrics are disabled.
func NewHealthService(docs ports.DocumentStore, repo ports.RepositoryStore, logger zerolog.Logger, m *metrics.Collector) *HealthService {
	return &HealthService{
		docs:    docs,
		repo:    repo,
		logger:  logger,
		metrics: m,
	}
}

// Snapshot is a point-in-time view of every document and its health,
// owned by the caller. It can be granularly refreshed after a local
// mutation instead of refetching the world.
type Snapshot struct {
	Context    ports.StorageContext          `json:"-"`
	Repository param.Repository              `json:"-"`
	Documents  map[string]schemadoc.Document `json:"-"`
	Health     map[string]drift.Report       `json:"health"`
	FetchErrs  []DocumentError               `json:"fetchErrors,omitempty"`
	TakenAt    time.Time                     `json:"takenAt"`
}

// CheckAll loads the repository and every document, fans the fetches
// out over a bounded worker pool, and returns a full health snapshot.
// Fetch failures are recorded per document and do not abort the batch.
func (s *HealthService) CheckAll(ctx context.Context, sc ports.StorageContext) (*Snapshot, error) {
	repo, err := s.repo.Read(ctx, sc)
	if err != nil {
		return nil, err
	}
	names, err := s.docs.List(ctx, sc)
	if err != nil {
		return nil, err
	}

	docs, fetchErrs := fetchDocuments(ctx, s.docs, names, sc, s.Workers, s.FetchTimeout)
	if len(fetchErrs) > 0 {
		s.logger.Warn().Int("failed", len(fetchErrs)).Msg("some documents could not be fetched")
		if s.metrics != nil {
			s.metrics.DocumentFetchErrs.Add(float64(len(fetchErrs)))
		}
	}

	snap := &Snapshot{
		Context:    sc,
		Repository: repo.Clean(),
		Documents:  docs,
		Health:     make(map[string]drift.Report, len(docs)),
		FetchErrs:  fetchErrs,
		TakenAt:    time.Now(),
	}
	snap.Recheck()

	s.logger.Info().
		Int("documents", len(docs)).
		Int("drifted", snap.driftedCount()).
		Str("branch", sc.Branch).
		Msg("health check complete")
	return snap, nil
}

// CheckDocument evaluates a single document against the repository.
func (s *HealthService) CheckDocument(ctx context.Context, name string, sc ports.StorageContext) (drift.Report, error) {
	repo, err := s.repo.Read(ctx, sc)
	if err != nil {
		return drift.Report{}, err
	}
	doc, err := s.docs.Read(ctx, name, sc)
	if err != nil {
		return drift.Report{}, err
	}
	report := drift.Check(doc, repo.Clean())
	s.observe(report)
	return report, nil
}

func (s *HealthService) observe(r drift.Report) {
	if s.metrics == nil {
		return
	}
	s.metrics.HealthChecksTotal.Inc()
	s.metrics.DriftedParams.WithLabelValues("critical").Add(float64(len(r.Critical)))
	s.metrics.DriftedParams.WithLabelValues("minor").Add(float64(len(r.Minor)))
}

// Recheck recomputes every document's health report from the cached
// documents and repository. Pure and I/O free.
func (snap *Snapshot) Recheck() {
	for name, doc := range snap.Documents {
		snap.Health[name] = drift.Check(doc, snap.Repository)
	}
}

// ApplyDocument replaces one cached document (after a local write) and
// recomputes only that document's report.
func (snap *Snapshot) ApplyDocument(name string, doc schemadoc.Document) {
	snap.Documents[name] = doc
	snap.Health[name] = drift.Check(doc, snap.Repository)
}

// ApplyRepository replaces the cached repository (after a parameter
// edit) and recomputes every report; comparison is in-memory and cheap.
func (snap *Snapshot) ApplyRepository(repo param.Repository) {
	snap.Repository = repo.Clean()
	snap.Recheck()
}

func (snap *Snapshot) driftedCount() int {
	n := 0
	for _, r := range snap.Health {
		n += r.Total()
	}
	return n
}
