package app

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/mkowalczyk/schemasync/adapters/metrics"
	"github.com/mkowalczyk/schemasync/domain/param"
	"github.com/mkowalczyk/schemasync/domain/reconcile"
	"github.com/mkowalczyk/schemasync/ports"
)

// ChangeState is the lifecycle position of a pending change.
type ChangeState string

const (
	// StatePending means the change awaits review; impacted documents
	// have proposed revisions attached but nothing is written yet.
	StatePending ChangeState = "pending_review"
	// StateConfirmed means the change was committed.
	StateConfirmed ChangeState = "confirmed"
	// StateCancelled means the change was discarded without writing.
	StateCancelled ChangeState = "cancelled"
)

// PendingChange is one parameter edit captured for review, together
// with the before/after revision of every document it would touch.
type PendingChange struct {
	ID        string                        `json:"id"`
	ParamName string                        `json:"paramName"`
	Draft     param.Parameter               `json:"draft"`
	Revisions map[string]reconcile.Revision `json:"revisions"`
	State     ChangeState                   `json:"state"`
	CreatedAt time.Time                     `json:"createdAt"`
	Context   ports.StorageContext          `json:"-"`
}

// Impacted returns the sorted names of documents with a proposed
// revision.
func (c PendingChange) Impacted() []string {
	names := make([]string, 0, len(c.Revisions))
	for name := range c.Revisions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SubmitResult is returned by Submit. When no document is impacted the
// change is committed immediately and Committed is true; otherwise the
// change sits in the pending set until confirmed or cancelled.
type SubmitResult struct {
	Change    PendingChange `json:"change"`
	Committed bool          `json:"committed"`
}

// ConfirmResult reports a confirmed change. Document write failures
// are collected per document; the repository write itself is
// authoritative and its failure fails the whole confirmation.
type ConfirmResult struct {
	Written []string        `json:"written"`
	Errors  []DocumentError `json:"errors,omitempty"`
}

// MutationService guards every parameter-repository edit behind an
// impact review. Pending changes live in memory; restarting the
// process discards them, which matches their advisory nature.
type MutationService struct {
	docs    ports.DocumentStore
	repo    ports.RepositoryStore
	clock   ports.Clock
	ids     ports.IDGenerator
	logger  zerolog.Logger
	metrics *metrics.Collector

	Workers      int
	FetchTimeout time.Duration

	mu      sync.RWMutex
	pending map[string]*PendingChange
}

// NewMutationService creates a mutation service. The metrics collector
// may be nil when metrics are disabled.
func NewMutationService(docs ports.DocumentStore, repo ports.RepositoryStore, clock ports.Clock, ids ports.IDGenerator, logger zerolog.Logger, m *metrics.Collector) *MutationService {
	return &MutationService{
		docs:    docs,
		repo:    repo,
		clock:   clock,
		ids:     ids,
		logger:  logger,
		metrics: m,
		pending: make(map[string]*PendingChange),
	}
}

// Submit validates a parameter draft, computes which documents the
// edit would rewrite, and either commits immediately (no impact) or
// parks the change for review.
func (s *MutationService) Submit(ctx context.Context, name string, draft param.Parameter, sc ports.StorageContext) (SubmitResult, error) {
	if name == "" {
		return SubmitResult{}, fmt.Errorf("parameter name must not be empty")
	}
	if err := draft.Validate(); err != nil {
		return SubmitResult{}, fmt.Errorf("parameter %s: %w", name, err)
	}

	repo, err := s.repo.Read(ctx, sc)
	if err != nil {
		return SubmitResult{}, err
	}
	repo = repo.Clean()

	// Usage tracking belongs to the system, not the editor. Keep the
	// stored list regardless of what the draft carries.
	if existing, ok := repo[name]; ok {
		draft.UsedIn = existing.UsedIn
	}

	next := repo.Clone()
	next[name] = draft

	impacted := reconcile.FindImpacted(name, next)

	change := &PendingChange{
		ID:        s.ids.New(),
		ParamName: name,
		Draft:     draft,
		State:     StatePending,
		CreatedAt: s.clock.Now(),
		Context:   sc,
	}

	if len(impacted) == 0 {
		msg := fmt.Sprintf("update parameter %s", name)
		if err := s.repo.Write(ctx, next, sc, msg); err != nil {
			return SubmitResult{}, fmt.Errorf("write repository: %w", err)
		}
		change.State = StateConfirmed
		change.Revisions = map[string]reconcile.Revision{}
		s.logger.Info().Str("parameter", name).Msg("parameter committed without impact")
		if s.metrics != nil {
			s.metrics.ChangesCommitted.Inc()
		}
		return SubmitResult{Change: *change, Committed: true}, nil
	}

	docs, fetchErrs := fetchDocuments(ctx, s.docs, impacted, sc, s.Workers, s.FetchTimeout)
	if len(fetchErrs) > 0 {
		// A change reviewed against a partial impact set is a trap for
		// the reviewer. Refuse rather than underreport.
		return SubmitResult{}, fmt.Errorf("fetch impacted documents: %d of %d failed (first: %s: %s)",
			len(fetchErrs), len(impacted), fetchErrs[0].Name, fetchErrs[0].Err)
	}

	change.Revisions = reconcile.PatchOne(docs, name, draft)

	s.mu.Lock()
	s.pending[change.ID] = change
	s.mu.Unlock()
	s.updateGauge()

	s.logger.Info().
		Str("parameter", name).
		Str("change", change.ID).
		Int("impacted", len(change.Revisions)).
		Msg("parameter change pending review")
	return SubmitResult{Change: *change}, nil
}

// Confirm commits a pending change: the selected documents get their
// proposed revisions written, then the repository is written with the
// new parameter. A nil or empty selection confirms every impacted
// document. Selecting a document outside the impact set is an error.
//
// Document write failures are collected and do not stop the batch; the
// repository is still written so the parameter edit lands. Failed
// documents can be brought in line with a later resync. Only a
// repository write failure leaves the change pending.
func (s *MutationService) Confirm(ctx context.Context, id string, selected []string) (ConfirmResult, error) {
	s.mu.Lock()
	change, ok := s.pending[id]
	s.mu.Unlock()
	if !ok {
		return ConfirmResult{}, fmt.Errorf("pending change %s: %w", id, ports.ErrNotFound)
	}

	if len(selected) == 0 {
		selected = change.Impacted()
	}
	for _, name := range selected {
		if _, ok := change.Revisions[name]; !ok {
			return ConfirmResult{}, fmt.Errorf("document %s is not impacted by change %s", name, id)
		}
	}

	var result ConfirmResult
	msg := fmt.Sprintf("apply change to parameter %s", change.ParamName)
	for _, name := range selected {
		rev := change.Revisions[name]
		if !rev.Changed(change.ParamName) {
			continue
		}
		if err := s.docs.Write(ctx, name, rev.Proposed, change.Context, msg); err != nil {
			result.Errors = append(result.Errors, DocumentError{Name: name, Err: err.Error()})
			if s.metrics != nil {
				s.metrics.DocumentWriteErrs.Inc()
			}
			continue
		}
		result.Written = append(result.Written, name)
	}

	repo, err := s.repo.Read(ctx, change.Context)
	if err != nil {
		return result, fmt.Errorf("read repository: %w", err)
	}
	repo = repo.Clean()
	draft := change.Draft
	if existing, ok := repo[change.ParamName]; ok {
		draft.UsedIn = existing.UsedIn
	}
	repo[change.ParamName] = draft

	repoMsg := fmt.Sprintf("update parameter %s", change.ParamName)
	if err := s.repo.Write(ctx, repo, change.Context, repoMsg); err != nil {
		return result, fmt.Errorf("write repository: %w", err)
	}

	s.mu.Lock()
	delete(s.pending, id)
	s.mu.Unlock()
	s.updateGauge()

	if s.metrics != nil {
		s.metrics.ChangesCommitted.Inc()
	}
	s.logger.Info().
		Str("change", id).
		Str("parameter", change.ParamName).
		Int("written", len(result.Written)).
		Int("errors", len(result.Errors)).
		Msg("parameter change confirmed")
	return result, nil
}

// Cancel discards a pending change without writing anything.
func (s *MutationService) Cancel(id string) error {
	s.mu.Lock()
	_, ok := s.pending[id]
	if ok {
		delete(s.pending, id)
	}
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("pending change %s: %w", id, ports.ErrNotFound)
	}
	s.updateGauge()
	if s.metrics != nil {
		s.metrics.ChangesCancelled.Inc()
	}
	s.logger.Info().Str("change", id).Msg("parameter change cancelled")
	return nil
}

// Get returns one pending change.
func (s *MutationService) Get(id string) (PendingChange, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	change, ok := s.pending[id]
	if !ok {
		return PendingChange{}, fmt.Errorf("pending change %s: %w", id, ports.ErrNotFound)
	}
	return *change, nil
}

// List returns every pending change, newest first.
func (s *MutationService) List() []PendingChange {
	s.mu.RLock()
	out := make([]PendingChange, 0, len(s.pending))
	for _, c := range s.pending {
		out = append(out, *c)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (s *MutationService) updateGauge() {
	if s.metrics == nil {
		return
	}
	s.mu.RLock()
	n := len(s.pending)
	s.mu.RUnlock()
	s.metrics.PendingChangesOpen.Set(float64(n))
}
