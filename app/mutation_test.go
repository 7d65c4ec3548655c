package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/mkowalczyk/schemasync/adapters/clock"
	"github.com/mkowalczyk/schemasync/adapters/idgen"
	"github.com/mkowalczyk/schemasync/adapters/memory"
	"github.com/mkowalczyk/schemasync/app"
	"github.com/mkowalczyk/schemasync/domain/param"
	"github.com/mkowalczyk/schemasync/ports"
)

func newMutationService(t *testing.T) (*app.MutationService, *memory.DocumentStore, *memory.RepositoryStore) {
	t.Helper()
	docs, repoStore := seedStores(t)
	fake := clock.NewFake(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	svc := app.NewMutationService(docs, repoStore, fake, idgen.NewSequential("chg_"), zerolog.Nop(), nil)
	return svc, docs, repoStore
}

func TestMutationService_SubmitNoImpactCommitsImmediately(t *testing.T) {
	svc, _, repoStore := newMutationService(t)
	ctx := context.Background()

	draft := param.Parameter{
		Type:        param.TypeString,
		Description: "two-letter country code",
		Regex:       "^[A-Z]{2}$",
	}
	res, err := svc.Submit(ctx, "country", draft, ports.DefaultContext)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Committed {
		t.Fatal("new parameter with no usage must commit immediately")
	}
	if len(svc.List()) != 0 {
		t.Errorf("pending = %v, want none", svc.List())
	}

	repo, _ := repoStore.Read(ctx, ports.DefaultContext)
	if _, ok := repo["country"]; !ok {
		t.Error("country missing from repository after commit")
	}
}

func TestMutationService_SubmitWithImpactParksChange(t *testing.T) {
	svc, docs, repoStore := newMutationService(t)
	ctx := context.Background()

	draft := param.Parameter{
		Type:        param.TypeString,
		Description: "ISO 4217 currency code",
		Value:       param.String("EUR"),
	}
	res, err := svc.Submit(ctx, "currency", draft, ports.DefaultContext)
	if err != nil {
		t.Fatal(err)
	}
	if res.Committed {
		t.Fatal("used parameter must not commit without review")
	}
	change := res.Change
	if change.State != app.StatePending {
		t.Errorf("state = %v, want pending_review", change.State)
	}
	if got := change.Impacted(); len(got) != 1 || got[0] != "purchase_v1.json" {
		t.Errorf("impacted = %v, want [purchase_v1.json]", got)
	}
	rev := change.Revisions["purchase_v1.json"]
	if !rev.Changed("currency") {
		t.Error("revision reports no change for the edited parameter")
	}
	if !rev.Proposed["currency"].Value.Equal(param.String("EUR")) {
		t.Errorf("proposed value = %v, want EUR", rev.Proposed["currency"].Value)
	}

	// Nothing written until confirm.
	stored, _ := docs.Read(ctx, "purchase_v1.json", ports.DefaultContext)
	if !stored["currency"].Value.Equal(param.String("USD")) {
		t.Error("document changed before confirmation")
	}
	repo, _ := repoStore.Read(ctx, ports.DefaultContext)
	if !repo["currency"].Value.Equal(param.String("USD")) {
		t.Error("repository changed before confirmation")
	}
}

func TestMutationService_ConfirmWritesDocumentsAndRepo(t *testing.T) {
	svc, docs, repoStore := newMutationService(t)
	ctx := context.Background()

	draft := param.Parameter{
		Type:        param.TypeString,
		Description: "ISO 4217 currency code",
		Value:       param.String("EUR"),
	}
	res, err := svc.Submit(ctx, "currency", draft, ports.DefaultContext)
	if err != nil {
		t.Fatal(err)
	}

	confirmed, err := svc.Confirm(ctx, res.Change.ID, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(confirmed.Written) != 1 || confirmed.Written[0] != "purchase_v1.json" {
		t.Errorf("written = %v", confirmed.Written)
	}

	stored, _ := docs.Read(ctx, "purchase_v1.json", ports.DefaultContext)
	if !stored["currency"].Value.Equal(param.String("EUR")) {
		t.Errorf("document currency = %v, want EUR", stored["currency"].Value)
	}
	repo, _ := repoStore.Read(ctx, ports.DefaultContext)
	if !repo["currency"].Value.Equal(param.String("EUR")) {
		t.Errorf("repository currency = %v, want EUR", repo["currency"].Value)
	}
	// Usage index survives the edit even though the draft omitted it.
	if !repo["currency"].UsedInDocument("purchase_v1.json") {
		t.Errorf("usedIn = %v, usage lost", repo["currency"].UsedIn)
	}

	if _, err := svc.Get(res.Change.ID); !errors.Is(err, ports.ErrNotFound) {
		t.Errorf("get after confirm: err = %v, want ErrNotFound", err)
	}
}

func TestMutationService_ConfirmSubsetStillUpdatesRepo(t *testing.T) {
	svc, docs, repoStore := newMutationService(t)
	ctx := context.Background()

	// amount is used by both documents.
	draft := param.Parameter{
		Type:        param.TypeNumber,
		Description: "purchase amount in minor units",
	}
	res, err := svc.Submit(ctx, "amount", draft, ports.DefaultContext)
	if err != nil {
		t.Fatal(err)
	}
	if got := res.Change.Impacted(); len(got) != 2 {
		t.Fatalf("impacted = %v, want both documents", got)
	}

	confirmed, err := svc.Confirm(ctx, res.Change.ID, []string{"purchase_v1.json"})
	if err != nil {
		t.Fatal(err)
	}
	if len(confirmed.Written) != 1 || confirmed.Written[0] != "purchase_v1.json" {
		t.Errorf("written = %v", confirmed.Written)
	}

	// The deselected document keeps its old definition; the repository
	// still carries the new one. That drift is the reviewer's explicit
	// choice and the health checker will surface it.
	skipped, _ := docs.Read(ctx, "refund_v1.json", ports.DefaultContext)
	if skipped["amount"].Description == "purchase amount in minor units" {
		t.Error("deselected document was written")
	}
	repo, _ := repoStore.Read(ctx, ports.DefaultContext)
	if repo["amount"].Description != "purchase amount in minor units" {
		t.Error("repository missing the confirmed edit")
	}
}

func TestMutationService_ConfirmRejectsUnimpactedSelection(t *testing.T) {
	svc, _, _ := newMutationService(t)
	ctx := context.Background()

	res, err := svc.Submit(ctx, "currency", param.Parameter{
		Type:  param.TypeString,
		Value: param.String("EUR"),
	}, ports.DefaultContext)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := svc.Confirm(ctx, res.Change.ID, []string{"refund_v1.json"}); err == nil {
		t.Fatal("confirming a document outside the impact set must fail")
	}
	// The change is still pending after the rejected confirmation.
	if _, err := svc.Get(res.Change.ID); err != nil {
		t.Errorf("get = %v, change should remain pending", err)
	}
}

func TestMutationService_Cancel(t *testing.T) {
	svc, docs, _ := newMutationService(t)
	ctx := context.Background()

	res, err := svc.Submit(ctx, "currency", param.Parameter{
		Type:  param.TypeString,
		Value: param.String("EUR"),
	}, ports.DefaultContext)
	if err != nil {
		t.Fatal(err)
	}

	if err := svc.Cancel(res.Change.ID); err != nil {
		t.Fatal(err)
	}
	if err := svc.Cancel(res.Change.ID); !errors.Is(err, ports.ErrNotFound) {
		t.Errorf("second cancel: err = %v, want ErrNotFound", err)
	}

	stored, _ := docs.Read(ctx, "purchase_v1.json", ports.DefaultContext)
	if !stored["currency"].Value.Equal(param.String("USD")) {
		t.Error("cancelled change wrote to a document")
	}
}

func TestMutationService_SubmitRejectsInvalidDraft(t *testing.T) {
	svc, _, _ := newMutationService(t)

	// Value and regex on the same parameter are contradictory.
	_, err := svc.Submit(context.Background(), "currency", param.Parameter{
		Type:  param.TypeString,
		Value: param.String("USD"),
		Regex: "^[A-Z]{3}$",
	}, ports.DefaultContext)
	if err == nil {
		t.Fatal("draft with both value and regex must be rejected")
	}

	// Object is a document-side payload type, never a repository
	// parameter type.
	_, err = svc.Submit(context.Background(), "payload", param.Parameter{
		Type:        param.TypeObject,
		Description: "free-form payload",
	}, ports.DefaultContext)
	if err == nil {
		t.Fatal("object-typed draft must be rejected")
	}
}
