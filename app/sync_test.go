package app_test

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"github.com/mkowalczyk/schemasync/app"
	"github.com/mkowalczyk/schemasync/domain/param"
	"github.com/mkowalczyk/schemasync/domain/reconcile"
	"github.com/mkowalczyk/schemasync/domain/schemadoc"
	"github.com/mkowalczyk/schemasync/ports"
)

func TestSyncService_ResyncDocument(t *testing.T) {
	docs, repoStore := seedStores(t)
	svc := app.NewSyncService(docs, repoStore, zerolog.Nop(), nil)
	ctx := context.Background()

	changed, err := svc.ResyncDocument(ctx, "refund_v1.json", ports.DefaultContext, reconcile.Options{})
	if err != nil {
		t.Fatal(err)
	}
	if !changed {
		t.Fatal("expected drifted document to be rewritten")
	}

	got, err := docs.Read(ctx, "refund_v1.json", ports.DefaultContext)
	if err != nil {
		t.Fatal(err)
	}
	if got["amount"].Type != param.TypeNumber {
		t.Errorf("amount type = %v, want number", got["amount"].Type)
	}
	if got.EventName() != "refund" {
		t.Errorf("event name = %q, reserved field must survive resync", got.EventName())
	}

	// Second pass finds nothing to do.
	changed, err = svc.ResyncDocument(ctx, "refund_v1.json", ports.DefaultContext, reconcile.Options{})
	if err != nil {
		t.Fatal(err)
	}
	if changed {
		t.Error("resync is not idempotent")
	}
}

func TestSyncService_ResyncAll(t *testing.T) {
	docs, repoStore := seedStores(t)
	svc := app.NewSyncService(docs, repoStore, zerolog.Nop(), nil)

	summary, err := svc.ResyncAll(context.Background(), ports.DefaultContext, reconcile.Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(summary.Errors) != 0 {
		t.Fatalf("errors = %v", summary.Errors)
	}
	if len(summary.Results) != 2 {
		t.Fatalf("results = %v, want 2", summary.Results)
	}
	if summary.Rewritten() != 1 {
		t.Errorf("rewritten = %d, want 1 (only the drifted document)", summary.Rewritten())
	}
}

func TestSyncService_BackfillUsage(t *testing.T) {
	docs, repoStore := seedStores(t)
	svc := app.NewSyncService(docs, repoStore, zerolog.Nop(), nil)
	ctx := context.Background()

	doc := schemadoc.Document{
		schemadoc.FieldEventName: {Type: param.TypeString, Value: param.String("signup")},
		"currency":               {Type: param.TypeString, Description: "ISO 4217 code", Value: param.String("USD")},
		"nickname":               {Type: param.TypeString}, // unmanaged, no repo entry
	}
	if err := svc.PublishDocument(ctx, "signup_v1.json", doc, ports.DefaultContext, ""); err != nil {
		t.Fatal(err)
	}

	repo, err := repoStore.Read(ctx, ports.DefaultContext)
	if err != nil {
		t.Fatal(err)
	}
	if !repo["currency"].UsedInDocument("signup_v1.json") {
		t.Errorf("currency usedIn = %v, want signup_v1.json recorded", repo["currency"].UsedIn)
	}
	// Existing usage stays untouched.
	if !repo["currency"].UsedInDocument("purchase_v1.json") {
		t.Errorf("currency usedIn = %v, lost existing usage", repo["currency"].UsedIn)
	}
	if _, ok := repo["nickname"]; ok {
		t.Error("unmanaged field must not create a repository entry")
	}

	// Backfilling again is a no-op.
	if err := svc.BackfillUsage(ctx, "signup_v1.json", doc, ports.DefaultContext); err != nil {
		t.Fatal(err)
	}
	repo, _ = repoStore.Read(ctx, ports.DefaultContext)
	n := 0
	for _, d := range repo["currency"].UsedIn {
		if d == "signup_v1.json" {
			n++
		}
	}
	if n != 1 {
		t.Errorf("signup_v1.json recorded %d times, want 1", n)
	}
}
