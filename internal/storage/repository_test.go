package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()

	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "facturelec.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository() error = %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSQLiteRepository_SaveGet(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	inv := StoredInvoice{
		ID:        "inv-1",
		Provider:  "ONEE",
		IssueDate: "2024-03-15",
		RawBundle: []byte(`{"id":"inv-1","provider":"ONEE"}`),
	}
	if err := repo.Save(ctx, inv); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := repo.Get(ctx, "inv-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Provider != "ONEE" || got.IssueDate != "2024-03-15" {
		t.Errorf("Get() = %+v, want provider ONEE issue_date 2024-03-15", got)
	}
	if string(got.RawBundle) != string(inv.RawBundle) {
		t.Errorf("Get() raw bundle = %s, want %s", got.RawBundle, inv.RawBundle)
	}
	if got.SyncedAt != nil {
		t.Error("new invoice should not be marked synced")
	}
	if got.CreatedAt.IsZero() {
		t.Error("created_at should be set")
	}
}

func TestSQLiteRepository_GetNotFound(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.Get(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrNotFound", err)
	}
}

func TestSQLiteRepository_SaveReplaceResetsSync(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	inv := StoredInvoice{ID: "inv-1", Provider: "ONEE", RawBundle: []byte(`{}`)}
	if err := repo.Save(ctx, inv); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := repo.MarkSynced(ctx, "inv-1"); err != nil {
		t.Fatalf("MarkSynced() error = %v", err)
	}

	inv.Provider = "Lydec"
	inv.RawBundle = []byte(`{"provider":"Lydec"}`)
	if err := repo.Save(ctx, inv); err != nil {
		t.Fatalf("Save() replace error = %v", err)
	}

	got, err := repo.Get(ctx, "inv-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Provider != "Lydec" {
		t.Errorf("provider = %s, want Lydec", got.Provider)
	}
	if got.SyncedAt != nil {
		t.Error("re-uploading an invoice should reset its sync state")
	}
}

func TestSQLiteRepository_ListNewestFirst(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		if err := repo.Save(ctx, StoredInvoice{ID: id, Provider: "ONEE", RawBundle: []byte(`{}`)}); err != nil {
			t.Fatalf("Save(%s) error = %v", id, err)
		}
	}

	invoices, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(invoices) != 3 {
		t.Fatalf("List() returned %d invoices, want 3", len(invoices))
	}
	// Same-second inserts fall back to id DESC.
	if invoices[0].ID != "c" || invoices[2].ID != "a" {
		t.Errorf("List() order = [%s %s %s], want newest first", invoices[0].ID, invoices[1].ID, invoices[2].ID)
	}
}

func TestSQLiteRepository_Delete(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if err := repo.Save(ctx, StoredInvoice{ID: "inv-1", Provider: "ONEE", RawBundle: []byte(`{}`)}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := repo.Delete(ctx, "inv-1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := repo.Get(ctx, "inv-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() after delete error = %v, want ErrNotFound", err)
	}
	if err := repo.Delete(ctx, "inv-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete(missing) error = %v, want ErrNotFound", err)
	}
}

func TestSQLiteRepository_PendingSync(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		if err := repo.Save(ctx, StoredInvoice{ID: id, Provider: "ONEE", RawBundle: []byte(`{}`)}); err != nil {
			t.Fatalf("Save(%s) error = %v", id, err)
		}
	}
	if err := repo.MarkSynced(ctx, "b"); err != nil {
		t.Fatalf("MarkSynced() error = %v", err)
	}

	pending, err := repo.ListPendingSync(ctx, 10)
	if err != nil {
		t.Fatalf("ListPendingSync() error = %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("ListPendingSync() returned %d invoices, want 2", len(pending))
	}
	if pending[0].ID != "a" || pending[1].ID != "c" {
		t.Errorf("ListPendingSync() order = [%s %s], want oldest first", pending[0].ID, pending[1].ID)
	}

	limited, err := repo.ListPendingSync(ctx, 1)
	if err != nil {
		t.Fatalf("ListPendingSync(limit=1) error = %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("ListPendingSync(limit=1) returned %d invoices, want 1", len(limited))
	}

	if err := repo.MarkSynced(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("MarkSynced(missing) error = %v, want ErrNotFound", err)
	}
}

func TestSQLiteRepository_Count(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	n, err := repo.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if n != 0 {
		t.Errorf("Count() = %d, want 0", n)
	}

	if err := repo.Save(ctx, StoredInvoice{ID: "inv-1", Provider: "ONEE", RawBundle: []byte(`{}`)}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if n, _ := repo.Count(ctx); n != 1 {
		t.Errorf("Count() = %d, want 1", n)
	}
}
