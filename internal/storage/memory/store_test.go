package memory

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/qaforge/backend/internal/storage"
	"github.com/qaforge/backend/internal/storage/models"
)

func TestPutGetRoundTrip(t *testing.T) {
	store := NewStore()
	key := "qa/1700000000000_71C765_0.json"
	in := models.Record{
		WalletAddress: "0x71C7656EC7ab88b098defB751B7401B5f6d89761",
		Question:      "What does a continuation token continue?",
		Answer:        "It resumes a bucket listing from where the previous page stopped.",
		CreatedAt:     time.Now().UTC(),
	}

	if err := store.Put(context.Background(), key, in); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	var out models.Record
	if err := store.Get(context.Background(), key, &out); err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if out.WalletAddress != in.WalletAddress || out.Question != in.Question {
		t.Fatalf("round trip mismatch: %+v", out)
	}
}

func TestGetMissingKey(t *testing.T) {
	store := NewStore()
	var out models.Record
	err := store.Get(context.Background(), "qa/absent.json", &out)
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestGetUndecodableObject(t *testing.T) {
	store := NewStore()
	store.PutRaw("qa/corrupt.json", []byte("not json at all"))

	var out models.Record
	err := store.Get(context.Background(), "qa/corrupt.json", &out)
	if !errors.Is(err, storage.ErrDecode) {
		t.Fatalf("err = %v, want ErrDecode", err)
	}
}

func TestListPagePaginates(t *testing.T) {
	store := NewStore()
	store.SetPageSize(2)
	for i := 0; i < 5; i++ {
		store.PutRaw(fmt.Sprintf("qa/%03d.json", i), []byte("{}"))
	}
	store.PutRaw("other/ignored.json", []byte("{}"))

	var all []string
	token := ""
	pages := 0
	for {
		keys, next, err := store.ListPage(context.Background(), "qa/", token)
		if err != nil {
			t.Fatalf("list failed: %v", err)
		}
		all = append(all, keys...)
		pages++
		if next == "" {
			break
		}
		token = next
	}

	if pages != 3 {
		t.Errorf("pages = %d, want 3", pages)
	}
	if len(all) != 5 {
		t.Fatalf("listed %d keys, want 5", len(all))
	}
	for i, key := range all {
		want := fmt.Sprintf("qa/%03d.json", i)
		if key != want {
			t.Errorf("key[%d] = %q, want %q (lexicographic order)", i, key, want)
		}
	}
}

func TestListPageRejectsBadToken(t *testing.T) {
	store := NewStore()
	store.PutRaw("qa/a.json", []byte("{}"))
	if _, _, err := store.ListPage(context.Background(), "qa/", "garbage"); err == nil {
		t.Fatalf("expected error for malformed continuation token")
	}
}

func TestListPageEmptyPrefix(t *testing.T) {
	store := NewStore()
	keys, next, err := store.ListPage(context.Background(), "qa/", "")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(keys) != 0 || next != "" {
		t.Fatalf("empty store listed keys=%v next=%q", keys, next)
	}
}

func TestListWalletRecordsSkipsCorruptObjects(t *testing.T) {
	store := NewStore()
	wallet := "0x71C7656EC7ab88b098defB751B7401B5f6d89761"

	record := models.Record{
		WalletAddress: wallet,
		Question:      "Which records survive a corrupt neighbor?",
		Answer:        "Every record that still decodes survives the listing.",
		CreatedAt:     time.Now().UTC(),
	}
	if err := store.Put(context.Background(), "qa/good.json", record); err != nil {
		t.Fatalf("put failed: %v", err)
	}
	store.PutRaw("qa/bad.json", []byte("{{{{"))

	other := record
	other.WalletAddress = "0x0000000000000000000000000000000000000000"
	if err := store.Put(context.Background(), "qa/other.json", other); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	got, err := storage.ListWalletRecords(context.Background(), store, wallet)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d records, want 1", len(got))
	}
	if got[0].Key != "qa/good.json" {
		t.Errorf("key = %q, want qa/good.json", got[0].Key)
	}
}

func TestListWalletRecordsIsCaseInsensitive(t *testing.T) {
	store := NewStore()
	record := models.Record{
		WalletAddress: "0xABCDEF0123456789abcdef0123456789ABCDEF01",
		Question:      "Do mixed case wallet addresses still match?",
		Answer:        "Yes, address comparison ignores hex casing entirely.",
		CreatedAt:     time.Now().UTC(),
	}
	if err := store.Put(context.Background(), "qa/mixed.json", record); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	got, err := storage.ListWalletRecords(context.Background(), store,
		"0xabcdef0123456789ABCDEF0123456789abcdef01")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d records, want 1", len(got))
	}
}
