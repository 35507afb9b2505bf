package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/mazzara/algoone/internal/models"
)

func TestFileStoreRoundTrip(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	in := []models.Position{
		{
			Ticket:      42,
			Symbol:      "EURUSD",
			Type:        models.TypeBuy,
			Volume:      decimal.RequireFromString("0.01"),
			PriceOpen:   decimal.RequireFromString("1.1000"),
			ProfitChain: []float64{0.5, 1.0},
			PeakProfit:  1.0,
		},
	}
	if err := store.Put(KeyPositions, in); err != nil {
		t.Fatal(err)
	}

	var out []models.Position
	if err := store.Get(KeyPositions, &out); err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 {
		t.Fatalf("got %d positions, want 1", len(out))
	}
	if out[0].Ticket != 42 || !out[0].Volume.Equal(in[0].Volume) {
		t.Errorf("round trip mismatch: %+v", out[0])
	}
	if len(out[0].ProfitChain) != 2 || out[0].PeakProfit != 1.0 {
		t.Errorf("tracking fields lost: %+v", out[0])
	}
}

func TestFileStoreMissingKey(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	var out []models.Position
	if err := store.Get("nope", &out); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestFileStorePutLeavesNoTempFile(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Put("book", map[string]int{"a": 1}); err != nil {
		t.Fatal(err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "book.json" {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("dir contents = %v, want only book.json", names)
	}
}

func TestFileStoreDeleteIdempotent(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Delete("absent"); err != nil {
		t.Errorf("deleting a missing key errored: %v", err)
	}
}

func TestLoadCachedPositionsMissIsImmediate(t *testing.T) {
	store := NewMemStore()
	_, err := LoadCachedPositions(store, 5)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound without retries", err)
	}
}

func TestLoadCachedPositionsReadsRecord(t *testing.T) {
	store := NewMemStore()
	want := []models.Position{{Ticket: 7, Symbol: "XAUUSD"}}
	if err := store.Put(KeyPositions, want); err != nil {
		t.Fatal(err)
	}

	got, err := LoadCachedPositions(store, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Ticket != 7 {
		t.Errorf("got %+v, want ticket 7", got)
	}
}

func TestLoadBookDefaultsOnCorruptRecord(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, KeyAccounting+".json"), []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	book := LoadBook(store)
	if book == nil {
		t.Fatal("book is nil")
	}
	if len(book) != 0 {
		t.Errorf("corrupt record produced %d symbols, want empty book", len(book))
	}
}

func TestLoadBookMissingIsEmpty(t *testing.T) {
	book := LoadBook(NewMemStore())
	if book == nil || len(book) != 0 {
		t.Errorf("got %v, want usable empty book", book)
	}
}
