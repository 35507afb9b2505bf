package storage

import (
	"errors"
	"log"
	"time"

	"github.com/jpillora/backoff"

	"github.com/mazzara/algoone/internal/models"
)

// LoadCachedPositions reads the enriched positions record with a bounded
// retry. A transient read or decode failure (a writer replacing the file at
// process-restart boundaries) is retried with backoff; a clean miss is
// returned immediately as ErrNotFound.
func LoadCachedPositions(store RecordStore, attempts int) ([]models.Position, error) {
	if attempts < 1 {
		attempts = 1
	}

	b := &backoff.Backoff{
		Min:    100 * time.Millisecond,
		Max:    2 * time.Second,
		Factor: 2,
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		var positions []models.Position
		err := store.Get(KeyPositions, &positions)
		if err == nil {
			return positions, nil
		}
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}

		lastErr = err
		log.Printf("Retry %d/%d: failed to load cached positions: %v", i+1, attempts, err)
		if i < attempts-1 {
			time.Sleep(b.Duration())
		}
	}
	return nil, lastErr
}

// LoadBook reads the accounting book, defaulting to an empty book when the
// record is missing or corrupt. Availability wins over strict validation
// here: one bad record must not stop the cycle for every other symbol.
func LoadBook(store RecordStore) models.AccountingBook {
	book := models.AccountingBook{}
	err := store.Get(KeyAccounting, &book)
	if err != nil && !errors.Is(err, ErrNotFound) {
		log.Printf("ERROR: accounting book unreadable, starting from empty: %v", err)
		return models.AccountingBook{}
	}
	if book == nil {
		book = models.AccountingBook{}
	}
	return book
}
