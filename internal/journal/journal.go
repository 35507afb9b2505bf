package journal

import (
	"errors"
	"log"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mazzara/algoone/internal/models"
	"github.com/mazzara/algoone/internal/portfolio"
	"github.com/mazzara/algoone/internal/storage"
)

// Entry is the journaled life of one ticket: what was opened, why, how its
// profit evolved and how it ended.
type Entry struct {
	ID         string             `json:"id"`
	Symbol     string             `json:"symbol"`
	Direction  string             `json:"direction"`
	Volume     decimal.Decimal    `json:"volume"`
	EntryPrice decimal.Decimal    `json:"entry_price"`
	OpenTime   string             `json:"open_time"`
	Rationale  string             `json:"rationale,omitempty"`
	Indicators map[string]float64 `json:"indicators,omitempty"`

	ProfitChain []float64 `json:"profit_chain"`
	PeakProfit  float64   `json:"peak_profit"`

	Closed      bool            `json:"closed"`
	CloseTime   string          `json:"close_time,omitempty"`
	ExitPrice   decimal.Decimal `json:"exit_price,omitempty"`
	CloseReason string          `json:"close_reason,omitempty"`
}

// Journal persists trade entries keyed by ticket.
type Journal struct {
	store storage.RecordStore
}

func New(store storage.RecordStore) *Journal {
	return &Journal{store: store}
}

func (j *Journal) load() map[string]Entry {
	entries := map[string]Entry{}
	err := j.store.Get(storage.KeyJournal, &entries)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		log.Printf("ERROR: journal unreadable, starting empty: %v", err)
		return map[string]Entry{}
	}
	return entries
}

func (j *Journal) save(entries map[string]Entry) {
	storage.SaveOrLog(j.store, storage.KeyJournal, entries)
}

func key(ticket int64) string { return strconv.FormatInt(ticket, 10) }

// LogOpen records a freshly opened trade.
func (j *Journal) LogOpen(ticket int64, symbol, direction string, volume, entryPrice decimal.Decimal, rationale string, indicators map[string]float64) {
	entries := j.load()
	entries[key(ticket)] = Entry{
		ID:          uuid.NewString(),
		Symbol:      symbol,
		Direction:   direction,
		Volume:      volume,
		EntryPrice:  entryPrice,
		OpenTime:    time.Now().UTC().Format("2006-01-02 15:04:05"),
		Rationale:   rationale,
		Indicators:  indicators,
		ProfitChain: []float64{},
	}
	j.save(entries)
	log.Printf("[JOURNAL] trade opened: %d | %s | %s", ticket, symbol, direction)
}

// AppendTracking adds a profit observation to the entry of a live position.
// Unknown tickets are skipped; a position could predate the journal.
func (j *Journal) AppendTracking(pos *models.Position) {
	entries := j.load()
	entry, ok := entries[key(pos.Ticket)]
	if !ok {
		return
	}

	pct := portfolio.ProfitPct(pos)
	entry.ProfitChain = append(entry.ProfitChain, pct)
	if pct > entry.PeakProfit {
		entry.PeakProfit = pct
	}

	entries[key(pos.Ticket)] = entry
	j.save(entries)
}

// LogClose marks an entry closed.
func (j *Journal) LogClose(ticket int64, exitPrice decimal.Decimal, reason string) {
	entries := j.load()
	entry, ok := entries[key(ticket)]
	if !ok {
		log.Printf("[JOURNAL] close for unknown ticket %d ignored", ticket)
		return
	}

	entry.Closed = true
	entry.CloseTime = time.Now().UTC().Format("2006-01-02 15:04:05")
	entry.ExitPrice = exitPrice
	entry.CloseReason = reason

	entries[key(ticket)] = entry
	j.save(entries)
	log.Printf("[JOURNAL] trade closed: %d | %s", ticket, reason)
}

// Get returns the entry for a ticket.
func (j *Journal) Get(ticket int64) (Entry, bool) {
	entries := j.load()
	entry, ok := entries[key(ticket)]
	return entry, ok
}
