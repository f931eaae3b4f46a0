package ledger

import (
	"sync"
	"time"
)

const (
	// DefaultPageLimit is used when a page request carries no positive limit.
	DefaultPageLimit = 20
	// MaxPageLimit caps a single page.
	MaxPageLimit = 500
)

// DownloadedEntry records one successfully imported item.
type DownloadedEntry struct {
	Filename  string    `json:"filename"`
	Date      time.Time `json:"date"`
	MediaType string    `json:"media_type"`
}

// Page is a window over the downloads ledger in append order.
type Page struct {
	Items  []DownloadedEntry `json:"items"`
	Total  int               `json:"total"`
	Offset int               `json:"offset"`
	Limit  int               `json:"limit"`
}

// Downloads is the append-only record of successes for the current run.
type Downloads struct {
	mu    sync.Mutex
	items []DownloadedEntry
}

// NewDownloads returns an empty ledger.
func NewDownloads() *Downloads {
	return &Downloads{}
}

// Append adds an entry.
func (d *Downloads) Append(entry DownloadedEntry) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.items = append(d.items, entry)
}

// Len returns the number of entries.
func (d *Downloads) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.items)
}

// Reset removes every entry.
func (d *Downloads) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.items = nil
}

// Page returns up to limit entries starting at offset. Out-of-range offsets
// yield an empty item list with the true total.
func (d *Downloads) Page(offset, limit int) Page {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	page := Page{Items: []DownloadedEntry{}, Total: len(d.items), Offset: offset, Limit: limit}
	if offset >= len(d.items) {
		return page
	}
	end := min(offset+limit, len(d.items))
	page.Items = append(page.Items, d.items[offset:end]...)
	return page
}
