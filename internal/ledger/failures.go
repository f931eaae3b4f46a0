package ledger

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// UnknownReason is recorded when a failure carries no message.
const UnknownReason = "unknown error"

// FailureEntry maps a filename to the reason its import failed.
type FailureEntry struct {
	Filename string `json:"filename"`
	Reason   string `json:"reason"`
}

// FailureList is an ordered filename to reason mapping. It encodes as a JSON
// object whose keys keep insertion order.
type FailureList []FailureEntry

// MarshalJSON encodes the list as an ordered object.
func (l FailureList) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, entry := range l {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(entry.Filename)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(entry.Reason)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes an object while preserving key order.
func (l *FailureList) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*l = nil
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return errors.New("failures: expected JSON object")
	}
	out := FailureList{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("failures: unexpected key %v", keyTok)
		}
		var reason string
		if err := dec.Decode(&reason); err != nil {
			return fmt.Errorf("failures: reason for %q: %w", key, err)
		}
		out = append(out, FailureEntry{Filename: key, Reason: reason})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*l = out
	return nil
}

// Failures is the per-run failure ledger with one entry per filename.
type Failures struct {
	mu      sync.Mutex
	order   []string
	reasons map[string]string
}

// NewFailures returns an empty ledger.
func NewFailures() *Failures {
	return &Failures{reasons: make(map[string]string)}
}

// Record stores the first failure reason seen for filename and reports
// whether a new entry was added.
func (f *Failures) Record(filename, reason string) bool {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = UnknownReason
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.reasons[filename]; exists {
		return false
	}
	f.reasons[filename] = reason
	f.order = append(f.order, filename)
	return true
}

// Reason returns the recorded reason for filename.
func (f *Failures) Reason(filename string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	reason, ok := f.reasons[filename]
	return reason, ok
}

// Entries returns the failures in the order they were recorded.
func (f *Failures) Entries() FailureList {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(FailureList, 0, len(f.order))
	for _, name := range f.order {
		out = append(out, FailureEntry{Filename: name, Reason: f.reasons[name]})
	}
	return out
}

// Len returns the number of failed filenames.
func (f *Failures) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.order)
}

// Reset removes every entry.
func (f *Failures) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.order = nil
	f.reasons = make(map[string]string)
}
