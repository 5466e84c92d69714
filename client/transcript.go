package client

import (
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/satriahrh/cocoa-fruit/ragchat/domain"
)

var ErrUnknownEntry = errors.New("unknown transcript entry")

// Transcript is the ordered conversation shown to the user. Entries are only
// ever appended; an entry's text may grow or be replaced in place.
type Transcript struct {
	mu       sync.Mutex
	entries  []domain.TranscriptEntry
	index    map[string]int
	onChange func(domain.TranscriptEntry)
}

// NewTranscript creates an empty transcript. onChange, when non-nil, is
// called with the affected entry after every mutation.
func NewTranscript(onChange func(domain.TranscriptEntry)) *Transcript {
	return &Transcript{
		index:    make(map[string]int),
		onChange: onChange,
	}
}

// Append adds an entry at the end and returns its id.
func (t *Transcript) Append(role domain.Role, text string, sources []domain.Citation) string {
	entry := domain.TranscriptEntry{
		ID:      uuid.NewString(),
		Role:    role,
		Text:    text,
		Sources: sources,
	}

	t.mu.Lock()
	t.index[entry.ID] = len(t.entries)
	t.entries = append(t.entries, entry)
	t.mu.Unlock()

	t.notify(entry)
	return entry.ID
}

// AppendText concatenates delta onto the text of entry id.
func (t *Transcript) AppendText(id, delta string) error {
	return t.update(id, func(e *domain.TranscriptEntry) { e.Text += delta })
}

// ReplaceText overwrites the text of entry id.
func (t *Transcript) ReplaceText(id, text string) error {
	return t.update(id, func(e *domain.TranscriptEntry) { e.Text = text })
}

// Entries returns a snapshot in insertion order.
func (t *Transcript) Entries() []domain.TranscriptEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]domain.TranscriptEntry(nil), t.entries...)
}

func (t *Transcript) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

func (t *Transcript) update(id string, fn func(*domain.TranscriptEntry)) error {
	t.mu.Lock()
	i, ok := t.index[id]
	if !ok {
		t.mu.Unlock()
		return ErrUnknownEntry
	}
	fn(&t.entries[i])
	entry := t.entries[i]
	t.mu.Unlock()

	t.notify(entry)
	return nil
}

func (t *Transcript) notify(entry domain.TranscriptEntry) {
	if t.onChange != nil {
		t.onChange(entry)
	}
}
