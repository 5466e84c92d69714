// Package relay forwards a provider's fragment sequence into an outgoing sink.
// It knows nothing about which provider produced the fragments.
package relay

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/satriahrh/cocoa-fruit/ragchat/domain"
)

// ErrSink marks failures writing to the downstream connection, as opposed to
// failures reported by the provider.
var ErrSink = errors.New("relay sink")

type Stats struct {
	Fragments int
	Bytes     int
	Citations int
}

// Emitter delivers one fragment downstream.
type Emitter func(domain.Fragment) error

// Relay pulls every fragment from seq and emits it immediately, in order.
// It stops at the first provider or sink error; whatever was emitted before
// stays emitted.
func Relay(seq domain.FragmentSeq, emit Emitter) (Stats, error) {
	var stats Stats
	for frag, err := range seq {
		if err != nil {
			return stats, err
		}
		stats.Citations += len(frag.Citations)
		if frag.Text == "" {
			continue
		}
		if err := emit(frag); err != nil {
			return stats, fmt.Errorf("%w: %w", ErrSink, err)
		}
		stats.Fragments++
		stats.Bytes += len(frag.Text)
	}
	return stats, nil
}

// TextWriter writes fragment text to w without any envelope, flushing after
// every write when w supports it.
func TextWriter(w io.Writer) Emitter {
	flusher, _ := w.(http.Flusher)
	return func(frag domain.Fragment) error {
		if _, err := io.WriteString(w, frag.Text); err != nil {
			return err
		}
		if flusher != nil {
			flusher.Flush()
		}
		return nil
	}
}
