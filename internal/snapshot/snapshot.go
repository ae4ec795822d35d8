// Package snapshot reads and writes portable JSON copies of the history.
package snapshot

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/verte-zerg/kanadrill/internal/practice"
)

const (
	// Version is the snapshot format written by Write.
	Version = 1
	// LegacyVersion is a bare history without the snapshot envelope.
	LegacyVersion = 0
)

var (
	ErrUnsupportedVersion = errors.New("snapshot: unsupported version")
	ErrMissingHistory     = errors.New("snapshot: missing history")
)

// Document is the on-disk snapshot layout.
type Document struct {
	Version    int               `json:"version"`
	ExportedAt time.Time         `json:"exported_at"`
	History    *practice.History `json:"history"`
}

// Write encodes h as an indented snapshot.
func Write(w io.Writer, h *practice.History, now time.Time) error {
	if h == nil {
		return ErrMissingHistory
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(Document{Version: Version, ExportedAt: now, History: h}); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return nil
}

// Read decodes a snapshot and checks every item's averages against its
// attempt log. Drifted items are repaired when repair is set; the drifts are
// returned either way.
//
// A document without a version key is a bare history as written before
// snapshots were versioned (LegacyVersion).
func Read(r io.Reader, repair bool) (*practice.History, []practice.Drift, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, fmt.Errorf("read snapshot: %w", err)
	}
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(data, &keys); err != nil {
		return nil, nil, fmt.Errorf("decode snapshot: %w", err)
	}

	var h *practice.History
	if _, ok := keys["version"]; ok {
		h, err = decodeDocument(data)
	} else {
		h, err = decodeLegacy(data, keys)
	}
	if err != nil {
		return nil, nil, err
	}
	if h.Items == nil {
		h.Items = map[string]*practice.ItemStats{}
	}
	for id, st := range h.Items {
		if st == nil {
			return nil, nil, fmt.Errorf("snapshot: item %s has no statistics", id)
		}
		for _, a := range st.TestHistory {
			if err := practice.ValidateResponseTime(a.DurationMs); err != nil {
				return nil, nil, fmt.Errorf("snapshot: item %s: %w", id, err)
			}
		}
	}
	return h, h.Validate(repair), nil
}

func decodeDocument(data []byte) (*practice.History, error) {
	var doc Document
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if doc.Version != Version {
		return nil, fmt.Errorf("%w %d", ErrUnsupportedVersion, doc.Version)
	}
	if doc.History == nil {
		return nil, ErrMissingHistory
	}
	return doc.History, nil
}

func decodeLegacy(data []byte, keys map[string]json.RawMessage) (*practice.History, error) {
	if _, ok := keys["character_stats"]; !ok {
		return nil, ErrMissingHistory
	}
	var h practice.History
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, fmt.Errorf("decode legacy history: %w", err)
	}
	return &h, nil
}
