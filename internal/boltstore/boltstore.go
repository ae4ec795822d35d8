// Package boltstore implements the storage backend on bbolt. Item statistics
// are stored as one JSON document per item; sessions are keyed by end time so
// a cursor walks them in order.
package boltstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/verte-zerg/kanadrill/internal/model"
	"github.com/verte-zerg/kanadrill/internal/practice"
	"github.com/verte-zerg/kanadrill/internal/store"
)

var (
	bucketItems    = []byte("items")
	bucketMeta     = []byte("meta")
	bucketSessions = []byte("sessions")
	keyHistoryMeta = []byte("history")
)

const keyTimeLayout = "2006-01-02T15:04:05.000000000Z"

type historyMeta struct {
	LastSession     time.Time `json:"last_session"`
	TotalPracticeMs float64   `json:"total_practice_time"`
}

// Store persists the practice history in a bbolt file.
type Store struct {
	db *bolt.DB
}

var _ store.Backend = (*Store)(nil)

// Open opens (or creates) the bbolt database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("bbolt open: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketItems, bucketMeta, bucketSessions} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on init failure.
			_ = cerr
		}
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// LoadHistory reads every item document. An empty file yields an empty
// history stamped with the current time.
func (s *Store) LoadHistory(ctx context.Context) (*practice.History, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	h := practice.NewHistory(time.Now())
	err := s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(bucketMeta).Get(keyHistoryMeta); v != nil {
			var meta historyMeta
			if err := json.Unmarshal(v, &meta); err != nil {
				return fmt.Errorf("unmarshal history meta: %w", err)
			}
			h.LastSession = meta.LastSession
			h.TotalPracticeMs = meta.TotalPracticeMs
		}
		// json.Unmarshal copies, so the tx-scoped slices are not retained.
		return tx.Bucket(bucketItems).ForEach(func(k, v []byte) error {
			st := &practice.ItemStats{}
			if err := json.Unmarshal(v, st); err != nil {
				return fmt.Errorf("unmarshal item %s: %w", k, err)
			}
			h.Items[string(k)] = st
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return h, nil
}

// SaveHistory replaces the stored history with h in one transaction.
func (s *Store) SaveHistory(ctx context.Context, h *practice.History) error {
	if h == nil {
		return errors.New("nil history")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	docs := make(map[string][]byte, len(h.Items))
	for id, st := range h.Items {
		raw, err := json.Marshal(st)
		if err != nil {
			return fmt.Errorf("marshal item %s: %w", id, err)
		}
		docs[id] = raw
	}
	meta, err := json.Marshal(historyMeta{LastSession: h.LastSession, TotalPracticeMs: h.TotalPracticeMs})
	if err != nil {
		return fmt.Errorf("marshal history meta: %w", err)
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		items := tx.Bucket(bucketItems)
		var stale [][]byte
		if err := items.ForEach(func(k, _ []byte) error {
			if _, ok := docs[string(k)]; !ok {
				stale = append(stale, append([]byte(nil), k...))
			}
			return nil
		}); err != nil {
			return err
		}
		for _, k := range stale {
			if err := items.Delete(k); err != nil {
				return err
			}
		}
		for id, raw := range docs {
			if err := items.Put([]byte(id), raw); err != nil {
				return err
			}
		}
		return tx.Bucket(bucketMeta).Put(keyHistoryMeta, meta)
	})
}

func sessionKey(rec model.SessionRecord) []byte {
	return []byte(rec.EndedAt.UTC().Format(keyTimeLayout) + "/" + rec.ID)
}

// InsertSession stores a completed session. Session ids must be unique.
func (s *Store) InsertSession(ctx context.Context, rec model.SessionRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	suffix := []byte("/" + rec.ID)
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSessions)
		c := b.Cursor()
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			if bytes.HasSuffix(k, suffix) {
				return fmt.Errorf("session %s already exists", rec.ID)
			}
		}
		return b.Put(sessionKey(rec), raw)
	})
}

// ListSessions returns sessions filtered by stats config, oldest first.
func (s *Store) ListSessions(ctx context.Context, cfg model.StatsConfig) ([]model.SessionRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var sessions []model.SessionRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketSessions).Cursor()
		k, v := c.First()
		if cfg.Since != nil {
			k, v = c.Seek([]byte(cfg.Since.UTC().Format(keyTimeLayout)))
		}
		for ; k != nil; k, v = c.Next() {
			var rec model.SessionRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("unmarshal session %s: %w", k, err)
			}
			if cfg.Script != "" && rec.Script != cfg.Script {
				continue
			}
			sessions = append(sessions, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if cfg.Last > 0 && len(sessions) > cfg.Last {
		sessions = sessions[len(sessions)-cfg.Last:]
	}
	return sessions, nil
}
