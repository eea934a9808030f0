package store

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"go.etcd.io/bbolt"
	"pdfrag/internal/domain"
)

var (
	bucketMeta   = []byte("meta")
	bucketChunks = []byte("chunks")
	bucketIndex  = []byte("index")
	keyMeta      = []byte("session")
	keyIndex     = []byte("flat_l2")
)

// BoltStore keeps the session in a single bbolt file. The database is only
// open for the duration of a Save or Load so that `index` and `chat` in
// different processes do not contend for the file lock.
type BoltStore struct {
	path string
}

func NewBoltStore(path string) *BoltStore {
	return &BoltStore{path: path}
}

func (s *BoltStore) Save(session *domain.Session) error {
	stamp(session)

	meta, err := json.Marshal(session.Meta)
	if err != nil {
		return fmt.Errorf("failed to encode session meta: %w", err)
	}

	db, err := bbolt.Open(s.path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return fmt.Errorf("failed to open bolt db: %w", err)
	}
	defer db.Close()

	// One write transaction: either the whole new session is visible or
	// the previous one is.
	return db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketMeta, bucketChunks, bucketIndex} {
			if tx.Bucket(name) != nil {
				if err := tx.DeleteBucket(name); err != nil {
					return fmt.Errorf("failed to clear bucket %s: %w", name, err)
				}
			}
			if _, err := tx.CreateBucket(name); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", name, err)
			}
		}

		chunks := tx.Bucket(bucketChunks)
		for i, text := range session.Chunks {
			if err := chunks.Put(positionKey(i), []byte(text)); err != nil {
				return err
			}
		}
		if err := tx.Bucket(bucketIndex).Put(keyIndex, session.Index); err != nil {
			return err
		}
		return tx.Bucket(bucketMeta).Put(keyMeta, meta)
	})
}

func (s *BoltStore) Load() (*domain.Session, bool, error) {
	if _, err := os.Stat(s.path); err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to stat session: %w", err)
	}

	db, err := bbolt.Open(s.path, 0600, &bbolt.Options{ReadOnly: true, Timeout: time.Second})
	if err != nil {
		return nil, false, fmt.Errorf("%w: failed to open bolt db: %v", domain.ErrSessionCorrupt, err)
	}
	defer db.Close()

	var session domain.Session
	err = db.View(func(tx *bbolt.Tx) error {
		metaBucket := tx.Bucket(bucketMeta)
		chunks := tx.Bucket(bucketChunks)
		index := tx.Bucket(bucketIndex)
		if metaBucket == nil || chunks == nil || index == nil {
			return fmt.Errorf("%w: missing buckets", domain.ErrSessionCorrupt)
		}

		data := metaBucket.Get(keyMeta)
		if data == nil {
			return fmt.Errorf("%w: missing session meta", domain.ErrSessionCorrupt)
		}
		if err := json.Unmarshal(data, &session.Meta); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrSessionCorrupt, err)
		}

		// Keys are big-endian positions, so cursor order is chunk order.
		expected := uint64(0)
		c := chunks.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			if len(k) != 8 || binary.BigEndian.Uint64(k) != expected {
				return fmt.Errorf("%w: chunk sequence broken at position %d", domain.ErrSessionCorrupt, expected)
			}
			session.Chunks = append(session.Chunks, string(v))
			expected++
		}

		// Values are only valid for the life of the transaction.
		if blob := index.Get(keyIndex); blob != nil {
			session.Index = append([]byte(nil), blob...)
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	if err := Validate(&session); err != nil {
		return nil, false, err
	}
	return &session, true, nil
}

func (s *BoltStore) Close() error {
	return nil
}

func positionKey(i int) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, uint64(i))
	return k
}
