package storage

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
)

var (
	sessionsBucket = []byte("sessions")
	messagesBucket = []byte("messages")
	metaBucket     = []byte("metadata")
)

var ErrNotFound = errors.New("not found")

type Store struct {
	db *bolt.DB
}

func NewStore(dbPath string) (*Store, error) {
	return NewStoreWithTimeout(dbPath, 1*time.Second)
}

func NewStoreWithTimeout(dbPath string, timeout time.Duration) (*Store, error) {
	db, err := bolt.Open(dbPath, 0o600, &bolt.Options{Timeout: timeout})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{sessionsBucket, messagesBucket, metaBucket} {
			if _, createErr := tx.CreateBucketIfNotExists(bucket); createErr != nil {
				return createErr
			}
		}
		return nil
	})

	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// NewID returns a fresh identifier for sessions and messages.
func NewID() string {
	return uuid.NewString()
}

func (s *Store) SaveSession(session *Session) error {
	if session.ID == "" {
		session.ID = NewID()
	}
	now := time.Now()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	session.UpdatedAt = now
	return s.db.Update(func(tx *bolt.Tx) error {
		// Message bookkeeping is owned by the store, not the caller's copy.
		if existing, err := getSession(tx, session.ID); err == nil {
			session.Revision = existing.Revision
			session.Count = existing.Count
		}
		return putSession(tx, session)
	})
}

func (s *Store) GetSession(id string) (*Session, error) {
	var session *Session
	err := s.db.View(func(tx *bolt.Tx) error {
		var err error
		session, err = getSession(tx, id)
		return err
	})
	return session, err
}

// ListSessions returns all sessions, most recently updated first.
func (s *Store) ListSessions() ([]*Session, error) {
	var sessions []*Session
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(sessionsBucket)
		return b.ForEach(func(_ []byte, v []byte) error {
			var session Session
			if err := json.Unmarshal(v, &session); err != nil {
				return err
			}
			sessions = append(sessions, &session)
			return nil
		})
	})
	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].UpdatedAt.After(sessions[j].UpdatedAt)
	})
	return sessions, err
}

// AppendMessages adds messages to the end of a session's history. Messages
// without an ID are assigned one.
func (s *Store) AppendMessages(sessionID string, msgs ...*Message) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		session, err := getSession(tx, sessionID)
		if err != nil {
			return err
		}
		b, err := tx.Bucket(messagesBucket).CreateBucketIfNotExists([]byte(sessionID))
		if err != nil {
			return err
		}
		if err := putMessages(b, msgs); err != nil {
			return err
		}
		session.Count = countKeys(b)
		return touch(tx, session)
	})
}

// ReplaceMessages swaps a session's whole history, as done by compaction or
// a reload from the source transcript.
func (s *Store) ReplaceMessages(sessionID string, msgs []*Message) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		session, err := getSession(tx, sessionID)
		if err != nil {
			return err
		}
		root := tx.Bucket(messagesBucket)
		if root.Bucket([]byte(sessionID)) != nil {
			if err := root.DeleteBucket([]byte(sessionID)); err != nil {
				return err
			}
		}
		b, err := root.CreateBucket([]byte(sessionID))
		if err != nil {
			return err
		}
		if err := putMessages(b, msgs); err != nil {
			return err
		}
		session.Count = len(msgs)
		return touch(tx, session)
	})
}

// GetMessages returns the session's history in insertion order.
func (s *Store) GetMessages(sessionID string) ([]*Message, error) {
	var msgs []*Message
	err := s.db.View(func(tx *bolt.Tx) error {
		if _, err := getSession(tx, sessionID); err != nil {
			return err
		}
		b := tx.Bucket(messagesBucket).Bucket([]byte(sessionID))
		if b == nil {
			return nil
		}
		return b.ForEach(func(_ []byte, v []byte) error {
			var msg Message
			if err := json.Unmarshal(v, &msg); err != nil {
				return err
			}
			msgs = append(msgs, &msg)
			return nil
		})
	})
	return msgs, err
}

func (s *Store) DeleteSession(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(sessionsBucket).Delete([]byte(id)); err != nil {
			return err
		}
		root := tx.Bucket(messagesBucket)
		if root.Bucket([]byte(id)) != nil {
			return root.DeleteBucket([]byte(id))
		}
		return nil
	})
}

func putMessages(b *bolt.Bucket, msgs []*Message) error {
	for _, msg := range msgs {
		if msg.ID == "" {
			msg.ID = NewID()
		}
		if msg.CreatedAt.IsZero() {
			msg.CreatedAt = time.Now()
		}
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		data, err := json.Marshal(msg)
		if err != nil {
			return err
		}
		if err := b.Put(seqKey(seq), data); err != nil {
			return err
		}
	}
	return nil
}

func touch(tx *bolt.Tx, session *Session) error {
	session.Revision++
	session.UpdatedAt = time.Now()
	return putSession(tx, session)
}

func putSession(tx *bolt.Tx, session *Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return tx.Bucket(sessionsBucket).Put([]byte(session.ID), data)
}

func getSession(tx *bolt.Tx, id string) (*Session, error) {
	data := tx.Bucket(sessionsBucket).Get([]byte(id))
	if data == nil {
		return nil, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func countKeys(b *bolt.Bucket) int {
	n := 0
	c := b.Cursor()
	for k, _ := c.First(); k != nil; k, _ = c.Next() {
		n++
	}
	return n
}

// seqKey encodes a bucket sequence so that byte order matches insertion order.
func seqKey(seq uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, seq)
	return key
}
