package transcript

import (
	"fmt"
	"path/filepath"

	"github.com/pders01/convo/internal/storage"
)

// Import stores t as a new session. Messages without an ID get a fresh one
// from the store.
func Import(store *storage.Store, t *Transcript, source string) (*storage.Session, error) {
	session := &storage.Session{Title: t.Title, Source: source}
	if session.Title == "" {
		session.Title = filepath.Base(source)
	}
	if err := store.SaveSession(session); err != nil {
		return nil, fmt.Errorf("saving session: %w", err)
	}
	if len(t.Messages) > 0 {
		if err := store.AppendMessages(session.ID, t.Messages...); err != nil {
			return nil, fmt.Errorf("saving messages: %w", err)
		}
	}
	return store.GetSession(session.ID)
}

// Sync mirrors t into the session previously imported from source, creating
// the session on first use. The whole history is replaced.
//
// Messages without an ID are keyed by position so that a followed file that
// only grows keeps the identity of the messages it already had.
func Sync(store *storage.Store, t *Transcript, source string) (*storage.Session, error) {
	session, err := FindBySource(store, source)
	if err != nil {
		return nil, err
	}
	if session == nil {
		session = &storage.Session{Title: t.Title, Source: source}
		if session.Title == "" {
			session.Title = filepath.Base(source)
		}
		if err := store.SaveSession(session); err != nil {
			return nil, fmt.Errorf("saving session: %w", err)
		}
	} else if t.Title != "" && t.Title != session.Title {
		session.Title = t.Title
		if err := store.SaveSession(session); err != nil {
			return nil, fmt.Errorf("saving session: %w", err)
		}
	}

	for i, msg := range t.Messages {
		if msg.ID == "" {
			msg.ID = fmt.Sprintf("msg-%d", i)
		}
	}
	if err := store.ReplaceMessages(session.ID, t.Messages); err != nil {
		return nil, fmt.Errorf("replacing messages: %w", err)
	}
	return store.GetSession(session.ID)
}

// FindBySource returns the session imported from source, or nil.
func FindBySource(store *storage.Store, source string) (*storage.Session, error) {
	sessions, err := store.ListSessions()
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	for _, s := range sessions {
		if s.Source == source {
			return s, nil
		}
	}
	return nil, nil
}
