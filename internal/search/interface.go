package search

import "github.com/pders01/convo/internal/storage"

// SessionFinder looks up sessions by the words in their history.
type SessionFinder interface {
	SearchSessions(query string, limit int) ([]*SessionHit, error)
}

// HistoryIndexer keeps an index in step with rewritten histories.
type HistoryIndexer interface {
	Reindex(session *storage.Session, history []*storage.Message)
	Forget(sessionID string)
}

// SessionHit is one session matching an index query, with the ids of its
// matching messages in hit order.
type SessionHit struct {
	SessionID  string
	Title      string
	Score      float64
	MessageIDs []string
}
