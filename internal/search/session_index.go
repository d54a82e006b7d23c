package search

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	bleveQuery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/pders01/convo/internal/debuglog"
	"github.com/pders01/convo/internal/storage"
)

type bleveIndex struct {
	store *storage.Store
	idx   bleve.Index
}

// SessionIndex is the bleve backed cross-session index.
type SessionIndex interface {
	SessionFinder
	HistoryIndexer
	DocCount() (int, error)
	Close() error
}

// NewSessionIndex creates or opens a Bleve index at indexPath and indexes
// every stored session.
func NewSessionIndex(store *storage.Store, indexPath string) (SessionIndex, error) {
	if err := os.MkdirAll(filepath.Dir(indexPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	idx, err := bleve.Open(indexPath)
	if err != nil {
		idx, err = bleve.New(indexPath, buildIndexMapping())
		if err != nil {
			return nil, err
		}
	}

	bi := &bleveIndex{store: store, idx: idx}
	if err := bi.reindexAll(); err != nil {
		_ = idx.Close()
		return nil, err
	}
	return bi, nil
}

func buildIndexMapping() mapping.IndexMapping {
	im := bleve.NewIndexMapping()
	im.DefaultAnalyzer = standard.Name

	dm := bleve.NewDocumentMapping()

	text := bleve.NewTextFieldMapping()
	text.Analyzer = standard.Name
	text.Store = false
	text.IncludeTermVectors = false

	title := bleve.NewTextFieldMapping()
	title.Analyzer = standard.Name
	title.Store = true

	// IDs must survive analysis intact for term lookups.
	sessionID := bleve.NewTextFieldMapping()
	sessionID.Analyzer = keyword.Name
	sessionID.Store = true

	messageID := bleve.NewTextFieldMapping()
	messageID.Analyzer = keyword.Name
	messageID.Store = true

	role := bleve.NewTextFieldMapping()
	role.Analyzer = keyword.Name

	dm.AddFieldMappingsAt("text", text)
	dm.AddFieldMappingsAt("title", title)
	dm.AddFieldMappingsAt("session_id", sessionID)
	dm.AddFieldMappingsAt("message_id", messageID)
	dm.AddFieldMappingsAt("role", role)

	im.DefaultMapping = dm
	return im
}

func (b *bleveIndex) reindexAll() error {
	sessions, err := b.store.ListSessions()
	if err != nil {
		return err
	}

	batch := b.idx.NewBatch()
	for _, s := range sessions {
		msgs, err := b.store.GetMessages(s.ID)
		if err != nil {
			debuglog.Warnf("index: skipping session %s: %v", s.ID, err)
			continue
		}
		addSessionDocs(batch, s, msgs)
	}
	return b.idx.Batch(batch)
}

func addSessionDocs(batch *bleve.Batch, s *storage.Session, msgs []*storage.Message) {
	for _, m := range msgs {
		if m.Role == storage.RoleSystem {
			continue
		}
		_ = batch.Index(docIDForMessage(s.ID, m.ID), map[string]any{
			"session_id": s.ID,
			"message_id": m.ID,
			"title":      s.Title,
			"role":       string(m.Role),
			"text":       m.Content.PlainText(),
		})
	}
}

// SearchSessions returns sessions with at least one matching message, best
// first.
func (b *bleveIndex) SearchSessions(query string, limit int) ([]*SessionHit, error) {
	tokens := queryTerms(query)
	if len(tokens) == 0 {
		return []*SessionHit{}, nil
	}

	var qs []bleveQuery.Query
	for _, tok := range tokens {
		qt := bleve.NewMatchQuery(tok)
		qt.SetField("text")
		qt.SetBoost(2.0)
		qs = append(qs, qt)
		qtp := bleve.NewPrefixQuery(tok)
		qtp.SetField("text")
		qtp.SetBoost(1.0)
		qs = append(qs, qtp)
		qh := bleve.NewMatchQuery(tok)
		qh.SetField("title")
		qh.SetBoost(0.5)
		qs = append(qs, qh)
	}

	// Hits are per message; fetch generously and fold them into sessions.
	size := limit * 20
	if size <= 0 {
		size = 200
	}
	req := bleve.NewSearchRequestOptions(bleve.NewDisjunctionQuery(qs...), size, 0, false)
	req.Fields = []string{"session_id", "message_id", "title"}
	res, err := b.idx.Search(req)
	if err != nil {
		return nil, err
	}

	bySession := make(map[string]*SessionHit)
	var order []*SessionHit
	for _, h := range res.Hits {
		sid, _ := h.Fields["session_id"].(string)
		if sid == "" {
			continue
		}
		hit, ok := bySession[sid]
		if !ok {
			hit = &SessionHit{SessionID: sid}
			if t, ok := h.Fields["title"].(string); ok {
				hit.Title = t
			}
			bySession[sid] = hit
			order = append(order, hit)
		}
		hit.Score += h.Score
		if mid, ok := h.Fields["message_id"].(string); ok {
			hit.MessageIDs = append(hit.MessageIDs, mid)
		}
	}

	sort.SliceStable(order, func(i, j int) bool {
		return order[i].Score > order[j].Score
	})
	if limit > 0 && len(order) > limit {
		order = order[:limit]
	}
	return order, nil
}

// Reindex replaces the indexed documents of a session.
func (b *bleveIndex) Reindex(session *storage.Session, messages []*storage.Message) {
	if session == nil {
		return
	}
	b.Forget(session.ID)
	batch := b.idx.NewBatch()
	addSessionDocs(batch, session, messages)
	if err := b.idx.Batch(batch); err != nil {
		debuglog.Errorf("index: updating session %s: %v", session.ID, err)
	}
}

// Forget removes every message document of the session.
func (b *bleveIndex) Forget(sessionID string) {
	tq := bleve.NewTermQuery(sessionID)
	tq.SetField("session_id")

	size := 1000
	for {
		// Always page from the start: the previous page is gone once deleted.
		req := bleve.NewSearchRequestOptions(tq, size, 0, false)
		req.Fields = []string{}
		res, err := b.idx.Search(req)
		if err != nil || res == nil || len(res.Hits) == 0 {
			break
		}
		batch := b.idx.NewBatch()
		for _, h := range res.Hits {
			batch.Delete(h.ID)
		}
		if err := b.idx.Batch(batch); err != nil {
			debuglog.Errorf("index: deleting session %s: %v", sessionID, err)
			break
		}
		if len(res.Hits) < size {
			break
		}
	}
}

// DocCount reports total documents in the index.
func (b *bleveIndex) DocCount() (int, error) {
	n, err := b.idx.DocCount()
	return int(n), err
}

func (b *bleveIndex) Close() error {
	return b.idx.Close()
}

func docIDForMessage(sessionID, messageID string) string {
	return "message:" + sessionID + ":" + messageID
}

// queryTerms splits a query into lower-cased words of two or more
// characters.
func queryTerms(query string) []string {
	var terms []string
	for _, w := range strings.FieldsFunc(query, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	}) {
		if utf8.RuneCountInString(w) > 1 {
			terms = append(terms, strings.ToLower(w))
		}
	}
	return terms
}
