// Package transcript reads conversation files from disk and rewrites
// histories.
package transcript

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/pders01/convo/internal/storage"
)

// ErrUnsupportedFormat is returned for files that are neither JSON nor TOML.
var ErrUnsupportedFormat = errors.New("unsupported transcript format")

// Transcript is a titled conversation read from a file.
type Transcript struct {
	Title    string
	Messages []*storage.Message
}

type jsonTranscript struct {
	Title    string             `json:"title"`
	Messages []*storage.Message `json:"messages"`
}

type tomlTranscript struct {
	Title    string        `toml:"title"`
	Messages []tomlMessage `toml:"messages"`
}

// TOML has no union types, so plain content and parts use separate keys.
type tomlMessage struct {
	ID      string         `toml:"id"`
	Role    string         `toml:"role"`
	Content string         `toml:"content"`
	Parts   []storage.Part `toml:"parts"`
}

// Load reads a transcript file, choosing the decoder by extension.
func Load(path string) (*Transcript, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading transcript: %w", err)
	}

	var t *Transcript
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		t, err = ParseJSON(data)
	case ".toml":
		t, err = ParseTOML(data)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}
	if t.Title == "" {
		t.Title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return t, nil
}

// ParseJSON accepts either an object with title and messages or a bare array
// of messages.
func ParseJSON(data []byte) (*Transcript, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, errors.New("empty transcript")
	}

	var raw jsonTranscript
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &raw.Messages); err != nil {
			return nil, err
		}
	} else if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, err
	}

	msgs, err := normalizeRoles(raw.Messages)
	if err != nil {
		return nil, err
	}
	return &Transcript{Title: raw.Title, Messages: msgs}, nil
}

// ParseTOML reads [[messages]] tables. A message with parts ignores its
// content key.
func ParseTOML(data []byte) (*Transcript, error) {
	var raw tomlTranscript
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	msgs := make([]*storage.Message, 0, len(raw.Messages))
	for i, m := range raw.Messages {
		role, err := storage.ParseRole(m.Role)
		if err != nil {
			return nil, fmt.Errorf("message %d: %w", i, err)
		}
		content := storage.TextContent(m.Content)
		if m.Parts != nil {
			content = storage.PartsContent(m.Parts...)
		}
		msgs = append(msgs, &storage.Message{ID: m.ID, Role: role, Content: content})
	}
	return &Transcript{Title: raw.Title, Messages: msgs}, nil
}

func normalizeRoles(msgs []*storage.Message) ([]*storage.Message, error) {
	out := make([]*storage.Message, 0, len(msgs))
	for i, m := range msgs {
		if m == nil {
			continue
		}
		role, err := storage.ParseRole(string(m.Role))
		if err != nil {
			return nil, fmt.Errorf("message %d: %w", i, err)
		}
		m.Role = role
		out = append(out, m)
	}
	return out, nil
}
