package storage

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
)

// ParseRole maps loose role names from transcript files onto the known roles.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "user", "human":
		return RoleUser, nil
	case "assistant", "ai", "model":
		return RoleAssistant, nil
	case "system":
		return RoleSystem, nil
	case "tool", "function":
		return RoleTool, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

type PartType string

const (
	PartText       PartType = "text"
	PartImage      PartType = "image"
	PartToolCall   PartType = "tool_call"
	PartToolResult PartType = "tool_result"
)

type Part struct {
	Type PartType `json:"type" toml:"type"`
	Text string   `json:"text,omitempty" toml:"text,omitempty"`
	URL  string   `json:"url,omitempty" toml:"url,omitempty"`
	Name string   `json:"name,omitempty" toml:"name,omitempty"`
}

// Content is either plain text or an ordered list of typed parts.
type Content struct {
	Text  string
	Parts []Part
}

func TextContent(s string) Content {
	return Content{Text: s}
}

func PartsContent(parts ...Part) Content {
	return Content{Parts: parts}
}

// IsParts reports whether the content was given as typed parts.
func (c Content) IsParts() bool {
	return c.Parts != nil
}

// PlainText flattens the content for searching. Only text parts contribute,
// concatenated in declaration order.
func (c Content) PlainText() string {
	if !c.IsParts() {
		return c.Text
	}
	var b strings.Builder
	for _, p := range c.Parts {
		if p.Type == PartText {
			b.WriteString(p.Text)
		}
	}
	return b.String()
}

func (c Content) MarshalJSON() ([]byte, error) {
	if c.IsParts() {
		return json.Marshal(c.Parts)
	}
	return json.Marshal(c.Text)
}

func (c *Content) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		var parts []Part
		if err := json.Unmarshal(data, &parts); err != nil {
			return fmt.Errorf("decoding content parts: %w", err)
		}
		if parts == nil {
			parts = []Part{}
		}
		*c = Content{Parts: parts}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("decoding content text: %w", err)
	}
	*c = Content{Text: s}
	return nil
}

type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   Content   `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type Session struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	// Revision changes on every mutation of the session's messages.
	Revision uint64 `json:"revision"`
	Count    int    `json:"count"`
}
