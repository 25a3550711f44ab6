// Package adf encodes and flattens Atlassian Document Format, the structured
// rich-text format Jira Cloud's v3 REST API uses for descriptions, comments and
// worklog comments.
package adf

import (
	"encoding/json"
	"strings"
)

// Document is the outgoing shape for a plain-text worklog comment.
// Field order matters: it is part of the wire format Jira is known to accept.
type Document struct {
	Type    string      `json:"type"`
	Version int         `json:"version"`
	Content []Paragraph `json:"content"`
}

// Paragraph is a block node holding text nodes
type Paragraph struct {
	Type    string `json:"type"`
	Content []Text `json:"content"`
}

// Text is an inline text node
type Text struct {
	Text string `json:"text"`
	Type string `json:"type"`
}

// FromText wraps text in a version 1 document with one paragraph and one text
// node. All worklog comment encoding goes through here.
func FromText(text string) *Document {
	return &Document{
		Type:    "doc",
		Version: 1,
		Content: []Paragraph{
			{
				Type:    "paragraph",
				Content: []Text{{Text: text, Type: "text"}},
			},
		},
	}
}

// node is the generic incoming shape
type node struct {
	Type    string          `json:"type"`
	Text    string          `json:"text"`
	Content []node          `json:"content"`
	Attrs   json.RawMessage `json:"attrs"`
}

// blockTypes end with a line break when flattened
var blockTypes = map[string]bool{
	"paragraph":  true,
	"heading":    true,
	"codeBlock":  true,
	"blockquote": true,
	"listItem":   true,
	"rule":       true,
	"panel":      true,
	"tableRow":   true,
}

// PlainText flattens a raw field value to plain text. Jira sends either a JSON
// string (v2-style fields) or an ADF document object; null and absent yield "".
func PlainText(raw json.RawMessage) string {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return ""
	}

	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return ""
		}
		return s
	}

	var doc node
	if err := json.Unmarshal(raw, &doc); err != nil {
		return ""
	}

	var b strings.Builder
	flatten(&b, doc)
	return strings.TrimRight(b.String(), "\n")
}

func flatten(b *strings.Builder, n node) {
	switch n.Type {
	case "text":
		b.WriteString(n.Text)
		return
	case "hardBreak":
		b.WriteString("\n")
		return
	case "mention", "emoji", "inlineCard":
		b.WriteString(attrText(n.Attrs))
		return
	}

	for _, child := range n.Content {
		flatten(b, child)
	}

	if blockTypes[n.Type] {
		b.WriteString("\n")
	}
}

// attrText picks the display text of inline nodes that keep it in attrs
func attrText(raw json.RawMessage) string {
	var attrs struct {
		Text string `json:"text"`
		URL  string `json:"url"`
	}
	if err := json.Unmarshal(raw, &attrs); err != nil {
		return ""
	}
	if attrs.Text != "" {
		return attrs.Text
	}
	return attrs.URL
}
