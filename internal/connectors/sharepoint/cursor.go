package sharepoint

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"time"
)

// CursorVersion is the current cursor schema version.
const CursorVersion = 1

// ErrInvalidCursor indicates the cursor format is invalid.
var ErrInvalidCursor = errors.New("sharepoint: invalid cursor format")

// Cursor records how far ingestion has progressed so incremental fetches
// can lower-bound the drive listings.
type Cursor struct {
	// Version is the schema version for future migrations.
	Version int `json:"v"`

	// UpdatedSince is the modification timestamp of the newest file seen.
	UpdatedSince time.Time `json:"updated_since,omitempty"`
}

// NewCursor creates a new empty cursor.
func NewCursor() *Cursor {
	return &Cursor{Version: CursorVersion}
}

// Advance moves the cursor forward to t if t is newer.
func (c *Cursor) Advance(t time.Time) {
	if t.After(c.UpdatedSince) {
		c.UpdatedSince = t
	}
}

// Encode serializes the cursor to a base64-encoded JSON string.
func (c *Cursor) Encode() string {
	if c == nil {
		return ""
	}
	data, err := json.Marshal(c)
	if err != nil {
		return ""
	}
	return base64.StdEncoding.EncodeToString(data)
}

// DecodeCursor deserializes a cursor from a base64-encoded JSON string.
// An empty input yields a new empty cursor.
func DecodeCursor(s string) (*Cursor, error) {
	if s == "" {
		return NewCursor(), nil
	}

	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, ErrInvalidCursor
	}

	var cursor Cursor
	if err := json.Unmarshal(data, &cursor); err != nil {
		return nil, ErrInvalidCursor
	}
	return &cursor, nil
}
