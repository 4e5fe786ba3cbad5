// Package pagination implements the opaque row-paging cursor returned by
// load_data_table for sheets larger than one page.
package pagination

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Cursor is the canonical pagination token (pre-encoding) with short field
// names to minimize payload size. It is serialized to minified JSON and
// encoded with URL-safe base64.
//
// Fields:
//   - v:   cursor schema version
//   - uri: spreadsheet uri the page belongs to
//   - s:   sheet name
//   - r:   normalized A1 range (no sheet qualifier), when a range was given
//   - hr:  0-based header row the page was built against
//   - off: row offset from the start of the data block
//   - ps:  page size in rows
//   - iat: issued-at timestamp (unix seconds)
type Cursor struct {
	V   int    `json:"v"`
	URI string `json:"uri"`
	S   string `json:"s,omitempty"`
	R   string `json:"r,omitempty"`
	Hr  int    `json:"hr"`
	Off int    `json:"off"`
	Ps  int    `json:"ps"`
	Iat int64  `json:"iat"`
}

// Encode serializes and encodes the cursor as URL-safe base64 without padding.
func Encode(c Cursor) (string, error) {
	if err := validate(&c); err != nil {
		return "", err
	}
	b, err := json.Marshal(c)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// Decode parses a URL-safe base64 token back into a cursor.
func Decode(token string) (*Cursor, error) {
	t := strings.TrimSpace(token)
	if t == "" {
		return nil, errors.New("cursor: empty token")
	}
	data, err := base64.RawURLEncoding.DecodeString(t)
	if err != nil {
		return nil, fmt.Errorf("cursor: invalid base64: %w", err)
	}
	var c Cursor
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("cursor: invalid json: %w", err)
	}
	if err := validate(&c); err != nil {
		return nil, err
	}
	return &c, nil
}

func validate(c *Cursor) error {
	if c.V <= 0 {
		c.V = 1
	}
	if c.Iat == 0 {
		c.Iat = time.Now().Unix()
	}
	if strings.TrimSpace(c.URI) == "" {
		return errors.New("cursor: uri required")
	}
	if c.Hr < 0 {
		return errors.New("cursor: hr must be >= 0")
	}
	if c.Off < 0 {
		return errors.New("cursor: off must be >= 0")
	}
	if c.Ps <= 0 {
		return errors.New("cursor: ps must be > 0")
	}
	return nil
}

// NextOffset computes the offset after returning n rows.
func NextOffset(curr, n int) int {
	if curr < 0 {
		curr = 0
	}
	if n <= 0 {
		return curr
	}
	return curr + n
}
