package normalisers

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/quarry-labs/quarry-cli/internal/core/domain"
)

// Identify checks that a record carries the minimum identity fields.
// A record without a source or source_id cannot be addressed in the index
// and is reported as a *domain.MalformedRecordError. Everything else is a
// degradable defect and must not fail here.
func Identify(raw *domain.RawRecord) error {
	if raw == nil {
		return domain.ErrInvalidInput
	}
	if raw.Source == "" {
		return &domain.MalformedRecordError{SourceID: raw.SourceID, Reason: "missing source"}
	}
	if _, err := domain.ParseSource(string(raw.Source)); err != nil {
		return &domain.MalformedRecordError{Source: raw.Source, SourceID: raw.SourceID, Reason: "unknown source"}
	}
	if raw.SourceID == "" {
		return &domain.MalformedRecordError{Source: raw.Source, Reason: "missing source_id"}
	}
	return nil
}

// BuildDocument assembles a canonical document from a record envelope and
// its already-stripped body text. Attribution fields and scalar metadata
// survive; non-scalar metadata values are dropped since chunk payloads
// only carry strings.
func BuildDocument(raw *domain.RawRecord, body string) *domain.CanonicalDocument {
	md := make(map[string]string)
	if raw.URL != "" {
		md["url"] = raw.URL
	}
	if raw.Author != "" {
		md["author"] = raw.Author
	}
	if raw.CreatedAt != "" {
		md["created_at"] = raw.CreatedAt
	}
	for k, v := range raw.Metadata {
		if s, ok := scalarString(v); ok {
			md[k] = s
			continue
		}
		// Comment and reply threads are structured; they survive as JSON
		// strings so attribution is recoverable from chunk payloads.
		if k == "comments" || k == "replies" {
			if data, err := json.Marshal(v); err == nil {
				md[k] = string(data)
			}
		}
	}

	return &domain.CanonicalDocument{
		Source:     raw.Source,
		ExternalID: raw.SourceID,
		Title:      strings.TrimSpace(raw.Title),
		Body:       body,
		Metadata:   md,
		UpdatedAt:  domain.ParseTime(raw.UpdatedAt),
	}
}

// scalarString renders a JSON scalar as a string.
func scalarString(v any) (string, bool) {
	switch val := v.(type) {
	case string:
		return val, true
	case bool:
		return strconv.FormatBool(val), true
	case float64:
		// JSON numbers decode as float64; render integers without a point.
		return strconv.FormatFloat(val, 'f', -1, 64), true
	case int:
		return strconv.Itoa(val), true
	case int64:
		return strconv.FormatInt(val, 10), true
	default:
		return "", false
	}
}
