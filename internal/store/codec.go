package store

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Reserved top-level keys. Every key starting with "_" is reserved and is
// never interpreted as a topic id.
const (
	keyMeta     = "_meta"
	keyTelegram = "_telegram"
	keyPending  = "_pending"
)

type metaSection struct {
	Version int `json:"version"`
}

type telegramSection struct {
	LastUpdateID *int64 `json:"last_update_id,omitempty"`
}

// VersionError reports a document written by a newer release.
type VersionError struct {
	Found     int
	Supported int
}

func (e *VersionError) Error() string {
	return fmt.Sprintf("document version %d is newer than supported version %d", e.Found, e.Supported)
}

type pendingSection struct {
	Quiz       *PendingSession `json:"quiz,omitempty"`
	LastClosed string          `json:"last_closed,omitempty"`
}

// MarshalJSON writes the flat layout: reserved sections plus one key per topic.
func (d *Document) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(d.Topics)+len(d.Extra)+3)
	for k, v := range d.Extra {
		out[k] = v
	}

	version := d.Version
	if version == 0 {
		version = DocumentVersion
	}
	out[keyMeta] = metaSection{Version: version}

	if d.LastUpdateID != nil {
		out[keyTelegram] = telegramSection{LastUpdateID: d.LastUpdateID}
	}
	if d.Pending != nil || d.LastClosedSession != "" {
		out[keyPending] = pendingSection{Quiz: d.Pending, LastClosed: d.LastClosedSession}
	}

	for id, ts := range d.Topics {
		if strings.HasPrefix(id, "_") {
			return nil, fmt.Errorf("topic id %q uses the reserved prefix", id)
		}
		out[id] = ts
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads the flat layout written by MarshalJSON. Documents
// without a _meta section are treated as version 1.
func (d *Document) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	doc := NewDocument()
	for key, val := range raw {
		switch {
		case key == keyMeta:
			var m metaSection
			if err := json.Unmarshal(val, &m); err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			doc.Version = m.Version
		case key == keyTelegram:
			var t telegramSection
			if err := json.Unmarshal(val, &t); err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			doc.LastUpdateID = t.LastUpdateID
		case key == keyPending:
			var p pendingSection
			if err := json.Unmarshal(val, &p); err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			doc.Pending = p.Quiz
			doc.LastClosedSession = p.LastClosed
		case strings.HasPrefix(key, "_"):
			if doc.Extra == nil {
				doc.Extra = make(map[string]json.RawMessage)
			}
			doc.Extra[key] = val
		default:
			var ts TopicState
			if err := json.Unmarshal(val, &ts); err != nil {
				return fmt.Errorf("topic %q: %w", key, err)
			}
			if ts.MasteryLevel == "" {
				ts.MasteryLevel = MasteryNovice
			}
			if ts.History == nil {
				ts.History = []string{}
			}
			doc.Topics[key] = &ts
		}
	}

	if doc.Version == 0 {
		doc.Version = DocumentVersion
	}
	if doc.Version > DocumentVersion {
		return &VersionError{Found: doc.Version, Supported: DocumentVersion}
	}
	if doc.Pending != nil && doc.Pending.Answers == nil {
		doc.Pending.Answers = make(map[int]Answer)
	}

	*d = *doc
	return nil
}

// fileVersion reads only the _meta section of the document at path.
func fileVersion(path string) (int, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}
	var head struct {
		Meta *metaSection `json:"_meta"`
	}
	if err := json.Unmarshal(data, &head); err != nil || head.Meta == nil {
		return 0, false
	}
	return head.Meta.Version, true
}
