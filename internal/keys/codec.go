package keys

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// EncodeSnapshot renders snap in the persisted JSON layout.
func EncodeSnapshot(snap Snapshot) ([]byte, error) {
	if snap == nil {
		snap = Snapshot{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snap); err != nil {
		return nil, fmt.Errorf("keys: encode snapshot: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeSnapshot parses the persisted JSON layout. Empty input yields an
// empty snapshot. Only a document that is not a JSON object fails; a record
// or field of the wrong shape decodes as unset and leaves the record
// incomplete.
func DecodeSnapshot(data []byte) (Snapshot, error) {
	snap := Snapshot{}
	if len(bytes.TrimSpace(data)) == 0 {
		return snap, nil
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return Snapshot{}, fmt.Errorf("keys: decode snapshot: %w", err)
	}
	for userID, msg := range raw {
		snap[userID] = decodeRecord(msg)
	}
	return snap, nil
}

func decodeRecord(msg json.RawMessage) Record {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(msg, &fields); err != nil {
		return Record{}
	}
	var rec Record
	if s, ok := stringField(fields, "key"); ok {
		rec.Key = s
	}
	if s, ok := stringField(fields, "expiration_date"); ok {
		_ = rec.ExpirationDate.UnmarshalText([]byte(s))
	}
	if v, present := fields["reissue_status"]; present {
		s, ok := stringField(fields, "reissue_status")
		switch {
		case ok:
			rec.ReissueStatus, _ = ParseStatus(s)
		case string(bytes.TrimSpace(v)) == "null":
			rec.ReissueStatus = StatusAllowed
		default:
			rec.ReissueStatus = StatusForbidden
		}
	}
	return rec
}

func stringField(fields map[string]json.RawMessage, name string) (string, bool) {
	v, ok := fields[name]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return "", false
	}
	return s, true
}
