package pos

import "encoding/json"

// NormalizeNotes decodes the notes column. Current rows hold a JSON array of
// strings; rows written by older builds hold a bare JSON string (sometimes
// with embedded newlines from an even older join-on-save). Both shapes come
// back as a flat list so nothing downstream has to care.
func NormalizeNotes(raw []byte) []string {
	if len(raw) == 0 {
		return nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list
	}
	var one string
	if err := json.Unmarshal(raw, &one); err == nil {
		if one == "" {
			return nil
		}
		return splitLegacyNote(one)
	}
	return nil
}

func splitLegacyNote(s string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == '\n' {
			if line := s[start:i]; line != "" {
				out = append(out, line)
			}
			start = i + 1
		}
	}
	return out
}

// MarshalNotes is the write-side counterpart; always the list shape.
func MarshalNotes(notes []string) []byte {
	if len(notes) == 0 {
		return []byte("[]")
	}
	b, err := json.Marshal(notes)
	if err != nil {
		return []byte("[]")
	}
	return b
}
