package models

import "encoding/json"

// EncodeStrings marshals a string list for a JSON text column. Nil and empty
// lists encode as the empty string so unset columns stay empty.
func EncodeStrings(items []string) string {
	if len(items) == 0 {
		return ""
	}
	data, err := json.Marshal(items)
	if err != nil {
		return ""
	}
	return string(data)
}

// DecodeStrings unmarshals a JSON text column into a string list. Empty or
// malformed columns decode as nil.
func DecodeStrings(column string) []string {
	if column == "" {
		return nil
	}
	var items []string
	if err := json.Unmarshal([]byte(column), &items); err != nil {
		return nil
	}
	return items
}
