package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// ProductTranslationSnapshot freezes one product translation at purchase time.
type ProductTranslationSnapshot struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	LanguageID  string `json:"languageId"`
}

// TranslationSnapshots is stored as a JSON array on order items.
type TranslationSnapshots []ProductTranslationSnapshot

func (s TranslationSnapshots) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	payload, err := json.Marshal([]ProductTranslationSnapshot(s))
	if err != nil {
		return nil, err
	}
	return string(payload), nil
}

func (s *TranslationSnapshots) Scan(src any) error {
	if src == nil {
		*s = TranslationSnapshots{}
		return nil
	}
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("translation snapshots: unsupported Scan type %T", src)
	}
	return json.Unmarshal(raw, (*[]ProductTranslationSnapshot)(s))
}
