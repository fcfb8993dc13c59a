package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// StringArray stores a string list as a JSON column. Rows written before the
// column held JSON may carry a bare value; those scan as a one-element list.
type StringArray []string

func (a StringArray) Value() (driver.Value, error) {
	if a == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(a))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (a *StringArray) Scan(value interface{}) error {
	if a == nil {
		return fmt.Errorf("models.StringArray: Scan on nil pointer")
	}
	*a = []string{}
	raw, err := scanJSONText(value, "models.StringArray")
	if err != nil || raw == "" {
		return err
	}

	var arr []string
	if json.Unmarshal([]byte(raw), &arr) == nil {
		*a = arr
		return nil
	}

	var single string
	if json.Unmarshal([]byte(raw), &single) == nil {
		if single != "" {
			*a = []string{single}
		}
		return nil
	}
	*a = []string{raw}
	return nil
}
