package form

import (
	"encoding/json"
	"fmt"
)

// UnmarshalJSON restores the concrete AnswerConfig variant, which is
// determined by the question type. Marshaling needs no counterpart: each
// variant is a plain struct.
func (q *Question) UnmarshalJSON(data []byte) error {
	type alias Question
	aux := struct {
		*alias
		Config json.RawMessage `json:"config,omitempty"`
	}{alias: (*alias)(q)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if len(aux.Config) == 0 || string(aux.Config) == "null" {
		q.Config = nil
		return nil
	}
	cfg := DefaultConfig(q.Type)
	if cfg == nil {
		return fmt.Errorf("question %d: type %q carries no config", q.ID, q.Type)
	}
	if err := json.Unmarshal(aux.Config, cfg); err != nil {
		return fmt.Errorf("question %d: config: %w", q.ID, err)
	}
	q.Config = cfg
	return nil
}
