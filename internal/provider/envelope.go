package provider

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"witweb-studio/internal/models"
)

// Envelope is a decoded provider response. The provider wraps most payloads
// as {code, msg, data} but some endpoints answer with the bare payload.
type Envelope struct {
	Code    *int64
	Msg     string
	RawData json.RawMessage
	Body    json.RawMessage
	Host    string
}

// Data returns the data member when present, otherwise the whole body
func (e *Envelope) Data() json.RawMessage {
	if len(e.RawData) > 0 && !bytes.Equal(e.RawData, []byte("null")) {
		return e.RawData
	}
	return e.Body
}

// Decode unmarshals Data into v
func (e *Envelope) Decode(v interface{}) error {
	return json.Unmarshal(e.Data(), v)
}

type envelopeWire struct {
	Code json.RawMessage `json:"code"`
	Msg  json.RawMessage `json:"msg"`
	Data json.RawMessage `json:"data"`
}

func decodeEnvelope(raw []byte) (*Envelope, error) {
	raw = bytes.TrimSpace(raw)
	if !json.Valid(raw) {
		return nil, fmt.Errorf("response is not valid JSON")
	}
	env := &Envelope{Body: json.RawMessage(raw)}
	if len(raw) == 0 || raw[0] != '{' {
		return env, nil
	}

	var w envelopeWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, err
	}
	env.RawData = w.Data
	env.Msg = looseString(w.Msg)
	if code, ok := looseInt(w.Code); ok {
		env.Code = &code
	}
	return env, nil
}

func looseString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

func looseInt(raw json.RawMessage) (int64, bool) {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, false
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		if i, err := n.Int64(); err == nil {
			return i, true
		}
		if f, err := n.Float64(); err == nil {
			return int64(f), true
		}
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if i, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err == nil {
			return i, true
		}
	}
	return 0, false
}

// ExtractTaskID reads the job id from a create response. Both string and
// numeric ids are accepted, as is the task_id spelling.
func ExtractTaskID(data json.RawMessage) string {
	var m map[string]interface{}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&m); err != nil {
		return ""
	}
	for _, key := range []string{"id", "task_id"} {
		switch v := m[key].(type) {
		case string:
			if v != "" {
				return v
			}
		case json.Number:
			return v.String()
		}
	}
	return ""
}

// Result is one produced asset
type Result struct {
	URL             string `json:"url"`
	RemoveWatermark bool   `json:"removeWatermark,omitempty"`
	PID             string `json:"pid,omitempty"`
	CharacterID     string `json:"character_id,omitempty"`
}

// TaskSnapshot is the provider's current view of a job
type TaskSnapshot struct {
	ID            string            `json:"id,omitempty"`
	Status        models.TaskStatus `json:"status"`
	Progress      int               `json:"progress"`
	Results       []Result          `json:"results,omitempty"`
	FailureReason string            `json:"failure_reason,omitempty"`
	Error         string            `json:"error,omitempty"`

	// Raw is the undecoded payload, handed back to the UI as-is
	Raw json.RawMessage `json:"-"`
}

// FailureMessage picks the most specific reason a failed job carries
func (s *TaskSnapshot) FailureMessage() string {
	if s.Error != "" {
		return s.Error
	}
	if s.FailureReason != "" {
		return s.FailureReason
	}
	return "task failed"
}

// FirstURL returns the first non-empty result url
func (s *TaskSnapshot) FirstURL() (Result, bool) {
	for _, r := range s.Results {
		if r.URL != "" {
			return r, true
		}
	}
	return Result{}, false
}

// UnmarshalJSON accepts numeric or fractional progress and loosely typed
// result fields.
func (s *TaskSnapshot) UnmarshalJSON(b []byte) error {
	var w struct {
		ID       json.RawMessage `json:"id"`
		Status   string          `json:"status"`
		Progress json.RawMessage `json:"progress"`
		Results  []struct {
			URL             string          `json:"url"`
			RemoveWatermark bool            `json:"removeWatermark"`
			PID             json.RawMessage `json:"pid"`
			CharacterID     json.RawMessage `json:"character_id"`
		} `json:"results"`
		FailureReason json.RawMessage `json:"failure_reason"`
		Error         json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}

	s.ID = nullableString(w.ID)
	s.Status = models.TaskStatus(strings.ToLower(strings.TrimSpace(w.Status)))
	if p, ok := looseInt(w.Progress); ok {
		s.Progress = int(p)
	}
	s.Results = s.Results[:0]
	for _, r := range w.Results {
		s.Results = append(s.Results, Result{
			URL:             r.URL,
			RemoveWatermark: r.RemoveWatermark,
			PID:             nullableString(r.PID),
			CharacterID:     nullableString(r.CharacterID),
		})
	}
	s.FailureReason = nullableString(w.FailureReason)
	s.Error = nullableString(w.Error)
	s.Raw = append(json.RawMessage(nil), b...)
	return nil
}

func nullableString(raw json.RawMessage) string {
	if bytes.Equal(raw, []byte("null")) {
		return ""
	}
	return looseString(raw)
}
