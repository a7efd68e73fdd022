package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Task is the domain model for a todo entry. Field names on the wire match what
// every device already stores, so lists written by older clients decode as-is.
type Task struct {
	ID        ID     `json:"id"`
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
	Project   string `json:"project,omitempty"`
	CreatedAt string `json:"createdAt,omitempty"`
	UpdatedAt string `json:"updatedAt,omitempty"`
}

// ErrMissingID is returned when a decoded task carries no usable id.
var ErrMissingID = errors.New("task has no id")

// Epoch is the instant missing or malformed timestamps compare as.
var Epoch = time.Unix(0, 0).UTC()

// NewTask builds a fresh, not yet completed task stamped at now.
func NewTask(text, project string, now time.Time) Task {
	ts := FormatTime(now)
	return Task{
		ID:        NewID(),
		Text:      text,
		Project:   project,
		CreatedAt: ts,
		UpdatedAt: ts,
	}
}

// Touch records a mutation at now.
func (t *Task) Touch(now time.Time) {
	t.UpdatedAt = FormatTime(now)
}

// EffectiveTime is the conflict-resolution signal: updatedAt, else createdAt, else Epoch.
func (t Task) EffectiveTime() time.Time {
	if t.UpdatedAt != "" {
		return ParseTime(t.UpdatedAt)
	}
	if t.CreatedAt != "" {
		return ParseTime(t.CreatedAt)
	}
	return Epoch
}

// Created is the display-order key.
func (t Task) Created() time.Time {
	if t.CreatedAt == "" {
		return Epoch
	}
	return ParseTime(t.CreatedAt)
}

// UnmarshalJSON decodes leniently: wrong-typed optional fields fall back to their
// zero value instead of failing the whole list.
func (t *Task) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("task: %w", err)
	}
	idRaw, ok := raw["id"]
	if !ok {
		return ErrMissingID
	}
	var out Task
	if err := out.ID.UnmarshalJSON(idRaw); err != nil {
		return err
	}
	if out.ID.IsZero() {
		return ErrMissingID
	}
	out.Text = rawString(raw["text"])
	out.Project = rawString(raw["project"])
	out.CreatedAt = rawString(raw["createdAt"])
	out.UpdatedAt = rawString(raw["updatedAt"])
	if v, ok := raw["completed"]; ok {
		_ = json.Unmarshal(v, &out.Completed)
	}
	*t = out
	return nil
}

func rawString(v json.RawMessage) string {
	if len(v) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return ""
	}
	return s
}

// DecodeList parses a JSON array of tasks. Elements that cannot be decoded into a
// task (no id, not an object) are skipped and counted in dropped. Anything that is
// not a JSON array is an error.
func DecodeList(data []byte) (tasks []Task, dropped int, err error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '[' {
		return nil, 0, fmt.Errorf("decode tasks: expected JSON array")
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(data, &elems); err != nil {
		return nil, 0, fmt.Errorf("decode tasks: %w", err)
	}
	tasks = make([]Task, 0, len(elems))
	for _, e := range elems {
		var t Task
		if err := json.Unmarshal(e, &t); err != nil {
			dropped++
			continue
		}
		tasks = append(tasks, t)
	}
	return tasks, dropped, nil
}

// EncodeList serializes tasks as a JSON array; a nil list encodes as [].
func EncodeList(tasks []Task) ([]byte, error) {
	if tasks == nil {
		tasks = []Task{}
	}
	b, err := json.Marshal(tasks)
	if err != nil {
		return nil, fmt.Errorf("encode tasks: %w", err)
	}
	return b, nil
}

// Clone returns a copy that can be mutated without touching the original.
func Clone(tasks []Task) []Task {
	if tasks == nil {
		return nil
	}
	out := make([]Task, len(tasks))
	copy(out, tasks)
	return out
}

// SortByCreatedDesc sorts newest first in place. Ties keep their current order.
func SortByCreatedDesc(tasks []Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		return tasks[i].Created().After(tasks[j].Created())
	})
}

// Index returns the position of the task with the given id, or -1.
func Index(tasks []Task, id ID) int {
	for i, t := range tasks {
		if t.ID.Equal(id) {
			return i
		}
	}
	return -1
}

// Stats counts completed and pending tasks.
func Stats(tasks []Task) (done, pending int) {
	for _, t := range tasks {
		if t.Completed {
			done++
		} else {
			pending++
		}
	}
	return
}

// ProjectsOf lists the distinct non-empty project tags, sorted.
func ProjectsOf(tasks []Task) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, t := range tasks {
		p := strings.TrimSpace(t.Project)
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
