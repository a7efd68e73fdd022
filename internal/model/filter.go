package model

import "fmt"

// Filter selects which tasks a view shows.
type Filter string

const (
	FilterAll       Filter = "all"
	FilterActive    Filter = "active"
	FilterCompleted Filter = "completed"
)

// ParseFilter accepts the three view names; empty means all.
func ParseFilter(s string) (Filter, error) {
	switch Filter(s) {
	case "", FilterAll:
		return FilterAll, nil
	case FilterActive, FilterCompleted:
		return Filter(s), nil
	}
	return "", fmt.Errorf("unknown filter %q (want all, active or completed)", s)
}

func (f Filter) String() string {
	if f == "" {
		return string(FilterAll)
	}
	return string(f)
}

// Next cycles all -> active -> completed -> all.
func (f Filter) Next() Filter {
	switch f {
	case FilterActive:
		return FilterCompleted
	case FilterCompleted:
		return FilterAll
	}
	return FilterActive
}

// Apply returns the tasks visible under f, preserving order.
func (f Filter) Apply(tasks []Task) []Task {
	if f == FilterAll || f == "" {
		return tasks
	}
	out := make([]Task, 0, len(tasks))
	for _, t := range tasks {
		if (f == FilterCompleted) == t.Completed {
			out = append(out, t)
		}
	}
	return out
}

// EmptyMessage is what a view shows when nothing matches.
func (f Filter) EmptyMessage() string {
	switch f {
	case FilterActive:
		return "no active items"
	case FilterCompleted:
		return "no completed items"
	}
	return "no items yet, add the first one"
}
