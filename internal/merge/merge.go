// Package merge reconciles two copies of a task list by identity and recency.
//
// Merge is a union: a task missing from one side is kept from the other, so
// deletions only propagate when the deleting device pushes a list without them.
// On an id collision the copy with the later effective time wins and the remote
// copy wins ties, which makes Merge idempotent for a fixed remote:
//
//	Merge(Merge(l, r), r) == Merge(l, r)
package merge

import "github.com/Makepad-fr/tada/internal/model"

// Merge combines local and remote into a new list sorted by creation time,
// newest first. Neither input is modified.
//
// When local is empty the remote list is returned sorted; when remote is empty
// the local list is returned in its existing order.
func Merge(local, remote []model.Task) []model.Task {
	if len(local) == 0 {
		out := model.Clone(remote)
		model.SortByCreatedDesc(out)
		return out
	}
	if len(remote) == 0 {
		return model.Clone(local)
	}

	byID := make(map[string]int, len(local)+len(remote))
	out := make([]model.Task, 0, len(local)+len(remote))
	for _, t := range local {
		if i, ok := byID[t.ID.String()]; ok {
			out[i] = t
			continue
		}
		byID[t.ID.String()] = len(out)
		out = append(out, t)
	}

	for _, rt := range remote {
		i, ok := byID[rt.ID.String()]
		if !ok {
			byID[rt.ID.String()] = len(out)
			out = append(out, rt)
			continue
		}
		if !rt.EffectiveTime().Before(out[i].EffectiveTime()) {
			out[i] = rt
		}
	}

	model.SortByCreatedDesc(out)
	return out
}
