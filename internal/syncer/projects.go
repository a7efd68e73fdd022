package syncer

import (
	"encoding/json"
	"sort"

	"github.com/Makepad-fr/tada/internal/model"
	"github.com/Makepad-fr/tada/internal/store/jsonstore"
)

// Projects lists the project tags known on this device: those remembered
// when tasks were added plus those on current tasks.
func (s *Session) Projects() []string {
	seen := map[string]struct{}{}
	for _, p := range s.storedProjects() {
		seen[p] = struct{}{}
	}
	for _, p := range model.ProjectsOf(s.Tasks()) {
		seen[p] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

func (s *Session) storedProjects() []string {
	raw, ok, err := s.local.Get(jsonstore.KeyProjects)
	if err != nil || !ok {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		s.log.Warn("project list corrupt, ignoring", "err", err)
		return nil
	}
	return out
}

func (s *Session) rememberProject(name string) {
	stored := s.storedProjects()
	for _, p := range stored {
		if p == name {
			return
		}
	}
	b, err := json.Marshal(append(stored, name))
	if err != nil {
		return
	}
	if err := s.local.Set(jsonstore.KeyProjects, string(b)); err != nil {
		s.log.Warn("save projects failed", "err", err)
	}
}
