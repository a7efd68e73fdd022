package syncer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Makepad-fr/tada/internal/merge"
	"github.com/Makepad-fr/tada/internal/store/jsonstore"
)

// ErrMigrationDeferred means neither identity could be fetched; the legacy id
// is kept so the next start tries again.
var ErrMigrationDeferred = errors.New("identity migration deferred")

// LegacyIdentity returns the identity recorded on this device, if any.
func LegacyIdentity(local LocalStore) (string, bool, error) {
	v, ok, err := local.Get(jsonstore.KeyUserID)
	if err != nil {
		return "", false, fmt.Errorf("read identity: %w", err)
	}
	v = strings.TrimSpace(v)
	return v, ok && v != "", nil
}

// Migrate folds the list stored under a legacy identity into the canonical
// one. Both lists are fetched (a failed fetch counts as empty), merged with the
// canonical side winning ties, pushed under the canonical id and adopted
// locally. The canonical id is then recorded.
func (s *Session) Migrate(ctx context.Context) error {
	canonical := s.UserID()

	legacy, ok, err := LegacyIdentity(s.local)
	if err != nil {
		return err
	}
	if !ok || legacy == canonical {
		return s.recordIdentity(canonical)
	}

	s.log.Info("migrating identity", "from", legacy, "to", canonical)

	oldTasks, oldErr := s.remote.Fetch(ctx, legacy)
	newTasks, newErr := s.remote.Fetch(ctx, canonical)
	if oldErr != nil && newErr != nil {
		return fmt.Errorf("%w: %v", ErrMigrationDeferred, errors.Join(oldErr, newErr))
	}
	if oldErr != nil {
		s.log.Warn("legacy list unavailable", "user", legacy, "err", oldErr)
	}
	if newErr != nil {
		s.log.Warn("canonical list unavailable", "user", canonical, "err", newErr)
	}

	if len(oldTasks) == 0 && len(newTasks) == 0 {
		s.log.Info("nothing to migrate")
		return s.recordIdentity(canonical)
	}

	migrated := merge.Merge(oldTasks, newTasks)

	pushErr := s.remote.Push(ctx, canonical, migrated)
	if pushErr != nil {
		s.log.Warn("migration push failed, will retry", "err", pushErr)
	}

	s.mu.Lock()
	s.tasks = merge.Merge(s.tasks, migrated)
	perr := s.persistLocked()
	n := len(s.tasks)
	s.mu.Unlock()
	if perr != nil {
		return fmt.Errorf("save local: %w", perr)
	}
	s.emit()

	if pushErr != nil {
		return fmt.Errorf("%w: %v", ErrMigrationDeferred, pushErr)
	}
	s.log.Info("identity migrated", "tasks", n)
	return s.recordIdentity(canonical)
}

func (s *Session) recordIdentity(id string) error {
	cur, _, err := LegacyIdentity(s.local)
	if err == nil && cur == id {
		return nil
	}
	if err := s.local.Set(jsonstore.KeyUserID, id); err != nil {
		return fmt.Errorf("save identity: %w", err)
	}
	return nil
}
