// Package syncer keeps the on-device task list and the remote copy eventually
// consistent.
//
// A Session owns the in-memory list. Every mutation is written to the local
// store at once and pushed to the remote after a quiet period; loads and a
// periodic resync fetch the remote list and fold it in with merge.Merge.
// Network failures never surface as fatal: a failed fetch drops the session
// into local-only mode until a later fetch succeeds.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/Makepad-fr/tada/internal/merge"
	"github.com/Makepad-fr/tada/internal/model"
	"github.com/Makepad-fr/tada/internal/store/jsonstore"
)

// DefaultUserID is the sync identity every device shares unless configured.
const DefaultUserID = "my_todos_user"

const (
	DefaultDebounce       = 2 * time.Second
	DefaultResyncInterval = 30 * time.Second
)

var (
	ErrEmptyText = errors.New("task text is empty")
	ErrNotFound  = errors.New("task not found")
)

// LocalStore is durable on-device string storage.
type LocalStore interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
}

// Remote is the sync endpoint.
type Remote interface {
	Fetch(ctx context.Context, userID string) ([]model.Task, error)
	Push(ctx context.Context, userID string, tasks []model.Task) error
}

// Beacon sends a push without making the caller wait.
type Beacon interface {
	Send(userID string, tasks []model.Task) bool
}

// SuspendReason says why the session is being flushed.
type SuspendReason int

const (
	// SuspendHidden is a visibility loss; the session keeps running.
	SuspendHidden SuspendReason = iota
	// SuspendUnload is teardown; periodic resync stops too.
	SuspendUnload
)

func (r SuspendReason) String() string {
	if r == SuspendUnload {
		return "unload"
	}
	return "hidden"
}

type Options struct {
	// UserID is the canonical sync identity. Defaults to DefaultUserID.
	UserID string
	// Offline disables every remote call.
	Offline        bool
	Debounce       time.Duration
	ResyncInterval time.Duration
	// ResyncOffline keeps the periodic loop probing the remote after a
	// failed fetch, so sync comes back by itself.
	ResyncOffline bool
	Beacon        Beacon
	OnChange      func([]model.Task)
	Logger        *log.Logger
	Now           func() time.Time
}

// Session is the sync orchestrator for one device.
type Session struct {
	local  LocalStore
	remote Remote
	opts   Options
	log    *log.Logger
	now    func() time.Time

	debounce *Debouncer
	pushMu   sync.Mutex

	mu       sync.Mutex
	tasks    []model.Task
	userID   string
	enabled  bool
	closed   bool
	lastSync time.Time
	stopLoop context.CancelFunc
	loopDone chan struct{}
}

func New(local LocalStore, remote Remote, opts Options) *Session {
	if opts.UserID == "" {
		opts.UserID = DefaultUserID
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.ResyncInterval <= 0 {
		opts.ResyncInterval = DefaultResyncInterval
	}
	if opts.Logger == nil {
		opts.Logger = log.Default().WithPrefix("sync")
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if remote == nil {
		opts.Offline = true
	}

	s := &Session{
		local:  local,
		remote: remote,
		opts:   opts,
		log:    opts.Logger,
		now:    opts.Now,
		userID: opts.UserID,
	}
	s.debounce = NewDebouncer(opts.Debounce, s.debouncedPush)
	return s
}

// Start migrates a legacy identity, loads and syncs, then begins periodic
// resync until ctx is done or the session is closed. A failed fetch is logged,
// not returned.
func (s *Session) Start(ctx context.Context) error {
	s.loadLocal()
	if !s.opts.Offline {
		if err := s.Migrate(ctx); err != nil {
			s.log.Warn("identity migration deferred", "err", err)
		}
	}
	if err := s.LoadAndSync(ctx); err != nil {
		s.log.Warn("sync unavailable, working locally", "err", err)
	}
	if s.opts.Offline {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.stopLoop != nil {
		return nil
	}
	loopCtx, cancel := context.WithCancel(ctx)
	s.stopLoop = cancel
	s.loopDone = make(chan struct{})
	go s.resyncLoop(loopCtx, s.loopDone)
	return nil
}

// LoadAndSync renders the local list, then fetches the remote one and folds it
// in. The returned error is informational; the session stays usable in
// local-only mode.
func (s *Session) LoadAndSync(ctx context.Context) error {
	s.loadLocal()
	s.emit()

	if s.opts.Offline {
		return nil
	}

	userID := s.UserID()
	remote, err := s.remote.Fetch(ctx, userID)
	if err != nil {
		s.mu.Lock()
		s.enabled = false
		s.mu.Unlock()
		return fmt.Errorf("fetch %s: %w", userID, err)
	}

	s.mu.Lock()
	if len(remote) > 0 {
		s.tasks = merge.Merge(s.tasks, remote)
	}
	s.enabled = true
	s.lastSync = s.now()
	perr := s.persistLocked()
	n := len(s.tasks)
	s.mu.Unlock()

	s.log.Debug("synced", "user", userID, "remote", len(remote), "tasks", n)
	if perr != nil {
		s.log.Error("persist failed", "err", perr)
	}
	s.emit()
	return nil
}

// Flush cancels a pending debounced push and pushes the current list now.
func (s *Session) Flush(ctx context.Context) error {
	s.debounce.Cancel()
	return s.push(ctx)
}

// Suspend persists and pushes without blocking. Unload also stops the
// periodic loop and future debounced pushes.
func (s *Session) Suspend(reason SuspendReason) {
	s.debounce.Cancel()

	s.mu.Lock()
	if err := s.persistLocked(); err != nil {
		s.log.Error("persist failed", "err", err)
	}
	var stop context.CancelFunc
	if reason == SuspendUnload {
		s.closed = true
		stop = s.stopLoop
	}
	send := s.enabled && len(s.tasks) > 0
	snapshot := s.pushSnapshotLocked()
	userID := s.userID
	s.mu.Unlock()

	if stop != nil {
		stop()
	}
	if !send {
		return
	}

	s.log.Debug("flush on suspend", "reason", reason, "tasks", len(snapshot))
	if s.opts.Beacon != nil {
		s.opts.Beacon.Send(userID, snapshot)
		return
	}
	go func() {
		if err := s.remote.Push(context.Background(), userID, snapshot); err != nil {
			s.log.Warn("suspend push failed", "err", err)
		}
	}()
}

// Close flushes on unload and waits for the resync loop to exit.
func (s *Session) Close() error {
	s.Suspend(SuspendUnload)
	s.mu.Lock()
	done := s.loopDone
	s.mu.Unlock()
	if done != nil {
		<-done
	}
	return nil
}

// Tasks returns a copy of the current list.
func (s *Session) Tasks() []model.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return model.Clone(s.tasks)
}

// Enabled reports whether the last fetch succeeded.
func (s *Session) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled
}

// LastSync is the time of the last successful fetch.
func (s *Session) LastSync() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSync
}

// PushPending reports whether local changes are waiting for the debounced push.
func (s *Session) PushPending() bool { return s.debounce.Pending() }

func (s *Session) UserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID
}

// Add creates a task at the top of the list.
func (s *Session) Add(text, project string) (model.Task, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return model.Task{}, ErrEmptyText
	}
	t := model.NewTask(text, strings.TrimSpace(project), s.now())

	err := s.mutate(func(tasks []model.Task) ([]model.Task, error) {
		return append([]model.Task{t}, tasks...), nil
	})
	if err == nil && t.Project != "" {
		s.rememberProject(t.Project)
	}
	return t, err
}

// Toggle flips completion.
func (s *Session) Toggle(id model.ID) error {
	return s.mutate(func(tasks []model.Task) ([]model.Task, error) {
		i := model.Index(tasks, id)
		if i < 0 {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		tasks[i].Completed = !tasks[i].Completed
		tasks[i].Touch(s.now())
		return tasks, nil
	})
}

// Edit replaces a task's text.
func (s *Session) Edit(id model.ID, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyText
	}
	return s.mutate(func(tasks []model.Task) ([]model.Task, error) {
		i := model.Index(tasks, id)
		if i < 0 {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		if tasks[i].Text == text {
			return tasks, nil
		}
		tasks[i].Text = text
		tasks[i].Touch(s.now())
		return tasks, nil
	})
}

// Delete removes a task. Other devices only see the deletion once this
// device pushes.
func (s *Session) Delete(id model.ID) error {
	return s.mutate(func(tasks []model.Task) ([]model.Task, error) {
		i := model.Index(tasks, id)
		if i < 0 {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return append(tasks[:i], tasks[i+1:]...), nil
	})
}

// Restore puts back a task removed earlier, e.g. by an undo. It is stamped as
// changed so the restore beats the deletion on other devices.
func (s *Session) Restore(t model.Task) error {
	if t.ID.IsZero() {
		return model.ErrMissingID
	}
	return s.mutate(func(tasks []model.Task) ([]model.Task, error) {
		if i := model.Index(tasks, t.ID); i >= 0 {
			return tasks, nil
		}
		t.Touch(s.now())
		tasks = append(tasks, t)
		model.SortByCreatedDesc(tasks)
		return tasks, nil
	})
}

// ClearCompleted removes every completed task and reports how many went.
func (s *Session) ClearCompleted() (int, error) {
	removed := 0
	err := s.mutate(func(tasks []model.Task) ([]model.Task, error) {
		kept := tasks[:0]
		for _, t := range tasks {
			if t.Completed {
				removed++
				continue
			}
			kept = append(kept, t)
		}
		return kept, nil
	})
	return removed, err
}

// mutate applies fn to a private copy, installs the result and schedules a save.
func (s *Session) mutate(fn func([]model.Task) ([]model.Task, error)) error {
	s.mu.Lock()
	next, err := fn(model.Clone(s.tasks))
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.tasks = next
	s.mu.Unlock()

	err = s.scheduleSave()
	s.emit()
	return err
}

// scheduleSave writes through to the local store and, when syncing, restarts
// the push countdown.
func (s *Session) scheduleSave() error {
	s.mu.Lock()
	err := s.persistLocked()
	arm := s.enabled && !s.closed && !s.opts.Offline
	s.mu.Unlock()

	if arm {
		s.debounce.Trigger()
	}
	if err != nil {
		return fmt.Errorf("save local: %w", err)
	}
	return nil
}

func (s *Session) debouncedPush() {
	if err := s.push(context.Background()); err != nil {
		s.log.Warn("push failed", "err", err)
	}
}

// push snapshots under pushMu so pushes leave in snapshot order.
func (s *Session) push(ctx context.Context) error {
	s.pushMu.Lock()
	defer s.pushMu.Unlock()

	s.mu.Lock()
	if !s.enabled || s.opts.Offline {
		s.mu.Unlock()
		return nil
	}
	snapshot := s.pushSnapshotLocked()
	userID := s.userID
	s.mu.Unlock()

	if err := s.remote.Push(ctx, userID, snapshot); err != nil {
		return fmt.Errorf("push %s: %w", userID, err)
	}
	s.log.Debug("pushed", "user", userID, "tasks", len(snapshot))
	return nil
}

// pushSnapshotLocked copies the list, stamping tasks that never recorded an
// update so other devices have something to compare against.
func (s *Session) pushSnapshotLocked() []model.Task {
	out := model.Clone(s.tasks)
	if out == nil {
		out = []model.Task{}
	}
	for i := range out {
		if out[i].UpdatedAt == "" {
			out[i].Touch(s.now())
		}
	}
	return out
}

func (s *Session) resyncLoop(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.opts.ResyncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if !s.Enabled() && !s.opts.ResyncOffline {
			continue
		}
		if err := s.LoadAndSync(ctx); err != nil && ctx.Err() == nil {
			s.log.Warn("periodic sync failed", "err", err)
		}
	}
}

// loadLocal reads under mu, so a concurrent mutation either lands before the
// read (and is on disk) or after the install.
func (s *Session) loadLocal() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = s.readLocal()
}

// readLocal treats missing or unreadable data as an empty list.
func (s *Session) readLocal() []model.Task {
	raw, ok, err := s.local.Get(jsonstore.KeyTasks)
	if err != nil {
		s.log.Warn("local store unreadable, starting empty", "err", err)
		return nil
	}
	if !ok || raw == "" {
		return nil
	}
	tasks, dropped, err := model.DecodeList([]byte(raw))
	if err != nil {
		s.log.Warn("local tasks corrupt, starting empty", "err", err)
		return nil
	}
	if dropped > 0 {
		s.log.Warn("dropped malformed local tasks", "count", dropped)
	}
	return tasks
}

func (s *Session) persistLocked() error {
	b, err := model.EncodeList(s.tasks)
	if err != nil {
		return err
	}
	return s.local.Set(jsonstore.KeyTasks, string(b))
}

func (s *Session) emit() {
	if s.opts.OnChange == nil {
		return
	}
	s.opts.OnChange(s.Tasks())
}
