package syncer

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/require"

	"github.com/Makepad-fr/tada/internal/model"
	"github.com/Makepad-fr/tada/internal/store/jsonstore"
)

var errOffline = errors.New("offline")

type memStore struct {
	mu   sync.Mutex
	data map[string]string
}

func newMemStore() *memStore { return &memStore{data: map[string]string{}} }

func (m *memStore) Get(key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memStore) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *memStore) tasks(t *testing.T) []model.Task {
	t.Helper()
	raw, ok, _ := m.Get(jsonstore.KeyTasks)
	if !ok {
		return nil
	}
	tasks, _, err := model.DecodeList([]byte(raw))
	require.NoError(t, err)
	return tasks
}

func (m *memStore) putTasks(t *testing.T, tasks []model.Task) {
	t.Helper()
	b, err := model.EncodeList(tasks)
	require.NoError(t, err)
	require.NoError(t, m.Set(jsonstore.KeyTasks, string(b)))
}

// gateStore parks the next read of the task list.
type gateStore struct {
	*memStore
	mu   sync.Mutex
	next *gate
}

func (g *gateStore) holdNextTaskRead() *gate {
	gt := newGate()
	g.mu.Lock()
	g.next = gt
	g.mu.Unlock()
	return gt
}

func (g *gateStore) Get(key string) (string, bool, error) {
	var hold *gate
	g.mu.Lock()
	if key == jsonstore.KeyTasks {
		hold, g.next = g.next, nil
	}
	g.mu.Unlock()
	if hold != nil {
		close(hold.entered)
		<-hold.release
	}
	return g.memStore.Get(key)
}

type pushCall struct {
	userID string
	tasks  []model.Task
}

type fakeRemote struct {
	mu       sync.Mutex
	lists    map[string][]model.Task
	fetchErr map[string]error
	pushErr  error
	fetches  []string
	pushes   []pushCall
	hold     *gate
}

// gate parks one call until release is closed.
type gate struct {
	entered chan struct{}
	release chan struct{}
}

func newGate() *gate {
	return &gate{entered: make(chan struct{}), release: make(chan struct{})}
}

// holdNextPush parks the next Push before it is recorded.
func (f *fakeRemote) holdNextPush() *gate {
	g := newGate()
	f.mu.Lock()
	f.hold = g
	f.mu.Unlock()
	return g
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{lists: map[string][]model.Task{}, fetchErr: map[string]error{}}
}

func (f *fakeRemote) Fetch(_ context.Context, userID string) ([]model.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches = append(f.fetches, userID)
	if err := f.fetchErr[userID]; err != nil {
		return nil, err
	}
	return model.Clone(f.lists[userID]), nil
}

func (f *fakeRemote) Push(_ context.Context, userID string, tasks []model.Task) error {
	f.mu.Lock()
	hold := f.hold
	f.hold = nil
	f.mu.Unlock()
	if hold != nil {
		close(hold.entered)
		<-hold.release
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.pushes = append(f.pushes, pushCall{userID: userID, tasks: model.Clone(tasks)})
	if f.pushErr != nil {
		return f.pushErr
	}
	f.lists[userID] = model.Clone(tasks)
	return nil
}

func (f *fakeRemote) set(userID string, tasks []model.Task) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists[userID] = model.Clone(tasks)
}

func (f *fakeRemote) failFetch(userID string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetchErr[userID] = err
}

func (f *fakeRemote) pushCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pushes)
}

func (f *fakeRemote) lastPush() pushCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pushes[len(f.pushes)-1]
}

func (f *fakeRemote) allPushes() []pushCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]pushCall(nil), f.pushes...)
}

func (f *fakeRemote) fetchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.fetches)
}

type fakeBeacon struct {
	mu    sync.Mutex
	sends []pushCall
}

func (b *fakeBeacon) Send(userID string, tasks []model.Task) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sends = append(b.sends, pushCall{userID: userID, tasks: tasks})
	return true
}

func (b *fakeBeacon) all() []pushCall {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]pushCall(nil), b.sends...)
}

func testOptions() Options {
	return Options{
		Debounce:       40 * time.Millisecond,
		ResyncInterval: time.Hour,
		Logger:         log.New(io.Discard),
	}
}

func mk(id, text, created, updated string) model.Task {
	return model.Task{ID: model.ParseID(id), Text: text, CreatedAt: created, UpdatedAt: updated}
}
