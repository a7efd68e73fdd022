package remote

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Makepad-fr/tada/internal/model"
)

func quiet() *log.Logger { return log.New(io.Discard) }

func TestFetch_DecodesAndNormalizes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/todos", r.URL.Path)
		assert.Equal(t, "a b&c", r.URL.Query().Get("userId"))
		io.WriteString(w, `[{"id":1700000000000,"text":"x"},{"text":"no id"},{"id":"u2","completed":true}]`)
	}))
	defer srv.Close()

	c := NewClient(Options{BaseURL: srv.URL + "/", Logger: quiet()})
	got, err := c.Fetch(context.Background(), "a b&c")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "1700000000000", got[0].ID.String())
	assert.Equal(t, "x", got[0].Text)
	assert.False(t, got[0].Completed)
	assert.True(t, got[1].Completed)
}

func TestFetch_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, `{"error":"KV namespace not configured"}`)
	}))
	defer srv.Close()

	_, err := NewClient(Options{BaseURL: srv.URL, Logger: quiet()}).Fetch(context.Background(), "u")
	require.Error(t, err)

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusInternalServerError, se.Code)
	assert.Contains(t, se.Body, "KV namespace")
	assert.ErrorIs(t, err, ErrStatus)
	assert.NotErrorIs(t, err, ErrUnavailable)
}

func TestFetch_NotAnArray(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"todos":[]}`)
	}))
	defer srv.Close()

	_, err := NewClient(Options{BaseURL: srv.URL, Logger: quiet()}).Fetch(context.Background(), "u")
	assert.Error(t, err)
}

func TestFetch_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewClient(Options{BaseURL: url, Logger: quiet()}).Fetch(context.Background(), "u")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestFetch_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := NewClient(Options{BaseURL: srv.URL, Timeout: 50 * time.Millisecond, Logger: quiet()})
	_, err := c.Fetch(context.Background(), "u")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestNotConfigured(t *testing.T) {
	c := NewClient(Options{Logger: quiet()})

	_, err := c.Fetch(context.Background(), "u")
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.ErrorIs(t, c.Push(context.Background(), "u", nil), ErrNotConfigured)
}

func TestPush_SendsWholeList(t *testing.T) {
	var got struct {
		UserID string            `json:"userId"`
		Todos  []json.RawMessage `json:"todos"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		io.WriteString(w, `{"success":true}`)
	}))
	defer srv.Close()

	tasks, _, err := model.DecodeList([]byte(`[{"id":42,"text":"a"},{"id":"b","text":"b"}]`))
	require.NoError(t, err)

	require.NoError(t, NewClient(Options{BaseURL: srv.URL, Logger: quiet()}).Push(context.Background(), "me", tasks))
	assert.Equal(t, "me", got.UserID)
	require.Len(t, got.Todos, 2)
	assert.Contains(t, string(got.Todos[0]), `"id":42`)
	assert.Contains(t, string(got.Todos[1]), `"id":"b"`)
}

func TestPush_EmptyListIsArray(t *testing.T) {
	var body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		body = string(b)
	}))
	defer srv.Close()

	require.NoError(t, NewClient(Options{BaseURL: srv.URL, Logger: quiet()}).Push(context.Background(), "me", nil))
	assert.JSONEq(t, `{"userId":"me","todos":[]}`, body)
}

// recordingPusher captures pushes and can be made to block.
type recordingPusher struct {
	mu     sync.Mutex
	pushes []string
	gate   chan struct{}
}

func (p *recordingPusher) Push(ctx context.Context, userID string, tasks []model.Task) error {
	if p.gate != nil {
		select {
		case <-p.gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pushes = append(p.pushes, userID)
	return nil
}

func (p *recordingPusher) got() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.pushes...)
}

func TestBeacon_QueuedInOrder(t *testing.T) {
	p := &recordingPusher{}
	b := NewBeacon(p, 4, quiet())

	assert.True(t, b.Send("a", nil))
	assert.True(t, b.Send("b", nil))
	require.NoError(t, b.Close(context.Background()))

	assert.Equal(t, []string{"a", "b"}, p.got())
}

func TestBeacon_NeverBlocksWhenFull(t *testing.T) {
	p := &recordingPusher{gate: make(chan struct{})}
	b := NewBeacon(p, 1, quiet())

	start := time.Now()
	queued := 0
	for i := 0; i < 5; i++ {
		if b.Send("u", nil) {
			queued++
		}
	}
	assert.Less(t, time.Since(start), 100*time.Millisecond)
	assert.Less(t, queued, 5, "a one-slot queue cannot hold five pushes")

	close(p.gate)
	require.NoError(t, b.Close(context.Background()))
	assert.Len(t, p.got(), 5)
}

func TestBeacon_CloseGracePeriod(t *testing.T) {
	p := &recordingPusher{gate: make(chan struct{})}
	b := NewBeacon(p, 1, quiet())
	b.Send("stuck", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, b.Close(ctx), context.DeadlineExceeded)
	assert.Empty(t, p.got())
}

func TestBeacon_SendAfterClose(t *testing.T) {
	p := &recordingPusher{}
	b := NewBeacon(p, 1, quiet())
	require.NoError(t, b.Close(context.Background()))

	assert.False(t, b.Send("late", nil))
	require.Eventually(t, func() bool { return len(p.got()) == 1 }, time.Second, 5*time.Millisecond)
}

func TestBeacon_CopiesTasks(t *testing.T) {
	var seen []model.Task
	var mu sync.Mutex
	p := pushFunc(func(_ context.Context, _ string, tasks []model.Task) error {
		mu.Lock()
		seen = tasks
		mu.Unlock()
		return nil
	})
	b := NewBeacon(p, 1, quiet())

	tasks := []model.Task{{ID: model.ParseID("1"), Text: "before"}}
	b.Send("u", tasks)
	tasks[0].Text = "after"
	require.NoError(t, b.Close(context.Background()))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, seen, 1)
	assert.Equal(t, "before", seen[0].Text)
}

type pushFunc func(ctx context.Context, userID string, tasks []model.Task) error

func (f pushFunc) Push(ctx context.Context, userID string, tasks []model.Task) error {
	return f(ctx, userID, tasks)
}
