package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeList_NumericAndStringIDs(t *testing.T) {
	input := `[
		{"id": 1717171717171, "text": "legacy", "completed": true, "createdAt": "2024-05-31T16:08:37.171Z"},
		{"id": "0190a1b2-c3d4-7e5f-8a9b-0c1d2e3f4a5b", "text": "uuid", "project": "home"}
	]`

	tasks, dropped, err := DecodeList([]byte(input))
	require.NoError(t, err)
	assert.Equal(t, 0, dropped)
	require.Len(t, tasks, 2)

	assert.Equal(t, "1717171717171", tasks[0].ID.String())
	assert.True(t, tasks[0].Completed)
	assert.Equal(t, "home", tasks[1].Project)

	// numeric ids go back out as numbers
	out, err := EncodeList(tasks)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"id":1717171717171`)
	assert.Contains(t, string(out), `"id":"0190a1b2-c3d4-7e5f-8a9b-0c1d2e3f4a5b"`)
}

func TestDecodeList_NormalizesBadFields(t *testing.T) {
	input := `[
		{"id": "a", "text": 42, "completed": "yes", "updatedAt": null},
		{"text": "no id"},
		"not an object",
		{"id": null}
	]`

	tasks, dropped, err := DecodeList([]byte(input))
	require.NoError(t, err)
	assert.Equal(t, 3, dropped)
	require.Len(t, tasks, 1)
	assert.Equal(t, "a", tasks[0].ID.String())
	assert.Equal(t, "", tasks[0].Text)
	assert.False(t, tasks[0].Completed)
	assert.Equal(t, "", tasks[0].UpdatedAt)
}

func TestDecodeList_RejectsNonArray(t *testing.T) {
	for _, in := range []string{``, `{}`, `null`, `"x"`, `[1,`} {
		_, _, err := DecodeList([]byte(in))
		assert.Error(t, err, "input %q", in)
	}
}

func TestEncodeList_NilIsEmptyArray(t *testing.T) {
	out, err := EncodeList(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(out))
}

func TestEffectiveTime(t *testing.T) {
	created := "2024-01-01T00:00:00Z"
	updated := "2024-01-02T00:00:00Z"

	assert.Equal(t, ParseTime(updated), Task{CreatedAt: created, UpdatedAt: updated}.EffectiveTime())
	assert.Equal(t, ParseTime(created), Task{CreatedAt: created}.EffectiveTime())
	assert.Equal(t, Epoch, Task{}.EffectiveTime())
	assert.Equal(t, Epoch, Task{UpdatedAt: "yesterday-ish"}.EffectiveTime())
}

func TestParseTime_Layouts(t *testing.T) {
	want := time.Date(2024, 3, 4, 5, 6, 7, 0, time.UTC)
	assert.True(t, ParseTime("2024-03-04T05:06:07Z").Equal(want))
	assert.True(t, ParseTime("2024-03-04T05:06:07.000Z").Equal(want))
	assert.True(t, ParseTime("2024-03-04T06:06:07+01:00").Equal(want))
	assert.True(t, ParseTime("2024-03-04T05:06:07").Equal(want))
	assert.Equal(t, Epoch, ParseTime("garbage"))
}

func TestFormatTime_MillisecondUTC(t *testing.T) {
	ts := time.Date(2024, 3, 4, 5, 6, 7, 891_000_000, time.FixedZone("X", 3600))
	assert.Equal(t, "2024-03-04T04:06:07.891Z", FormatTime(ts))
}

func TestNewTask(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	a := NewTask("buy milk", "home", now)
	b := NewTask("buy bread", "", now)

	assert.False(t, a.ID.IsZero())
	assert.False(t, a.ID.Equal(b.ID))
	assert.Equal(t, a.CreatedAt, a.UpdatedAt)
	assert.False(t, a.Completed)

	a.Touch(now.Add(time.Hour))
	assert.Equal(t, "2024-01-01T01:00:00.000Z", a.UpdatedAt)
	assert.Equal(t, "2024-01-01T00:00:00.000Z", a.CreatedAt)
}

func TestSortByCreatedDesc_MissingLast(t *testing.T) {
	tasks := []Task{
		{ID: ParseID("old"), CreatedAt: "2024-01-01T00:00:00Z"},
		{ID: ParseID("none")},
		{ID: ParseID("new"), CreatedAt: "2024-02-01T00:00:00Z"},
	}
	SortByCreatedDesc(tasks)
	assert.Equal(t, "new", tasks[0].ID.String())
	assert.Equal(t, "old", tasks[1].ID.String())
	assert.Equal(t, "none", tasks[2].ID.String())
}

func TestIDUnmarshal_FloatNormalizes(t *testing.T) {
	var id ID
	require.NoError(t, json.Unmarshal([]byte(`1.7e12`), &id))
	assert.Equal(t, "1700000000000", id.String())
}

func TestFilterAndStats(t *testing.T) {
	tasks := []Task{
		{ID: ParseID("1"), Completed: true, Project: "work"},
		{ID: ParseID("2"), Project: "home"},
		{ID: ParseID("3"), Project: "work"},
	}

	assert.Len(t, FilterAll.Apply(tasks), 3)
	assert.Len(t, FilterActive.Apply(tasks), 2)
	assert.Len(t, FilterCompleted.Apply(tasks), 1)

	done, pending := Stats(tasks)
	assert.Equal(t, 1, done)
	assert.Equal(t, 2, pending)

	assert.Equal(t, []string{"home", "work"}, ProjectsOf(tasks))
	assert.Equal(t, 2, Index(tasks, ParseID("3")))
	assert.Equal(t, -1, Index(tasks, ParseID("9")))

	_, err := ParseFilter("done")
	assert.Error(t, err)
	f, err := ParseFilter("")
	require.NoError(t, err)
	assert.Equal(t, FilterAll, f)
}

func TestFilterCycle(t *testing.T) {
	var f Filter
	assert.Equal(t, "all", f.String())

	seen := []string{}
	for i := 0; i < 4; i++ {
		f = f.Next()
		seen = append(seen, f.String())
	}
	assert.Equal(t, []string{"active", "completed", "all", "active"}, seen)
}
