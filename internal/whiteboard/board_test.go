package whiteboard

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rect(id string) Object {
	return Object{ID: id, Type: "rect", Origin: "u1", Props: map[string]any{"fill": "red"}}
}

func TestBoardAddKeepsInsertionOrder(t *testing.T) {
	b := NewBoard()
	require.NoError(t, b.Add(rect("a")))
	require.NoError(t, b.Add(rect("b")))
	require.NoError(t, b.Add(rect("c")))

	ids := []string{}
	for _, o := range b.Snapshot() {
		ids = append(ids, o.ID)
	}
	assert.Equal(t, []string{"a", "b", "c"}, ids)
}

func TestBoardAddDuplicateReplacesInPlace(t *testing.T) {
	b := NewBoard()
	require.NoError(t, b.Add(rect("a")))
	require.NoError(t, b.Add(rect("b")))

	replaced := rect("a")
	replaced.Props["fill"] = "blue"
	require.NoError(t, b.Add(replaced))

	snap := b.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, "a", snap[0].ID)
	assert.Equal(t, "blue", snap[0].Props["fill"])
}

func TestBoardAddRejectsMissingID(t *testing.T) {
	b := NewBoard()
	assert.ErrorIs(t, b.Add(Object{Type: "rect"}), ErrMissingID)
	assert.Equal(t, 0, b.Len())
}

func TestBoardModifyMergesProps(t *testing.T) {
	b := NewBoard()
	require.NoError(t, b.Add(rect("a")))

	assert.True(t, b.Modify("a", "", map[string]any{"left": 10.0}))
	assert.False(t, b.Modify("missing", "", map[string]any{"left": 1.0}))

	got, ok := b.Get("a")
	require.True(t, ok)
	assert.Equal(t, "red", got.Props["fill"])
	assert.Equal(t, 10.0, got.Props["left"])
	assert.Equal(t, "rect", got.Type)
}

func TestBoardSnapshotDoesNotAlias(t *testing.T) {
	b := NewBoard()
	require.NoError(t, b.Add(rect("a")))

	snap := b.Snapshot()
	snap[0].Props["fill"] = "green"

	got, _ := b.Get("a")
	assert.Equal(t, "red", got.Props["fill"])
}

func TestBoardClearThenAdd(t *testing.T) {
	b := NewBoard()
	require.NoError(t, b.Add(rect("a")))
	require.NoError(t, b.Add(rect("b")))
	b.Clear()
	require.NoError(t, b.Add(rect("c")))

	snap := b.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, "c", snap[0].ID)
}

func TestBoardApply(t *testing.T) {
	tests := []struct {
		name    string
		action  Action
		data    string
		wantErr error
		wantLen int
	}{
		{name: "add", action: ActionAdd, data: `{"id":"x","type":"path","path":"M 0 0"}`, wantLen: 2},
		{name: "add without id gets one", action: ActionAdd, data: `{"type":"path"}`, wantLen: 2},
		{name: "add without data", action: ActionAdd, wantErr: ErrMissingID, wantLen: 1},
		{name: "modify without id", action: ActionModify, data: `{"left":3}`, wantErr: ErrMissingID, wantLen: 1},
		{name: "modify unknown id is a no-op", action: ActionModify, data: `{"id":"nope","left":3}`, wantLen: 1},
		{name: "clear", action: ActionClear, wantLen: 0},
		{name: "unknown action", action: Action("erase"), data: `{}`, wantErr: ErrUnknownAction, wantLen: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBoard()
			require.NoError(t, b.Add(rect("seed")))

			_, err := b.Apply(tt.action, json.RawMessage(tt.data), "u2")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.wantLen, b.Len())
		})
	}
}

func TestBoardApplyStampsOrigin(t *testing.T) {
	b := NewBoard()
	_, err := b.Apply(ActionAdd, json.RawMessage(`{"id":"x","type":"circle","radius":4}`), "u9")
	require.NoError(t, err)

	got, ok := b.Get("x")
	require.True(t, ok)
	assert.Equal(t, "u9", got.Origin)
	assert.Equal(t, "circle", got.Type)
	assert.Equal(t, 4.0, got.Props["radius"])
}

func TestBoardApplyAssignsMissingID(t *testing.T) {
	b := NewBoard()
	out, err := b.Apply(ActionAdd, json.RawMessage(`{"type":"path","path":"M 0 0"}`), "u3")
	require.NoError(t, err)

	var relayed Object
	require.NoError(t, json.Unmarshal(out, &relayed))
	assert.True(t, strings.HasPrefix(relayed.ID, "u3-"), "id %q", relayed.ID)
	assert.Equal(t, "u3", relayed.Origin)
	assert.Equal(t, "M 0 0", relayed.Props["path"])

	got, ok := b.Get(relayed.ID)
	require.True(t, ok)
	assert.Equal(t, "path", got.Type)

	// Data that already carries an id is relayed unchanged apart from the origin stamp.
	out, err = b.Apply(ActionAdd, json.RawMessage(`{"id":"keep","type":"rect"}`), "u3")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"keep","type":"rect","origin":"u3"}`, string(out))
}

func TestObjectJSONIsFlat(t *testing.T) {
	raw, err := json.Marshal(rect("a"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"a","type":"rect","origin":"u1","fill":"red"}`, string(raw))
}

func TestNewObjectIDIsUniquePerCall(t *testing.T) {
	a := NewObjectID("u1")
	b := NewObjectID("u1")
	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasPrefix(a, "u1-"))
}

func TestSnapshotFileRoundTrip(t *testing.T) {
	snap := SnapshotFile{
		SessionID: "s1",
		SavedAt:   time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
		Objects:   []Object{rect("a"), rect("b")},
	}

	var buf bytes.Buffer
	require.NoError(t, EncodeSnapshot(&buf, snap))

	got, err := DecodeSnapshot(&buf)
	require.NoError(t, err)
	assert.Equal(t, "s1", got.SessionID)
	assert.True(t, snap.SavedAt.Equal(got.SavedAt))
	require.Len(t, got.Objects, 2)
	assert.Equal(t, "b", got.Objects[1].ID)
	assert.Equal(t, "red", got.Objects[1].Props["fill"])
}

func TestRenderFormats(t *testing.T) {
	objs := []Object{rect("a")}

	assert.Contains(t, Render(objs, FormatTable), "rect")
	assert.Contains(t, Render(objs, FormatCSV), "fill=red")
	assert.Contains(t, Render(objs, FormatMarkdown), "| 1 |")

	_, err := ParseFormat("xml")
	assert.Error(t, err)
	f, err := ParseFormat("md")
	require.NoError(t, err)
	assert.Equal(t, FormatMarkdown, f)
}
