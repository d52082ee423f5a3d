package whiteboard

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrMissingID     = errors.New("whiteboard: object has no id")
	ErrUnknownAction = errors.New("whiteboard: unknown action")
)

// Board is an ordered object list. It is not safe for concurrent use; the
// owning event loop serializes every call.
type Board struct {
	objects []Object
	index   map[string]int
}

func NewBoard() *Board {
	return &Board{index: make(map[string]int)}
}

// Add appends obj, or replaces the object with the same id in place.
func (b *Board) Add(obj Object) error {
	if obj.ID == "" {
		return ErrMissingID
	}
	obj = obj.Clone()
	if i, ok := b.index[obj.ID]; ok {
		b.objects[i] = obj
		return nil
	}
	b.index[obj.ID] = len(b.objects)
	b.objects = append(b.objects, obj)
	return nil
}

// Modify merges patch into the props of the object with the given id.
// A non-empty typ also replaces the object's type. Reports whether the id was known.
func (b *Board) Modify(id, typ string, patch map[string]any) bool {
	i, ok := b.index[id]
	if !ok {
		return false
	}
	obj := b.objects[i].Clone()
	if typ != "" {
		obj.Type = typ
	}
	if obj.Props == nil && len(patch) > 0 {
		obj.Props = make(map[string]any, len(patch))
	}
	for k, v := range patch {
		obj.Props[k] = v
	}
	b.objects[i] = obj
	return true
}

func (b *Board) Clear() {
	b.objects = nil
	b.index = make(map[string]int)
}

// Load replaces the whole board with objs, as a late joiner does on sync.
func (b *Board) Load(objs []Object) {
	b.Clear()
	for _, o := range objs {
		_ = b.Add(o)
	}
}

func (b *Board) Get(id string) (Object, bool) {
	i, ok := b.index[id]
	if !ok {
		return Object{}, false
	}
	return b.objects[i].Clone(), true
}

func (b *Board) Len() int { return len(b.objects) }

// Snapshot returns the objects in insertion order. The result never aliases the board.
func (b *Board) Snapshot() []Object {
	out := make([]Object, len(b.objects))
	for i, o := range b.objects {
		out[i] = o.Clone()
	}
	return out
}

// Apply decodes data for the given action and mutates the board. It returns
// the data as it should be relayed to other clients: an added object gets
// origin stamped when it has none, and a generated id when it has none.
func (b *Board) Apply(action Action, data json.RawMessage, origin string) (json.RawMessage, error) {
	switch action {
	case ActionClear:
		b.Clear()
		return data, nil
	case ActionAdd, ActionModify:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}

	var obj Object
	if len(data) == 0 {
		return nil, ErrMissingID
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, fmt.Errorf("whiteboard: decode %s: %w", action, err)
	}
	if action == ActionModify {
		if obj.ID == "" {
			return nil, ErrMissingID
		}
		b.Modify(obj.ID, obj.Type, obj.Props)
		return data, nil
	}

	if obj.ID == "" {
		obj.ID = NewObjectID(origin)
	}
	if obj.Origin == "" {
		obj.Origin = origin
	}
	if err := b.Add(obj); err != nil {
		return nil, err
	}
	out, err := json.Marshal(obj)
	if err != nil {
		return nil, fmt.Errorf("whiteboard: encode %s: %w", action, err)
	}
	return out, nil
}
