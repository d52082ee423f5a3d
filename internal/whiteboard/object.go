package whiteboard

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// Action is a whiteboard mutation kind.
type Action string

const (
	ActionAdd    Action = "add"
	ActionModify Action = "modify"
	ActionClear  Action = "clear"
)

// Object is one drawing on the canvas. On the wire it is a flat JSON object:
// id, type and origin are lifted out, every other key is kept in Props.
type Object struct {
	ID     string         `msgpack:"id"`
	Type   string         `msgpack:"type,omitempty"`
	Origin string         `msgpack:"origin,omitempty"`
	Props  map[string]any `msgpack:"props,omitempty"`
}

func (o Object) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(o.Props)+3)
	for k, v := range o.Props {
		m[k] = v
	}
	m["id"] = o.ID
	if o.Type != "" {
		m["type"] = o.Type
	}
	if o.Origin != "" {
		m["origin"] = o.Origin
	}
	return json.Marshal(m)
}

func (o *Object) UnmarshalJSON(data []byte) error {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	*o = Object{Props: make(map[string]any, len(m))}
	for k, v := range m {
		switch k {
		case "id":
			o.ID = asString(v)
		case "type":
			o.Type = asString(v)
		case "origin":
			o.Origin = asString(v)
		default:
			o.Props[k] = v
		}
	}
	return nil
}

func asString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case nil:
		return ""
	default:
		return fmt.Sprint(s)
	}
}

// Clone returns a copy whose Props map is not shared with o.
func (o Object) Clone() Object {
	c := o
	if o.Props != nil {
		c.Props = make(map[string]any, len(o.Props))
		for k, v := range o.Props {
			c.Props[k] = v
		}
	}
	return c
}

// NewObjectID returns an id unique per origin: <origin>-<unix millis>-<random hex>.
func NewObjectID(origin string) string {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		// crypto/rand never fails on supported platforms
		panic(err)
	}
	return fmt.Sprintf("%s-%d-%s", origin, time.Now().UnixMilli(), hex.EncodeToString(b[:]))
}
