package payload

import (
	"encoding/json"
	"fmt"
	"time"
)

// Decode parses a payload document into its concrete Fibre variant.
// Unknown kind tags are rejected here, at construction, never at use.
func Decode(data []byte) (Fibre, error) {
	var head struct {
		FibreKind Kind `json:"fibreKind"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}

	var f Fibre
	switch head.FibreKind {
	case KindTextMessage:
		f = &TextMessage{}
	case KindImage:
		f = &Image{}
	case KindVideo:
		f = &Video{}
	case KindCollection:
		f = &Collection{}
	case KindCreate:
		f = &Create{}
	case KindSendMessage:
		f = &SendMessage{}
	case KindReceiveMessage:
		f = &ReceiveMessage{}
	case KindFollow:
		f = &Follow{}
	case KindView:
		f = &View{}
	default:
		return nil, fmt.Errorf("decode payload: unknown fibreKind %q", head.FibreKind)
	}

	if err := json.Unmarshal(data, f); err != nil {
		return nil, fmt.Errorf("decode payload %s: %w", head.FibreKind, err)
	}
	return f, nil
}

// decodeObject parses the nested object of a message or creation activity.
// Only TextMessage, Image and Video may appear there.
func decodeObject(data []byte) (Object, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("activity object missing")
	}
	f, err := Decode(data)
	if err != nil {
		return nil, err
	}
	obj, ok := f.(Object)
	if !ok {
		return nil, fmt.Errorf("activity object must be a TextMessage, Image or Video, got %s", f.Kind())
	}
	return obj, nil
}

// UnmarshalJSON decodes the polymorphic object field by its nested kind tag.
func (c *Create) UnmarshalJSON(data []byte) error {
	var raw struct {
		FibreKind   Kind            `json:"fibreKind"`
		Object      json.RawMessage `json:"object"`
		Target      *Collection     `json:"target"`
		PublishedAt *time.Time      `json:"published"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	obj, err := decodeObject(raw.Object)
	if err != nil {
		return err
	}
	c.FibreKind = KindCreate
	c.Object = obj
	c.Target = raw.Target
	c.PublishedAt = raw.PublishedAt
	return nil
}

// UnmarshalJSON decodes the polymorphic object field by its nested kind tag.
func (m *SendMessage) UnmarshalJSON(data []byte) error {
	var raw struct {
		FibreKind   Kind            `json:"fibreKind"`
		Object      json.RawMessage `json:"object"`
		Target      *Entity         `json:"target"`
		PublishedAt *time.Time      `json:"published"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	obj, err := decodeObject(raw.Object)
	if err != nil {
		return err
	}
	if raw.Target == nil {
		return fmt.Errorf("send message target missing")
	}
	m.FibreKind = KindSendMessage
	m.Object = obj
	m.Target = raw.Target
	m.PublishedAt = raw.PublishedAt
	return nil
}

// UnmarshalJSON decodes the polymorphic object field by its nested kind tag.
func (m *ReceiveMessage) UnmarshalJSON(data []byte) error {
	var raw struct {
		FibreKind   Kind            `json:"fibreKind"`
		Object      json.RawMessage `json:"object"`
		Actor       *Entity         `json:"actor"`
		PublishedAt *time.Time      `json:"published"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	obj, err := decodeObject(raw.Object)
	if err != nil {
		return err
	}
	if raw.Actor == nil {
		return fmt.Errorf("receive message actor missing")
	}
	m.FibreKind = KindReceiveMessage
	m.Object = obj
	m.Actor = raw.Actor
	m.PublishedAt = raw.PublishedAt
	return nil
}

// UnmarshalJSON decodes the polymorphic object field by its nested kind tag.
func (v *View) UnmarshalJSON(data []byte) error {
	var raw struct {
		FibreKind   Kind            `json:"fibreKind"`
		Object      json.RawMessage `json:"object"`
		PublishedAt *time.Time      `json:"published"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	obj, err := decodeObject(raw.Object)
	if err != nil {
		return err
	}
	v.FibreKind = KindView
	v.Object = obj
	v.PublishedAt = raw.PublishedAt
	return nil
}

// UnmarshalJSON enforces that a follow names exactly one side: the entity
// followed (outbound) or the follower (inbound).
func (f *Follow) UnmarshalJSON(data []byte) error {
	type alias Follow
	var raw alias
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if (raw.Object == nil) == (raw.Actor == nil) {
		return fmt.Errorf("follow requires exactly one of object or actor")
	}
	raw.FibreKind = KindFollow
	*f = Follow(raw)
	return nil
}
