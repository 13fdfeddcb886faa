// Package payload defines the Fibre schema: a closed tagged union describing
// one unit of interaction (a sent message, a received message, a media
// creation event) in a simplified activity-stream vocabulary, plus its
// deterministic serialization and content hashing.
package payload

import (
	"fmt"
	"strings"
	"time"
)

// Version is the payload schema version stamped onto every thread row.
const Version = "1.0.0"

// Kind is the discriminator tag carried by every Fibre variant.
type Kind string

const (
	KindTextMessage    Kind = "TextMessage"
	KindImage          Kind = "Image"
	KindVideo          Kind = "Video"
	KindCollection     Kind = "Collection"
	KindCreate         Kind = "Create"
	KindSendMessage    Kind = "SendMessage"
	KindReceiveMessage Kind = "ReceiveMessage"
	KindFollow         Kind = "Follow"
	KindView           Kind = "View"
)

// Fibre is the closed set of payload variants. Every variant serializes
// with its kind tag under "fibreKind" and derives a non-empty preview.
// Unknown tags are rejected at decode time, so downstream code can switch
// exhaustively over Kind().
type Fibre interface {
	Kind() Kind
	// Preview returns a short human-readable description. The provider
	// display name is appended when non-empty.
	Preview(provider string) string
}

// Object is a Fibre variant that can appear as the object of a message or
// creation activity: TextMessage, Image, or Video.
type Object interface {
	Fibre
	object()
}

// Entity identifies a counterparty of an interaction: a person's profile
// or an application (e.g. a chat assistant).
type Entity struct {
	Type string `json:"type"`
	Name string `json:"name,omitempty"`
	URL  string `json:"url,omitempty"`
}

// Profile creates a person entity.
func Profile(name, url string) *Entity {
	return &Entity{Type: "Profile", Name: name, URL: url}
}

// Application creates an application entity.
func Application(name string) *Entity {
	return &Entity{Type: "Application", Name: name}
}

// Collection groups related interactions, e.g. one chat conversation.
type Collection struct {
	FibreKind Kind   `json:"fibreKind"`
	ID        string `json:"id,omitempty"`
	Name      string `json:"name,omitempty"`
}

// NewCollection creates a Collection fibre.
func NewCollection(id, name string) *Collection {
	return &Collection{FibreKind: KindCollection, ID: id, Name: name}
}

func (c *Collection) Kind() Kind { return KindCollection }

func (c *Collection) Preview(provider string) string {
	s := "collection"
	if c.Name != "" {
		s += fmt.Sprintf(" %q", c.Name)
	}
	return withProvider(s, provider)
}

// TextMessage is one textual message, optionally linked to the
// conversation it belongs to.
type TextMessage struct {
	FibreKind   Kind        `json:"fibreKind"`
	Content     string      `json:"content,omitempty"`
	Context     *Collection `json:"context,omitempty"`
	PublishedAt *time.Time  `json:"published,omitempty"`
}

// NewTextMessage creates a TextMessage fibre.
func NewTextMessage(content string, context *Collection, published *time.Time) *TextMessage {
	return &TextMessage{
		FibreKind:   KindTextMessage,
		Content:     content,
		Context:     context,
		PublishedAt: published,
	}
}

func (m *TextMessage) Kind() Kind { return KindTextMessage }
func (m *TextMessage) object()    {}

func (m *TextMessage) Preview(provider string) string {
	return withProvider(fmt.Sprintf("message %q", truncate(m.Content, 100)), provider)
}

// Image is a single image asset.
type Image struct {
	FibreKind   Kind       `json:"fibreKind"`
	URL         string     `json:"url,omitempty"`
	Name        string     `json:"name,omitempty"`
	PublishedAt *time.Time `json:"published,omitempty"`
}

// NewImage creates an Image fibre.
func NewImage(url, name string, published *time.Time) *Image {
	return &Image{FibreKind: KindImage, URL: url, Name: name, PublishedAt: published}
}

func (i *Image) Kind() Kind { return KindImage }
func (i *Image) object()    {}

func (i *Image) Preview(provider string) string {
	return withProvider("image", provider)
}

// Video is a single video asset, optionally attributed to its creator.
type Video struct {
	FibreKind    Kind       `json:"fibreKind"`
	URL          string     `json:"url,omitempty"`
	Name         string     `json:"name,omitempty"`
	AttributedTo *Entity    `json:"attributedTo,omitempty"`
	PublishedAt  *time.Time `json:"published,omitempty"`
}

// NewVideo creates a Video fibre.
func NewVideo(url, name string, published *time.Time) *Video {
	return &Video{FibreKind: KindVideo, URL: url, Name: name, PublishedAt: published}
}

func (v *Video) Kind() Kind { return KindVideo }
func (v *Video) object()    {}

func (v *Video) Preview(provider string) string {
	return withProvider("video", provider)
}

// Create records the creation of an object, e.g. posting a story or reel.
type Create struct {
	FibreKind   Kind        `json:"fibreKind"`
	Object      Object      `json:"object"`
	Target      *Collection `json:"target,omitempty"`
	PublishedAt *time.Time  `json:"published,omitempty"`
}

// NewCreate creates a Create fibre wrapping an Image or Video.
func NewCreate(obj Object, published *time.Time) *Create {
	return &Create{FibreKind: KindCreate, Object: obj, PublishedAt: published}
}

func (c *Create) Kind() Kind { return KindCreate }

func (c *Create) Preview(provider string) string {
	return withProvider(fmt.Sprintf("Posted %s", strings.ToLower(string(c.Object.Kind()))), provider)
}

// SendMessage records an outbound message from the user to a target.
type SendMessage struct {
	FibreKind   Kind       `json:"fibreKind"`
	Object      Object     `json:"object"`
	Target      *Entity    `json:"target"`
	PublishedAt *time.Time `json:"published,omitempty"`
}

// NewSendMessage creates a SendMessage fibre.
func NewSendMessage(obj Object, target *Entity, published *time.Time) *SendMessage {
	return &SendMessage{
		FibreKind:   KindSendMessage,
		Object:      obj,
		Target:      target,
		PublishedAt: published,
	}
}

func (m *SendMessage) Kind() Kind { return KindSendMessage }

func (m *SendMessage) Preview(provider string) string {
	return withProvider(
		fmt.Sprintf("Sent %s to %s", m.Object.Preview(""), m.Target.Name),
		provider,
	)
}

// ReceiveMessage records an inbound message from an actor to the user.
type ReceiveMessage struct {
	FibreKind   Kind       `json:"fibreKind"`
	Object      Object     `json:"object"`
	Actor       *Entity    `json:"actor"`
	PublishedAt *time.Time `json:"published,omitempty"`
}

// NewReceiveMessage creates a ReceiveMessage fibre.
func NewReceiveMessage(obj Object, actor *Entity, published *time.Time) *ReceiveMessage {
	return &ReceiveMessage{
		FibreKind:   KindReceiveMessage,
		Object:      obj,
		Actor:       actor,
		PublishedAt: published,
	}
}

func (m *ReceiveMessage) Kind() Kind { return KindReceiveMessage }

func (m *ReceiveMessage) Preview(provider string) string {
	return withProvider(
		fmt.Sprintf("Received %s from %s", m.Object.Preview(""), m.Actor.Name),
		provider,
	)
}

// Follow records a follow relationship. Exactly one of Object (the user
// followed someone) or Actor (someone followed the user) is set.
type Follow struct {
	FibreKind   Kind       `json:"fibreKind"`
	Object      *Entity    `json:"object,omitempty"`
	Actor       *Entity    `json:"actor,omitempty"`
	PublishedAt *time.Time `json:"published,omitempty"`
}

// NewFollow creates an outbound Follow fibre (the user followed obj).
func NewFollow(obj *Entity, published *time.Time) *Follow {
	return &Follow{FibreKind: KindFollow, Object: obj, PublishedAt: published}
}

// NewFollowedBy creates an inbound Follow fibre (actor followed the user).
func NewFollowedBy(actor *Entity, published *time.Time) *Follow {
	return &Follow{FibreKind: KindFollow, Actor: actor, PublishedAt: published}
}

func (f *Follow) Kind() Kind { return KindFollow }

// Inbound reports whether the interaction was performed by someone else
// toward the user.
func (f *Follow) Inbound() bool { return f.Actor != nil }

func (f *Follow) Preview(provider string) string {
	var s string
	if f.Actor != nil {
		s = fmt.Sprintf("Followed by %s", f.Actor.Name)
	} else {
		s = fmt.Sprintf("Followed %s", f.Object.Name)
	}
	return withProvider(s, provider)
}

// View records that the user viewed an object, e.g. a watched video.
type View struct {
	FibreKind   Kind       `json:"fibreKind"`
	Object      Object     `json:"object"`
	PublishedAt *time.Time `json:"published,omitempty"`
}

// NewView creates a View fibre.
func NewView(obj Object, published *time.Time) *View {
	return &View{FibreKind: KindView, Object: obj, PublishedAt: published}
}

func (v *View) Kind() Kind { return KindView }

func (v *View) Preview(provider string) string {
	s := "Viewed " + strings.ToLower(string(v.Object.Kind()))
	if vid, ok := v.Object.(*Video); ok {
		switch {
		case vid.Name != "":
			s += fmt.Sprintf(" %q", vid.Name)
		case vid.URL != "":
			s += " " + vid.URL
		}
		if vid.AttributedTo != nil {
			s += " by " + vid.AttributedTo.Name
		}
	}
	return withProvider(s, provider)
}

func withProvider(s, provider string) string {
	if provider == "" {
		return s
	}
	return s + " on " + provider
}

// truncate limits s to max runes, marking truncation with an ellipsis.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
