package models

import (
	"encoding/json"
	"strings"
	"time"
)

const (
	CompactLayout = "20060102_150405.000000"
	DisplayLayout = "2006-01-02 15:04:05"
)

type Slot string

const (
	SlotWord    Slot = "word"
	SlotDrawing Slot = "drawing"
	SlotImage   Slot = "image"
	SlotAudio   Slot = "audio"
)

// MediaRef points at staged media. Exactly one of Data (base64) or URL is set.
type MediaRef struct {
	Name     string `json:"name"`
	MimeType string `json:"type"`
	Data     string `json:"data,omitempty"`
	URL      string `json:"url,omitempty"`
}

func (m *MediaRef) Inline() bool {
	return m != nil && m.Data != ""
}

type Content struct {
	Word    string    `json:"word,omitempty"`
	Image   *MediaRef `json:"image,omitempty"`
	Drawing *MediaRef `json:"drawing,omitempty"`
	Audio   *MediaRef `json:"audio,omitempty"`
}

func (c Content) HasWord() bool {
	return strings.TrimSpace(c.Word) != ""
}

func (c Content) Empty() bool {
	return !c.HasWord() && c.Image == nil && c.Drawing == nil && c.Audio == nil
}

func (c Content) Media(slot Slot) *MediaRef {
	switch slot {
	case SlotImage:
		return c.Image
	case SlotDrawing:
		return c.Drawing
	case SlotAudio:
		return c.Audio
	}
	return nil
}

func (c *Content) SetMedia(slot Slot, ref *MediaRef) {
	switch slot {
	case SlotImage:
		c.Image = ref
	case SlotDrawing:
		c.Drawing = ref
	case SlotAudio:
		c.Audio = ref
	}
}

// Post is immutable once committed.
type Post struct {
	ID               string  `db:"id" json:"id"`
	CreatedAtCompact string  `db:"timestamp" json:"timestamp"`
	CreatedAtDisplay string  `db:"datetime" json:"datetime"`
	Content          Content `db:"content" json:"content"`
}

func NewPost(id string, content Content, now time.Time) Post {
	return Post{
		ID:               id,
		CreatedAtCompact: now.Format(CompactLayout),
		CreatedAtDisplay: now.Format(DisplayLayout),
		Content:          content,
	}
}

func (c Content) Marshal() (string, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func UnmarshalContent(raw string) (Content, error) {
	var c Content
	err := json.Unmarshal([]byte(raw), &c)
	return c, err
}
