package persist

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"strings"
	"time"

	"ClassBoard/internal/state"
)

const dataURLPrefix = "data:image/png;base64,"

// Actor identifies who produced a snapshot.
type Actor struct {
	Role string
	Name string
}

type Metadata struct {
	ActorRole string    `json:"actorRole"`
	ActorName string    `json:"actorName"`
	Timestamp time.Time `json:"timestamp"`
}

// SaveRequest is the body of POST /whiteboard.
type SaveRequest struct {
	SessionID string             `json:"sessionId"`
	ImageData string             `json:"imageData"`
	Width     int                `json:"width"`
	Height    int                `json:"height"`
	TextBoxes []state.Annotation `json:"textBoxes"`
	Metadata  Metadata           `json:"metadata"`
}

// NewSaveRequest builds a payload from PNG bytes and annotations. Transient
// flags are stripped from every record.
func NewSaveRequest(sessionID string, pngData []byte, w, h int, list []state.Annotation, actor Actor, now time.Time) SaveRequest {
	boxes := make([]state.Annotation, 0, len(list))
	for _, a := range list {
		boxes = append(boxes, a.Stripped())
	}
	return SaveRequest{
		SessionID: sessionID,
		ImageData: EncodeImage(pngData),
		Width:     w,
		Height:    h,
		TextBoxes: boxes,
		Metadata: Metadata{
			ActorRole: actor.Role,
			ActorName: actor.Name,
			Timestamp: now.UTC(),
		},
	}
}

// Record is one element of the GET /whiteboard response.
type Record struct {
	ImageData string            `json:"image_data"`
	TextBoxes []json.RawMessage `json:"textBoxes"`
	CreatedAt string            `json:"created_at"`
}

// Snapshot is a decoded Record. Image is nil when the record carried no
// usable image.
type Snapshot struct {
	Image       image.Image
	Annotations []state.Annotation
	Skipped     int
	CreatedAt   time.Time
}

// EncodeImage wraps PNG bytes as a data URL.
func EncodeImage(pngData []byte) string {
	return dataURLPrefix + base64.StdEncoding.EncodeToString(pngData)
}

// DecodeImage accepts a PNG data URL or bare base64.
func DecodeImage(s string) (image.Image, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("%w: empty image data", ErrMalformedSnapshot)
	}
	if i := strings.Index(s, ","); strings.HasPrefix(s, "data:") && i >= 0 {
		s = s[i+1:]
	}
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: image base64: %v", ErrMalformedSnapshot, err)
	}
	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: image png: %v", ErrMalformedSnapshot, err)
	}
	return img, nil
}

// DecodeAnnotations restores every well-formed record and counts the rest.
func DecodeAnnotations(raw []json.RawMessage) ([]state.Annotation, int) {
	out := make([]state.Annotation, 0, len(raw))
	skipped := 0
	for _, r := range raw {
		var a state.Annotation
		if err := json.Unmarshal(r, &a); err != nil {
			skipped++
			continue
		}
		if err := a.Validate(); err != nil {
			skipped++
			continue
		}
		out = append(out, a.Stripped())
	}
	return out, skipped
}

// Decode turns a Record into a Snapshot. Bad parts are dropped individually.
func (r Record) Decode() Snapshot {
	var snap Snapshot
	if img, err := DecodeImage(r.ImageData); err == nil {
		snap.Image = img
	}
	snap.Annotations, snap.Skipped = DecodeAnnotations(r.TextBoxes)
	if t, err := time.Parse(time.RFC3339Nano, r.CreatedAt); err == nil {
		snap.CreatedAt = t
	}
	return snap
}
