package storycontent

import (
	"time"

	"github.com/google/uuid"
)

// MintContentID returns a fresh time-ordered content id.
func MintContentID() string {
	id, err := uuid.NewV7()
	if err != nil {
		// NewV7 only fails when the random source is exhausted; fall back to
		// a random id rather than failing element creation.
		return uuid.New().String()
	}
	return id.String()
}

// GenerateElement produces the canonical, fully-defaulted record for an
// element from a partial client payload. It never fails: optional fields
// default to their zero values, ContentID passes through unchanged, and
// Created defaults to now when absent.
//
// Updated is set equal to Created, not to now. Downstream callers that want a
// real modification time must overwrite it after generation.
func GenerateElement(el Element, now time.Time) Element {
	switch in := el.(type) {
	case *TextElement:
		out := *in
		out.Type = KindText
		out.ElementCommon = generateCommon(in.ElementCommon, now)
		return &out
	case *ImageElement:
		out := *in
		out.Type = KindImage
		out.ElementCommon = generateCommon(in.ElementCommon, now)
		return &out
	case *GalleryElement:
		out := *in
		out.Type = KindGallery
		out.ElementCommon = generateCommon(in.ElementCommon, now)
		out.Sections = cloneSections(in.Sections)
		return &out
	case *AudioElement:
		out := *in
		out.Type = KindAudio
		out.ElementCommon = generateCommon(in.ElementCommon, now)
		return &out
	case *VideoElement:
		out := *in
		out.Type = KindVideo
		out.ElementCommon = generateCommon(in.ElementCommon, now)
		return &out
	case *GifElement:
		out := *in
		out.Type = KindGif
		out.ElementCommon = generateCommon(in.ElementCommon, now)
		return &out
	case *RecordingElement:
		out := *in
		out.Type = KindRecording
		out.ElementCommon = generateCommon(in.ElementCommon, now)
		return &out
	default:
		return el
	}
}

func generateCommon(c ElementCommon, now time.Time) ElementCommon {
	if c.Created.IsZero() {
		c.Created = now
	}
	c.Updated = c.Created
	return c
}

func cloneSections(sections []GallerySection) []GallerySection {
	if sections == nil {
		return nil
	}
	out := make([]GallerySection, len(sections))
	for i, s := range sections {
		out[i] = s
		out[i].Images = append([]GalleryImage(nil), s.Images...)
	}
	return out
}
