package storycontent

import (
	"encoding/json"
	"fmt"
)

// ElementList is an ordered content array. Order is meaningful for client
// rendering and is preserved verbatim through (de)serialization.
type ElementList []Element

// UnknownElement preserves an element whose type matches no known kind. The
// raw payload is kept byte-for-byte so legacy records round-trip unchanged;
// the reconciliation engine drops unknown kinds from its output.
type UnknownElement struct {
	Type ElementKind `json:"type"`
	ElementCommon
	Raw json.RawMessage `json:"-"`
}

func (e *UnknownElement) Kind() ElementKind { return e.Type }

// StorageKeys returns nil; unknown elements are cleaned up through the
// generic key walk instead (see ExtractStorageKeys).
func (e *UnknownElement) StorageKeys() []string { return nil }

func (e *UnknownElement) MarshalJSON() ([]byte, error) {
	if len(e.Raw) > 0 {
		return e.Raw, nil
	}
	type alias UnknownElement
	return json.Marshal((*alias)(e))
}

type elementEnvelope struct {
	Type ElementKind `json:"type"`
}

// UnmarshalElement decodes a single content element, dispatching on its
// "type" discriminator. Unrecognized types decode into UnknownElement.
func UnmarshalElement(data []byte) (Element, error) {
	var env elementEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to decode element envelope: %w", err)
	}

	var el Element
	switch env.Type {
	case KindText:
		el = &TextElement{}
	case KindImage:
		el = &ImageElement{}
	case KindGallery:
		el = &GalleryElement{}
	case KindAudio:
		el = &AudioElement{}
	case KindVideo:
		el = &VideoElement{}
	case KindGif:
		el = &GifElement{}
	case KindRecording:
		el = &RecordingElement{}
	default:
		unknown := &UnknownElement{Raw: append(json.RawMessage(nil), data...)}
		if err := json.Unmarshal(data, unknown); err != nil {
			return nil, fmt.Errorf("failed to decode element of type %q: %w", env.Type, err)
		}
		return unknown, nil
	}

	if err := json.Unmarshal(data, el); err != nil {
		return nil, fmt.Errorf("failed to decode element of type %q: %w", env.Type, err)
	}
	return el, nil
}

// UnmarshalJSON decodes an ordered content array, dispatching each entry on
// its "type" discriminator.
func (l *ElementList) UnmarshalJSON(data []byte) error {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return err
	}

	out := make(ElementList, 0, len(raws))
	for i, raw := range raws {
		el, err := UnmarshalElement(raw)
		if err != nil {
			return fmt.Errorf("element %d: %w", i, err)
		}
		out = append(out, el)
	}
	*l = out
	return nil
}
