package storycontent_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chronicle/story-content/pkg/storycontent"
)

func TestUnmarshalElementDispatch(t *testing.T) {
	tests := []struct {
		name string
		data string
		want interface{}
	}{
		{"text", `{"type":"text","text":"hello"}`, &storycontent.TextElement{}},
		{"image", `{"type":"image","image":"images/p/a.jpg"}`, &storycontent.ImageElement{}},
		{"gallery", `{"type":"gallery","sections":[]}`, &storycontent.GalleryElement{}},
		{"audio", `{"type":"audio","url":"audio/p/a.mp3"}`, &storycontent.AudioElement{}},
		{"video", `{"type":"video","url":"videos/p/v.mp4"}`, &storycontent.VideoElement{}},
		{"gif", `{"type":"gif","url":"gifs/p/g.mp4"}`, &storycontent.GifElement{}},
		{"recording", `{"type":"recording","url":"recordings/p/r.m4a"}`, &storycontent.RecordingElement{}},
		{"unknown", `{"type":"widget"}`, &storycontent.UnknownElement{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			el, err := storycontent.UnmarshalElement([]byte(tt.data))
			require.NoError(t, err)
			assert.IsType(t, tt.want, el)
		})
	}
}

func TestUnknownElementRoundTrip(t *testing.T) {
	raw := `{"type":"moment","contentId":"legacy-1","payload":{"nested":true}}`

	el, err := storycontent.UnmarshalElement([]byte(raw))
	require.NoError(t, err)

	unknown, ok := el.(*storycontent.UnknownElement)
	require.True(t, ok)
	assert.Equal(t, storycontent.ElementKind("moment"), unknown.Kind())
	assert.Equal(t, "legacy-1", unknown.ContentID)

	// The record re-serializes byte-for-byte from the preserved raw payload.
	out, err := json.Marshal(unknown)
	require.NoError(t, err)
	assert.JSONEq(t, raw, string(out))
}

func TestElementListPreservesOrder(t *testing.T) {
	data := `[
		{"type":"text","contentId":"a","text":"first"},
		{"type":"image","contentId":"b","image":"images/p/a.jpg"},
		{"type":"text","contentId":"c","text":"third"}
	]`

	var list storycontent.ElementList
	require.NoError(t, json.Unmarshal([]byte(data), &list))
	require.Len(t, list, 3)

	assert.Equal(t, "a", list[0].Common().ContentID)
	assert.Equal(t, "b", list[1].Common().ContentID)
	assert.Equal(t, "c", list[2].Common().ContentID)
	assert.Equal(t, storycontent.KindImage, list[1].Kind())
}

func TestElementListDecodeError(t *testing.T) {
	var list storycontent.ElementList
	err := json.Unmarshal([]byte(`[{"type":["not","a","string"]}]`), &list)
	assert.Error(t, err)
}
