package probe_test

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chronicle/story-content/pkg/storycontent/probe"
)

func encodePNG(t *testing.T, width, height int) []byte {
	t.Helper()
	var buf bytes.Buffer
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestInspectImage(t *testing.T) {
	prober := probe.New(probe.Config{})
	data := encodePNG(t, 640, 480)

	width, height, err := prober.InspectImage(context.Background(), bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 640, width)
	assert.Equal(t, 480, height)
}

func TestInspectImageRejectsGarbage(t *testing.T) {
	prober := probe.New(probe.Config{})
	_, _, err := prober.InspectImage(context.Background(), bytes.NewReader([]byte("not an image")))
	assert.Error(t, err)
}

func TestDecodeImageBytes(t *testing.T) {
	width, height, err := probe.DecodeImageBytes(encodePNG(t, 32, 16))
	require.NoError(t, err)
	assert.Equal(t, 32, width)
	assert.Equal(t, 16, height)
}
