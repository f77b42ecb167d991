package classifier

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreprocessShapeAndRange(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 1080, 2400))
	for y := 0; y < 2400; y++ {
		for x := 0; x < 1080; x++ {
			img.Set(x, y, color.RGBA{R: 255, G: 128, B: 0, A: 255})
		}
	}

	tensor := Preprocess(img)
	assert.Equal(t, []int{84, 84, 3}, tensor.Shape())
	require.Len(t, tensor.Data, 84*84*3)

	assert.InDelta(t, 1.0, tensor.At(40, 40, 0), 1e-6)
	assert.InDelta(t, 128.0/255, tensor.At(40, 40, 1), 1e-6)
	assert.InDelta(t, 0.0, tensor.At(40, 40, 2), 1e-6)

	for _, v := range tensor.Data {
		if v < 0 || v > 1 {
			t.Fatalf("value %v out of [0,1]", v)
		}
	}
}

func TestPreprocessKeepsChannelOrder(t *testing.T) {
	// left half red, right half blue
	img := image.NewRGBA(image.Rect(0, 0, 168, 168))
	for y := 0; y < 168; y++ {
		for x := 0; x < 168; x++ {
			c := color.RGBA{R: 255, A: 255}
			if x >= 84 {
				c = color.RGBA{B: 255, A: 255}
			}
			img.Set(x, y, c)
		}
	}

	tensor := Preprocess(img)
	assert.InDelta(t, 1.0, tensor.At(10, 5, 0), 1e-6)
	assert.InDelta(t, 0.0, tensor.At(10, 5, 2), 1e-6)
	assert.InDelta(t, 0.0, tensor.At(10, 78, 0), 1e-6)
	assert.InDelta(t, 1.0, tensor.At(10, 78, 2), 1e-6)
}
