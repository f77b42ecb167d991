package classifier

import (
	"image"

	"golang.org/x/image/draw"
)

// Model input geometry
const (
	InputSide     = 84
	InputChannels = 3
)

// Tensor is a normalized HWC float image
type Tensor struct {
	Height   int
	Width    int
	Channels int
	Data     []float32
}

// Shape returns [height, width, channels]
func (t Tensor) Shape() []int {
	return []int{t.Height, t.Width, t.Channels}
}

// At returns the value at row y, column x, channel c
func (t Tensor) At(y, x, c int) float32 {
	return t.Data[(y*t.Width+x)*t.Channels+c]
}

// Preprocess resizes img to the model input with bilinear filtering and
// scales RGB values into [0,1]
func Preprocess(img image.Image) Tensor {
	dst := image.NewRGBA(image.Rect(0, 0, InputSide, InputSide))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)

	t := Tensor{
		Height:   InputSide,
		Width:    InputSide,
		Channels: InputChannels,
		Data:     make([]float32, InputSide*InputSide*InputChannels),
	}

	i := 0
	for y := 0; y < InputSide; y++ {
		row := dst.Pix[y*dst.Stride : y*dst.Stride+InputSide*4]
		for x := 0; x < InputSide; x++ {
			px := row[x*4 : x*4+4]
			t.Data[i] = float32(px[0]) / 255
			t.Data[i+1] = float32(px[1]) / 255
			t.Data[i+2] = float32(px[2]) / 255
			i += InputChannels
		}
	}

	return t
}
