package video

import (
	"errors"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"os"

	"github.com/ezrec/chip8/translate"
)

var f = translate.From

var ErrScale = errors.New(f("scale must be positive"))

// Palette entries.
const (
	PALETTE_BACKGROUND = 0
	PALETTE_PIXEL      = 1
	PALETTE_GRID       = 2
	PALETTE_PAUSE      = 3
)

// DEFAULT_PALETTE is white cells on black, a blue grid, and a magenta
// pause indicator.
var DEFAULT_PALETTE = color.Palette{
	color.RGBA{0x00, 0x00, 0x00, 0xff},
	color.RGBA{0xff, 0xff, 0xff, 0xff},
	color.RGBA{0x00, 0x00, 0xff, 0xff},
	color.RGBA{0xff, 0x00, 0xff, 0xff},
}

// Options control Render.
type Options struct {
	Scale   int           // Size of a cell in image pixels.
	Grid    bool          // Draw cell borders.
	Paused  bool          // Draw the pause indicator.
	Palette color.Palette // Colours, DEFAULT_PALETTE if nil.
}

func fill(img draw.Image, rect image.Rectangle, c color.Color) {
	draw.Draw(img, rect, &image.Uniform{C: c}, image.Point{}, draw.Src)
}

// Render paints the display into an image of WIDTH*Scale by HEIGHT*Scale
// pixels, where each lit cell is a filled square.
func (px *Pixels) Render(opts Options) (img *image.RGBA, err error) {
	scale := opts.Scale
	if scale <= 0 {
		err = ErrScale
		return
	}

	palette := opts.Palette
	if len(palette) < len(DEFAULT_PALETTE) {
		palette = DEFAULT_PALETTE
	}

	img = image.NewRGBA(image.Rect(0, 0, WIDTH*scale, HEIGHT*scale))
	fill(img, img.Bounds(), palette[PALETTE_BACKGROUND])

	if opts.Paused {
		// Two bars in the top right corner.
		for _, x := range []int{60, 62} {
			fill(img, image.Rect(x*scale, 1*scale, (x+1)*scale, 5*scale), palette[PALETTE_PAUSE])
		}
	}

	if opts.Grid {
		for x := range WIDTH {
			fill(img, image.Rect(x*scale, 0, x*scale+1, HEIGHT*scale), palette[PALETTE_GRID])
		}
		for y := range HEIGHT {
			fill(img, image.Rect(0, y*scale, WIDTH*scale, y*scale+1), palette[PALETTE_GRID])
		}
	}

	for y := range HEIGHT {
		for x := range WIDTH {
			if !px.Get(x, y) {
				continue
			}
			fill(img, image.Rect(x*scale, y*scale, (x+1)*scale, (y+1)*scale), palette[PALETTE_PIXEL])
		}
	}

	return
}

// EncodePNG writes the rendered display as a PNG image.
func (px *Pixels) EncodePNG(w io.Writer, opts Options) (err error) {
	img, err := px.Render(opts)
	if err != nil {
		return
	}

	err = png.Encode(w, img)
	return
}

// SavePNG writes the rendered display as a PNG file.
func (px *Pixels) SavePNG(filename string, opts Options) (err error) {
	file, err := os.Create(filename)
	if err != nil {
		return
	}
	defer func() {
		err = errors.Join(err, file.Close())
	}()

	err = px.EncodePNG(file, opts)
	return
}
