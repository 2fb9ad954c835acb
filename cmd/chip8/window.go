package main

import (
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/ezrec/chip8/video"
)

// Window renders the display in a desktop window.
type Window struct {
	*session

	screen *ebiten.Image // Reused display sized canvas.
	status string        // Halt message, if any.
}

func (win *Window) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}
	if inpututil.IsKeyJustPressed(ebiten.KeySpace) {
		win.emu.TogglePause()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyG) {
		win.opts.Grid = !win.opts.Grid
	}

	for _, r := range ebiten.AppendInputChars(nil) {
		win.key(r)
	}

	// The last frame stays on screen after a halt.
	if ended, err := win.ended(); ended && err != nil && len(win.status) == 0 {
		win.status = err.Error()
		ebiten.SetWindowTitle("CHIP-8 (halted)")
	}

	return nil
}

func (win *Window) Draw(screen *ebiten.Image) {
	px := win.emu.Display.Snapshot()

	opts := win.opts
	opts.Paused = win.emu.Paused()

	img, err := px.Render(opts)
	if err != nil {
		ebitenutil.DebugPrint(screen, err.Error())
		return
	}

	if win.screen == nil {
		win.screen = ebiten.NewImage(img.Rect.Dx(), img.Rect.Dy())
	}
	win.screen.WritePixels(img.Pix)
	screen.DrawImage(win.screen, nil)

	if len(win.status) != 0 {
		ebitenutil.DebugPrint(screen, win.status)
	}
}

func (win *Window) Layout(outsideWidth, outsideHeight int) (int, int) {
	return video.WIDTH * win.opts.Scale, video.HEIGHT * win.opts.Scale
}

// runWindow runs the desktop window until it is closed.
func runWindow(ss *session) (err error) {
	if ss.opts.Scale <= 0 {
		err = video.ErrScale
		return
	}

	win := &Window{session: ss}

	ebiten.SetWindowSize(video.WIDTH*ss.opts.Scale, video.HEIGHT*ss.opts.Scale)
	ebiten.SetWindowTitle("CHIP-8")

	err = ebiten.RunGame(win)
	return
}
