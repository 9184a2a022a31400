// Package render draws the signal head as a PNG image.
package render

import (
	"fmt"
	"image/color"
	"io"
	"strconv"
	"sync"

	"github.com/gogpu/gg"
	"github.com/gogpu/gg/text"
	"github.com/sweeney/traffic-signal/internal/logic"
	"golang.org/x/image/font/gofont/gomonobold"
)

// Canvas and housing geometry in pixels.
const (
	Width  = 300
	Height = 720

	HousingX      = (Width - HousingWidth) / 2
	HousingY      = 60
	HousingWidth  = 220
	HousingHeight = 540
	HousingRadius = 20

	LampRadius  = 50
	LampFirstY  = HousingY + 110
	LampSpacing = 160

	TimerY        = HousingY + HousingHeight + 60
	timerFontSize = 42
)

// Colors is the lit colour of each slot.
var Colors = [logic.NumSlots]color.RGBA{
	logic.SlotRed:    {R: 255, A: 255},
	logic.SlotYellow: {R: 255, G: 255, A: 255},
	logic.SlotGreen:  {G: 255, A: 255},
}

var (
	background = color.RGBA{R: 20, G: 20, B: 20, A: 255}
	housing    = color.RGBA{A: 255}
	timerColor = color.RGBA{R: 230, G: 230, B: 230, A: 255}
)

var timerFont = sync.OnceValues(func() (*text.FontSource, error) {
	return text.NewFontSource(gomonobold.TTF)
})

// LampCenter returns the centre of the lamp for slot s.
func LampCenter(s logic.Slot) (x, y int) {
	return HousingX + HousingWidth/2, LampFirstY + int(s)*LampSpacing
}

// Unlit returns the colour of a dark lamp: the lit colour dimmed by 0.7 twice.
func Unlit(c color.RGBA) color.RGBA {
	return darker(darker(c))
}

func darker(c color.RGBA) color.RGBA {
	return color.RGBA{
		R: uint8(float64(c.R) * 0.7),
		G: uint8(float64(c.G) * 0.7),
		B: uint8(float64(c.B) * 0.7),
		A: c.A,
	}
}

// Signal writes a PNG of the signal head in state st.
// The countdown is drawn under the housing as "N s" and left blank at 0.
func Signal(w io.Writer, st logic.SignalState) error {
	dc := gg.NewContext(Width, Height)
	defer dc.Close()

	dc.ClearWithColor(gg.FromColor(background))

	dc.SetColor(housing)
	dc.DrawRoundedRectangle(HousingX, HousingY, HousingWidth, HousingHeight, HousingRadius)
	if err := dc.Fill(); err != nil {
		return fmt.Errorf("fill housing: %w", err)
	}

	for i := range logic.NumSlots {
		s := logic.Slot(i)
		c := Colors[s]
		if !st.Lights[s] {
			c = Unlit(c)
		}
		x, y := LampCenter(s)
		dc.SetColor(c)
		dc.DrawCircle(float64(x), float64(y), LampRadius)
		if err := dc.Fill(); err != nil {
			return fmt.Errorf("fill %s lamp: %w", s, err)
		}
	}

	if st.Remaining > 0 {
		src, err := timerFont()
		if err != nil {
			return fmt.Errorf("load timer font: %w", err)
		}
		dc.SetFont(src.Face(timerFontSize))
		dc.SetColor(timerColor)
		dc.DrawStringAnchored(strconv.Itoa(st.Remaining)+" s", Width/2, TimerY, 0.5, 0.5)
	}

	if err := dc.FlushGPU(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	if err := dc.EncodePNG(w); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}
