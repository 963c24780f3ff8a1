// Package chart renders portfolio images sent back through Telegram.
package chart

import (
	"bytes"

	"github.com/pkg/errors"
	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// ErrNothingToDraw is returned when no slice has a positive value.
var ErrNothingToDraw = errors.New("no positive values to draw")

var (
	backgroundColor = drawing.Color{R: 55, G: 55, B: 55, A: 255}
	textColor       = drawing.Color{R: 200, G: 200, B: 200, A: 255}

	sliceColors = []drawing.Color{
		{R: 0, G: 122, B: 255, A: 255},
		{R: 255, G: 159, B: 10, A: 255},
		{R: 48, G: 209, B: 88, A: 255},
		{R: 255, G: 69, B: 58, A: 255},
		{R: 191, G: 90, B: 242, A: 255},
		{R: 100, G: 210, B: 255, A: 255},
		{R: 255, G: 214, B: 10, A: 255},
		{R: 172, G: 142, B: 104, A: 255},
	}
)

// Slice is one labelled share of the pie.
type Slice struct {
	Label string
	Value float64
}

// RenderAllocation draws a PNG pie chart. Slices with a non-positive value are skipped.
func RenderAllocation(title string, slices []Slice) ([]byte, error) {
	var values []gochart.Value
	for _, s := range slices {
		if s.Value <= 0 {
			continue
		}
		values = append(values, gochart.Value{
			Label: s.Label,
			Value: s.Value,
			Style: gochart.Style{
				FillColor:   sliceColors[len(values)%len(sliceColors)],
				FontColor:   drawing.ColorWhite,
				StrokeColor: backgroundColor,
				StrokeWidth: 2,
			},
		})
	}
	if len(values) == 0 {
		return nil, ErrNothingToDraw
	}

	pie := gochart.PieChart{
		Title:      title,
		TitleStyle: gochart.Style{FontColor: textColor, FontSize: 16},
		Width:      800,
		Height:     800,
		Background: gochart.Style{
			FillColor: backgroundColor,
			Padding:   gochart.Box{Top: 60, Left: 20, Right: 20, Bottom: 20},
		},
		Canvas: gochart.Style{FillColor: backgroundColor},
		Values: values,
	}

	var buf bytes.Buffer
	if err := pie.Render(gochart.PNG, &buf); err != nil {
		return nil, errors.Wrap(err, "could not render allocation chart")
	}
	return buf.Bytes(), nil
}
