package render

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"strings"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"go.uber.org/zap"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/lelandbatey/batey-bike-trip-records/internal/clients/tiles"
	"github.com/lelandbatey/batey-bike-trip-records/internal/lib/palette"
	"github.com/lelandbatey/batey-bike-trip-records/internal/lib/projection"
)

const DefaultCaptionSize = 18.0

// Prefetcher is implemented by tile sources that can warm their cache for
// a batch of tiles before drawing.
type Prefetcher interface {
	Prefetch(ctx context.Context, t []tiles.Tile) error
}

// Renderer draws a projection.Map to an image. Tiles go underneath, lines
// over them, markers over the lines and text last.
type Renderer struct {
	// Tiles may be nil, in which case the background is plain white.
	Tiles tiles.Source

	// Attribution is drawn in the bottom right corner when tiles are drawn.
	Attribution string

	Font        *truetype.Font
	CaptionSize float64
	Logger      *zap.SugaredLogger
}

// New creates a Renderer using the bundled Go Regular font.
func New(src tiles.Source, logger *zap.SugaredLogger) (*Renderer, error) {
	font, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to parse font: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Renderer{
		Tiles:       src,
		Font:        font,
		CaptionSize: DefaultCaptionSize,
		Logger:      logger,
	}, nil
}

// Render draws m. An empty caption draws none.
func (r *Renderer) Render(ctx context.Context, m *projection.Map, caption string) (image.Image, error) {
	layout, err := m.Layout()
	if err != nil {
		return nil, err
	}

	dc := gg.NewContext(m.Width, m.Height)
	dc.SetColor(color.White)
	dc.Clear()

	if err := r.drawTiles(ctx, dc, layout); err != nil {
		return nil, err
	}

	dc.SetLineCapRound()
	dc.SetLineJoinRound()
	for _, line := range m.Lines {
		if len(line.Coords) == 0 {
			continue
		}
		c, err := ParseColor(line.Color)
		if err != nil {
			return nil, err
		}
		for i, pt := range line.Coords {
			x, y := layout.Pixel(pt)
			if i == 0 {
				dc.MoveTo(x, y)
			} else {
				dc.LineTo(x, y)
			}
		}
		dc.SetColor(c)
		dc.SetLineWidth(line.Width)
		dc.Stroke()
	}

	for _, mk := range m.Markers {
		c, err := ParseColor(mk.Color)
		if err != nil {
			return nil, err
		}
		x, y := layout.Pixel(mk.Coord)
		dc.DrawCircle(x, y, mk.Width)
		dc.SetColor(c)
		dc.Fill()
	}

	if caption != "" {
		r.drawCaption(dc, caption)
	}
	if r.Tiles != nil && r.Attribution != "" {
		r.drawAttribution(dc)
	}
	return dc.Image(), nil
}

func (r *Renderer) drawTiles(ctx context.Context, dc *gg.Context, layout projection.Layout) error {
	if r.Tiles == nil {
		return nil
	}
	visible := tiles.Visible(layout)

	if p, ok := r.Tiles.(Prefetcher); ok {
		if err := p.Prefetch(ctx, tiles.Unique(visible)); err != nil {
			return err
		}
	}

	for _, t := range visible {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, ok := t.Normalize()
		if !ok {
			continue
		}
		img, err := r.Tiles.Tile(ctx, n)
		if err != nil {
			r.logger().Warnw("Skipping unavailable tile", "tile", n.String(), "error", err)
			continue
		}
		dc.DrawImage(img, layout.XToPx(float64(t.X)), layout.YToPx(float64(t.Y)))
	}
	return nil
}

func (r *Renderer) drawCaption(dc *gg.Context, caption string) {
	if r.Font == nil {
		return
	}
	size := r.captionSize()
	dc.SetFontFace(truetype.NewFace(r.Font, &truetype.Options{Size: size}))

	pad := size / 2
	w, h := dc.MeasureString(caption)
	y := float64(dc.Height()) - pad

	dc.SetColor(color.NRGBA{R: 255, G: 255, B: 255, A: 200})
	dc.DrawRectangle(0, y-h-pad, w+2*pad, h+2*pad)
	dc.Fill()

	dc.SetColor(color.Black)
	dc.DrawString(caption, pad, y)
}

func (r *Renderer) drawAttribution(dc *gg.Context) {
	if r.Font == nil {
		return
	}
	size := r.captionSize() * 0.6
	dc.SetFontFace(truetype.NewFace(r.Font, &truetype.Options{Size: size}))

	pad := size / 3
	w, h := dc.MeasureString(r.Attribution)
	x := float64(dc.Width()) - w - pad
	y := float64(dc.Height()) - pad

	dc.SetColor(color.NRGBA{R: 255, G: 255, B: 255, A: 180})
	dc.DrawRectangle(x-pad, y-h-pad, w+2*pad, h+2*pad)
	dc.Fill()

	dc.SetColor(color.NRGBA{R: 64, G: 64, B: 64, A: 255})
	dc.DrawString(r.Attribution, x, y)
}

func (r *Renderer) captionSize() float64 {
	if r.CaptionSize <= 0 {
		return DefaultCaptionSize
	}
	return r.CaptionSize
}

func (r *Renderer) logger() *zap.SugaredLogger {
	if r.Logger == nil {
		return zap.NewNop().Sugar()
	}
	return r.Logger
}

// SavePNG writes img to path.
func SavePNG(path string, img image.Image) error {
	if err := gg.SavePNG(path, img); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	return nil
}

var namedColors = map[string]color.Color{
	"white": color.White,
	"black": color.Black,
	"red":   color.NRGBA{R: 255, A: 255},
	"green": color.NRGBA{G: 128, A: 255},
	"blue":  color.NRGBA{B: 255, A: 255},
}

// ParseColor accepts a few color names or a #RRGGBB hex string.
func ParseColor(s string) (color.Color, error) {
	if c, ok := namedColors[strings.ToLower(s)]; ok {
		return c, nil
	}
	if s == "" {
		return color.Black, nil
	}
	return palette.ParseHex(s)
}
