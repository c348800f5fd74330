package raster

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
)

// Palette maps raster samples to preview colors. Nodata renders
// transparent.
type Palette interface {
	Color(v float64) color.NRGBA
}

// RenderPNG rasterizes a preview image for the dashboard.
func RenderPNG(g *Grid, pal Palette) ([]byte, error) {
	if pal == nil {
		return nil, fmt.Errorf("render: nil palette")
	}
	img := image.NewNRGBA(image.Rect(0, 0, g.Width, g.Height))
	for row := 0; row < g.Height; row++ {
		for col := 0; col < g.Width; col++ {
			v := g.At(col, row)
			if g.IsNoData(v) || math.IsNaN(v) {
				continue // zero value NRGBA is transparent
			}
			img.SetNRGBA(col, row, pal.Color(v))
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}

// RampPalette linearly blends between two colors over [Min, Max].
type RampPalette struct {
	Min, Max float64
	From, To color.NRGBA
}

func (p RampPalette) Color(v float64) color.NRGBA {
	t := clamp((v-p.Min)/(p.Max-p.Min), 0, 1)
	return lerp(p.From, p.To, t)
}

// LogRampPalette blends on a log scale; suits heavy-tailed data such as
// population counts.
type LogRampPalette struct {
	Max      float64
	From, To color.NRGBA
}

func (p LogRampPalette) Color(v float64) color.NRGBA {
	if v <= 0 {
		return p.From
	}
	t := clamp(math.Log1p(v)/math.Log1p(p.Max), 0, 1)
	return lerp(p.From, p.To, t)
}

// ClassPalette maps discrete class codes to fixed colors.
type ClassPalette struct {
	Classes map[int]color.NRGBA
	Default color.NRGBA
}

func (p ClassPalette) Color(v float64) color.NRGBA {
	if c, ok := p.Classes[int(v)]; ok {
		return c
	}
	return p.Default
}

// NDVIPalette: brown through yellow to deep green over [-1, 1].
func NDVIPalette() Palette {
	return splitRamp{
		mid:  0,
		low:  RampPalette{Min: -1, Max: 0, From: color.NRGBA{121, 85, 61, 255}, To: color.NRGBA{230, 225, 180, 255}},
		high: RampPalette{Min: 0, Max: 1, From: color.NRGBA{230, 225, 180, 255}, To: color.NRGBA{13, 93, 28, 255}},
	}
}

type splitRamp struct {
	mid       float64
	low, high RampPalette
}

func (p splitRamp) Color(v float64) color.NRGBA {
	if v < p.mid {
		return p.low.Color(v)
	}
	return p.high.Color(v)
}

// TreeCoverPalette: pale to dark green over canopy percent [0, 100].
func TreeCoverPalette() Palette {
	return RampPalette{Min: 0, Max: 100, From: color.NRGBA{247, 252, 245, 255}, To: color.NRGBA{0, 68, 27, 255}}
}

// PopulationPalette: light yellow to dark red, log scaled.
func PopulationPalette() Palette {
	return LogRampPalette{Max: 10000, From: color.NRGBA{255, 255, 204, 255}, To: color.NRGBA{128, 0, 38, 255}}
}

// LandCoverPalette: the standard NLCD class colors.
func LandCoverPalette() Palette {
	return ClassPalette{
		Classes: map[int]color.NRGBA{
			11: {70, 107, 159, 255},  // open water
			12: {209, 222, 248, 255}, // perennial ice/snow
			21: {222, 197, 197, 255}, // developed, open space
			22: {217, 146, 130, 255}, // developed, low intensity
			23: {235, 0, 0, 255},     // developed, medium intensity
			24: {171, 0, 0, 255},     // developed, high intensity
			31: {179, 172, 159, 255}, // barren land
			41: {104, 171, 95, 255},  // deciduous forest
			42: {28, 95, 44, 255},    // evergreen forest
			43: {181, 197, 143, 255}, // mixed forest
			52: {204, 184, 121, 255}, // shrub/scrub
			71: {223, 223, 194, 255}, // grassland
			81: {220, 217, 57, 255},  // pasture/hay
			82: {171, 108, 40, 255},  // cultivated crops
			90: {184, 217, 235, 255}, // woody wetlands
			95: {108, 159, 184, 255}, // emergent herbaceous wetlands
		},
		Default: color.NRGBA{200, 200, 200, 255},
	}
}

func lerp(a, b color.NRGBA, t float64) color.NRGBA {
	return color.NRGBA{
		R: uint8(float64(a.R) + t*(float64(b.R)-float64(a.R))),
		G: uint8(float64(a.G) + t*(float64(b.G)-float64(a.G))),
		B: uint8(float64(a.B) + t*(float64(b.B)-float64(a.B))),
		A: 255,
	}
}
