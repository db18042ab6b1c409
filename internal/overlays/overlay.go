package overlays

import (
	"image"
	"image/color"
	"image/draw"
	"sort"

	"github.com/nfnt/resize"

	"github.com/kikiluvv/motionbeat/internal/motion"
)

// Style defines how motion is drawn over a frame
type Style struct {
	Box       color.RGBA // motion region outlines
	Centroid  color.RGBA
	Bar       color.RGBA // hit score bar
	PeakBar   color.RGBA // hit score bar on peak moments
	Thickness int
	BarHeight int
}

// Presets for common styles
var (
	Default = "default"
	Mono    = "mono"
	Heat    = "heat"
)

// DefaultStyle mirrors the classic green boxes with a yellow meter.
func DefaultStyle() Style {
	return Style{
		Box:       color.RGBA{0, 255, 0, 255},
		Centroid:  color.RGBA{255, 0, 0, 255},
		Bar:       color.RGBA{255, 255, 0, 255},
		PeakBar:   color.RGBA{255, 0, 255, 255},
		Thickness: 2,
		BarHeight: 8,
	}
}

// Registry manages available styles
type Registry struct {
	styles map[string]Style
}

// NewRegistry creates a registry holding the preset styles
func NewRegistry() *Registry {
	r := &Registry{
		styles: make(map[string]Style),
	}
	r.Register(Default, DefaultStyle())

	mono := DefaultStyle()
	mono.Box = color.RGBA{255, 255, 255, 255}
	mono.Centroid = color.RGBA{255, 255, 255, 255}
	mono.Bar = color.RGBA{200, 200, 200, 255}
	mono.PeakBar = color.RGBA{255, 255, 255, 255}
	r.Register(Mono, mono)

	heat := DefaultStyle()
	heat.Box = color.RGBA{255, 96, 0, 255}
	heat.Centroid = color.RGBA{255, 255, 0, 255}
	heat.Bar = color.RGBA{255, 160, 0, 255}
	heat.PeakBar = color.RGBA{255, 0, 0, 255}
	heat.Thickness = 3
	r.Register(Heat, heat)

	return r
}

// Register adds a style to the registry
func (r *Registry) Register(name string, s Style) {
	r.styles[name] = s
}

// Get retrieves a style by name
func (r *Registry) Get(name string) (Style, bool) {
	s, ok := r.styles[name]
	return s, ok
}

// List returns all registered style names, sorted
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.styles))
	for name := range r.styles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Annotator draws a record's motion regions, centroid and hit score
type Annotator struct {
	style    Style
	maxWidth uint
}

// NewAnnotator creates an annotator. Output wider than maxWidth is
// downscaled; zero keeps the input size.
func NewAnnotator(style Style, maxWidth uint) *Annotator {
	if style.Thickness < 1 {
		style.Thickness = 1
	}
	return &Annotator{style: style, maxWidth: maxWidth}
}

// Annotate returns a copy of img with rec drawn over it. Regions and the
// centroid are in analysis coordinates of the given size and are scaled to
// img.
func (a *Annotator) Annotate(img image.Image, rec motion.MotionRecord, analysis image.Point) image.Image {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)

	sx, sy := 1.0, 1.0
	if analysis.X > 0 && analysis.Y > 0 {
		sx = float64(b.Dx()) / float64(analysis.X)
		sy = float64(b.Dy()) / float64(analysis.Y)
	}

	for _, region := range rec.Regions {
		box := image.Rect(
			int(float64(region.Box.Min.X)*sx),
			int(float64(region.Box.Min.Y)*sy),
			int(float64(region.Box.Max.X)*sx),
			int(float64(region.Box.Max.Y)*sy),
		)
		a.outline(dst, box, a.style.Box)
	}

	cx := int(rec.Position.X * sx)
	cy := int(rec.Position.Y * sy)
	arm := 3 * a.style.Thickness
	fill(dst, image.Rect(cx-arm, cy-a.style.Thickness/2, cx+arm+1, cy+a.style.Thickness/2+1), a.style.Centroid)
	fill(dst, image.Rect(cx-a.style.Thickness/2, cy-arm, cx+a.style.Thickness/2+1, cy+arm+1), a.style.Centroid)

	if a.style.BarHeight > 0 {
		bar := a.style.Bar
		if rec.IsPeakMoment {
			bar = a.style.PeakBar
		}
		w := int(rec.DopamineHitScore * float64(dst.Bounds().Dx()))
		fill(dst, image.Rect(0, 0, w, a.style.BarHeight), bar)
	}

	if a.maxWidth > 0 && uint(dst.Bounds().Dx()) > a.maxWidth {
		return resize.Resize(a.maxWidth, 0, dst, resize.Bilinear)
	}
	return dst
}

func (a *Annotator) outline(dst *image.RGBA, r image.Rectangle, c color.RGBA) {
	t := a.style.Thickness
	fill(dst, image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+t), c)
	fill(dst, image.Rect(r.Min.X, r.Max.Y-t, r.Max.X, r.Max.Y), c)
	fill(dst, image.Rect(r.Min.X, r.Min.Y, r.Min.X+t, r.Max.Y), c)
	fill(dst, image.Rect(r.Max.X-t, r.Min.Y, r.Max.X, r.Max.Y), c)
}

func fill(dst *image.RGBA, r image.Rectangle, c color.RGBA) {
	r = r.Intersect(dst.Bounds())
	if r.Empty() {
		return
	}
	draw.Draw(dst, r, &image.Uniform{C: c}, image.Point{}, draw.Src)
}
