package motion

import (
	"image"
	"image/color"
	"math"

	"github.com/nfnt/resize"
	"gonum.org/v1/gonum/stat"
)

// minEigen is the smallest per-pixel structure-tensor eigenvalue solved for.
// Windows below it see no texture or a single edge direction.
const minEigen = 1e-2

// denseFlow estimates per-pixel displacement from prev to cur with
// windowed Lucas-Kanade, refined by warping cur with the current estimate,
// and returns the mean vector and mean magnitude in source pixels.
func denseFlow(prev, cur *image.Gray, cfg FlowConfig) Flow {
	a, w, h := workingPlane(prev, cfg.Scale)
	b, _, _ := workingPlane(cur, cfg.Scale)
	n := w * h
	if n == 0 {
		return Flow{}
	}

	ix, iy := gradients(a, w, h)
	ixx := make([]float64, n)
	ixy := make([]float64, n)
	iyy := make([]float64, n)
	for i := range ix {
		ixx[i] = ix[i] * ix[i]
		ixy[i] = ix[i] * iy[i]
		iyy[i] = iy[i] * iy[i]
	}
	r := cfg.Window / 2
	sxx := boxSum(ixx, w, h, r)
	sxy := boxSum(ixy, w, h, r)
	syy := boxSum(iyy, w, h, r)

	minLambda := minEigen * float64((2*r+1)*(2*r+1))
	solvable := make([]bool, n)
	for i := range solvable {
		solvable[i] = smallestEigen(sxx[i], sxy[i], syy[i]) >= minLambda
	}

	u := make([]float64, n)
	v := make([]float64, n)
	ixt := make([]float64, n)
	iyt := make([]float64, n)

	for it := 0; it < cfg.Iterations; it++ {
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				i := y*w + x
				dt := bilinear(b, w, h, float64(x)+u[i], float64(y)+v[i]) - a[i]
				ixt[i] = ix[i] * dt
				iyt[i] = iy[i] * dt
			}
		}
		sxt := boxSum(ixt, w, h, r)
		syt := boxSum(iyt, w, h, r)

		for i := 0; i < n; i++ {
			if !solvable[i] {
				continue
			}
			det := sxx[i]*syy[i] - sxy[i]*sxy[i]
			u[i] += (-syy[i]*sxt[i] + sxy[i]*syt[i]) / det
			v[i] += (sxy[i]*sxt[i] - sxx[i]*syt[i]) / det
		}
	}

	mag := make([]float64, n)
	for i := range mag {
		u[i] /= cfg.Scale
		v[i] /= cfg.Scale
		mag[i] = math.Hypot(u[i], v[i])
	}

	return Flow{
		X:         stat.Mean(u, nil),
		Y:         stat.Mean(v, nil),
		Magnitude: stat.Mean(mag, nil),
	}
}

func smallestEigen(xx, xy, yy float64) float64 {
	mean := (xx + yy) / 2
	return mean - math.Hypot((xx-yy)/2, xy)
}

// workingPlane downsamples g by scale and returns it as float intensities.
func workingPlane(g *image.Gray, scale float64) ([]float64, int, int) {
	var img image.Image = g
	if scale < 1 {
		w := max(1, int(math.Round(float64(g.Rect.Dx())*scale)))
		h := max(1, int(math.Round(float64(g.Rect.Dy())*scale)))
		img = resize.Resize(uint(w), uint(h), g, resize.Bilinear)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	out := make([]float64, w*h)
	if gray, ok := img.(*image.Gray); ok {
		for y := 0; y < h; y++ {
			row := gray.Pix[y*gray.Stride:]
			for x := 0; x < w; x++ {
				out[y*w+x] = float64(row[x])
			}
		}
		return out, w, h
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.GrayModel.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.Gray)
			out[y*w+x] = float64(c.Y)
		}
	}
	return out, w, h
}

// gradients uses central differences with one-sided differences at the border.
func gradients(p []float64, w, h int) (ix, iy []float64) {
	ix = make([]float64, w*h)
	iy = make([]float64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			x0, x1 := max(x-1, 0), min(x+1, w-1)
			y0, y1 := max(y-1, 0), min(y+1, h-1)
			if x1 > x0 {
				ix[y*w+x] = (p[y*w+x1] - p[y*w+x0]) / float64(x1-x0)
			}
			if y1 > y0 {
				iy[y*w+x] = (p[y1*w+x] - p[y0*w+x]) / float64(y1-y0)
			}
		}
	}
	return ix, iy
}

// boxSum returns, per pixel, the sum over the (2r+1)² window clipped to the plane.
func boxSum(p []float64, w, h, r int) []float64 {
	stride := w + 1
	integral := make([]float64, stride*(h+1))
	for y := 0; y < h; y++ {
		var row float64
		for x := 0; x < w; x++ {
			row += p[y*w+x]
			integral[(y+1)*stride+x+1] = integral[y*stride+x+1] + row
		}
	}

	out := make([]float64, w*h)
	for y := 0; y < h; y++ {
		y0, y1 := max(y-r, 0), min(y+r+1, h)
		for x := 0; x < w; x++ {
			x0, x1 := max(x-r, 0), min(x+r+1, w)
			out[y*w+x] = integral[y1*stride+x1] - integral[y0*stride+x1] - integral[y1*stride+x0] + integral[y0*stride+x0]
		}
	}
	return out
}

// bilinear samples p at a fractional position, clamping to the edges.
func bilinear(p []float64, w, h int, x, y float64) float64 {
	x = math.Max(0, math.Min(x, float64(w-1)))
	y = math.Max(0, math.Min(y, float64(h-1)))
	x0, y0 := int(x), int(y)
	x1, y1 := min(x0+1, w-1), min(y0+1, h-1)
	fx, fy := x-float64(x0), y-float64(y0)

	top := p[y0*w+x0]*(1-fx) + p[y0*w+x1]*fx
	bottom := p[y1*w+x0]*(1-fx) + p[y1*w+x1]*fx
	return top*(1-fy) + bottom*fy
}
