package motion

import (
	"image"
	"math"

	"github.com/kikiluvv/motionbeat/internal/video"
)

// luma uses the ITU-R BT.601 weights in 14-bit fixed point.
func luma(r, g, b uint8) uint8 {
	return uint8((uint32(r)*4899 + uint32(g)*9617 + uint32(b)*1868 + 1<<13) >> 14)
}

func toGray(f *video.Frame) *image.Gray {
	g := image.NewGray(f.Bounds())
	for i, j := 0, 0; j < len(g.Pix); i, j = i+3, j+1 {
		g.Pix[j] = luma(f.Pix[i], f.Pix[i+1], f.Pix[i+2])
	}
	return g
}

// absDiffGray differences each channel before converting to luma.
func absDiffGray(a, b *video.Frame) *image.Gray {
	g := image.NewGray(a.Bounds())
	for i, j := 0, 0; j < len(g.Pix); i, j = i+3, j+1 {
		g.Pix[j] = luma(absDiff(a.Pix[i], b.Pix[i]), absDiff(a.Pix[i+1], b.Pix[i+1]), absDiff(a.Pix[i+2], b.Pix[i+2]))
	}
	return g
}

func absDiff(a, b uint8) uint8 {
	if a > b {
		return a - b
	}
	return b - a
}

// gaussianKernel derives sigma from the kernel size.
func gaussianKernel(size int) []float64 {
	sigma := 0.3*(float64(size-1)*0.5-1) + 0.8
	k := make([]float64, size)
	half := size / 2
	var sum float64
	for i := range k {
		d := float64(i - half)
		k[i] = math.Exp(-(d * d) / (2 * sigma * sigma))
		sum += k[i]
	}
	for i := range k {
		k[i] /= sum
	}
	return k
}

// reflect101 mirrors out-of-range indices without repeating the edge pixel.
func reflect101(i, n int) int {
	if n == 1 {
		return 0
	}
	for i < 0 || i >= n {
		if i < 0 {
			i = -i
		}
		if i >= n {
			i = 2*n - 2 - i
		}
	}
	return i
}

func gaussianBlur(src *image.Gray, size int) *image.Gray {
	if size <= 1 {
		return src
	}
	w, h := src.Rect.Dx(), src.Rect.Dy()
	k := gaussianKernel(size)
	half := size / 2

	tmp := make([]float64, w*h)
	for y := 0; y < h; y++ {
		row := src.Pix[y*src.Stride:]
		for x := 0; x < w; x++ {
			var acc float64
			for i, kv := range k {
				acc += kv * float64(row[reflect101(x+i-half, w)])
			}
			tmp[y*w+x] = acc
		}
	}

	dst := image.NewGray(src.Rect)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var acc float64
			for i, kv := range k {
				acc += kv * tmp[reflect101(y+i-half, h)*w+x]
			}
			dst.Pix[y*dst.Stride+x] = uint8(min(math.Round(acc), 255))
		}
	}
	return dst
}

// threshold sets pixels strictly above t to 255 and the rest to 0, in place.
func threshold(img *image.Gray, t uint8) *image.Gray {
	for i, v := range img.Pix {
		if v > t {
			img.Pix[i] = 255
		} else {
			img.Pix[i] = 0
		}
	}
	return img
}

// dilate applies a 3x3 rectangular max filter iterations times.
func dilate(src *image.Gray, iterations int) *image.Gray {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	cur := src
	for it := 0; it < iterations; it++ {
		horiz := image.NewGray(src.Rect)
		for y := 0; y < h; y++ {
			row := cur.Pix[y*cur.Stride : y*cur.Stride+w]
			out := horiz.Pix[y*horiz.Stride:]
			for x := 0; x < w; x++ {
				m := row[x]
				if x > 0 {
					m = max(m, row[x-1])
				}
				if x < w-1 {
					m = max(m, row[x+1])
				}
				out[x] = m
			}
		}

		next := image.NewGray(src.Rect)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				m := horiz.Pix[y*horiz.Stride+x]
				if y > 0 {
					m = max(m, horiz.Pix[(y-1)*horiz.Stride+x])
				}
				if y < h-1 {
					m = max(m, horiz.Pix[(y+1)*horiz.Stride+x])
				}
				next.Pix[y*next.Stride+x] = m
			}
		}
		cur = next
	}
	return cur
}

// findRegions labels 8-connected components of non-zero pixels in raster order.
func findRegions(mask *image.Gray) []Region {
	w, h := mask.Rect.Dx(), mask.Rect.Dy()
	seen := make([]bool, w*h)
	var regions []Region
	var stack []int

	for start := 0; start < w*h; start++ {
		if seen[start] || mask.Pix[(start/w)*mask.Stride+start%w] == 0 {
			continue
		}

		minX, minY, maxX, maxY := w, h, -1, -1
		area := 0
		seen[start] = true
		stack = append(stack[:0], start)

		for len(stack) > 0 {
			p := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			x, y := p%w, p/w
			area++
			minX, maxX = min(minX, x), max(maxX, x)
			minY, maxY = min(minY, y), max(maxY, y)

			for dy := -1; dy <= 1; dy++ {
				ny := y + dy
				if ny < 0 || ny >= h {
					continue
				}
				for dx := -1; dx <= 1; dx++ {
					nx := x + dx
					if nx < 0 || nx >= w {
						continue
					}
					q := ny*w + nx
					if seen[q] || mask.Pix[ny*mask.Stride+nx] == 0 {
						continue
					}
					seen[q] = true
					stack = append(stack, q)
				}
			}
		}

		regions = append(regions, Region{
			Box:  image.Rect(minX, minY, maxX+1, maxY+1),
			Area: float64(area),
		})
	}
	return regions
}
