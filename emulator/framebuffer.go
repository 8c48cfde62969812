package emulator

const (
	LowResW  = 64
	LowResH  = 32
	HighResW = 128
	HighResH = 64
)

// EdgePolicy decides what happens to sprite pixels that run past the
// viewport edge.
type EdgePolicy int

const (
	// ClampEdges stops advancing at the last column and row, so the rest of
	// the sprite is drawn over them again.
	ClampEdges EdgePolicy = iota
	// ClipEdges drops pixels outside the viewport.
	ClipEdges
)

// Framebuffer is a monochrome pixel grid. Pixels are toggled by XOR drawing.
type Framebuffer struct {
	w, h int
	pix  []bool
}

func NewFramebuffer(w, h int) *Framebuffer {
	return &Framebuffer{w: w, h: h, pix: make([]bool, w*h)}
}

func (f *Framebuffer) Width() int { return f.w }
func (f *Framebuffer) Height() int { return f.h }

// Pixel reports whether (x, y) is lit. Coordinates outside the grid are unlit.
func (f *Framebuffer) Pixel(x, y int) bool {
	if x < 0 || y < 0 || x >= f.w || y >= f.h {
		return false
	}
	return f.pix[y*f.w+x]
}

// Lit counts the lit pixels.
func (f *Framebuffer) Lit() int {
	n := 0
	for _, p := range f.pix {
		if p {
			n++
		}
	}
	return n
}

func (f *Framebuffer) Clear() {
	for i := range f.pix {
		f.pix[i] = false
	}
}

func (f *Framebuffer) set(x, y int, on bool) {
	f.pix[y*f.w+x] = on
}

// toggle flips (x, y) and reports whether a lit pixel was turned off.
func (f *Framebuffer) toggle(x, y int) bool {
	i := y*f.w + x
	was := f.pix[i]
	f.pix[i] = !was
	return was
}

// DrawSprite XORs sprite data into the top-left vw x vh viewport of f. Each
// row of the sprite is bytesPerRow bytes wide. The origin is reduced modulo
// the viewport; under ClipEdges dx and dy are added to every pixel position.
// It returns whether any lit pixel was turned off and whether anything changed.
func (f *Framebuffer) DrawSprite(data []uint8, bytesPerRow, x, y, vw, vh, dx, dy int, edge EdgePolicy) (collided, changed bool) {
	if bytesPerRow <= 0 {
		return false, false
	}
	if vw > f.w {
		vw = f.w
	}
	if vh > f.h {
		vh = f.h
	}
	rows := len(data) / bytesPerRow
	bits := bytesPerRow * 8
	x0 := x % vw
	y0 := y % vh

	if edge == ClampEdges {
		py := y0
		for r := 0; r < rows; r++ {
			px := x0
			for b := 0; b < bits; b++ {
				if spriteBit(data, r*bytesPerRow, b) {
					changed = true
					if f.toggle(px, py) {
						collided = true
					}
				}
				if px < vw-1 {
					px++
				}
			}
			if py < vh-1 {
				py++
			}
		}
		return collided, changed
	}

	for r := 0; r < rows; r++ {
		py := y0 + dy + r
		if py < 0 || py >= vh {
			continue
		}
		for b := 0; b < bits; b++ {
			px := x0 + dx + b
			if px < 0 || px >= vw {
				continue
			}
			if spriteBit(data, r*bytesPerRow, b) {
				changed = true
				if f.toggle(px, py) {
					collided = true
				}
			}
		}
	}
	return collided, changed
}

func spriteBit(data []uint8, row, b int) bool {
	return (data[row+b/8]>>(7-uint(b%8)))&0x01 == 1
}
