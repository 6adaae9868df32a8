// Package video implements the compact Mac's video generator: a
// RAM-resident 1-bit-per-pixel framebuffer scanned out at a fixed
// pixel clock and transcribed to the frame channel once per VBlank.
// Per spec.md's Non-goals this package stops at transcription — the
// CRT's actual analog timing and geometry are not modeled, only the
// byte contents of the active framebuffer and the HBlank/VBlank edges
// the rest of the machine synchronizes peripheral sampling to.
package video

// Standard compact-Mac display geometry: 512x342 1bpp, giving a
// 21,888-byte (342 * 64) framebuffer.
const (
	Width      = 512
	Height     = 342
	BytesPerRow = Width / 8
	FrameBytes  = BytesPerRow * Height

	// pixelClocksPerLine/linesPerFrame approximate the real CRT timing
	// closely enough to derive HBlank/VBlank edges at the right rate
	// (60.15 Hz field rate) without claiming cycle-exact video timing.
	pixelClocksPerLine = 704
	linesPerFrame       = 370
)

// Generator scans out the framebuffer at twice the CPU clock
// (spec.md §4.6) and emits a copy of the active buffer's bytes on
// every VBlank edge.
type Generator struct {
	ram        []byte
	mainOffset uint32
	altOffset  uint32
	useAlt     bool

	pixelClock uint64
	line       int
	onHBlank   func()
	onVBlank   func([]byte)
}

// NewGenerator wires the generator against the machine's RAM backing
// store; mainOffset/altOffset are the two framebuffer locations near
// the end of RAM the ROM can switch between.
func NewGenerator(ram []byte, mainOffset, altOffset uint32, onHBlank func(), onVBlank func([]byte)) *Generator {
	return &Generator{ram: ram, mainOffset: mainOffset, altOffset: altOffset, onHBlank: onHBlank, onVBlank: onVBlank}
}

// SetOnVBlank installs (or replaces) the callback fired with a copy
// of the active framebuffer at the end of every field; the scheduler
// uses this to forward frames onto the bounded frame channel.
func (g *Generator) SetOnVBlank(fn func([]byte)) { g.onVBlank = fn }

// SetBuffer selects which of the two framebuffers is currently
// scanned out, the ROM's "alternate screen buffer" bit.
func (g *Generator) SetBuffer(alt bool) { g.useAlt = alt }

func (g *Generator) activeOffset() uint32 {
	if g.useAlt {
		return g.altOffset
	}
	return g.mainOffset
}

// Tick advances the pixel clock by 2 ticks per CPU cycle, firing
// onHBlank at the end of every scanline and onVBlank (with a copy of
// the active framebuffer) at the end of every field.
func (g *Generator) Tick(cpuCycles int) {
	for i := 0; i < cpuCycles; i++ {
		g.pixelClock += 2
		if g.pixelClock >= pixelClocksPerLine {
			g.pixelClock -= pixelClocksPerLine
			if g.onHBlank != nil {
				g.onHBlank()
			}
			g.line++
			if g.line >= linesPerFrame {
				g.line = 0
				g.render()
			}
		}
	}
}

func (g *Generator) render() {
	if g.onVBlank == nil {
		return
	}
	offset := g.activeOffset()
	if int(offset)+FrameBytes > len(g.ram) {
		return
	}
	frame := make([]byte, FrameBytes)
	copy(frame, g.ram[offset:offset+FrameBytes])
	g.onVBlank(frame)
}
