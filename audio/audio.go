// Package audio implements the HBlank-edge sample tap the compact Mac
// uses for sound: one byte per scanline is pulled from a RAM-resident
// dual sound buffer near the end of RAM and pushed to the output
// channel, the same byte also driving the floppy drive's PWM spindle
// speed servo (spec.md §4.6).
package audio

// SampleBufferBytes is the number of successive bytes Sample reads from
// a buffer before its position wraps back to the start: 185 (370/2).
const SampleBufferBytes = 370 / 2

// Tap reads successive bytes from one of two RAM-resident sample
// buffers and forwards them to a sink, honoring whichever of main/alt
// the sound driver has selected.
type Tap struct {
	ram        []byte
	mainOffset uint32
	altOffset  uint32
	useAlt     bool
	pos        int

	sink func(sample byte)
	pwm  func(sample byte)
}

// NewTap wires the tap against the machine's RAM and the two
// conventional sound-buffer offsets.
func NewTap(ram []byte, mainOffset, altOffset uint32, sink func(byte), pwm func(byte)) *Tap {
	return &Tap{ram: ram, mainOffset: mainOffset, altOffset: altOffset, sink: sink, pwm: pwm}
}

func (t *Tap) SetBuffer(alt bool) { t.useAlt = alt }

// SetSink installs (or replaces) the per-sample callback the
// scheduler uses to forward bytes onto the audio output channel.
func (t *Tap) SetSink(fn func(byte)) { t.sink = fn }

func (t *Tap) activeOffset() uint32 {
	if t.useAlt {
		return t.altOffset
	}
	return t.mainOffset
}

// Sample pulls the next byte and forwards it to both the audio sink
// and the floppy PWM servo; called on every video HBlank edge.
func (t *Tap) Sample() {
	offset := t.activeOffset()
	idx := int(offset) + t.pos
	var b byte
	if idx >= 0 && idx < len(t.ram) {
		b = t.ram[idx]
	}
	t.pos = (t.pos + 1) % SampleBufferBytes
	if t.sink != nil {
		t.sink(b)
	}
	if t.pwm != nil {
		t.pwm(b)
	}
}
