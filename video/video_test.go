package video

import "testing"

func TestVideoHBlankFiresPerScanline(t *testing.T) {
	ram := make([]byte, 0x10000)
	hblanks := 0
	g := NewGenerator(ram, 0, 0, func() { hblanks++ }, nil)

	g.Tick(pixelClocksPerLine / 2)

	if hblanks != 1 {
		t.Errorf("expected 1 HBlank after one scanline's worth of cycles, got %d", hblanks)
	}
}

func TestVideoVBlankCopiesActiveFramebuffer(t *testing.T) {
	ram := make([]byte, 0x10000)
	const mainOff, altOff = 0x100, 0x8000
	for i := 0; i < FrameBytes; i++ {
		ram[mainOff+i] = 0xAA
		ram[altOff+i] = 0x55
	}

	var got []byte
	g := NewGenerator(ram, mainOff, altOff, nil, func(frame []byte) { got = frame })

	g.Tick((pixelClocksPerLine / 2) * linesPerFrame)

	if got == nil {
		t.Fatal("expected onVBlank to fire after a full field")
	}
	if got[0] != 0xAA || got[len(got)-1] != 0xAA {
		t.Errorf("expected main-buffer bytes (0xaa), got %#x..%#x", got[0], got[len(got)-1])
	}

	g.SetBuffer(true)
	got = nil
	g.Tick((pixelClocksPerLine / 2) * linesPerFrame)
	if got == nil || got[0] != 0x55 {
		t.Errorf("expected alt-buffer bytes (0x55) after SetBuffer(true), got %v", got)
	}
}

func TestVideoNoOnVBlankCallbackDoesNotPanic(t *testing.T) {
	ram := make([]byte, 0x10000)
	g := NewGenerator(ram, 0, 0, nil, nil)
	g.Tick((pixelClocksPerLine / 2) * linesPerFrame)
}
