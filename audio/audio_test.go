package audio

import "testing"

func TestAudioSamplePullsFromActiveBuffer(t *testing.T) {
	ram := make([]byte, 0x10000)
	const mainOff, altOff = 0x100, 0x200
	ram[mainOff] = 0x11
	ram[altOff] = 0x22

	var got []byte
	tap := NewTap(ram, mainOff, altOff, func(b byte) { got = append(got, b) }, nil)

	tap.Sample()
	if len(got) != 1 || got[0] != 0x11 {
		t.Errorf("expected main-buffer sample 0x11, got %v", got)
	}

	tap.SetBuffer(true)
	tap.Sample()
	if len(got) != 2 || got[1] != 0x22 {
		t.Errorf("expected alt-buffer sample 0x22 after SetBuffer(true), got %v", got)
	}
}

func TestAudioSampleDrivesPwmSink(t *testing.T) {
	ram := make([]byte, 0x10000)
	ram[0] = 0x7F

	var pwmGot byte
	tap := NewTap(ram, 0, 0, nil, func(b byte) { pwmGot = b })
	tap.Sample()

	if pwmGot != 0x7F {
		t.Errorf("expected PWM sink to receive 0x7f, got %#x", pwmGot)
	}
}

func TestAudioPositionWrapsAtBufferLength(t *testing.T) {
	ram := make([]byte, 0x10000)
	for i := 0; i < SampleBufferBytes; i++ {
		ram[i] = byte(i)
	}

	var got []byte
	tap := NewTap(ram, 0, 0, func(b byte) { got = append(got, b) }, nil)
	for i := 0; i < SampleBufferBytes+1; i++ {
		tap.Sample()
	}

	if got[0] != got[SampleBufferBytes] {
		t.Errorf("expected sample position to wrap after %d samples", SampleBufferBytes)
	}
}
