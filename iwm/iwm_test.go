package iwm

import (
	"testing"

	"github.com/rs/zerolog"
)

// lineAddr returns the (already +1'd odd) offset that toggles the given
// CA0/CA1/CA2/LSTRB/ENABLE/EXTDRIVE/Q6/Q7 access slot per Iwm.access.
func lineAddr(slot int) uint32 { return uint32(slot)*512 + 1 }

func TestIwmControlLineAccess(t *testing.T) {
	iw := New(zerolog.Nop(), 2, false)

	iw.Read(lineAddr(1)) // CA0 set
	iw.Read(lineAddr(3)) // CA1 set
	iw.Read(lineAddr(13)) // Q6 set
	if !iw.ca0 || !iw.ca1 || !iw.q6 {
		t.Fatal("expected CA0/CA1/Q6 set after their access slots were read")
	}

	iw.Read(lineAddr(0)) // CA0 clear
	if iw.ca0 {
		t.Error("expected CA0 clear after its clear slot was read")
	}
}

func TestIwmEvenAddressDoesNotTouchState(t *testing.T) {
	iw := New(zerolog.Nop(), 2, false)
	iw.Read(lineAddr(1)) // CA0 set
	before := iw.ca0

	v, wait := iw.Read(lineAddr(1) - 1) // even address
	if wait {
		t.Error("even address reads should not assert WaitState")
	}
	if v != 0 {
		t.Errorf("even address read = %#x, want 0", v)
	}
	if iw.ca0 != before {
		t.Error("even address read should not change control line state")
	}
}

func TestIwmSenseRegisterDiskIn(t *testing.T) {
	iw := New(zerolog.Nop(), 2, false)

	// q6 set, q7 clear selects the sense register; SEL set (bit0) with
	// CA2/CA1/CA0 clear selects register 0001 = RegDiskIn.
	iw.Read(lineAddr(13)) // q6 = true
	iw.SetSel(true)

	status, _ := iw.Read(lineAddr(13))
	if status&0x80 == 0 {
		t.Error("expected RegDiskIn sense bit set (no disk inserted) with no image mounted")
	}

	iw.Drive(0).InsertImage(NewImage("test", false))

	status, _ = iw.Read(lineAddr(13))
	if status&0x80 != 0 {
		t.Error("expected RegDiskIn sense bit clear once a disk image is inserted")
	}
}

func TestIwmMotorCommandViaLstrb(t *testing.T) {
	iw := New(zerolog.Nop(), 2, false)
	iw.Drive(0).InsertImage(NewImage("test", false))

	// Select WriteRegMotorOn (0b0100): ca1=true, ca2=false, ca0=false, sel=false.
	iw.Read(lineAddr(3)) // ca1 = true
	iw.Read(lineAddr(7)) // lstrb strobe -> issues the selected write command

	if !iw.Drive(0).running() {
		t.Error("expected drive 0 motor on and running after a WriteRegMotorOn strobe")
	}
}

func TestIwmModeRegisterAndWriteBufferLatch(t *testing.T) {
	iw := New(zerolog.Nop(), 2, false)

	iw.Read(lineAddr(13)) // q6 = true
	iw.Read(lineAddr(15)) // q7 = true -> mode register selected, not enabled

	iw.Write(lineAddr(15)-1, 0x1A) // write mode (enable clear)
	if iw.mode != 0x1A&0x1F {
		t.Errorf("mode register = %#x, want %#x", iw.mode, 0x1A&0x1F)
	}

	iw.Read(lineAddr(9)) // enable = true
	iw.Write(lineAddr(15)-1, 0x42)
	if iw.writeBuffer == nil || *iw.writeBuffer != 0x42 {
		t.Error("expected a write with enable set to latch the write buffer")
	}
}

func TestIwmReset(t *testing.T) {
	iw := New(zerolog.Nop(), 2, false)
	iw.Drive(0).InsertImage(NewImage("test", false))
	iw.Read(lineAddr(1))
	iw.Read(lineAddr(9))

	iw.Reset()

	if iw.ca0 || iw.enable {
		t.Error("expected control lines cleared after Reset")
	}
	if !iw.Drive(0).floppyInserted {
		t.Error("Reset should not eject a mounted disk")
	}
}

func TestIwmWriteProtectSenseLine(t *testing.T) {
	iw := New(zerolog.Nop(), 1, false)
	d := iw.Drive(0)
	d.InsertImage(NewImage("test", false))

	// Select WriteProt (0b0011): ca0=true, sel=true, ca1/ca2=false.
	iw.Read(lineAddr(1)) // ca0 = true
	iw.SetSel(true)
	iw.Read(lineAddr(13)) // q6 = true -> sense register

	status, _ := iw.Read(lineAddr(13))
	if status&0x80 == 0 {
		t.Error("expected write-protect sense bit set (writable) for a freshly inserted image")
	}

	d.SetWriteProtected(true)
	status, _ = iw.Read(lineAddr(13))
	if status&0x80 != 0 {
		t.Error("expected write-protect sense bit clear once SetWriteProtected(true)")
	}
}

func TestDriveForceEjectUnmountsImmediately(t *testing.T) {
	iw := New(zerolog.Nop(), 1, false)
	d := iw.Drive(0)
	d.InsertImage(NewImage("test", false))

	d.ForceEject()

	if d.Inserted() {
		t.Error("expected ForceEject to unmount the image immediately")
	}
}

func TestIwmFluxTrackProducesBits(t *testing.T) {
	iw := New(zerolog.Nop(), 1, false)
	d := iw.Drive(0)
	img := NewImage("flux-test", false)
	// A run of evenly spaced transitions at the nominal slow/7MHz cell
	// length, long enough to cycle several times.
	transitions := make([]int, 64)
	for i := range transitions {
		transitions[i] = 16
	}
	img.SetTrack(0, d.Track(), NewFluxTrack(transitions))
	d.InsertImage(img)

	// Select WriteRegMotorOn, same sequence as TestIwmMotorCommandViaLstrb.
	iw.Read(lineAddr(3)) // ca1 = true
	iw.Read(lineAddr(7)) // lstrb strobe

	if !d.running() {
		t.Fatal("expected drive running after motor-on strobe")
	}
	if !d.isFluxTrack(0) {
		t.Fatal("expected the inserted track to report TrackFlux")
	}

	for i := uint64(0); i < 4000; i++ {
		iw.Tick(i)
	}

	if d.fluxTicksLeft == 0 && d.fluxTicks == 0 {
		t.Error("expected tickFlux to have loaded an interval by now")
	}
	// Each one-cell interval shifts a single 1 bit; eight of them frame
	// a 0xFF byte into the data register.
	if iw.dataReg != 0xFF {
		t.Errorf("data register = %#x, want 0xff after a run of one-cell transitions", iw.dataReg)
	}
}

func TestIwmPushPWMIgnoredByDoubleSidedDrive(t *testing.T) {
	iw := New(zerolog.Nop(), 1, true)
	before := iw.Drive(0).pwmDuty
	for i := 0; i < 200; i++ {
		iw.PushPWM(32)
	}
	if iw.Drive(0).pwmDuty != before {
		t.Error("expected a double-sided drive to ignore PWM samples")
	}
}
