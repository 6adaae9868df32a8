package adb

import "testing"

type fakeDevice struct {
	polled   []int
	listened map[int][]byte
	reply    []byte
}

func (f *fakeDevice) Poll(register int) []byte {
	f.polled = append(f.polled, register)
	return f.reply
}

func (f *fakeDevice) Listen(register int, data []byte) {
	if f.listened == nil {
		f.listened = map[int][]byte{}
	}
	f.listened[register] = data
}

func TestAdbTalkTransaction(t *testing.T) {
	tr := New()
	dev := &fakeDevice{reply: []byte{0x11, 0x22}}
	tr.Attach(3, dev)

	tr.ShiftCommand(byte(3<<4) | byte(3<<2)) // address 3, Talk, register 0
	if tr.Phase() != PhaseTalk {
		t.Fatalf("expected PhaseTalk after a Talk command, got %v", tr.Phase())
	}

	b1, ok := tr.ShiftTalkData()
	if !ok || b1 != 0x11 {
		t.Errorf("first talk byte = %#x, ok=%v, want 0x11, true", b1, ok)
	}
	b2, ok := tr.ShiftTalkData()
	if !ok || b2 != 0x22 {
		t.Errorf("second talk byte = %#x, ok=%v, want 0x22, true", b2, ok)
	}
	if _, ok := tr.ShiftTalkData(); ok {
		t.Error("expected exhausted reply buffer to report ok=false")
	}
}

func TestAdbListenTransaction(t *testing.T) {
	tr := New()
	dev := &fakeDevice{}
	tr.Attach(5, dev)

	tr.ShiftCommand(byte(5<<4) | byte(2<<2) | 1) // address 5, Listen, register 1
	if tr.Phase() != PhaseListen {
		t.Fatalf("expected PhaseListen after a Listen command, got %v", tr.Phase())
	}
	tr.ShiftListenData(0x7F)

	if got := dev.listened[1]; len(got) != 1 || got[0] != 0x7F {
		t.Errorf("expected device to receive [0x7f] on register 1, got %v", got)
	}
}

func TestAdbReset(t *testing.T) {
	tr := New()
	dev := &fakeDevice{}
	tr.Attach(1, dev)

	tr.ShiftCommand(0x00) // Reset
	if tr.Phase() != PhaseIdle {
		t.Errorf("expected PhaseIdle after a Reset command, got %v", tr.Phase())
	}
	if _, ok := dev.listened[0]; !ok {
		t.Error("expected Reset to notify every attached device via Listen(0, nil)")
	}
}
