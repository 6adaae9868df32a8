package scheduler

import (
	"testing"

	"mac68k"
	"mac68k/machine"

	"github.com/rs/zerolog"
)

// newTestScheduler builds a Scheduler around a minimal compact machine,
// bypassing New/LoadConfig so no ROM file or config TOML is needed.
func newTestScheduler(t *testing.T) *Scheduler {
	t.Helper()
	rom := make([]byte, 0x1000)
	m := machine.NewCompact(zerolog.Nop(), machine.CompactOptions{
		Model: mac68k.M68000, ROM: rom, RAMBytes: 0x20000,
	})
	s := &Scheduler{
		log:      zerolog.Nop(),
		compact:  m,
		core:     compactCore{m},
		Commands: make(chan Command, 16),
		Events:   make(chan Event, 16),
	}
	return s
}

func TestSchedulerRunStopCommands(t *testing.T) {
	s := newTestScheduler(t)

	s.apply(Run{})
	if !s.running {
		t.Fatal("expected Run to set running=true")
	}
	s.apply(Stop{})
	if s.running {
		t.Fatal("expected Stop to set running=false")
	}
}

func TestSchedulerWriteRegister(t *testing.T) {
	s := newTestScheduler(t)

	s.apply(WriteRegister{Name: "D3", Value: 0x12345678})
	if got := s.core.cpu().Registers().D[3]; got != 0x12345678 {
		t.Errorf("D3 = %#x, want 0x12345678", got)
	}

	s.apply(WriteRegister{Name: "PC", Value: 0x4000})
	if got := s.core.cpu().Registers().PC; got != 0x4000 {
		t.Errorf("PC = %#x, want 0x4000", got)
	}
}

func TestSchedulerCpuSetPC(t *testing.T) {
	s := newTestScheduler(t)
	s.apply(CpuSetPC{PC: 0x8000})
	if got := s.core.cpu().Registers().PC; got != 0x8000 {
		t.Errorf("PC = %#x, want 0x8000", got)
	}
}

func TestSchedulerToggleBreakpointAddsAndRemoves(t *testing.T) {
	s := newTestScheduler(t)
	cpu := s.core.cpu()

	s.apply(ToggleBreakpoint{Address: 0x1000})
	bp := mac68k.Breakpoint{Kind: mac68k.BPExec, Addr: 0x1000}
	if !hasBreakpoint(cpu, bp) {
		t.Fatal("expected breakpoint set after first toggle")
	}

	s.apply(ToggleBreakpoint{Address: 0x1000})
	if hasBreakpoint(cpu, bp) {
		t.Fatal("expected breakpoint cleared after second toggle")
	}
}

func TestSchedulerSetSpeed(t *testing.T) {
	s := newTestScheduler(t)
	s.apply(SetSpeed{Mode: SpeedVideo})
	if s.speed != SpeedVideo {
		t.Errorf("speed = %v, want SpeedVideo", s.speed)
	}
}

func TestSchedulerSccReceiveData(t *testing.T) {
	s := newTestScheduler(t)
	s.apply(SccReceiveData{Channel: 'A', Data: []byte{0x42}})

	v, _ := s.compact.Scc.Read(3) // channel A data port
	if v != 0x42 {
		t.Errorf("expected SccReceiveData to deliver 0x42 to channel A, got %#x", v)
	}
}

func TestSchedulerInsertFloppyImageMountsBlankImage(t *testing.T) {
	rom := make([]byte, 0x1000)
	m := machine.NewCompact(zerolog.Nop(), machine.CompactOptions{
		Model: mac68k.M68000, ROM: rom, RAMBytes: 0x20000, DrivesPresent: 1,
	})
	s := &Scheduler{log: zerolog.Nop(), compact: m, core: compactCore{m},
		Commands: make(chan Command, 16), Events: make(chan Event, 16)}

	s.apply(InsertFloppyImage{Drive: 0, Image: []byte{0x01}})

	d := s.compact.Iwm.Drive(0)
	if d == nil {
		t.Fatal("expected drive 0 present")
	}
	if !d.Inserted() {
		t.Error("expected InsertFloppyImage to mount a blank image")
	}

	select {
	case e := <-s.Events:
		t.Fatalf("expected no fatal UserMessage event, got %#v", e)
	default:
	}
}

func TestSchedulerPublishStatusReportsFloppyDriveState(t *testing.T) {
	rom := make([]byte, 0x1000)
	m := machine.NewCompact(zerolog.Nop(), machine.CompactOptions{
		Model: mac68k.M68000, ROM: rom, RAMBytes: 0x20000, DrivesPresent: 1,
	})
	s := &Scheduler{log: zerolog.Nop(), compact: m, core: compactCore{m},
		Commands: make(chan Command, 16), Events: make(chan Event, 16)}

	s.apply(InsertFloppyImage{Drive: 0, Image: []byte{0x01}})
	s.publishStatus()

	select {
	case e := <-s.Events:
		status, ok := e.(Status)
		if !ok {
			t.Fatalf("expected Status event, got %T", e)
		}
		if len(status.FloppyDriveStates) != 2 {
			t.Fatalf("expected 2 floppy drive states (external slots 0 and 1), got %d", len(status.FloppyDriveStates))
		}
		if !status.FloppyDriveStates[0].Present || !status.FloppyDriveStates[0].Inserted {
			t.Errorf("expected drive 0 present and inserted, got %+v", status.FloppyDriveStates[0])
		}
		if status.FloppyDriveStates[1].Present {
			t.Errorf("expected drive 1 not present with DrivesPresent=1, got %+v", status.FloppyDriveStates[1])
		}
	default:
		t.Fatal("expected a Status event")
	}
}

func TestSchedulerEjectFloppyUnmountsDrive(t *testing.T) {
	rom := make([]byte, 0x1000)
	m := machine.NewCompact(zerolog.Nop(), machine.CompactOptions{
		Model: mac68k.M68000, ROM: rom, RAMBytes: 0x20000, DrivesPresent: 1,
	})
	s := &Scheduler{log: zerolog.Nop(), compact: m, core: compactCore{m},
		Commands: make(chan Command, 16), Events: make(chan Event, 16)}

	s.apply(InsertFloppyImage{Drive: 0, Image: []byte{0x01}})
	s.apply(EjectFloppy{Drive: 0})

	if s.compact.Iwm.Drive(0).Inserted() {
		t.Error("expected EjectFloppy to unmount the drive immediately")
	}

	select {
	case e := <-s.Events:
		if _, ok := e.(FloppyEjected); !ok {
			t.Errorf("expected FloppyEjected event, got %T", e)
		}
	default:
		t.Fatal("expected a FloppyEjected event")
	}
}

func TestSchedulerQuit(t *testing.T) {
	s := newTestScheduler(t)
	s.apply(Quit{})
	if !s.quit {
		t.Fatal("expected Quit to set quit=true")
	}
}

func TestSchedulerStartStopRecordingEmitsRecordedInput(t *testing.T) {
	s := newTestScheduler(t)
	s.apply(StartRecordingInput{})
	s.rec.capture(s.core.cpu().Cycles(), MouseUpdateRelative{DX: 1, DY: 2})
	s.apply(EndRecordingInput{})

	select {
	case e := <-s.Events:
		ri, ok := e.(RecordedInput)
		if !ok {
			t.Fatalf("expected RecordedInput event, got %T", e)
		}
		if len(ri.Commands) != 1 {
			t.Errorf("expected 1 recorded command, got %d", len(ri.Commands))
		}
	default:
		t.Fatal("expected an event on EndRecordingInput")
	}
}

func TestRecorderCapturesOnlyInputCommands(t *testing.T) {
	var r recorder
	r.start()
	r.capture(10, MouseUpdateRelative{DX: 1, DY: 1})
	r.capture(20, Run{})
	r.capture(30, KeyEvent{Code: 5, Pressed: true})

	log := r.stop()
	if len(log) != 2 {
		t.Fatalf("expected 2 captured input commands, got %d", len(log))
	}
}

func TestReplayerDueOrdersByRelativeCycle(t *testing.T) {
	cmds := []RecordedCommand{
		{Cycle: 100, Command: MouseUpdateRelative{DX: 1}},
		{Cycle: 150, Command: MouseUpdateRelative{DX: 2}},
	}
	r := newReplayer(cmds, 1000)

	if due := r.due(1000); len(due) != 1 {
		t.Fatalf("expected 1 due command at base cycle, got %d", len(due))
	}
	if r.finished() {
		t.Fatal("expected replayer not finished after the first command")
	}
	if due := r.due(1060); len(due) != 1 {
		t.Fatalf("expected the second command due 50 cycles later, got %d", len(due))
	}
	if !r.finished() {
		t.Fatal("expected replayer finished after both commands delivered")
	}
}

func TestIsCallOpcode(t *testing.T) {
	cases := map[uint16]bool{
		0x4E80: true,  // JSR opcode pattern, EA field zero
		0x4EB8: true,  // JSR abs.W
		0x6100: true,  // BSR.W (displacement byte 0)
		0x61FF: true,  // BSR.B displacement
		0x4E71: false, // NOP
		0x7000: false, // MOVEQ
	}
	for word, want := range cases {
		if got := isCallOpcode(word); got != want {
			t.Errorf("isCallOpcode(%#04x) = %v, want %v", word, got, want)
		}
	}
}
