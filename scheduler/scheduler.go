// Package scheduler owns the CPU, bus, and peripheral set behind a
// single cooperative tick loop: it batches CPU instructions, drains
// an incoming command channel, and publishes status/event messages
// out, per spec.md §4.5 and the concurrency model of §5. No locks
// guard the core's internals — Run is meant to execute on its own
// goroutine, communicating only through the Commands/Events channels.
package scheduler

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"mac68k"
	"mac68k/iwm"
	"mac68k/machine"

	"github.com/BurntSushi/toml"
	"github.com/davecgh/go-spew/spew"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// instructionsPerBatch bounds how many instructions Run executes
// before re-checking the command channel and wall-clock status timer
// (spec.md §4.5 step 2).
const instructionsPerBatch = 10_000

// statusInterval is how often a Status event is published while
// running (spec.md §4.5 step 3).
const statusInterval = 500 * time.Millisecond

// idleSleep is how long Run sleeps per iteration while stopped, to
// yield the host CPU (spec.md §4.5 step 4).
const idleSleep = 100 * time.Millisecond

// Config is the TOML-loadable configuration selecting the machine
// variant, boot ROM, and initial media (spec.md §2's "(added)
// Configuration" ambient-stack note).
type Config struct {
	Variant string `toml:"variant"` // "compact" or "macii"
	ROMPath string `toml:"rom_path"`

	RAMBytes      int  `toml:"ram_bytes"`
	HasSCSI       bool `toml:"has_scsi"`
	HasADB        bool `toml:"has_adb"`
	ByBitOverlay  bool `toml:"overlay_by_via_bit"`
	DoubleSided   bool `toml:"double_sided_drives"`
	DrivesPresent int  `toml:"drives_present"`

	HasFPU  bool `toml:"has_fpu"`
	HasPMMU bool `toml:"has_pmmu"`

	Floppy0 string `toml:"floppy0"`
	Floppy1 string `toml:"floppy1"`
}

// LoadConfig reads and parses a TOML configuration file.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, errors.Wrapf(err, "scheduler: loading config %s", path)
	}
	return cfg, nil
}

// core is the subset of machine.Compact/machine.MacII the scheduler
// drives directly; both satisfy it without either needing to know
// about the other (spec.md §9.1's "sum type for per-model state").
type core interface {
	cpu() *mac68k.CPU
	tick(cycles int)
	peripherals() map[string]any
}

type compactCore struct{ m *machine.Compact }

func (c compactCore) cpu() *mac68k.CPU { return c.m.CPU }
func (c compactCore) tick(cycles int)  { c.m.TickPeripherals(cycles) }
func (c compactCore) peripherals() map[string]any {
	tree := map[string]any{"via": c.m.Via, "scc": c.m.Scc, "iwm": c.m.Iwm, "rtc": c.m.Rtc}
	if c.m.Scsi != nil {
		tree["scsi"] = c.m.Scsi
	}
	if c.m.Adb != nil {
		tree["adb"] = c.m.Adb
	}
	return tree
}

type maciiCore struct{ m *machine.MacII }

func (c maciiCore) cpu() *mac68k.CPU { return c.m.CPU }
func (c maciiCore) tick(cycles int)  { c.m.TickPeripherals(cycles) }
func (c maciiCore) peripherals() map[string]any {
	return map[string]any{"via": c.m.Via, "scc": c.m.Scc, "scsi": c.m.Scsi}
}

// Scheduler drives one machine instance. Construct with New, then run
// it on its own goroutine via Run; Commands/Events are the only
// thread-safe surface (spec.md §5).
type Scheduler struct {
	log zerolog.Logger

	cfg     Config
	compact *machine.Compact
	macii   *machine.MacII
	core    core

	Commands chan Command
	Events   chan Event

	running bool
	speed   SpeedMode

	instrHistory    bool
	peripheralDebug bool

	rec     recorder
	replay  *replayer

	quit bool
}

// New loads the boot ROM and assembles the configured machine
// variant. The returned Scheduler has not started running; send a
// Run command to begin instruction execution.
func New(log zerolog.Logger, cfg Config) (*Scheduler, error) {
	rom, err := os.ReadFile(cfg.ROMPath)
	if err != nil {
		return nil, errors.Wrapf(err, "scheduler: reading ROM %s", cfg.ROMPath)
	}

	s := &Scheduler{
		log:      log.With().Str("component", "scheduler").Logger(),
		cfg:      cfg,
		Commands: make(chan Command, 256),
		Events:   make(chan Event, 256),
	}

	switch cfg.Variant {
	case "macii":
		s.macii = machine.NewMacII(log, machine.MacIIOptions{
			ROM: rom, RAMBytes: cfg.RAMBytes, HasFPU: cfg.HasFPU, HasPMMU: cfg.HasPMMU,
		})
		s.core = maciiCore{s.macii}
		s.macii.Scc.SetTransmitHandlers(
			func(b byte) { s.emit(SccTransmitData{Channel: 'A', Data: []byte{b}}) },
			func(b byte) { s.emit(SccTransmitData{Channel: 'B', Data: []byte{b}}) },
		)
	case "compact", "":
		s.compact = machine.NewCompact(log, machine.CompactOptions{
			Model: mac68k.M68000, ROM: rom, RAMBytes: cfg.RAMBytes,
			HasSCSI: cfg.HasSCSI, HasADB: cfg.HasADB, ByBitOverlay: cfg.ByBitOverlay,
			DoubleSided: cfg.DoubleSided, DrivesPresent: cfg.DrivesPresent,
		})
		s.core = compactCore{s.compact}
		s.compact.Scc.SetTransmitHandlers(
			func(b byte) { s.emit(SccTransmitData{Channel: 'A', Data: []byte{b}}) },
			func(b byte) { s.emit(SccTransmitData{Channel: 'B', Data: []byte{b}}) },
		)
	default:
		return nil, errors.Errorf("scheduler: unknown machine variant %q", cfg.Variant)
	}

	if s.compact != nil {
		if cfg.Floppy0 != "" {
			if err := s.insertFloppy(0, cfg.Floppy0, false); err != nil {
				s.log.Warn().Err(err).Msg("could not insert initial floppy0")
			}
		}
		if cfg.Floppy1 != "" {
			if err := s.insertFloppy(1, cfg.Floppy1, false); err != nil {
				s.log.Warn().Err(err).Msg("could not insert initial floppy1")
			}
		}
	}

	return s, nil
}

// Run is the scheduler's tick loop. It blocks until a Quit command is
// received, so callers run it on a dedicated goroutine.
func (s *Scheduler) Run() {
	lastStatus := time.Now()
	for !s.quit {
		s.drainCommands()
		if s.quit {
			break
		}

		if s.running {
			s.runBatch()
		}

		if time.Since(lastStatus) >= statusInterval {
			s.publishStatus()
			lastStatus = time.Now()
		}

		if !s.running {
			time.Sleep(idleSleep)
		}
	}
	s.log.Info().Msg("scheduler stopped")
}

func (s *Scheduler) runBatch() {
	cpu := s.core.cpu()
	for i := 0; i < instructionsPerBatch && s.running; i++ {
		cycles := cpu.Step()
		s.core.tick(cycles)
		if cpu.GetClearBreakpointHit() {
			s.running = false
			cpu.ClearTransientBreakpoints()
			s.publishStatus()
			break
		}
		s.replayDue(cpu.Cycles())
	}
}

func (s *Scheduler) replayDue(cycle uint64) {
	if s.replay == nil {
		return
	}
	for _, cmd := range s.replay.due(cycle) {
		s.apply(cmd)
	}
	if s.replay.finished() {
		s.replay = nil
	}
}

func (s *Scheduler) drainCommands() {
	for {
		select {
		case cmd := <-s.Commands:
			s.rec.capture(s.core.cpu().Cycles(), cmd)
			s.apply(cmd)
		default:
			return
		}
	}
}

func (s *Scheduler) publishStatus() {
	status := Status{
		Registers: s.core.cpu().Registers(),
		Cycles:    s.core.cpu().Cycles(),
		Running:   s.running,
		Speed:     s.speed,
	}
	if s.compact != nil {
		for i := 0; i < 2; i++ {
			d := s.compact.Iwm.Drive(i)
			if d == nil {
				continue
			}
			status.FloppyDriveStates = append(status.FloppyDriveStates, FloppyState{
				Present:  d.Present(),
				Inserted: d.Inserted(),
				Track:    d.Track(),
				Motor:    d.Motor(),
			})
		}
		s.compact.Bus.DrainDirtyPages(func(page uint) {
			status.DirtyPages = append(status.DirtyPages, page)
		})
	}
	if s.instrHistory {
		s.emit(InstructionHistory{Entries: s.core.cpu().History()})
	}
	if s.peripheralDebug {
		status.PeripheralDebugTree = s.dumpPeripherals()
	}
	s.emit(status)
}

// dumpPeripherals renders each peripheral's internal state with
// go-spew, keyed by name, for the SetPeripheralDebug console view
// (spec.md §6.2's PeripheralDebug tree). Dumps rather than live struct
// references so the Events consumer can't race the next tick.
func (s *Scheduler) dumpPeripherals() map[string]any {
	tree := make(map[string]any, 8)
	for name, v := range s.core.peripherals() {
		tree[name] = spew.Sdump(v)
	}
	return tree
}

func (s *Scheduler) emit(e Event) {
	select {
	case s.Events <- e:
	default:
		s.log.Warn().Msg("event channel full, dropping event")
	}
}

func (s *Scheduler) fatal(context string, err error) {
	s.emit(UserMessage{Error: true, Message: fmt.Sprintf("%s: %s", context, err)})
}

func (s *Scheduler) insertFloppy(drive int, path string, writeProtected bool) error {
	if s.compact == nil {
		return errors.New("scheduler: floppy drives require the compact machine variant")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "iwm: reading floppy image %s", path)
	}
	d := s.compact.Iwm.Drive(drive)
	if d == nil {
		return errors.Errorf("iwm: drive %d not present", drive)
	}
	if len(data) == 0 {
		return errors.Errorf("iwm: %s is empty", path)
	}
	// Decoding the sector image into GCR track bit-streams is a
	// shell-side concern (DESIGN.md); the core mounts a correctly
	// sized, blank-formatted image so insert/eject/write-protect and
	// sense-line behavior are all observable without that codec.
	d.InsertImage(iwm.NewImage(filepath.Base(path), d.DoubleSided()))
	d.SetWriteProtected(writeProtected)
	return nil
}

// insertFloppyImage mounts an already-in-memory image buffer (the
// InsertFloppyImage command, used when the shell has the bytes
// without a backing file). Same scope boundary as insertFloppy: the
// bytes themselves are not decoded into track data here.
func (s *Scheduler) insertFloppyImage(drive int, data []byte) error {
	if s.compact == nil {
		return errors.New("scheduler: floppy drives require the compact machine variant")
	}
	d := s.compact.Iwm.Drive(drive)
	if d == nil {
		return errors.Errorf("iwm: drive %d not present", drive)
	}
	if len(data) == 0 {
		return errors.New("iwm: empty floppy image")
	}
	d.InsertImage(iwm.NewImage("memory image", d.DoubleSided()))
	d.SetWriteProtected(false)
	return nil
}
