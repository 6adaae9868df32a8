package mac68k

import "github.com/bits-and-blooms/bitset"

// ramDirtyPageSize is the granularity of the SystemBus's dirty-page
// tracking, matching the original Rust emulator's RAM_DIRTY_PAGESIZE
// (core/src/mac/compact/bus.rs) so the scheduler's Memory{addr,bytes}
// event can be chunked the same way a debugger front end expects.
const ramDirtyPageSize = 256

// mapping associates an inclusive physical address range with a Region.
// SystemBus.Map registers these in decode order; the first mapping
// whose range contains the address wins, mirroring the teacher-pack
// original's match-arm address decode (compact/bus.rs read_normal).
type mapping struct {
	start, end uint32
	region     Region
	dirty      bool // true for the RAM mapping: writes mark ramDirty
	dirtyBase  uint32
}

// SystemBus is the generic byte-granular Bus fabric every Mac model
// variant (machine.Compact, machine.MacII) assembles from Region
// mappings. It implements the mac68k.Bus contract the CPU core consumes,
// plus the overlay-mode address remap compact Macs need at reset
// (spec.md §4.1/§4.4).
type SystemBus struct {
	mappings        []mapping
	overlayMappings []mapping
	overlay         bool

	// ramDirty tracks which 256-byte RAM pages were written since the
	// last drain, for the scheduler's Memory{addr,bytes} event. Indexed
	// by (addr-ramBase)/ramDirtyPageSize for the mapping registered via
	// MapRAM.
	ramDirty *bitset.BitSet

	// openBus holds the last byte value latched on each half of the
	// 16-bit data bus, returned on reads from any unmapped address
	// (spec.md §6.5's open-bus echo).
	openBus [2]byte

	// cycle is the CPU's total cycle count as of the most recent
	// ReadCycle/WriteCycle call, for regions (the VIA E-clock wrapper)
	// that need to know bus timing to decide WaitState.
	cycle uint64
}

// NewSystemBus creates an empty bus with no mappings. Callers (the
// machine package) register regions with Map/MapOverlay/MapRAM before
// wiring the bus into mac68k.New.
func NewSystemBus() *SystemBus {
	return &SystemBus{ramDirty: bitset.New(0)}
}

// Map registers a region for the given inclusive address range, active
// whenever overlay mode is off (or always, for a bus that never uses
// overlay mode, e.g. the Mac II).
func (b *SystemBus) Map(start, end uint32, region Region) {
	b.mappings = append(b.mappings, mapping{start: start, end: end, region: region})
}

// MapOverlay registers a region active only while overlay mode is on,
// for the reset-time low-memory-is-ROM mapping compact Macs use before
// the boot ROM disables it (spec.md §4.4).
func (b *SystemBus) MapOverlay(start, end uint32, region Region) {
	b.overlayMappings = append(b.overlayMappings, mapping{start: start, end: end, region: region})
}

// MapRAM registers the region whose writes should be tracked in the
// dirty-page bitset, and sizes the bitset to match.
func (b *SystemBus) MapRAM(start, end uint32, region Region) {
	pages := (int(end-start) + 1 + ramDirtyPageSize - 1) / ramDirtyPageSize
	b.ramDirty = bitset.New(uint(pages))
	b.mappings = append(b.mappings, mapping{start: start, end: end, region: region, dirty: true, dirtyBase: start})
}

// Overlay reports whether overlay mode is currently active.
func (b *SystemBus) Overlay() bool { return b.overlay }

// SetOverlay enables or disables overlay mode. The boot ROM disables it
// once RAM is initialized: through a VIA port-A bit on the earliest
// compact Macs (machine.Compact's port-A output hook calls this), or by
// any access to the ROM-aliased low range on later ones
// (OverlayDisableRegion calls this).
func (b *SystemBus) SetOverlay(on bool) { b.overlay = on }

func (b *SystemBus) find(addr uint32) *mapping {
	if b.overlay {
		for i := range b.overlayMappings {
			m := &b.overlayMappings[i]
			if addr >= m.start && addr <= m.end {
				return m
			}
		}
	}
	for i := range b.mappings {
		m := &b.mappings[i]
		if addr >= m.start && addr <= m.end {
			return m
		}
	}
	return nil
}

// Read implements mac68k.Bus.
func (b *SystemBus) Read(addr uint32) (byte, bool) {
	m := b.find(addr)
	if m == nil {
		return b.openBus[addr&1], false
	}
	val, wait := m.region.Read(addr - m.start)
	if !wait {
		b.openBus[addr&1] = val
	}
	return val, wait
}

// Write implements mac68k.Bus.
func (b *SystemBus) Write(addr uint32, value byte) bool {
	m := b.find(addr)
	if m == nil {
		b.openBus[addr&1] = value
		return false
	}
	wait := m.region.Write(addr-m.start, value)
	if !wait {
		b.openBus[addr&1] = value
		if m.dirty {
			page := (addr - m.dirtyBase) / ramDirtyPageSize
			b.ramDirty.Set(uint(page))
		}
	}
	return wait
}

// ReadCycle implements mac68k.TimedBus: same as Read, but first latches
// the CPU's current total cycle count for E-clock-synchronized
// regions (machine.Compact's VIA wrapper) to consult.
func (b *SystemBus) ReadCycle(cycle uint64, addr uint32) (byte, bool) {
	b.cycle = cycle
	return b.Read(addr)
}

// WriteCycle implements mac68k.TimedBus.
func (b *SystemBus) WriteCycle(cycle uint64, addr uint32, value byte) bool {
	b.cycle = cycle
	return b.Write(addr, value)
}

// Cycle returns the cycle count latched by the most recent
// ReadCycle/WriteCycle call.
func (b *SystemBus) Cycle() uint64 { return b.cycle }

// Reset implements mac68k.Bus: resets every mapped region. A region
// mapped into both the normal and overlay mapping lists (e.g. RAM,
// aliased at reset) is reset more than once; Region.Reset is expected
// to be idempotent, so this is harmless and avoids the need for
// identity-based deduplication (Region implementations like FuncRegion
// hold function values and are not comparable, so they cannot be map
// keys).
func (b *SystemBus) Reset() {
	for _, m := range b.mappings {
		m.region.Reset()
	}
	for _, m := range b.overlayMappings {
		m.region.Reset()
	}
}

// DrainDirtyPages calls fn once per dirty RAM page (page index, byte
// offset) and clears the dirty set, for the scheduler's periodic
// Memory{addr,bytes} event (spec.md §6.3).
func (b *SystemBus) DrainDirtyPages(fn func(pageIndex uint)) {
	for i, e := b.ramDirty.NextSet(0); e; i, e = b.ramDirty.NextSet(i + 1) {
		fn(i)
	}
	b.ramDirty.ClearAll()
}
