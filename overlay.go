package mac68k

// overlay mode maps the boot ROM at address 0 so the reset vector comes
// from ROM before RAM is initialized; it is disabled once the OS no
// longer needs it. Two distinct real-hardware mechanisms disable it
// (spec.md §4.4):
//
//   - 128K/512K/Plus: a VIA port-A output bit directly toggles overlay;
//     machine.Compact's port-A output hook calls SystemBus.SetOverlay.
//   - SE+ (and later): overlay disables itself the first time *any*
//     access lands in the aliased low range — modeled by
//     OverlayDisableRegion below, wrapping the ROM region machine.Compact
//     maps into the overlay-mode address range.

// OverlayDisableRegion wraps a Region so that any access through it
// clears the bus's overlay flag first, then forwards to the inner
// region — the SE+ "first access disables overlay" behavior (original
// Rust: core/src/mac/compact/bus.rs read_overlay/write_overlay, the
// 0x0040_0000..=0x004F_FFFF arm for model >= SE).
type OverlayDisableRegion struct {
	Bus   *SystemBus
	Inner Region
}

func (o OverlayDisableRegion) Read(offset uint32) (byte, bool) {
	o.Bus.SetOverlay(false)
	return o.Inner.Read(offset)
}

func (o OverlayDisableRegion) Write(offset uint32, value byte) bool {
	o.Bus.SetOverlay(false)
	return o.Inner.Write(offset, value)
}

func (o OverlayDisableRegion) Reset() {}
