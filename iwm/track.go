package iwm

// TrackKind distinguishes the two track representations spec.md §3.6
// requires: a pre-decoded GCR bit-stream, or a flux-transition interval
// list carrying physical timing instead of decoded bits.
type TrackKind int

const (
	TrackBitstream TrackKind = iota
	TrackFlux
)

// Track is one side's worth of track data for a single physical track.
// Every .dsk/.img-style Mac floppy image this core loads arrives
// pre-encoded as a bit-stream (NewTrack), the common case; NewFluxTrack
// exists for image sources that instead carry a list of flux-transition
// intervals, which the IWM's flux tick (iwm.go) walks transition by
// transition rather than bit by bit.
type Track struct {
	Kind        TrackKind
	Bits        []bool
	Transitions []int // flux interval lengths, in CPU ticks
}

// NewTrack allocates a bit-stream track of the given bit length, all
// zero bits (an unformatted track reads as a continuous run of zero
// cells).
func NewTrack(bits int) *Track {
	return &Track{Kind: TrackBitstream, Bits: make([]bool, bits)}
}

// NewFluxTrack wraps a list of flux-transition intervals (CPU ticks
// between successive flux reversals) as a Track.
func NewFluxTrack(transitions []int) *Track {
	return &Track{Kind: TrackFlux, Transitions: transitions}
}

func (t *Track) Len() int { return len(t.Bits) }

func (t *Track) Bit(position int) bool {
	if len(t.Bits) == 0 {
		return false
	}
	return t.Bits[position%len(t.Bits)]
}

func (t *Track) SetBit(position int, value bool) {
	if len(t.Bits) == 0 {
		return
	}
	t.Bits[position%len(t.Bits)] = value
}

// TransitionCount returns the number of flux intervals on this track.
func (t *Track) TransitionCount() int { return len(t.Transitions) }

// Transition returns the tick length of the flux interval at position,
// wrapping circularly like Bit does for bit-stream tracks.
func (t *Track) Transition(position int) int {
	if len(t.Transitions) == 0 {
		return 0
	}
	return t.Transitions[position%len(t.Transitions)]
}

// approxTrackLength mirrors the original's per-track GCR bit count
// table for 400K/800K-style Mac images: outer tracks pack more
// sectors (and so more bits) than inner ones across five zones.
func approxTrackLength(track int) int {
	switch {
	case track < 16:
		return 74640
	case track < 32:
		return 68240
	case track < 48:
		return 62200
	case track < 64:
		return 55440
	default:
		return 49040
	}
}

// Image is an in-memory floppy disk: one or two sides of 80 tracks.
// Loading/encoding the on-disk image format (spec.md §6.4) is a shell
// concern per the Non-goals; this type is just the runtime
// representation the IWM head reads and writes through.
type Image struct {
	Title       string
	DoubleSided bool
	Tracks      [2][80]*Track
}

// NewImage allocates a blank image with every track pre-sized per
// approxTrackLength, ready to be filled by the shell's image loader.
func NewImage(title string, doubleSided bool) *Image {
	img := &Image{Title: title, DoubleSided: doubleSided}
	sides := 1
	if doubleSided {
		sides = 2
	}
	for side := 0; side < sides; side++ {
		for track := 0; track < 80; track++ {
			img.Tracks[side][track] = NewTrack(approxTrackLength(track))
		}
	}
	return img
}

func (img *Image) SideCount() int {
	if img.DoubleSided {
		return 2
	}
	return 1
}

// SetTrack replaces a track wholesale, used by shell-side image loaders
// that decode a flux-transition source instead of the default blank
// bit-stream track NewImage pre-allocates.
func (img *Image) SetTrack(side, track int, t *Track) {
	if side >= len(img.Tracks) || track >= len(img.Tracks[side]) {
		return
	}
	img.Tracks[side][track] = t
}

func (img *Image) trackAt(side, track int) *Track {
	if side >= img.SideCount() || track < 0 || track >= len(img.Tracks[side]) {
		return nil
	}
	return img.Tracks[side][track]
}

func (img *Image) TrackKind(side, track int) TrackKind {
	t := img.trackAt(side, track)
	if t == nil {
		return TrackBitstream
	}
	return t.Kind
}

func (img *Image) TrackBit(side, track, position int) bool {
	t := img.trackAt(side, track)
	if t == nil {
		return false
	}
	return t.Bit(position)
}

func (img *Image) SetTrackBit(side, track, position int, value bool) {
	t := img.trackAt(side, track)
	if t == nil {
		return
	}
	t.SetBit(position, value)
}

func (img *Image) TrackLength(side, track int) int {
	t := img.trackAt(side, track)
	if t == nil {
		return 1
	}
	if t.Kind == TrackFlux {
		return t.TransitionCount()
	}
	return t.Len()
}

// TrackTransition returns the flux interval (CPU ticks) at position on
// a TrackFlux track.
func (img *Image) TrackTransition(side, track, position int) int {
	t := img.trackAt(side, track)
	if t == nil {
		return 0
	}
	return t.Transition(position)
}
