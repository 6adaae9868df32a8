package scheduler

// RecordedCommand pairs a command with the emulated cycle count it
// was received at, for input recording/replay (spec.md §4.5's final
// paragraph): only mouse and key events are meaningful to replay, but
// any command can be captured uniformly.
type RecordedCommand struct {
	Cycle   uint64
	Command Command
}

// recorder captures (cycle, command) pairs for mouse/key commands
// while armed, for the StartRecordingInput/EndRecordingInput/
// RecordedInput command/event pair.
type recorder struct {
	active bool
	log    []RecordedCommand
}

func (r *recorder) start() { r.active, r.log = true, nil }
func (r *recorder) stop() []RecordedCommand {
	r.active = false
	out := r.log
	r.log = nil
	return out
}

func (r *recorder) capture(cycle uint64, cmd Command) {
	if !r.active {
		return
	}
	switch cmd.(type) {
	case MouseUpdateRelative, MouseUpdateAbsolute, KeyEvent:
		r.log = append(r.log, RecordedCommand{Cycle: cycle, Command: cmd})
	}
}

// replayer re-emits a previously recorded command log at the same
// relative cycle offsets it was captured at.
type replayer struct {
	commands []RecordedCommand
	base     uint64 // cycle count replay started at
	pos      int
}

func newReplayer(commands []RecordedCommand, startCycle uint64) *replayer {
	return &replayer{commands: commands, base: startCycle}
}

// due returns commands whose recorded offset has now elapsed, given
// the current absolute cycle count, advancing past them.
func (r *replayer) due(cycle uint64) []Command {
	if r.pos >= len(r.commands) || len(r.commands) == 0 {
		return nil
	}
	origin := r.commands[0].Cycle
	var due []Command
	for r.pos < len(r.commands) {
		rel := r.commands[r.pos].Cycle - origin
		if r.base+rel > cycle {
			break
		}
		due = append(due, r.commands[r.pos].Command)
		r.pos++
	}
	return due
}

func (r *replayer) finished() bool { return r.pos >= len(r.commands) }
