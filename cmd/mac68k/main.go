// Command mac68k boots a configured machine from a TOML config file and
// drives its scheduler from a line-oriented stdin console, printing
// Status/UserMessage events as they arrive. It is a minimal shell meant
// to exercise scheduler.Scheduler end to end, not a full debugger UI.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"mac68k/scheduler"

	"github.com/rs/zerolog"
	"gopkg.in/urfave/cli.v2"
)

func main() {
	app := &cli.App{
		Name:  "mac68k",
		Usage: "run a 68k-family Macintosh machine core from a TOML configuration",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Value: "mac68k.toml",
				Usage: "path to machine configuration",
			},
			&cli.BoolFlag{
				Name:  "v",
				Usage: "enable debug logging",
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	level := zerolog.InfoLevel
	if c.Bool("v") {
		level = zerolog.DebugLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()

	cfg, err := scheduler.LoadConfig(c.String("config"))
	if err != nil {
		log.Fatal().Err(err).Msg("could not load configuration")
	}

	sched, err := scheduler.New(log, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("could not construct machine")
	}

	go sched.Run()
	go printEvents(sched)

	runConsole(sched)
	return nil
}

func printEvents(s *scheduler.Scheduler) {
	for ev := range s.Events {
		switch e := ev.(type) {
		case scheduler.Status:
			fmt.Printf("pc=%08x cycles=%d running=%v\n", e.Registers.PC, e.Cycles, e.Running)
		case scheduler.UserMessage:
			fmt.Printf("! %s\n", e.Message)
		case scheduler.FloppyEjected:
			fmt.Printf("floppy %d ejected\n", e.Drive)
		}
	}
}

// runConsole reads whitespace-separated commands from stdin until EOF
// or "quit": run, stop, reset, step, break <addr>, poke <addr> <byte>,
// insert <drive> <path>, eject <drive>.
func runConsole(s *scheduler.Scheduler) {
	scn := bufio.NewScanner(os.Stdin)
	for scn.Scan() {
		fields := strings.Fields(scn.Text())
		if len(fields) == 0 {
			continue
		}
		cmd, ok := parseConsoleCommand(fields)
		if !ok {
			fmt.Println("unrecognized command")
			continue
		}
		if _, isQuit := cmd.(scheduler.Quit); isQuit {
			s.Commands <- cmd
			return
		}
		s.Commands <- cmd
	}
	s.Commands <- scheduler.Quit{}
}

func parseConsoleCommand(fields []string) (scheduler.Command, bool) {
	switch fields[0] {
	case "run":
		return scheduler.Run{}, true
	case "stop":
		return scheduler.Stop{}, true
	case "reset":
		return scheduler.Reset{}, true
	case "step":
		return scheduler.Step{}, true
	case "stepover":
		return scheduler.StepOver{}, true
	case "stepout":
		return scheduler.StepOut{}, true
	case "quit":
		return scheduler.Quit{}, true
	case "break":
		if len(fields) < 2 {
			return nil, false
		}
		addr, err := strconv.ParseUint(fields[1], 16, 32)
		if err != nil {
			return nil, false
		}
		return scheduler.ToggleBreakpoint{Address: uint32(addr)}, true
	case "poke":
		if len(fields) < 3 {
			return nil, false
		}
		addr, err := strconv.ParseUint(fields[1], 16, 32)
		if err != nil {
			return nil, false
		}
		value, err := strconv.ParseUint(fields[2], 16, 8)
		if err != nil {
			return nil, false
		}
		return scheduler.BusWrite{Address: uint32(addr), Value: byte(value)}, true
	case "insert":
		if len(fields) < 3 {
			return nil, false
		}
		drive, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, false
		}
		return scheduler.InsertFloppy{Drive: drive, Path: fields[2]}, true
	case "eject":
		if len(fields) < 2 {
			return nil, false
		}
		drive, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, false
		}
		return scheduler.EjectFloppy{Drive: drive}, true
	default:
		return nil, false
	}
}
