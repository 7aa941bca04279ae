// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package emulator

import (
	"fmt"
	"io"
	"iter"
	"log"
	"maps"

	"github.com/ezrec/chip8/cpu"
	"github.com/ezrec/chip8/internal"
)

const (
	CYCLES_PER_FRAME = 10 // Default instructions between timer ticks.
	FRAME_RATE       = 60 // Timer ticks per second.
)

var _emulator_defines = map[string]string{
	"CYCLES_PER_FRAME": fmt.Sprintf("%v", CYCLES_PER_FRAME),
	"FRAME_RATE":       fmt.Sprintf("%v", FRAME_RATE),
}

// Emulator state. CPU + program listing.
type Emulator struct {
	Verbose        bool         // If set, enables verbose logging.
	*cpu.Cpu                    // Reference to the CPU simulation.
	Program        *cpu.Program // Reference to the currently running program listing.
	CyclesPerFrame int          // Instructions executed per Frame.
}

// NewEmulator creates a new emulator.
func NewEmulator() (emu *Emulator) {
	emu = &Emulator{
		Cpu:            cpu.NewCpu(),
		Program:        &cpu.Program{},
		CyclesPerFrame: CYCLES_PER_FRAME,
	}

	return
}

// Defines returns an iterator over all of the defines
func (emu *Emulator) Defines() iter.Seq2[string, string] {
	return internal.IterSeq2Concat(maps.All(_emulator_defines),
		emu.Cpu.Defines(),
	)
}

// Assemble parses assembly source, with the emulator defines predefined,
// and installs it as the program.
func (emu *Emulator) Assemble(input io.Reader) (err error) {
	asm := &cpu.Assembler{Verbose: emu.Verbose}
	for key, value := range emu.Defines() {
		asm.Predefine(key, value)
	}

	prog, err := asm.Parse(input)
	if err != nil {
		return
	}

	emu.Program = prog

	return
}

// Reset the machine, and load the program.
func (emu *Emulator) Reset() (err error) {
	emu.Cpu.Verbose = emu.Verbose

	emu.Cpu.Reset()

	err = emu.Cpu.Load(emu.Program.Binary())
	if err != nil {
		return
	}

	return
}

// Ticks returns the total instructions executed since a reset.
func (emu *Emulator) Ticks() int {
	return emu.Cpu.Ticks
}

// Pc returns current program counter.
func (emu *Emulator) Pc() int {
	return int(emu.Cpu.Pc)
}

// Code returns the current instruction code, or 0 when the program
// counter is out of memory.
func (emu *Emulator) Code() cpu.Code {
	code, _ := emu.Cpu.Fetch()
	return code
}

// LineNo returns the current line number for the executing opcode.
func (emu *Emulator) LineNo() int {
	dbg := emu.Program.Debug(emu.Cpu.Pc)
	if dbg.Opcode == nil {
		return 0
	}

	return dbg.LineNo
}

// Tick performs a single instruction of the emulator.
// done is set when the program jumps to itself, the conventional
// CHIP-8 way of stopping.
func (emu *Emulator) Tick() (done bool, err error) {
	// Set CPU verbosity
	emu.Cpu.Verbose = emu.Verbose

	pc := emu.Cpu.Pc
	lineno := emu.LineNo()
	defer func() {
		if err != nil {
			err = &ErrRuntime{Pc: pc, LineNo: lineno, Err: err}
		}
	}()

	code := emu.Code()

	err = emu.Cpu.Step()
	if err != nil {
		return
	}

	kind, _ := code.Kind()
	if kind == cpu.OP_JP && emu.Cpu.Pc == pc {
		done = true
		if emu.Verbose {
			log.Printf("emulator: halt loop at 0x%03x", pc)
		}
	}

	return
}

// Frame runs CyclesPerFrame instructions, then ticks the timers once.
// Stops early when the program is done, or on error.
func (emu *Emulator) Frame() (done bool, err error) {
	for range emu.CyclesPerFrame {
		done, err = emu.Tick()
		if done || err != nil {
			return
		}
	}

	if emu.Cpu.TickTimers() && emu.Verbose {
		log.Printf("emulator: sound off")
	}

	return
}
