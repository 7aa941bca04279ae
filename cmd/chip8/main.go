// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"

	"golang.org/x/term"

	"github.com/ezrec/chip8/cpu"
	"github.com/ezrec/chip8/emulator"
)

// isFlagSet is true when the named flag was given on the command line.
func isFlagSet(fs *flag.FlagSet, name string) (set bool) {
	fs.Visit(func(fl *flag.Flag) {
		if fl.Name == name {
			set = true
		}
	})
	return
}

func main() {
	var compile string
	var rom string
	var output string
	var disassemble bool
	var frames int
	var cycles int
	var keys string
	var seed uint64
	var verbose bool

	flag.StringVar(&compile, "c", "", ".asm file to compile")
	flag.StringVar(&rom, "r", "", ".ch8 ROM image to load")
	flag.StringVar(&output, "o", "", "Write program binary to file, do not execute")
	flag.BoolVar(&disassemble, "d", false, "Disassemble program, do not execute")
	flag.IntVar(&frames, "f", emulator.FRAME_RATE*10, "Frames to run before stopping")
	flag.IntVar(&cycles, "i", emulator.CYCLES_PER_FRAME, "Instructions per frame")
	flag.StringVar(&keys, "k", "", "Keys held down, as hex digits")
	flag.Uint64Var(&seed, "seed", 0, "Random number seed (default: random)")
	flag.BoolVar(&verbose, "v", false, "Verbose mode")

	flag.Parse()

	if flag.NArg() != 0 {
		log.Fatalf("%v: Unknown arguments: %v", os.Args[0], flag.Args())
	}

	if len(compile) != 0 && len(rom) != 0 {
		log.Fatalf("%v: -c and -r are exclusive", os.Args[0])
	}

	emu := emulator.NewEmulator()
	emu.Verbose = verbose
	emu.CyclesPerFrame = cycles

	// Compile a new instruction stream.
	if len(compile) != 0 {
		inf, err := os.Open(compile)
		if err != nil {
			log.Fatalf("%v: %v", compile, err)
		}
		defer inf.Close()

		err = emu.Assemble(inf)
		if err != nil {
			log.Fatalf("%v: %v", compile, err)
		}
	}

	// Or load a binary image.
	if len(rom) != 0 {
		bin, err := os.ReadFile(rom)
		if err != nil {
			log.Fatalf("%v: %v", rom, err)
		}
		emu.Program = cpu.ProgramFromBinary(bin)
	}

	if len(output) != 0 {
		err := os.WriteFile(output, emu.Program.Binary(), 0o644)
		if err != nil {
			log.Fatalf("%v: %v", output, err)
		}
		return
	}

	if disassemble {
		for addr, code := range emu.Program.Codes() {
			fmt.Printf("%03x: %04x  %v\n", addr, uint16(code), code)
		}
		return
	}

	if isFlagSet(flag.CommandLine, "seed") {
		emu.Cpu.Seed(seed)
	}
	err := emu.Reset()
	if err != nil {
		log.Fatal(err)
	}

	for _, digit := range keys {
		key, err := strconv.ParseUint(string(digit), 16, 8)
		if err != nil {
			log.Fatalf("-k: %v", err)
		}
		err = emu.SetKey(int(key), true)
		if err != nil {
			log.Fatalf("-k: %v", err)
		}
	}

	for frame := 0; frame < frames; frame++ {
		done, err := emu.Frame()
		if err != nil {
			log.Print(emu.Cpu.String())
			log.Fatal(err)
		}
		if done {
			break
		}
	}

	display := emu.Display()
	if term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Print(display.Render('█', ' '))
	} else {
		fmt.Print(display.Render('#', '.'))
	}

	if verbose {
		log.Printf("%v: %d instructions", os.Args[0], emu.Ticks())
	}
}
