package emulator

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ezrec/chip8/cpu"
)

func TestEmulator(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()

	assert.False(emu.Verbose)
	assert.NotNil(emu.Cpu)
	assert.NotNil(emu.Program)
	assert.Equal(CYCLES_PER_FRAME, emu.CyclesPerFrame)
}

func doAssemble(emu *Emulator, program []string, t *testing.T) {
	assert := assert.New(t)

	err := emu.Assemble(strings.NewReader(strings.Join(program, "\n")))
	assert.NoError(err)
	if err != nil {
		t.FailNow()
	}

	emu.Cpu.Seed(1)
	err = emu.Reset()
	assert.NoError(err)
}

func doRun(emu *Emulator, limit int, t *testing.T) {
	for range limit {
		done, err := emu.Tick()
		if err != nil {
			t.Log(emu.Cpu.String())
			t.Fatalf("%v", err)
		}
		if done {
			return
		}
	}

	t.Fatalf("not done after %d ticks", limit)
}

func TestEmulator_Run(t *testing.T) {
	assert := assert.New(t)

	program := []string{
		"ld v0 0",
		"ld v1 5",
		"loop: add v0 v1",
		"se v0 25",
		"jp loop",
		"done: jp done",
	}

	emu := NewEmulator()
	doAssemble(emu, program, t)

	assert.Equal(1, emu.LineNo())
	assert.Equal(cpu.Code(0x6000), emu.Code())

	doRun(emu, 100, t)

	assert.Equal(uint8(25), emu.Cpu.V[0])
	assert.Equal(17, emu.Ticks())
	assert.Equal(0x20a, emu.Pc())
	assert.Equal(6, emu.LineNo())

	// Reset restarts the program from the top.
	assert.NoError(emu.Reset())
	assert.Equal(0, emu.Ticks())
	assert.Equal(cpu.PROGRAM_START, emu.Pc())
	assert.Equal(uint8(0), emu.Cpu.V[0])

	doRun(emu, 100, t)
	assert.Equal(uint8(25), emu.Cpu.V[0])
}

func TestEmulator_LineNo(t *testing.T) {
	assert := assert.New(t)

	program := []string{
		"; comment",
		"",
		"ld v0 1",
		"",
		"ld v1 2",
		"done: jp done",
	}

	emu := NewEmulator()
	doAssemble(emu, program, t)

	for _, lineno := range []int{3, 5, 6} {
		assert.Equal(lineno, emu.LineNo())
		_, err := emu.Tick()
		assert.NoError(err)
	}
}

func TestEmulator_Macro(t *testing.T) {
	assert := assert.New(t)

	program := []string{
		".macro WAIT vn frames",
		"  ld vn frames",
		"  ld dt vn",
		"@spin:",
		"  ld vn dt",
		"  se vn 0",
		"  jp @spin",
		".endm",
		".equ TIMER v3",
		"WAIT TIMER 2",
		"ld v4 0x55",
		"WAIT TIMER 1",
		"done: jp done",
	}

	emu := NewEmulator()
	doAssemble(emu, program, t)

	var frames int
	for frames = 1; frames < 10; frames++ {
		done, err := emu.Frame()
		assert.NoError(err)
		if err != nil || done {
			break
		}
	}

	assert.Equal(4, frames)
	assert.Equal(uint8(0x55), emu.Cpu.V[4])
	assert.Equal(uint8(0), emu.Cpu.V[3])
}

func TestEmulator_Frame(t *testing.T) {
	assert := assert.New(t)

	program := []string{
		"ld v0 3",
		"ld dt v0",
		"ld st v0",
		"loop: ld v1 dt",
		"se v1 0",
		"jp loop",
		"done: jp done",
	}

	emu := NewEmulator()
	doAssemble(emu, program, t)

	done, err := emu.Frame()
	assert.NoError(err)
	assert.False(done)
	assert.Equal(10, emu.Ticks())
	assert.Equal(uint8(2), emu.Cpu.Delay)
	assert.Equal(uint8(2), emu.Cpu.Sound)

	frames := 1
	for !done && frames < 10 {
		done, err = emu.Frame()
		assert.NoError(err)
		frames++
	}

	assert.True(done)
	assert.Equal(4, frames)
	assert.Equal(uint8(0), emu.Cpu.Delay)
	assert.Equal(uint8(0), emu.Cpu.Sound)
}

func TestEmulator_CyclesPerFrame(t *testing.T) {
	assert := assert.New(t)

	program := []string{
		"loop: add v0 1",
		"jp loop",
	}

	emu := NewEmulator()
	emu.CyclesPerFrame = 4
	doAssemble(emu, program, t)

	for range 3 {
		done, err := emu.Frame()
		assert.NoError(err)
		assert.False(done)
	}

	assert.Equal(12, emu.Ticks())
	assert.Equal(uint8(6), emu.Cpu.V[0])
}

func TestEmulator_RuntimeError(t *testing.T) {
	assert := assert.New(t)

	program := []string{
		"cls",
		"ret",
	}

	emu := NewEmulator()
	doAssemble(emu, program, t)

	done, err := emu.Tick()
	assert.NoError(err)
	assert.False(done)

	_, err = emu.Tick()
	assert.ErrorIs(err, cpu.ErrStackEmpty)
	assert.ErrorIs(err, cpu.ErrOpcode{})

	var rerr *ErrRuntime
	if assert.True(errors.As(err, &rerr)) {
		assert.Equal(2, rerr.LineNo)
		assert.Equal(uint16(0x202), rerr.Pc)
		assert.Contains(rerr.Error(), "line 2")
	}

	// The machine stays halted until reset.
	_, err = emu.Tick()
	assert.ErrorIs(err, cpu.ErrStackEmpty)

	_, err = emu.Frame()
	assert.ErrorIs(err, cpu.ErrStackEmpty)

	assert.NoError(emu.Reset())
	_, err = emu.Tick()
	assert.NoError(err)
}

func TestEmulator_RuntimeError_Binary(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()
	emu.Program = cpu.ProgramFromBinary([]byte{0x00, 0xe0, 0xff, 0xff})
	assert.NoError(emu.Reset())

	_, err := emu.Tick()
	assert.NoError(err)

	_, err = emu.Tick()
	assert.ErrorIs(err, cpu.ErrOpcodeDecode)

	var rerr *ErrRuntime
	if assert.True(errors.As(err, &rerr)) {
		assert.Equal(0, rerr.LineNo)
		assert.Equal(uint16(0x202), rerr.Pc)
		assert.NotContains(rerr.Error(), "line")
	}
}

func TestEmulator_Defines(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()

	defines := map[string]string{}
	for key, value := range emu.Defines() {
		defines[key] = value
	}

	assert.Equal("10", defines["CYCLES_PER_FRAME"])
	assert.Equal("60", defines["FRAME_RATE"])
	assert.Equal("0x200", defines["PROGRAM_START"])
	assert.Equal("5", defines["FONT_STRIDE"])

	// Defines are visible to assembled programs.
	doAssemble(emu, []string{
		"ld v0 CYCLES_PER_FRAME",
		"ld v1 $(DISPLAY_WIDTH - 8)",
		"ld i $(FONT_BASE + FONT_STRIDE * 2)",
	}, t)

	assert.Equal([]byte{0x60, 0x0a, 0x61, 0x38, 0xa0, 0x0a}, emu.Program.Binary())
}

func TestEmulator_Draw(t *testing.T) {
	assert := assert.New(t)

	program := []string{
		"ld v0 0xa",
		"ld f v0",
		"ld v1 0",
		"drw v1 v1 5",
		"done: jp done",
	}

	emu := NewEmulator()
	doAssemble(emu, program, t)
	doRun(emu, 10, t)

	display := emu.Display()
	// Glyph "A" is 0xF0 0x90 0xF0 0x90 0x90.
	assert.Equal(4+2+4+2+2, display.Lit())
	assert.True(display.Pixel(0, 0))
	assert.False(display.Pixel(1, 1))
	assert.Equal(uint8(0), emu.Cpu.V[cpu.REG_VF])
}
