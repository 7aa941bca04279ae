package cpu

import (
	"errors"
	"fmt"
	"iter"
	"log"
	"maps"
	"math/rand/v2"
)

const (
	MEMORY_SIZE    = 4096                        // Bytes of addressable memory.
	PROGRAM_START  = 0x200                       // Load and reset address of programs.
	PROGRAM_LIMIT  = MEMORY_SIZE - PROGRAM_START // Largest loadable program.
	REGISTER_COUNT = 16                          // V0 to VF.
	REG_VF         = 0xf                         // Flag register index.
	KEY_COUNT      = 16                          // Keys 0 to F.
)

var _cpu_defines = map[string]string{
	"MEMORY_SIZE":    fmt.Sprintf("0x%x", MEMORY_SIZE),
	"PROGRAM_START":  fmt.Sprintf("0x%x", PROGRAM_START),
	"FONT_BASE":      fmt.Sprintf("0x%x", FONT_BASE),
	"FONT_STRIDE":    fmt.Sprintf("%d", FONT_STRIDE),
	"DISPLAY_WIDTH":  fmt.Sprintf("%d", DISPLAY_WIDTH),
	"DISPLAY_HEIGHT": fmt.Sprintf("%d", DISPLAY_HEIGHT),
}

// Cpu is the complete CHIP-8 machine state.
type Cpu struct {
	Verbose bool // Set to enable verbose logging.

	Memory [MEMORY_SIZE]byte    // Font, then program, then work space.
	V      [REGISTER_COUNT]uint8 // Register bank. VF is also the flag output.
	I      uint16                // Index register.
	Pc     uint16                // Program counter.
	Stack  Stack                 // Subroutine return addresses.
	Delay  uint8                 // Delay timer.
	Sound  uint8                 // Sound timer.
	Keys   [KEY_COUNT]bool       // Keypad state, true when held.
	Screen Display               // Framebuffer.

	Rand *rand.Rand // Source for Cxnn.

	Ticks int // Instructions executed since reset.

	halted error // Fatal error that stopped execution.
}

// NewCpu creates a reset CPU with a randomly seeded generator.
func NewCpu() (cpu *Cpu) {
	cpu = &Cpu{}
	cpu.Seed(rand.Uint64())
	cpu.Reset()

	return
}

// Seed replaces the random source with one derived from seed.
func (cpu *Cpu) Seed(seed uint64) {
	cpu.Rand = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Defines for the cpu
func (cpu *Cpu) Defines() iter.Seq2[string, string] {
	return maps.All(_cpu_defines)
}

// String returns the current CPU state as a string.
func (cpu *Cpu) String() (text string) {
	text += fmt.Sprintf("% 5s: %03X\n", "pc", cpu.Pc)
	text += fmt.Sprintf("% 5s: %03X\n", "i", cpu.I)
	for n, val := range cpu.V {
		text += fmt.Sprintf("% 5s: %02X\n", fmt.Sprintf("v%x", n), val)
	}
	text += fmt.Sprintf("% 5s: %02X\n", "dt", cpu.Delay)
	text += fmt.Sprintf("% 5s: %02X\n", "st", cpu.Sound)
	if val, ok := cpu.Stack.Peek(); ok {
		text += fmt.Sprintf("% 5s: %03X (%d)\n", "stack", val, cpu.Stack.Sp)
	} else {
		text += fmt.Sprintf("% 5s: ---\n", "stack")
	}

	return
}

// Reset the CPU state.
// - Clears memory, registers, stack, timers, keys and display.
// - Installs the font glyphs at FONT_BASE.
// - Sets PC to PROGRAM_START.
// - Clears any halting error.
func (cpu *Cpu) Reset() {
	if cpu.Verbose {
		log.Printf("cpu: reset")
	}

	clear(cpu.Memory[:])
	copy(cpu.Memory[FONT_BASE:], fontGlyphs[:])
	clear(cpu.V[:])
	cpu.I = 0
	cpu.Pc = PROGRAM_START
	cpu.Stack.Reset()
	cpu.Delay = 0
	cpu.Sound = 0
	clear(cpu.Keys[:])
	clear(cpu.Screen[:])
	cpu.Ticks = 0
	cpu.halted = nil
}

// Load copies a program image into memory at PROGRAM_START.
func (cpu *Cpu) Load(program []byte) (err error) {
	if len(program) > PROGRAM_LIMIT {
		err = errors.Join(ErrProgramSize, errors.New(f("%d bytes, limit %d", len(program), PROGRAM_LIMIT)))
		return
	}

	copy(cpu.Memory[PROGRAM_START:], program)

	if cpu.Verbose {
		log.Printf("cpu: loaded %d bytes", len(program))
	}

	return
}

// Halted returns the fatal error that stopped the CPU, if any.
func (cpu *Cpu) Halted() error {
	return cpu.halted
}

// SetKey sets the pressed state of a key.
func (cpu *Cpu) SetKey(index int, pressed bool) (err error) {
	if index < 0 || index >= KEY_COUNT {
		err = ErrKeyInvalid
		return
	}

	cpu.Keys[index] = pressed

	return
}

// Display returns a copy of the framebuffer.
func (cpu *Cpu) Display() Display {
	return cpu.Screen
}

// TickTimers decrements the delay and sound timers, stopping at zero.
// Returns true when the sound timer has just expired.
func (cpu *Cpu) TickTimers() (soundDone bool) {
	if cpu.Delay > 0 {
		cpu.Delay--
	}

	if cpu.Sound > 0 {
		cpu.Sound--
		soundDone = cpu.Sound == 0
	}

	return
}

// Fetch reads the big-endian instruction word at the program counter.
func (cpu *Cpu) Fetch() (code Code, err error) {
	pc := int(cpu.Pc)
	if pc+1 >= MEMORY_SIZE {
		err = errors.Join(ErrAddress(cpu.Pc), ErrMemoryBounds)
		return
	}

	code = Code(uint16(cpu.Memory[pc])<<8 | uint16(cpu.Memory[pc+1]))

	return
}

// Step executes a single fetch-decode-execute cycle.
//
// Any error is fatal: the CPU halts, and Step returns the same error until
// the next Reset.
func (cpu *Cpu) Step() (err error) {
	if cpu.halted != nil {
		return cpu.halted
	}

	defer func() {
		if err != nil {
			cpu.halted = err
			if cpu.Verbose {
				log.Printf("cpu: halted: %v", err)
			}
		}
	}()

	pc := cpu.Pc

	code, err := cpu.Fetch()
	if err != nil {
		return
	}

	cpu.Pc += 2

	err = cpu.Execute(code)
	if err != nil {
		err = errors.Join(ErrOpcode{Pc: pc, Code: code}, err)
		return
	}

	cpu.Ticks++

	return
}

// Execute executes a single instruction word.
// The program counter must already address the following instruction.
func (cpu *Cpu) Execute(code Code) (err error) {
	kind, err := code.Kind()
	if err != nil {
		return
	}

	if cpu.Verbose {
		log.Printf("cpu: %03x: %04x %v", cpu.Pc-2, uint16(code), code)
	}

	x, y := code.X(), code.Y()
	vx, vy := cpu.V[x], cpu.V[y]

	switch kind {
	case OP_NOP:
		// pass
	case OP_CLS:
		clear(cpu.Screen[:])
	case OP_RET:
		pc, ok := cpu.Stack.Pop()
		if !ok {
			err = ErrStackEmpty
			return
		}
		cpu.Pc = pc
	case OP_JP:
		cpu.Pc = code.NNN()
	case OP_CALL:
		if !cpu.Stack.Push(cpu.Pc) {
			err = ErrStackFull
			return
		}
		cpu.Pc = code.NNN()
	case OP_SE_IMM:
		cpu.skipIf(vx == code.NN())
	case OP_SNE_IMM:
		cpu.skipIf(vx != code.NN())
	case OP_SE_REG:
		cpu.skipIf(vx == vy)
	case OP_LD_IMM:
		cpu.V[x] = code.NN()
	case OP_ADD_IMM:
		cpu.V[x] = vx + code.NN()
	case OP_LD_REG:
		cpu.V[x] = vy
	case OP_OR:
		cpu.V[x] = vx | vy
	case OP_AND:
		cpu.V[x] = vx & vy
	case OP_XOR:
		cpu.V[x] = vx ^ vy
	case OP_ADD_REG:
		sum := uint16(vx) + uint16(vy)
		cpu.setWithFlag(x, uint8(sum), sum > 0xff)
	case OP_SUB:
		cpu.setWithFlag(x, vx-vy, vx >= vy)
	case OP_SHR:
		cpu.setWithFlag(x, vx>>1, (vx&0x01) != 0)
	case OP_SUBN:
		cpu.setWithFlag(x, vy-vx, vy >= vx)
	case OP_SHL:
		cpu.setWithFlag(x, vx<<1, (vx&0x80) != 0)
	case OP_SNE_REG:
		cpu.skipIf(vx != vy)
	case OP_LD_I:
		cpu.I = code.NNN()
	case OP_JP_V0:
		cpu.Pc = uint16(cpu.V[0]) + code.NNN()
	case OP_RND:
		cpu.V[x] = uint8(cpu.Rand.Uint32()) & code.NN()
	case OP_DRW:
		err = cpu.draw(vx, vy, code.N())
	case OP_SKP, OP_SKNP:
		if int(vx) >= KEY_COUNT {
			err = errors.Join(ErrKeyInvalid, errors.New(f("key 0x%02x", vx)))
			return
		}
		pressed := cpu.Keys[vx]
		cpu.skipIf(pressed == (kind == OP_SKP))
	case OP_LD_VX_DT:
		cpu.V[x] = cpu.Delay
	case OP_LD_VX_K:
		key, ok := cpu.pressedKey()
		if !ok {
			// Re-execute until a key is down.
			cpu.Pc -= 2
			return
		}
		cpu.V[x] = key
	case OP_LD_DT_VX:
		cpu.Delay = vx
	case OP_LD_ST_VX:
		cpu.Sound = vx
	case OP_ADD_I_VX:
		cpu.I += uint16(vx)
	case OP_LD_F_VX:
		cpu.I = FONT_BASE + uint16(vx)*FONT_STRIDE
	case OP_LD_B_VX:
		err = cpu.store(cpu.I, vx/100, (vx/10)%10, vx%10)
	case OP_LD_MEM_VX:
		err = cpu.store(cpu.I, cpu.V[:x+1]...)
	case OP_LD_VX_MEM:
		var data []byte
		data, err = cpu.span(cpu.I, x+1)
		if err != nil {
			return
		}
		copy(cpu.V[:], data)
	default:
		err = ErrOpcodeDecode
	}

	return
}

// skipIf skips the next instruction when cond holds.
func (cpu *Cpu) skipIf(cond bool) {
	if cond {
		cpu.Pc += 2
	}
}

// setWithFlag stores a result in Vx, then the flag in VF.
// When x is VF the flag wins.
func (cpu *Cpu) setWithFlag(x int, value uint8, flag bool) {
	cpu.V[x] = value
	cpu.V[REG_VF] = 0
	if flag {
		cpu.V[REG_VF] = 1
	}
}

// pressedKey returns the lowest numbered key held down.
func (cpu *Cpu) pressedKey() (key uint8, ok bool) {
	for n, pressed := range cpu.Keys {
		if pressed {
			return uint8(n), true
		}
	}

	return
}

// span returns the memory slice [addr, addr+length).
func (cpu *Cpu) span(addr uint16, length int) (data []byte, err error) {
	end := int(addr) + length
	if end > MEMORY_SIZE {
		err = errors.Join(ErrAddress(addr), ErrMemoryBounds)
		return
	}

	data = cpu.Memory[addr:end]

	return
}

// store writes values to memory at addr. The font and interpreter area
// below PROGRAM_START is read-only.
func (cpu *Cpu) store(addr uint16, values ...uint8) (err error) {
	if addr < PROGRAM_START {
		err = errors.Join(ErrAddress(addr), ErrMemoryProtected)
		return
	}

	data, err := cpu.span(addr, len(values))
	if err != nil {
		return
	}

	copy(data, values)

	return
}

// draw XORs an n-row sprite from memory at I onto the display at (x, y).
// Pixels wrap at the display edges. VF is set when any lit pixel is
// turned off.
func (cpu *Cpu) draw(x, y uint8, rows uint8) (err error) {
	sprite, err := cpu.span(cpu.I, int(rows))
	if err != nil {
		return
	}

	collision := false
	for row, bits := range sprite {
		for col := range 8 {
			if (bits & (0x80 >> col)) == 0 {
				continue
			}
			if cpu.Screen.toggle(int(x)+col, int(y)+row) {
				collision = true
			}
		}
	}

	cpu.V[REG_VF] = 0
	if collision {
		cpu.V[REG_VF] = 1
	}

	return
}
