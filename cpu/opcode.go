package cpu

import (
	"fmt"
)

// CodeKind is the decoded form of an instruction word.
type CodeKind int

//go:generate go tool stringer -linecomment -type=CodeKind
const (
	OP_NOP       = CodeKind(0)  // 0000
	OP_CLS       = CodeKind(1)  // 00E0
	OP_RET       = CodeKind(2)  // 00EE
	OP_JP        = CodeKind(3)  // 1nnn
	OP_CALL      = CodeKind(4)  // 2nnn
	OP_SE_IMM    = CodeKind(5)  // 3xnn
	OP_SNE_IMM   = CodeKind(6)  // 4xnn
	OP_SE_REG    = CodeKind(7)  // 5xy0
	OP_LD_IMM    = CodeKind(8)  // 6xnn
	OP_ADD_IMM   = CodeKind(9)  // 7xnn
	OP_LD_REG    = CodeKind(10) // 8xy0
	OP_OR        = CodeKind(11) // 8xy1
	OP_AND       = CodeKind(12) // 8xy2
	OP_XOR       = CodeKind(13) // 8xy3
	OP_ADD_REG   = CodeKind(14) // 8xy4
	OP_SUB       = CodeKind(15) // 8xy5
	OP_SHR       = CodeKind(16) // 8xy6
	OP_SUBN      = CodeKind(17) // 8xy7
	OP_SHL       = CodeKind(18) // 8xyE
	OP_SNE_REG   = CodeKind(19) // 9xy0
	OP_LD_I      = CodeKind(20) // Annn
	OP_JP_V0     = CodeKind(21) // Bnnn
	OP_RND       = CodeKind(22) // Cxnn
	OP_DRW       = CodeKind(23) // Dxyn
	OP_SKP       = CodeKind(24) // Ex9E
	OP_SKNP      = CodeKind(25) // ExA1
	OP_LD_VX_DT  = CodeKind(26) // Fx07
	OP_LD_VX_K   = CodeKind(27) // Fx0A
	OP_LD_DT_VX  = CodeKind(28) // Fx15
	OP_LD_ST_VX  = CodeKind(29) // Fx18
	OP_ADD_I_VX  = CodeKind(30) // Fx1E
	OP_LD_F_VX   = CodeKind(31) // Fx29
	OP_LD_B_VX   = CodeKind(32) // Fx33
	OP_LD_MEM_VX = CodeKind(33) // Fx55
	OP_LD_VX_MEM = CodeKind(34) // Fx65

	OP_KIND_COUNT = 35
)

// CodeForm describes which operand fields a CodeKind uses.
type CodeForm int

const (
	FORM_NONE = CodeForm(iota) // no operands
	FORM_NNN                   // 12-bit address
	FORM_XNN                   // register, 8-bit immediate
	FORM_XY                    // two registers
	FORM_XYN                   // two registers, 4-bit immediate
	FORM_X                     // one register
)

// kindTable holds the base instruction word and operand form of each kind.
var kindTable = [OP_KIND_COUNT]struct {
	Word uint16
	Form CodeForm
}{
	OP_NOP:       {0x0000, FORM_NONE},
	OP_CLS:       {0x00e0, FORM_NONE},
	OP_RET:       {0x00ee, FORM_NONE},
	OP_JP:        {0x1000, FORM_NNN},
	OP_CALL:      {0x2000, FORM_NNN},
	OP_SE_IMM:    {0x3000, FORM_XNN},
	OP_SNE_IMM:   {0x4000, FORM_XNN},
	OP_SE_REG:    {0x5000, FORM_XY},
	OP_LD_IMM:    {0x6000, FORM_XNN},
	OP_ADD_IMM:   {0x7000, FORM_XNN},
	OP_LD_REG:    {0x8000, FORM_XY},
	OP_OR:        {0x8001, FORM_XY},
	OP_AND:       {0x8002, FORM_XY},
	OP_XOR:       {0x8003, FORM_XY},
	OP_ADD_REG:   {0x8004, FORM_XY},
	OP_SUB:       {0x8005, FORM_XY},
	OP_SHR:       {0x8006, FORM_XY},
	OP_SUBN:      {0x8007, FORM_XY},
	OP_SHL:       {0x800e, FORM_XY},
	OP_SNE_REG:   {0x9000, FORM_XY},
	OP_LD_I:      {0xa000, FORM_NNN},
	OP_JP_V0:     {0xb000, FORM_NNN},
	OP_RND:       {0xc000, FORM_XNN},
	OP_DRW:       {0xd000, FORM_XYN},
	OP_SKP:       {0xe09e, FORM_X},
	OP_SKNP:      {0xe0a1, FORM_X},
	OP_LD_VX_DT:  {0xf007, FORM_X},
	OP_LD_VX_K:   {0xf00a, FORM_X},
	OP_LD_DT_VX:  {0xf015, FORM_X},
	OP_LD_ST_VX:  {0xf018, FORM_X},
	OP_ADD_I_VX:  {0xf01e, FORM_X},
	OP_LD_F_VX:   {0xf029, FORM_X},
	OP_LD_B_VX:   {0xf033, FORM_X},
	OP_LD_MEM_VX: {0xf055, FORM_X},
	OP_LD_VX_MEM: {0xf065, FORM_X},
}

// Form returns the operand layout of the kind.
func (kind CodeKind) Form() CodeForm {
	return kindTable[kind].Form
}

// Code is a single 16-bit instruction word.
type Code uint16

// MakeCode builds an instruction word of the given kind.
// Operands are taken in the order of the kind's form, and masked to
// their field width:
//   - FORM_NONE: none
//   - FORM_NNN: nnn
//   - FORM_XNN: x, nn
//   - FORM_XY: x, y
//   - FORM_XYN: x, y, n
//   - FORM_X: x
func MakeCode(kind CodeKind, operands ...uint16) Code {
	word := kindTable[kind].Word
	arg := func(n int) uint16 {
		if n < len(operands) {
			return operands[n]
		}
		return 0
	}

	switch kind.Form() {
	case FORM_NNN:
		word |= arg(0) & 0xfff
	case FORM_XNN:
		word |= (arg(0)&0xf)<<8 | arg(1)&0xff
	case FORM_XY:
		word |= (arg(0)&0xf)<<8 | (arg(1)&0xf)<<4
	case FORM_XYN:
		word |= (arg(0)&0xf)<<8 | (arg(1)&0xf)<<4 | arg(2)&0xf
	case FORM_X:
		word |= (arg(0) & 0xf) << 8
	}

	return Code(word)
}

// Nibbles splits the word into its four 4-bit fields, most significant first.
func (code Code) Nibbles() (nibbles [4]uint8) {
	word := uint16(code)
	for n := range nibbles {
		nibbles[n] = uint8((word >> (12 - 4*n)) & 0xf)
	}
	return
}

// X returns the first register operand.
func (code Code) X() int {
	return int((code >> 8) & 0xf)
}

// Y returns the second register operand.
func (code Code) Y() int {
	return int((code >> 4) & 0xf)
}

// N returns the 4-bit immediate.
func (code Code) N() uint8 {
	return uint8(code & 0xf)
}

// NN returns the 8-bit immediate.
func (code Code) NN() uint8 {
	return uint8(code & 0xff)
}

// NNN returns the 12-bit address.
func (code Code) NNN() uint16 {
	return uint16(code & 0xfff)
}

// Kind decodes the instruction word.
// Words matching no known form return ErrOpcodeDecode.
func (code Code) Kind() (kind CodeKind, err error) {
	nib := code.Nibbles()

	switch nib[0] {
	case 0x0:
		switch code {
		case 0x0000:
			return OP_NOP, nil
		case 0x00e0:
			return OP_CLS, nil
		case 0x00ee:
			return OP_RET, nil
		}
	case 0x1:
		return OP_JP, nil
	case 0x2:
		return OP_CALL, nil
	case 0x3:
		return OP_SE_IMM, nil
	case 0x4:
		return OP_SNE_IMM, nil
	case 0x5:
		if nib[3] == 0x0 {
			return OP_SE_REG, nil
		}
	case 0x6:
		return OP_LD_IMM, nil
	case 0x7:
		return OP_ADD_IMM, nil
	case 0x8:
		switch nib[3] {
		case 0x0:
			return OP_LD_REG, nil
		case 0x1:
			return OP_OR, nil
		case 0x2:
			return OP_AND, nil
		case 0x3:
			return OP_XOR, nil
		case 0x4:
			return OP_ADD_REG, nil
		case 0x5:
			return OP_SUB, nil
		case 0x6:
			return OP_SHR, nil
		case 0x7:
			return OP_SUBN, nil
		case 0xe:
			return OP_SHL, nil
		}
	case 0x9:
		if nib[3] == 0x0 {
			return OP_SNE_REG, nil
		}
	case 0xa:
		return OP_LD_I, nil
	case 0xb:
		return OP_JP_V0, nil
	case 0xc:
		return OP_RND, nil
	case 0xd:
		return OP_DRW, nil
	case 0xe:
		switch code.NN() {
		case 0x9e:
			return OP_SKP, nil
		case 0xa1:
			return OP_SKNP, nil
		}
	case 0xf:
		switch code.NN() {
		case 0x07:
			return OP_LD_VX_DT, nil
		case 0x0a:
			return OP_LD_VX_K, nil
		case 0x15:
			return OP_LD_DT_VX, nil
		case 0x18:
			return OP_LD_ST_VX, nil
		case 0x1e:
			return OP_ADD_I_VX, nil
		case 0x29:
			return OP_LD_F_VX, nil
		case 0x33:
			return OP_LD_B_VX, nil
		case 0x55:
			return OP_LD_MEM_VX, nil
		case 0x65:
			return OP_LD_VX_MEM, nil
		}
	}

	err = ErrOpcodeDecode
	return
}

// String returns the assembly language representation of this instruction.
// Undecodable words are rendered as a data word.
func (code Code) String() string {
	kind, err := code.Kind()
	if err != nil {
		return fmt.Sprintf("dw 0x%04x", uint16(code))
	}

	x, y := code.X(), code.Y()

	switch kind {
	case OP_NOP:
		return "nop"
	case OP_CLS:
		return "cls"
	case OP_RET:
		return "ret"
	case OP_JP:
		return fmt.Sprintf("jp 0x%03x", code.NNN())
	case OP_CALL:
		return fmt.Sprintf("call 0x%03x", code.NNN())
	case OP_SE_IMM:
		return fmt.Sprintf("se v%x 0x%02x", x, code.NN())
	case OP_SNE_IMM:
		return fmt.Sprintf("sne v%x 0x%02x", x, code.NN())
	case OP_SE_REG:
		return fmt.Sprintf("se v%x v%x", x, y)
	case OP_LD_IMM:
		return fmt.Sprintf("ld v%x 0x%02x", x, code.NN())
	case OP_ADD_IMM:
		return fmt.Sprintf("add v%x 0x%02x", x, code.NN())
	case OP_LD_REG:
		return fmt.Sprintf("ld v%x v%x", x, y)
	case OP_OR:
		return fmt.Sprintf("or v%x v%x", x, y)
	case OP_AND:
		return fmt.Sprintf("and v%x v%x", x, y)
	case OP_XOR:
		return fmt.Sprintf("xor v%x v%x", x, y)
	case OP_ADD_REG:
		return fmt.Sprintf("add v%x v%x", x, y)
	case OP_SUB:
		return fmt.Sprintf("sub v%x v%x", x, y)
	case OP_SHR:
		return fmt.Sprintf("shr v%x v%x", x, y)
	case OP_SUBN:
		return fmt.Sprintf("subn v%x v%x", x, y)
	case OP_SHL:
		return fmt.Sprintf("shl v%x v%x", x, y)
	case OP_SNE_REG:
		return fmt.Sprintf("sne v%x v%x", x, y)
	case OP_LD_I:
		return fmt.Sprintf("ld i 0x%03x", code.NNN())
	case OP_JP_V0:
		return fmt.Sprintf("jp v0 0x%03x", code.NNN())
	case OP_RND:
		return fmt.Sprintf("rnd v%x 0x%02x", x, code.NN())
	case OP_DRW:
		return fmt.Sprintf("drw v%x v%x 0x%x", x, y, code.N())
	case OP_SKP:
		return fmt.Sprintf("skp v%x", x)
	case OP_SKNP:
		return fmt.Sprintf("sknp v%x", x)
	case OP_LD_VX_DT:
		return fmt.Sprintf("ld v%x dt", x)
	case OP_LD_VX_K:
		return fmt.Sprintf("ld v%x k", x)
	case OP_LD_DT_VX:
		return fmt.Sprintf("ld dt v%x", x)
	case OP_LD_ST_VX:
		return fmt.Sprintf("ld st v%x", x)
	case OP_ADD_I_VX:
		return fmt.Sprintf("add i v%x", x)
	case OP_LD_F_VX:
		return fmt.Sprintf("ld f v%x", x)
	case OP_LD_B_VX:
		return fmt.Sprintf("ld b v%x", x)
	case OP_LD_MEM_VX:
		return fmt.Sprintf("ld [i] v%x", x)
	case OP_LD_VX_MEM:
		return fmt.Sprintf("ld v%x [i]", x)
	}

	return fmt.Sprintf("dw 0x%04x", uint16(code))
}
