package cpu

import (
	"iter"
)

// Opcode is a line of assembled source with the bytes generated for it.
type Opcode struct {
	LineNo    int      // Source line, 0 for raw images.
	Address   int      // Load address of the first byte.
	Words     []string // Source words.
	Bytes     []byte   // Generated bytes.
	LinkLabel string   // Label whose address is merged into the last word.
}

// Program is an assembled program listing.
type Program struct {
	Opcodes []Opcode
}

type Debug struct {
	*Opcode
	Index int // Byte offset of the address within the opcode.
}

// ProgramFromBinary wraps a raw program image as a listing of
// instruction words loaded at PROGRAM_START.
func ProgramFromBinary(bin []byte) (prog *Program) {
	prog = &Program{}
	for n := 0; n < len(bin); n += 2 {
		end := min(n+2, len(bin))
		prog.Opcodes = append(prog.Opcodes, Opcode{
			Address: PROGRAM_START + n,
			Bytes:   bin[n:end:end],
		})
	}

	return
}

// Debug locates the opcode containing addr.
func (prog *Program) Debug(addr uint16) (dbg Debug) {
	for n, op := range prog.Opcodes {
		if int(addr) >= op.Address && int(addr) < op.Address+len(op.Bytes) {
			dbg = Debug{
				Opcode: &prog.Opcodes[n],
				Index:  int(addr) - op.Address,
			}
			break
		}
	}

	return
}

// Binary renders the program as a load image for PROGRAM_START.
func (prog *Program) Binary() (bin []byte) {
	for _, op := range prog.Opcodes {
		offset := op.Address - PROGRAM_START
		if offset < 0 {
			continue
		}
		if end := offset + len(op.Bytes); end > len(bin) {
			bin = append(bin, make([]byte, end-len(bin))...)
		}
		copy(bin[offset:], op.Bytes)
	}

	return
}

// Codes iterates over the instruction words of the program, by address.
// A trailing odd byte of an opcode is not a word, and is skipped.
func (prog *Program) Codes() iter.Seq2[uint16, Code] {
	return func(yield func(addr uint16, code Code) bool) {
		for _, op := range prog.Opcodes {
			for n := 0; n+1 < len(op.Bytes); n += 2 {
				code := Code(uint16(op.Bytes[n])<<8 | uint16(op.Bytes[n+1]))
				if !yield(uint16(op.Address+n), code) {
					return
				}
			}
		}
	}
}
