package cpu

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCode_Nibbles(t *testing.T) {
	assert := assert.New(t)

	code := Code(0xd12f)
	assert.Equal([4]uint8{0xd, 0x1, 0x2, 0xf}, code.Nibbles())
	assert.Equal(1, code.X())
	assert.Equal(2, code.Y())
	assert.Equal(uint8(0xf), code.N())
	assert.Equal(uint8(0x2f), code.NN())
	assert.Equal(uint16(0x12f), code.NNN())
}

func TestCode_Kind(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		code Code
		kind CodeKind
	}){
		{0x0000, OP_NOP},
		{0x00e0, OP_CLS},
		{0x00ee, OP_RET},
		{0x1abc, OP_JP},
		{0x2abc, OP_CALL},
		{0x3123, OP_SE_IMM},
		{0x4123, OP_SNE_IMM},
		{0x5120, OP_SE_REG},
		{0x6123, OP_LD_IMM},
		{0x7123, OP_ADD_IMM},
		{0x8120, OP_LD_REG},
		{0x8121, OP_OR},
		{0x8122, OP_AND},
		{0x8123, OP_XOR},
		{0x8124, OP_ADD_REG},
		{0x8125, OP_SUB},
		{0x8126, OP_SHR},
		{0x8127, OP_SUBN},
		{0x812e, OP_SHL},
		{0x9120, OP_SNE_REG},
		{0xa123, OP_LD_I},
		{0xb123, OP_JP_V0},
		{0xc123, OP_RND},
		{0xd123, OP_DRW},
		{0xe19e, OP_SKP},
		{0xe1a1, OP_SKNP},
		{0xf107, OP_LD_VX_DT},
		{0xf10a, OP_LD_VX_K},
		{0xf115, OP_LD_DT_VX},
		{0xf118, OP_LD_ST_VX},
		{0xf11e, OP_ADD_I_VX},
		{0xf129, OP_LD_F_VX},
		{0xf133, OP_LD_B_VX},
		{0xf155, OP_LD_MEM_VX},
		{0xf165, OP_LD_VX_MEM},
	}

	assert.Equal(OP_KIND_COUNT, len(table))

	for _, entry := range table {
		kind, err := entry.code.Kind()
		assert.NoError(err, "%04x", uint16(entry.code))
		assert.Equal(entry.kind, kind, "%04x", uint16(entry.code))
	}
}

func TestCode_Kind_Invalid(t *testing.T) {
	assert := assert.New(t)

	for _, code := range []Code{0x0123, 0x00e1, 0x00ff, 0x5121, 0x8128, 0x812f, 0x9121, 0xe100, 0xe19f, 0xf100, 0xf1ff, 0xf166} {
		_, err := code.Kind()
		assert.ErrorIs(err, ErrOpcodeDecode, "%04x", uint16(code))
		assert.Equal(fmt.Sprintf("dw 0x%04x", uint16(code)), code.String())
	}
}

func TestCodeKind_String(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("00E0", OP_CLS.String())
	assert.Equal("8xyE", OP_SHL.String())
	assert.Equal("Dxyn", OP_DRW.String())
	assert.Equal("Fx65", OP_LD_VX_MEM.String())
	assert.Equal("CodeKind(35)", CodeKind(35).String())
}

func TestMakeCode(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(Code(0x00e0), MakeCode(OP_CLS))
	assert.Equal(Code(0x1234), MakeCode(OP_JP, 0x234))
	assert.Equal(Code(0x1234), MakeCode(OP_JP, 0xf234))
	assert.Equal(Code(0x6a42), MakeCode(OP_LD_IMM, 0xa, 0x42))
	assert.Equal(Code(0x8ab4), MakeCode(OP_ADD_REG, 0xa, 0xb))
	assert.Equal(Code(0xd125), MakeCode(OP_DRW, 1, 2, 5))
	assert.Equal(Code(0xf733), MakeCode(OP_LD_B_VX, 7))
	assert.Equal(Code(0xe09e), MakeCode(OP_SKP))

	for kind := range CodeKind(OP_KIND_COUNT) {
		decoded, err := MakeCode(kind, 1, 2, 3).Kind()
		assert.NoError(err, kind.String())
		assert.Equal(kind, decoded)
	}
}

func TestCode_String(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("cls", Code(0x00e0).String())
	assert.Equal("jp 0x2a4", Code(0x12a4).String())
	assert.Equal("jp v0 0x2a4", Code(0xb2a4).String())
	assert.Equal("se v3 0x7f", Code(0x337f).String())
	assert.Equal("drw va vb 0x5", Code(0xdab5).String())
	assert.Equal("ld [i] vf", Code(0xff55).String())
	assert.Equal("ld v2 [i]", Code(0xf265).String())
	assert.Equal("ld v2 k", Code(0xf20a).String())
	assert.Equal("add i v1", Code(0xf11e).String())
}

// Every decodable word disassembles to text that assembles back to it.
func TestCode_String_Assemble(t *testing.T) {
	assert := assert.New(t)

	var lines []string
	var expect []Code
	for word := range 0x10000 {
		code := Code(word)
		if _, err := code.Kind(); err != nil {
			continue
		}
		lines = append(lines, code.String())
		expect = append(expect, code)
	}

	asm := &Assembler{}
	prog, err := asm.Parse(strings.NewReader(strings.Join(lines, "\n")))
	assert.NoError(err)
	if err != nil {
		t.FailNow()
	}

	n := 0
	for _, code := range prog.Codes() {
		if code != expect[n] {
			t.Fatalf("%q assembled to %04x", lines[n], uint16(code))
		}
		n++
	}
	assert.Equal(len(expect), n)
}
