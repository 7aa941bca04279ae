// Package cpu implements the CHIP-8 virtual machine and an assembler for it.
//
// The machine has 4096 bytes of memory, sixteen 8-bit registers (V0-VF), a
// 16-bit index register (I), a program counter starting at 0x200, a sixteen
// entry call stack, delay and sound timers, a 64x32 monochrome display and a
// sixteen key hexadecimal keypad. The font glyphs for the digits 0-F live in
// the first 80 bytes of memory.
//
// VF is an ordinary register for storage purposes, but the carry, borrow,
// shift and draw instructions overwrite it with their flag output.
//
// The machine does no pacing of its own: the caller invokes Step once per
// instruction and TickTimers at its chosen timer rate (conventionally 60Hz).
//
// The assembler accepts the conventional CHIP-8 mnemonics, with labels,
// equates, macros and compile-time expressions.
package cpu
