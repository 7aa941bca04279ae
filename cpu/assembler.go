// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package cpu

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// Macro represents a macro definition in the assembly language.
type Macro struct {
	LineNo int      // Line number of the macro definition.
	Args   []string // Arguments for the macro.
	Lines  []string // Lines of macro text to expand.
}

// Predefined system equates
var sysEquate = map[string]string{
	"LINENO":        "0",
	"PROGRAM_START": fmt.Sprintf("%#x", PROGRAM_START),
}

// Assembler is a single pass macro assembler for CHIP-8.
type Assembler struct {
	Verbose bool     // If set, verbosely logs the assembler actions.
	Opcode  []Opcode // List of generated opcodes.

	predefine map[string]string   // Predefines
	Label     map[string]int      // Map of jump labels to addresses.
	Equate    map[string]string   // Map of equates.
	Macro     map[string](*Macro) // Map of macros.

	expansions int // Macro expansions so far, for '@' labels.
}

// Predefine defines a new equate or redefines an existing equate,
// applied at the start of every Parse.
func (asm *Assembler) Predefine(equ string, value string) {
	if asm.predefine == nil {
		asm.predefine = map[string]string{equ: value}
	} else {
		asm.predefine[equ] = value
	}
}

// valueOf returns the value of a simple numeric word.
func (asm *Assembler) valueOf(word string) (value int64, err error) {
	if len(word) == 0 {
		err = ErrParseNumber(word)
		return
	}
	if word[0] == '\'' {
		// Character quotes should have been expanded into
		// values in parseLine()
		err = ErrParseCharacter(word)
		return
	}
	value, err = strconv.ParseInt(word, 0, 32)
	if err != nil {
		err = ErrParseNumber(word)
		return
	}

	return
}

// byteOf returns a word as an 8-bit immediate. Negative values are
// taken as two's complement.
func (asm *Assembler) byteOf(word string) (value uint16, err error) {
	v, err := asm.valueOf(word)
	if err != nil {
		return
	}
	if v < -0x80 || v > 0xff {
		err = fmt.Errorf("%w: %v", ErrValueRange, word)
		return
	}
	value = uint16(uint8(v))
	return
}

// nibbleOf returns a word as a 4-bit immediate.
func (asm *Assembler) nibbleOf(word string) (value uint16, err error) {
	v, err := asm.valueOf(word)
	if err != nil {
		return
	}
	if v < 0 || v > 0xf {
		err = fmt.Errorf("%w: %v", ErrValueRange, word)
		return
	}
	value = uint16(v)
	return
}

// labelRe matches words usable as jump labels.
var labelRe = regexp.MustCompile(`^[A-Za-z_.][A-Za-z0-9_.]*$`)

// addressOf returns a word as a 12-bit address, or as a label to link.
func (asm *Assembler) addressOf(word string) (value uint16, label string, err error) {
	v, err := asm.valueOf(word)
	if err != nil {
		if labelRe.MatchString(word) {
			err = nil
			label = word
		}
		return
	}
	if v < 0 || v > 0xfff {
		err = fmt.Errorf("%w: %v", ErrValueRange, word)
		return
	}
	value = uint16(v)
	return
}

// regOf returns the index of a V register word.
func regOf(word string) (reg uint16, ok bool) {
	word = strings.ToLower(word)
	if len(word) != 2 || word[0] != 'v' {
		return
	}
	v, err := strconv.ParseUint(word[1:], 16, 4)
	if err != nil {
		return
	}
	return uint16(v), true
}

// parenEval does compile-time $(...) evaluations
func (asm *Assembler) parenEval(expr string) (value int64, err error) {
	thread := starlark.Thread{}
	opts := syntax.FileOptions{}
	pred := starlark.StringDict{}
	for key, str := range asm.Equate {
		var value64 int64
		value64, err = asm.valueOf(str)
		if err != nil {
			// Ignore non-integer equates. They may be registers
			// or something else.
			err = nil
			continue
		}
		pred[key] = starlark.MakeInt64(value64)
	}
	for key, addr := range asm.Label {
		pred[key] = starlark.MakeInt(addr)
	}
	prog := "rc=" + expr + "\n"
	dict, err := starlark.ExecFileOptions(&opts, &thread, "expr", prog, pred)
	if err != nil {
		return
	}
	st_rc, ok := dict["rc"]
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	st_int, ok := st_rc.(starlark.Int)
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	value, ok = st_int.Int64()
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	return
}

// splitWords splits a line on whitespace and commas.
func splitWords(line string) []string {
	return strings.FieldsFunc(line, func(r rune) bool {
		return r == ' ' || r == '\t' || r == ','
	})
}

// parseLine parses a single line as an opcode.
func (asm *Assembler) parseLine(line string, lineno int) (words []string, err error) {
	// Set line number.
	asm.Equate["LINENO"] = fmt.Sprintf("%v", lineno)

	// Do 'x' evaluations
	re := regexp.MustCompile(`'\\?[^']'`)
	line = re.ReplaceAllStringFunc(line, func(word string) string {
		str := word[1 : len(word)-1]
		if str[0] == '\\' {
			str = str[1:]
			switch str {
			case "\\":
				str = "\\"
			case "n":
				str = "\n"
			case "r":
				str = "\r"
			case "e":
				str = "\033"
			default:
				return word
			}
		} else if len(str) != 1 {
			return word
		}
		return fmt.Sprintf("%v", str[0])
	})

	// Do $() evaluations
	re = regexp.MustCompile(`\$\([^\$]*\)`)
	line = re.ReplaceAllStringFunc(line, func(str string) string {
		value, _err := asm.parenEval(str[2 : len(str)-1])
		if _err != nil {
			err = _err
		}
		return fmt.Sprintf("%d", value)
	})
	if err != nil {
		return
	}

	words = splitWords(line)

	if len(words) == 0 {
		return
	}

	// .equ CONST VALUE
	if words[0] == ".equ" {
		if len(words) != 3 {
			err = ErrEquateSyntax
			return
		}
		_, ok := asm.Equate[words[1]]
		if ok {
			err = ErrEquateDuplicate
			return
		}
		asm.Equate[words[1]] = words[2]
		words = words[:0]
		return
	}

	for n, word := range words {
		// Check for equate next
		equate, ok := asm.Equate[word]
		if ok {
			words[n] = equate
		}
	}

	for strings.HasSuffix(words[0], ":") {
		label := words[0][:len(words[0])-1]
		_, ok := asm.Label[label]
		if ok {
			err = ErrLabelDuplicate
			return
		}

		if asm.Label == nil {
			asm.Label = make(map[string]int, 16)
		}
		asm.Label[label] = asm.currentAddress()
		words = words[1:]
		if len(words) == 0 {
			return
		}
	}

	// .macro processing
	macro, ok := asm.Macro[words[0]]
	if ok {
		name := words[0]

		args := words[1:]
		if len(args) != len(macro.Args) {
			err = ErrMacroSyntax
			return
		}
		// Turn args into equs
		old_equate := maps.Clone(asm.Equate)
		for n, arg := range macro.Args {
			asm.Equate[arg] = words[1+n]
		}
		defer func() { asm.Equate = old_equate }()

		asm.expansions++
		prefix := fmt.Sprintf("%v_%v_%v_", name, lineno, asm.expansions)
		for n, line := range macro.Lines {
			lineno := macro.LineNo + n

			// '@' makes labels unique to each expansion, and shared by
			// every line of that expansion.
			line = strings.ReplaceAll(line, "@", prefix)
			words, err = asm.parseLine(line, lineno)
			if err != nil {
				err = &ErrMacro{Macro: name, Line: lineno, Err: err}
				err = &ErrSyntax{LineNo: lineno, Line: line, Err: err}
				return
			}

			err = asm.parseWords(words, lineno)
			if err != nil {
				err = &ErrMacro{Macro: name, Line: lineno, Err: err}
				err = &ErrSyntax{LineNo: lineno, Line: line, Err: err}
				return
			}
		}

		words = nil
		return
	}

	return
}

// currentAddress gets the load address of the next generated byte.
func (asm *Assembler) currentAddress() int {
	if len(asm.Opcode) == 0 {
		return PROGRAM_START
	}

	last := asm.Opcode[len(asm.Opcode)-1]

	return last.Address + len(last.Bytes)
}

// Parse parses an input stream into a Program containing opcodes.
func (asm *Assembler) Parse(input io.Reader) (prog *Program, err error) {

	scanner := bufio.NewScanner(input)

	var line string
	var lineno int
	var macro *Macro

	defer func() {
		if err != nil {
			err = &ErrSyntax{LineNo: lineno, Line: line, Err: err}
		}
	}()

	clear(asm.Label)
	asm.Opcode = asm.Opcode[:0]
	asm.expansions = 0
	if asm.Macro == nil {
		asm.Macro = make(map[string](*Macro))
	}
	clear(asm.Macro)
	asm.Equate = maps.Clone(sysEquate)
	for attr, val := range asm.predefine {
		asm.Equate[attr] = val
	}

	for scanner.Scan() {
		text := scanner.Text()
		lineno += 1

		if asm.Verbose {
			log.Printf("%v: %v\n", lineno, text)
		}

		text_comment := strings.Split(text, ";")
		line = strings.TrimSpace(text_comment[0])
		words := splitWords(line)

		// .macro NAME arg...
		if len(words) > 0 && words[0] == ".macro" {
			if macro != nil {
				err = ErrMacroNesting
				return
			}
			if len(words) < 2 {
				err = ErrMacroSyntax
				return
			}
			_, ok := asm.Macro[words[1]]
			if ok {
				err = ErrMacroDuplicate
				return
			}
			macro = &Macro{
				LineNo: lineno + 1,
			}
			if len(words) > 2 {
				macro.Args = words[2:]
			}
			asm.Macro[words[1]] = macro
			continue
		}

		if len(words) > 0 && words[0] == ".endm" {
			if macro == nil {
				err = ErrMacroLonelyEndm
				return
			}
			macro = nil
			continue
		}

		if macro != nil {
			macro.Lines = append(macro.Lines, line)
			continue
		}

		words, err = asm.parseLine(line, lineno)
		if err != nil {
			return
		}

		err = asm.parseWords(words, lineno)
		if err != nil {
			return
		}
	}

	if err = scanner.Err(); err != nil {
		return
	}

	if macro != nil {
		err = ErrMacroLonely
		return
	}

	// Final linking of jump labels.
	for n := range asm.Opcode {
		op := &asm.Opcode[n]

		if len(op.LinkLabel) == 0 {
			continue
		}
		lineno = op.LineNo
		line = strings.Join(op.Words, " ")
		err = asm.link(op)
		if err != nil {
			return
		}
	}

	prog = &Program{
		Opcodes: slices.Clone(asm.Opcode),
	}

	return
}

// link ORs the address of the opcode's label into its final word.
func (asm *Assembler) link(op *Opcode) (err error) {
	label := op.LinkLabel
	addr, ok := asm.Label[label]
	if !ok {
		err = ErrLabelMissing(label)
		return
	}
	if addr > 0xfff {
		err = fmt.Errorf("%w: %v", ErrValueRange, label)
		return
	}
	if len(op.Bytes) < 2 {
		err = fmt.Errorf("%w: %v", ErrOpcodeInvalid, label)
		return
	}

	end := len(op.Bytes)
	op.Bytes[end-2] |= byte((addr >> 8) & 0x0f)
	op.Bytes[end-1] |= byte(addr & 0xff)

	return
}

// parseArgs checks that exactly count arguments follow the mnemonic.
func parseArgs(words []string, count int) (args []string, err error) {
	args = words[1:]
	switch {
	case len(args) < count:
		err = ErrOpcodeValueMissing
	case len(args) > count:
		err = ErrOpcodeExtraArgs
	}
	return
}

// parseWords evaluates the words in a line of assembly text.
func (asm *Assembler) parseWords(words []string, lineno int) (err error) {
	var codes []Code
	var data []byte
	var label string

	// no-op
	if len(words) == 0 {
		return
	}

	initial_words := words

	defer func() {
		for _, code := range codes {
			data = append(data, byte(code>>8), byte(code))
		}
		if err != nil || len(data) == 0 {
			return
		}
		opcode := Opcode{LineNo: lineno, Address: asm.currentAddress(), Words: initial_words, Bytes: data, LinkLabel: label}
		asm.Opcode = append(asm.Opcode, opcode)
	}()

	// reg parses the n'th word as a V register.
	reg := func(n int) (r uint16, err error) {
		r, ok := regOf(words[n])
		if !ok {
			err = fmt.Errorf("%w: %v", ErrRegisterInvalid, words[n])
		}
		return
	}

	var x, y, v uint16

	mnemonic := strings.ToLower(words[0])
	switch mnemonic {
	case "nop", "cls", "ret":
		if _, err = parseArgs(words, 0); err != nil {
			return
		}
		codes = append(codes, MakeCode(map[string]CodeKind{
			"nop": OP_NOP,
			"cls": OP_CLS,
			"ret": OP_RET,
		}[mnemonic]))
	case "jp", "call":
		kind := OP_JP
		if mnemonic == "call" {
			kind = OP_CALL
		}
		target := 1
		if mnemonic == "jp" && len(words) == 3 && strings.ToLower(words[1]) == "v0" {
			kind = OP_JP_V0
			target = 2
		}
		if _, err = parseArgs(words, target); err != nil {
			return
		}
		v, label, err = asm.addressOf(words[target])
		if err != nil {
			return
		}
		codes = append(codes, MakeCode(kind, v))
	case "se", "sne":
		if _, err = parseArgs(words, 2); err != nil {
			return
		}
		if x, err = reg(1); err != nil {
			return
		}
		if r, ok := regOf(words[2]); ok {
			kind := OP_SE_REG
			if mnemonic == "sne" {
				kind = OP_SNE_REG
			}
			codes = append(codes, MakeCode(kind, x, r))
			break
		}
		if v, err = asm.byteOf(words[2]); err != nil {
			return
		}
		kind := OP_SE_IMM
		if mnemonic == "sne" {
			kind = OP_SNE_IMM
		}
		codes = append(codes, MakeCode(kind, x, v))
	case "ld":
		var code Code
		code, label, err = asm.parseLoad(words)
		if err != nil {
			return
		}
		codes = append(codes, code)
	case "add":
		if _, err = parseArgs(words, 2); err != nil {
			return
		}
		if strings.ToLower(words[1]) == "i" {
			if y, err = reg(2); err != nil {
				return
			}
			codes = append(codes, MakeCode(OP_ADD_I_VX, y))
			break
		}
		if x, err = reg(1); err != nil {
			return
		}
		if r, ok := regOf(words[2]); ok {
			codes = append(codes, MakeCode(OP_ADD_REG, x, r))
			break
		}
		if v, err = asm.byteOf(words[2]); err != nil {
			return
		}
		codes = append(codes, MakeCode(OP_ADD_IMM, x, v))
	case "or", "and", "xor", "sub", "subn":
		if _, err = parseArgs(words, 2); err != nil {
			return
		}
		if x, err = reg(1); err != nil {
			return
		}
		if y, err = reg(2); err != nil {
			return
		}
		codes = append(codes, MakeCode(map[string]CodeKind{
			"or":   OP_OR,
			"and":  OP_AND,
			"xor":  OP_XOR,
			"sub":  OP_SUB,
			"subn": OP_SUBN,
		}[mnemonic], x, y))
	case "shr", "shl":
		kind := OP_SHR
		if mnemonic == "shl" {
			kind = OP_SHL
		}
		if len(words) == 2 {
			words = append(words, "v0")
		}
		if _, err = parseArgs(words, 2); err != nil {
			return
		}
		if x, err = reg(1); err != nil {
			return
		}
		if y, err = reg(2); err != nil {
			return
		}
		codes = append(codes, MakeCode(kind, x, y))
	case "rnd":
		if _, err = parseArgs(words, 2); err != nil {
			return
		}
		if x, err = reg(1); err != nil {
			return
		}
		if v, err = asm.byteOf(words[2]); err != nil {
			return
		}
		codes = append(codes, MakeCode(OP_RND, x, v))
	case "drw":
		if _, err = parseArgs(words, 3); err != nil {
			return
		}
		if x, err = reg(1); err != nil {
			return
		}
		if y, err = reg(2); err != nil {
			return
		}
		if v, err = asm.nibbleOf(words[3]); err != nil {
			return
		}
		codes = append(codes, MakeCode(OP_DRW, x, y, v))
	case "skp", "sknp":
		if _, err = parseArgs(words, 1); err != nil {
			return
		}
		if x, err = reg(1); err != nil {
			return
		}
		kind := OP_SKP
		if mnemonic == "sknp" {
			kind = OP_SKNP
		}
		codes = append(codes, MakeCode(kind, x))
	case "db":
		if len(words) < 2 {
			err = ErrOpcodeValueMissing
			return
		}
		for _, word := range words[1:] {
			if v, err = asm.byteOf(word); err != nil {
				return
			}
			data = append(data, byte(v))
		}
	case "dw":
		if len(words) < 2 {
			err = ErrOpcodeValueMissing
			return
		}
		for _, word := range words[1:] {
			var v64 int64
			if v64, err = asm.valueOf(word); err != nil {
				return
			}
			if v64 < -0x8000 || v64 > 0xffff {
				err = fmt.Errorf("%w: %v", ErrValueRange, word)
				return
			}
			codes = append(codes, Code(uint16(v64)))
		}
	default:
		err = ErrOpcodeInvalid
		return
	}

	return
}

// parseLoad encodes the many forms of the 'ld' mnemonic.
func (asm *Assembler) parseLoad(words []string) (code Code, label string, err error) {
	if _, err = parseArgs(words, 2); err != nil {
		return
	}

	dst := strings.ToLower(words[1])
	src := strings.ToLower(words[2])

	if dst == "i" {
		var addr uint16
		addr, label, err = asm.addressOf(words[2])
		if err != nil {
			return
		}
		code = MakeCode(OP_LD_I, addr)
		return
	}

	// ld <special> vx
	special := map[string]CodeKind{
		"dt":  OP_LD_DT_VX,
		"st":  OP_LD_ST_VX,
		"f":   OP_LD_F_VX,
		"b":   OP_LD_B_VX,
		"[i]": OP_LD_MEM_VX,
	}
	if kind, ok := special[dst]; ok {
		x, ok := regOf(src)
		if !ok {
			err = fmt.Errorf("%w: %v", ErrRegisterInvalid, words[2])
			return
		}
		code = MakeCode(kind, x)
		return
	}

	x, ok := regOf(dst)
	if !ok {
		err = fmt.Errorf("%w: %v", ErrRegisterInvalid, words[1])
		return
	}

	switch src {
	case "dt":
		code = MakeCode(OP_LD_VX_DT, x)
	case "k":
		code = MakeCode(OP_LD_VX_K, x)
	case "[i]":
		code = MakeCode(OP_LD_VX_MEM, x)
	default:
		if y, ok := regOf(src); ok {
			code = MakeCode(OP_LD_REG, x, y)
			return
		}
		var v uint16
		if v, err = asm.byteOf(words[2]); err != nil {
			return
		}
		code = MakeCode(OP_LD_IMM, x, v)
	}

	return
}
