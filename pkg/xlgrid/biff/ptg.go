package biff

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/ukaji3/xlgrid-go/pkg/xlgrid/cellref"
	"github.com/ukaji3/xlgrid-go/pkg/xlgrid/formula"
	"github.com/xuri/efp"
)

// ErrUnsupportedFormula indicates a formula construct the token codec does
// not handle, such as external references or functions missing from the
// function table.
var ErrUnsupportedFormula = errors.New("formula construct not supported in BIFF8")

// FormulaContext resolves sheet and name references while converting between
// formula text and parsed-expression tokens.
type FormulaContext struct {
	// Row and Col locate the host cell; relative tRefN/tAreaN tokens are
	// resolved against them.
	Row, Col int
	// SheetName maps an EXTERNSHEET index to a sheet name.
	SheetName func(ixti int) (string, bool)
	// SheetIndex maps a sheet name to its EXTERNSHEET index.
	SheetIndex func(name string) (int, bool)
	// NameText maps a one-based NAME index to its text.
	NameText func(index int) (string, bool)
	// NameIndex maps a defined name to its one-based NAME index.
	NameIndex func(name string) (int, bool)
	// Array selects array operand classes, as used by ARRAY records.
	Array bool
	// Reference selects the reference class at the top level, as used by
	// NAME records.
	Reference bool
}

const (
	classRef   byte = 0x20
	classValue byte = 0x40
	classArray byte = 0x60
)

var binaryOps = map[byte]string{
	0x03: "+", 0x04: "-", 0x05: "*", 0x06: "/", 0x07: "^", 0x08: "&",
	0x09: "<", 0x0A: "<=", 0x0B: "=", 0x0C: ">=", 0x0D: ">", 0x0E: "<>",
	0x0F: " ", 0x10: ",", 0x11: ":",
}

var binaryCodes = func() map[string]byte {
	m := make(map[string]byte, len(binaryOps))
	for code, op := range binaryOps {
		m[op] = code
	}
	return m
}()

// ExpReference reports whether rgce is a single tExp token and returns the
// cell it points at. Cells of array and shared formulas store such a token.
func ExpReference(rgce []byte) (row, col int, ok bool) {
	if len(rgce) != 5 || rgce[0] != 0x01 {
		return 0, 0, false
	}
	c := &cursor{b: rgce, pos: 1}
	return int(c.u16()), int(c.u16()), true
}

// DecodeFormula renders parsed-expression tokens as formula text without '='.
// extra is the data stored after the tokens in the record; it holds the
// values of array constants.
func DecodeFormula(rgce, extra []byte, ctx *FormulaContext) (string, error) {
	if ctx == nil {
		ctx = &FormulaContext{}
	}
	c := &cursor{b: rgce}
	ec := &cursor{b: extra}
	var stack []string
	push := func(s string) { stack = append(stack, s) }
	pop := func() (string, error) {
		if len(stack) == 0 {
			return "", fmt.Errorf("%w: token stack underflow", ErrUnsupportedFormula)
		}
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		return s, nil
	}
	for c.remaining() > 0 && c.err == nil {
		op := c.u8()
		if op < 0x20 {
			switch {
			case op >= 0x03 && op <= 0x11:
				r, err := pop()
				if err != nil {
					return "", err
				}
				l, err := pop()
				if err != nil {
					return "", err
				}
				push(l + binaryOps[op] + r)
			case op >= 0x12 && op <= 0x15:
				x, err := pop()
				if err != nil {
					return "", err
				}
				switch op {
				case 0x12:
					push("+" + x)
				case 0x13:
					push("-" + x)
				case 0x14:
					push(x + "%")
				case 0x15:
					push("(" + x + ")")
				}
			case op == 0x16:
				push("")
			case op == 0x17:
				s := readStringBody(c, int(c.u8()))
				push(`"` + strings.ReplaceAll(s, `"`, `""`) + `"`)
			case op == 0x19:
				grbit := c.u8()
				data := c.u16()
				if grbit&0x04 != 0 {
					c.skip(2 * (int(data) + 1))
				}
				if grbit&0x10 != 0 {
					x, err := pop()
					if err != nil {
						return "", err
					}
					push("SUM(" + x + ")")
				}
			case op == 0x1C:
				push(ErrorText(c.u8()))
			case op == 0x1D:
				if c.u8() != 0 {
					push("TRUE")
				} else {
					push("FALSE")
				}
			case op == 0x1E:
				push(strconv.Itoa(int(c.u16())))
			case op == 0x1F:
				push(formatNumber(c.f64()))
			default:
				return "", fmt.Errorf("%w: token 0x%02X", ErrUnsupportedFormula, op)
			}
			continue
		}
		switch op & 0x1F {
		case 0x00:
			c.skip(7)
			text, err := decodeArrayConstant(ec)
			if err != nil {
				return "", err
			}
			push(text)
		case 0x01:
			f, ok := funcByIndex[c.u16()]
			if !ok {
				return "", fmt.Errorf("%w: unknown function", ErrUnsupportedFormula)
			}
			s, err := popCall(f.Name, f.Min, pop)
			if err != nil {
				return "", err
			}
			push(s)
		case 0x02:
			argc := int(c.u8() & 0x7F)
			idx := c.u16() & 0x7FFF
			if idx == userFunctionIndex {
				args, err := popArgs(argc, pop)
				if err != nil {
					return "", err
				}
				if len(args) == 0 {
					return "", fmt.Errorf("%w: add-in call without name", ErrUnsupportedFormula)
				}
				push(args[0] + "(" + strings.Join(args[1:], ",") + ")")
				continue
			}
			f, ok := funcByIndex[idx]
			if !ok {
				return "", fmt.Errorf("%w: unknown function %d", ErrUnsupportedFormula, idx)
			}
			s, err := popCall(f.Name, argc, pop)
			if err != nil {
				return "", err
			}
			push(s)
		case 0x03:
			idx := int(c.u16())
			c.skip(2)
			name, ok := "", false
			if ctx.NameText != nil {
				name, ok = ctx.NameText(idx)
			}
			if !ok {
				name = "#NAME?"
			}
			push(name)
		case 0x04:
			push(refText(c.u16(), c.u16()))
		case 0x05:
			r1, r2, c1, c2 := c.u16(), c.u16(), c.u16(), c.u16()
			push(areaText(r1, r2, c1, c2))
		case 0x06, 0x07, 0x08:
			c.skip(6)
		case 0x09, 0x0E, 0x0F:
			c.skip(2)
		case 0x0A:
			c.skip(4)
			push("#REF!")
		case 0x0B:
			c.skip(8)
			push("#REF!")
		case 0x0C:
			row, col := relative(c.u16(), c.u16(), ctx)
			push(refText(row, col))
		case 0x0D:
			r1, r2, c1f, c2f := c.u16(), c.u16(), c.u16(), c.u16()
			row1, col1 := relative(r1, c1f, ctx)
			row2, col2 := relative(r2, c2f, ctx)
			push(areaText(row1, row2, col1, col2))
		case 0x1A:
			sheet := sheetPrefix(c.u16(), ctx)
			push(sheet + refText(c.u16(), c.u16()))
		case 0x1B:
			sheet := sheetPrefix(c.u16(), ctx)
			r1, r2, c1, c2 := c.u16(), c.u16(), c.u16(), c.u16()
			push(sheet + areaText(r1, r2, c1, c2))
		case 0x1C:
			sheet := sheetPrefix(c.u16(), ctx)
			c.skip(4)
			push(sheet + "#REF!")
		case 0x1D:
			sheet := sheetPrefix(c.u16(), ctx)
			c.skip(8)
			push(sheet + "#REF!")
		default:
			return "", fmt.Errorf("%w: token 0x%02X", ErrUnsupportedFormula, op)
		}
	}
	if c.err != nil {
		return "", c.err
	}
	if len(stack) != 1 {
		return "", fmt.Errorf("%w: %d values left on token stack", ErrUnsupportedFormula, len(stack))
	}
	return stack[0], nil
}

// decodeArrayConstant reads one array constant: column and row counts
// followed by the values row by row.
func decodeArrayConstant(c *cursor) (string, error) {
	cols := int(c.u8()) + 1
	rows := int(c.u16()) + 1
	var b strings.Builder
	b.WriteByte('{')
	for r := 0; r < rows && c.err == nil; r++ {
		if r > 0 {
			b.WriteByte(';')
		}
		for col := 0; col < cols && c.err == nil; col++ {
			if col > 0 {
				b.WriteByte(',')
			}
			switch kind := c.u8(); kind {
			case 0x00:
				c.skip(8)
			case 0x01:
				b.WriteString(formatNumber(c.f64()))
			case 0x02:
				b.WriteByte('"')
				b.WriteString(strings.ReplaceAll(readString(c, 2), `"`, `""`))
				b.WriteByte('"')
			case 0x04:
				if c.u8() != 0 {
					b.WriteString("TRUE")
				} else {
					b.WriteString("FALSE")
				}
				c.skip(7)
			case 0x10:
				b.WriteString(ErrorText(c.u8()))
				c.skip(7)
			default:
				return "", fmt.Errorf("%w: array constant value type 0x%02X", ErrUnsupportedFormula, kind)
			}
		}
	}
	if c.err != nil {
		return "", c.err
	}
	b.WriteByte('}')
	return b.String(), nil
}

func popArgs(n int, pop func() (string, error)) ([]string, error) {
	args := make([]string, n)
	for i := n - 1; i >= 0; i-- {
		s, err := pop()
		if err != nil {
			return nil, err
		}
		args[i] = s
	}
	return args, nil
}

func popCall(name string, n int, pop func() (string, error)) (string, error) {
	args, err := popArgs(n, pop)
	if err != nil {
		return "", err
	}
	return name + "(" + strings.Join(args, ",") + ")", nil
}

func formatNumber(v float64) string {
	a := math.Abs(v)
	if a != 0 && (a >= 1e15 || a < 1e-9) {
		return strconv.FormatFloat(v, 'E', -1, 64)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// relative resolves tRefN coordinates against the host cell. Relative rows
// are signed 16-bit offsets and relative columns signed 8-bit offsets.
func relative(row, colField uint16, ctx *FormulaContext) (uint16, uint16) {
	flags := colField & 0xC000
	col := colField & 0x3FFF
	if colField&0x8000 != 0 {
		row = uint16((ctx.Row + int(int16(row))) & 0xFFFF)
	}
	if colField&0x4000 != 0 {
		col = uint16((ctx.Col + int(int8(byte(colField)))) & 0xFF)
	}
	return row, col | flags
}

func sheetPrefix(ixti uint16, ctx *FormulaContext) string {
	if ctx.SheetName != nil {
		if name, ok := ctx.SheetName(int(ixti)); ok {
			return formula.QuoteSheetName(name) + "!"
		}
	}
	return "#REF!"
}

func refPart(row, colField uint16, withRow, withCol bool) string {
	var b strings.Builder
	if withCol {
		if colField&0x4000 == 0 {
			b.WriteByte('$')
		}
		b.WriteString(cellref.ColumnName(int(colField & 0x3FFF)))
	}
	if withRow {
		if colField&0x8000 == 0 {
			b.WriteByte('$')
		}
		b.WriteString(strconv.Itoa(int(row) + 1))
	}
	return b.String()
}

func refText(row, colField uint16) string {
	return refPart(row, colField, true, true)
}

func areaText(r1, r2, c1f, c2f uint16) string {
	col1, col2 := c1f&0x3FFF, c2f&0x3FFF
	switch {
	case col1 == 0 && col2 >= 0xFF && !(r1 == 0 && r2 == 0xFFFF):
		return refPart(r1, c1f, true, false) + ":" + refPart(r2, c2f, true, false)
	case r1 == 0 && r2 == 0xFFFF && !(col1 == 0 && col2 >= 0xFF):
		return refPart(r1, c1f, false, true) + ":" + refPart(r2, c2f, false, true)
	}
	return refPart(r1, c1f, true, true) + ":" + refPart(r2, c2f, true, true)
}

// expression tree built from efp tokens

type nodeKind uint8

const (
	nodeOperand nodeKind = iota
	nodeMissing
	nodeCall
	nodeUnary
	nodePercent
	nodeBinary
	nodeParen
	nodeArray
)

type node struct {
	kind nodeKind
	tok  efp.Token
	op   string
	args []*node
	// rows of an array constant; a negative number is a token with a
	// leading '-'
	rows [][]efp.Token
}

type exprParser struct {
	toks []efp.Token
	pos  int
}

func (p *exprParser) peek() (efp.Token, bool) {
	if p.pos >= len(p.toks) {
		return efp.Token{}, false
	}
	return p.toks[p.pos], true
}

func (p *exprParser) infix(levels ...string) (string, bool) {
	t, ok := p.peek()
	if !ok || t.TType != efp.TokenTypeOperatorInfix {
		return "", false
	}
	v := t.TValue
	if t.TSubType == efp.TokenSubTypeIntersection {
		v = " "
	}
	for _, op := range levels {
		if v == op {
			p.pos++
			return op, true
		}
	}
	return "", false
}

func (p *exprParser) binary(next func() (*node, error), ops ...string) (*node, error) {
	l, err := next()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := p.infix(ops...)
		if !ok {
			return l, nil
		}
		r, err := next()
		if err != nil {
			return nil, err
		}
		l = &node{kind: nodeBinary, op: op, args: []*node{l, r}}
	}
}

func (p *exprParser) expr() (*node, error) {
	return p.binary(p.concat, "=", "<>", "<", ">", "<=", ">=")
}

func (p *exprParser) concat() (*node, error) { return p.binary(p.additive, "&") }

func (p *exprParser) additive() (*node, error) { return p.binary(p.multiplicative, "+", "-") }

func (p *exprParser) multiplicative() (*node, error) { return p.binary(p.power, "*", "/") }

func (p *exprParser) power() (*node, error) { return p.binary(p.unary, "^") }

func (p *exprParser) unary() (*node, error) {
	if t, ok := p.peek(); ok && t.TType == efp.TokenTypeOperatorPrefix {
		p.pos++
		x, err := p.unary()
		if err != nil {
			return nil, err
		}
		return &node{kind: nodeUnary, op: t.TValue, args: []*node{x}}, nil
	}
	x, err := p.binary(p.primary, ",", " ")
	if err != nil {
		return nil, err
	}
	for {
		t, ok := p.peek()
		if !ok || t.TType != efp.TokenTypeOperatorPostfix {
			return x, nil
		}
		p.pos++
		x = &node{kind: nodePercent, args: []*node{x}}
	}
}

func (p *exprParser) primary() (*node, error) {
	t, ok := p.peek()
	if !ok {
		return nil, fmt.Errorf("%w: unexpected end of formula", formula.ErrSyntax)
	}
	p.pos++
	switch {
	case t.TType == efp.TokenTypeOperand:
		return &node{kind: nodeOperand, tok: t}, nil
	case t.TType == efp.TokenTypeFunction && t.TSubType == efp.TokenSubTypeStart:
		if t.TValue == "ARRAY" {
			return p.array()
		}
		call := &node{kind: nodeCall, op: t.TValue}
		if n, ok := p.peek(); ok && n.TType == efp.TokenTypeFunction && n.TSubType == efp.TokenSubTypeStop {
			p.pos++
			return call, nil
		}
		for {
			arg := &node{kind: nodeMissing}
			if n, ok := p.peek(); ok && !isArgEnd(n) {
				var err error
				if arg, err = p.expr(); err != nil {
					return nil, err
				}
			}
			call.args = append(call.args, arg)
			n, ok := p.peek()
			if !ok {
				return nil, fmt.Errorf("%w: unclosed call to %s", formula.ErrSyntax, call.op)
			}
			p.pos++
			if n.TType == efp.TokenTypeArgument {
				continue
			}
			if n.TType == efp.TokenTypeFunction && n.TSubType == efp.TokenSubTypeStop {
				return call, nil
			}
			return nil, fmt.Errorf("%w: unexpected %q in %s", formula.ErrSyntax, n.TValue, call.op)
		}
	case t.TType == efp.TokenTypeSubexpression && t.TSubType == efp.TokenSubTypeStart:
		x, err := p.expr()
		if err != nil {
			return nil, err
		}
		n, ok := p.peek()
		if !ok || n.TType != efp.TokenTypeSubexpression || n.TSubType != efp.TokenSubTypeStop {
			return nil, fmt.Errorf("%w: unbalanced parenthesis", formula.ErrSyntax)
		}
		p.pos++
		return &node{kind: nodeParen, args: []*node{x}}, nil
	}
	return nil, fmt.Errorf("%w: unexpected %q", formula.ErrSyntax, t.TValue)
}

func isStart(t efp.Token, name string) bool {
	return t.TType == efp.TokenTypeFunction && t.TSubType == efp.TokenSubTypeStart && t.TValue == name
}

func isStop(t efp.Token) bool {
	return t.TType == efp.TokenTypeFunction && t.TSubType == efp.TokenSubTypeStop
}

// array reads an array constant after its opening token. Rows must have
// the same number of values.
func (p *exprParser) array() (*node, error) {
	n := &node{kind: nodeArray}
	for {
		t, ok := p.peek()
		if !ok || !isStart(t, "ARRAYROW") {
			return nil, fmt.Errorf("%w: malformed array constant", formula.ErrSyntax)
		}
		p.pos++
		row, err := p.arrayRow()
		if err != nil {
			return nil, err
		}
		if len(n.rows) > 0 && len(row) != len(n.rows[0]) {
			return nil, fmt.Errorf("%w: array constant rows differ in length", formula.ErrSyntax)
		}
		n.rows = append(n.rows, row)
		t, ok = p.peek()
		if !ok {
			return nil, fmt.Errorf("%w: unclosed array constant", formula.ErrSyntax)
		}
		p.pos++
		if isStop(t) {
			if len(n.rows) > 65536 || len(n.rows[0]) > 256 {
				return nil, fmt.Errorf("%w: array constant larger than 256 columns by 65536 rows", ErrUnsupportedFormula)
			}
			return n, nil
		}
		if t.TType != efp.TokenTypeArgument {
			return nil, fmt.Errorf("%w: unexpected %q in array constant", formula.ErrSyntax, t.TValue)
		}
	}
}

func (p *exprParser) arrayRow() ([]efp.Token, error) {
	var row []efp.Token
	for {
		t, ok := p.peek()
		if !ok {
			return nil, fmt.Errorf("%w: unclosed array constant", formula.ErrSyntax)
		}
		p.pos++
		neg := false
		if t.TType == efp.TokenTypeOperatorPrefix && t.TValue == "-" {
			if t, ok = p.peek(); !ok || t.TSubType != efp.TokenSubTypeNumber {
				return nil, fmt.Errorf("%w: '-' before a non-number in array constant", formula.ErrSyntax)
			}
			p.pos++
			neg = true
		}
		if t.TType != efp.TokenTypeOperand {
			return nil, fmt.Errorf("%w: unexpected %q in array constant", formula.ErrSyntax, t.TValue)
		}
		switch t.TSubType {
		case efp.TokenSubTypeNumber, efp.TokenSubTypeText, efp.TokenSubTypeLogical, efp.TokenSubTypeError:
		default:
			return nil, fmt.Errorf("%w: %q in array constant", ErrUnsupportedFormula, t.TValue)
		}
		if neg {
			t.TValue = "-" + t.TValue
		}
		row = append(row, t)

		t, ok = p.peek()
		if !ok {
			return nil, fmt.Errorf("%w: unclosed array constant", formula.ErrSyntax)
		}
		p.pos++
		if isStop(t) {
			return row, nil
		}
		if t.TType != efp.TokenTypeArgument {
			return nil, fmt.Errorf("%w: unexpected %q in array constant", formula.ErrSyntax, t.TValue)
		}
	}
}

func isArgEnd(t efp.Token) bool {
	return t.TType == efp.TokenTypeArgument ||
		(t.TType == efp.TokenTypeFunction && t.TSubType == efp.TokenSubTypeStop)
}

// EncodeFormula converts formula text (with or without '=') into
// parsed-expression tokens. extra holds the values of array constants; it
// is written after the tokens and not counted in their length.
func EncodeFormula(text string, ctx *FormulaContext) (rgce, extra []byte, err error) {
	if ctx == nil {
		ctx = &FormulaContext{}
	}
	toks, err := formula.EFPParser{}.Tokenize(text)
	if err != nil {
		return nil, nil, err
	}
	p := &exprParser{toks: toks}
	root, err := p.expr()
	if err != nil {
		return nil, nil, err
	}
	if p.pos != len(toks) {
		return nil, nil, fmt.Errorf("%w: trailing %q", formula.ErrSyntax, toks[p.pos].TValue)
	}
	e := &encoder{ctx: ctx}
	top := classValue
	switch {
	case ctx.Reference:
		top = classRef
	case ctx.Array:
		top = classArray
	}
	if err := e.emit(root, top); err != nil {
		return nil, nil, err
	}
	return e.b.b, e.extra.b, nil
}

type encoder struct {
	ctx   *FormulaContext
	b     builder
	extra builder
}

func (e *encoder) valueClass() byte {
	if e.ctx.Array {
		return classArray
	}
	return classValue
}

func (e *encoder) emit(n *node, class byte) error {
	switch n.kind {
	case nodeMissing:
		e.b.u8(0x16)
	case nodeOperand:
		return e.operand(n.tok, class)
	case nodeParen:
		if err := e.emit(n.args[0], class); err != nil {
			return err
		}
		e.b.u8(0x15)
	case nodeUnary:
		if err := e.emit(n.args[0], e.valueClass()); err != nil {
			return err
		}
		if n.op == "-" {
			e.b.u8(0x13)
		} else {
			e.b.u8(0x12)
		}
	case nodePercent:
		if err := e.emit(n.args[0], e.valueClass()); err != nil {
			return err
		}
		e.b.u8(0x14)
	case nodeBinary:
		operandClass := e.valueClass()
		if n.op == "," || n.op == " " {
			operandClass = classRef
		}
		for _, a := range n.args {
			if err := e.emit(a, operandClass); err != nil {
				return err
			}
		}
		e.b.u8(binaryCodes[n.op])
	case nodeCall:
		return e.call(n, class)
	case nodeArray:
		if class == classRef {
			class = classArray
		}
		e.b.u8(class)
		e.b.zero(7)
		return e.arrayConstant(n.rows)
	}
	return nil
}

func (e *encoder) arrayConstant(rows [][]efp.Token) error {
	e.extra.u8(byte(len(rows[0]) - 1))
	e.extra.u16(uint16(len(rows) - 1))
	for _, row := range rows {
		for _, t := range row {
			switch t.TSubType {
			case efp.TokenSubTypeNumber:
				v, err := strconv.ParseFloat(t.TValue, 64)
				if err != nil {
					return fmt.Errorf("%w: number %q", formula.ErrSyntax, t.TValue)
				}
				e.extra.u8(0x01)
				e.extra.f64(v)
			case efp.TokenSubTypeText:
				if _, _, cch := encodeChars(t.TValue); cch > 255 {
					return fmt.Errorf("%w: string constant longer than 255 characters", ErrUnsupportedFormula)
				}
				e.extra.u8(0x02)
				appendString(&e.extra, t.TValue, 2)
			case efp.TokenSubTypeLogical:
				e.extra.u8(0x04)
				if strings.EqualFold(t.TValue, "TRUE") {
					e.extra.u8(1)
				} else {
					e.extra.u8(0)
				}
				e.extra.zero(7)
			case efp.TokenSubTypeError:
				code, ok := ErrorCode(t.TValue)
				if !ok {
					return fmt.Errorf("%w: error literal %s", ErrUnsupportedFormula, t.TValue)
				}
				e.extra.u8(0x10)
				e.extra.u8(code)
				e.extra.zero(7)
			}
		}
	}
	return nil
}

func (e *encoder) call(n *node, class byte) error {
	f, ok := lookupFunction(n.op)
	if !ok {
		return fmt.Errorf("%w: function %s", ErrUnsupportedFormula, n.op)
	}
	if len(n.args) < f.Min || len(n.args) > f.Max {
		return fmt.Errorf("%w: %s takes %d to %d arguments, got %d", formula.ErrSyntax, f.Name, f.Min, f.Max, len(n.args))
	}
	argClass := e.valueClass()
	if f.RefArgs {
		argClass = classRef
	}
	for _, a := range n.args {
		if err := e.emit(a, argClass); err != nil {
			return err
		}
	}
	if class == classRef {
		class = classValue
	}
	if f.Min == f.Max {
		e.b.u8(0x01 | class)
		e.b.u16(f.Index)
		return nil
	}
	e.b.u8(0x02 | class)
	e.b.u8(byte(len(n.args)))
	e.b.u16(f.Index)
	return nil
}

func (e *encoder) operand(t efp.Token, class byte) error {
	switch t.TSubType {
	case efp.TokenSubTypeNumber:
		v, err := strconv.ParseFloat(t.TValue, 64)
		if err != nil {
			return fmt.Errorf("%w: number %q", formula.ErrSyntax, t.TValue)
		}
		if v >= 0 && v <= 0xFFFF && v == math.Trunc(v) && !strings.ContainsAny(t.TValue, ".eE") {
			e.b.u8(0x1E)
			e.b.u16(uint16(v))
			return nil
		}
		e.b.u8(0x1F)
		e.b.f64(v)
	case efp.TokenSubTypeText:
		data, high, cch := encodeChars(t.TValue)
		if cch > 255 {
			return fmt.Errorf("%w: string literal longer than 255 characters", ErrUnsupportedFormula)
		}
		e.b.u8(0x17)
		e.b.u8(byte(cch))
		if high {
			e.b.u8(0x01)
		} else {
			e.b.u8(0x00)
		}
		e.b.raw(data)
	case efp.TokenSubTypeLogical:
		e.b.u8(0x1D)
		if strings.EqualFold(t.TValue, "TRUE") {
			e.b.u8(1)
		} else {
			e.b.u8(0)
		}
	case efp.TokenSubTypeError:
		return e.errorOperand(t.TValue, class)
	case efp.TokenSubTypeRange:
		return e.reference(t.TValue, class)
	default:
		return fmt.Errorf("%w: operand %q", formula.ErrSyntax, t.TValue)
	}
	return nil
}

func (e *encoder) errorOperand(text string, class byte) error {
	sheet, rest := formula.SplitSheet(text)
	if sheet != "" && rest == "#REF!" {
		ixti, ok := e.sheetIndex(sheet)
		if ok {
			e.b.u8(0x1C | class)
			e.b.u16(uint16(ixti))
			e.b.zero(4)
			return nil
		}
		text = rest
	}
	code, ok := ErrorCode(text)
	if !ok {
		return fmt.Errorf("%w: error literal %s", ErrUnsupportedFormula, text)
	}
	e.b.u8(0x1C)
	e.b.u8(code)
	return nil
}

func (e *encoder) sheetIndex(name string) (int, bool) {
	if e.ctx.SheetIndex == nil {
		return 0, false
	}
	return e.ctx.SheetIndex(name)
}

func (e *encoder) reference(text string, class byte) error {
	ref, ok := formula.ParseRef(text)
	if !ok {
		return e.name(text, class)
	}
	if ref.Row1 >= cellref.Excel97.MaxRows || ref.Row2 >= cellref.Excel97.MaxRows ||
		ref.Col1 >= cellref.Excel97.MaxColumns || ref.Col2 >= cellref.Excel97.MaxColumns {
		return fmt.Errorf("%w: %s is outside the BIFF8 grid", ErrUnsupportedFormula, text)
	}
	r1, c1 := bounds(ref.Row1, ref.Col1, false)
	r2, c2 := bounds(ref.Row2, ref.Col2, true)
	c1 |= relFlags(ref.AbsRow1, ref.AbsCol1)
	c2 |= relFlags(ref.AbsRow2, ref.AbsCol2)
	if ref.Sheet != "" {
		ixti, ok := e.sheetIndex(ref.Sheet)
		if !ok {
			return fmt.Errorf("%w: unknown sheet %q", ErrUnsupportedFormula, ref.Sheet)
		}
		if !ref.Area {
			e.b.u8(0x1A | class)
			e.b.u16(uint16(ixti))
			e.b.u16(r1)
			e.b.u16(c1)
			return nil
		}
		e.b.u8(0x1B | class)
		e.b.u16(uint16(ixti))
	} else if !ref.Area {
		e.b.u8(0x04 | class)
		e.b.u16(r1)
		e.b.u16(c1)
		return nil
	} else {
		e.b.u8(0x05 | class)
	}
	e.b.u16(r1)
	e.b.u16(r2)
	e.b.u16(c1)
	e.b.u16(c2)
	return nil
}

// bounds fills in the missing half of whole-row and whole-column references.
func bounds(row, col int, last bool) (uint16, uint16) {
	if row < 0 {
		row = 0
		if last {
			row = cellref.Excel97.LastRowIndex()
		}
	}
	if col < 0 {
		col = 0
		if last {
			col = cellref.Excel97.LastColumnIndex()
		}
	}
	return uint16(row), uint16(col)
}

func relFlags(absRow, absCol bool) uint16 {
	var f uint16
	if !absRow {
		f |= 0x8000
	}
	if !absCol {
		f |= 0x4000
	}
	return f
}

// name writes a defined-name operand. Names missing from the workbook are
// written as #NAME? errors, which is how Excel evaluates them anyway.
func (e *encoder) name(text string, class byte) error {
	if strings.Contains(text, "!") || strings.ContainsAny(text, "[]") {
		return fmt.Errorf("%w: reference %q", ErrUnsupportedFormula, text)
	}
	if e.ctx.NameIndex != nil {
		if idx, ok := e.ctx.NameIndex(text); ok {
			e.b.u8(0x03 | class)
			e.b.u16(uint16(idx))
			e.b.u16(0)
			return nil
		}
	}
	e.b.u8(0x1C)
	e.b.u8(0x1D)
	return nil
}
