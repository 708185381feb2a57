package formula

import (
	"strings"

	"github.com/xuri/efp"
)

// Axis selects whether a shift moves rows or columns.
type Axis int

const (
	// Rows moves row indices.
	Rows Axis = iota
	// Columns moves column indices.
	Columns
)

// Shifter moves the references that point at a band of rows (or columns) of
// one sheet. References inside the moved band follow it; references that the
// band lands on are overwritten and become #REF!; references pushed outside
// [0, Max] become #REF!.
type Shifter struct {
	// Sheet is the name of the sheet whose rows or columns move.
	Sheet string
	// Axis selects rows or columns.
	Axis Axis
	// First and Last bound the moved band (inclusive, zero-based).
	First int
	Last  int
	// Amount is the signed distance of the move.
	Amount int
	// Max is the last valid index on Axis.
	Max int
	// Parser tokenizes formulas; nil means EFPParser.
	Parser Parser
}

func (s *Shifter) parser() Parser {
	if s.Parser == nil {
		return EFPParser{}
	}
	return s.Parser
}

// Shift rewrites formula as seen from a cell on host. Unqualified references
// belong to host; pass an empty host for defined names, whose references are
// always qualified. The boolean result reports whether anything changed.
func (s *Shifter) Shift(formula, host string) (string, bool, error) {
	if s.Amount == 0 {
		return formula, false, nil
	}
	tokens, err := s.parser().Tokenize(formula)
	if err != nil {
		return formula, false, err
	}
	changed := false
	for i, tok := range tokens {
		if tok.TType != efp.TokenTypeOperand || tok.TSubType != efp.TokenSubTypeRange {
			continue
		}
		ref, ok := ParseRef(tok.TValue)
		if !ok {
			continue
		}
		sheet := ref.Sheet
		if sheet == "" {
			sheet = host
		}
		if sheet == "" || !strings.EqualFold(sheet, s.Sheet) {
			continue
		}
		out, moved := s.shiftRef(ref)
		if !moved {
			continue
		}
		tokens[i] = out
		changed = true
	}
	if !changed {
		return formula, false, nil
	}
	return Render(tokens), true, nil
}

// shiftRef returns the replacement token for ref and whether it changed.
func (s *Shifter) shiftRef(ref Ref) (efp.Token, bool) {
	first, last := ref.Row1, ref.Row2
	if s.Axis == Columns {
		first, last = ref.Col1, ref.Col2
	}
	if first < 0 {
		// whole columns under a row shift, or whole rows under a column shift
		return efp.Token{}, false
	}
	var (
		nf, nl  int
		deleted bool
		changed bool
	)
	if ref.Area {
		nf, nl, deleted, changed = s.moveArea(first, last)
	} else {
		nf, deleted, changed = s.moveIndex(first)
		nl = nf
	}
	if !changed {
		return efp.Token{}, false
	}
	if !deleted && (nf < 0 || nl > s.Max || nf > nl) {
		deleted = true
	}
	if deleted {
		return efp.Token{TValue: ref.RefError(), TType: efp.TokenTypeOperand, TSubType: efp.TokenSubTypeError}, true
	}
	if s.Axis == Columns {
		ref.Col1, ref.Col2 = nf, nl
	} else {
		ref.Row1, ref.Row2 = nf, nl
	}
	return efp.Token{TValue: ref.String(), TType: efp.TokenTypeOperand, TSubType: efp.TokenSubTypeRange}, true
}

// moveIndex applies the move to a single-cell reference component.
func (s *Shifter) moveIndex(idx int) (int, bool, bool) {
	if s.First <= idx && idx <= s.Last {
		return idx + s.Amount, false, true
	}
	destFirst, destLast := s.First+s.Amount, s.Last+s.Amount
	if destLast < idx || idx < destFirst {
		return idx, false, false
	}
	return idx, true, true
}

// moveArea applies the move to the span [a1, a2] of an area reference. It
// follows the spreadsheet behaviour for areas partially covered by the moved
// band or by its destination.
func (s *Shifter) moveArea(a1, a2 int) (int, int, bool, bool) {
	if a1 == 0 && a2 == s.Max {
		// spans the whole axis
		return a1, a2, false, false
	}
	first, last, amount := s.First, s.Last, s.Amount
	destFirst, destLast := first+amount, last+amount

	if first <= a1 && a2 <= last {
		return a1 + amount, a2 + amount, false, true
	}
	if a1 < first && last < a2 {
		// moved band was strictly inside the area
		if destFirst < a1 && a1 <= destLast {
			return destLast + 1, a2, false, true
		}
		if destFirst <= a2 && a2 < destLast {
			return a1, destFirst - 1, false, true
		}
		return a1, a2, false, false
	}
	if first <= a1 && a1 <= last {
		// band holds the top of the area but not the bottom
		if amount < 0 {
			return a1 + amount, a2, false, true
		}
		if destFirst > a2 {
			return a1, a2, false, false
		}
		newFirst := a1 + amount
		if destLast < a2 {
			return newFirst, a2, false, true
		}
		if remainingTop := last + 1; destFirst > remainingTop {
			newFirst = remainingTop
		}
		return newFirst, max(a2, destLast), false, true
	}
	if first <= a2 && a2 <= last {
		// band holds the bottom of the area but not the top
		if amount > 0 {
			return a1, a2 + amount, false, true
		}
		if destLast < a1 {
			return a1, a2, false, false
		}
		newLast := a2 + amount
		if destFirst > a1 {
			return a1, newLast, false, true
		}
		if remainingBottom := first - 1; destLast < remainingBottom {
			newLast = remainingBottom
		}
		return min(a1, destFirst), newLast, false, true
	}
	// the band holds none of the area; only the destination can clash
	if destLast < a1 || a2 < destFirst {
		return a1, a2, false, false
	}
	if destFirst <= a1 && a2 <= destLast {
		return a1, a2, true, true
	}
	if a1 <= destFirst && destLast <= a2 {
		return a1, a2, false, false
	}
	if destFirst < a1 && a1 <= destLast {
		return destLast + 1, a2, false, true
	}
	if destFirst <= a2 && a2 < destLast {
		return a1, destFirst - 1, false, true
	}
	return a1, a2, false, false
}
