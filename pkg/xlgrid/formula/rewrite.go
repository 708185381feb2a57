package formula

import (
	"strings"

	"github.com/xuri/efp"
)

// Translate moves every relative reference component by (dRow, dCol), as
// when a shared or copied formula is evaluated from another cell. Components
// that leave [0, maxRow] x [0, maxCol] turn the reference into #REF!.
func Translate(p Parser, formula string, dRow, dCol, maxRow, maxCol int) (string, error) {
	if p == nil {
		p = EFPParser{}
	}
	if dRow == 0 && dCol == 0 {
		return formula, nil
	}
	tokens, err := p.Tokenize(formula)
	if err != nil {
		return formula, err
	}
	for i, tok := range tokens {
		if tok.TType != efp.TokenTypeOperand || tok.TSubType != efp.TokenSubTypeRange {
			continue
		}
		ref, ok := ParseRef(tok.TValue)
		if !ok {
			continue
		}
		moved, valid := translateRef(ref, dRow, dCol, maxRow, maxCol)
		if !valid {
			tokens[i] = efp.Token{TValue: ref.RefError(), TType: efp.TokenTypeOperand, TSubType: efp.TokenSubTypeError}
			continue
		}
		tokens[i].TValue = moved.String()
	}
	return Render(tokens), nil
}

func translateRef(ref Ref, dRow, dCol, maxRow, maxCol int) (Ref, bool) {
	step := func(idx int, abs bool, d, limit int) (int, bool) {
		if idx < 0 || abs {
			return idx, true
		}
		idx += d
		return idx, idx >= 0 && idx <= limit
	}
	var ok1, ok2, ok3, ok4 bool
	ref.Row1, ok1 = step(ref.Row1, ref.AbsRow1, dRow, maxRow)
	ref.Row2, ok2 = step(ref.Row2, ref.AbsRow2, dRow, maxRow)
	ref.Col1, ok3 = step(ref.Col1, ref.AbsCol1, dCol, maxCol)
	ref.Col2, ok4 = step(ref.Col2, ref.AbsCol2, dCol, maxCol)
	return ref, ok1 && ok2 && ok3 && ok4
}

// RenameSheet rewrites references qualified with oldName to use newName.
func RenameSheet(p Parser, formula, oldName, newName string) (string, bool, error) {
	return rewriteQualified(p, formula, oldName, func(ref Ref) efp.Token {
		ref.Sheet = newName
		return efp.Token{TValue: ref.String(), TType: efp.TokenTypeOperand, TSubType: efp.TokenSubTypeRange}
	}, func(rest string) string {
		return QuoteSheetName(newName) + "!" + rest
	})
}

// InvalidateSheet turns every reference qualified with name into #REF!, as
// when that sheet is removed from the workbook.
func InvalidateSheet(p Parser, formula, name string) (string, bool, error) {
	refErr := func(Ref) efp.Token {
		return efp.Token{TValue: "#REF!", TType: efp.TokenTypeOperand, TSubType: efp.TokenSubTypeError}
	}
	return rewriteQualified(p, formula, name, refErr, func(string) string { return "#REF!" })
}

func rewriteQualified(p Parser, formula, sheet string, onRef func(Ref) efp.Token, onOther func(rest string) string) (string, bool, error) {
	if p == nil {
		p = EFPParser{}
	}
	tokens, err := p.Tokenize(formula)
	if err != nil {
		return formula, false, err
	}
	changed := false
	for i, tok := range tokens {
		if tok.TType != efp.TokenTypeOperand {
			continue
		}
		if tok.TSubType != efp.TokenSubTypeRange && tok.TSubType != efp.TokenSubTypeError {
			continue
		}
		qualifier, rest := SplitSheet(tok.TValue)
		if qualifier == "" || !strings.EqualFold(qualifier, sheet) {
			continue
		}
		if ref, ok := ParseRef(tok.TValue); ok {
			tokens[i] = onRef(ref)
		} else {
			tokens[i].TValue = onOther(rest)
		}
		changed = true
	}
	if !changed {
		return formula, false, nil
	}
	return Render(tokens), true, nil
}

// References lists the cell and area references of a formula.
func References(p Parser, formula string) ([]Ref, error) {
	if p == nil {
		p = EFPParser{}
	}
	tokens, err := p.Tokenize(formula)
	if err != nil {
		return nil, err
	}
	var refs []Ref
	for _, tok := range tokens {
		if tok.TType != efp.TokenTypeOperand || tok.TSubType != efp.TokenSubTypeRange {
			continue
		}
		if ref, ok := ParseRef(tok.TValue); ok {
			refs = append(refs, ref)
		}
	}
	return refs, nil
}
