// Package formula rewrites cell and area references inside spreadsheet
// formulas. Formulas are tokenized with github.com/xuri/efp; only reference
// operands are rewritten, everything else is rendered back verbatim.
package formula

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xuri/efp"
)

// ErrSyntax indicates a formula the tokenizer could not make sense of.
var ErrSyntax = errors.New("formula syntax error")

// Parser turns formula text (with or without a leading '=') into tokens.
type Parser interface {
	Tokenize(formula string) ([]efp.Token, error)
}

// EFPParser is the default Parser backed by efp.
type EFPParser struct{}

// Tokenize implements Parser.
func (EFPParser) Tokenize(formula string) ([]efp.Token, error) {
	text := strings.TrimPrefix(strings.TrimSpace(formula), "=")
	if text == "" {
		return nil, fmt.Errorf("%w: empty formula", ErrSyntax)
	}
	ps := efp.ExcelParser()
	raw := ps.Parse(text)
	tokens := make([]efp.Token, 0, len(raw))
	for i := 0; i < len(raw); i++ {
		tok := raw[i]
		if i == 0 && tok.TType == efp.TokenTypeOperatorInfix && tok.TValue == "=" {
			continue
		}
		if tok.TType == efp.TokenTypeUnknown {
			// Sheet1!#REF! arrives as an unknown "Sheet1!" followed by the error.
			if strings.HasSuffix(tok.TValue, "!") && i+1 < len(raw) &&
				raw[i+1].TType == efp.TokenTypeOperand && raw[i+1].TSubType == efp.TokenSubTypeError {
				tokens = append(tokens, efp.Token{
					TValue:   QuoteSheetName(strings.Trim(strings.TrimSuffix(tok.TValue, "!"), "'")) + "!" + raw[i+1].TValue,
					TType:    efp.TokenTypeOperand,
					TSubType: efp.TokenSubTypeError,
				})
				i++
				continue
			}
			return nil, fmt.Errorf("%w: unexpected %q in %q", ErrSyntax, tok.TValue, formula)
		}
		if tok.TType == efp.TokenTypeOperand && tok.TSubType == efp.TokenSubTypeRange {
			tok.TValue = requote(tok.TValue)
		}
		tokens = append(tokens, tok)
	}
	return tokens, nil
}

// requote restores the quotes the tokenizer strips from sheet qualifiers.
func requote(operand string) string {
	if strings.ContainsAny(operand, "[]") || strings.Count(operand, "!") != 1 {
		return operand
	}
	sheet, rest := SplitSheet(operand)
	if sheet == "" {
		return operand
	}
	return QuoteSheetName(sheet) + "!" + rest
}

// Render formats tokens back into formula text without a leading '='.
func Render(tokens []efp.Token) string {
	var (
		b     strings.Builder
		stack []string
	)
	for i, t := range tokens {
		switch {
		case t.TType == efp.TokenTypeFunction && t.TSubType == efp.TokenSubTypeStart:
			stack = append(stack, t.TValue)
			switch t.TValue {
			case "ARRAY":
				b.WriteByte('{')
			case "ARRAYROW":
			default:
				b.WriteString(t.TValue)
				b.WriteByte('(')
			}
		case t.TType == efp.TokenTypeFunction && t.TSubType == efp.TokenSubTypeStop:
			name := ""
			if n := len(stack); n > 0 {
				name, stack = stack[n-1], stack[:n-1]
			}
			switch name {
			case "ARRAY":
				b.WriteByte('}')
			case "ARRAYROW":
			default:
				b.WriteByte(')')
			}
		case t.TType == efp.TokenTypeSubexpression && t.TSubType == efp.TokenSubTypeStart:
			stack = append(stack, "")
			b.WriteByte('(')
		case t.TType == efp.TokenTypeSubexpression && t.TSubType == efp.TokenSubTypeStop:
			if n := len(stack); n > 0 {
				stack = stack[:n-1]
			}
			b.WriteByte(')')
		case t.TType == efp.TokenTypeArgument:
			if i > 0 && isArrayRowStop(tokens, i-1, stack) {
				b.WriteByte(';')
			} else {
				b.WriteByte(',')
			}
		case t.TType == efp.TokenTypeOperand && t.TSubType == efp.TokenSubTypeText:
			b.WriteByte('"')
			b.WriteString(strings.ReplaceAll(t.TValue, `"`, `""`))
			b.WriteByte('"')
		case t.TType == efp.TokenTypeOperatorInfix && t.TSubType == efp.TokenSubTypeIntersection:
			b.WriteByte(' ')
		default:
			b.WriteString(t.TValue)
		}
	}
	return b.String()
}

// isArrayRowStop reports whether tokens[i] closed an array row, which makes
// the following argument separator a row separator.
func isArrayRowStop(tokens []efp.Token, i int, stack []string) bool {
	t := tokens[i]
	if t.TType != efp.TokenTypeFunction || t.TSubType != efp.TokenSubTypeStop {
		return false
	}
	return len(stack) > 0 && stack[len(stack)-1] == "ARRAY"
}

// Normalize tokenizes and re-renders a formula, dropping a leading '=' and
// redundant whitespace.
func Normalize(p Parser, formula string) (string, error) {
	tokens, err := p.Tokenize(formula)
	if err != nil {
		return "", err
	}
	return Render(tokens), nil
}
