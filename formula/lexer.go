package formula

import (
	"strings"
	"unicode"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNumber
	tokIdent
	tokChannel
	tokOp
	tokLParen
	tokRParen
	tokComma
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

var twoCharOps = []string{"<=", ">=", "==", "!=", "<>", "&&", "||"}

const oneCharOps = "+-*/%^<>=!"

func lex(src string) ([]token, error) {
	var out []token

	i := 0
	for i < len(src) {
		c := src[i]

		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++

		case c == '{':
			end := strings.IndexByte(src[i:], '}')
			if end < 0 {
				return nil, &Error{Formula: src, Pos: i, Reason: "unterminated channel reference"}
			}
			name := strings.TrimSpace(src[i+1 : i+end])
			if name == "" {
				return nil, &Error{Formula: src, Pos: i, Reason: "empty channel reference"}
			}
			out = append(out, token{kind: tokChannel, text: name, pos: i})
			i += end + 1

		case isDigit(c) || (c == '.' && i+1 < len(src) && isDigit(src[i+1])):
			start := i
			for i < len(src) && (isDigit(src[i]) || src[i] == '.') {
				i++
			}
			if i < len(src) && (src[i] == 'e' || src[i] == 'E') {
				j := i + 1
				if j < len(src) && (src[j] == '+' || src[j] == '-') {
					j++
				}
				if j < len(src) && isDigit(src[j]) {
					for j < len(src) && isDigit(src[j]) {
						j++
					}
					i = j
				}
			}
			out = append(out, token{kind: tokNumber, text: src[start:i], pos: start})

		case c == '_' || unicode.IsLetter(rune(c)):
			start := i
			for i < len(src) && (src[i] == '_' || isDigit(src[i]) || unicode.IsLetter(rune(src[i]))) {
				i++
			}
			out = append(out, token{kind: tokIdent, text: src[start:i], pos: start})

		case c == '(':
			out = append(out, token{kind: tokLParen, text: "(", pos: i})
			i++

		case c == ')':
			out = append(out, token{kind: tokRParen, text: ")", pos: i})
			i++

		case c == ',':
			out = append(out, token{kind: tokComma, text: ",", pos: i})
			i++

		default:
			matched := false
			for _, op := range twoCharOps {
				if strings.HasPrefix(src[i:], op) {
					out = append(out, token{kind: tokOp, text: op, pos: i})
					i += len(op)
					matched = true
					break
				}
			}
			if matched {
				continue
			}
			if strings.IndexByte(oneCharOps, c) >= 0 {
				out = append(out, token{kind: tokOp, text: string(c), pos: i})
				i++
				continue
			}
			return nil, &Error{Formula: src, Pos: i, Reason: "unexpected character " + string(c)}
		}
	}

	out = append(out, token{kind: tokEOF, pos: len(src)})

	return out, nil
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
