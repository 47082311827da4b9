// Package selector implements the chain expressions used to pull fields out
// of listing pages, e.g. `next().find(span.subline a).last().attr(href)`.
package selector

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/andybalholm/cascadia"
)

var (
	ErrSyntax           = errors.New("invalid chain syntax")
	ErrUnknownOperation = errors.New("unknown chain operation")
	ErrInvalidIndex     = errors.New("invalid index")
	ErrInvalidSelector  = errors.New("invalid selector")
)

// Kind enumerates the operations a chain may contain.
type Kind int

const (
	Find Kind = iota
	Next
	Prev
	Parent
	Closest
	First
	Last
	Eq
	Text
	Attr
)

var kindNames = map[string]Kind{
	"find":    Find,
	"next":    Next,
	"prev":    Prev,
	"parent":  Parent,
	"closest": Closest,
	"first":   First,
	"last":    Last,
	"eq":      Eq,
	"text":    Text,
	"attr":    Attr,
}

func (k Kind) String() string {
	for name, kind := range kindNames {
		if kind == k {
			return name
		}
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

// Terminal reports whether the operation ends evaluation with a string.
func (k Kind) Terminal() bool {
	return k == Text || k == Attr
}

type arity int

const (
	argNone arity = iota
	argOptional
	argRequired
)

func (k Kind) arity() arity {
	switch k {
	case Find, Closest, Eq, Attr:
		return argRequired
	case Next, Prev, Parent:
		return argOptional
	default:
		return argNone
	}
}

func (k Kind) takesSelector() bool {
	switch k {
	case Find, Next, Prev, Parent, Closest:
		return true
	}
	return false
}

// Op is a single parsed operation. Index is set for Eq only.
type Op struct {
	Kind  Kind
	Arg   string
	Index int
}

// Chain is a parsed expression, applied left to right.
type Chain []Op

// Parse turns an expression of the form `name(arg).name(arg)...` into a
// Chain. Arguments run to the matching parenthesis, so selectors such as
// `li:not(.ad)` survive intact.
func Parse(expr string) (Chain, error) {
	s := strings.TrimSpace(expr)
	if s == "" {
		return nil, fmt.Errorf("%w: empty expression", ErrSyntax)
	}

	var chain Chain
	pos := 0
	for pos < len(s) {
		start := pos
		for pos < len(s) && isNameByte(s[pos]) {
			pos++
		}
		name := s[start:pos]
		if name == "" {
			return nil, fmt.Errorf("%w: expected operation name at offset %d in %q", ErrSyntax, start, s)
		}
		if pos >= len(s) || s[pos] != '(' {
			return nil, fmt.Errorf("%w: expected '(' after %q", ErrSyntax, name)
		}

		end, err := closingParen(s, pos)
		if err != nil {
			return nil, err
		}

		op, err := newOp(name, s[pos+1:end])
		if err != nil {
			return nil, err
		}
		chain = append(chain, op)

		pos = skipSpace(s, end+1)
		if pos == len(s) {
			break
		}
		if s[pos] != '.' {
			return nil, fmt.Errorf("%w: expected '.' at offset %d in %q", ErrSyntax, pos, s)
		}
		pos = skipSpace(s, pos+1)
		if pos == len(s) {
			return nil, fmt.Errorf("%w: trailing '.' in %q", ErrSyntax, s)
		}
	}

	return chain, nil
}

func newOp(name, raw string) (Op, error) {
	kind, ok := kindNames[name]
	if !ok {
		return Op{}, fmt.Errorf("%w: %q", ErrUnknownOperation, name)
	}

	arg := unquote(strings.TrimSpace(raw))
	switch kind.arity() {
	case argNone:
		if arg != "" {
			return Op{}, fmt.Errorf("%w: %s() takes no argument, got %q", ErrSyntax, name, arg)
		}
	case argRequired:
		if arg == "" {
			return Op{}, fmt.Errorf("%w: %s() requires an argument", ErrSyntax, name)
		}
	}

	op := Op{Kind: kind, Arg: arg}

	if kind == Eq {
		idx, err := strconv.Atoi(arg)
		if err != nil {
			return Op{}, fmt.Errorf("%w: eq(%s)", ErrInvalidIndex, arg)
		}
		op.Index = idx
	}

	if kind.takesSelector() && arg != "" {
		if _, err := cascadia.ParseGroup(arg); err != nil {
			return Op{}, fmt.Errorf("%w: %s(%s): %v", ErrInvalidSelector, name, arg, err)
		}
	}

	return op, nil
}

// closingParen returns the index of the parenthesis matching the one at
// open. Quoted runs are skipped.
func closingParen(s string, open int) (int, error) {
	depth := 0
	var quote byte
	for i := open; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '(':
			depth++
		case c == ')':
			depth--
			if depth == 0 {
				return i, nil
			}
		}
	}
	return 0, fmt.Errorf("%w: unbalanced parentheses in %q", ErrSyntax, s)
}

func unquote(arg string) string {
	if len(arg) >= 2 {
		first, last := arg[0], arg[len(arg)-1]
		if (first == '"' || first == '\'') && first == last {
			return arg[1 : len(arg)-1]
		}
	}
	return arg
}

func isNameByte(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func skipSpace(s string, pos int) int {
	for pos < len(s) && (s[pos] == ' ' || s[pos] == '\t' || s[pos] == '\n') {
		pos++
	}
	return pos
}
