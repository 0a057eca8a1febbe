package srcsrv

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const maxExpandDepth = 16

var (
	ErrUndefinedVariable = errors.New("undefined srcsrv variable")
	ErrExpandTooDeep     = errors.New("srcsrv variables nest too deep")
)

// expander resolves %name% references for one source file entry
type expander struct {
	stream *Stream
	fields []string
	targ   string
}

// Expand resolves every reference in template for the source file entry
// fields. targ is substituted for %targ%.
func (s *Stream) Expand(template string, fields []string, targ string) (string, error) {
	e := &expander{stream: s, fields: fields, targ: targ}
	return e.expand(template, 0)
}

func (e *expander) expand(text string, depth int) (string, error) {
	if depth > maxExpandDepth {
		return "", ErrExpandTooDeep
	}

	var out strings.Builder
	for i := 0; i < len(text); {
		if text[i] != '%' {
			out.WriteByte(text[i])
			i++
			continue
		}

		end := strings.IndexByte(text[i+1:], '%')
		if end == -1 {
			out.WriteString(text[i:])
			break
		}
		name := text[i+1 : i+1+end]
		next := i + end + 2

		if fn, ok := lookupFunction(name); ok && next < len(text) && text[next] == '(' {
			closing := matchParen(text, next)
			if closing == -1 {
				return "", fmt.Errorf("unterminated %%%s%% call", name)
			}
			arg, err := e.expand(text[next+1:closing], depth+1)
			if err != nil {
				return "", err
			}
			value, err := fn(e, arg, depth+1)
			if err != nil {
				return "", err
			}
			out.WriteString(value)
			i = closing + 1
			continue
		}

		value, err := e.variable(name, depth)
		if err != nil {
			return "", err
		}
		out.WriteString(value)
		i = next
	}
	return out.String(), nil
}

func (e *expander) variable(name string, depth int) (string, error) {
	lower := strings.ToLower(name)
	if lower == "targ" {
		return e.targ, nil
	}
	if strings.HasPrefix(lower, "var") {
		if n, err := strconv.Atoi(lower[3:]); err == nil && n >= 1 {
			if n > len(e.fields) {
				return "", nil
			}
			return e.fields[n-1], nil
		}
	}

	raw, ok := e.stream.Variable(name)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUndefinedVariable, name)
	}
	return e.expand(raw, depth+1)
}

type function func(e *expander, arg string, depth int) (string, error)

// lookupFunction resolves the %fn...%() helpers
func lookupFunction(name string) (function, bool) {
	switch strings.ToLower(name) {
	case "fnfile":
		return fnFile, true
	case "fnbksl":
		return fnBksl, true
	case "fnvar":
		return fnVar, true
	default:
		return nil, false
	}
}

// fnFile returns the file name part of a path
func fnFile(_ *expander, arg string, _ int) (string, error) {
	if idx := strings.LastIndexAny(arg, `\/`); idx != -1 {
		return arg[idx+1:], nil
	}
	return arg, nil
}

// fnBksl turns forward slashes into backslashes
func fnBksl(_ *expander, arg string, _ int) (string, error) {
	return strings.ReplaceAll(arg, "/", `\`), nil
}

// fnVar returns the value of the variable named by arg
func fnVar(e *expander, arg string, depth int) (string, error) {
	return e.variable(arg, depth)
}

func matchParen(text string, open int) int {
	level := 0
	for i := open; i < len(text); i++ {
		switch text[i] {
		case '(':
			level++
		case ')':
			level--
			if level == 0 {
				return i
			}
		}
	}
	return -1
}
