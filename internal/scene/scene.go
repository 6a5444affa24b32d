// Package scene derives scene names from Manim source code and screens
// submissions for obvious syntax problems before they enter the queue.
package scene

import (
	"fmt"
	"regexp"
	"strings"
)

var sceneClassRe = regexp.MustCompile(`class\s+(\w+)\s*\(\s*Scene\s*\)\s*:`)

var topLevelRe = regexp.MustCompile(`(?m)^\s*(class|def|from|import)\b`)

// ExtractName returns the first class name inheriting from Scene, or ""
// when the code defines none.
func ExtractName(code string) string {
	m := sceneClassRe.FindStringSubmatch(code)
	if m == nil {
		return ""
	}
	return m[1]
}

// ValidateCode is a lightweight syntactic screen, not a Python parser.
// It rejects submissions that cannot possibly render: empty payloads,
// unbalanced brackets, unterminated string literals, and code with no
// top-level definition or import at all.
func ValidateCode(code string) error {
	if strings.TrimSpace(code) == "" {
		return fmt.Errorf("code is empty")
	}
	if !topLevelRe.MatchString(code) {
		return fmt.Errorf("code contains no class, def or import statement")
	}
	return checkBalance(code)
}

// checkBalance scans the code once, skipping string literals and comments
// so brackets inside them are ignored. Triple-quoted strings may span
// lines, single-quoted ones may not.
func checkBalance(code string) error {
	var stack []byte
	n := len(code)

	for i := 0; i < n; {
		c := code[i]
		switch c {
		case '\'', '"':
			triple := i+2 < n && code[i+1] == c && code[i+2] == c
			end, ok := scanString(code, i, c, triple)
			if !ok {
				return fmt.Errorf("unterminated string literal near offset %d", i)
			}
			i = end
			continue
		case '#':
			for i < n && code[i] != '\n' {
				i++
			}
			continue
		case '(', '[', '{':
			stack = append(stack, c)
		case ')', ']', '}':
			if len(stack) == 0 || stack[len(stack)-1] != opener(c) {
				return fmt.Errorf("unbalanced %q near offset %d", c, i)
			}
			stack = stack[:len(stack)-1]
		}
		i++
	}

	if len(stack) > 0 {
		return fmt.Errorf("unclosed %q", stack[len(stack)-1])
	}
	return nil
}

// scanString returns the offset just past the closing quote and whether
// the literal terminated at all.
func scanString(code string, start int, quote byte, triple bool) (int, bool) {
	n := len(code)
	i := start + 1
	if triple {
		i = start + 3
	}

	for i < n {
		c := code[i]
		switch {
		case c == '\\':
			i += 2
		case c == quote:
			if !triple {
				return i + 1, true
			}
			if i+2 < n && code[i+1] == quote && code[i+2] == quote {
				return i + 3, true
			}
			i++
		case c == '\n' && !triple:
			return i, false
		default:
			i++
		}
	}
	return n, false
}

func opener(closer byte) byte {
	switch closer {
	case ')':
		return '('
	case ']':
		return '['
	default:
		return '{'
	}
}
