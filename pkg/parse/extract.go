package parse

// Package parse implements the tolerant JSON extraction used to spot
// structured directives and documents inside free-form model output.
//
// This is a heuristic, not a grammar: a fenced code block wins, otherwise
// the widest balanced {...} span is tried. When a response contains more
// than one recognizable object, the first match wins.

import (
	"encoding/json"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// ExtractObject pulls the most plausible JSON object out of free-form text.
// It returns the candidate object string and whether one was found; the
// candidate is guaranteed to be valid JSON with an object at the top level.
func ExtractObject(input string) (string, bool) {
	if block, ok := fencedObject(input); ok {
		return block, true
	}
	return widestObject(input)
}

// fencedObject walks the markdown AST and returns the first fenced code
// block that holds a JSON object. Blocks tagged with a language other than
// json are skipped.
func fencedObject(input string) (string, bool) {
	source := []byte(input)
	document := goldmark.DefaultParser().Parse(text.NewReader(source))

	found := ""
	_ = ast.Walk(document, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering || found != "" {
			return ast.WalkContinue, nil
		}
		block, ok := n.(*ast.FencedCodeBlock)
		if !ok {
			return ast.WalkContinue, nil
		}
		language := string(block.Language(source))
		if language != "" && language != "json" {
			return ast.WalkContinue, nil
		}
		lines := block.Lines()
		if lines.Len() == 0 {
			return ast.WalkContinue, nil
		}
		candidate := strings.TrimSpace(string(source[lines.At(0).Start:lines.At(lines.Len()-1).Stop]))
		if isObject(candidate) {
			found = candidate
			return ast.WalkStop, nil
		}
		return ast.WalkContinue, nil
	})

	return found, found != ""
}

// widestObject takes the span between the first '{' and the last '}'. When
// that span is not valid JSON (trailing prose with a stray brace, for
// example) it falls back to the first balanced object.
func widestObject(input string) (string, bool) {
	first := strings.IndexByte(input, '{')
	last := strings.LastIndexByte(input, '}')
	if first == -1 || last <= first {
		return "", false
	}

	candidate := input[first : last+1]
	if isObject(candidate) {
		return candidate, true
	}
	return balancedObject(input[first:])
}

// balancedObject scans for the first {...} span whose braces balance,
// tracking strings and escapes so braces inside values do not count.
func balancedObject(input string) (string, bool) {
	depth := 0
	inString := false
	escaped := false

	for i := 0; i < len(input); i++ {
		c := input[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				candidate := input[:i+1]
				if isObject(candidate) {
					return candidate, true
				}
				return "", false
			}
		}
	}

	return "", false
}

func isObject(candidate string) bool {
	trimmed := strings.TrimSpace(candidate)
	return strings.HasPrefix(trimmed, "{") && json.Valid([]byte(trimmed))
}
