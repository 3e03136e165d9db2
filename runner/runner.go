package runner

import (
	"errors"
	"fmt"
	"regexp"
)

// paramRegex matches one [Name] token. Names may contain spaces but not brackets.
var paramRegex = regexp.MustCompile(`\[([^\[\]]+)\]`)

// ErrValueCount is returned when the value vector does not line up with the params.
var ErrValueCount = errors.New("value count does not match params")

// ExtractParams returns all [param] names from a template, in first-seen order
func ExtractParams(template string) []string {
	matches := paramRegex.FindAllStringSubmatch(template, -1)
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, m[1])
	}
	return Distinct(names)
}

// Distinct drops repeated names, keeping the first occurrence.
func Distinct(params []string) []string {
	seen := make(map[string]bool, len(params))
	var out []string
	for _, name := range params {
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	return out
}

// Unresolved lists template tokens that have no matching param. They are left
// in the output as literal text.
func Unresolved(template string, params []string) []string {
	known := make(map[string]bool, len(params))
	for _, p := range params {
		known[p] = true
	}
	var missing []string
	for _, name := range ExtractParams(template) {
		if !known[name] {
			missing = append(missing, name)
		}
	}
	return missing
}

// Resolver fills templates, applying an encoding table to special params.
type Resolver struct {
	Encodings []Encoding
}

// Default uses DefaultEncodings.
var Default = Resolver{Encodings: DefaultEncodings}

// Resolve fills template with Default.
func Resolve(template string, params []string, options map[string][]string, values []string) (string, error) {
	return Default.Resolve(template, params, options, values)
}

// Resolve substitutes every [param] token in template. values holds either one
// entry per param or one entry per distinct param; for repeated names the
// first value wins. Substitution is a single pass over the original template,
// so text produced by one replacement is never matched again.
func (r Resolver) Resolve(template string, params []string, options map[string][]string, values []string) (string, error) {
	names := params
	distinct := Distinct(params)
	if len(values) != len(params) {
		if len(values) != len(distinct) {
			return "", fmt.Errorf("%w: %d params, %d values", ErrValueCount, len(distinct), len(values))
		}
		names = distinct
	}
	if len(distinct) == 0 {
		return template, nil
	}

	reps := make(map[string]string, len(distinct))
	for i, name := range names {
		if _, ok := reps[name]; ok {
			continue
		}
		encode := r.encoderFor(template, name)
		reps[name] = encode(values[i], options[name])
	}

	return paramRegex.ReplaceAllStringFunc(template, func(tok string) string {
		if rep, ok := reps[tok[1:len(tok)-1]]; ok {
			return rep
		}
		return tok
	}), nil
}
