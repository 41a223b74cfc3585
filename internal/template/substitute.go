// Package template renders per-iteration documents and keys from text with
// ${...} placeholders.
package template

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"regexp"
	"slices"
	"strings"

	"loadsim/internal/core"
)

// varPattern matches ${var}, ${env:VAR} and ${fn(args)} placeholders.
var varPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Substitute replaces every placeholder in text. Missing variables are
// reported together as one joined error.
func Substitute(text string, vars core.Variables) (string, error) {
	if !strings.Contains(text, "${") {
		return text, nil
	}

	var errs []error
	result := varPattern.ReplaceAllStringFunc(text, func(match string) string {
		name := match[2 : len(match)-1]

		if envName, ok := strings.CutPrefix(name, "env:"); ok {
			if val, ok := os.LookupEnv(envName); ok {
				return val
			}
			errs = append(errs, fmt.Errorf("env var %q not set", envName))
			return match
		}

		if val, ok, err := evalFunction(name); ok {
			if err != nil {
				errs = append(errs, err)
				return match
			}
			return val
		}

		if vars != nil {
			if val, ok := vars.Get(name); ok {
				return fmt.Sprint(val)
			}
		}
		errs = append(errs, fmt.Errorf("variable %q not found", name))
		return match
	})

	if len(errs) > 0 {
		return "", errors.Join(errs...)
	}
	return result, nil
}

// Render substitutes every value of a document template. Errors name the
// offending field, in field order.
func Render(fields map[string]string, vars core.Variables) (map[string]string, error) {
	if fields == nil {
		return nil, nil
	}

	doc := make(map[string]string, len(fields))
	var errs []error
	for _, k := range slices.Sorted(maps.Keys(fields)) {
		v, err := Substitute(fields[k], vars)
		if err != nil {
			errs = append(errs, fmt.Errorf("field %q: %w", k, err))
			continue
		}
		doc[k] = v
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return doc, nil
}
