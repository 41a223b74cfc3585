package template

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const maxRandomStringLength = 1000

var funcRegistry = map[string]func(args string) (string, error){
	"uuid":          fnUUID,
	"timestamp":     fnTimestamp,
	"timestamp_ms":  fnTimestampMs,
	"random":        fnRandom,
	"random_string": fnRandomString,
	"date":          fnDate,
}

// evalFunction evaluates a built-in call such as random(1,100). ok is false
// when expr is not a call to a known function.
func evalFunction(expr string) (result string, ok bool, err error) {
	open := strings.IndexByte(expr, '(')
	if open == -1 || !strings.HasSuffix(expr, ")") {
		return "", false, nil
	}

	name := expr[:open]
	fn, known := funcRegistry[name]
	if !known {
		return "", false, nil
	}

	result, err = fn(expr[open+1 : len(expr)-1])
	if err != nil {
		return "", true, fmt.Errorf("function %s: %w", name, err)
	}
	return result, true, nil
}

func fnUUID(args string) (string, error) {
	if args != "" {
		return "", fmt.Errorf("uuid() takes no arguments")
	}
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

func fnTimestamp(args string) (string, error) {
	if args != "" {
		return "", fmt.Errorf("timestamp() takes no arguments")
	}
	return strconv.FormatInt(time.Now().Unix(), 10), nil
}

func fnTimestampMs(args string) (string, error) {
	if args != "" {
		return "", fmt.Errorf("timestamp_ms() takes no arguments")
	}
	return strconv.FormatInt(time.Now().UnixMilli(), 10), nil
}

// fnRandom returns an integer in [lo, hi]. Usage: random(lo,hi)
func fnRandom(args string) (string, error) {
	parts := strings.Split(args, ",")
	if len(parts) != 2 {
		return "", fmt.Errorf("random(min,max) requires exactly 2 arguments")
	}

	lo, err := strconv.ParseInt(strings.TrimSpace(parts[0]), 10, 64)
	if err != nil {
		return "", fmt.Errorf("invalid min value: %w", err)
	}
	hi, err := strconv.ParseInt(strings.TrimSpace(parts[1]), 10, 64)
	if err != nil {
		return "", fmt.Errorf("invalid max value: %w", err)
	}
	if lo > hi {
		return "", fmt.Errorf("min (%d) must be <= max (%d)", lo, hi)
	}

	return strconv.FormatInt(lo+rand.Int64N(hi-lo+1), 10), nil
}

// fnRandomString returns n random alphanumeric characters. Usage: random_string(n)
func fnRandomString(args string) (string, error) {
	n, err := strconv.Atoi(strings.TrimSpace(args))
	if err != nil {
		return "", fmt.Errorf("invalid length: %w", err)
	}
	if n <= 0 {
		return "", fmt.Errorf("length must be positive")
	}
	if n > maxRandomStringLength {
		return "", fmt.Errorf("length must be <= %d", maxRandomStringLength)
	}

	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	b := make([]byte, n)
	for i := range b {
		b[i] = charset[rand.IntN(len(charset))]
	}
	return string(b), nil
}

// fnDate formats the current time with a Go layout, RFC 3339 by default.
// Usage: date(2006-01-02)
func fnDate(args string) (string, error) {
	layout := strings.TrimSpace(args)
	if layout == "" {
		layout = time.RFC3339
	}
	return time.Now().Format(layout), nil
}
