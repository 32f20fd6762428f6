package sensor

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// FileReader reads a value from a text file such as a sysfs attribute or a
// 1-wire w1_slave file.
type FileReader struct {
	Path string

	// Marker selects the text after its last occurrence, e.g. "t=" for
	// 1-wire temperature files. Empty uses the whole file.
	Marker string

	// Divisor scales numeric readings, e.g. 1000 for millidegrees.
	// Zero or one leaves the value unchanged.
	Divisor float64
}

// Read returns the selected, scaled value.
func (r FileReader) Read(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	data, err := os.ReadFile(r.Path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", r.Path, err)
	}
	text := string(data)

	if r.Marker != "" {
		i := strings.LastIndex(text, r.Marker)
		if i < 0 {
			return "", fmt.Errorf("%w: %q not found in %s", ErrNoValue, r.Marker, r.Path)
		}
		text = text[i+len(r.Marker):]
		if j := strings.IndexAny(text, " \t\r\n"); j >= 0 {
			text = text[:j]
		}
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("%w: %s is empty", ErrNoValue, r.Path)
	}

	if r.Divisor == 0 || r.Divisor == 1 {
		return text, nil
	}

	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return "", fmt.Errorf("%w: %q in %s is not numeric", ErrNoValue, text, r.Path)
	}
	return strconv.FormatFloat(f/r.Divisor, 'f', -1, 64), nil
}
