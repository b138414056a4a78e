package resolver

import (
	"bufio"
	"errors"
	"fmt"
	"io"
)

// Prompt writes message to w and reads a single line from r.
func Prompt(r io.Reader, w io.Writer, message string) (string, error) {
	if _, err := fmt.Fprint(w, message); err != nil {
		return "", err
	}

	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read model path: %w", err)
	}

	if line == "" && errors.Is(err, io.EOF) {
		return "", ErrNoInput
	}

	return CleanInput(line), nil
}
