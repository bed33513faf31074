package utils

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/yapweijun1996/AI-Code-Editor-v13/constants/lipgloss"
)

// ErrInputClosed is returned once the input stream reaches EOF.
var ErrInputClosed = errors.New("input closed")

// InputPromptWithContext prompts on w and reads one line from reader, honoring cancellation.
func InputPromptWithContext(ctx context.Context, w io.Writer, reader *bufio.Reader) (string, error) {
	inputChan := make(chan string, 1)
	errChan := make(chan error, 1)

	go func() {
		fmt.Fprint(w, lipgloss.BlueSky.Render("> "))

		userInput, err := reader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				if strings.TrimSpace(userInput) != "" {
					inputChan <- strings.TrimSpace(userInput)
					return
				}
				errChan <- ErrInputClosed
			} else {
				errChan <- fmt.Errorf("error reading input: %w", err)
			}
			return
		}

		inputChan <- strings.TrimSpace(userInput)
	}()

	select {
	case <-ctx.Done():
		fmt.Fprintln(w)
		return "", ctx.Err()
	case err := <-errChan:
		return "", err
	case input := <-inputChan:
		return input, nil
	}
}
