package utils

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/quick"
)

// LanguageForFile returns the chroma lexer name for filename, or "" when unknown.
func LanguageForFile(filename string) string {
	lexer := lexers.Match(filename)
	if lexer == nil {
		return ""
	}
	return lexer.Config().Name
}

// RenderHighlighted writes content to w with terminal syntax highlighting.
// Diff-style lines inside fenced blocks are colored green or red.
func RenderHighlighted(ctx context.Context, w io.Writer, content, language, theme string) error {
	if language == "" {
		language = "markdown"
	}
	inCodeBlock := false
	for i, line := range strings.Split(content, "\n") {
		if i%5 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}

		if strings.HasPrefix(line, "```") {
			inCodeBlock = !inCodeBlock
		}

		switch {
		case inCodeBlock && strings.HasPrefix(line, "+"):
			fmt.Fprint(w, "\x1b[92m"+line+"\x1b[0m\n")
		case inCodeBlock && strings.HasPrefix(line, "-"):
			fmt.Fprint(w, "\x1b[91m"+line+"\x1b[0m\n")
		default:
			var buf bytes.Buffer
			if err := quick.Highlight(&buf, line+"\n", language, "terminal256", theme); err != nil {
				return err
			}
			if _, err := w.Write(buf.Bytes()); err != nil {
				return err
			}
		}
	}
	return nil
}
