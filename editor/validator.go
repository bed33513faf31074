package editor

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"

	"github.com/yapweijun1996/AI-Code-Editor-v13/code_analyzer/contracts"
	"github.com/yapweijun1996/AI-Code-Editor-v13/models"
)

// Validator produces the diagnostics for one version of a buffer.
type Validator func(ctx context.Context, path, text string) ([]models.Marker, error)

// AnalyzerValidator reports tree-sitter syntax errors for supported languages
// and decode errors for JSON files.
func AnalyzerValidator(analyzer contracts.ICodeAnalyzer) Validator {
	return func(ctx context.Context, path, text string) ([]models.Marker, error) {
		if strings.EqualFold(filepath.Ext(path), ".json") {
			return validateJSON(path, text), nil
		}
		if analyzer == nil || !analyzer.SupportsFile(path) {
			return nil, nil
		}
		problems, err := analyzer.Diagnose(ctx, path, []byte(text))
		if err != nil {
			return nil, err
		}
		markers := make([]models.Marker, 0, len(problems))
		for _, p := range problems {
			markers = append(markers, models.Marker{
				Path:     path,
				Line:     p.Line,
				Column:   p.Column,
				Severity: models.SeverityError,
				Message:  p.Message,
			})
		}
		return markers, nil
	}
}

func validateJSON(path, text string) []models.Marker {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	var v any
	err := json.Unmarshal([]byte(text), &v)
	if err == nil {
		return nil
	}
	offset := int64(len(text))
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		offset = syntaxErr.Offset
	}
	line, col := lineColumnAt(text, int(offset))
	return []models.Marker{{Path: path, Line: line, Column: col, Severity: models.SeverityError, Message: err.Error()}}
}

func lineColumnAt(text string, offset int) (int, int) {
	if offset > len(text) {
		offset = len(text)
	}
	before := text[:offset]
	line := strings.Count(before, "\n") + 1
	col := offset - strings.LastIndex(before, "\n")
	return line, col
}
