package contracts

import (
	"context"

	"github.com/yapweijun1996/AI-Code-Editor-v13/code_analyzer/models"
)

// ICodeAnalyzer parses source files with tree-sitter.
type ICodeAnalyzer interface {
	AnalyzeJavaScript(ctx context.Context, source []byte) (*models.CodeOutline, error)
	ExtractSymbols(ctx context.Context, path string, source []byte) ([]models.Symbol, error)
	Diagnose(ctx context.Context, path string, source []byte) ([]models.SyntaxProblem, error)
	SupportsFile(path string) bool
	GetCacheStats() map[string]interface{}
	ClearCache() error
}
