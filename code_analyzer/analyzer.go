package code_analyzer

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/csharp"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
	"github.com/yapweijun1996/AI-Code-Editor-v13/code_analyzer/contracts"
	"github.com/yapweijun1996/AI-Code-Editor-v13/code_analyzer/models"
	"github.com/yapweijun1996/AI-Code-Editor-v13/logging"
)

// maxProblems caps the syntax problems reported for one file.
const maxProblems = 20

type languageSpec struct {
	lang  *sitter.Language
	query string
}

// languages holds the grammar per language; query capture names double as symbol kinds.
var languages = map[string]languageSpec{
	"javascript": {javascript.GetLanguage(), `
(function_declaration name: (identifier) @function)
(generator_function_declaration name: (identifier) @function)
(class_declaration name: (identifier) @class)
(method_definition name: (property_identifier) @method)`},
	"typescript": {typescript.GetLanguage(), `
(function_declaration name: (identifier) @function)
(class_declaration name: (type_identifier) @class)
(interface_declaration name: (type_identifier) @interface)
(method_definition name: (property_identifier) @method)`},
	"tsx": {tsx.GetLanguage(), `
(function_declaration name: (identifier) @function)
(class_declaration name: (type_identifier) @class)
(interface_declaration name: (type_identifier) @interface)
(method_definition name: (property_identifier) @method)`},
	"python": {python.GetLanguage(), `
(function_definition name: (identifier) @function)
(class_definition name: (identifier) @class)`},
	"go": {golang.GetLanguage(), `
(function_declaration name: (identifier) @function)
(method_declaration name: (field_identifier) @method)
(type_spec name: (type_identifier) @type)`},
	"java": {java.GetLanguage(), `
(class_declaration name: (identifier) @class)
(interface_declaration name: (identifier) @interface)
(method_declaration name: (identifier) @method)`},
	"csharp": {csharp.GetLanguage(), `
(class_declaration name: (identifier) @class)
(interface_declaration name: (identifier) @interface)
(method_declaration name: (identifier) @method)`},
}

var extensions = map[string]string{
	".js":   "javascript",
	".mjs":  "javascript",
	".cjs":  "javascript",
	".jsx":  "javascript",
	".ts":   "typescript",
	".tsx":  "tsx",
	".py":   "python",
	".go":   "go",
	".java": "java",
	".cs":   "csharp",
}

// LanguageOf maps a file name to a supported tree-sitter language, or "".
func LanguageOf(path string) string {
	return extensions[strings.ToLower(filepath.Ext(path))]
}

// CodeAnalyzer handles the syntax analysis of project files.
// cacheMaxAge is how long an unused cache entry survives between runs.
const cacheMaxAge = 7 * 24 * time.Hour

type CodeAnalyzer struct {
	cacheManager *CacheManager
	logger       *logrus.Entry

	queryMu sync.Mutex
	queries map[string]*sitter.Query
}

// NewCodeAnalyzer initializes a new CodeAnalyzer. An empty cacheDir disables caching.
func NewCodeAnalyzer(cacheDir string) contracts.ICodeAnalyzer {
	logger := logging.NewLogger("code-analyzer")
	var cacheManager *CacheManager
	if cacheDir != "" {
		cm, err := NewCacheManager(cacheDir)
		if err != nil {
			logger.WithError(err).Warn("Failed to initialize cache manager, caching disabled")
		} else {
			cacheManager = cm
			if err := cm.CleanExpiredCache(cacheMaxAge); err != nil {
				logger.WithError(err).Warn("Failed to clean expired cache entries")
			}
		}
	}

	return &CodeAnalyzer{
		cacheManager: cacheManager,
		logger:       logger,
		queries:      make(map[string]*sitter.Query),
	}
}

func (analyzer *CodeAnalyzer) SupportsFile(path string) bool {
	return LanguageOf(path) != ""
}

func (analyzer *CodeAnalyzer) parse(ctx context.Context, language string, source []byte) (*sitter.Node, error) {
	spec, ok := languages[language]
	if !ok {
		return nil, fmt.Errorf("unsupported language: %s", language)
	}
	parser := sitter.NewParser()
	parser.SetLanguage(spec.lang)
	tree, err := parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s source: %w", language, err)
	}
	return tree.RootNode(), nil
}

// AnalyzeJavaScript lists the top-level functions, classes and imports of a script.
func (analyzer *CodeAnalyzer) AnalyzeJavaScript(ctx context.Context, source []byte) (*models.CodeOutline, error) {
	root, err := analyzer.parse(ctx, "javascript", source)
	if err != nil {
		return nil, err
	}

	outline := &models.CodeOutline{
		Functions: []models.Declaration{},
		Classes:   []models.Declaration{},
		Imports:   []models.Import{},
	}
	for i := 0; i < int(root.NamedChildCount()); i++ {
		node := root.NamedChild(i)
		if node.Type() == "export_statement" {
			if decl := node.ChildByFieldName("declaration"); decl != nil {
				node = decl
			}
		}
		switch node.Type() {
		case "function_declaration", "generator_function_declaration":
			outline.Functions = append(outline.Functions, declarationOf(node, source))
		case "class_declaration":
			outline.Classes = append(outline.Classes, declarationOf(node, source))
		case "import_statement":
			imp := models.Import{Start: startLine(node), End: endLine(node)}
			if src := node.ChildByFieldName("source"); src != nil {
				imp.Source = strings.Trim(src.Content(source), "'\"`")
			}
			outline.Imports = append(outline.Imports, imp)
		}
	}
	return outline, nil
}

func declarationOf(node *sitter.Node, source []byte) models.Declaration {
	decl := models.Declaration{Start: startLine(node), End: endLine(node)}
	if name := node.ChildByFieldName("name"); name != nil {
		decl.Name = name.Content(source)
	}
	return decl
}

func startLine(n *sitter.Node) int { return int(n.StartPoint().Row) + 1 }
func endLine(n *sitter.Node) int   { return int(n.EndPoint().Row) + 1 }

// ExtractSymbols returns every declaration the language query captures, cached by content.
func (analyzer *CodeAnalyzer) ExtractSymbols(ctx context.Context, path string, source []byte) ([]models.Symbol, error) {
	language := LanguageOf(path)
	if language == "" {
		return nil, nil
	}

	if analyzer.cacheManager != nil {
		if cached, found := analyzer.cacheManager.GetSymbolsCache(path, source); found {
			return cached, nil
		}
	}

	root, err := analyzer.parse(ctx, language, source)
	if err != nil {
		return nil, err
	}
	query, err := analyzer.query(language)
	if err != nil {
		return nil, err
	}

	cursor := sitter.NewQueryCursor()
	cursor.Exec(query, root)

	var symbols []models.Symbol
	for {
		match, ok := cursor.NextMatch()
		if !ok {
			break
		}
		for _, capture := range match.Captures {
			symbols = append(symbols, models.Symbol{
				Name: capture.Node.Content(source),
				Kind: query.CaptureNameForId(capture.Index),
				Line: startLine(capture.Node),
			})
		}
	}

	if analyzer.cacheManager != nil {
		if err := analyzer.cacheManager.SetSymbolsCache(path, source, symbols); err != nil {
			analyzer.logger.WithError(err).Debugf("Failed to cache symbols for %s", path)
		}
	}
	return symbols, nil
}

func (analyzer *CodeAnalyzer) query(language string) (*sitter.Query, error) {
	analyzer.queryMu.Lock()
	defer analyzer.queryMu.Unlock()
	if q, ok := analyzer.queries[language]; ok {
		return q, nil
	}
	spec := languages[language]
	q, err := sitter.NewQuery([]byte(spec.query), spec.lang)
	if err != nil {
		return nil, fmt.Errorf("failed to compile %s query: %w", language, err)
	}
	analyzer.queries[language] = q
	return q, nil
}

// Diagnose reports the syntax errors tree-sitter recovered from.
func (analyzer *CodeAnalyzer) Diagnose(ctx context.Context, path string, source []byte) ([]models.SyntaxProblem, error) {
	language := LanguageOf(path)
	if language == "" {
		return nil, nil
	}
	root, err := analyzer.parse(ctx, language, source)
	if err != nil {
		return nil, err
	}
	var problems []models.SyntaxProblem
	collectProblems(root, source, &problems)
	return problems, nil
}

func collectProblems(n *sitter.Node, source []byte, out *[]models.SyntaxProblem) {
	if n == nil || len(*out) >= maxProblems {
		return
	}
	switch {
	case n.IsMissing():
		*out = append(*out, problemAt(n, fmt.Sprintf("Missing %q", n.Type())))
		return
	case n.Type() == "ERROR":
		snippet := strings.TrimSpace(n.Content(source))
		if i := strings.IndexByte(snippet, '\n'); i >= 0 {
			snippet = snippet[:i]
		}
		if len(snippet) > 40 {
			snippet = snippet[:40]
		}
		*out = append(*out, problemAt(n, fmt.Sprintf("Syntax error near %q", snippet)))
		return
	case !n.HasError():
		return
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		collectProblems(n.Child(i), source, out)
	}
}

func problemAt(n *sitter.Node, message string) models.SyntaxProblem {
	p := n.StartPoint()
	return models.SyntaxProblem{Line: int(p.Row) + 1, Column: int(p.Column) + 1, Message: message}
}

func (analyzer *CodeAnalyzer) GetCacheStats() map[string]interface{} {
	if analyzer.cacheManager == nil {
		return map[string]interface{}{"enabled": false}
	}
	stats := analyzer.cacheManager.GetPerformanceStats()
	stats["enabled"] = true
	if storage, err := analyzer.cacheManager.GetCacheStats(); err == nil {
		for k, v := range storage {
			stats[k] = v
		}
	}
	return stats
}

func (analyzer *CodeAnalyzer) ClearCache() error {
	if analyzer.cacheManager == nil {
		return nil
	}
	analyzer.cacheManager.ResetPerformanceStats()
	return analyzer.cacheManager.ClearCache()
}
