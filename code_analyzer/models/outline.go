package models

// Declaration is a top-level function or class with its 1-based line span.
type Declaration struct {
	Name  string `json:"name"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// Import is a top-level import statement with its 1-based line span.
type Import struct {
	Source string `json:"source"`
	Start  int    `json:"start"`
	End    int    `json:"end"`
}

// CodeOutline is the result of analyze_code.
type CodeOutline struct {
	Functions []Declaration `json:"functions"`
	Classes   []Declaration `json:"classes"`
	Imports   []Import      `json:"imports"`
}

// Symbol is a named declaration found anywhere in a file, used by the codebase index.
type Symbol struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
	Line int    `json:"line"`
}

// SyntaxProblem is an ERROR or MISSING node found while parsing.
type SyntaxProblem struct {
	Line    int    `json:"line"`
	Column  int    `json:"column"`
	Message string `json:"message"`
}
