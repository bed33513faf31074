package models

// TreeNode is one entry of the project directory tree.
type TreeNode struct {
	Name     string      `json:"name"`
	Path     string      `json:"path"`
	IsDir    bool        `json:"isDir"`
	Children []*TreeNode `json:"children,omitempty"`
}

// SearchMatch is a single line hit of a project-wide text search.
type SearchMatch struct {
	Path string `json:"file"`
	Line int    `json:"line"`
	Text string `json:"content"`
}
