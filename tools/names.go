package tools

// Name is one of the operations a model may call.
type Name string

const (
	ToolGetProjectStructure Name = "get_project_structure"
	ToolReadFile            Name = "read_file"
	ToolReadURL             Name = "read_url"
	ToolCreateFile          Name = "create_file"
	ToolDeleteFile          Name = "delete_file"
	ToolDeleteFolder        Name = "delete_folder"
	ToolRenameFolder        Name = "rename_folder"
	ToolRenameFile          Name = "rename_file"
	ToolCreateFolder        Name = "create_folder"
	ToolDuckDuckGoSearch    Name = "duckduckgo_search"
	ToolSearchCode          Name = "search_code"
	ToolGetOpenFileContent  Name = "get_open_file_content"
	ToolGetSelectedText     Name = "get_selected_text"
	ToolReplaceSelectedText Name = "replace_selected_text"
	ToolRunTerminalCommand  Name = "run_terminal_command"
	ToolBuildCodebaseIndex  Name = "build_or_update_codebase_index"
	ToolQueryCodebase       Name = "query_codebase"
	ToolGetFileHistory      Name = "get_file_history"
	ToolRewriteFile         Name = "rewrite_file"
	ToolFormatCode          Name = "format_code"
	ToolAnalyzeCode         Name = "analyze_code"
	ToolInsertContent       Name = "insert_content"
)

// AllNames lists every tool in declaration order.
var AllNames = []Name{
	ToolGetProjectStructure,
	ToolReadFile,
	ToolReadURL,
	ToolCreateFile,
	ToolDeleteFile,
	ToolDeleteFolder,
	ToolRenameFolder,
	ToolRenameFile,
	ToolCreateFolder,
	ToolDuckDuckGoSearch,
	ToolSearchCode,
	ToolGetOpenFileContent,
	ToolGetSelectedText,
	ToolReplaceSelectedText,
	ToolRunTerminalCommand,
	ToolBuildCodebaseIndex,
	ToolQueryCodebase,
	ToolGetFileHistory,
	ToolRewriteFile,
	ToolFormatCode,
	ToolAnalyzeCode,
	ToolInsertContent,
}

// rootRequired tools cannot run without an open project folder.
var rootRequired = map[Name]bool{
	ToolGetProjectStructure: true,
	ToolReadFile:            true,
	ToolCreateFile:          true,
	ToolDeleteFile:          true,
	ToolDeleteFolder:        true,
	ToolRenameFolder:        true,
	ToolRenameFile:          true,
	ToolCreateFolder:        true,
	ToolSearchCode:          true,
	ToolRunTerminalCommand:  true,
	ToolBuildCodebaseIndex:  true,
	ToolQueryCodebase:       true,
	ToolGetFileHistory:      true,
	ToolRewriteFile:         true,
	ToolFormatCode:          true,
	ToolAnalyzeCode:         true,
	ToolInsertContent:       true,
}

// CheckpointTriggers are the tools preceded by an automatic checkpoint.
var CheckpointTriggers = []string{
	string(ToolCreateFile),
	string(ToolDeleteFile),
	string(ToolRenameFile),
	string(ToolCreateFolder),
	string(ToolDeleteFolder),
	string(ToolRenameFolder),
	string(ToolRewriteFile),
	string(ToolInsertContent),
}

// contentMutations change document text and are followed by a diagnostics check.
var contentMutations = map[Name]bool{
	ToolRewriteFile:         true,
	ToolInsertContent:       true,
	ToolReplaceSelectedText: true,
}

// RequiresRoot reports whether the tool needs an open project folder.
func (n Name) RequiresRoot() bool { return rootRequired[n] }

// MutatesContent reports whether the tool edits document text.
func (n Name) MutatesContent() bool { return contentMutations[n] }

func (n Name) Known() bool {
	_, ok := registry[n]
	return ok
}
