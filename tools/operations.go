package tools

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/invopop/jsonschema"
	"github.com/mitchellh/mapstructure"
	"github.com/yapweijun1996/AI-Code-Editor-v13/models"
)

// Operation is a decoded tool call. Each tool has its own parameter type.
type Operation interface {
	Tool() Name
}

type GetProjectStructure struct{}

type ReadFile struct {
	Filename string `json:"filename" jsonschema:"required,description=Path of the file relative to the project root"`
}

type ReadURL struct {
	URL string `json:"url" jsonschema:"required,description=The http or https address to fetch"`
}

type CreateFile struct {
	Filename string `json:"filename" jsonschema:"required,description=Path of the new file relative to the project root"`
	Content  string `json:"content" jsonschema:"description=Initial content of the file"`
}

type DeleteFile struct {
	Filename string `json:"filename" jsonschema:"required,description=Path of the file to delete"`
}

type DeleteFolder struct {
	FolderPath string `json:"folder_path" jsonschema:"required,description=Path of the folder to delete with everything inside it"`
}

type RenameFolder struct {
	OldFolderPath string `json:"old_folder_path" jsonschema:"required,description=Current folder path"`
	NewFolderPath string `json:"new_folder_path" jsonschema:"required,description=New folder path"`
}

type RenameFile struct {
	OldPath string `json:"old_path" jsonschema:"required,description=Current file path"`
	NewPath string `json:"new_path" jsonschema:"required,description=New file path"`
}

type CreateFolder struct {
	FolderPath string `json:"folder_path" jsonschema:"required,description=Path of the folder to create"`
}

type DuckDuckGoSearch struct {
	Query string `json:"query" jsonschema:"required,description=Web search query"`
}

type SearchCode struct {
	SearchTerm string `json:"search_term" jsonschema:"required,description=Case-insensitive text to look for in project files"`
}

type GetOpenFileContent struct{}

type GetSelectedText struct{}

type ReplaceSelectedText struct {
	NewText string `json:"new_text" jsonschema:"required,description=Text that replaces the current selection"`
}

type RunTerminalCommand struct {
	Command string `json:"command" jsonschema:"required,description=Shell command run inside the project folder"`
}

type BuildCodebaseIndex struct{}

type QueryCodebase struct {
	Query string `json:"query" jsonschema:"required,description=Free text matched against indexed symbols and paths"`
}

type GetFileHistory struct {
	Filename string `json:"filename" jsonschema:"required,description=File whose git history is listed"`
}

type RewriteFile struct {
	Filename string `json:"filename" jsonschema:"required,description=File to overwrite"`
	Content  string `json:"content" jsonschema:"required,description=The complete new content"`
}

type FormatCode struct {
	Filename string `json:"filename" jsonschema:"required,description=File to format in place"`
}

type AnalyzeCode struct {
	Filename string `json:"filename" jsonschema:"required,description=JavaScript file (.js) to outline"`
}

type InsertContent struct {
	Filename   string `json:"filename" jsonschema:"required,description=File to insert into"`
	LineNumber int    `json:"line_number" jsonschema:"required,description=1-based line the content is inserted before"`
	Content    string `json:"content" jsonschema:"required,description=Content inserted as a whole line"`
}

func (*GetProjectStructure) Tool() Name { return ToolGetProjectStructure }
func (*ReadFile) Tool() Name            { return ToolReadFile }
func (*ReadURL) Tool() Name             { return ToolReadURL }
func (*CreateFile) Tool() Name          { return ToolCreateFile }
func (*DeleteFile) Tool() Name          { return ToolDeleteFile }
func (*DeleteFolder) Tool() Name        { return ToolDeleteFolder }
func (*RenameFolder) Tool() Name        { return ToolRenameFolder }
func (*RenameFile) Tool() Name          { return ToolRenameFile }
func (*CreateFolder) Tool() Name        { return ToolCreateFolder }
func (*DuckDuckGoSearch) Tool() Name    { return ToolDuckDuckGoSearch }
func (*SearchCode) Tool() Name          { return ToolSearchCode }
func (*GetOpenFileContent) Tool() Name  { return ToolGetOpenFileContent }
func (*GetSelectedText) Tool() Name     { return ToolGetSelectedText }
func (*ReplaceSelectedText) Tool() Name { return ToolReplaceSelectedText }
func (*RunTerminalCommand) Tool() Name  { return ToolRunTerminalCommand }
func (*BuildCodebaseIndex) Tool() Name  { return ToolBuildCodebaseIndex }
func (*QueryCodebase) Tool() Name       { return ToolQueryCodebase }
func (*GetFileHistory) Tool() Name      { return ToolGetFileHistory }
func (*RewriteFile) Tool() Name         { return ToolRewriteFile }
func (*FormatCode) Tool() Name          { return ToolFormatCode }
func (*AnalyzeCode) Tool() Name         { return ToolAnalyzeCode }
func (*InsertContent) Tool() Name       { return ToolInsertContent }

// registry builds an empty parameter record per tool.
var registry = map[Name]func() Operation{
	ToolGetProjectStructure: func() Operation { return &GetProjectStructure{} },
	ToolReadFile:            func() Operation { return &ReadFile{} },
	ToolReadURL:             func() Operation { return &ReadURL{} },
	ToolCreateFile:          func() Operation { return &CreateFile{} },
	ToolDeleteFile:          func() Operation { return &DeleteFile{} },
	ToolDeleteFolder:        func() Operation { return &DeleteFolder{} },
	ToolRenameFolder:        func() Operation { return &RenameFolder{} },
	ToolRenameFile:          func() Operation { return &RenameFile{} },
	ToolCreateFolder:        func() Operation { return &CreateFolder{} },
	ToolDuckDuckGoSearch:    func() Operation { return &DuckDuckGoSearch{} },
	ToolSearchCode:          func() Operation { return &SearchCode{} },
	ToolGetOpenFileContent:  func() Operation { return &GetOpenFileContent{} },
	ToolGetSelectedText:     func() Operation { return &GetSelectedText{} },
	ToolReplaceSelectedText: func() Operation { return &ReplaceSelectedText{} },
	ToolRunTerminalCommand:  func() Operation { return &RunTerminalCommand{} },
	ToolBuildCodebaseIndex:  func() Operation { return &BuildCodebaseIndex{} },
	ToolQueryCodebase:       func() Operation { return &QueryCodebase{} },
	ToolGetFileHistory:      func() Operation { return &GetFileHistory{} },
	ToolRewriteFile:         func() Operation { return &RewriteFile{} },
	ToolFormatCode:          func() Operation { return &FormatCode{} },
	ToolAnalyzeCode:         func() Operation { return &AnalyzeCode{} },
	ToolInsertContent:       func() Operation { return &InsertContent{} },
}

// Decode turns a tool call into its typed operation. Scalars are converted
// loosely, so line_number may arrive as a number or a numeric string.
func Decode(call models.ToolCall) (Operation, error) {
	name := Name(call.Name)
	build, ok := registry[name]
	if !ok {
		return nil, unknownTool(call.Name)
	}
	op := build()
	if len(call.Args) == 0 {
		return op, nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           op,
		TagName:          "json",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create mapstructure decoder: %w", err)
	}
	if err := decoder.Decode(call.Args); err != nil {
		return nil, invalidArguments(name, err)
	}
	return op, nil
}

// Schema returns the JSON schema of a tool's parameters.
func Schema(name Name) (*jsonschema.Schema, error) {
	build, ok := registry[name]
	if !ok {
		return nil, unknownTool(string(name))
	}
	r := &jsonschema.Reflector{
		AllowAdditionalProperties:  true,
		ExpandedStruct:             true,
		DoNotReference:             true,
		FieldNameTag:               "json",
		RequiredFromJSONSchemaTags: true,
	}
	schema := r.ReflectFromType(reflect.TypeOf(build()).Elem())
	schema.Version = ""
	schema.ID = ""
	return schema, nil
}

// RawSchema is Schema marshalled to JSON.
func RawSchema(name Name) (json.RawMessage, error) {
	schema, err := Schema(name)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema for %s: %w", name, err)
	}
	return data, nil
}

// Descriptions are shown to the model next to each tool.
var Descriptions = map[Name]string{
	ToolGetProjectStructure: "Return the directory tree of the open project.",
	ToolReadFile:            "Read a file and open it in the editor. Long files are truncated.",
	ToolReadURL:             "Fetch a web page and return its readable text.",
	ToolCreateFile:          "Create a file with the given content and open it.",
	ToolDeleteFile:          "Delete a file and close its tab.",
	ToolDeleteFolder:        "Delete a folder recursively and close tabs inside it.",
	ToolRenameFolder:        "Rename or move a folder.",
	ToolRenameFile:          "Rename or move a file.",
	ToolCreateFolder:        "Create a folder including missing parents.",
	ToolDuckDuckGoSearch:    "Search the web.",
	ToolSearchCode:          "Search every project file for a term.",
	ToolGetOpenFileContent:  "Return the content of the active editor tab.",
	ToolGetSelectedText:     "Return the text selected in the editor.",
	ToolReplaceSelectedText: "Replace the editor selection with new text.",
	ToolRunTerminalCommand:  "Run a shell command in the project folder.",
	ToolBuildCodebaseIndex:  "Build or incrementally update the symbol index of the project.",
	ToolQueryCodebase:       "Query the symbol index.",
	ToolGetFileHistory:      "List the git commits that touched a file.",
	ToolRewriteFile:         "Replace the whole content of a file.",
	ToolFormatCode:          "Format a file in place based on its extension.",
	ToolAnalyzeCode:         "Outline functions, classes and imports of a .js file.",
	ToolInsertContent:       "Insert a line of content before the given 1-based line.",
}
