package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"strings"

	agent "github.com/armatrix/agent-tools-go"
	"github.com/armatrix/agent-tools-go/batch"
)

// Notebook edit modes.
const (
	editReplace = "replace"
	editInsert  = "insert"
	editDelete  = "delete"
)

// NotebookEditInput defines the input for the NotebookEdit tool.
type NotebookEditInput struct {
	NotebookPath string `json:"notebook_path" jsonschema:"required,description=Path to the .ipynb file"`
	NewSource    string `json:"new_source" jsonschema:"required,description=New source content for the cell"`
	CellNumber   *int   `json:"cell_number,omitempty" jsonschema:"description=0-indexed cell number to edit"`
	CellID       string `json:"cell_id,omitempty" jsonschema:"description=Cell ID to edit"`
	CellType     string `json:"cell_type,omitempty" jsonschema:"description=Cell type: code or markdown"`
	EditMode     string `json:"edit_mode,omitempty" jsonschema:"description=replace insert or delete"`
}

// NotebookEditTool replaces, inserts or deletes Jupyter notebook cells.
type NotebookEditTool struct{}

var _ agent.Tool[NotebookEditInput] = (*NotebookEditTool)(nil)

func (t *NotebookEditTool) Name() string         { return "NotebookEdit" }
func (t *NotebookEditTool) Description() string  { return "Edit cells in a Jupyter notebook (.ipynb file)" }
func (t *NotebookEditTool) Access() batch.Access { return batch.AccessWrite }

type notebookJSON struct {
	Cells         []notebookCell `json:"cells"`
	Metadata      map[string]any `json:"metadata"`
	NBFormat      int            `json:"nbformat"`
	NBFormatMinor int            `json:"nbformat_minor"`
}

type notebookCell struct {
	CellType string         `json:"cell_type"`
	Source   []string       `json:"source"`
	Metadata map[string]any `json:"metadata"`
	ID       string         `json:"id,omitempty"`
	Outputs  []any          `json:"outputs,omitempty"`
}

func (t *NotebookEditTool) Execute(ctx context.Context, input NotebookEditInput) (*agent.ToolResult, error) {
	if input.NotebookPath == "" {
		return agent.ErrorResult("notebook_path is required"), nil
	}
	path, err := sandboxedPath(ctx, input.NotebookPath)
	if err != nil {
		return agent.ErrorResult(err.Error()), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return agent.ErrorResult(fmt.Sprintf("failed to read notebook: %s", err.Error())), nil
	}
	var nb notebookJSON
	if err := json.Unmarshal(data, &nb); err != nil {
		return agent.ErrorResult(fmt.Sprintf("invalid notebook JSON: %s", err.Error())), nil
	}

	mode := input.EditMode
	if mode == "" {
		mode = editReplace
	}
	idx, err := cellIndex(nb, input)
	if err != nil {
		return agent.ErrorResult(err.Error()), nil
	}

	switch mode {
	case editReplace:
		if err := checkCellRange(nb, idx); err != nil {
			return agent.ErrorResult(err.Error()), nil
		}
		nb.Cells[idx].Source = splitSourceLines(input.NewSource)
		if input.CellType != "" {
			nb.Cells[idx].CellType = input.CellType
		}
	case editInsert:
		cellType := input.CellType
		if cellType == "" {
			cellType = "code"
		}
		// New cells go after the addressed cell, or at the end.
		at := len(nb.Cells)
		if idx >= 0 {
			at = min(idx+1, len(nb.Cells))
		}
		nb.Cells = slices.Insert(nb.Cells, at, notebookCell{
			CellType: cellType,
			Source:   splitSourceLines(input.NewSource),
			Metadata: map[string]any{},
		})
	case editDelete:
		if err := checkCellRange(nb, idx); err != nil {
			return agent.ErrorResult(err.Error()), nil
		}
		nb.Cells = slices.Delete(nb.Cells, idx, idx+1)
	default:
		return agent.ErrorResult(fmt.Sprintf("unknown edit_mode: %s", mode)), nil
	}

	out, err := json.MarshalIndent(nb, "", " ")
	if err != nil {
		return agent.ErrorResult(fmt.Sprintf("failed to marshal notebook: %s", err.Error())), nil
	}
	if err := replaceFile(path, out, 0o644); err != nil {
		return agent.ErrorResult(fmt.Sprintf("failed to write notebook: %s", err.Error())), nil
	}

	return agent.TextResult(fmt.Sprintf("Notebook edited (%s mode, %d cells total)", mode, len(nb.Cells))), nil
}

// cellIndex returns the addressed cell, or -1 when the input names none.
func cellIndex(nb notebookJSON, input NotebookEditInput) (int, error) {
	if input.CellNumber != nil {
		return *input.CellNumber, nil
	}
	if input.CellID == "" {
		return -1, nil
	}
	idx := slices.IndexFunc(nb.Cells, func(c notebookCell) bool { return c.ID == input.CellID })
	if idx < 0 {
		return -1, fmt.Errorf("cell with ID %q not found", input.CellID)
	}
	return idx, nil
}

func checkCellRange(nb notebookJSON, idx int) error {
	if idx < 0 || idx >= len(nb.Cells) {
		return fmt.Errorf("cell index %d out of range (0-%d)", idx, len(nb.Cells)-1)
	}
	return nil
}

// splitSourceLines splits source into lines that keep their trailing
// newline, the way notebooks store cell source.
func splitSourceLines(source string) []string {
	lines := strings.SplitAfter(source, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
