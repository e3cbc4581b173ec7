package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/condohub/condohub/internal/shared"
	"github.com/condohub/condohub/internal/structure"
)

// Exit codes shared by the ops commands.
const (
	ExitOK       = 0
	ExitFailure  = 1
	ExitFindings = 10
)

// StructureCLI inspects community trees straight from storage.
type StructureCLI struct {
	loader structure.Loader
}

// NewStructureCLI constructs the helper.
func NewStructureCLI(loader structure.Loader) (*StructureCLI, error) {
	if loader == nil {
		return nil, errors.New("structure cli: loader required")
	}
	return &StructureCLI{loader: loader}, nil
}

// CheckOptions defines available flags for the structure check command.
type CheckOptions struct {
	CommunityID int64
	JSONOutput  bool
	Stdout      io.Writer
	Stderr      io.Writer
}

// CheckSummary describes the JSON response for structure check.
type CheckSummary struct {
	OK          bool          `json:"ok"`
	CommunityID int64         `json:"community_id"`
	Fingerprint string        `json:"fingerprint,omitempty"`
	Blocks      int           `json:"blocks"`
	Units       int           `json:"units"`
	Roots       []int64       `json:"roots,omitempty"`
	Problem     *CheckProblem `json:"problem,omitempty"`
}

// CheckProblem is the first topology defect found.
type CheckProblem struct {
	NodeID int64  `json:"node_id"`
	Reason string `json:"reason"`
	Detail string `json:"detail"`
}

// CheckCommand builds the community tree and reports whether it is well formed.
// It exits with ExitFindings on a topology defect.
func (c *StructureCLI) CheckCommand(ctx context.Context, opts CheckOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if opts.CommunityID <= 0 {
		_, _ = fmt.Fprintln(opts.Stderr, "structure check: --community is required and must be positive")
		return ExitFailure
	}
	nodes, units, err := c.loader.LoadStructure(ctx, opts.CommunityID)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "structure check: %v\n", err)
		return ExitFailure
	}

	summary := CheckSummary{CommunityID: opts.CommunityID, Blocks: len(nodes), Units: len(units)}
	tree, err := structure.Build(nodes, units)
	var topo *shared.InvalidTopologyError
	switch {
	case errors.As(err, &topo):
		summary.Problem = &CheckProblem{NodeID: topo.NodeID, Reason: topo.Reason, Detail: err.Error()}
	case err != nil:
		_, _ = fmt.Fprintf(opts.Stderr, "structure check: %v\n", err)
		return ExitFailure
	default:
		summary.OK = true
		summary.Fingerprint = tree.Fingerprint()
		summary.Roots = tree.Roots()
	}

	if opts.JSONOutput {
		if err := json.NewEncoder(opts.Stdout).Encode(summary); err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "structure check: encode json: %v\n", err)
			return ExitFailure
		}
	} else {
		renderCheckHuman(opts.Stdout, summary, tree)
	}
	if !summary.OK {
		return ExitFindings
	}
	return ExitOK
}

func renderCheckHuman(out io.Writer, summary CheckSummary, tree *structure.Tree) {
	_, _ = fmt.Fprintf(out, "Community %d: %d block(s), %d unit(s)\n", summary.CommunityID, summary.Blocks, summary.Units)
	if summary.Problem != nil {
		_, _ = fmt.Fprintf(out, "INVALID at block %d: %s\n", summary.Problem.NodeID, summary.Problem.Reason)
		return
	}
	_, _ = fmt.Fprintf(out, "Fingerprint %s\n", summary.Fingerprint)
	for _, root := range tree.Roots() {
		for _, id := range tree.Descendants(root) {
			node, _ := tree.Node(id)
			depth := len(tree.AncestorPath(id)) - 1
			_, _ = fmt.Fprintf(out, "%s- %s [%s] %d unit(s)\n", strings.Repeat("  ", depth), node.Name, node.Kind, len(node.Units))
		}
	}
}
