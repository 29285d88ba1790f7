// Package protocol_analyzer reads Opentrons protocol scripts without running
// them and recovers which reagent lands in which destination well.
//
// Parsing uses tree-sitter's Python grammar. The walker recognizes four
// statement shapes inside the top-level run function (liquid definitions,
// source loads, destination lists and transfers) and hands them to
// protocol.Fold. Every other statement is ignored.
package protocol_analyzer

import (
	"context"
	"sort"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"github.com/turtacn/platemap/internal/domain/protocol"
	"github.com/turtacn/platemap/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/platemap/pkg/errors"
)

// Analyzer is safe for concurrent use; each call builds its own parser.
type Analyzer struct {
	opts   Options
	logger logging.Logger
}

// NewAnalyzer validates opts and returns an Analyzer.
func NewAnalyzer(opts Options, logger logging.Logger) (*Analyzer, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Analyzer{opts: opts, logger: logging.OrNop(logger).Named("protocol_analyzer")}, nil
}

// Analyze parses src and folds the recognized statements into a
// destination map. Missing run function and (under StrictSyntax) syntax
// errors are fatal; unresolvable transfers are reported in the result.
func (a *Analyzer) Analyze(ctx context.Context, src []byte) (*protocol.Result, error) {
	stmts, err := a.Statements(ctx, src)
	if err != nil {
		return nil, err
	}
	res := protocol.Fold(stmts, a.opts.Geometry)

	a.logger.Info("protocol analyzed",
		logging.Int("statements", len(stmts)),
		logging.Int("bindings", len(res.Bindings)),
		logging.Int("transfers", len(res.Transfers)),
		logging.Int("wells", len(res.Entries)),
		logging.Int("excluded", len(res.Excluded)),
		logging.Int("conflicts", len(res.Conflicts)))
	for _, x := range res.Excluded {
		a.logger.Warn("transfer excluded",
			logging.Int("line", x.Line),
			logging.String("source_well", x.SourceWell.Label),
			logging.String("reason", string(x.Reason)))
	}
	for _, c := range res.Conflicts {
		a.logger.Warn("conflicting transfer",
			logging.Int("line", c.Line),
			logging.String("well", c.Well.Label),
			logging.String("class", string(c.Class)))
	}
	return res, nil
}

// Statements parses src and returns the recognized statements in source
// order.
func (a *Analyzer) Statements(ctx context.Context, src []byte) ([]protocol.Statement, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(python.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, errors.Wrap(ctxErr, errors.ErrCodeCanceled, "protocol parse canceled")
		}
		return nil, errors.Wrap(err, errors.ErrCodeProtocolParser, "tree-sitter parse failed")
	}
	defer tree.Close()

	root := tree.RootNode()
	if root == nil {
		return nil, errors.New(errors.ErrCodeProtocolParser, "tree-sitter returned no root node")
	}
	if root.HasError() {
		line := firstErrorLine(root)
		if a.opts.StrictSyntax {
			return nil, errors.New(errors.ErrCodeProtocolSyntax, "protocol has syntax errors").
				WithDetailf("first error near line %d", line)
		}
		a.logger.Warn("protocol has syntax errors, continuing with recovered tree", logging.Int("line", line))
	}

	run := findRun(root, src, a.opts.Symbols.RunFunction)
	if run == nil {
		return nil, errors.Newf(errors.ErrCodeProtocolNoRun, "no top-level %s() function", a.opts.Symbols.RunFunction)
	}
	body := run.ChildByFieldName("body")
	if body == nil {
		return nil, errors.Newf(errors.ErrCodeProtocolNoRun, "%s() has no body", a.opts.Symbols.RunFunction)
	}

	w := &walker{src: src, sym: a.opts.Symbols, logger: a.logger}
	w.topLevel(body)
	w.loads(body)

	sort.SliceStable(w.out, func(i, j int) bool {
		return w.out[i].Pos().Line < w.out[j].Pos().Line
	})
	return w.out, nil
}

// findRun returns the first module-level function named name, looking
// through decorators.
func findRun(root *sitter.Node, src []byte, name string) *sitter.Node {
	for i := 0; i < int(root.NamedChildCount()); i++ {
		n := root.NamedChild(i)
		if n.Type() == "decorated_definition" {
			n = n.ChildByFieldName("definition")
			if n == nil {
				continue
			}
		}
		if n.Type() != "function_definition" {
			continue
		}
		if id := n.ChildByFieldName("name"); id != nil && id.Content(src) == name {
			return n
		}
	}
	return nil
}

func firstErrorLine(n *sitter.Node) int {
	if n.Type() == "ERROR" || n.IsMissing() {
		return int(n.StartPoint().Row) + 1
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		if c.HasError() || c.IsMissing() {
			return firstErrorLine(c)
		}
	}
	return int(n.StartPoint().Row) + 1
}

//Personal.AI order the ending
