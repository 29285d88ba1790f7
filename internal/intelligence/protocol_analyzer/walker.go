package protocol_analyzer

import (
	"strconv"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/turtacn/platemap/internal/domain/plate"
	"github.com/turtacn/platemap/internal/domain/protocol"
	"github.com/turtacn/platemap/internal/infrastructure/monitoring/logging"
)

// walker classifies tree-sitter nodes into protocol statements.
type walker struct {
	src    []byte
	sym    Symbols
	logger logging.Logger
	out    []protocol.Statement
}

// ---------------------------------------------------------------------------
// Traversal
// ---------------------------------------------------------------------------

// topLevel looks at the direct statements of run: liquid definitions,
// destination lists and transfers.
func (w *walker) topLevel(body *sitter.Node) {
	for i := 0; i < int(body.NamedChildCount()); i++ {
		stmt := body.NamedChild(i)
		if stmt.Type() != "expression_statement" || stmt.NamedChildCount() == 0 {
			continue
		}
		expr := stmt.NamedChild(0)
		switch expr.Type() {
		case "assignment":
			w.assignment(expr)
		case "call":
			w.transfer(expr)
		}
	}
}

// loads finds load_liquid calls anywhere below n, including loops and
// nested blocks.
func (w *walker) loads(n *sitter.Node) {
	if n.Type() == "call" {
		w.load(n)
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		w.loads(n.NamedChild(i))
	}
}

// ---------------------------------------------------------------------------
// Statement shapes
// ---------------------------------------------------------------------------

// assignment handles `x = proto.define_liquid(name='…')` and
// `x = [dest[w] for w in ['A1', …]]`.
func (w *walker) assignment(n *sitter.Node) {
	left, right := n.ChildByFieldName("left"), n.ChildByFieldName("right")
	if left == nil || right == nil || left.Type() != "identifier" {
		return
	}
	name := left.Content(w.src)
	switch right.Type() {
	case "call":
		if w.methodName(right) != w.sym.DefineLiquid {
			return
		}
		args := w.arguments(right)
		display, ok := w.stringLiteral(args.keywords["name"])
		if !ok {
			w.skip(n, "define_liquid without a literal name")
			return
		}
		w.emit(protocol.LiquidStatement{Position: w.pos(n), Variable: name, DisplayName: display})
	case "list_comprehension":
		wells, ok := w.destinationComprehension(right)
		if !ok {
			return
		}
		w.emit(protocol.DestinationListStatement{Position: w.pos(n), Name: name, Wells: wells})
	}
}

// load handles `<source>['A1'].load_liquid(liquid=var, volume=50)`.
func (w *walker) load(call *sitter.Node) {
	fn := call.ChildByFieldName("function")
	if fn == nil || fn.Type() != "attribute" || w.attrName(fn) != w.sym.LoadLiquid {
		return
	}
	label, ok := w.plateSubscript(fn.ChildByFieldName("object"), w.sym.SourcePlate)
	if !ok {
		return
	}
	well, err := plate.ParseWell(1, label)
	if err != nil {
		w.skip(call, "source well label "+strconv.Quote(label)+" is not a well")
		return
	}
	args := w.arguments(call)
	liquid := args.keywords["liquid"]
	if liquid == nil || liquid.Type() != "identifier" {
		w.skip(call, "load_liquid without a liquid variable")
		return
	}
	load := protocol.SourceLoad{Well: well, Variable: liquid.Content(w.src)}
	if v, ok := w.number(args.keywords["volume"]); ok {
		load.Volume = &v
	}
	w.emit(protocol.LoadStatement{Position: w.pos(call), Load: load})
}

// transfer handles `<pipette>.transfer(vol, <source>['A2'], dest, …)` where
// dest is a list name, a list of labels or destination subscripts, or one
// destination subscript.
func (w *walker) transfer(call *sitter.Node) {
	if w.methodName(call) != w.sym.Transfer {
		return
	}
	args := w.arguments(call)
	if len(args.positional) < 3 {
		w.skip(call, "transfer with fewer than three positional arguments")
		return
	}
	label, ok := w.plateSubscript(args.positional[1], w.sym.SourcePlate)
	if !ok {
		w.skip(call, "transfer source is not a literal "+w.sym.SourcePlate+" well")
		return
	}
	src, err := plate.ParseWell(1, label)
	if err != nil {
		w.skip(call, "source well label "+strconv.Quote(label)+" is not a well")
		return
	}
	stmt := protocol.TransferStatement{Position: w.pos(call), SourceWell: src}

	dest := args.positional[2]
	switch dest.Type() {
	case "identifier":
		stmt.ListName = dest.Content(w.src)
	case "list", "tuple":
		wells, ok := w.destinationElements(dest)
		if !ok {
			w.skip(call, "transfer destinations are not literal wells")
			return
		}
		stmt.Destinations = wells
	case "subscript":
		label, ok := w.destinationSubscript(dest)
		if !ok {
			w.skip(call, "transfer destination is not a literal "+w.sym.DestPlate+" well")
			return
		}
		well, err := plate.ParseWell(1, label)
		if err != nil {
			w.skip(call, "destination label "+strconv.Quote(label)+" is not a well")
			return
		}
		stmt.Destinations = []plate.Well{well}
	default:
		w.skip(call, "unsupported transfer destination "+dest.Type())
		return
	}
	w.emit(stmt)
}

// destinationComprehension accepts `[<dest>[w] for w in [labels…]]` and
// `[<dest>.wells_by_name()[w] for w in (labels…)]`.
func (w *walker) destinationComprehension(n *sitter.Node) ([]plate.Well, bool) {
	body := n.ChildByFieldName("body")
	if body == nil || body.Type() != "subscript" || !w.isDestBase(body.ChildByFieldName("value")) {
		return nil, false
	}
	var clause *sitter.Node
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if c := n.NamedChild(i); c.Type() == "for_in_clause" {
			clause = c
			break
		}
	}
	if clause == nil {
		return nil, false
	}
	seq := clause.ChildByFieldName("right")
	if seq == nil || (seq.Type() != "list" && seq.Type() != "tuple") {
		return nil, false
	}
	var wells []plate.Well
	for i := 0; i < int(seq.NamedChildCount()); i++ {
		el := seq.NamedChild(i)
		if el.Type() == "comment" {
			continue
		}
		label, ok := w.stringLiteral(el)
		if !ok {
			w.skip(n, "destination list element is not a string literal")
			return nil, false
		}
		well, err := plate.ParseWell(1, label)
		if err != nil {
			w.skip(n, "destination label "+strconv.Quote(label)+" is not a well")
			return nil, false
		}
		wells = append(wells, well)
	}
	if len(wells) == 0 {
		return nil, false
	}
	return wells, true
}

func (w *walker) destinationElements(list *sitter.Node) ([]plate.Well, bool) {
	var wells []plate.Well
	for i := 0; i < int(list.NamedChildCount()); i++ {
		el := list.NamedChild(i)
		if el.Type() == "comment" {
			continue
		}
		label, ok := w.stringLiteral(el)
		if !ok {
			label, ok = w.destinationSubscript(el)
		}
		if !ok {
			return nil, false
		}
		well, err := plate.ParseWell(1, label)
		if err != nil {
			return nil, false
		}
		wells = append(wells, well)
	}
	return wells, len(wells) > 0
}

// ---------------------------------------------------------------------------
// Node helpers
// ---------------------------------------------------------------------------

type callArgs struct {
	positional []*sitter.Node
	keywords   map[string]*sitter.Node
}

func (w *walker) arguments(call *sitter.Node) callArgs {
	out := callArgs{keywords: map[string]*sitter.Node{}}
	list := call.ChildByFieldName("arguments")
	if list == nil || list.Type() != "argument_list" {
		return out
	}
	for i := 0; i < int(list.NamedChildCount()); i++ {
		a := list.NamedChild(i)
		switch a.Type() {
		case "comment", "list_splat", "dictionary_splat":
			continue
		case "keyword_argument":
			if k := a.ChildByFieldName("name"); k != nil {
				out.keywords[k.Content(w.src)] = a.ChildByFieldName("value")
			}
		default:
			out.positional = append(out.positional, a)
		}
	}
	return out
}

// methodName returns "m" for a call of the form `obj.m(...)`.
func (w *walker) methodName(call *sitter.Node) string {
	fn := call.ChildByFieldName("function")
	if fn == nil || fn.Type() != "attribute" {
		return ""
	}
	return w.attrName(fn)
}

func (w *walker) attrName(attr *sitter.Node) string {
	if a := attr.ChildByFieldName("attribute"); a != nil {
		return a.Content(w.src)
	}
	return ""
}

// plateSubscript matches `<base>['A1']` with base named exactly base.
func (w *walker) plateSubscript(n *sitter.Node, base string) (string, bool) {
	if n == nil || n.Type() != "subscript" {
		return "", false
	}
	v := n.ChildByFieldName("value")
	if v == nil || v.Type() != "identifier" || v.Content(w.src) != base {
		return "", false
	}
	return w.stringLiteral(n.ChildByFieldName("subscript"))
}

// destinationSubscript matches `<dest>['A1']` and
// `<dest>.wells_by_name()['A1']`.
func (w *walker) destinationSubscript(n *sitter.Node) (string, bool) {
	if n == nil || n.Type() != "subscript" || !w.isDestBase(n.ChildByFieldName("value")) {
		return "", false
	}
	return w.stringLiteral(n.ChildByFieldName("subscript"))
}

func (w *walker) isDestBase(n *sitter.Node) bool {
	if n == nil {
		return false
	}
	switch n.Type() {
	case "identifier":
		return n.Content(w.src) == w.sym.DestPlate
	case "call":
		fn := n.ChildByFieldName("function")
		if fn == nil || fn.Type() != "attribute" || w.attrName(fn) != "wells_by_name" {
			return false
		}
		obj := fn.ChildByFieldName("object")
		return obj != nil && obj.Type() == "identifier" && obj.Content(w.src) == w.sym.DestPlate
	}
	return false
}

// stringLiteral decodes a plain, raw, bytes or unicode string literal.
// f-strings and implicit concatenations are not literals here.
func (w *walker) stringLiteral(n *sitter.Node) (string, bool) {
	if n == nil || n.Type() != "string" {
		return "", false
	}
	return decodeString(n.Content(w.src))
}

func decodeString(raw string) (string, bool) {
	i := 0
	for i < len(raw) && strings.ContainsRune("rRbBuU", rune(raw[i])) {
		i++
	}
	prefix, body := raw[:i], raw[i:]
	for _, q := range []string{`"""`, `'''`, `"`, `'`} {
		if len(body) < 2*len(q) || !strings.HasPrefix(body, q) || !strings.HasSuffix(body, q) {
			continue
		}
		inner := body[len(q) : len(body)-len(q)]
		if !strings.ContainsAny(prefix, "rR") {
			inner = unescaper.Replace(inner)
		}
		return inner, true
	}
	return "", false
}

var unescaper = strings.NewReplacer(`\\`, `\`, `\'`, `'`, `\"`, `"`, `\n`, "\n", `\t`, "\t")

func (w *walker) number(n *sitter.Node) (float64, bool) {
	if n == nil || (n.Type() != "integer" && n.Type() != "float") {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(n.Content(w.src), "_", ""), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func (w *walker) pos(n *sitter.Node) protocol.Position {
	return protocol.Position{Line: int(n.StartPoint().Row) + 1}
}

func (w *walker) emit(s protocol.Statement) {
	w.out = append(w.out, s)
}

func (w *walker) skip(n *sitter.Node, reason string) {
	w.logger.Debug("statement not recognized",
		logging.Int("line", int(n.StartPoint().Row)+1),
		logging.String("reason", reason))
}

//Personal.AI order the ending
