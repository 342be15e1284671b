package opcode

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cuejson "cuelang.org/go/encoding/json"
	"github.com/agnivade/levenshtein"
	"github.com/tliron/commonlog"
)

//go:embed schema.cue
var schemaSource string

//go:embed data/actions.json
var defaultActions []byte

//go:embed data/expressions.json
var defaultExpressions []byte

var log = commonlog.GetLogger("evocell.opcode")

// Load-time errors. Any of them means the opcode data and the behavior
// tables disagree and the process cannot start.
var (
	ErrSchema            = errors.New("opcode data does not match schema")
	ErrDuplicateCode     = errors.New("duplicate opcode")
	ErrUnmappedBehavior  = errors.New("opcode has no behavior")
	ErrUnknownDefault    = errors.New("unknown parameter default type")
	ErrInvalidExpression = errors.New("invalid expression definition")
)

// ---------------------------------------------------------------------------
// Registries
// ---------------------------------------------------------------------------

// ActionSet maps gene values to action definitions. It is read-only once
// loaded.
type ActionSet struct {
	byCode map[int8]*ActionDef
	defs   []*ActionDef
}

func newActionSet() *ActionSet {
	return &ActionSet{byCode: make(map[int8]*ActionDef)}
}

func (s *ActionSet) add(d *ActionDef) error {
	if existing, ok := s.byCode[d.Code]; ok {
		return fmt.Errorf("%w: action code %d used by %q and %q", ErrDuplicateCode, d.Code, existing.Name, d.Name)
	}
	s.byCode[d.Code] = d
	s.defs = append(s.defs, d)
	return nil
}

// Lookup returns the definition registered for a gene value.
func (s *ActionSet) Lookup(code int8) (*ActionDef, bool) {
	d, ok := s.byCode[code]
	return d, ok
}

// ByName returns the first definition with the given name.
func (s *ActionSet) ByName(name string) (*ActionDef, bool) {
	for _, d := range s.defs {
		if d.Name == name {
			return d, true
		}
	}
	return nil, false
}

// Defs returns the definitions in data order.
func (s *ActionSet) Defs() []*ActionDef {
	return s.defs
}

// Len returns the number of registered opcodes.
func (s *ActionSet) Len() int {
	return len(s.defs)
}

// ExpressionSet maps gene values to expression definitions.
type ExpressionSet struct {
	byCode map[int8]*ExpressionDef
	defs   []*ExpressionDef
}

// Lookup returns the definition registered for a gene value.
func (s *ExpressionSet) Lookup(code int8) (*ExpressionDef, bool) {
	d, ok := s.byCode[code]
	return d, ok
}

// ByName returns the definition with the given name.
func (s *ExpressionSet) ByName(name string) (*ExpressionDef, bool) {
	for _, d := range s.defs {
		if d.Name == name {
			return d, true
		}
	}
	return nil, false
}

// Defs returns the definitions in data order.
func (s *ExpressionSet) Defs() []*ExpressionDef {
	return s.defs
}

// Len returns the number of registered operators.
func (s *ExpressionSet) Len() int {
	return len(s.defs)
}

// Registry bundles the three opcode tables the interpreter reads.
type Registry struct {
	Actions     *ActionSet     // opcodes recognised on normal turns
	Embryo      *ActionSet     // opcodes recognised during the embryo run
	Expressions *ExpressionSet // operators reachable through the expression marker
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// LoadDefault loads the opcode data embedded in the binary.
func LoadDefault() (*Registry, error) {
	return load(defaultActions, "actions.json", defaultExpressions, "expressions.json")
}

// Load builds a registry from JSON opcode data.
func Load(actions, expressions []byte) (*Registry, error) {
	return load(actions, "actions.json", expressions, "expressions.json")
}

// LoadFiles reads opcode data from disk. An empty path selects the
// embedded data for that table.
func LoadFiles(actionsPath, expressionsPath string) (*Registry, error) {
	actions, actionsName := defaultActions, "actions.json"
	if actionsPath != "" {
		data, err := os.ReadFile(actionsPath)
		if err != nil {
			return nil, fmt.Errorf("cannot read %s: %w", actionsPath, err)
		}
		actions, actionsName = data, actionsPath
	}
	expressions, expressionsName := defaultExpressions, "expressions.json"
	if expressionsPath != "" {
		data, err := os.ReadFile(expressionsPath)
		if err != nil {
			return nil, fmt.Errorf("cannot read %s: %w", expressionsPath, err)
		}
		expressions, expressionsName = data, expressionsPath
	}
	return load(actions, actionsName, expressions, expressionsName)
}

type actionRecord struct {
	Value       int8              `json:"value"`
	Type        string            `json:"type"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Tag         string            `json:"tag"`
	Parameters  []parameterRecord `json:"parameters"`
	Embryo      bool              `json:"embryo"`
}

type parameterRecord struct {
	Name    string        `json:"name"`
	Default defaultRecord `json:"default"`
}

type defaultRecord struct {
	Type  string `json:"type"`
	Value int8   `json:"value"`
	Min   int8   `json:"min"`
	Max   int8   `json:"max"`
}

type expressionRecord struct {
	Value             int8   `json:"value"`
	Name              string `json:"name"`
	DefaultParameters []int8 `json:"defaultParameters"`
}

func load(actions []byte, actionsName string, expressions []byte, expressionsName string) (*Registry, error) {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("opcode: compile schema: %w", err)
	}

	var actionRecords []actionRecord
	if err := decodeChecked(schema, "#Actions", actionsName, actions, &actionRecords); err != nil {
		return nil, err
	}
	var exprRecords []expressionRecord
	if err := decodeChecked(schema, "#Expressions", expressionsName, expressions, &exprRecords); err != nil {
		return nil, err
	}

	reg := &Registry{
		Actions:     newActionSet(),
		Embryo:      newActionSet(),
		Expressions: &ExpressionSet{byCode: make(map[int8]*ExpressionDef)},
	}
	for _, rec := range actionRecords {
		def, err := buildAction(rec)
		if err != nil {
			return nil, err
		}
		if err := reg.Actions.add(def); err != nil {
			return nil, err
		}
		if def.Embryo {
			if err := reg.Embryo.add(def); err != nil {
				return nil, err
			}
		}
	}
	for _, rec := range exprRecords {
		def, err := buildExpression(rec)
		if err != nil {
			return nil, err
		}
		if existing, ok := reg.Expressions.byCode[def.Code]; ok {
			return nil, fmt.Errorf("%w: expression code %d used by %q and %q", ErrDuplicateCode, def.Code, existing.Name, def.Name)
		}
		reg.Expressions.byCode[def.Code] = def
		reg.Expressions.defs = append(reg.Expressions.defs, def)
	}

	log.Infof("loaded %d actions (%d embryo), %d expressions",
		reg.Actions.Len(), reg.Embryo.Len(), reg.Expressions.Len())
	return reg, nil
}

// decodeChecked validates JSON data against a schema definition and
// decodes it into out.
func decodeChecked(schema cue.Value, definition, filename string, data []byte, out any) error {
	expr, err := cuejson.Extract(filename, data)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrSchema, filename, err)
	}
	value := schema.Context().BuildExpr(expr, cue.Filename(filename))
	if err := value.Err(); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrSchema, filename, err)
	}
	checked := schema.LookupPath(cue.ParsePath(definition)).Unify(value)
	if err := checked.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrSchema, filename, err)
	}
	if err := value.Decode(out); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrSchema, filename, err)
	}
	return nil
}

func buildAction(rec actionRecord) (*ActionDef, error) {
	category, ok := categoryNames[rec.Type]
	if !ok {
		return nil, fmt.Errorf("%w: action %q has unknown type %q", ErrSchema, rec.Name, rec.Type)
	}
	def := &ActionDef{
		Code:        rec.Value,
		Category:    category,
		Name:        rec.Name,
		Description: rec.Description,
		Tag:         rec.Tag,
		Embryo:      rec.Embryo,
	}

	switch category {
	case CategoryAction:
		kind, ok := lookupName[ActionKind](actionKindNames[:], rec.Name)
		if !ok {
			return nil, unmapped("action", rec.Name, actionKindNames[:])
		}
		def.Action = kind
	default:
		kind, ok := lookupName[SpecKind](specKindNames[:], rec.Name)
		if !ok {
			return nil, unmapped(rec.Type, rec.Name, specKindNames[:])
		}
		if (kind.GroupSize() > 0) != (category == CategorySpecAction) {
			return nil, fmt.Errorf("%w: %q must have type specaction only when it groups actions", ErrSchema, rec.Name)
		}
		def.Spec = kind
	}

	for _, p := range rec.Parameters {
		dv, err := buildDefault(rec.Name, p)
		if err != nil {
			return nil, err
		}
		def.Parameters = append(def.Parameters, ParameterDef{Name: p.Name, Default: dv})
	}
	return def, nil
}

func buildDefault(action string, p parameterRecord) (DefaultValue, error) {
	switch p.Default.Type {
	case "constant":
		return DefaultValue{Value: p.Default.Value}, nil
	case "random":
		return DefaultValue{Random: true, Min: p.Default.Min, Max: p.Default.Max}, nil
	}
	return DefaultValue{}, fmt.Errorf("%w: %q in parameter %q of %q", ErrUnknownDefault, p.Default.Type, p.Name, action)
}

func buildExpression(rec expressionRecord) (*ExpressionDef, error) {
	kind, ok := lookupName[ExprKind](exprKindNames[:], rec.Name)
	if !ok {
		return nil, unmapped("expression", rec.Name, exprKindNames[:])
	}
	if len(rec.DefaultParameters) > 2 {
		return nil, fmt.Errorf("%w: %q declares %d operands, at most 2 are supported",
			ErrInvalidExpression, rec.Name, len(rec.DefaultParameters))
	}
	return &ExpressionDef{
		Code:              rec.Value,
		Name:              rec.Name,
		Kind:              kind,
		DefaultParameters: rec.DefaultParameters,
	}, nil
}

func unmapped(what, name string, known []string) error {
	if s := suggest(name, known); s != "" {
		return fmt.Errorf("%w: %s %q (did you mean %q?)", ErrUnmappedBehavior, what, name, s)
	}
	return fmt.Errorf("%w: %s %q", ErrUnmappedBehavior, what, name)
}

// suggest returns the known name closest to name, or "" when nothing is
// close enough to be a likely typo.
func suggest(name string, known []string) string {
	best, bestDist := "", -1
	for _, k := range known {
		d := levenshtein.ComputeDistance(name, k)
		if bestDist < 0 || d < bestDist {
			best, bestDist = k, d
		}
	}
	if bestDist < 0 || bestDist > max(2, len(name)/3) {
		return ""
	}
	return best
}
