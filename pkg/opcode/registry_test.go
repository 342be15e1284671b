package opcode

import (
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadDefault(t *testing.T) {
	reg, err := LoadDefault()
	if err != nil {
		t.Fatalf("LoadDefault: %v", err)
	}

	tests := []struct {
		code     int8
		name     string
		category Category
	}{
		{1, "move", CategoryAction},
		{4, "rotate", CategoryAction},
		{11, "produceOffspring", CategoryAction},
		{-1, "if", CategorySpec},
		{-2, "goto", CategorySpec},
		{-3, "gotoGene", CategorySpec},
		{-4, "stop", CategorySpec},
		{-5, "2actions", CategorySpecAction},
		{-6, "3actions", CategorySpecAction},
	}
	for _, tt := range tests {
		def, ok := reg.Actions.Lookup(tt.code)
		if !ok {
			t.Errorf("code %d not registered", tt.code)
			continue
		}
		if def.Name != tt.name || def.Category != tt.category {
			t.Errorf("code %d = %s/%s, want %s/%s", tt.code, def.Name, def.Category, tt.name, tt.category)
		}
	}

	if _, ok := reg.Actions.Lookup(0); ok {
		t.Error("code 0 must stay unregistered as filler")
	}
	if _, ok := reg.Actions.Lookup(-64); ok {
		t.Error("the expression marker must not be an action code")
	}
}

func TestActionKindsAllMapped(t *testing.T) {
	reg, err := LoadDefault()
	if err != nil {
		t.Fatalf("LoadDefault: %v", err)
	}
	for _, k := range AllActionKinds() {
		if _, ok := reg.Actions.ByName(k.String()); !ok {
			t.Errorf("behavior %s has no opcode", k)
		}
	}
	for _, k := range AllExprKinds() {
		if _, ok := reg.Expressions.ByName(k.String()); !ok {
			t.Errorf("operator %s has no opcode", k)
		}
	}
}

func TestEmbryoSubset(t *testing.T) {
	reg, err := LoadDefault()
	if err != nil {
		t.Fatalf("LoadDefault: %v", err)
	}
	if reg.Embryo.Len() == 0 || reg.Embryo.Len() >= reg.Actions.Len() {
		t.Fatalf("Embryo.Len() = %d, Actions.Len() = %d", reg.Embryo.Len(), reg.Actions.Len())
	}
	for _, def := range reg.Embryo.Defs() {
		if !def.Embryo {
			t.Errorf("%s in embryo set without the embryo flag", def.Name)
		}
		if full, _ := reg.Actions.Lookup(def.Code); full != def {
			t.Errorf("%s is not shared with the full set", def.Name)
		}
	}
	if _, ok := reg.Embryo.ByName("move"); ok {
		t.Error("move must not be available to embryos")
	}
	if _, ok := reg.Embryo.ByName("increaseParameter"); !ok {
		t.Error("increaseParameter must be available to embryos")
	}
}

func TestDefaults(t *testing.T) {
	reg, err := LoadDefault()
	if err != nil {
		t.Fatalf("LoadDefault: %v", err)
	}
	rotate, _ := reg.Actions.ByName("rotate")
	if len(rotate.Parameters) != 1 || !rotate.Parameters[0].Default.Random {
		t.Fatalf("rotate parameters = %+v", rotate.Parameters)
	}
	rng := rand.New(rand.NewSource(5))
	for i := 0; i < 100; i++ {
		if v := rotate.Parameters[0].Default.Get(rng); v < 0 || v > 1 {
			t.Fatalf("rotate default = %d, want 0 or 1", v)
		}
	}

	set, _ := reg.Actions.ByName("setActiveGene")
	if got := set.Parameters[0].Default.Get(rng); got != 1 {
		t.Errorf("setActiveGene default = %d, want 1", got)
	}

	and, _ := reg.Expressions.ByName("and")
	if and.Arity() != 2 || and.DefaultParameters[0] != 1 {
		t.Errorf("and defaults = %v", and.DefaultParameters)
	}
	fb, _ := reg.Expressions.ByName("forwardBot")
	if fb.Arity() != 0 {
		t.Errorf("forwardBot arity = %d, want 0", fb.Arity())
	}
}

func TestCounterTag(t *testing.T) {
	reg, err := LoadDefault()
	if err != nil {
		t.Fatalf("LoadDefault: %v", err)
	}
	left, _ := reg.Actions.ByName("rotateLeft")
	right, _ := reg.Actions.ByName("rotateRight")
	if left.CounterTag() != right.CounterTag() {
		t.Errorf("rotateLeft and rotateRight count separately: %q vs %q", left.CounterTag(), right.CounterTag())
	}
	bite, _ := reg.Actions.ByName("bite")
	if bite.CounterTag() != "bite" {
		t.Errorf("bite CounterTag() = %q", bite.CounterTag())
	}
}

const testExpressions = `[{"value": 1, "name": "equals", "defaultParameters": [0, 0]}]`

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name        string
		actions     string
		expressions string
		want        error
		contains    string
	}{
		{
			name:        "duplicate action code",
			actions:     `[{"value": 1, "type": "action", "name": "move"}, {"value": 1, "type": "action", "name": "bite"}]`,
			expressions: testExpressions,
			want:        ErrDuplicateCode,
		},
		{
			name:        "duplicate expression code",
			actions:     `[]`,
			expressions: `[{"value": 1, "name": "not", "defaultParameters": [0]}, {"value": 1, "name": "sum", "defaultParameters": [0, 0]}]`,
			want:        ErrDuplicateCode,
		},
		{
			name:        "unmapped action",
			actions:     `[{"value": 1, "type": "action", "name": "moev"}]`,
			expressions: testExpressions,
			want:        ErrUnmappedBehavior,
			contains:    `did you mean "move"`,
		},
		{
			name:        "unmapped spec",
			actions:     `[{"value": -1, "type": "spec", "name": "teleport"}]`,
			expressions: testExpressions,
			want:        ErrUnmappedBehavior,
		},
		{
			name:        "unmapped expression",
			actions:     `[]`,
			expressions: `[{"value": 1, "name": "xor", "defaultParameters": [0, 0]}]`,
			want:        ErrUnmappedBehavior,
		},
		{
			name:        "unknown default type",
			actions:     `[{"value": 4, "type": "action", "name": "rotate", "parameters": [{"name": "d", "default": {"type": "gaussian", "value": 1}}]}]`,
			expressions: testExpressions,
			want:        ErrUnknownDefault,
			contains:    `"gaussian"`,
		},
		{
			name:        "constant default without value",
			actions:     `[{"value": 4, "type": "action", "name": "rotate", "parameters": [{"name": "d", "default": {"type": "constant"}}]}]`,
			expressions: testExpressions,
			want:        ErrSchema,
		},
		{
			name:        "code out of byte range",
			actions:     `[{"value": 300, "type": "action", "name": "move"}]`,
			expressions: testExpressions,
			want:        ErrSchema,
		},
		{
			name:        "group declared as spec",
			actions:     `[{"value": -5, "type": "spec", "name": "2actions"}]`,
			expressions: testExpressions,
			want:        ErrSchema,
		},
		{
			name:        "too many operands",
			actions:     `[]`,
			expressions: `[{"value": 7, "name": "sum", "defaultParameters": [0, 0, 0]}]`,
			want:        ErrInvalidExpression,
		},
		{
			name:        "malformed json",
			actions:     `[{"value": 1,`,
			expressions: testExpressions,
			want:        ErrSchema,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load([]byte(tt.actions), []byte(tt.expressions))
			if !errors.Is(err, tt.want) {
				t.Fatalf("Load error = %v, want %v", err, tt.want)
			}
			if tt.contains != "" && !strings.Contains(err.Error(), tt.contains) {
				t.Errorf("error %q does not contain %q", err, tt.contains)
			}
		})
	}
}

func TestLoadFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "actions.json")
	data := `[{"value": 9, "type": "action", "name": "move", "tag": "move"}, {"value": -4, "type": "spec", "name": "stop", "embryo": true}]`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	reg, err := LoadFiles(path, "")
	if err != nil {
		t.Fatalf("LoadFiles: %v", err)
	}
	if reg.Actions.Len() != 2 || reg.Embryo.Len() != 1 {
		t.Errorf("Actions.Len() = %d, Embryo.Len() = %d", reg.Actions.Len(), reg.Embryo.Len())
	}
	if def, ok := reg.Actions.Lookup(9); !ok || def.Action != ActionMove {
		t.Errorf("Lookup(9) = %v, %v", def, ok)
	}
	if reg.Expressions.Len() == 0 {
		t.Error("empty expressions path must fall back to embedded data")
	}

	if _, err := LoadFiles(filepath.Join(dir, "missing.json"), ""); err == nil {
		t.Error("LoadFiles accepted a missing file")
	}
}

func TestSuggest(t *testing.T) {
	known := actionKindNames[:]
	tests := []struct {
		in, want string
	}{
		{"moev", "move"},
		{"eatOrganic", "eatOrganics"},
		{"fly", ""},
	}
	for _, tt := range tests {
		if got := suggest(tt.in, known); got != tt.want {
			t.Errorf("suggest(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
