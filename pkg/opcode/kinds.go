package opcode

import "fmt"

// Category classifies an action opcode.
type Category uint8

const (
	CategoryAction     Category = iota // plain action with a behavior
	CategorySpec                       // control flow: if, goto, gotoGene, stop
	CategorySpecAction                 // action group: 2actions, 3actions
)

var categoryNames = map[string]Category{
	"action":     CategoryAction,
	"spec":       CategorySpec,
	"specaction": CategorySpecAction,
}

// String returns the name used in opcode data.
func (c Category) String() string {
	for name, v := range categoryNames {
		if v == c {
			return name
		}
	}
	return fmt.Sprintf("Category(%d)", c)
}

// ActionKind identifies the behavior performed by an action opcode.
// The set is closed: opcode data may only name kinds listed here.
type ActionKind uint8

const (
	ActionMove ActionKind = iota
	ActionRotateLeft
	ActionRotateRight
	ActionRotate
	ActionEatOrganics
	ActionEatMinerals
	ActionDigestOrganics
	ActionChemosynthesis
	ActionMineralsToOrganics
	ActionOrganicsToMinerals
	ActionProduceOffspring
	ActionBite
	ActionRegenerate
	ActionIncreaseParameter
	ActionDecreaseParameter
	ActionSetActiveGene

	actionKindCount
)

var actionKindNames = [actionKindCount]string{
	ActionMove:               "move",
	ActionRotateLeft:         "rotateLeft",
	ActionRotateRight:        "rotateRight",
	ActionRotate:             "rotate",
	ActionEatOrganics:        "eatOrganics",
	ActionEatMinerals:        "eatMinerals",
	ActionDigestOrganics:     "digestOrganics",
	ActionChemosynthesis:     "chemosynthesis",
	ActionMineralsToOrganics: "mineralsToOrganics",
	ActionOrganicsToMinerals: "organicsToMinerals",
	ActionProduceOffspring:   "produceOffspring",
	ActionBite:               "bite",
	ActionRegenerate:         "regenerate",
	ActionIncreaseParameter:  "increaseParameter",
	ActionDecreaseParameter:  "decreaseParameter",
	ActionSetActiveGene:      "setActiveGene",
}

// String returns the behavior name.
func (k ActionKind) String() string {
	if k < actionKindCount {
		return actionKindNames[k]
	}
	return fmt.Sprintf("ActionKind(%d)", k)
}

// AllActionKinds returns every action kind in declaration order.
func AllActionKinds() []ActionKind {
	kinds := make([]ActionKind, actionKindCount)
	for i := range kinds {
		kinds[i] = ActionKind(i)
	}
	return kinds
}

// SpecKind identifies a control-flow opcode.
type SpecKind uint8

const (
	SpecIf SpecKind = iota
	SpecGoto
	SpecGotoGene
	SpecStop
	SpecTwoActions
	SpecThreeActions

	specKindCount
)

var specKindNames = [specKindCount]string{
	SpecIf:           "if",
	SpecGoto:         "goto",
	SpecGotoGene:     "gotoGene",
	SpecStop:         "stop",
	SpecTwoActions:   "2actions",
	SpecThreeActions: "3actions",
}

// String returns the name used in opcode data.
func (k SpecKind) String() string {
	if k < specKindCount {
		return specKindNames[k]
	}
	return fmt.Sprintf("SpecKind(%d)", k)
}

// GroupSize returns how many actions a group opcode reads, 0 for other
// kinds.
func (k SpecKind) GroupSize() int {
	switch k {
	case SpecTwoActions:
		return 2
	case SpecThreeActions:
		return 3
	}
	return 0
}

// ExprKind identifies a value-producing operator.
type ExprKind uint8

const (
	ExprEquals ExprKind = iota
	ExprNot
	ExprGt
	ExprLt
	ExprAnd
	ExprOr
	ExprSum
	ExprSub
	ExprMod
	ExprRandom
	ExprMyProperty
	ExprMyCell
	ExprForwardCell
	ExprForwardBot

	exprKindCount
)

var exprKindNames = [exprKindCount]string{
	ExprEquals:      "equals",
	ExprNot:         "not",
	ExprGt:          "gt",
	ExprLt:          "lt",
	ExprAnd:         "and",
	ExprOr:          "or",
	ExprSum:         "sum",
	ExprSub:         "sub",
	ExprMod:         "mod",
	ExprRandom:      "random",
	ExprMyProperty:  "myProperty",
	ExprMyCell:      "myCell",
	ExprForwardCell: "forwardCell",
	ExprForwardBot:  "forwardBot",
}

// String returns the operator name.
func (k ExprKind) String() string {
	if k < exprKindCount {
		return exprKindNames[k]
	}
	return fmt.Sprintf("ExprKind(%d)", k)
}

// IsSensor reports whether the operator reads bot or world state. Sensor
// operators are evaluated by the host; all others are pure.
func (k ExprKind) IsSensor() bool {
	return k >= ExprMyProperty && k <= ExprForwardBot
}

// AllExprKinds returns every expression kind in declaration order.
func AllExprKinds() []ExprKind {
	kinds := make([]ExprKind, exprKindCount)
	for i := range kinds {
		kinds[i] = ExprKind(i)
	}
	return kinds
}

func lookupName[K ~uint8](names []string, name string) (K, bool) {
	for i, n := range names {
		if n == name {
			return K(i), true
		}
	}
	return 0, false
}
