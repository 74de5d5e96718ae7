package tour

import (
	"errors"
	"fmt"
	"strings"

	"arxidemo/internal/domain"
)

var ErrUnknownAction = errors.New("unknown action")

// Control is a statically addressable UI control.
type Control int

const (
	ControlNone Control = iota
	TeamsTab
	ProjectsTab
	StoriesTab
	TestCasesTab
	TestSuitesTab
	ExecutionsTab
	AddTeamButton
	AddProjectButton
	AddStory
	AddTestCaseButton
	AddTestSuiteButton
	RunTestsButton
	Delete
	// EntityCard marks a parametrized card action; see Card.
	EntityCard
)

var controlNames = map[Control]string{
	TeamsTab:           "teams-tab",
	ProjectsTab:        "projects-tab",
	StoriesTab:         "stories-tab",
	TestCasesTab:       "testcases-tab",
	TestSuitesTab:      "testsuites-tab",
	ExecutionsTab:      "executions-tab",
	AddTeamButton:      "add-team-button",
	AddProjectButton:   "add-project-button",
	AddStory:           "add-story",
	AddTestCaseButton:  "add-testcase-button",
	AddTestSuiteButton: "add-testsuite-button",
	RunTestsButton:     "run-tests-button",
	Delete:             "delete",
}

func (c Control) String() string {
	if name, ok := controlNames[c]; ok {
		return name
	}
	if c == EntityCard {
		return "card"
	}
	return fmt.Sprintf("control(%d)", int(c))
}

// ActionID identifies one gated surface: a static control, or the card of
// one entity.
type ActionID struct {
	Control  Control
	Kind     domain.EntityKind
	EntityID string
}

// Static builds the identifier of a static control.
func Static(c Control) ActionID { return ActionID{Control: c} }

// Card builds the identifier of an entity card.
func Card(kind domain.EntityKind, id string) ActionID {
	return ActionID{Control: EntityCard, Kind: kind, EntityID: id}
}

func (a ActionID) IsCard() bool { return a.Control == EntityCard }

// String is the stable surface identifier, e.g. "projects-tab" or
// "project-card-42".
func (a ActionID) String() string {
	if a.IsCard() {
		return cardPrefix(a.Kind) + a.EntityID
	}
	return a.Control.String()
}

func (a ActionID) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

func (a *ActionID) UnmarshalText(b []byte) error {
	parsed, err := ParseAction(string(b))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

func cardPrefix(kind domain.EntityKind) string { return string(kind) + "-card-" }

// ParseAction parses a surface identifier.
func ParseAction(s string) (ActionID, error) {
	s = strings.TrimSpace(s)
	for c, name := range controlNames {
		if s == name {
			return Static(c), nil
		}
	}
	for _, kind := range domain.Kinds {
		if id, ok := strings.CutPrefix(s, cardPrefix(kind)); ok && id != "" {
			return Card(kind, id), nil
		}
	}
	return ActionID{}, fmt.Errorf("%w: %q", ErrUnknownAction, s)
}

// Pattern is one entry of a step's allow-list.
type Pattern struct {
	// Any matches every action.
	Any bool
	// Family, when set, matches every card of that kind.
	Family domain.EntityKind
	// Exact matches one action when neither Any nor Family is set.
	Exact ActionID
}

var Everything = Pattern{Any: true}

func Exactly(a ActionID) Pattern { return Pattern{Exact: a} }

func AnyCard(kind domain.EntityKind) Pattern { return Pattern{Family: kind} }

func (p Pattern) Matches(a ActionID) bool {
	switch {
	case p.Any:
		return true
	case p.Family != "":
		return a.IsCard() && a.Kind == p.Family
	default:
		return p.Exact == a
	}
}

func (p Pattern) String() string {
	switch {
	case p.Any:
		return "*"
	case p.Family != "":
		return cardPrefix(p.Family) + "*"
	default:
		return p.Exact.String()
	}
}

func (p Pattern) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

// ParsePattern parses "*", "<kind>-card-*" or an exact surface identifier.
func ParsePattern(s string) (Pattern, error) {
	s = strings.TrimSpace(s)
	if s == "*" {
		return Everything, nil
	}
	if prefix, ok := strings.CutSuffix(s, "-card-*"); ok {
		kind, err := domain.ParseKind(prefix)
		if err != nil {
			return Pattern{}, fmt.Errorf("%w: %q", ErrUnknownAction, s)
		}
		return AnyCard(kind), nil
	}
	a, err := ParseAction(s)
	if err != nil {
		return Pattern{}, err
	}
	return Exactly(a), nil
}

// Allows is the gate predicate: everything once the tour is complete,
// otherwise any matching pattern.
func Allows(permitted []Pattern, complete bool, a ActionID) bool {
	if complete {
		return true
	}
	for _, p := range permitted {
		if p.Matches(a) {
			return true
		}
	}
	return false
}
