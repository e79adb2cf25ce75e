package editor

import "fmt"

// State is a step of the manual erase-then-translate workflow
type State int

const (
	StateSelect State = iota
	StateMasking
	StateProcessing
	StateErased
	StateTranslating
	StateTranslated
)

var stateNames = map[State]string{
	StateSelect:      "select",
	StateMasking:     "masking",
	StateProcessing:  "processing",
	StateErased:      "erased",
	StateTranslating: "translating",
	StateTranslated:  "translated",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// InFlight reports whether a remote call is outstanding in this state
func (s State) InFlight() bool {
	return s == StateProcessing || s == StateTranslating
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(text []byte) error {
	for state, name := range stateNames {
		if name == string(text) {
			*s = state
			return nil
		}
	}
	return fmt.Errorf("unknown state: %s", text)
}
