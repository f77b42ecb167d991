// Package action defines the fixed set of action labels shared by the
// recorder, the classifier and the gesture dispatcher.
package action

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownLabel is returned when a value outside the fixed label set
// reaches parsing, persistence or dispatch.
var ErrUnknownLabel = errors.New("unknown action label")

// Label is one of the five discrete actions. The zero value is Neutral.
type Label int

const (
	Neutral Label = iota // running, no gesture
	Left
	Right
	Up // jump
	Down
)

// Count is the size of the label set and of the classifier output vector.
const Count = 5

// All lists every label in model index order.
var All = []Label{Left, Right, Up, Down, Neutral}

// modelIndex maps labels to the classifier output position.
var modelIndex = map[Label]int{
	Left:    0,
	Right:   1,
	Up:      2,
	Down:    3,
	Neutral: 4,
}

func (l Label) String() string {
	switch l {
	case Neutral:
		return "running"
	case Left:
		return "left"
	case Right:
		return "right"
	case Up:
		return "up"
	case Down:
		return "down"
	default:
		return fmt.Sprintf("Label(%d)", int(l))
	}
}

// MetadataName is the name written to labels.json. The training data
// loader only knows "jump" for Up.
func (l Label) MetadataName() string {
	if l == Up {
		return "jump"
	}
	return l.String()
}

// Valid reports whether l belongs to the fixed label set.
func (l Label) Valid() bool {
	_, ok := modelIndex[l]
	return ok
}

// IsDirectional reports whether the label maps to a swipe gesture.
func (l Label) IsDirectional() bool {
	return l.Valid() && l != Neutral
}

// Index returns the classifier output position of l.
func (l Label) Index() (int, error) {
	idx, ok := modelIndex[l]
	if !ok {
		return 0, fmt.Errorf("%w: %d", ErrUnknownLabel, int(l))
	}
	return idx, nil
}

// FromIndex maps a classifier output position to its label.
func FromIndex(idx int) (Label, error) {
	if idx < 0 || idx >= len(All) {
		return Neutral, fmt.Errorf("%w: index %d", ErrUnknownLabel, idx)
	}
	return All[idx], nil
}

// Parse converts a label name into a Label. It accepts the canonical
// names plus "jump" and "neutral".
func Parse(s string) (Label, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "running", "neutral":
		return Neutral, nil
	case "left":
		return Left, nil
	case "right":
		return Right, nil
	case "up", "jump":
		return Up, nil
	case "down":
		return Down, nil
	default:
		return Neutral, fmt.Errorf("%w: %q", ErrUnknownLabel, s)
	}
}

// MarshalText implements encoding.TextMarshaler so labels serialize by name.
func (l Label) MarshalText() ([]byte, error) {
	if !l.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownLabel, int(l))
	}
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Label) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}
