package captioning

import (
	"fmt"
	"strings"
)

// Mode selects the kind of caption requested from the model
type Mode int

const (
	ModeSimple Mode = iota
	ModeDescriptive
	ModeDetailedAppearance
)

var modeNames = map[Mode]string{
	ModeSimple:             "simple",
	ModeDescriptive:        "descriptive",
	ModeDetailedAppearance: "appearance",
}

func (m Mode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// ParseMode maps user input onto a Mode. Empty input yields ModeSimple.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "simple", "plain":
		return ModeSimple, nil
	case "descriptive", "detailed":
		return ModeDescriptive, nil
	case "appearance", "detailed-appearance", "detailed_appearance":
		return ModeDetailedAppearance, nil
	default:
		return 0, fmt.Errorf("invalid mode %q: must be 'simple', 'descriptive', or 'appearance'", s)
	}
}

// Length selects the caption budget tier
type Length int

// The zero value is LengthMedium, the same default ParseLength gives empty input
const (
	LengthMedium Length = iota
	LengthShort
	LengthLong
)

var lengthNames = map[Length]string{
	LengthShort:  "short",
	LengthMedium: "medium",
	LengthLong:   "long",
}

func (l Length) String() string {
	if name, ok := lengthNames[l]; ok {
		return name
	}
	return fmt.Sprintf("length(%d)", int(l))
}

// ParseLength maps user input onto a Length. Empty input yields LengthMedium.
func ParseLength(s string) (Length, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "short":
		return LengthShort, nil
	case "", "medium":
		return LengthMedium, nil
	case "long":
		return LengthLong, nil
	default:
		return 0, fmt.Errorf("invalid length %q: must be 'short', 'medium', or 'long'", s)
	}
}

// GenerationOptions is built once per run and not modified while it executes
type GenerationOptions struct {
	Mode    Mode
	Length  Length
	Trigger string
}

// NewOptions parses raw user input into GenerationOptions
func NewOptions(mode, length, trigger string) (GenerationOptions, error) {
	m, err := ParseMode(mode)
	if err != nil {
		return GenerationOptions{}, err
	}
	l, err := ParseLength(length)
	if err != nil {
		return GenerationOptions{}, err
	}
	return GenerationOptions{
		Mode:    m,
		Length:  l,
		Trigger: strings.TrimSpace(trigger),
	}, nil
}

// TriggerToken returns the trimmed trigger; empty means absent
func (o GenerationOptions) TriggerToken() string {
	return strings.TrimSpace(o.Trigger)
}
