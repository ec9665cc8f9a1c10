package captioning

import (
	"fmt"
	"math"
	"strings"
)

// Request is everything a Model needs for one inference besides the pixels
type Request struct {
	Prompt            string
	MaxNewTokens      int
	NumBeams          int
	Temperature       float64
	RepetitionPenalty float64
	// Sample enables stochastic decoding. Presets leave it off so that a
	// given (image, mode, length) always decodes the same way.
	Sample bool
}

// Validate checks the decoding knobs are within the ranges models accept
func (r Request) Validate() error {
	switch {
	case r.MaxNewTokens <= 0:
		return fmt.Errorf("max new tokens must be positive, got %d", r.MaxNewTokens)
	case r.NumBeams < 1:
		return fmt.Errorf("beam count must be at least 1, got %d", r.NumBeams)
	case r.Temperature <= 0:
		return fmt.Errorf("temperature must be positive, got %v", r.Temperature)
	case r.RepetitionPenalty < 1.0:
		return fmt.Errorf("repetition penalty must be at least 1.0, got %v", r.RepetitionPenalty)
	}
	return nil
}

type modePreset struct {
	instruction       string
	numBeams          int
	tokenScale        float64
	repetitionPenalty float64
}

type lengthPreset struct {
	maxWords  int // 0 means no word budget
	maxTokens int
	note      string
}

var modePresets = map[Mode]modePreset{
	ModeSimple: {
		instruction:       "Write a short, plain caption for this image.",
		numBeams:          1,
		tokenScale:        1.0,
		repetitionPenalty: 1.0,
	},
	ModeDescriptive: {
		instruction:       "Describe this image in detail, covering the main subject, the setting, the composition and the lighting.",
		numBeams:          3,
		tokenScale:        1.5,
		repetitionPenalty: 1.1,
	},
	ModeDetailedAppearance: {
		instruction: "Describe only the physical appearance of the main subject: build, face, hair, clothing, colors and textures. " +
			"Do not describe actions, emotions, or any story or narrative.",
		numBeams:          3,
		tokenScale:        1.5,
		repetitionPenalty: 1.2,
	},
}

// ShortWordLimit is the word budget enforced on Short captions
const ShortWordLimit = 10

var lengthPresets = map[Length]lengthPreset{
	LengthShort: {
		maxWords:  ShortWordLimit,
		maxTokens: 20,
		note:      fmt.Sprintf("Use at most %d words.", ShortWordLimit),
	},
	LengthMedium: {
		maxTokens: 50,
	},
	LengthLong: {
		maxTokens: 120,
		note:      "Be thorough and include fine details.",
	},
}

// Compose derives the model request from the options. The mode preset is
// applied first and the length tier then extends it. The trigger token never
// reaches the model.
func Compose(opts GenerationOptions) Request {
	mode, ok := modePresets[opts.Mode]
	if !ok {
		mode = modePresets[ModeSimple]
	}
	length, ok := lengthPresets[opts.Length]
	if !ok {
		length = lengthPresets[LengthMedium]
	}

	prompt := mode.instruction
	if length.note != "" {
		prompt = strings.Join([]string{prompt, length.note}, " ")
	}

	return Request{
		Prompt:            prompt,
		MaxNewTokens:      int(math.Round(float64(length.maxTokens) * mode.tokenScale)),
		NumBeams:          mode.numBeams,
		Temperature:       1.0,
		RepetitionPenalty: mode.repetitionPenalty,
	}
}

// WordBudget returns the word limit for a length tier, 0 when unbounded
func WordBudget(l Length) int {
	return lengthPresets[l].maxWords
}
