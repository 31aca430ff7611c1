package fuzzing

import (
	"sync"

	"github.com/crytic/tokenfuzz/fuzzing/calls"
	"github.com/crytic/tokenfuzz/fuzzing/valuegeneration"
	"github.com/crytic/tokenfuzz/handler"
	"github.com/crytic/tokenfuzz/utils/randomutils"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
)

// CallSequenceGeneratorConfig defines the parameters for a CallSequenceGenerator.
type CallSequenceGeneratorConfig struct {
	// ActionWeights describes the relative likelihood of each action kind being generated.
	ActionWeights map[handler.ActionKind]uint64

	// ValueGenerator generates the raw arguments of every call.
	ValueGenerator valuegeneration.ValueGenerator
}

// CallSequenceGenerator generates call sequences iteratively per element, for use in fuzzing campaigns.
type CallSequenceGenerator struct {
	// config describes the parameters used to generate calls.
	config *CallSequenceGeneratorConfig

	// actionChooser selects the action kind of every new call.
	actionChooser *randomutils.WeightedRandomChooser[handler.ActionKind]

	// baseSequence describes the call sequence being generated.
	baseSequence calls.CallSequence
	// index describes the index of the next element GenerateElement returns.
	index int
}

// NewCallSequenceGenerator creates a CallSequenceGenerator to generate call sequences for use in fuzzing campaigns.
// Returns an error if no action kind has a non-zero weight.
func NewCallSequenceGenerator(config *CallSequenceGeneratorConfig) (*CallSequenceGenerator, error) {
	actionChooser := randomutils.NewWeightedRandomChooserWithRand[handler.ActionKind](config.ValueGenerator.RandomProvider(), &sync.Mutex{})

	// Choices are added in a fixed order so the same seed generates the same actions.
	var totalWeight uint64
	for _, kind := range handler.ActionKinds {
		weight := config.ActionWeights[kind]
		totalWeight += weight
		if err := actionChooser.AddChoices(randomutils.NewWeightedRandomChoice(kind, weight)); err != nil {
			return nil, err
		}
	}
	if totalWeight == 0 {
		return nil, errors.New("call sequence generator requires at least one action with a non-zero weight")
	}

	return &CallSequenceGenerator{
		config:        config,
		actionChooser: actionChooser,
	}, nil
}

// NewSequence prepares the CallSequenceGenerator so that GenerateElement can be called to obtain each element of the
// call sequence, as specified by the provided length.
func (g *CallSequenceGenerator) NewSequence(length int) {
	g.baseSequence = make(calls.CallSequence, length)
	g.index = 0
}

// GenerateElement obtains the next element for our call sequence requested by NewSequence. If there are no elements
// left to return, this method returns an error.
func (g *CallSequenceGenerator) GenerateElement() (*calls.CallSequenceElement, error) {
	if g.index >= len(g.baseSequence) {
		return nil, errors.New("call sequence element could not be generated as there are no calls to make")
	}

	element, err := g.generateNewElement()
	if err != nil {
		return nil, err
	}

	// Update our base sequence, advance our position, and return the processed element from this round.
	g.baseSequence[g.index] = element
	g.index++
	return element, nil
}

// generateNewElement generates a new call with a weighted random action kind. Every argument but the last is a
// selection seed; the last argument is the raw amount.
func (g *CallSequenceGenerator) generateNewElement() (*calls.CallSequenceElement, error) {
	kind, err := g.actionChooser.Choose()
	if err != nil {
		return nil, err
	}

	args := make([]*uint256.Int, kind.ArgCount())
	for i := 0; i < len(args)-1; i++ {
		args[i] = g.config.ValueGenerator.GenerateSeed()
	}
	args[len(args)-1] = g.config.ValueGenerator.GenerateAmount()

	call, err := calls.NewCallMessage(*kind, args...)
	if err != nil {
		return nil, err
	}
	return calls.NewCallSequenceElement(call), nil
}
