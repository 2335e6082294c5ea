package workout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// movementGenerator describes new movements with OpenAI structured outputs.
type movementGenerator struct {
	client       openai.Client
	muscleGroups []string
}

// newMovementGenerator creates a generator that only accepts the given muscle groups.
func newMovementGenerator(apiKey string, muscleGroups []string, opts ...option.RequestOption) *movementGenerator {
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &movementGenerator{
		client:       openai.NewClient(opts...),
		muscleGroups: muscleGroups,
	}
}

const movementPrompt = `Describe the strength training movement "%s".
Pick the equipment it requires, its category (full_body, upper or lower) and the primary and secondary muscle groups
it trains. Write a markdown description with exactly this structure:

## Instructions
[3-5 numbered steps focusing on proper form]

## Common Mistakes
[3-4 bullet points]

Use simple language a beginner understands and mention safety where relevant. Keep it around 150 words.`

// Generate asks the model for a movement called name and validates the answer.
func (g *movementGenerator) Generate(ctx context.Context, name string) (Movement, error) {
	if name == "" {
		return Movement{}, errors.New("movement name cannot be empty")
	}

	completion, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{ //nolint:exhaustruct // defaults.
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(fmt.Sprintf(movementPrompt, name)),
		},
		Model: openai.ChatModelGPT4o,
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{ //nolint:exhaustruct // one variant.
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{ //nolint:exhaustruct // type has a default.
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:        "movement",
					Description: openai.String("A strength training movement"),
					Schema:      movementJSONSchema{muscleGroups: g.muscleGroups},
					Strict:      openai.Bool(true),
				},
			},
		},
	})
	if err != nil {
		return Movement{}, fmt.Errorf("chat completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		return Movement{}, errors.New("chat completion returned no choices")
	}

	var m Movement
	if err = json.Unmarshal([]byte(completion.Choices[0].Message.Content), &m); err != nil {
		return Movement{}, fmt.Errorf("parse movement response: %w", err)
	}
	if err = g.validate(m); err != nil {
		return Movement{}, err
	}
	m.Name = name
	return m, nil
}

func (g *movementGenerator) validate(m Movement) error {
	if m.DescriptionMarkdown == "" {
		return errors.New("generated movement has no description")
	}
	if !m.Equipment.Valid() {
		return fmt.Errorf("generated movement has invalid equipment %q", m.Equipment)
	}
	switch m.Category {
	case CategoryFullBody, CategoryUpper, CategoryLower:
	default:
		return fmt.Errorf("generated movement has invalid category %q", m.Category)
	}
	if len(m.PrimaryMuscleGroups) == 0 {
		return errors.New("generated movement has no primary muscle groups")
	}
	for _, mg := range slices.Concat(m.PrimaryMuscleGroups, m.SecondaryMuscleGroups) {
		if !slices.Contains(g.muscleGroups, mg) {
			return fmt.Errorf("invalid muscle group %q", mg)
		}
	}
	return nil
}

// minimalMovement is stored when generation is unavailable or fails so that the trainee can still use the name.
func minimalMovement(name string) Movement {
	return Movement{
		ID:                    0,
		Name:                  name,
		Equipment:             EquipmentBodyweight,
		Category:              CategoryFullBody,
		DescriptionMarkdown:   fmt.Sprintf("## %s\n\nNo description available yet.", name),
		PrimaryMuscleGroups:   []string{},
		SecondaryMuscleGroups: []string{},
	}
}
