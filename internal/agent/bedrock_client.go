package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
)

// DefaultSystemPrompt frames the model as an SMS assistant.
const DefaultSystemPrompt = "You are a personal assistant replying over SMS. Answer in plain text, " +
	"no markdown, and keep replies under 320 characters."

const anonymousSenderNote = "The sender is not linked to an account; do not assume access to their tasks or calendar."

type converseAPI interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// BedrockClient answers with an AWS Bedrock model through the Converse API.
type BedrockClient struct {
	api          converseAPI
	modelID      string
	systemPrompt string
	maxTokens    int32
}

// NewBedrockClient wraps a bedrockruntime client.
func NewBedrockClient(api converseAPI, modelID, systemPrompt string) *BedrockClient {
	if api == nil {
		panic("agent: bedrock converse client cannot be nil")
	}
	if strings.TrimSpace(systemPrompt) == "" {
		systemPrompt = DefaultSystemPrompt
	}
	return &BedrockClient{
		api:          api,
		modelID:      strings.TrimSpace(modelID),
		systemPrompt: systemPrompt,
		maxTokens:    300,
	}
}

// Complete implements Client.
func (c *BedrockClient) Complete(ctx context.Context, userID int64, text string) (string, error) {
	if c.modelID == "" {
		return "", errors.New("agent: bedrock model id is required")
	}
	system := []brtypes.SystemContentBlock{
		&brtypes.SystemContentBlockMemberText{Value: c.systemPrompt},
	}
	if userID == AnonymousUserID {
		system = append(system, &brtypes.SystemContentBlockMemberText{Value: anonymousSenderNote})
	}

	out, err := c.api.Converse(ctx, &bedrockruntime.ConverseInput{
		ModelId: aws.String(c.modelID),
		System:  system,
		Messages: []brtypes.Message{{
			Role:    brtypes.ConversationRoleUser,
			Content: []brtypes.ContentBlock{&brtypes.ContentBlockMemberText{Value: text}},
		}},
		InferenceConfig: &brtypes.InferenceConfiguration{MaxTokens: aws.Int32(c.maxTokens)},
	})
	if err != nil {
		return "", fmt.Errorf("agent: bedrock converse: %w", err)
	}
	return extractText(out)
}

func extractText(out *bedrockruntime.ConverseOutput) (string, error) {
	if out == nil {
		return "", errors.New("agent: bedrock response is nil")
	}
	msg, ok := out.Output.(*brtypes.ConverseOutputMemberMessage)
	if !ok {
		return "", errors.New("agent: bedrock response did not include a message")
	}
	var b strings.Builder
	for _, block := range msg.Value.Content {
		if t, ok := block.(*brtypes.ContentBlockMemberText); ok {
			b.WriteString(t.Value)
		}
	}
	return strings.TrimSpace(b.String()), nil
}
