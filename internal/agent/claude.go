package agent

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/bedrock"
	"github.com/anthropics/anthropic-sdk-go/option"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"

	"github.com/foremanhq/foreman/internal/fault"
	"github.com/foremanhq/foreman/pkg/models"
)

// ClaudeConfig contains configuration for the Claude-backed executor.
type ClaudeConfig struct {
	// Model is the Claude model to use.
	Model anthropic.Model
	// APIKey is the Anthropic API key. If empty, uses ANTHROPIC_API_KEY env var.
	APIKey string
	// UseAWSBedrock indicates whether to use AWS Bedrock instead of the direct API.
	UseAWSBedrock bool
	// AWSRegion is the AWS region for Bedrock (e.g., "us-west-2").
	AWSRegion string
	// AWSProfile is the optional AWS profile name to use.
	AWSProfile string
	// MaxTokens bounds the response size per task. Defaults to 4096.
	MaxTokens int64
}

// ClaudeClient wraps the Anthropic SDK client for task execution.
type ClaudeClient struct {
	inner     anthropic.Client
	model     anthropic.Model
	maxTokens int64
}

// NewClaudeClient creates a Claude client from the given configuration.
func NewClaudeClient(cfg ClaudeConfig) (*ClaudeClient, error) {
	var opts []option.RequestOption

	if cfg.UseAWSBedrock {
		ctx := context.Background()

		var loadOpts []func(*awsconfig.LoadOptions) error
		if cfg.AWSRegion != "" {
			loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.AWSRegion))
		}
		if cfg.AWSProfile != "" {
			loadOpts = append(loadOpts, awsconfig.WithSharedConfigProfile(cfg.AWSProfile))
		}

		opts = append(opts, bedrock.WithLoadDefaultConfig(ctx, loadOpts...))
	} else {
		apiKey := cfg.APIKey
		if apiKey == "" {
			apiKey = os.Getenv("ANTHROPIC_API_KEY")
		}
		if apiKey == "" {
			return nil, fault.New(fault.ConfigInvalid, "ANTHROPIC_API_KEY environment variable is not set")
		}
		opts = append(opts, option.WithAPIKey(apiKey))
	}

	model := cfg.Model
	if model == "" {
		model = anthropic.ModelClaudeSonnet4_20250514
	}

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	return &ClaudeClient{
		inner:     anthropic.NewClient(opts...),
		model:     model,
		maxTokens: maxTokens,
	}, nil
}

// Executor returns a TaskExecutor that sends the task to Claude and
// returns the model output as the task result. The prompt identifies the
// agent role so the same client can back executors for several task types.
func (c *ClaudeClient) Executor(role string) TaskExecutor {
	return func(ctx context.Context, task *models.Task) (*models.TaskResult, error) {
		resp, err := c.inner.Messages.New(ctx, anthropic.MessageNewParams{
			Model:     c.model,
			MaxTokens: c.maxTokens,
			System: []anthropic.TextBlockParam{
				{Text: systemPromptFor(role, task.Type)},
			},
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(anthropic.NewTextBlock(taskPrompt(task))),
			},
		})
		if err != nil {
			return nil, fmt.Errorf("claude call for task %s: %w", task.ID, err)
		}

		var output strings.Builder
		for _, block := range resp.Content {
			if variant, ok := block.AsAny().(anthropic.TextBlock); ok {
				output.WriteString(variant.Text)
			}
		}

		return &models.TaskResult{
			Status: models.ResultSuccess,
			Output: output.String(),
		}, nil
	}
}

// systemPromptFor builds the system prompt for an agent role and task type.
func systemPromptFor(role string, taskType models.TaskType) string {
	return fmt.Sprintf(
		"You are a %s software development agent. You are given one %s task from a shared project plan. "+
			"Produce the requested work product directly, then list any follow-up steps.",
		role, taskType)
}

// taskPrompt renders the task into the user message.
func taskPrompt(task *models.Task) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Task: %s\n", task.Title)
	if task.Description != "" {
		fmt.Fprintf(&b, "\n%s\n", task.Description)
	}
	fmt.Fprintf(&b, "\nPriority: %s", task.Priority)
	if len(task.Tags) > 0 {
		fmt.Fprintf(&b, "\nTags: %s", strings.Join(task.Tags, ", "))
	}
	return b.String()
}
