package executor

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/bedrock"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/aws/aws-sdk-go-v2/config"

	"github.com/ShayCichocki/surge/pkg/models"
)

// Defaults for the Anthropic executor.
const (
	DefaultModel        = anthropic.ModelClaudeSonnet4_20250514
	DefaultMaxTokens    = 4096
	DefaultSystemPrompt = "You are a worker in a batch pipeline. Complete the task described by the user and reply with the result only."
)

// AnthropicConfig contains configuration for the Anthropic executor.
type AnthropicConfig struct {
	// Model is the Claude model to use.
	Model string
	// APIKey is the Anthropic API key. If empty, uses ANTHROPIC_API_KEY env var.
	APIKey string
	// MaxTokens bounds each response.
	MaxTokens int64
	// SystemPrompt is sent with every task.
	SystemPrompt string
	// UseAWSBedrock indicates whether to use AWS Bedrock instead of direct API.
	UseAWSBedrock bool
	// AWSRegion is the AWS region for Bedrock (e.g., "us-west-2").
	AWSRegion string
	// AWSProfile is the optional AWS profile name to use.
	AWSProfile string
}

// messageClient is the slice of the SDK the executor calls.
type messageClient interface {
	New(ctx context.Context, body anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

// Anthropic sends each task description to Claude as a prompt.
type Anthropic struct {
	messages  messageClient
	model     anthropic.Model
	maxTokens int64
	system    string
	tracker   *TokenTracker
}

// NewAnthropic creates an executor backed by the Anthropic API or AWS Bedrock.
func NewAnthropic(cfg AnthropicConfig) (*Anthropic, error) {
	var opts []option.RequestOption

	if cfg.UseAWSBedrock {
		ctx := context.Background()

		var loadOpts []func(*config.LoadOptions) error
		if cfg.AWSRegion != "" {
			loadOpts = append(loadOpts, config.WithRegion(cfg.AWSRegion))
		}
		if cfg.AWSProfile != "" {
			loadOpts = append(loadOpts, config.WithSharedConfigProfile(cfg.AWSProfile))
		}

		opts = append(opts, bedrock.WithLoadDefaultConfig(ctx, loadOpts...))
	} else {
		apiKey := cfg.APIKey
		if apiKey == "" {
			apiKey = os.Getenv("ANTHROPIC_API_KEY")
		}
		if apiKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY environment variable is not set")
		}
		opts = append(opts, option.WithAPIKey(apiKey))
	}

	client := anthropic.NewClient(opts...)

	model := anthropic.Model(cfg.Model)
	if model == "" {
		model = DefaultModel
	}
	if cfg.UseAWSBedrock {
		model = bedrockModel(model)
	}

	return newAnthropic(&client.Messages, model, cfg), nil
}

func newAnthropic(messages messageClient, model anthropic.Model, cfg AnthropicConfig) *Anthropic {
	a := &Anthropic{
		messages:  messages,
		model:     model,
		maxTokens: cfg.MaxTokens,
		system:    cfg.SystemPrompt,
		tracker:   NewTokenTracker(),
	}
	if a.maxTokens <= 0 {
		a.maxTokens = DefaultMaxTokens
	}
	if a.system == "" {
		a.system = DefaultSystemPrompt
	}
	return a
}

// bedrockModel converts standard model names to Bedrock cross-region
// inference profiles: us.anthropic.{model}-v1:0
func bedrockModel(model anthropic.Model) anthropic.Model {
	known := map[anthropic.Model]string{
		anthropic.ModelClaudeSonnet4_20250514:   "us.anthropic.claude-sonnet-4-20250514-v1:0",
		anthropic.ModelClaudeSonnet4_5_20250929: "us.anthropic.claude-sonnet-4-5-20250929-v1:0",
		anthropic.ModelClaudeHaiku4_5_20251001:  "us.anthropic.claude-haiku-4-5-20251001-v1:0",
		anthropic.ModelClaudeOpus4_1_20250805:   "us.anthropic.claude-opus-4-1-20250805-v1:0",
		anthropic.ModelClaude3_5Haiku20241022:   "us.anthropic.claude-3-5-haiku-20241022-v1:0",
	}
	if m, ok := known[model]; ok {
		return anthropic.Model(m)
	}
	return model
}

// Model returns the configured model name.
func (a *Anthropic) Model() anthropic.Model {
	return a.model
}

// Tracker returns the token tracker for this executor.
func (a *Anthropic) Tracker() *TokenTracker {
	return a.tracker
}

// Execute sends the task as a single prompt and returns the text reply.
func (a *Anthropic) Execute(ctx context.Context, task models.TaskNode) (*Result, error) {
	prompt := task.Description
	if strings.TrimSpace(prompt) == "" {
		return nil, fmt.Errorf("task %s: empty description", task.ID)
	}

	start := time.Now()
	resp, err := a.messages.New(ctx, anthropic.MessageNewParams{
		Model:     a.model,
		MaxTokens: a.maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: a.system},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("task %s: %w", task.ID, err)
	}

	a.tracker.Add(resp.Usage.InputTokens, resp.Usage.OutputTokens)

	var b strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}

	if resp.StopReason == anthropic.StopReasonMaxTokens {
		return nil, fmt.Errorf("task %s: response truncated at %d tokens", task.ID, a.maxTokens)
	}

	return &Result{Output: b.String(), Duration: time.Since(start)}, nil
}

// TokenTracker tracks cumulative token usage across API calls.
type TokenTracker struct {
	mu        sync.Mutex
	inputTok  int64
	outputTok int64
	calls     int
}

// NewTokenTracker creates a new token tracker.
func NewTokenTracker() *TokenTracker {
	return &TokenTracker{}
}

// Add records token usage from an API call.
func (t *TokenTracker) Add(input, output int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.inputTok += input
	t.outputTok += output
	t.calls++
}

// Total returns the total input and output tokens tracked.
func (t *TokenTracker) Total() (input, output int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.inputTok, t.outputTok
}

// Calls returns the number of API calls made.
func (t *TokenTracker) Calls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.calls
}
