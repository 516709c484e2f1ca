package openaiLLM

import (
	"errors"
	"sync"

	"context"

	"github.com/avaldes/ragdocs/internal/config"
	"github.com/avaldes/ragdocs/internal/rag/llm"
	"github.com/avaldes/ragdocs/internal/rag/prompt"
	"github.com/avaldes/ragdocs/pkg/logx"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

type llmClient struct {
	client    openai.Client
	modelName string
}

var logger *logx.Logger
var openaiClient *llmClient
var once sync.Once

func GetOpenAIClient(modelName string, apikey string) llm.Provider {
	once.Do(func() {
		logger = logx.NewLogger("llm_openai")
		if apikey == "" {
			logger.Error("Missing OpenAI API key")
			return
		}
		openaiClient = &llmClient{
			client:    openai.NewClient(option.WithAPIKey(apikey)),
			modelName: modelName,
		}
		logger.Info("OpenAI client created", "model", modelName)
	})

	if openaiClient == nil {
		return nil
	}
	return &llmClient{client: openaiClient.client, modelName: openaiClient.modelName}
}

func (c *llmClient) Generate(ctx context.Context, userQuery string, matches []string, messageHistory []string) (string, error) {
	log := logger.With("traceId", ctx.Value(config.TRACE_ID_KEY))

	userPrompt := prompt.BuildUserPrompt(userQuery, matches, messageHistory)

	result, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.modelName),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(prompt.System()),
			openai.UserMessage(userPrompt),
		},
		Temperature:         openai.Float(float64(config.Temperature())),
		MaxCompletionTokens: openai.Int(int64(config.MaxTokens())),
	})
	if err != nil {
		log.Error("OpenAI generation failed", "error", err)
		return "", err
	}
	if len(result.Choices) == 0 {
		return "", errors.New("no completion choices returned")
	}
	return result.Choices[0].Message.Content, nil
}
