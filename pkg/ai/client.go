package ai

import (
	"context"
	"log"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"julianmorley.ca/con-plar/purchases/pkg/global"
)

// CompletionFunc sends one system + user message pair and returns the reply.
type CompletionFunc func(ctx context.Context, systemMessage, userMessage string) (string, error)

// Client generates narrative reports. A nil completion means AI is disabled.
type Client struct {
	complete CompletionFunc
}

// NewClientFromEnv builds an Azure OpenAI backed client. Missing credentials
// return a disabled client.
func NewClientFromEnv() *Client {
	endpoint := global.GetEnvOrDefault("AZURE_OPENAI_ENDPOINT", "")
	apiKey := global.GetEnvOrDefault("AZURE_OPENAI_API_KEY", "")

	if endpoint == "" || apiKey == "" {
		log.Println("AI service disabled - Azure OpenAI credentials not provided")
		return &Client{}
	}

	openaiClient := openai.NewClient(
		option.WithBaseURL(endpoint),
		option.WithAPIKey(apiKey),
	)
	deployment := global.GetEnvOrDefault("AZURE_OPENAI_DEPLOYMENT_NAME", "gpt-35-turbo")

	log.Println("AI service initialized with Azure OpenAI")
	return &Client{complete: chatCompletion(&openaiClient, deployment)}
}

func NewClient(complete CompletionFunc) *Client {
	return &Client{complete: complete}
}

func (c *Client) IsEnabled() bool {
	return c != nil && c.complete != nil
}

func chatCompletion(client *openai.Client, deployment string) CompletionFunc {
	return func(ctx context.Context, systemMessage, userMessage string) (string, error) {
		resp, err := client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
			Model: openai.ChatModel(deployment),
			Messages: []openai.ChatCompletionMessageParamUnion{
				{
					OfSystem: &openai.ChatCompletionSystemMessageParam{
						Content: openai.ChatCompletionSystemMessageParamContentUnion{
							OfString: openai.String(systemMessage),
						},
					},
				},
				{
					OfUser: &openai.ChatCompletionUserMessageParam{
						Content: openai.ChatCompletionUserMessageParamContentUnion{
							OfString: openai.String(userMessage),
						},
					},
				},
			},
			MaxTokens:   openai.Int(800),
			Temperature: openai.Float(0.5),
		})
		if err != nil {
			log.Printf("AI API Error: %v", err)
			return "", &AIError{Message: "Failed to generate AI response", Cause: err}
		}
		if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
			return "", &AIError{Message: "AI returned empty response"}
		}
		return resp.Choices[0].Message.Content, nil
	}
}

// AIError represents an AI service error
type AIError struct {
	Message string
	Cause   error
}

func (e *AIError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *AIError) Unwrap() error {
	return e.Cause
}
