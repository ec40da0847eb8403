package llm

import (
	"context"
	"fmt"
	"io"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/packages/ssestream"
	"github.com/openai/openai-go/v3/shared"

	"github.com/caravel-hq/caravel/config"
)

// openAIProvider implements Provider using the official OpenAI Go SDK.
// Any OpenAI-compatible endpoint works via the profile's base URL.
type openAIProvider struct {
	client openai.Client
}

// newOpenAIProvider builds the SDK client from a resolved profile. An
// empty API key is passed through so the SDK's own OPENAI_API_KEY
// fallback still applies.
func newOpenAIProvider(p config.Profile) *openAIProvider {
	var opts []option.RequestOption
	if p.APIKey != "" {
		opts = append(opts, option.WithAPIKey(p.APIKey))
	}
	if p.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(p.BaseURL))
	}
	if p.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(p.Timeout))
	}
	if p.APIType == "azure" && p.APIVersion != "" {
		opts = append(opts, option.WithQuery("api-version", p.APIVersion))
	}
	return &openAIProvider{client: openai.NewClient(opts...)}
}

// Complete issues a buffered chat completion and returns the whole
// response. An empty response body is a validation error, not retried.
func (p *openAIProvider) Complete(ctx context.Context, req Request) (*Response, error) {
	completion, err := p.client.Chat.Completions.New(ctx, chatParams(req))
	if err != nil {
		return nil, fmt.Errorf("openai chat completion: %w", err)
	}
	return fromChatCompletion(completion)
}

// Stream issues the call in streaming mode and returns the chunk
// sequence. Usage reporting on the terminal chunk is requested so the
// cost path can observe it.
func (p *openAIProvider) Stream(ctx context.Context, req Request) (Stream, error) {
	params := chatParams(req)
	params.StreamOptions = openai.ChatCompletionStreamOptionsParam{
		IncludeUsage: openai.Bool(true),
	}
	return &openAIStream{inner: p.client.Chat.Completions.NewStreaming(ctx, params)}, nil
}

// openAIStream adapts the SDK's SSE stream to the Stream interface.
type openAIStream struct {
	inner *ssestream.Stream[openai.ChatCompletionChunk]
}

func (s *openAIStream) Recv() (StreamChunk, error) {
	if !s.inner.Next() {
		if err := s.inner.Err(); err != nil {
			return StreamChunk{}, fmt.Errorf("openai stream: %w", err)
		}
		return StreamChunk{}, io.EOF
	}

	chunk := s.inner.Current()
	out := StreamChunk{}
	if len(chunk.Choices) > 0 {
		out.Delta = chunk.Choices[0].Delta.Content
	}
	if chunk.Usage.TotalTokens > 0 {
		out.Usage = &Usage{
			PromptTokens:     chunk.Usage.PromptTokens,
			CompletionTokens: chunk.Usage.CompletionTokens,
			TotalTokens:      chunk.Usage.TotalTokens,
		}
	}
	return out, nil
}

func (s *openAIStream) Close() error {
	return s.inner.Close()
}

// chatParams converts a Request to the SDK parameter struct.
func chatParams(req Request) openai.ChatCompletionNewParams {
	params := openai.ChatCompletionNewParams{
		Model:       shared.ChatModel(req.Model),
		Messages:    toChatMessages(req.Messages),
		MaxTokens:   openai.Int(int64(req.MaxTokens)),
		Temperature: openai.Float(req.Temperature),
		TopP:        openai.Float(req.TopP),
	}
	if len(req.Tools) > 0 {
		params.Tools = toChatTools(req.Tools)
	}
	if req.ToolChoice != "" {
		params.ToolChoice = openai.ChatCompletionToolChoiceOptionUnionParam{
			OfAuto: openai.String(string(req.ToolChoice)),
		}
	}
	return params
}

// toChatMessages converts canonical messages to the SDK union type.
func toChatMessages(msgs []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case RoleUser:
			if len(m.Parts) > 0 {
				out = append(out, openai.UserMessage(toContentParts(m.Parts)))
			} else {
				out = append(out, openai.UserMessage(m.Content))
			}
		case RoleAssistant:
			asst := &openai.ChatCompletionAssistantMessageParam{
				Content: openai.ChatCompletionAssistantMessageParamContentUnion{
					OfString: openai.String(m.Content),
				},
			}
			for _, tc := range m.ToolCalls {
				asst.ToolCalls = append(asst.ToolCalls, openai.ChatCompletionMessageToolCallUnionParam{
					OfFunction: &openai.ChatCompletionMessageFunctionToolCallParam{
						ID: tc.ID,
						Function: openai.ChatCompletionMessageFunctionToolCallFunctionParam{
							Name:      tc.Name,
							Arguments: tc.Arguments,
						},
					},
				})
			}
			out = append(out, openai.ChatCompletionMessageParamUnion{OfAssistant: asst})
		case RoleTool:
			out = append(out, openai.ToolMessage(m.Content, m.ToolCallID))
		}
	}
	return out
}

// toContentParts converts multimodal parts (text and image data URIs).
func toContentParts(parts []ContentPart) []openai.ChatCompletionContentPartUnionParam {
	out := make([]openai.ChatCompletionContentPartUnionParam, 0, len(parts))
	for _, p := range parts {
		switch p.Type {
		case "text":
			out = append(out, openai.TextContentPart(p.Text))
		case "image_url":
			out = append(out, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
				URL: p.ImageURL,
			}))
		}
	}
	return out
}

// toChatTools converts tool declarations to SDK function tools.
func toChatTools(defs []ToolDef) []openai.ChatCompletionToolUnionParam {
	out := make([]openai.ChatCompletionToolUnionParam, len(defs))
	for i, d := range defs {
		out[i] = openai.ChatCompletionToolUnionParam{
			OfFunction: &openai.ChatCompletionFunctionToolParam{
				Function: shared.FunctionDefinitionParam{
					Name:        d.Name,
					Description: openai.String(d.Description),
					Parameters:  shared.FunctionParameters(d.Parameters),
				},
			},
		}
	}
	return out
}

// fromChatCompletion converts the SDK response to the canonical shape.
func fromChatCompletion(resp *openai.ChatCompletion) (*Response, error) {
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: empty response from provider", ErrValidation)
	}

	msg := resp.Choices[0].Message
	out := &Response{
		Model: resp.Model,
		Message: Message{
			Role:    RoleAssistant,
			Content: msg.Content,
		},
		Usage: Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}
	for _, tc := range msg.ToolCalls {
		if tc.Type == "function" {
			fn := tc.AsFunction()
			out.Message.ToolCalls = append(out.Message.ToolCalls, ToolCall{
				ID:        fn.ID,
				Name:      fn.Function.Name,
				Arguments: fn.Function.Arguments,
			})
		}
	}
	return out, nil
}
