package answer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"pracame/internal/model/knowledge"
)

// Generator invokes the generation model with an assembled prompt.
// It wraps a compiled eino chain: chat template followed by the chat
// model, built once at startup.
type Generator struct {
	chain compose.Runnable[map[string]any, *schema.Message]
}

// NewGenerator compiles the prompt-plus-model chain.
func NewGenerator(ctx context.Context, chatModel model.ChatModel) (*Generator, error) {
	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{instructions}"),
		schema.UserMessage("Knowledge base excerpts:\n{context}\n\nConversation so far:\n{history}\n\nCurrent question:\n{question}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("compile answer chain: %w", err)
	}

	return &Generator{chain: runnable}, nil
}

// Generate produces the answer text for the request. When onDelta is
// non-nil the model is streamed and each text increment is forwarded
// to it before the concatenated result is returned.
func (g *Generator) Generate(ctx context.Context, req knowledge.PromptRequest, onDelta func(string)) (string, error) {
	input := chainInput(req)

	if onDelta == nil {
		response, err := g.chain.Invoke(ctx, input)
		if err != nil {
			return "", fmt.Errorf("run answer chain: %w", err)
		}
		log.Printf("[answer] generated response, length=%d", len(response.Content))
		return response.Content, nil
	}

	stream, err := g.chain.Stream(ctx, input)
	if err != nil {
		return "", fmt.Errorf("stream answer chain: %w", err)
	}
	defer stream.Close()

	chunks := make([]*schema.Message, 0, 8)
	for {
		chunk, recvErr := stream.Recv()
		if errors.Is(recvErr, io.EOF) {
			break
		}
		if recvErr != nil {
			return "", fmt.Errorf("receive answer chunk: %w", recvErr)
		}
		if chunk == nil {
			continue
		}

		chunks = append(chunks, chunk)
		if chunk.Content != "" {
			onDelta(chunk.Content)
		}
	}

	response, err := schema.ConcatMessages(chunks)
	if err != nil {
		return "", fmt.Errorf("concat answer chunks: %w", err)
	}

	log.Printf("[answer] streamed response, length=%d", len(response.Content))
	return response.Content, nil
}

func chainInput(req knowledge.PromptRequest) map[string]any {
	return map[string]any{
		"instructions": req.Instructions,
		"context":      req.Context,
		"history":      req.History,
		"question":     req.Question,
	}
}
