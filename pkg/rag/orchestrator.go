package rag

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"paperchat-be/internal/config"
	"paperchat-be/internal/entity"
	"paperchat-be/internal/pkg/logger"
	"paperchat-be/internal/registry"
	"paperchat-be/internal/retrieval"
	"paperchat-be/pkg/llm"
	"paperchat-be/pkg/rag/prompt"
	"paperchat-be/pkg/rag/stream"
)

// apology closes out a turn whose provider died mid-stream. The turn still
// ends with done:true so the client never hangs.
const apology = "I'm sorry, I wasn't able to finish that response. Please try again."

// Fragment is one unit of a streamed chat response.
type Fragment struct {
	Content string   `json:"content"`
	Related []string `json:"related,omitempty"`
	Done    bool     `json:"done"`
}

// FragmentFunc receives fragments in order. Returning an error means the
// caller is gone and the stream should stop.
type FragmentFunc func(Fragment) error

// ContextRetriever supplies grounded context for a question.
type ContextRetriever interface {
	Retrieve(ctx context.Context, sessionId uuid.UUID, query string, k int) ([]retrieval.Result, error)
}

// Orchestrator runs one chat turn end to end: retrieve context, build the
// prompt, stream the model's answer into the session transcript and out to
// the caller.
type Orchestrator struct {
	reg          *registry.Registry
	retriever    ContextRetriever
	provider     llm.Provider
	logger       logger.ILogger
	cfg          config.ChatConfig
	retrievalCfg config.RetrievalConfig
}

func NewOrchestrator(
	reg *registry.Registry,
	retriever ContextRetriever,
	provider llm.Provider,
	log logger.ILogger,
	cfg config.ChatConfig,
	retrievalCfg config.RetrievalConfig,
) *Orchestrator {
	return &Orchestrator{
		reg:          reg,
		retriever:    retriever,
		provider:     provider,
		logger:       log,
		cfg:          cfg,
		retrievalCfg: retrievalCfg,
	}
}

// Chat executes one turn. The user message is recorded before anything can
// fail, and the assistant message is always finalized, so the transcript
// stays consistent whatever happens to the provider or the caller.
func (o *Orchestrator) Chat(ctx context.Context, sessionId uuid.UUID, message string, emit FragmentFunc) error {
	h, err := o.reg.Get(sessionId)
	if err != nil {
		return err
	}
	o.reg.Touch(sessionId)

	prior := h.Messages()

	h.AppendMessage(&entity.ChatMessage{
		Id:        uuid.New(),
		Role:      entity.ChatMessageRoleUser,
		Content:   message,
		Done:      true,
		CreatedAt: time.Now(),
	})

	turn := NewTurn()
	if err := turn.To(TurnAwaitingContext); err != nil {
		return err
	}

	results := o.retrieveContext(ctx, sessionId, message)
	history := o.buildHistory(prior, results, message)

	assistant := &entity.ChatMessage{
		Id:        uuid.New(),
		Role:      entity.ChatMessageRoleAssistant,
		CreatedAt: time.Now(),
	}
	h.AppendMessage(assistant)

	if err := turn.To(TurnStreaming); err != nil {
		return err
	}

	streamErr := o.streamAnswer(ctx, h, assistant.Id, history, emit)

	if streamErr != nil && ctx.Err() == nil {
		// Provider failure or completion timeout, caller still listening.
		h.AppendContent(assistant.Id, apology)
		_ = emit(Fragment{Content: apology})
		_ = turn.To(TurnFailed)
		o.logger.Error("Chat", "Turn failed mid-stream", map[string]interface{}{
			"session_id": sessionId,
			"error":      streamErr.Error(),
		})
	} else if streamErr == nil {
		_ = turn.To(TurnDone)
	} else {
		// Caller disconnected; nothing left to tell them.
		_ = turn.To(TurnFailed)
	}

	h.FinalizeMessage(assistant.Id)

	if ctx.Err() == nil {
		_ = emit(Fragment{Done: true})
	}
	return nil
}

// retrieveContext runs retrieval under its own deadline. Any failure,
// including the deadline, degrades to an ungrounded turn rather than an
// error surfaced to the caller.
func (o *Orchestrator) retrieveContext(ctx context.Context, sessionId uuid.UUID, message string) []retrieval.Result {
	rctx, cancel := context.WithTimeout(ctx, o.retrievalCfg.Timeout)
	defer cancel()

	results, err := o.retriever.Retrieve(rctx, sessionId, message, 0)
	if err != nil {
		o.logger.Warn("Chat", "Retrieval degraded to empty context", map[string]interface{}{
			"session_id": sessionId,
			"error":      err.Error(),
		})
		return nil
	}
	return results
}

// buildHistory maps the bounded tail of finalized prior messages plus the
// grounded prompt into the provider's message format.
func (o *Orchestrator) buildHistory(prior []entity.ChatMessage, results []retrieval.Result, message string) []llm.Message {
	var finalized []entity.ChatMessage
	for _, m := range prior {
		if m.Done && m.Content != "" {
			finalized = append(finalized, m)
		}
	}
	if o.cfg.HistoryWindow > 0 && len(finalized) > o.cfg.HistoryWindow {
		finalized = finalized[len(finalized)-o.cfg.HistoryWindow:]
	}

	history := make([]llm.Message, 0, len(finalized)+1)
	for _, m := range finalized {
		history = append(history, llm.Message{Role: m.Role, Content: m.Content})
	}
	history = append(history, llm.Message{
		Role:    entity.ChatMessageRoleUser,
		Content: prompt.NewContextualBuilder(results, message).Build(),
	})
	return history
}

func (o *Orchestrator) streamAnswer(ctx context.Context, h *registry.Handle, msgId uuid.UUID, history []llm.Message, emit FragmentFunc) error {
	cctx, cancel := context.WithTimeout(ctx, o.cfg.CompletionTimeout)
	defer cancel()

	parser := stream.NewParser()

	err := o.provider.ChatStream(cctx, history, func(token string) error {
		content, payloads := parser.Feed(token)
		if content != "" {
			h.AppendContent(msgId, content)
			if err := emit(Fragment{Content: content}); err != nil {
				return err
			}
		}
		for _, payload := range payloads {
			tags, decodeErr := stream.DecodeTags(payload)
			if decodeErr != nil {
				o.logger.Warn("Chat", "Discarding malformed inline payload", map[string]interface{}{
					"error": decodeErr.Error(),
				})
				continue
			}
			if err := emit(Fragment{Related: tags}); err != nil {
				return err
			}
		}
		return nil
	})

	if tail := parser.Flush(); tail != "" && err == nil {
		h.AppendContent(msgId, tail)
		if emitErr := emit(Fragment{Content: tail}); emitErr != nil {
			err = emitErr
		}
	}

	if err != nil && errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		o.logger.Warn("Chat", "Completion deadline exceeded", map[string]interface{}{
			"timeout": o.cfg.CompletionTimeout.String(),
		})
	}
	return err
}
