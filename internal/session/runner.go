package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/oklog/ulid/v2"

	"github.com/author-ai/author/internal/logging"
	"github.com/author-ai/author/internal/relay"
	"github.com/author-ai/author/internal/stream"
	"github.com/author-ai/author/internal/transport"
	"github.com/author-ai/author/pkg/types"
)

const (
	readBufferSize = 4096

	// Connection retry policy. The transport itself is single-attempt; the
	// runner, as its caller, retries the initial connection — never a stream
	// that has already produced bytes.
	connectMaxRetries     = 2
	connectInitialBackoff = 500 * time.Millisecond
	connectMaxBackoff     = 5 * time.Second
)

// RunnerOptions wires a Runner's collaborators and model parameters.
type RunnerOptions struct {
	Client   *transport.Client
	Relay    *relay.Relay
	Registry *Registry
	Store    Store
	Tools    ToolRunner
	Finish   stream.FinishPredicate

	Model       string
	MaxTokens   int
	Temperature float64
}

// Runner drives one model turn end to end: transport → decoder → mapper →
// machine → relay, with the final message appended to the store on
// completion. One turn is one sequential task; concurrency exists only
// across threads.
type Runner struct {
	client   *transport.Client
	relay    *relay.Relay
	registry *Registry
	store    Store
	tools    ToolRunner
	finish   stream.FinishPredicate

	model       string
	maxTokens   int
	temperature float64
}

// NewRunner creates a runner. A nil Tools collaborator defaults to
// NoopToolRunner.
func NewRunner(opts RunnerOptions) *Runner {
	tools := opts.Tools
	if tools == nil {
		tools = NoopToolRunner{}
	}
	return &Runner{
		client:      opts.Client,
		relay:       opts.Relay,
		registry:    opts.Registry,
		store:       opts.Store,
		tools:       tools,
		finish:      opts.Finish,
		model:       opts.Model,
		maxTokens:   opts.MaxTokens,
		temperature: opts.Temperature,
	}
}

// Send persists the user message, registers a session for the thread, and
// starts the turn in its own goroutine. It fails synchronously with
// ErrAlreadyStreaming while the thread has a turn in flight.
func (r *Runner) Send(ctx context.Context, thread *types.Thread, content string) (*Machine, error) {
	turn, err := r.registry.Start(ctx, thread.ID)
	if err != nil {
		return nil, err
	}

	// Persist only after the thread accepted the turn: a rejected send must
	// leave no trace in the history.
	userMsg := &types.Message{
		ID:       ulid.Make().String(),
		ThreadID: thread.ID,
		Role:     "user",
		Content:  content,
		Time:     types.MessageTime{Created: time.Now().UnixMilli()},
	}
	if err := r.store.AppendMessage(ctx, thread.ID, userMsg); err != nil {
		turn.Release(StatusError)
		return nil, fmt.Errorf("failed to save user message: %w", err)
	}

	go r.run(turn, thread)
	return turn.Machine, nil
}

// run executes the turn. It always calls turn.Release exactly once, after
// the transport body is closed, so Registry.Cancel can rely on the reader
// being gone.
func (r *Runner) run(turn *Turn, thread *types.Thread) {
	threadID := thread.ID
	log := logging.With().Str("threadID", threadID).Logger()

	r.publish(turn, relay.StreamStarted, relay.StreamStartedPayload{ThreadID: threadID})

	req, err := r.buildRequest(turn.Ctx, thread)
	if err != nil {
		log.Error().Err(err).Msg("failed to build completion request")
		r.failTurn(turn, &stream.Error{Kind: stream.KindTransportFailure, Message: err.Error()})
		return
	}

	body, err := r.open(turn.Ctx, req)
	if err != nil {
		if turn.Ctx.Err() != nil {
			turn.Release(StatusCancelled)
			return
		}
		log.Error().Err(err).Msg("failed to open completion stream")
		r.failTurn(turn, &stream.Error{Kind: stream.KindTransportFailure, Message: err.Error()})
		return
	}

	r.consume(turn, body)
	body.Close()

	switch turn.Machine.Status() {
	case StatusComplete:
		r.finishComplete(turn, threadID)
	case StatusCancelled:
		// No publications after cancel: buffered bytes were decoded and
		// discarded, nothing crossed the relay.
		turn.Release(StatusCancelled)
	case StatusError:
		r.publishFailure(turn, threadID)
		turn.Release(StatusError)
	default:
		// EOF without a terminator or terminal transition.
		r.failTurn(turn, &stream.Error{
			Kind:    stream.KindTransportFailure,
			Message: "stream ended without terminator",
		})
	}
}

// open dials the completion endpoint, retrying connection-stage failures
// with exponential backoff and jitter. Client errors other than 429 are
// permanent.
func (r *Runner) open(ctx context.Context, req *transport.Request) (io.ReadCloser, error) {
	var body io.ReadCloser

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = connectInitialBackoff
	bo.MaxInterval = connectMaxBackoff

	err := backoff.Retry(func() error {
		b, err := r.client.Open(ctx, req)
		if err != nil {
			var serr *transport.StatusError
			if errors.As(err, &serr) && serr.StatusCode < 500 && serr.StatusCode != 429 {
				return backoff.Permanent(err)
			}
			return err
		}
		body = b
		return nil
	}, backoff.WithContext(backoff.WithMaxRetries(bo, connectMaxRetries), ctx))
	if err != nil {
		return nil, err
	}
	return body, nil
}

// consume reads the response body to termination, feeding the decoder and
// folding mapped events into the machine.
func (r *Runner) consume(turn *Turn, body io.Reader) {
	dec := stream.NewDecoder()
	mapper := stream.NewMapper(r.finish)
	buf := make([]byte, readBufferSize)

	for {
		n, readErr := body.Read(buf)
		if n > 0 {
			for _, frame := range dec.Feed(buf[:n]) {
				if !r.handleFrame(turn, mapper, frame) {
					return
				}
			}
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				return
			}
			if turn.Ctx.Err() != nil {
				// Cancelled: the connection was torn down under the read.
				return
			}
			turn.Machine.Fail(&stream.Error{
				Kind:    stream.KindTransportFailure,
				Message: readErr.Error(),
			})
			return
		}
	}
}

// handleFrame maps and applies one frame. It returns false once the session
// is terminal and reading should stop.
func (r *Runner) handleFrame(turn *Turn, mapper *stream.Mapper, frame stream.Frame) bool {
	if frame.Kind == stream.FrameComment {
		logging.Debug().
			Str("threadID", turn.Machine.ThreadID()).
			Bytes("comment", frame.Payload).
			Msg("provider comment frame")
		return true
	}

	events, err := mapper.Map(frame)
	if err != nil {
		var serr *stream.Error
		if !errors.As(err, &serr) {
			serr = &stream.Error{Kind: stream.KindMalformedPayload, Message: err.Error()}
		}
		turn.Machine.Fail(serr)
		return false
	}

	for _, ev := range events {
		r.dispatch(turn, ev)
		if turn.Machine.Status().Terminal() && turn.Machine.Status() != StatusComplete {
			return false
		}
	}
	return !turn.Machine.Status().Terminal()
}

// dispatch applies one event and forwards the machine's outward events to
// the relay.
func (r *Runner) dispatch(turn *Turn, ev stream.Event) {
	threadID := turn.Machine.ThreadID()
	forward, err := turn.Machine.Apply(ev)

	var callFailed bool
	if err != nil {
		var serr *stream.Error
		switch {
		case errors.As(err, &serr) && !serr.Kind.Fatal():
			// One bad tool call; report it and keep the session going.
			callFailed = true
			r.publish(turn, relay.StreamError, relay.StreamErrorPayload{
				ThreadID: threadID,
				Kind:     string(serr.Kind),
				Message:  serr.Message,
			})
		case errors.As(err, &serr):
			// Fatal: the machine has already moved to Error. The terminal
			// error is published once, by the turn's finalizer.
			return
		default:
			logging.Warn().Err(err).Str("threadID", threadID).Msg("stream event rejected")
			return
		}
	}

	for _, out := range forward {
		switch e := out.(type) {
		case stream.TextDelta:
			r.publish(turn, relay.TextDelta, relay.TextDeltaPayload{ThreadID: threadID, Text: e.Text})
		case stream.ToolCallStart:
			r.publish(turn, relay.ToolCallStarted, relay.ToolCallStartedPayload{ThreadID: threadID, CallID: e.ID, Name: e.Name})
		case stream.ToolCallDelta:
			r.publish(turn, relay.ToolCallDelta, relay.ToolCallDeltaPayload{ThreadID: threadID, CallID: e.ID, Args: e.Args})
		case stream.ToolCallEnd:
			r.publish(turn, relay.ToolCallEnded, relay.ToolCallEndedPayload{ThreadID: threadID, CallID: e.ID, Failed: callFailed})
		}
	}
}

// publish forwards a payload unless the session was cancelled. Events
// decoded after a cancel are discarded at the relay boundary, never
// delivered.
func (r *Runner) publish(turn *Turn, ch relay.Channel, payload any) {
	if turn.Machine.Status() == StatusCancelled {
		return
	}
	if err := r.relay.Publish(ch, payload); err != nil {
		logging.Error().Err(err).Str("channel", string(ch)).Msg("relay publish failed")
	}
}

// finishComplete runs the tool collaborator over finalized calls, appends
// the assistant message, and publishes the terminal events.
func (r *Runner) finishComplete(turn *Turn, threadID string) {
	r.runTools(turn)

	msg := turn.Machine.FinalMessage()
	if msg != nil {
		if err := r.store.AppendMessage(context.Background(), threadID, msg); err != nil {
			logging.Error().Err(err).Str("threadID", threadID).Msg("failed to persist assistant message")
		}
		r.publish(turn, relay.StreamCompleted, relay.StreamCompletedPayload{
			ThreadID: threadID,
			Content:  msg.Content,
			Calls:    msg.ToolCalls,
		})
		// Non-streaming fallback for consumers that ignore deltas.
		r.publish(turn, relay.MessageFull, relay.MessagePayload{ThreadID: threadID, Message: msg})
	}

	turn.Release(StatusComplete)
}

// publishFailure surfaces a session-fatal error together with whatever
// partial text accumulated before it. A partial answer is more useful than
// none.
func (r *Runner) publishFailure(turn *Turn, threadID string) {
	payload := relay.StreamErrorPayload{
		ThreadID:    threadID,
		PartialText: turn.Machine.Text(),
		Incomplete:  true,
	}
	if f := turn.Machine.Failure(); f != nil {
		payload.Kind = string(f.Kind)
		payload.Message = f.Message
	}
	r.publish(turn, relay.StreamError, payload)
}

// failTurn records a fatal failure, publishes it, and releases the turn.
func (r *Runner) failTurn(turn *Turn, serr *stream.Error) {
	turn.Machine.Fail(serr)
	r.publishFailure(turn, turn.Machine.ThreadID())
	turn.Release(StatusError)
}

// runTools hands each finalized, non-failed call to the tool collaborator
// and records its result on the session.
func (r *Runner) runTools(turn *Turn) {
	calls := turn.Machine.ToolCalls()
	if len(calls) == 0 {
		return
	}
	for _, call := range calls {
		if call.Failed {
			continue
		}
		result, err := r.tools.Run(turn.Ctx, call.Name, call.Args)
		if err != nil {
			logging.Warn().Err(err).Str("tool", call.Name).Msg("tool execution failed")
			result = "error: " + err.Error()
		}
		turn.Machine.SetToolResult(call.ID, result)
	}
}

// buildRequest assembles the completion request from the thread's history
// and the mode-specific system prompt.
func (r *Runner) buildRequest(ctx context.Context, thread *types.Thread) (*transport.Request, error) {
	history, err := r.store.ListMessages(ctx, thread.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}

	messages := make([]transport.ChatMessage, 0, len(history)+1)
	messages = append(messages, transport.ChatMessage{
		Role:    "system",
		Content: SystemPrompt(thread.Mode),
	})
	for _, msg := range history {
		if msg.Content == "" {
			continue
		}
		messages = append(messages, transport.ChatMessage{
			Role:    msg.Role,
			Content: msg.Content,
		})
	}

	return &transport.Request{
		Model:       r.model,
		Messages:    messages,
		Tools:       r.tools.Defs(),
		MaxTokens:   r.maxTokens,
		Temperature: r.temperature,
	}, nil
}
