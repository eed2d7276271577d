package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"

	"github.com/tracelight/defectdesk/internal/model/agentdef"
)

// Invocation failure modes surfaced to the orchestrator.
var (
	ErrInvocationTimeout = errors.New("agent invocation timed out")
	ErrStreamFailed      = errors.New("agent stream failed")
)

// Client opens a single streaming request against a backend agent. The
// attribute map carries at least the session correlation id the agent uses
// for its server-side turn memory.
type Client interface {
	Stream(ctx context.Context, prompt string, attrs map[string]string) (*schema.StreamReader[*schema.Message], error)
}

// Gateway wraps one agent behind a bounded streaming invocation: chunks are
// accumulated in arrival order into a single buffer until the stream
// completes, fails, or the deadline fires.
type Gateway struct {
	client  Client
	profile agentdef.Profile
	timeout time.Duration
}

// NewGateway builds a gateway for the given agent profile.
func NewGateway(client Client, profile agentdef.Profile, timeout time.Duration) *Gateway {
	return &Gateway{client: client, profile: profile, timeout: timeout}
}

// Name returns the agent's display name, used in logs and sentinel replies.
func (g *Gateway) Name() string {
	return g.profile.Name
}

// invocation states, driven by the receive loop.
type state int

const (
	stateStreaming state = iota
	stateCompleted
	stateFailed
	stateTimedOut
)

type outcome struct {
	state state
	text  string
	err   error
}

// Invoke sends the prompt (decorated with the profile's suffix) and waits for
// the full streamed answer. A transport failure discards any partial buffer.
// An empty completed answer is soft: it yields a sentinel message, not an
// error. On deadline expiry only the local wait stops; the remote call is
// left to run out on its own.
func (g *Gateway) Invoke(ctx context.Context, prompt, sessionID string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	attrs := map[string]string{"session_id": sessionID}
	stream, err := g.client.Stream(ctx, prompt+g.profile.PromptSuffix, attrs)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrStreamFailed, err)
	}

	done := make(chan outcome, 1)
	go consume(stream, done)

	select {
	case <-ctx.Done():
		stream.Close()
		log.Printf("[agent] %s invocation timed out session=%s", g.profile.Name, sessionID)
		return "", ErrInvocationTimeout
	case out := <-done:
		switch out.state {
		case stateFailed:
			log.Printf("[agent] %s stream error session=%s: %v", g.profile.Name, sessionID, out.err)
			return "", fmt.Errorf("%w: %v", ErrStreamFailed, out.err)
		default:
			if out.text == "" {
				log.Printf("[agent] %s agent returned empty response session=%s", g.profile.Name, sessionID)
				return fmt.Sprintf("No response from %s agent", g.profile.Name), nil
			}
			log.Printf("[agent] %s invocation completed session=%s length=%d", g.profile.Name, sessionID, len(out.text))
			return out.text, nil
		}
	}
}

// consume drains the stream into a single buffer and reports the terminal
// state on the done channel.
func consume(stream *schema.StreamReader[*schema.Message], done chan<- outcome) {
	defer stream.Close()

	st := stateStreaming
	var buf strings.Builder

	for st == stateStreaming {
		chunk, err := stream.Recv()
		switch {
		case errors.Is(err, io.EOF):
			st = stateCompleted
		case err != nil:
			st = stateFailed
			done <- outcome{state: st, err: err}
			return
		case chunk != nil:
			buf.WriteString(chunk.Content)
		}
	}

	done <- outcome{state: st, text: strings.TrimSpace(buf.String())}
}
