package server

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"strings"
	"time"

	"github.com/halvik/showrunner/internal/agent"
)

// Generator produces the streamed reply text for one run.
type Generator interface {
	Generate(ctx context.Context, req agent.StreamRequest) iter.Seq2[string, error]
}

// ScriptedGenerator is a deterministic Generator for local development and
// tests. It composes a reply from the request and yields it in small
// chunks, optionally pausing between them to mimic model latency.
//
// Frame payloads cannot carry raw newlines (a newline ends the data line),
// so composed replies are single-line prose, the same shape the production
// service streams token chunks in.
type ScriptedGenerator struct {
	// ChunkDelay is the pause between yielded chunks. Zero streams
	// without pausing, which is what tests want.
	ChunkDelay time.Duration

	// ChunkWords is how many words each chunk carries. Defaults to 3.
	ChunkWords int
}

// Generate yields the composed reply word-group by word-group.
func (g *ScriptedGenerator) Generate(ctx context.Context, req agent.StreamRequest) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		words := strings.Fields(g.compose(req))
		size := g.ChunkWords
		if size <= 0 {
			size = 3
		}

		for start := 0; start < len(words); start += size {
			end := start + size
			if end > len(words) {
				end = len(words)
			}
			chunk := strings.Join(words[start:end], " ")
			if start+size < len(words) {
				chunk += " "
			}

			if g.ChunkDelay > 0 {
				select {
				case <-ctx.Done():
					yield("", ctx.Err())
					return
				case <-time.After(g.ChunkDelay):
				}
			}
			if !yield(chunk, nil) {
				return
			}
		}
	}
}

func (g *ScriptedGenerator) compose(req agent.StreamRequest) string {
	var reply string
	switch agent.Kind(req.AgentKey) {
	case agent.KindSceneWriter:
		reply = fmt.Sprintf("INT. WRITERS ROOM - DAY. A scene sketch for %q: "+
			"two characters circle the premise, the tension lands on the last line.", req.Prompt)
	default:
		reply = fmt.Sprintf("Draft script notes for %q: open on the hook, "+
			"establish the stakes in the first act, pay the premise off before the close.", req.Prompt)
	}

	if strings.Contains(strings.ToLower(req.Instructions), "json") {
		meta, err := json.Marshal(map[string]any{
			"prompt": req.Prompt,
			"beats":  []string{"hook", "stakes", "payoff"},
		})
		if err == nil {
			reply += " " + string(meta)
		}
	}
	return reply
}
