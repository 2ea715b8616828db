package agent

import (
	"context"
	"fmt"
	"sync"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/core"
	"github.com/firebase/genkit/go/genkit"
)

// Input is the chat flow input.
type Input struct {
	Query    string `json:"query"`
	ThreadID string `json:"threadId,omitempty"`
}

// Output is the chat flow output.
type Output struct {
	Response string `json:"response"`
	ThreadID string `json:"threadId"`
}

// StreamChunk carries partial response text during streaming execution.
type StreamChunk struct {
	Text string `json:"text"`
}

// FlowName is the registered name of the chat flow.
const FlowName = "clausa/chat"

// Flow is the chat flow type, exported for genkit.Handler in the API layer.
type Flow = core.Flow[Input, Output, StreamChunk]

// The flow registers globally in genkit; defining it twice panics. The
// singleton guards re-registration across the HTTP server and CLI paths.
var (
	flowOnce sync.Once
	flow     *Flow
	flowDone bool
)

// InitFlow defines the chat flow singleton. Call exactly once at startup;
// later calls return an error.
func InitFlow(g *genkit.Genkit, a *Agent) (*Flow, error) {
	var initialized bool
	flowOnce.Do(func() {
		flow = defineFlow(g, a)
		flowDone = true
		initialized = true
	})
	if !initialized && flowDone {
		return nil, fmt.Errorf("InitFlow called more than once")
	}
	return flow, nil
}

// GetFlow returns the initialized flow. Panics if InitFlow was not called.
func GetFlow() *Flow {
	if !flowDone {
		panic("GetFlow called before InitFlow")
	}
	return flow
}

// ResetFlowForTesting resets the singleton so tests can re-register with
// different configurations. Not safe for concurrent use.
func ResetFlowForTesting() {
	flowOnce = sync.Once{}
	flow = nil
	flowDone = false
}

func defineFlow(g *genkit.Genkit, a *Agent) *Flow {
	return genkit.DefineStreamingFlow(g, FlowName,
		func(ctx context.Context, input Input, callback core.StreamCallback[StreamChunk]) (Output, error) {
			var streamCb StreamCallback
			if callback != nil {
				streamCb = func(ctx context.Context, chunk *ai.ModelResponseChunk) error {
					return callback(ctx, StreamChunk{Text: chunk.Text()})
				}
			}

			resp, err := a.Execute(ctx, input.ThreadID, input.Query, streamCb)
			if err != nil {
				return Output{ThreadID: resp.ThreadID}, err
			}
			return Output{Response: resp.Text, ThreadID: resp.ThreadID}, nil
		})
}
