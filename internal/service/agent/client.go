package agent

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// modelClient adapts an eino chat model to the Client interface. Session
// attributes ride along as a leading system message so the backing agent can
// correlate its server-side turn memory.
type modelClient struct {
	chatModel model.ChatModel
}

// NewModelClient wraps a chat model as a streaming agent client.
func NewModelClient(chatModel model.ChatModel) Client {
	return &modelClient{chatModel: chatModel}
}

func (c *modelClient) Stream(ctx context.Context, prompt string, attrs map[string]string) (*schema.StreamReader[*schema.Message], error) {
	msgs := make([]*schema.Message, 0, 2)
	if len(attrs) > 0 {
		msgs = append(msgs, schema.SystemMessage(formatAttrs(attrs)))
	}
	msgs = append(msgs, schema.UserMessage(prompt))

	return c.chatModel.Stream(ctx, msgs)
}

func formatAttrs(attrs map[string]string) string {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("session attributes:")
	for _, k := range keys {
		fmt.Fprintf(&b, "\n%s: %s", k, attrs[k])
	}
	return b.String()
}
