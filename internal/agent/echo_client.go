package agent

import (
	"context"
	"strings"
)

// EchoClient is a development stand-in that repeats the message back.
type EchoClient struct{}

// Complete implements Client.
func (EchoClient) Complete(ctx context.Context, _ int64, text string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return "You said: " + strings.TrimSpace(text), nil
}
