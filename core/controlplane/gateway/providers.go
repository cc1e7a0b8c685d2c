package gateway

import (
	"context"
	"fmt"
)

// ModelProvider is the upstream the gateway forwards allowed prompts to.
type ModelProvider interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// EchoProvider answers with the prompt itself. Default upstream for local
// runs and tests; swap in a real provider via UPSTREAM_MODEL.
type EchoProvider struct{}

func (EchoProvider) Generate(_ context.Context, prompt string) (string, error) {
	return fmt.Sprintf("Echo: %s", prompt), nil
}
