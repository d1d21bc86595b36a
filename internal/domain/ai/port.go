package ai

import "context"

// Invocation is one request to a generative model.
type Invocation struct {
	Model     string
	System    string
	User      string
	MaxTokens int
}

// Client sends an Invocation and returns the generated text.
type Client interface {
	Invoke(ctx context.Context, inv Invocation) (string, error)
}
