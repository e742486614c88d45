// Package fallback chains completion gateways: each request goes to the first
// gateway and moves down the chain while they fail.
package fallback

import (
	"context"
	"fmt"
	"strings"

	"github.com/ownlingo/gamelingo/translator"
)

// Chain implements translator.Gateway over an ordered list of gateways
type Chain struct {
	gateways []translator.Gateway
}

// NewChain creates a new fallback chain with the given gateways.
// Gateways are tried in order: primary → secondary → tertiary → ...
func NewChain(gateways ...translator.Gateway) *Chain {
	if len(gateways) == 0 {
		panic("at least one gateway is required")
	}

	return &Chain{
		gateways: gateways,
	}
}

// Name returns the name of the chain, listing every gateway in order
func (c *Chain) Name() string {
	names := make([]string, len(c.gateways))
	for i, g := range c.gateways {
		names[i] = g.Name()
	}
	return fmt.Sprintf("fallback-chain(%s)", strings.Join(names, ","))
}

// Complete tries each gateway in turn and returns the first answer. When all
// fail the last error is returned. A cancelled context stops the chain.
func (c *Chain) Complete(ctx context.Context, req *translator.CompletionRequest) (*translator.CompletionResponse, error) {
	var lastErr error

	for i, g := range c.gateways {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		resp, err := g.Complete(ctx, req)
		if err == nil {
			return resp, nil
		}

		lastErr = fmt.Errorf("gateway %s (%d/%d) failed: %w",
			g.Name(), i+1, len(c.gateways), err)
	}

	return nil, fmt.Errorf("all gateways failed, last error: %w", lastErr)
}
