package fallback_test

import (
	"context"
	"errors"
	"testing"

	"github.com/ownlingo/gamelingo/translator"
	"github.com/ownlingo/gamelingo/translator/fallback"
	"github.com/ownlingo/gamelingo/translator/translatortest"
	"github.com/stretchr/testify/require"
)

type named struct {
	*translatortest.Gateway
	name string
}

func (n named) Name() string { return n.name }

func gateway(name string, text string, err error) named {
	return named{
		Gateway: translatortest.New(func(context.Context, *translator.CompletionRequest) (string, error) {
			return text, err
		}),
		name: name,
	}
}

func TestNewChain(t *testing.T) {
	chain := fallback.NewChain(gateway("primary", "", nil), gateway("secondary", "", nil))
	require.Equal(t, "fallback-chain(primary,secondary)", chain.Name())
	require.Panics(t, func() { fallback.NewChain() })
}

func TestChainUsesPrimary(t *testing.T) {
	primary := gateway("primary", "one", nil)
	secondary := gateway("secondary", "two", nil)

	resp, err := fallback.NewChain(primary, secondary).Complete(context.Background(), &translator.CompletionRequest{Text: "x"})
	require.NoError(t, err)
	require.Equal(t, "one", resp.Text)
	require.Equal(t, 1, primary.Calls())
	require.Zero(t, secondary.Calls())
}

func TestChainFallsBack(t *testing.T) {
	primary := gateway("primary", "", errors.New("primary down"))
	secondary := gateway("secondary", "two", nil)

	resp, err := fallback.NewChain(primary, secondary).Complete(context.Background(), &translator.CompletionRequest{Text: "x"})
	require.NoError(t, err)
	require.Equal(t, "two", resp.Text)
	require.Equal(t, "x", secondary.Requests()[0].Text)
}

func TestChainAllFail(t *testing.T) {
	last := errors.New("secondary down")
	chain := fallback.NewChain(
		gateway("primary", "", errors.New("primary down")),
		gateway("secondary", "", last),
	)

	_, err := chain.Complete(context.Background(), &translator.CompletionRequest{Text: "x"})
	require.ErrorIs(t, err, last)
	require.Contains(t, err.Error(), "secondary (2/2)")
}

func TestChainStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	primary := named{
		Gateway: translatortest.New(func(context.Context, *translator.CompletionRequest) (string, error) {
			cancel()
			return "", context.Canceled
		}),
		name: "primary",
	}
	secondary := gateway("secondary", "two", nil)

	_, err := fallback.NewChain(primary, secondary).Complete(ctx, &translator.CompletionRequest{Text: "x"})
	require.ErrorIs(t, err, context.Canceled)
	require.Zero(t, secondary.Calls())
}
