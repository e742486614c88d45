package batch_test

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/ownlingo/gamelingo/translator"
	"github.com/ownlingo/gamelingo/translator/batch"
	"github.com/stretchr/testify/require"
)

// runeOracle treats every rune as one token out of budget.
func runeOracle(budget int) batch.Oracle {
	return batch.OracleFunc(func(text, system string) float64 {
		return float64(utf8.RuneCountInString(text)+utf8.RuneCountInString(system)) / float64(budget)
	})
}

func plain(texts ...string) []translator.Unit {
	units := make([]translator.Unit, len(texts))
	for i, s := range texts {
		units[i] = translator.NewPlainUnit(s)
	}
	return units
}

func TestNewPlannerValidation(t *testing.T) {
	_, err := batch.NewPlanner(nil)
	require.Error(t, err)

	_, err = batch.NewPlanner(runeOracle(10), batch.WithLimit(0))
	require.Error(t, err)

	_, err = batch.NewPlanner(runeOracle(10), batch.WithSentenceBoundary(`(?<=[`))
	require.Error(t, err)
}

func TestPlanPacksWithinLimit(t *testing.T) {
	oracle := runeOracle(100)
	p, err := batch.NewPlanner(oracle, batch.WithLimit(0.5))
	require.NoError(t, err)

	units := plain("aaaaaaaaaa", "bbbbbbbbbb", "cccccccccc", "dddddddddd", "eeeeeeeeee", "ffffffffff")
	plan, err := p.Plan(context.Background(), units)
	require.NoError(t, err)

	require.Len(t, plan.Fragments, len(units))
	require.Empty(t, plan.Records)

	covered := 0
	for i, b := range plan.Batches {
		require.Equal(t, covered, b.From, "batches must be contiguous")
		covered = b.To
		text, _ := batch.Render(plan.Batch(i))
		require.LessOrEqual(t, oracle.Fraction(text, ""), 0.5)
	}
	require.Equal(t, len(plan.Fragments), covered)
	// 10 runes per unit plus one separator: four units fit under 50.
	require.Equal(t, []batch.Span{{From: 0, To: 4}, {From: 4, To: 6}}, plan.Batches)
}

func TestPlanCountsPromptAgainstBudget(t *testing.T) {
	p, err := batch.NewPlanner(runeOracle(100),
		batch.WithLimit(0.5),
		batch.WithPrompt(func(batch.Format) string { return strings.Repeat("p", 30) }),
	)
	require.NoError(t, err)

	plan, err := p.Plan(context.Background(), plain("aaaaaaaaaa", "bbbbbbbbbb", "cccccccccc"))
	require.NoError(t, err)
	require.Equal(t, []batch.Span{{From: 0, To: 1}, {From: 1, To: 2}, {From: 2, To: 3}}, plan.Batches)
}

func TestNextPacksWithCurrentPrompt(t *testing.T) {
	prompt := ""
	p, err := batch.NewPlanner(runeOracle(100),
		batch.WithLimit(0.5),
		batch.WithPrompt(func(batch.Format) string { return prompt }),
	)
	require.NoError(t, err)

	frags := plain("aaaaaaaaaa", "bbbbbbbbbb", "cccccccccc", "dddddddddd", "eeeeeeeeee", "ffffffffff")
	require.Equal(t, 4, p.Next(frags, 0))

	prompt = strings.Repeat("p", 30)
	require.Equal(t, 5, p.Next(frags, 4))
	require.True(t, p.Fits(frags[4]))
	require.False(t, p.Fits(frags[4:6]...))

	// A fragment that no longer fits still makes a batch of its own.
	prompt = strings.Repeat("p", 45)
	require.False(t, p.Fits(frags[5]))
	require.Equal(t, 6, p.Next(frags, 5))
}

func TestPlanSplitsParagraphsAndSentences(t *testing.T) {
	// Record overhead for a named unit is 28 runes.
	p, err := batch.NewPlanner(runeOracle(100), batch.WithLimit(1))
	require.NoError(t, err)

	long := "Short one.\n\n" +
		"The first sentence is here. The second sentence follows. And a third one ends it."
	units := []translator.Unit{
		translator.NewPlainUnit("Before."),
		translator.NewNamedUnit("Lia", long),
		translator.NewPlainUnit("After."),
	}

	plan, err := p.Plan(context.Background(), units)
	require.NoError(t, err)

	span := plan.Units[1]
	rec, ok := plan.Records[1]
	require.True(t, ok)
	require.Equal(t, span.Len(), rec.Fragments())
	require.Len(t, rec.Paragraphs, 2)
	require.Equal(t, 1, rec.Paragraphs[0])
	require.Equal(t, 2, rec.Paragraphs[1])

	var texts []string
	for i := span.From; i < span.To; i++ {
		frag := plan.Fragments[i]
		require.Equal(t, 1, plan.Owners[i])
		require.Equal(t, translator.KindNamed, frag.Kind())
		require.Equal(t, "Lia", frag.Name())
		texts = append(texts, frag.Original())
	}
	require.Equal(t, long, plan.Merge(1, texts))

	for i := range plan.Batches {
		text, format := batch.Render(plan.Batch(i))
		require.LessOrEqual(t, runeOracle(100).Fraction(text, ""), 1.0, "batch %d (%s)", i, format)
	}
}

func TestPlanSplitsSingleParagraph(t *testing.T) {
	p, err := batch.NewPlanner(runeOracle(40), batch.WithLimit(1))
	require.NoError(t, err)

	text := "One two three. Four five six. Seven eight nine."
	plan, err := p.Plan(context.Background(), plain(text))
	require.NoError(t, err)

	rec := plan.Records[0]
	require.Equal(t, []int{plan.Units[0].Len()}, rec.Paragraphs)

	var texts []string
	for _, f := range plan.Fragments {
		texts = append(texts, f.Original())
	}
	require.Equal(t, text, plan.Merge(0, texts))
}

func TestPlanFragmentTooLarge(t *testing.T) {
	p, err := batch.NewPlanner(runeOracle(10), batch.WithLimit(1))
	require.NoError(t, err)

	_, err = p.Plan(context.Background(), plain("ok", "no sentence boundary at all here"))
	require.ErrorIs(t, err, batch.ErrFragmentTooLarge)

	var tooLarge *batch.FragmentTooLargeError
	require.ErrorAs(t, err, &tooLarge)
	require.Equal(t, 1, tooLarge.Unit)
	require.Greater(t, tooLarge.Fraction, 1.0)

	_, err = p.Plan(context.Background(), plain("Tiny. This sentence alone is too long."))
	require.ErrorIs(t, err, batch.ErrFragmentTooLarge)
}

func TestPlanHonoursCancellation(t *testing.T) {
	p, err := batch.NewPlanner(runeOracle(100))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.Plan(ctx, plain("a", "b"))
	require.ErrorIs(t, err, context.Canceled)
}

func TestPlanEmpty(t *testing.T) {
	p, err := batch.NewPlanner(runeOracle(100))
	require.NoError(t, err)

	plan, err := p.Plan(context.Background(), nil)
	require.NoError(t, err)
	require.Empty(t, plan.Batches)
	require.Empty(t, plan.Fragments)
}

func TestCJKSentenceBoundary(t *testing.T) {
	p, err := batch.NewPlanner(runeOracle(12), batch.WithLimit(1),
		batch.WithSentenceBoundary(batch.CJKSentenceBoundary))
	require.NoError(t, err)

	plan, err := p.Plan(context.Background(), plain("こんにちは。元気ですか？また明日ね。"))
	require.NoError(t, err)
	require.Greater(t, len(plan.Fragments), 1)
	for _, f := range plan.Fragments {
		require.LessOrEqual(t, utf8.RuneCountInString(f.Original()), 12)
	}
}

func TestMergeWithoutRecord(t *testing.T) {
	require.Equal(t, "only", batch.Merge([]string{"only"}, batch.SplitRecord{}, "\n\n"))
	require.Equal(t, 1, batch.SplitRecord{}.Fragments())
	require.Equal(t, "a b\n\nc", batch.Merge([]string{"a", "b", "c"}, batch.SplitRecord{Paragraphs: []int{2, 1}}, "\n\n"))
}
