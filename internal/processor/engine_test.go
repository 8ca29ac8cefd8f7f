package processor

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func newDefaultEngine() *Engine {
	return NewEngine(DefaultVocabulary())
}

func TestEvaluateHighSignalPhrase(t *testing.T) {
	ev := newDefaultEngine().Evaluate("Big NIL Deal", "Star player signs $2 million collective deal")

	require.True(t, ev.Relevant)
	// nil deal(3) + nil(3) + collective(2) + deal x2(2)
	require.Equal(t, 10.0, ev.Score)
	require.False(t, ev.Breaking)
	require.Equal(t, "Collectives", ev.Category)
	require.Equal(t, SentimentPositive, ev.Sentiment)
	require.Equal(t, []string{"$2 million"}, ev.Entities)
	require.Contains(t, ev.MatchedTerms, "nil deal")
}

func TestEvaluateThresholdWithoutHighSignal(t *testing.T) {
	e := newDefaultEngine()

	ev := e.Evaluate("Program update", "The collective finalized a deal.")
	require.True(t, ev.Relevant)
	require.Equal(t, 3.0, ev.Score)

	single := e.Evaluate("Program update", "The collective met on Tuesday.")
	require.False(t, single.Relevant, "one medium term alone is below the threshold")
	require.Equal(t, 2.0, single.Score)
}

func TestEvaluateMinTermsConfigurable(t *testing.T) {
	v := DefaultVocabulary()
	v.MinTerms = 1
	ev := NewEngine(v).Evaluate("Program update", "The collective met on Tuesday.")
	require.True(t, ev.Relevant)
}

func TestEvaluateWordBoundaries(t *testing.T) {
	ev := newDefaultEngine().Evaluate("Nile cruise", "Vanilla ideals and a dealer of apps")
	require.False(t, ev.Relevant)
	require.Zero(t, ev.Score)
	require.Empty(t, ev.MatchedTerms)
}

func TestEvaluateUrgencyAndCap(t *testing.T) {
	e := newDefaultEngine()

	ev := e.Evaluate("BREAKING: NIL collective folds", "")
	require.True(t, ev.Breaking)
	// nil collective(3) + nil(3) + collective(2) + urgency(2)
	require.Equal(t, 10.0, ev.Score)

	capped := e.Evaluate("Exclusive", strings.Repeat("NIL deal collective booster ", 10))
	require.Equal(t, ScoreCap, capped.Score)
}

func TestEvaluateScoreMonotonic(t *testing.T) {
	e := newDefaultEngine()
	body := "The collective finalized a deal."
	prev := e.Evaluate("Update", body).Score
	for _, extra := range []string{" A booster paid.", " The athlete agreed.", " Another NIL payout."} {
		body += extra
		cur := e.Evaluate("Update", body).Score
		require.GreaterOrEqual(t, cur, prev, "adding %q lowered the score", extra)
		prev = cur
	}
}

func TestCategorizeOrder(t *testing.T) {
	e := newDefaultEngine()

	cases := []struct {
		text string
		want string
	}{
		{"collective faces lawsuit", "Legal"},
		{"governor signs legislation about booster groups", "Policy"},
		{"booster group launches marketplace", "Collectives"},
		{"new marketplace app for athletes", "Technology"},
		{"transfer portal opens", "Recruiting"},
		{"shoe endorsement", "Endorsements"},
		{"quarterback throws four touchdowns", DefaultCategory},
	}
	for _, c := range cases {
		require.Equal(t, c.want, e.Categorize(c.text, ""), c.text)
	}
}

func TestSentimentTieIsNeutral(t *testing.T) {
	e := newDefaultEngine()
	require.Equal(t, SentimentNeutral, e.Evaluate("NIL deal", "signed amid lawsuit").Sentiment)
	require.Equal(t, SentimentNegative, e.Evaluate("NIL deal", "investigation and penalty").Sentiment)
	require.Equal(t, SentimentNeutral, e.Evaluate("NIL deal", "nothing to see").Sentiment)
}

func TestEntitiesDedupedAndCapped(t *testing.T) {
	e := newDefaultEngine()
	ev := e.Evaluate("NIL deal", "The NCAA and the SEC met with Jane Smith. Jane Smith said Front Office Sports reported $5 billion.")
	require.Equal(t, []string{"$5 billion", "NCAA", "SEC", "Front Office Sports", "Jane Smith"}, ev.Entities)

	var b strings.Builder
	for i := 0; i < 15; i++ {
		b.WriteString("$")
		b.WriteString(strings.Repeat("1", i+1))
		b.WriteString(" ")
	}
	capped := e.Evaluate("NIL deal", b.String())
	require.Len(t, capped.Entities, MaxEntities)
}
