package categorize

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/and161185/kesef/internal/model"
)

func TestCategorize_Builtin(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"שופרסל דיל":          "מזון וסופר",
		"ארומה תל אביב":       "מסעדות וקפה",
		"AMAZON MKTPLACE":     "קניות כלליות",
		"Paybox העברה לחבר":   "העברות",
		"חברת חשמל לישראל":    "חשבונות בית",
		"something unrelated": Default,
		"":                    Default,
	}
	for desc, want := range cases {
		require.Equal(t, want, Categorize(desc, nil), desc)
	}
}

func TestCategorize_CustomRulesWinOverBuiltin(t *testing.T) {
	t.Parallel()

	rules := []model.CategoryRule{{ID: 1, Pattern: "שופרסל", Category: "סופר שכונתי"}}
	require.Equal(t, "סופר שכונתי", Categorize("שופרסל דיל", rules))
}

func TestCategorize_PriorityOrdering(t *testing.T) {
	t.Parallel()

	rules := []model.CategoryRule{
		{ID: 1, Pattern: "wolt", Category: "low", Priority: 1},
		{ID: 2, Pattern: "WOLT", Category: "high", Priority: 10},
	}
	require.Equal(t, "high", Categorize("Wolt order 123", rules))
}

func TestCategorize_TiesKeepGivenOrder(t *testing.T) {
	t.Parallel()

	rules := []model.CategoryRule{
		{ID: 1, Pattern: "bit", Category: "first", Priority: 5},
		{ID: 2, Pattern: "bit", Category: "second", Priority: 5},
	}
	require.Equal(t, "first", Categorize("BIT transfer", rules))
}

func TestCategorize_RegexAndFallback(t *testing.T) {
	t.Parallel()

	rules := []model.CategoryRule{
		{ID: 1, Pattern: `^netflix\.com$`, Category: "streaming", Priority: 2},
		{ID: 2, Pattern: "gym (", Category: "sport", Priority: 1},
	}
	require.Equal(t, "streaming", Categorize("NETFLIX.COM", rules))
	require.Equal(t, Default, Categorize("netflix.com monthly", rules))

	// "gym (" does not compile and is matched literally, case-insensitively.
	require.Equal(t, "sport", Categorize("Holmes Place GYM (TLV)", rules))
	require.Equal(t, Default, Categorize("gym membership", rules))
}

func TestCategorize_Deterministic(t *testing.T) {
	t.Parallel()

	rs := Compile([]model.CategoryRule{{Pattern: "x+", Category: "xs"}})
	first := rs.Categorize("xxx")
	for i := 0; i < 10; i++ {
		require.Equal(t, first, rs.Categorize("xxx"))
	}
}

func TestCompile_DoesNotMutateInput(t *testing.T) {
	t.Parallel()

	rules := []model.CategoryRule{
		{ID: 1, Priority: 1, Pattern: "a", Category: "a"},
		{ID: 2, Priority: 9, Pattern: "b", Category: "b"},
	}
	Compile(rules)
	require.Equal(t, int64(1), rules[0].ID)
}

func TestEmoji(t *testing.T) {
	t.Parallel()

	require.Equal(t, "🛒", Emoji("מזון וסופר"))
	require.Equal(t, "📦", Emoji(Default))
	require.Equal(t, "📦", Emoji("custom"))
}
