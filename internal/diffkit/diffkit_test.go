package diffkit

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"
)

func TestDiffAbsentSideIsNotTracked(t *testing.T) {
	changed, changes := Diff(nil, map[string]any{"a": 1})
	require.Empty(t, changed)
	require.Empty(t, changes)

	changed, changes = Diff(map[string]any{"a": 1}, nil)
	require.Empty(t, changed)
	require.Empty(t, changes)
}

func TestDiffPrimitives(t *testing.T) {
	changed, changes := Diff(
		map[string]any{"count": 0, "label": "x"},
		map[string]any{"count": 1, "label": "x"},
	)
	require.Equal(t, []string{"count"}, changed)
	require.Len(t, changes, 1)
	require.Equal(t, "count", changes[0].Key)
	require.Equal(t, "0", changes[0].Previous)
	require.Equal(t, "1", changes[0].Current)
	require.Equal(t, KindPrimitive, changes[0].Kind)
}

func TestDiffIdentityNotStructure(t *testing.T) {
	// Structurally equal but freshly allocated: must report changed.
	changed, _ := Diff(
		map[string]any{"items": []int{1, 2}},
		map[string]any{"items": []int{1, 2}},
	)
	require.Equal(t, []string{"items"}, changed)

	// The very same slice: unchanged.
	shared := []int{1, 2}
	changed, _ = Diff(
		map[string]any{"items": shared},
		map[string]any{"items": shared},
	)
	require.Empty(t, changed)

	// Same map pointer: unchanged.
	m := map[string]int{"a": 1}
	changed, _ = Diff(
		map[string]any{"m": m},
		map[string]any{"m": m},
	)
	require.Empty(t, changed)
}

func TestDiffAddedAndRemovedKeys(t *testing.T) {
	changed, changes := Diff(
		map[string]any{"gone": 1},
		map[string]any{"fresh": 2},
	)
	require.Equal(t, []string{"fresh", "gone"}, changed)

	byKey := map[string]Change{}
	for _, c := range changes {
		byKey[c.Key] = c
	}
	require.Equal(t, "undefined", byKey["fresh"].Previous)
	require.Equal(t, "undefined", byKey["gone"].Current)
	require.Equal(t, KindUndefined, byKey["gone"].Kind)
}

func TestKindOf(t *testing.T) {
	require.Equal(t, KindUndefined, KindOf(nil))
	require.Equal(t, KindPrimitive, KindOf(42))
	require.Equal(t, KindPrimitive, KindOf("s"))
	require.Equal(t, KindArray, KindOf([]string{"a"}))
	require.Equal(t, KindObject, KindOf(map[string]int{}))
	require.Equal(t, KindObject, KindOf(struct{ A int }{1}))
	require.Equal(t, KindFunction, KindOf(func() {}))
}

func TestDisplayTruncates(t *testing.T) {
	long := strings.Repeat("x", 500)
	got := Display(long)
	require.True(t, strings.HasSuffix(got, "…"))
	require.LessOrEqual(t, len(got), maxDisplayLen+len("…"))
}

func TestDisplayTruncatesOnRuneBoundary(t *testing.T) {
	// The leading byte shifts every following 3-byte rune off the cut
	// length, so a plain byte slice would split mid-rune.
	long := "x" + strings.Repeat("渲", 100)
	got := Display(long)
	require.True(t, utf8.ValidString(got), "truncation must not produce invalid UTF-8")
	require.True(t, strings.HasSuffix(got, "…"))
	require.LessOrEqual(t, len(got), maxDisplayLen+len("…"))
}

func TestDisplayCollectionsAsJSON(t *testing.T) {
	require.Equal(t, `[1,2]`, Display([]int{1, 2}))
	require.Equal(t, `{"a":1}`, Display(map[string]int{"a": 1}))
	require.Equal(t, "function", Display(func() {}))
	require.Equal(t, "undefined", Display(nil))
}
