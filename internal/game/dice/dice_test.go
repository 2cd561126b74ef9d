package dice_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/wichtel/internal/game/dice"
)

// fixedSource returns queued values in order, wrapping around.
type fixedSource struct {
	vals []int
	idx  int
}

func (f *fixedSource) Intn(n int) int {
	v := f.vals[f.idx%len(f.vals)]
	f.idx++
	return v % n
}

// chiSquareCritical is the df=5 critical value at p=0.0001.
const chiSquareCritical = 25.74

func TestOutcome_Total(t *testing.T) {
	o := dice.NewOutcome(3, 4)
	assert.Equal(t, 7, o.Total())
	assert.Equal(t, 2, o.Count())
	assert.Equal(t, "[3 4] = 7", o.String())
}

func TestOutcome_FacesIsCopy(t *testing.T) {
	o := dice.NewOutcome(2, 5)
	f := o.Faces()
	f[0] = 6
	assert.Equal(t, []int{2, 5}, o.Faces(), "mutating Faces() must not alter the Outcome")
}

func TestNewOutcome_PanicsOnBadFace(t *testing.T) {
	assert.Panics(t, func() { dice.NewOutcome(0) })
	assert.Panics(t, func() { dice.NewOutcome(7) })
}

func TestDefault_AllOnes(t *testing.T) {
	assert.Equal(t, []int{1}, dice.Default(1).Faces())
	assert.Equal(t, []int{1, 1}, dice.Default(2).Faces())
}

func TestRollRandom_InvalidCount(t *testing.T) {
	for _, n := range []int{0, 3, -1} {
		_, err := dice.RollRandom(n, dice.NewCryptoSource())
		assert.ErrorIs(t, err, dice.ErrInvalidInput)
	}
}

// TestRollRandom_Uniform rolls 10 000 times per dice count and checks that
// every face is in range and the face distribution passes a chi-square test.
func TestRollRandom_Uniform(t *testing.T) {
	for _, count := range []int{1, 2} {
		src := dice.NewSeededSource(int64(42 + count))
		var freq [dice.Faces + 1]int
		faces := 0
		for i := 0; i < 10_000; i++ {
			o, err := dice.RollRandom(count, src)
			require.NoError(t, err)
			require.Equal(t, count, o.Count())
			for _, f := range o.Faces() {
				require.GreaterOrEqual(t, f, 1)
				require.LessOrEqual(t, f, dice.Faces)
				freq[f]++
				faces++
			}
		}
		expected := float64(faces) / dice.Faces
		chi := 0.0
		for f := 1; f <= dice.Faces; f++ {
			d := float64(freq[f]) - expected
			chi += d * d / expected
		}
		assert.Less(t, chi, chiSquareCritical, "count=%d freq=%v", count, freq[1:])
	}
}

func TestRollFromTotal_OneDie(t *testing.T) {
	src := dice.NewCryptoSource()
	for total := 1; total <= 6; total++ {
		o, err := dice.RollFromTotal(1, total, src)
		require.NoError(t, err)
		assert.Equal(t, []int{total}, o.Faces())
		assert.True(t, o.Manual)
		assert.False(t, o.Fallback)
	}
	for _, total := range []int{0, 7, -3, 12} {
		_, err := dice.RollFromTotal(1, total, src)
		assert.ErrorIs(t, err, dice.ErrInvalidInput, "total %d", total)
	}
}

func TestRollFromTotal_TwoDice_Property(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		total := rapid.IntRange(2, 12).Draw(rt, "total")
		seed := rapid.Int64().Draw(rt, "seed")
		o, err := dice.RollFromTotal(2, total, dice.NewSeededSource(seed))
		require.NoError(rt, err)
		faces := o.Faces()
		require.Len(rt, faces, 2)
		assert.Equal(rt, total, faces[0]+faces[1])
		for _, f := range faces {
			assert.GreaterOrEqual(rt, f, 1)
			assert.LessOrEqual(rt, f, dice.Faces)
		}
	})
}

func TestRollFromTotal_TwoDice_OutOfRange_Property(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		total := rapid.OneOf(rapid.IntRange(-50, 1), rapid.IntRange(13, 100)).Draw(rt, "total")
		_, err := dice.RollFromTotal(2, total, dice.NewCryptoSource())
		assert.ErrorIs(rt, err, dice.ErrInvalidInput)
	})
}

func TestRollFromTotal_SevenCoversAllPairs(t *testing.T) {
	seen := map[[2]int]bool{}
	for i := 0; i < 6; i++ {
		o, err := dice.RollFromTotal(2, 7, &fixedSource{vals: []int{i}})
		require.NoError(t, err)
		f := o.Faces()
		seen[[2]int{f[0], f[1]}] = true
	}
	assert.Equal(t, map[[2]int]bool{
		{1, 6}: true, {2, 5}: true, {3, 4}: true,
		{4, 3}: true, {5, 2}: true, {6, 1}: true,
	}, seen)
}

func TestRollFromTotal_ExtremesHaveOnePair(t *testing.T) {
	o, err := dice.RollFromTotal(2, 2, dice.NewCryptoSource())
	require.NoError(t, err)
	assert.Equal(t, []int{1, 1}, o.Faces())
	o, err = dice.RollFromTotal(2, 12, dice.NewCryptoSource())
	require.NoError(t, err)
	assert.Equal(t, []int{6, 6}, o.Faces())
}

func TestCryptoSource_Intn_InRange(t *testing.T) {
	src := dice.NewCryptoSource()
	for i := 0; i < 1000; i++ {
		v := src.Intn(6)
		assert.GreaterOrEqual(t, v, 0)
		assert.Less(t, v, 6)
	}
}

func TestCryptoSource_Intn_PanicsOnZero(t *testing.T) {
	src := dice.NewCryptoSource()
	assert.Panics(t, func() { src.Intn(0) })
}

func TestSeededSource_Deterministic(t *testing.T) {
	a, b := dice.NewSeededSource(7), dice.NewSeededSource(7)
	for i := 0; i < 100; i++ {
		assert.Equal(t, a.Intn(6), b.Intn(6))
	}
}

func TestRoller_LogsEachRoll(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	r := dice.NewLoggedRoller(dice.NewSeededSource(1), zap.New(core))

	o, err := r.RollRandom(2)
	require.NoError(t, err)
	entries := logs.FilterMessage("dice roll").All()
	require.Len(t, entries, 1)
	assert.Equal(t, int64(o.Total()), entries[0].ContextMap()["total"])
	assert.Equal(t, false, entries[0].ContextMap()["manual"])

	_, err = r.RollFromTotal(1, 9)
	assert.ErrorIs(t, err, dice.ErrInvalidInput)
	assert.Equal(t, 1, logs.FilterMessage("manual roll rejected").Len())
}

func TestNewLoggedRoller_PanicsOnNil(t *testing.T) {
	assert.Panics(t, func() { dice.NewLoggedRoller(nil, zap.NewNop()) })
	assert.Panics(t, func() { dice.NewLoggedRoller(dice.NewCryptoSource(), nil) })
}
