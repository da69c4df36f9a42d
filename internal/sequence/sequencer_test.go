package sequence

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type emitted struct {
	item string
	cat  Category
}

// recorder is a Sink that remembers every call in order.
type recorder struct {
	calls []emitted
}

func (r *recorder) Emit(item string, c Category) {
	r.calls = append(r.calls, emitted{item, c})
}

func (r *recorder) items() []string {
	out := make([]string, len(r.calls))
	for i, e := range r.calls {
		out[i] = e.item
	}
	return out
}

func ingestAll(t *testing.T, s *Sequencer[string], c Category, items ...string) {
	t.Helper()
	for _, item := range items {
		require.NoError(t, s.Ingest(item, c))
	}
}

func TestInOrderBatchesNeedNoBuffering(t *testing.T) {
	rec := &recorder{}
	s := New[string](rec, DefaultTiers)

	ingestAll(t, s, Primary, "p1", "p2")
	assert.Equal(t, Secondary, s.Unlocked())
	ingestAll(t, s, Secondary, "s1", "s2", "s3")
	assert.Equal(t, Tertiary, s.Unlocked())
	ingestAll(t, s, Tertiary, "t1")

	assert.Equal(t, []string{"p1", "p2", "s1", "s2", "s3", "t1"}, rec.items())
	assert.Equal(t, 0, s.Pending())
}

func TestFullReversalCascadesInOneStep(t *testing.T) {
	rec := &recorder{}
	s := New[string](rec, DefaultTiers)

	ingestAll(t, s, Tertiary, "t1", "t2", "t3")
	ingestAll(t, s, Secondary, "s1", "s2")
	assert.Empty(t, rec.calls)
	assert.Equal(t, 5, s.Pending())

	require.NoError(t, s.Ingest("p1", Primary))
	assert.Equal(t, []string{"p1", "s1", "s2", "t1", "t2", "t3"}, rec.items())
	assert.Equal(t, Category(DefaultTiers), s.Unlocked(), "cascade should exhaust the tiers")

	ingestAll(t, s, Primary, "p2", "p3", "p4")
	assert.Equal(t, []string{"p1", "s1", "s2", "t1", "t2", "t3", "p2", "p3", "p4"}, rec.items())
}

func TestAbsentTertiary(t *testing.T) {
	rec := &recorder{}
	s := New[string](rec, DefaultTiers)

	ingestAll(t, s, Secondary, "s1", "s2")
	ingestAll(t, s, Primary, "p1", "p2")

	assert.Equal(t, []string{"p1", "s1", "s2", "p2"}, rec.items())
	assert.Equal(t, Tertiary, s.Unlocked())

	stats := s.Stats()
	assert.Equal(t, 0, stats[Tertiary].Emitted)
	assert.Equal(t, 0, stats[Tertiary].Received)
}

func TestScenarioCABD(t *testing.T) {
	rec := &recorder{}
	s := New[string](rec, DefaultTiers)

	ingestAll(t, s, Secondary, "A", "B")
	assert.Equal(t, Primary, s.Unlocked())
	ingestAll(t, s, Primary, "C")
	assert.Equal(t, Tertiary, s.Unlocked())
	ingestAll(t, s, Tertiary, "D")

	assert.Equal(t, []emitted{
		{"C", Primary}, {"A", Secondary}, {"B", Secondary}, {"D", Tertiary},
	}, rec.calls)
}

func TestCascadeStopsAtEmptyTier(t *testing.T) {
	rec := &recorder{}
	s := New[string](rec, DefaultTiers)

	ingestAll(t, s, Tertiary, "t1", "t2")
	ingestAll(t, s, Primary, "p1")

	// Secondary has nothing buffered, so Tertiary stays held.
	assert.Equal(t, []string{"p1"}, rec.items())
	assert.Equal(t, Secondary, s.Unlocked())
	assert.Equal(t, 2, s.Pending())

	ingestAll(t, s, Secondary, "s1")
	assert.Equal(t, []string{"p1", "s1", "t1", "t2"}, rec.items())
	assert.Equal(t, 0, s.Pending())
}

func TestTierAdvancesOnlyOnFirstItem(t *testing.T) {
	rec := &recorder{}
	s := New[string](rec, DefaultTiers)

	require.NoError(t, s.Ingest("p1", Primary))
	assert.Equal(t, Secondary, s.Unlocked())

	// Secondary items arriving now buffer nothing: Secondary is unlocked.
	// Later Primary items must not move the pointer again.
	for i := 2; i <= 10; i++ {
		require.NoError(t, s.Ingest(fmt.Sprintf("p%d", i), Primary))
		assert.Equal(t, Secondary, s.Unlocked())
	}

	require.NoError(t, s.Ingest("s1", Secondary))
	assert.Equal(t, Tertiary, s.Unlocked())
	require.NoError(t, s.Ingest("s2", Secondary))
	assert.Equal(t, Tertiary, s.Unlocked())
}

func TestLateHigherTierEmitsImmediately(t *testing.T) {
	rec := &recorder{}
	s := New[string](rec, DefaultTiers)

	ingestAll(t, s, Secondary, "s1")
	ingestAll(t, s, Primary, "p1")
	ingestAll(t, s, Tertiary, "t1")
	ingestAll(t, s, Secondary, "s2")
	ingestAll(t, s, Primary, "p2")

	assert.Equal(t, []string{"p1", "s1", "t1", "s2", "p2"}, rec.items())
}

func TestSingleTier(t *testing.T) {
	rec := &recorder{}
	s := New[string](rec, 1)

	ingestAll(t, s, Primary, "a", "b")
	assert.Equal(t, []string{"a", "b"}, rec.items())

	err := s.Ingest("x", Secondary)
	assert.ErrorIs(t, err, ErrUnknownCategory)
}

func TestFiveTiersCascade(t *testing.T) {
	rec := &recorder{}
	s := New[string](rec, 5)

	ingestAll(t, s, 4, "e")
	ingestAll(t, s, 2, "c")
	ingestAll(t, s, 1, "b")
	ingestAll(t, s, 0, "a")

	// Tier 3 is empty, so the cascade stops there with "e" still held.
	assert.Equal(t, []string{"a", "b", "c"}, rec.items())
	assert.Equal(t, Category(3), s.Unlocked())

	ingestAll(t, s, 3, "d")
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, rec.items())
}

func TestUnknownCategory(t *testing.T) {
	rec := &recorder{}
	s := New[string](rec, DefaultTiers)

	assert.ErrorIs(t, s.Ingest("x", Category(-1)), ErrUnknownCategory)
	assert.ErrorIs(t, s.Ingest("x", Category(DefaultTiers)), ErrUnknownCategory)
	assert.ErrorIs(t, s.SetTotal(Category(7), 1), ErrUnknownCategory)
	assert.Empty(t, rec.calls)
}

func TestOutOfOrderStillEmits(t *testing.T) {
	rec := &recorder{}
	s := New[string](rec, DefaultTiers)

	// Force the pointer past Secondary without Secondary producing anything.
	// Unreachable through Ingest alone, so poke the state directly.
	s.unlocked = int(Tertiary)

	err := s.Ingest("s1", Secondary)
	assert.ErrorIs(t, err, ErrOutOfOrder)
	assert.NoError(t, s.Ingest("s2", Secondary), "only the first item is flagged")
	assert.Equal(t, []string{"s1", "s2"}, rec.items())
	assert.Equal(t, Tertiary, s.Unlocked())
}

func TestIngestBatch(t *testing.T) {
	rec := &recorder{}
	s := New[string](rec, DefaultTiers)

	require.NoError(t, s.IngestBatch([]string{"t1", "t2"}, Tertiary))
	require.NoError(t, s.IngestBatch([]string{"s1"}, Secondary))
	require.NoError(t, s.IngestBatch([]string{"p1", "p2"}, Primary))

	assert.Equal(t, []string{"p1", "s1", "t1", "t2", "p2"}, rec.items())
	assert.ErrorIs(t, s.IngestBatch([]string{"z"}, Category(9)), ErrUnknownCategory)
}

func TestSetTotalAndStats(t *testing.T) {
	rec := &recorder{}
	s := New[string](rec, DefaultTiers)

	require.NoError(t, s.SetTotal(Secondary, 2))
	require.NoError(t, s.IngestBatch([]string{"s1", "s2"}, Secondary))

	stats := s.Stats()
	require.Len(t, stats, DefaultTiers)
	assert.Equal(t, CategoryStats{Category: Secondary, Received: 2, Buffered: 2, Total: 2}, stats[Secondary])
	assert.False(t, stats[Secondary].Complete())
	assert.Equal(t, -1, stats[Primary].Total)

	require.NoError(t, s.Ingest("p1", Primary))
	stats = s.Stats()
	assert.True(t, stats[Secondary].Complete())
	assert.Equal(t, 1, stats[Primary].Emitted)
}

func TestCloseDropsBuffered(t *testing.T) {
	rec := &recorder{}
	s := New[string](rec, DefaultTiers)

	ingestAll(t, s, Secondary, "s1", "s2")
	ingestAll(t, s, Tertiary, "t1")
	s.Close()
	s.Close()

	assert.ErrorIs(t, s.Ingest("p1", Primary), ErrClosed)
	assert.ErrorIs(t, s.IngestBatch([]string{"p2"}, Primary), ErrClosed)
	assert.Empty(t, rec.calls)
	assert.Equal(t, 0, s.Pending())

	stats := s.Stats()
	assert.Equal(t, 2, stats[Secondary].Dropped)
	assert.Equal(t, 1, stats[Tertiary].Dropped)
}

func TestNewPanics(t *testing.T) {
	assert.Panics(t, func() { New[string](nil, 3) })
	assert.Panics(t, func() { New[string](&recorder{}, 0) })
}

func TestSinkFunc(t *testing.T) {
	var got []string
	s := New[string](SinkFunc[string](func(item string, c Category) {
		got = append(got, c.String()+":"+item)
	}), DefaultTiers)

	ingestAll(t, s, Primary, "a")
	ingestAll(t, s, Secondary, "b")
	assert.Equal(t, []string{"primary:a", "secondary:b"}, got)
}

func TestCategoryString(t *testing.T) {
	assert.Equal(t, "primary", Primary.String())
	assert.Equal(t, "secondary", Secondary.String())
	assert.Equal(t, "tertiary", Tertiary.String())
	assert.Equal(t, "tier5", Category(5).String())
}

// TestRandomArrivalOrders feeds whole batches in every completion order with
// random sizes and checks the ordering guarantees that hold for all of them.
func TestRandomArrivalOrders(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))

	for round := 0; round < 500; round++ {
		sizes := make([]int, DefaultTiers)
		batches := make([][]string, DefaultTiers)
		for c := range batches {
			sizes[c] = rng.IntN(5)
			for i := 0; i < sizes[c]; i++ {
				batches[c] = append(batches[c], fmt.Sprintf("%d-%d", c, i))
			}
		}
		order := rng.Perm(DefaultTiers)

		rec := &recorder{}
		s := New[string](rec, DefaultTiers)
		for _, c := range order {
			require.NoError(t, s.IngestBatch(batches[c], Category(c)))
		}

		seen := make(map[string]bool)
		next := make([]int, DefaultTiers)
		firstSeen := []Category{}
		for _, e := range rec.calls {
			require.False(t, seen[e.item], "round %d: %s emitted twice", round, e.item)
			seen[e.item] = true

			want := fmt.Sprintf("%d-%d", e.cat, next[e.cat])
			require.Equal(t, want, e.item, "round %d: intra-tier order broken", round)
			if next[e.cat] == 0 {
				firstSeen = append(firstSeen, e.cat)
			}
			next[e.cat]++
		}

		for i := 1; i < len(firstSeen); i++ {
			require.Less(t, firstSeen[i-1], firstSeen[i], "round %d: tiers started out of priority order", round)
		}

		stats := s.Stats()
		for c, st := range stats {
			require.Equal(t, sizes[c], st.Emitted+st.Buffered, "round %d tier %d", round, c)
		}

		if sizes[Primary] > 0 && sizes[Secondary] > 0 {
			require.Len(t, rec.calls, sizes[0]+sizes[1]+sizes[2], "round %d: items lost (order %v, sizes %v)", round, order, sizes)
		}
	}
}

func TestConcurrentBatchesStayContiguous(t *testing.T) {
	var mu sync.Mutex
	var calls []emitted
	sink := SinkFunc[string](func(item string, c Category) {
		mu.Lock()
		calls = append(calls, emitted{item, c})
		mu.Unlock()
	})

	for round := 0; round < 50; round++ {
		calls = nil
		s := New[string](sink, DefaultTiers)

		var wg sync.WaitGroup
		errs := make(chan error, DefaultTiers)
		for c := 0; c < DefaultTiers; c++ {
			batch := make([]string, 20)
			for i := range batch {
				batch[i] = fmt.Sprintf("%d-%d", c, i)
			}
			wg.Add(1)
			go func(c Category, batch []string) {
				defer wg.Done()
				errs <- s.IngestBatch(batch, c)
			}(Category(c), batch)
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}

		require.Len(t, calls, 60)
		// Primary, Secondary and Tertiary each begin in priority order.
		starts := map[Category]int{}
		for i, e := range calls {
			if _, ok := starts[e.cat]; !ok {
				starts[e.cat] = i
			}
		}
		assert.Less(t, starts[Primary], starts[Secondary])
		assert.Less(t, starts[Secondary], starts[Tertiary])
	}
}

func TestErrorsWrapSentinels(t *testing.T) {
	s := New[string](&recorder{}, 2)
	err := s.Ingest("x", Category(2))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownCategory))
	assert.Contains(t, err.Error(), "2")
}
