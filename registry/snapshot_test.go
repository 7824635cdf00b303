package registry

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zero-day-ai/aitool"
	"github.com/zero-day-ai/aitool/descriptor"
)

func testDescriptor(t *testing.T, id string) *descriptor.Descriptor {
	t.Helper()
	d, err := descriptor.NewConfig().SetID(id).SetName(id).Build()
	require.NoError(t, err)
	return d
}

func TestNewSnapshot(t *testing.T) {
	t.Run("builds lookup and ordered set", func(t *testing.T) {
		b := testDescriptor(t, "com.acme.b")
		a := testDescriptor(t, "com.acme.a")

		snap, err := NewSnapshot([]*descriptor.Descriptor{b, a})
		require.NoError(t, err)

		assert.Equal(t, 2, snap.Len())

		got, ok := snap.Lookup("com.acme.a")
		require.True(t, ok)
		assert.Same(t, a, got)

		_, ok = snap.Lookup("com.acme.missing")
		assert.False(t, ok)

		all := snap.All()
		require.Len(t, all, 2)
		assert.Equal(t, "com.acme.a", all[0].ID)
		assert.Equal(t, "com.acme.b", all[1].ID)
	})

	t.Run("rejects duplicate ids", func(t *testing.T) {
		a1 := testDescriptor(t, "com.acme.a")
		a2 := testDescriptor(t, "com.acme.a")

		_, err := NewSnapshot([]*descriptor.Descriptor{a1, a2})
		require.Error(t, err)
		assert.True(t, errors.Is(err, aitool.ErrDuplicateID))
	})

	t.Run("nil entries are skipped", func(t *testing.T) {
		a := testDescriptor(t, "com.acme.a")
		snap, err := NewSnapshot([]*descriptor.Descriptor{nil, a, nil})
		require.NoError(t, err)
		assert.Equal(t, 1, snap.Len())
	})

	t.Run("empty snapshot", func(t *testing.T) {
		snap, err := NewSnapshot(nil)
		require.NoError(t, err)
		assert.Equal(t, 0, snap.Len())
		assert.Empty(t, snap.All())
	})
}

func TestLookupByName(t *testing.T) {
	build := func(t *testing.T, id, name string, category descriptor.Category) *descriptor.Descriptor {
		t.Helper()
		d, err := descriptor.NewConfig().SetID(id).SetName(name).SetCategory(category).Build()
		require.NoError(t, err)
		return d
	}

	t.Run("resolves by tool name", func(t *testing.T) {
		search := build(t, "com.acme.web_search", "web_search", descriptor.CategoryDataRetrieval)
		calc := build(t, "com.acme.calculator", "calculator", descriptor.CategoryComputation)

		snap, err := NewSnapshot([]*descriptor.Descriptor{search, calc})
		require.NoError(t, err)

		got, ok := snap.LookupByName("web_search")
		require.True(t, ok)
		assert.Same(t, search, got)

		_, ok = snap.LookupByName("translator")
		assert.False(t, ok)
	})

	t.Run("name collision resolves to lowest id", func(t *testing.T) {
		second := build(t, "com.beta.search", "search", descriptor.CategoryDataRetrieval)
		first := build(t, "com.alpha.search", "search", descriptor.CategoryDataRetrieval)

		snap, err := NewSnapshot([]*descriptor.Descriptor{second, first})
		require.NoError(t, err)

		got, ok := snap.LookupByName("search")
		require.True(t, ok)
		assert.Equal(t, "com.alpha.search", got.ID)
	})
}

func TestCategories(t *testing.T) {
	build := func(t *testing.T, id string, category descriptor.Category) *descriptor.Descriptor {
		t.Helper()
		d, err := descriptor.NewConfig().SetID(id).SetName(id).SetCategory(category).Build()
		require.NoError(t, err)
		return d
	}

	snap, err := NewSnapshot([]*descriptor.Descriptor{
		build(t, "com.acme.search", descriptor.CategoryDataRetrieval),
		build(t, "com.acme.scrape", descriptor.CategoryDataRetrieval),
		build(t, "com.acme.calc", descriptor.CategoryComputation),
	})
	require.NoError(t, err)

	assert.Equal(t, []descriptor.Category{
		descriptor.CategoryComputation,
		descriptor.CategoryDataRetrieval,
	}, snap.Categories())

	empty, err := NewSnapshot(nil)
	require.NoError(t, err)
	assert.Empty(t, empty.Categories())
}

func TestStore(t *testing.T) {
	t.Run("nil initial serves empty snapshot", func(t *testing.T) {
		s := NewStore(nil)
		assert.Equal(t, 0, s.Current().Len())
		_, ok := s.Lookup("anything")
		assert.False(t, ok)
	})

	t.Run("swap replaces the served snapshot", func(t *testing.T) {
		a := testDescriptor(t, "com.acme.a")
		first, err := NewSnapshot([]*descriptor.Descriptor{a})
		require.NoError(t, err)

		s := NewStore(first)
		_, ok := s.Lookup("com.acme.a")
		assert.True(t, ok)

		b := testDescriptor(t, "com.acme.b")
		second, err := NewSnapshot([]*descriptor.Descriptor{b})
		require.NoError(t, err)

		prev := s.Swap(second)
		assert.Same(t, first, prev)

		_, ok = s.Lookup("com.acme.a")
		assert.False(t, ok)
		_, ok = s.Lookup("com.acme.b")
		assert.True(t, ok)
	})

	t.Run("in-flight readers keep their snapshot", func(t *testing.T) {
		a := testDescriptor(t, "com.acme.a")
		first, err := NewSnapshot([]*descriptor.Descriptor{a})
		require.NoError(t, err)

		s := NewStore(first)
		held := s.Current()

		s.Swap(nil)

		// The held snapshot still resolves even after the swap
		_, ok := held.Lookup("com.acme.a")
		assert.True(t, ok)
	})

	t.Run("concurrent swap and lookup", func(t *testing.T) {
		a := testDescriptor(t, "com.acme.a")
		snap, err := NewSnapshot([]*descriptor.Descriptor{a})
		require.NoError(t, err)

		s := NewStore(snap)

		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 100; j++ {
					s.Lookup("com.acme.a")
					s.Swap(snap)
				}
			}()
		}
		wg.Wait()

		_, ok := s.Lookup("com.acme.a")
		assert.True(t, ok)
	})
}

func TestSourceConfigValidation(t *testing.T) {
	t.Run("endpoints required", func(t *testing.T) {
		_, err := NewSource(SourceConfig{}, NewStore(nil))
		require.Error(t, err)
	})

	t.Run("store required", func(t *testing.T) {
		_, err := NewSource(SourceConfig{Endpoints: []string{"localhost:2379"}}, nil)
		require.Error(t, err)
	})
}
