package schema

import (
	"fmt"
	"slices"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/office-scraper/internal/extract"
	"github.com/sells-group/office-scraper/internal/model"
)

func addr(i int, attr extract.Attr, v string) extract.Field {
	return extract.Field{Group: extract.GroupAddress, Index: i, Attr: attr, Value: v}
}

func official(i int, attr extract.Attr, v string) extract.Field {
	return extract.Field{Group: extract.GroupOfficial, Index: i, Attr: attr, Value: v}
}

func baseTable(n int) *model.SourceTable {
	records := make([][]string, n)
	for i := range records {
		records[i] = []string{"AL", fmt.Sprintf("P%d", i), fmt.Sprintf("https://example.org/%d", i)}
	}
	return model.NewSourceTable([]string{"State", "Precinct", "Link"}, records, "Link")
}

func TestAccumulator_FirstSeenOrder(t *testing.T) {
	t.Parallel()

	acc := NewAccumulator()
	acc.Merge(0, extract.Fields{addr(1, extract.AttrAddress, "a"), official(1, extract.AttrName, "n")})
	acc.Merge(1, extract.Fields{addr(1, extract.AttrEmail, "e"), addr(1, extract.AttrAddress, "b")})

	assert.Equal(t, []string{"Address 1", "Official 1 Name", "Email 1"}, acc.Columns())
}

func TestAccumulator_MonotonicColumns(t *testing.T) {
	t.Parallel()

	acc := NewAccumulator()
	batches := []extract.Fields{
		{addr(1, extract.AttrAddress, "a")},
		nil,
		{addr(1, extract.AttrAddress, "b"), addr(2, extract.AttrAddress, "c")},
		{official(1, extract.AttrTitle, "Clerk")},
		{addr(1, extract.AttrAddress, "d")},
	}

	prev := []string{}
	for i, fs := range batches {
		acc.Merge(i, fs)
		cur := acc.Columns()
		require.GreaterOrEqual(t, len(cur), len(prev))
		assert.Equal(t, prev, cur[:len(prev)], "earlier columns keep their position")
		prev = cur
	}
	assert.Equal(t, 3, acc.Len())
}

func TestAccumulator_MaterializeAligned(t *testing.T) {
	t.Parallel()

	base := baseTable(3)
	acc := NewAccumulator()
	acc.Merge(0, extract.Fields{addr(1, extract.AttrAddress, "1 Main")})
	acc.Merge(2, extract.Fields{addr(1, extract.AttrAddress, "3 Main"), addr(1, extract.AttrPhone, "555")})

	tbl := acc.Materialize(base)

	want := &Table{
		Header: []string{"State", "Precinct", "Link", "Address 1", "Phone 1"},
		Rows: [][]string{
			{"AL", "P0", "https://example.org/0", "1 Main", ""},
			{"AL", "P1", "https://example.org/1", "", ""},
			{"AL", "P2", "https://example.org/2", "3 Main", "555"},
		},
	}
	if diff := cmp.Diff(want, tbl); diff != "" {
		t.Errorf("Materialize() mismatch (-want +got):\n%s", diff)
	}
	for _, row := range tbl.Rows {
		assert.Len(t, row, len(tbl.Header))
	}
}

func TestAccumulator_ColumnCollidesWithInput(t *testing.T) {
	t.Parallel()

	base := model.NewSourceTable([]string{"Link", "Address 1"}, [][]string{{"https://x.org", "old"}}, "Link")
	acc := NewAccumulator()
	acc.Merge(0, extract.Fields{addr(1, extract.AttrAddress, "new")})

	tbl := acc.Materialize(base)
	assert.Equal(t, []string{"Link", "Address 1"}, tbl.Header)
	assert.Equal(t, []string{"https://x.org", "new"}, tbl.Rows[0])
}

func TestAccumulator_EmptyCrawl(t *testing.T) {
	t.Parallel()

	base := baseTable(2)
	tbl := NewAccumulator().Materialize(base)
	assert.Equal(t, base.Header, tbl.Header)
	require.Len(t, tbl.Rows, 2)
	assert.Equal(t, base.Rows[1].Values, tbl.Rows[1])
}

func TestAccumulator_MaterializeDoesNotAliasInput(t *testing.T) {
	t.Parallel()

	base := baseTable(1)
	tbl := NewAccumulator().Materialize(base)
	tbl.Rows[0][0] = "changed"
	assert.Equal(t, "AL", base.Rows[0].Values[0])
}

func TestAccumulator_ConcurrentMerge(t *testing.T) {
	t.Parallel()

	acc := NewAccumulator()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(row int) {
			defer wg.Done()
			acc.Merge(row, extract.Fields{
				addr(1, extract.AttrAddress, "x"),
				addr(row%5+1, extract.AttrPhone, "p"),
			})
		}(i)
	}
	wg.Wait()

	cols := acc.Columns()
	assert.Len(t, cols, 6)
	seen := make(map[string]bool)
	for _, c := range cols {
		assert.False(t, seen[c], "duplicate column %q", c)
		seen[c] = true
	}
	tbl := acc.Materialize(baseTable(50))
	phone5 := slices.Index(tbl.Header, "Phone 5")
	require.GreaterOrEqual(t, phone5, 0)
	assert.Equal(t, "p", tbl.Rows[49][phone5])
	assert.Empty(t, tbl.Rows[48][phone5])
}
