package catalog_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shophub/shophub/catalog"
)

func paramsFrom(values map[string]string) catalog.ListParams {
	return catalog.ParseListParams(func(key string) string {
		return values[key]
	})
}

func TestParseListParamsDefaults(t *testing.T) {
	params := paramsFrom(nil)

	assert.Equal(t, 1, params.Page)
	assert.Equal(t, 20, params.Limit)
	assert.Equal(t, 0, params.Offset())
	assert.Nil(t, params.MinPrice)
	assert.Nil(t, params.MaxPrice)

	require.Len(t, params.Sort, 1)
	assert.Equal(t, "created_at", params.Sort[0].Column)
	assert.True(t, params.Sort[0].Desc)
}

func TestParseListParamsFilters(t *testing.T) {
	params := paramsFrom(map[string]string{
		"q":        " headphones ",
		"category": "electronics",
		"minPrice": "10.5",
		"maxPrice": "99.99",
		"page":     "3",
		"limit":    "5",
	})

	assert.Equal(t, "headphones", params.Query)
	assert.Equal(t, "electronics", params.Category)
	require.NotNil(t, params.MinPrice)
	assert.InDelta(t, 10.5, *params.MinPrice, 0.001)
	require.NotNil(t, params.MaxPrice)
	assert.InDelta(t, 99.99, *params.MaxPrice, 0.001)
	assert.Equal(t, 3, params.Page)
	assert.Equal(t, 5, params.Limit)
	assert.Equal(t, 10, params.Offset())
}

func TestParseListParamsSort(t *testing.T) {
	tests := []struct {
		name string
		sort string
		want []catalog.SortField
	}{
		{
			name: "single ascending",
			sort: "price",
			want: []catalog.SortField{{Column: "price"}},
		},
		{
			name: "descending with secondary",
			sort: "-price,title",
			want: []catalog.SortField{{Column: "price", Desc: true}, {Column: "title"}},
		},
		{
			name: "camelCase alias",
			sort: "-createdAt",
			want: []catalog.SortField{{Column: "created_at", Desc: true}},
		},
		{
			name: "unknown fields are dropped",
			sort: "password_hash,-price",
			want: []catalog.SortField{{Column: "price", Desc: true}},
		},
		{
			name: "all unknown falls back to default",
			sort: "nope,also_nope",
			want: []catalog.SortField{{Column: "created_at", Desc: true}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := paramsFrom(map[string]string{"sort": tt.sort})
			assert.Equal(t, tt.want, params.Sort)
		})
	}
}

func TestParseListParamsClampsAndRejectsGarbage(t *testing.T) {
	params := paramsFrom(map[string]string{
		"page":     "-4",
		"limit":    "100000",
		"minPrice": "cheap",
	})

	assert.Equal(t, 1, params.Page)
	assert.Equal(t, 100, params.Limit)
	assert.Nil(t, params.MinPrice)
}
