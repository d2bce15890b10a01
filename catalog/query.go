package catalog

import (
	"strconv"
	"strings"
)

const (
	defaultPage  = 1
	defaultLimit = 20
	maxLimit     = 100
)

// sortColumns whitelists the fields a client may sort by. Anything
// else is dropped rather than interpolated into SQL.
var sortColumns = map[string]string{
	"price":      "price",
	"title":      "title",
	"stock":      "stock",
	"createdAt":  "created_at",
	"created_at": "created_at",
}

// SortField is one resolved ordering term.
type SortField struct {
	Column string
	Desc   bool
}

// ListParams are the catalog listing filters, already parsed and
// clamped.
type ListParams struct {
	Query    string
	Category string
	MinPrice *float64
	MaxPrice *float64
	Sort     []SortField
	Page     int
	Limit    int
}

// Offset converts page/limit to a row offset.
func (p ListParams) Offset() int {
	return (p.Page - 1) * p.Limit
}

// ParseListParams reads the listing query string values. Unknown sort
// fields are ignored; page and limit fall back to sane defaults.
func ParseListParams(get func(key string) string) ListParams {
	params := ListParams{
		Query:    strings.TrimSpace(get("q")),
		Category: strings.TrimSpace(get("category")),
		Page:     parsePositiveInt(get("page"), defaultPage),
		Limit:    parsePositiveInt(get("limit"), defaultLimit),
	}

	if params.Limit > maxLimit {
		params.Limit = maxLimit
	}

	if v, err := strconv.ParseFloat(get("minPrice"), 64); err == nil {
		params.MinPrice = &v
	}
	if v, err := strconv.ParseFloat(get("maxPrice"), 64); err == nil {
		params.MaxPrice = &v
	}

	params.Sort = parseSort(get("sort"))

	return params
}

func parseSort(raw string) []SortField {
	if raw == "" {
		return []SortField{{Column: "created_at", Desc: true}}
	}

	var fields []SortField
	for _, term := range strings.Split(raw, ",") {
		term = strings.TrimSpace(term)
		desc := strings.HasPrefix(term, "-")
		term = strings.TrimPrefix(term, "-")

		column, ok := sortColumns[term]
		if !ok {
			continue
		}
		fields = append(fields, SortField{Column: column, Desc: desc})
	}

	if len(fields) == 0 {
		return []SortField{{Column: "created_at", Desc: true}}
	}
	return fields
}

func parsePositiveInt(raw string, fallback int) int {
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return fallback
	}
	return v
}
