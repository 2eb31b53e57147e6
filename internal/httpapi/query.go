package httpapi

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/roach88/tally/internal/filter"
	"github.com/roach88/tally/internal/paging"
)

// MaxLimit caps the page size a client may request.
const MaxLimit = paging.MaxPageSize

// Query parameter names.
const (
	paramOffset      = "offset"
	paramLimit       = "limit"
	paramSearch      = "search"
	paramToggle      = "toggle"
	paramFrom        = "from"
	paramTo          = "to"
	paramMarketplace = "marketplace"
	paramSort        = "sort"
	paramDesc        = "desc"
)

// EncodeQuery renders everything but the table type of fc, plus the page
// window, as query parameters. Only active toggles are sent.
func EncodeQuery(fc filter.Context, offset, limit int) url.Values {
	q := url.Values{}
	q.Set(paramOffset, strconv.Itoa(offset))
	q.Set(paramLimit, strconv.Itoa(limit))
	if fc.SearchText != "" {
		q.Set(paramSearch, fc.SearchText)
	}
	for _, name := range fc.ActiveToggles() {
		q.Add(paramToggle, name)
	}
	if fc.Period.From != "" {
		q.Set(paramFrom, fc.Period.From)
	}
	if fc.Period.To != "" {
		q.Set(paramTo, fc.Period.To)
	}
	if fc.Marketplace != "" {
		q.Set(paramMarketplace, fc.Marketplace)
	}
	if fc.Sort.Field != "" {
		q.Set(paramSort, fc.Sort.Field)
		if fc.Sort.Descending {
			q.Set(paramDesc, "true")
		}
	}
	return q
}

// DecodeQuery is the inverse of EncodeQuery. A missing limit means
// paging.DefaultPageSize.
func DecodeQuery(tableType string, q url.Values) (filter.Context, int, int, error) {
	offset, err := intParam(q, paramOffset, 0)
	if err != nil {
		return filter.Context{}, 0, 0, err
	}
	limit, err := intParam(q, paramLimit, paging.DefaultPageSize)
	if err != nil {
		return filter.Context{}, 0, 0, err
	}
	if offset < 0 {
		return filter.Context{}, 0, 0, fmt.Errorf("offset must not be negative")
	}
	if limit < 1 || limit > MaxLimit {
		return filter.Context{}, 0, 0, fmt.Errorf("limit must be between 1 and %d", MaxLimit)
	}

	fc := filter.Context{
		TableType:   tableType,
		SearchText:  q.Get(paramSearch),
		Period:      filter.Period{From: q.Get(paramFrom), To: q.Get(paramTo)},
		Marketplace: q.Get(paramMarketplace),
	}
	for _, name := range q[paramToggle] {
		fc = fc.WithToggle(name, true)
	}
	if field := q.Get(paramSort); field != "" {
		desc, err := strconv.ParseBool(q.Get(paramDesc))
		if err != nil && q.Get(paramDesc) != "" {
			return filter.Context{}, 0, 0, fmt.Errorf("invalid %s: %w", paramDesc, err)
		}
		fc.Sort = filter.Sort{Field: field, Descending: desc}
	}
	return fc, offset, limit, nil
}

func intParam(q url.Values, name string, def int) (int, error) {
	raw := q.Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", name, raw)
	}
	return n, nil
}
