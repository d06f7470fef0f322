package stardex

import (
	"context"
	"net/url"
	"strconv"
	"strings"
)

// Near returns all systems within radiusLY light-years of the named
// system, closest first. The origin system itself is not included.
func (c *Client) Near(ctx context.Context, name string, radiusLY float64) ([]Hit, error) {
	q := url.Values{}
	q.Set("name", name)
	q.Set("radius", strconv.FormatFloat(radiusLY, 'f', -1, 64))

	var list hitList
	if err := c.get(ctx, "/systems/near", q, &list); err != nil {
		return nil, err
	}
	return list.Items, nil
}

// Nearest returns the k nearest neighbours of the named system, closest
// first. Pass k = 0 to use the server default.
func (c *Client) Nearest(ctx context.Context, name string, k int) ([]Hit, error) {
	q := url.Values{}
	q.Set("name", name)
	if k > 0 {
		q.Set("k", strconv.Itoa(k))
	}

	var list hitList
	if err := c.get(ctx, "/systems/nearest", q, &list); err != nil {
		return nil, err
	}
	return list.Items, nil
}

// Autocomplete returns system name suggestions for a prefix. Pass
// limit = 0 to use the server default.
func (c *Client) Autocomplete(ctx context.Context, query string, limit int) ([]Suggestion, error) {
	q := url.Values{}
	q.Set("q", query)
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	var list suggestionList
	if err := c.get(ctx, "/systems/autocomplete", q, &list); err != nil {
		return nil, err
	}
	return list.Items, nil
}

// Lookup resolves an exact, case-sensitive system name.
func (c *Client) Lookup(ctx context.Context, name string) (SystemDetail, error) {
	q := url.Values{}
	q.Set("name", name)

	var detail SystemDetail
	if err := c.get(ctx, "/systems/lookup", q, &detail); err != nil {
		return SystemDetail{}, err
	}
	return detail, nil
}

// Bulk fetches multiple systems by ID. Unknown IDs are skipped, so the
// result can be shorter than the request.
func (c *Client) Bulk(ctx context.Context, ids []uint32) ([]SystemDetail, error) {
	var list detailList
	if err := c.get(ctx, "/systems/bulk", idValues(ids), &list); err != nil {
		return nil, err
	}
	return list.Items, nil
}

// Hierarchy returns the constellation and region names for a system.
func (c *Client) Hierarchy(ctx context.Context, systemID uint32) (Hierarchy, error) {
	var h Hierarchy
	path := "/systems/" + strconv.FormatUint(uint64(systemID), 10) + "/hierarchy"
	if err := c.get(ctx, path, nil, &h); err != nil {
		return Hierarchy{}, err
	}
	return h, nil
}

// RegionHierarchy expands a region into its constellations and systems.
func (c *Client) RegionHierarchy(ctx context.Context, regionID uint32) (RegionTree, error) {
	var tree RegionTree
	path := "/regions/" + strconv.FormatUint(uint64(regionID), 10) + "/hierarchy"
	if err := c.get(ctx, path, nil, &tree); err != nil {
		return RegionTree{}, err
	}
	return tree, nil
}

// Connections returns the stargate links touching the given systems.
func (c *Client) Connections(ctx context.Context, ids []uint32) ([]Connection, error) {
	var list connectionList
	if err := c.get(ctx, "/systems/connections", idValues(ids), &list); err != nil {
		return nil, err
	}
	return list.Items, nil
}

func idValues(ids []uint32) url.Values {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatUint(uint64(id), 10)
	}
	q := url.Values{}
	q.Set("ids", strings.Join(parts, ","))
	return q
}
