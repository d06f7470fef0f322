package stardex

import (
	"context"
	"net/url"
	"strconv"
)

// SearchTypeNames searches type names by substring. Pass limit = 0 to
// use the server default.
func (c *Client) SearchTypeNames(ctx context.Context, query string, limit int) ([]TypeName, error) {
	q := url.Values{}
	q.Set("q", query)
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	var list typeNameList
	if err := c.get(ctx, "/type-names/search", q, &list); err != nil {
		return nil, err
	}
	return list.Items, nil
}

// TypeName fetches a single type name by its ID.
func (c *Client) TypeName(ctx context.Context, typeID uint32) (TypeName, error) {
	var tn TypeName
	path := "/type-names/" + strconv.FormatUint(uint64(typeID), 10)
	if err := c.get(ctx, path, nil, &tn); err != nil {
		return TypeName{}, err
	}
	return tn, nil
}
