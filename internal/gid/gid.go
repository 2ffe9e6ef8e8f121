// Package gid encodes and decodes Shopify global ids such as gid://shopify/Product/123.
package gid

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const prefix = "gid://shopify/"

// Resource names used by the sync jobs.
const (
	Product  = "Product"
	Variant  = "ProductVariant"
	Order    = "Order"
	LineItem = "LineItem"
)

var ErrInvalid = errors.New("invalid gid")

// GID is a parsed global id. The zero value is not a valid id.
type GID struct {
	Resource string
	ID       int64
}

func New(resource string, id int64) GID {
	return GID{Resource: resource, ID: id}
}

// Parse accepts gid://shopify/<Resource>/<id>, ignoring a trailing query string.
func Parse(s string) (GID, error) {
	rest, ok := strings.CutPrefix(s, prefix)
	if !ok {
		return GID{}, fmt.Errorf("%w: %q: missing %s prefix", ErrInvalid, s, prefix)
	}
	rest, _, _ = strings.Cut(rest, "?")

	resource, idPart, ok := strings.Cut(rest, "/")
	if !ok || resource == "" || strings.Contains(idPart, "/") {
		return GID{}, fmt.Errorf("%w: %q: want <Resource>/<id>", ErrInvalid, s)
	}

	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil || id <= 0 {
		return GID{}, fmt.Errorf("%w: %q: id must be a positive integer", ErrInvalid, s)
	}
	return GID{Resource: resource, ID: id}, nil
}

func (g GID) String() string {
	return prefix + g.Resource + "/" + strconv.FormatInt(g.ID, 10)
}

func (g GID) MarshalJSON() ([]byte, error) {
	return json.Marshal(g.String())
}

func (g *GID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalid, data)
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*g = parsed
	return nil
}
