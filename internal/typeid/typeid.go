// Package typeid mints the prefixed, time-sortable IDs of stored records and
// the short UIDs of document elements.
package typeid

import (
	"errors"
	"fmt"

	"go.jetify.com/typeid/v2"
)

var ErrWrongKind = errors.New("wrong id kind")

// Kind is the typeid prefix of one record type.
type Kind string

const (
	User     Kind = "user"
	Project  Kind = "proj"
	Snapshot Kind = "snap"
	Client   Kind = "client"
)

func (k Kind) New() string {
	return typeid.MustGenerate(string(k)).String()
}

// Check reports whether id parses as a typeid of kind k.
func (k Kind) Check(id string) error {
	parsed, err := typeid.Parse(id)
	if err != nil {
		return fmt.Errorf("parse %s id %q: %w", k, id, err)
	}
	if got := Kind(parsed.Prefix()); got != k {
		return fmt.Errorf("%w: %q is a %s id, want %s", ErrWrongKind, id, got, k)
	}
	return nil
}
