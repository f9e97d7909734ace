/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package entity

import (
	"fmt"

	"github.com/suparena/entitysync/errors"
)

// Cardinality of a declared relationship
type Cardinality int

const (
	OneToOne Cardinality = iota
	OneToMany
)

func (c Cardinality) String() string {
	if c == OneToMany {
		return "one-to-many"
	}
	return "one-to-one"
}

// Field formats understood by Apply
const (
	FormatAny      = ""
	FormatString   = "string"
	FormatInt      = "int"
	FormatFloat    = "float"
	FormatBool     = "bool"
	FormatDateTime = "date-time"
	FormatDate     = "date"
	FormatUUID     = "uuid"
)

// DefaultKeyField is used when a Definition does not name its key field
const DefaultKeyField = "id"

// Field declares a scalar field
type Field struct {
	Name   string
	Format string
}

// Relationship declares a link from one entity type to another.
//
// A one-to-one relationship finds the related key in the payload field KeyField
// (default "<Name>Id"). A one-to-many relationship is loaded by listing Target
// entities whose FilterField equals the owner's key. Either kind may also arrive
// embedded in the payload under Name.
type Relationship struct {
	Name        string
	Target      string
	Cardinality Cardinality
	KeyField    string
	FilterField string
}

// IDField returns the payload field holding the related key of a one-to-one relationship
func (r Relationship) IDField() string {
	if r.KeyField != "" {
		return r.KeyField
	}
	return r.Name + "Id"
}

// Definition is the static shape of one entity type
type Definition struct {
	Type          string
	KeyField      string
	Fields        []Field
	Relationships []Relationship
}

// Key returns the name of the primary key field
func (d *Definition) Key() string {
	if d.KeyField != "" {
		return d.KeyField
	}
	return DefaultKeyField
}

// Field looks up a declared scalar field
func (d *Definition) Field(name string) (Field, bool) {
	for _, f := range d.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Relationship looks up a declared relationship
func (d *Definition) Relationship(name string) (Relationship, bool) {
	for _, r := range d.Relationships {
		if r.Name == name {
			return r, true
		}
	}
	return Relationship{}, false
}

// Validate checks that the definition is usable
func (d *Definition) Validate() error {
	if d.Type == "" {
		return errors.NewValidationError("type", "entity type is required")
	}

	seen := make(map[string]bool, len(d.Fields)+len(d.Relationships))
	for _, f := range d.Fields {
		if seen[f.Name] {
			return errors.NewValidationError(f.Name, fmt.Sprintf("%s: duplicate field", d.Type))
		}
		seen[f.Name] = true
	}

	for _, r := range d.Relationships {
		if seen[r.Name] {
			return errors.NewValidationError(r.Name, fmt.Sprintf("%s: relationship shadows a field", d.Type))
		}
		if r.Target == "" {
			return errors.NewValidationError(r.Name, fmt.Sprintf("%s: relationship has no target type", d.Type))
		}
		seen[r.Name] = true
	}
	return nil
}
