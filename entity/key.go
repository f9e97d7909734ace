/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package entity

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

type keyKind uint8

const (
	keyNone keyKind = iota
	keyInt
	keyString
)

// Key is a nullable primary key holding either an integer or a string.
type Key struct {
	kind keyKind
	i    int64
	s    string
}

// NoKey is the zero Key. Entities without a valid key are never registered.
var NoKey = Key{}

// IntKey returns an integer key
func IntKey(i int64) Key {
	return Key{kind: keyInt, i: i}
}

// StringKey returns a string key. An empty string yields NoKey.
func StringKey(s string) Key {
	if s == "" {
		return NoKey
	}
	return Key{kind: keyString, s: s}
}

// KeyOf converts a decoded payload value into a Key. Integral JSON numbers become
// integer keys, non-empty strings become string keys, anything else is NoKey.
func KeyOf(v any) Key {
	switch tv := v.(type) {
	case Key:
		return tv
	case int:
		return IntKey(int64(tv))
	case int32:
		return IntKey(int64(tv))
	case int64:
		return IntKey(tv)
	case uint32:
		return IntKey(int64(tv))
	case float64:
		if tv == math.Trunc(tv) && !math.IsInf(tv, 0) {
			return IntKey(int64(tv))
		}
	case json.Number:
		if i, err := tv.Int64(); err == nil {
			return IntKey(i)
		}
		return StringKey(tv.String())
	case string:
		return StringKey(tv)
	case fmt.Stringer:
		return StringKey(tv.String())
	}
	return NoKey
}

// Canonical turns a string key spelling a decimal integer, such as "42", into
// the integer key. Other keys are returned unchanged.
func (k Key) Canonical() Key {
	if k.kind != keyString {
		return k
	}
	i, err := strconv.ParseInt(k.s, 10, 64)
	if err != nil || strconv.FormatInt(i, 10) != k.s {
		return k
	}
	return IntKey(i)
}

// Valid reports whether the key holds a value
func (k Key) Valid() bool {
	return k.kind != keyNone
}

// IsInt reports whether the key is an integer key
func (k Key) IsInt() bool {
	return k.kind == keyInt
}

// Value returns the key as int64, string or nil
func (k Key) Value() any {
	switch k.kind {
	case keyInt:
		return k.i
	case keyString:
		return k.s
	}
	return nil
}

func (k Key) String() string {
	switch k.kind {
	case keyInt:
		return strconv.FormatInt(k.i, 10)
	case keyString:
		return k.s
	}
	return ""
}

// IdentityKey identifies one backend record: the backend instance that produced it,
// its entity type and its primary key.
type IdentityKey struct {
	Backend string
	Type    string
	ID      Key
}

func (k IdentityKey) String() string {
	return fmt.Sprintf("%s|%s|%s", k.Backend, k.Type, k.ID)
}
