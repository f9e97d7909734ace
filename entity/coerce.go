/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package entity

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/go-openapi/strfmt"
	"github.com/suparena/entitysync/errors"
)

// coerce converts a decoded payload value to the declared field format.
// nil always passes through unchanged.
func coerce(f Field, v any) (any, error) {
	if v == nil {
		return nil, nil
	}

	switch f.Format {
	case FormatAny:
		return v, nil

	case FormatString:
		if s, ok := v.(string); ok {
			return s, nil
		}
		return fmt.Sprint(v), nil

	case FormatInt:
		switch tv := v.(type) {
		case float64:
			if tv != math.Trunc(tv) {
				return nil, errors.NewValidationError(f.Name, fmt.Sprintf("%v is not an integer", tv))
			}
			return int64(tv), nil
		case json.Number:
			i, err := tv.Int64()
			if err != nil {
				return nil, errors.NewValidationError(f.Name, err.Error())
			}
			return i, nil
		case int:
			return int64(tv), nil
		case int32:
			return int64(tv), nil
		case int64:
			return tv, nil
		case string:
			i, err := strconv.ParseInt(tv, 10, 64)
			if err != nil {
				return nil, errors.NewValidationError(f.Name, err.Error())
			}
			return i, nil
		}

	case FormatFloat:
		switch tv := v.(type) {
		case float64:
			return tv, nil
		case json.Number:
			return tv.Float64()
		case int:
			return float64(tv), nil
		case int64:
			return float64(tv), nil
		}

	case FormatBool:
		if b, ok := v.(bool); ok {
			return b, nil
		}

	case FormatDateTime:
		switch tv := v.(type) {
		case strfmt.DateTime:
			return tv, nil
		case time.Time:
			return strfmt.DateTime(tv), nil
		case string:
			dt, err := strfmt.ParseDateTime(tv)
			if err != nil {
				return nil, errors.NewValidationError(f.Name, err.Error())
			}
			return dt, nil
		}

	case FormatDate:
		switch tv := v.(type) {
		case strfmt.Date:
			return tv, nil
		case string:
			t, err := time.Parse(strfmt.RFC3339FullDate, tv)
			if err != nil {
				return nil, errors.NewValidationError(f.Name, err.Error())
			}
			return strfmt.Date(t), nil
		}

	case FormatUUID:
		if s, ok := v.(string); ok {
			if !strfmt.IsUUID(s) {
				return nil, errors.NewValidationError(f.Name, fmt.Sprintf("%q is not a uuid", s))
			}
			return strfmt.UUID(s), nil
		}

	default:
		return nil, errors.NewValidationError(f.Name, fmt.Sprintf("unknown format %q", f.Format))
	}

	return nil, errors.NewValidationError(f.Name, fmt.Sprintf("cannot use %T as %s", v, f.Format))
}
