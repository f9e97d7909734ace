/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/suparena/entitysync/serializer"
	"gopkg.in/yaml.v3"
)

// write prints v in the selected format. Maps keep their key order in json;
// yaml output uses plain maps.
func write(w io.Writer, format string, v any) error {
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(plain(v)); err != nil {
			return err
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("failed to encode output: %w", err)
		}
		return nil
	}
}

func plain(v any) any {
	switch tv := v.(type) {
	case *serializer.Map:
		return tv.Plain()
	case []*serializer.Map:
		out := make([]any, 0, len(tv))
		for _, m := range tv {
			out = append(out, m.Plain())
		}
		return out
	}
	return v
}
