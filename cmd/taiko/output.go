package main

import (
	"encoding/json"
	"fmt"
	"io"
)

// TextValuer is implemented by any result this CLI prints, giving it a
// human-readable rendering distinct from its JSON encoding. Grounded on
// tomyan-hubcap's cmd/hubcap/output.go.
type TextValuer interface {
	TextValue() string
}

type textResult string

func (t textResult) TextValue() string { return string(t) }

// outputResult writes v to w in either "text" or "json" form.
func outputResult(w io.Writer, format string, v any) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	default:
		if tv, ok := v.(TextValuer); ok {
			fmt.Fprintln(w, tv.TextValue())
			return nil
		}
		fmt.Fprintln(w, v)
		return nil
	}
}
