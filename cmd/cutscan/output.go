package main

import (
	"encoding/json"
	"io"
	"math"
	"strconv"
	"strings"
)

// #region output
func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatFloat(v float64) string {
	if math.IsInf(v, 1) {
		return "inf"
	}
	return strconv.FormatFloat(v, 'g', 6, 64)
}

func formatCut(cut []float64) string {
	if len(cut) == 0 {
		return "-"
	}
	parts := make([]string, len(cut))
	for i, v := range cut {
		parts[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// #endregion output
