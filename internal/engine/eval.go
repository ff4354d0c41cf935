package engine

import (
	"fmt"
	"strings"

	"github.com/mediascrape/msl/internal/script"
)

// evaluate produces the value of a set statement's expression against
// the element that created the current branch (the document at root).
// Failures are reported by the caller as ExtractionFailed.
func evaluate(expr script.ValueExpr, elem Element) (string, error) {
	switch ex := expr.(type) {
	case script.TextExpr:
		return elem.Text(), nil

	case script.AttrExpr:
		value, ok := elem.Attr(ex.Name)
		if !ok {
			return "", fmt.Errorf("attribute %q not present", ex.Name)
		}
		return applyTransforms(value, ex.Transforms)

	default:
		return "", fmt.Errorf("unsupported value expression %T", expr)
	}
}

// applyTransforms applies an attr expression's transform chain in
// source order.
func applyTransforms(value string, transforms []script.Transform) (string, error) {
	for _, tr := range transforms {
		switch t := tr.(type) {
		case script.SplitTransform:
			parts := strings.Split(value, t.Sep)
			idx := t.Index
			if idx < 0 {
				idx += len(parts)
			}
			if idx < 0 || idx >= len(parts) {
				return "", fmt.Errorf("split index %d out of range for %d parts", t.Index, len(parts))
			}
			value = parts[idx]

		default:
			return "", fmt.Errorf("unsupported transform %T", tr)
		}
	}
	return value, nil
}
