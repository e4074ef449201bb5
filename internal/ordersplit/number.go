package ordersplit

import (
	"fmt"
	"sort"

	"github.com/rockcreekarms/ordersync-backend/pkg/enums"
	pkgerrors "github.com/rockcreekarms/ordersync-backend/pkg/errors"
)

const (
	testModePrefix = "test"

	singleGroupSuffix = "0"
	parentSuffix      = "Z"
)

// Numbering is the full set of order numbers derived from one base sequence.
// Parent is a label only; no record is ever created for it.
type Numbering struct {
	Parent   string
	Children map[enums.FulfillmentPath]string
}

// NumberOrder derives the order numbers for a set of group keys. It is a pure
// function of its inputs: the same sequence, mode, and keys always yield the
// same numbers, which is what makes re-running a sync safe.
//
// A single group gets suffix "0" and the parent equals the child. Multiple
// groups get "A", "B", "C"... assigned against the sorted group keys, and the
// parent gets suffix "Z".
func NumberOrder(baseSequence int64, testMode bool, keys []enums.FulfillmentPath) (Numbering, error) {
	if baseSequence <= 0 {
		return Numbering{}, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("base sequence must be positive, got %d", baseSequence))
	}
	if len(keys) == 0 {
		return Numbering{}, pkgerrors.New(pkgerrors.CodeValidation, "cannot number an order with no groups")
	}
	// 'A' through 'Y' leaves 'Z' free for the parent label.
	if len(keys) > 25 {
		return Numbering{}, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("too many groups to number: %d", len(keys)))
	}

	sorted := make([]enums.FulfillmentPath, len(keys))
	copy(sorted, keys)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	for i := 1; i < len(sorted); i++ {
		if sorted[i] == sorted[i-1] {
			return Numbering{}, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("duplicate group key %q", sorted[i]))
		}
	}

	base := FormatBase(baseSequence, testMode)

	numbering := Numbering{Children: make(map[enums.FulfillmentPath]string, len(sorted))}
	if len(sorted) == 1 {
		child := base + singleGroupSuffix
		numbering.Parent = child
		numbering.Children[sorted[0]] = child
		return numbering, nil
	}

	for i, key := range sorted {
		numbering.Children[key] = base + string(rune('A'+i))
	}
	numbering.Parent = base + parentSuffix
	return numbering, nil
}

// FormatBase renders the shared stem of an order's numbers: an optional test
// marker followed by the zero-padded sequence.
func FormatBase(baseSequence int64, testMode bool) string {
	base := fmt.Sprintf("%07d", baseSequence)
	if testMode {
		base = testModePrefix + base
	}
	return base
}
