package score

import (
	"fmt"
	"strconv"
)

const present = "present"

// Features is the flattened view of an input that a coefficient table reads.
// A feature that was never set is treated as missing and contributes the
// neutral value of its factor.
type Features struct {
	numbers map[string]float64
	labels  map[string]string
}

func NewFeatures() Features {
	return Features{
		numbers: make(map[string]float64),
		labels:  make(map[string]string),
	}
}

func (f Features) SetNumber(name string, v float64) {
	f.numbers[name] = v
}

func (f Features) SetLabel(name, v string) {
	f.labels[name] = v
}

// Flag sets the label "present" for name when on is true.
func (f Features) Flag(name string, on bool) {
	if on {
		f.labels[name] = present
	}
}

func (f Features) Number(name string) (float64, bool) {
	v, ok := f.numbers[name]
	return v, ok
}

func (f Features) Label(name string) (string, bool) {
	v, ok := f.labels[name]
	return v, ok
}

// Eval resolves the factor against fs. applied is false when the feature is
// missing; an error means the table cannot describe the feature's value.
func (f *Factor) Eval(fs Features) (value float64, level string, applied bool, err error) {
	if label, ok := fs.Label(f.Feature); ok {
		if len(f.Levels) == 0 {
			return 0, "", false, fmt.Errorf("factor %s: no levels for label '%s'", f.Name, label)
		}
		v, found := f.Levels[label]
		if !found {
			return 0, "", false, fmt.Errorf("factor %s: unrecognized level '%s'", f.Name, label)
		}
		return v, label, true, nil
	}

	x, ok := fs.Number(f.Feature)
	if !ok {
		return 0, "", false, nil
	}
	level = strconv.FormatFloat(x, 'f', -1, 64)

	if f.Linear != nil {
		delta := x - f.Linear.Reference
		if f.Linear.Floor && delta < 0 {
			delta = 0
		}
		return f.Linear.Slope * delta, level, true, nil
	}

	for _, b := range f.Brackets {
		if b.Below == nil || x < *b.Below {
			return b.Value, level, true, nil
		}
	}
	return 0, "", false, fmt.Errorf("factor %s: no bracket for value %s", f.Name, level)
}

// ReferenceValue resolves the level named by the Reference feature. ok is
// false when the factor has no reference or the feature is missing.
func (f *Factor) ReferenceValue(fs Features) (value float64, ok bool, err error) {
	if f.Reference == "" {
		return 0, false, nil
	}
	label, found := fs.Label(f.Reference)
	if !found {
		return 0, false, nil
	}
	v, known := f.Levels[label]
	if !known {
		return 0, false, fmt.Errorf("factor %s: unrecognized reference level '%s'", f.Name, label)
	}
	return v, true, nil
}
