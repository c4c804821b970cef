package report

import "strconv"

// Percent is a completion percentage that may be undefined, e.g. for an
// epic with no estimated work. Undefined values propagate through
// averaging the way float NaN would, but explicitly.
type Percent struct {
	value   float64
	defined bool
}

// PercentOf returns 100*done/total, undefined when total is zero.
func PercentOf(done, total float64) Percent {
	if total == 0 {
		return Percent{}
	}
	return Percent{value: 100 * done / total, defined: true}
}

// Defined reports whether the percentage holds a numeric value.
func (p Percent) Defined() bool { return p.defined }

// Value returns the numeric percentage; only meaningful when Defined.
func (p Percent) Value() float64 { return p.value }

// String renders one decimal place, or "nan" when undefined.
func (p Percent) String() string {
	if !p.defined {
		return "nan"
	}
	return strconv.FormatFloat(p.value, 'f', 1, 64)
}

// AveragePercent is the unweighted mean. An undefined member makes the
// whole mean undefined; an empty input is undefined.
func AveragePercent(values []Percent) Percent {
	if len(values) == 0 {
		return Percent{}
	}
	var sum float64
	for _, v := range values {
		if !v.defined {
			return Percent{}
		}
		sum += v.value
	}
	return Percent{value: sum / float64(len(values)), defined: true}
}
