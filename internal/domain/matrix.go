package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Axis is one dimension of the job matrix.
type Axis struct {
	Name   string
	Values []string
}

// Axes preserves the declaration order of the pipeline's matrix dimensions.
type Axes []Axis

// Names returns the axis names in declaration order.
func (a Axes) Names() []string {
	out := make([]string, 0, len(a))
	for _, ax := range a {
		out = append(out, ax.Name)
	}
	return out
}

func (a Axes) has(name string) bool {
	for _, ax := range a {
		if ax.Name == name {
			return true
		}
	}
	return false
}

// Point is one combination of axis values. Axes follows the pipeline's
// declaration order so that Key output and expansion order stay stable.
type Point struct {
	Axes   []string
	Values Vars
}

// Key renders the point as "axis=value,..." in axis order. The empty point
// (no axes) has the empty key.
func (p Point) Key() string {
	if len(p.Axes) == 0 {
		return ""
	}
	parts := make([]string, 0, len(p.Axes))
	for _, ax := range p.Axes {
		parts = append(parts, ax+"="+p.Values[ax])
	}
	return strings.Join(parts, ",")
}

// Value returns the point's value for an axis.
func (p Point) Value(axis string) (string, bool) {
	v, ok := p.Values[axis]
	return v, ok
}

// Selector constrains points per axis: a point matches when, for every
// constrained axis, its value is one of the listed values. The empty
// selector matches everything.
type Selector map[string][]string

// Matches reports whether the point satisfies every axis constraint.
func (s Selector) Matches(p Point) bool {
	for axis, allowed := range s {
		got, ok := p.Value(axis)
		if !ok {
			return false
		}
		found := false
		for _, v := range allowed {
			if v == got {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// ExpandMatrix produces the cross product of the axes in declaration order,
// appends include points, and removes everything an exclude selector matches.
// Exclusion wins over inclusion. Duplicate points are dropped, keeping the
// first occurrence. Empty axes yield the single empty point.
func ExpandMatrix(axes Axes, include []Vars, exclude []Selector) ([]Point, error) {
	if err := validateAxes(axes); err != nil {
		return nil, err
	}

	names := axes.Names()
	points := []Point{{Axes: names, Values: Vars{}}}
	for _, ax := range axes {
		next := make([]Point, 0, len(points)*len(ax.Values))
		for _, p := range points {
			for _, v := range ax.Values {
				vals := Merge(p.Values, nil)
				vals[ax.Name] = v
				next = append(next, Point{Axes: names, Values: vals})
			}
		}
		points = next
	}

	for i, inc := range include {
		p, err := includePoint(axes, inc)
		if err != nil {
			return nil, &OpError{
				Op:   "matrix.expand",
				Kind: KindInvalidConfig,
				Err:  fmt.Errorf("include[%d]: %w", i, err),
			}
		}
		points = append(points, p)
	}

	for i, ex := range exclude {
		for axis := range ex {
			if !axes.has(axis) {
				return nil, &OpError{
					Op:   "matrix.expand",
					Kind: KindInvalidConfig,
					Err:  fmt.Errorf("exclude[%d]: unknown axis %q", i, axis),
				}
			}
		}
	}

	out := make([]Point, 0, len(points))
	seen := map[string]bool{}
	for _, p := range points {
		if seen[p.Key()] {
			continue
		}
		if excluded(p, exclude) {
			continue
		}
		seen[p.Key()] = true
		out = append(out, p)
	}
	return out, nil
}

// ValidateSelector checks that a selector only references declared axes.
func ValidateSelector(axes Axes, s Selector) error {
	for axis := range s {
		if !axes.has(axis) {
			return fmt.Errorf("unknown axis %q", axis)
		}
	}
	return nil
}

func validateAxes(axes Axes) error {
	seen := map[string]bool{}
	for _, ax := range axes {
		if strings.TrimSpace(ax.Name) == "" {
			return &OpError{Op: "matrix.expand", Kind: KindInvalidConfig, Err: errors.New("axis name is empty")}
		}
		if seen[ax.Name] {
			return &OpError{Op: "matrix.expand", Kind: KindInvalidConfig, Err: fmt.Errorf("duplicate axis %q", ax.Name)}
		}
		if len(ax.Values) == 0 {
			return &OpError{Op: "matrix.expand", Kind: KindInvalidConfig, Err: fmt.Errorf("axis %q has no values", ax.Name)}
		}
		seen[ax.Name] = true
	}
	return nil
}

func includePoint(axes Axes, inc Vars) (Point, error) {
	vals := Vars{}
	for axis, v := range inc {
		if !axes.has(axis) {
			return Point{}, fmt.Errorf("unknown axis %q", axis)
		}
		vals[axis] = v
	}
	for _, ax := range axes {
		if _, ok := vals[ax.Name]; !ok {
			return Point{}, fmt.Errorf("missing axis %q", ax.Name)
		}
	}
	return Point{Axes: axes.Names(), Values: vals}, nil
}

func excluded(p Point, exclude []Selector) bool {
	for _, ex := range exclude {
		if len(ex) == 0 {
			continue
		}
		if ex.Matches(p) {
			return true
		}
	}
	return false
}
