package netcdf

import (
	"fmt"
	"math"
	"slices"
)

// Ordered attribute storage
type attributes struct {
	keys   []string
	values map[string]any
	// Set when any attribute changes
	onChange func()
}

func newAttributes(onChange func()) attributes {
	return attributes{values: make(map[string]any), onChange: onChange}
}

func (a *attributes) AttributeNames() []string {
	return slices.Clone(a.keys)
}

func (a *attributes) Attribute(key string) (any, bool) {
	v, ok := a.values[key]
	return v, ok
}

func (a *attributes) SetAttribute(key string, value any) {
	if _, ok := a.values[key]; !ok {
		a.keys = append(a.keys, key)
	}
	a.values[key] = value
	if a.onChange != nil {
		a.onChange()
	}
}

// In-memory Dataset
type Memory struct {
	attributes
	order    []string
	vars     map[string]*memVariable
	dims     map[string]int
	modified bool
}

func NewMemory() *Memory {
	m := &Memory{
		vars: make(map[string]*memVariable),
		dims: make(map[string]int),
	}
	m.attributes = newAttributes(m.touch)
	return m
}

func (m *Memory) touch() {
	m.modified = true
}

// Modified reports if the dataset changed since it was created or loaded
func (m *Memory) Modified() bool {
	return m.modified
}

// AddDimension registers a dimension and its length
func (m *Memory) AddDimension(name string, size int) error {
	if existing, ok := m.dims[name]; ok && existing != size {
		return fmt.Errorf("dimension %s already defined with length %d", name, existing)
	}
	m.dims[name] = size
	return nil
}

// Dimension returns the length of a dimension
func (m *Memory) Dimension(name string) (int, bool) {
	size, ok := m.dims[name]
	return size, ok
}

// AddVariable adds a one-dimensional numeric variable.
// The dimension is registered if it does not exist yet.
func (m *Memory) AddVariable(name string, dtype DataType, dim string, data []float64) (Variable, error) {
	if _, ok := m.vars[name]; ok {
		return nil, fmt.Errorf("variable %s already exists", name)
	}
	if err := m.AddDimension(dim, len(data)); err != nil {
		return nil, err
	}

	v := m.newVariable(name, dtype, []string{dim})
	v.data = slices.Clone(data)
	m.insert(v)
	return v, nil
}

// AddOpaque adds a variable whose values are not interpreted (scalars, text,
// multi-dimensional arrays). Its attributes are still accessible.
func (m *Memory) AddOpaque(name string, dims []string, values any) Variable {
	v := m.newVariable(name, Other, dims)
	v.raw = values
	m.insert(v)
	return v
}

func (m *Memory) newVariable(name string, dtype DataType, dims []string) *memVariable {
	v := &memVariable{name: name, dtype: dtype, dims: slices.Clone(dims), touch: m.touch}
	v.attributes = newAttributes(m.touch)
	return v
}

func (m *Memory) insert(v *memVariable) {
	m.vars[v.name] = v
	m.order = append(m.order, v.name)
}

func (m *Memory) Variables() []string {
	return slices.Clone(m.order)
}

func (m *Memory) HasVariable(name string) bool {
	_, ok := m.vars[name]
	return ok
}

func (m *Memory) Variable(name string) (Variable, error) {
	v, ok := m.vars[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return v, nil
}

func (m *Memory) VariablesByAttribute(key, value string) []Variable {
	var out []Variable
	for _, name := range m.order {
		v := m.vars[name]
		if AttributeString(v, key) == value {
			out = append(out, v)
		}
	}
	return out
}

func (m *Memory) CreateVariable(name string, dtype DataType, dims []string, fill float64) (Variable, error) {
	if _, ok := m.vars[name]; ok {
		return nil, fmt.Errorf("variable %s already exists", name)
	}
	if len(dims) != 1 {
		return nil, fmt.Errorf("variable %s: only one-dimensional variables can be created, got %d dimensions", name, len(dims))
	}
	size, ok := m.dims[dims[0]]
	if !ok {
		return nil, fmt.Errorf("variable %s: unknown dimension %s", name, dims[0])
	}

	v := m.newVariable(name, dtype, dims)
	v.data = make([]float64, size)
	for i := range v.data {
		v.data[i] = fill
	}
	v.SetAttribute("_FillValue", typedScalar(dtype, fill))
	m.insert(v)
	m.touch()
	return v, nil
}

type memVariable struct {
	attributes
	name  string
	dims  []string
	dtype DataType
	// Numeric samples, nil for opaque variables
	data []float64
	// Values of opaque variables, passed through untouched
	raw   any
	touch func()
}

func (v *memVariable) Name() string {
	return v.name
}

func (v *memVariable) Dimensions() []string {
	return slices.Clone(v.dims)
}

func (v *memVariable) Type() DataType {
	return v.dtype
}

func (v *memVariable) Len() int {
	return len(v.data)
}

func (v *memVariable) opaque() bool {
	return v.dtype == Other
}

func (v *memVariable) Read() (MaskedArray, error) {
	if v.opaque() {
		return MaskedArray{}, fmt.Errorf("%w: %s", ErrUnsupported, v.name)
	}
	data := slices.Clone(v.data)
	return MaskedArray{Data: data, Mask: buildMask(v, data)}, nil
}

func (v *memVariable) Write(array MaskedArray) error {
	if v.opaque() {
		return fmt.Errorf("%w: %s", ErrUnsupported, v.name)
	}
	if err := checkLength(v.name, len(v.data), len(array.Data)); err != nil {
		return err
	}
	if array.Mask != nil {
		if err := checkLength(v.name, len(v.data), len(array.Mask)); err != nil {
			return err
		}
	}

	fill, hasFill := AttributeFloat(v, "_FillValue")
	for i, x := range array.Data {
		switch {
		case array.Mask != nil && array.Mask[i] && hasFill:
			x = fill
		case array.Mask != nil && array.Mask[i]:
			x = math.NaN()
		case v.dtype.isInteger():
			x = math.Round(x)
		}
		v.data[i] = x
	}
	v.touch()
	return nil
}
