// Package netcdf exposes the small subset of the netCDF data model needed to QC a
// file: variables with dimensions, key/value attributes and masked sample arrays.
//
// A Dataset can be backed by memory (NewMemory) or by a file on disk (Open), in which
// case the whole file is loaded and written back when the File is closed.
package netcdf

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

var ErrNotFound = errors.New("variable not found")
var ErrUnsupported = errors.New("variable does not hold a one-dimensional numeric array")

type DataType int

const (
	Other DataType = iota
	Int8
	Uint8
	Int16
	Int32
	Int64
	Float32
	Float64
)

func (t DataType) String() string {
	switch t {
	case Int8:
		return "byte"
	case Uint8:
		return "ubyte"
	case Int16:
		return "short"
	case Int32:
		return "int"
	case Int64:
		return "int64"
	case Float32:
		return "float"
	case Float64:
		return "double"
	}
	return "other"
}

func (t DataType) isInteger() bool {
	return t >= Int8 && t <= Int64
}

// Samples of a variable. Mask is true where the sample is missing
type MaskedArray struct {
	Data []float64
	Mask []bool
}

func (m MaskedArray) Len() int {
	return len(m.Data)
}

// Compressed returns the unmasked samples
func (m MaskedArray) Compressed() []float64 {
	out := make([]float64, 0, len(m.Data))
	for i, v := range m.Data {
		if !m.Mask[i] {
			out = append(out, v)
		}
	}
	return out
}

type Attributes interface {
	// Ordered list of attribute names
	AttributeNames() []string
	Attribute(key string) (any, bool)
	SetAttribute(key string, value any)
}

type Variable interface {
	Attributes

	Name() string
	Dimensions() []string
	Type() DataType
	// Total number of samples
	Len() int

	Read() (MaskedArray, error)
	// Masked positions are written as the fill value
	Write(data MaskedArray) error
}

type Dataset interface {
	Attributes

	// Ordered list of variable names
	Variables() []string
	// Returns ErrNotFound if the variable does not exist
	Variable(name string) (Variable, error)
	HasVariable(name string) bool
	// Variables whose string attribute `key` equals `value`, in file order
	VariablesByAttribute(key, value string) []Variable
	// Creates a variable over existing dimensions, initialised to the fill value
	CreateVariable(name string, dtype DataType, dims []string, fill float64) (Variable, error)
}

// AttributeString returns the attribute as a string, or "" if it's missing or not text
func AttributeString(attrs Attributes, key string) string {
	value, ok := attrs.Attribute(key)
	if !ok {
		return ""
	}
	switch v := value.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	}
	return ""
}

// AttributeFloat returns the first element of a numeric attribute
func AttributeFloat(attrs Attributes, key string) (float64, bool) {
	value, ok := attrs.Attribute(key)
	if !ok {
		return 0, false
	}
	return toFloat(value)
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case int8:
		return float64(v), true
	case uint8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case int:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	case []int8:
		if len(v) > 0 {
			return float64(v[0]), true
		}
	case []uint8:
		if len(v) > 0 {
			return float64(v[0]), true
		}
	case []int16:
		if len(v) > 0 {
			return float64(v[0]), true
		}
	case []int32:
		if len(v) > 0 {
			return float64(v[0]), true
		}
	case []int64:
		if len(v) > 0 {
			return float64(v[0]), true
		}
	case []float32:
		if len(v) > 0 {
			return float64(v[0]), true
		}
	case []float64:
		if len(v) > 0 {
			return v[0], true
		}
	}
	return 0, false
}

// Converts a float to the attribute type matching the variable type
func typedScalar(dtype DataType, v float64) any {
	switch dtype {
	case Int8:
		return int8(v)
	case Uint8:
		return uint8(v)
	case Int16:
		return int16(v)
	case Int32:
		return int32(v)
	case Int64:
		return int64(v)
	case Float32:
		return float32(v)
	}
	return v
}

// SplitList splits a space separated attribute value, dropping empty entries
func SplitList(value string) []string {
	return strings.Fields(value)
}

// Builds the mask of a variable from NaNs, `_FillValue` and `missing_value`
func buildMask(v Variable, data []float64) []bool {
	mask := make([]bool, len(data))

	fill, hasFill := AttributeFloat(v, "_FillValue")
	missing, hasMissing := AttributeFloat(v, "missing_value")
	for i, x := range data {
		mask[i] = math.IsNaN(x) ||
			(hasFill && x == fill) ||
			(hasMissing && x == missing)
	}
	return mask
}

func checkLength(name string, expected, got int) error {
	if expected != got {
		return fmt.Errorf("variable %s: expected %d samples, got %d", name, expected, got)
	}
	return nil
}
