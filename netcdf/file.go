package netcdf

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"

	cdf4 "github.com/batchatco/go-native-netcdf/netcdf"
	"github.com/batchatco/go-native-netcdf/netcdf/api"
	"github.com/batchatco/go-native-netcdf/netcdf/cdf"
	"github.com/batchatco/go-native-netcdf/netcdf/util"
)

// Dataset loaded from a netCDF file (classic CDF or HDF5 based netCDF-4).
// Changes are kept in memory and written back, in CDF format, by Close.
type File struct {
	*Memory
	path     string
	readOnly bool
	closed   bool
}

// Open loads the whole file in memory, the file on disk is rewritten on Close
// if the dataset was modified
func Open(path string) (*File, error) {
	memory, err := load(path)
	if err != nil {
		return nil, err
	}
	return &File{Memory: memory, path: path}, nil
}

// OpenReadOnly loads the file. Close never writes it back.
func OpenReadOnly(path string) (*File, error) {
	f, err := Open(path)
	if err != nil {
		return nil, err
	}
	f.readOnly = true
	return f, nil
}

func (f *File) Path() string {
	return f.path
}

// Close writes the dataset back to disk if it was modified
func (f *File) Close() error {
	if f.closed {
		return nil
	}
	f.closed = true

	if f.readOnly || !f.Modified() {
		return nil
	}
	return f.Memory.Save(f.path)
}

func load(path string) (*Memory, error) {
	group, err := cdf4.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open %s: %w", path, err)
	}
	defer group.Close()

	m := NewMemory()
	copyAttributes(&m.attributes, group.Attributes())

	for _, name := range group.ListVariables() {
		vr, err := group.GetVariable(name)
		if err != nil {
			return nil, fmt.Errorf("could not read variable %s from %s: %w", name, path, err)
		}

		data, dtype := toFloats(vr.Values)
		var v *memVariable
		if dtype != Other && len(vr.Dimensions) == 1 {
			if err := m.AddDimension(vr.Dimensions[0], len(data)); err != nil {
				return nil, err
			}
			v = m.newVariable(name, dtype, vr.Dimensions)
			v.data = data
		} else {
			v = m.newVariable(name, Other, vr.Dimensions)
			v.raw = vr.Values
		}
		copyAttributes(&v.attributes, vr.Attributes)
		m.insert(v)
	}

	m.modified = false
	return m, nil
}

func copyAttributes(dst *attributes, src api.AttributeMap) {
	if src == nil {
		return
	}
	onChange := dst.onChange
	dst.onChange = nil
	for _, key := range src.Keys() {
		if value, ok := src.Get(key); ok {
			dst.SetAttribute(key, value)
		}
	}
	dst.onChange = onChange
}

// Save writes the dataset to path as a netCDF classic file.
// The file is written next to the destination and renamed over it.
func (m *Memory) Save(path string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	tmp.Close()
	// Only the unique name is needed, the writer creates the file itself
	os.Remove(tmpName)

	if err := m.write(tmpName); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("could not write %s: %w", path, err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}

	slog.Debug("Saved dataset", "path", path, "variables", len(m.order))
	m.modified = false
	return nil
}

func (m *Memory) write(path string) (err error) {
	cw, err := cdf.OpenWriter(path)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := cw.Close(); closeErr != nil {
			err = errors.Join(err, closeErr)
		}
	}()

	globals, err := toOrderedMap(&m.attributes)
	if err != nil {
		return err
	}
	if err = cw.AddGlobalAttrs(globals); err != nil {
		return err
	}

	for _, name := range m.order {
		v := m.vars[name]

		attrs, err := toOrderedMap(&v.attributes)
		if err != nil {
			return fmt.Errorf("variable %s: %w", name, err)
		}

		values := v.raw
		if !v.opaque() {
			values = fromFloats(v.data, v.dtype, v)
		}

		err = cw.AddVar(name, api.Variable{
			Values:     values,
			Dimensions: v.dims,
			Attributes: attrs,
		})
		if err != nil {
			return fmt.Errorf("variable %s: %w", name, err)
		}
	}
	return nil
}

func toOrderedMap(attrs *attributes) (*util.OrderedMap, error) {
	return util.NewOrderedMap(attrs.keys, attrs.values)
}

func toFloats(values any) ([]float64, DataType) {
	switch v := values.(type) {
	case []int8:
		return convertSlice(v), Int8
	case []uint8:
		return convertSlice(v), Uint8
	case []int16:
		return convertSlice(v), Int16
	case []int32:
		return convertSlice(v), Int32
	case []int64:
		return convertSlice(v), Int64
	case []float32:
		return convertSlice(v), Float32
	case []float64:
		return convertSlice(v), Float64
	}
	return nil, Other
}

type number interface {
	~int8 | ~uint8 | ~int16 | ~int32 | ~int64 | ~float32 | ~float64
}

func convertSlice[T number](values []T) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = float64(v)
	}
	return out
}

func castSlice[T number](values []float64, missing T) []T {
	out := make([]T, len(values))
	for i, v := range values {
		if math.IsNaN(v) {
			out[i] = missing
			continue
		}
		out[i] = T(v)
	}
	return out
}

// Converts the samples back to the variable type. Integer NaNs become the fill value (or 0).
func fromFloats(data []float64, dtype DataType, v Variable) any {
	fill, _ := AttributeFloat(v, "_FillValue")
	switch dtype {
	case Int8:
		return castSlice(data, int8(fill))
	case Uint8:
		return castSlice(data, uint8(fill))
	case Int16:
		return castSlice(data, int16(fill))
	case Int32:
		return castSlice(data, int32(fill))
	case Int64:
		return castSlice(data, int64(fill))
	case Float32:
		return castSlice(data, float32(math.NaN()))
	}
	return castSlice(data, math.NaN())
}
