package nn

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Device is an opaque compute placement tag. The reference runtime executes
// everything on the host; the tag only tracks where a tensor was placed.
type Device string

const CPU Device = "cpu"

func CudaDevice(id int) Device {
	return Device(fmt.Sprintf("cuda:%d", id))
}

// Tensor is a dense 2D value with a device tag. Token id and mask tensors
// store their integers as float64 entries.
type Tensor struct {
	data   *mat.Dense
	device Device
}

func NewTensor(rows, cols int) *Tensor {
	return &Tensor{
		data:   mat.NewDense(rows, cols, nil),
		device: CPU,
	}
}

func FromDense(data *mat.Dense) *Tensor {
	return &Tensor{
		data:   data,
		device: CPU,
	}
}

func FromInts(values [][]int) *Tensor {
	rows := len(values)
	cols := 0
	if rows > 0 {
		cols = len(values[0])
	}
	tensor := NewTensor(rows, cols)
	for i, row := range values {
		for j, value := range row {
			tensor.data.Set(i, j, float64(value))
		}
	}
	return tensor
}

func (t *Tensor) Dims() (int, int) {
	return t.data.Dims()
}

func (t *Tensor) At(i, j int) float64 {
	return t.data.At(i, j)
}

func (t *Tensor) IntAt(i, j int) int {
	return int(t.data.At(i, j))
}

func (t *Tensor) Set(i, j int, value float64) {
	t.data.Set(i, j, value)
}

func (t *Tensor) Dense() *mat.Dense {
	return t.data
}

func (t *Tensor) Device() Device {
	return t.device
}

// To moves the tensor to a device. The reference runtime keeps the data in
// host memory either way, so only the tag changes.
func (t *Tensor) To(device Device) *Tensor {
	t.device = device
	return t
}

func (t *Tensor) Clone() *Tensor {
	clone := &mat.Dense{}
	clone.CloneFrom(t.data)
	return &Tensor{
		data:   clone,
		device: t.device,
	}
}

// DropLastCol returns a copy without the final column, e.g. target[:, :-1].
func (t *Tensor) DropLastCol() *Tensor {
	rows, cols := t.data.Dims()
	out := NewTensor(rows, cols-1)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols-1; j++ {
			out.data.Set(i, j, t.data.At(i, j))
		}
	}
	out.device = t.device
	return out
}

// DropFirstCol returns a copy without the first column, e.g. target[:, 1:].
func (t *Tensor) DropFirstCol() *Tensor {
	rows, cols := t.data.Dims()
	out := NewTensor(rows, cols-1)
	for i := 0; i < rows; i++ {
		for j := 1; j < cols; j++ {
			out.data.Set(i, j-1, t.data.At(i, j))
		}
	}
	out.device = t.device
	return out
}

// MaskedFillEqual replaces every entry equal to value with fill, in place.
func (t *Tensor) MaskedFillEqual(value, fill float64) *Tensor {
	rows, cols := t.data.Dims()
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if t.data.At(i, j) == value {
				t.data.Set(i, j, fill)
			}
		}
	}
	return t
}

// SliceRows returns a copy of rows [from, to).
func (t *Tensor) SliceRows(from, to int) *Tensor {
	_, cols := t.data.Dims()
	out := NewTensor(to-from, cols)
	for i := from; i < to; i++ {
		for j := 0; j < cols; j++ {
			out.data.Set(i-from, j, t.data.At(i, j))
		}
	}
	out.device = t.device
	return out
}
