package source

import (
	"fmt"

	"github.com/parquet-go/parquet-go"
)

// Transformer is an interface for transforming a parquet value into a different type or representation.
type Transformer interface {

	// Transform takes a parquet.Value and converts it into a different type or representation,
	// returning the transformed value or an error.
	Transform(x parquet.Value) (value any, err error)
}

// NativeTransformer converts parquet values into plain Go values understood by database drivers.
type NativeTransformer struct{}

func (NativeTransformer) Transform(x parquet.Value) (any, error) {
	if x.IsNull() {
		return nil, nil
	}
	switch x.Kind() {
	case parquet.Boolean:
		return x.Boolean(), nil
	case parquet.Int32:
		return x.Int32(), nil
	case parquet.Int64:
		return x.Int64(), nil
	case parquet.Float:
		return x.Float(), nil
	case parquet.Double:
		return x.Double(), nil
	case parquet.ByteArray, parquet.FixedLenByteArray, parquet.Int96:
		return x.String(), nil
	default:
		return nil, fmt.Errorf("unsupported parquet value kind %v in column %d", x.Kind(), x.Column())
	}
}
