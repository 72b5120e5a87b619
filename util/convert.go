package util

import (
	"fmt"

	"github.com/vmihailenco/msgpack"
)

func ToBytes[T any](obj T) ([]byte, error) {
	data, err := msgpack.Marshal(obj)
	if err != nil {
		return nil, fmt.Errorf("error encoding %T: %w", obj, err)
	}

	return data, nil
}

// ToByteSlice encodes obj and zero pads the result to size bytes so it can
// be copied over a whole block.
func ToByteSlice[T any](obj T, size int) ([]byte, error) {
	data, err := ToBytes(obj)
	if err != nil {
		return nil, err
	}

	if len(data) > size {
		return nil, fmt.Errorf("encoded %T is %d bytes, larger than %d", obj, len(data), size)
	}

	res := make([]byte, size)
	copy(res, data)

	return res, nil
}

func ToStruct[T any](data []byte) (T, error) {
	var res T

	if err := msgpack.Unmarshal(data, &res); err != nil {
		return res, fmt.Errorf("error decoding %T: %w", res, err)
	}

	return res, nil
}
