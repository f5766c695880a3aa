package store

import (
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
	"google.golang.org/protobuf/encoding/protowire"
)

// Payload fields, protobuf wire format:
//
//	1: shape, packed varint
//	2: data, packed varint
//	3: dtype, string
const (
	fieldShape protowire.Number = 1
	fieldData  protowire.Number = 2
	fieldDtype protowire.Number = 3
)

const dtypeUint64 = "uint64"

var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func putZstdEncoder(enc *zstd.Encoder) {
	zstdEncoderPool.Put(enc)
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil)
	return dec
}

func putZstdDecoder(dec *zstd.Decoder) {
	zstdDecoderPool.Put(dec)
}

func appendPacked(b []byte, num protowire.Number, values []uint64) []byte {
	var packed []byte
	for _, v := range values {
		packed = protowire.AppendVarint(packed, v)
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, packed)
}

func consumePacked(b []byte) ([]uint64, error) {
	var values []uint64
	for len(b) > 0 {
		v, n := protowire.ConsumeVarint(b)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		values = append(values, v)
		b = b[n:]
	}
	return values, nil
}

// encodePayload serialises shape and data and compresses the result.
func encodePayload(shape []int, data []uint64) []byte {
	dims := make([]uint64, len(shape))
	for i, s := range shape {
		dims[i] = uint64(s)
	}

	var b []byte
	b = appendPacked(b, fieldShape, dims)
	b = appendPacked(b, fieldData, data)
	b = protowire.AppendTag(b, fieldDtype, protowire.BytesType)
	b = protowire.AppendString(b, dtypeUint64)

	enc := getZstdEncoder()
	defer putZstdEncoder(enc)
	return enc.EncodeAll(b, nil)
}

// decodePayload reverses encodePayload.
func decodePayload(payload []byte) ([]int, []uint64, error) {
	dec := getZstdDecoder()
	defer putZstdDecoder(dec)

	b, err := dec.DecodeAll(payload, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrCorruptPayload, err)
	}

	var (
		dims  []uint64
		data  []uint64
		dtype string
	)
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, nil, fmt.Errorf("%w: %w", ErrCorruptPayload, protowire.ParseError(n))
		}
		b = b[n:]

		if typ != protowire.BytesType {
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, nil, fmt.Errorf("%w: %w", ErrCorruptPayload, protowire.ParseError(n))
			}
			b = b[n:]
			continue
		}

		v, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return nil, nil, fmt.Errorf("%w: %w", ErrCorruptPayload, protowire.ParseError(n))
		}
		b = b[n:]

		switch num {
		case fieldShape:
			dims, err = consumePacked(v)
		case fieldData:
			data, err = consumePacked(v)
		case fieldDtype:
			dtype = string(v)
		}
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %w", ErrCorruptPayload, err)
		}
	}

	if dtype != dtypeUint64 {
		return nil, nil, fmt.Errorf("%w: unsupported dtype %q", ErrCorruptPayload, dtype)
	}

	shape := make([]int, len(dims))
	size := 1
	for i, d := range dims {
		shape[i] = int(d)
		size *= shape[i]
	}
	if len(data) != size {
		return nil, nil, fmt.Errorf("%w: %d values for shape %v", ErrCorruptPayload, len(data), shape)
	}
	if data == nil {
		data = []uint64{}
	}
	return shape, data, nil
}
