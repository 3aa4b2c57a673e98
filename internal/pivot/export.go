package pivot

import (
	"github.com/carrier-dashboard/backend/internal/models"
	"github.com/vmihailenco/msgpack/v5"
)

// MsgpackContentType is the media type of EncodeMsgpack output.
const MsgpackContentType = "application/msgpack"

// EncodeMsgpack encodes the matrix as an array of string arrays.
func EncodeMsgpack(m models.Matrix) ([]byte, error) {
	if m == nil {
		m = models.Matrix{}
	}
	return msgpack.Marshal([][]string(m))
}

// DecodeMsgpack is the inverse of EncodeMsgpack.
func DecodeMsgpack(data []byte) (models.Matrix, error) {
	var rows [][]string
	if err := msgpack.Unmarshal(data, &rows); err != nil {
		return nil, err
	}
	if rows == nil {
		rows = [][]string{}
	}
	return models.Matrix(rows), nil
}
