package session

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

const (
	payloadFormatVersionCurrent = 1
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error

	encOptions := cbor.CoreDetEncOptions()
	encOptions.Time = cbor.TimeRFC3339Nano
	encMode, err = encOptions.EncMode()
	if err != nil {
		panic("session: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("session: CBOR decoder initialization failed: " + err.Error())
	}
}

// Encode serializes d as a version byte followed by its CBOR body.
func Encode(d Data) ([]byte, error) {
	body, err := encMode.Marshal(d)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, len(body)+1)
	out = append(out, payloadFormatVersionCurrent)
	out = append(out, body...)
	return out, nil
}

// Decode parses a payload produced by Encode.
func Decode(data []byte) (Data, error) {
	var d Data

	if len(data) == 0 {
		return d, fmt.Errorf("%w: empty", ErrInvalidPayload)
	}
	if data[0] != payloadFormatVersionCurrent {
		return d, fmt.Errorf("%w: unsupported format version %d", ErrInvalidPayload, data[0])
	}
	if err := decMode.Unmarshal(data[1:], &d); err != nil {
		return Data{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	return d, nil
}
