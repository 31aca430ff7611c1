package calls

import (
	"encoding/hex"
	"strings"

	"github.com/crytic/tokenfuzz/handler"
	"github.com/fxamacker/cbor"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
)

// encodedCall is the serialized form of a CallMessage. Arguments are stored as minimal big-endian byte strings.
type encodedCall struct {
	Kind string   `cbor:"k"`
	Args [][]byte `cbor:"a"`
}

// EncodeCallSequence serializes the calls of a sequence to CBOR. Execution results are not encoded.
func EncodeCallSequence(sequence CallSequence) ([]byte, error) {
	encoded := make([]encodedCall, len(sequence))
	for i, element := range sequence {
		args := make([][]byte, len(element.Call.Args))
		for j, arg := range element.Call.Args {
			args[j] = arg.Bytes()
		}
		encoded[i] = encodedCall{Kind: element.Call.Kind.String(), Args: args}
	}

	data, err := cbor.Marshal(encoded, cbor.EncOptions{})
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return data, nil
}

// DecodeCallSequence deserializes a CBOR call sequence produced by EncodeCallSequence.
func DecodeCallSequence(data []byte) (CallSequence, error) {
	var encoded []encodedCall
	if err := cbor.Unmarshal(data, &encoded); err != nil {
		return nil, errors.Wrap(err, "could not decode call sequence")
	}

	sequence := make(CallSequence, len(encoded))
	for i, call := range encoded {
		kind, err := handler.ParseActionKind(call.Kind)
		if err != nil {
			return nil, errors.Wrapf(err, "call %d", i)
		}
		args := make([]*uint256.Int, len(call.Args))
		for j, arg := range call.Args {
			if len(arg) > 32 {
				return nil, errors.Errorf("call %d argument %d is wider than 256 bits", i, j)
			}
			args[j] = new(uint256.Int).SetBytes(arg)
		}
		message, err := NewCallMessage(kind, args...)
		if err != nil {
			return nil, errors.Wrapf(err, "call %d", i)
		}
		sequence[i] = NewCallSequenceElement(message)
	}
	return sequence, nil
}

// EncodeCallSequenceHex serializes a call sequence to a hex reproducer string that can be replayed later.
func EncodeCallSequenceHex(sequence CallSequence) (string, error) {
	data, err := EncodeCallSequence(sequence)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(data), nil
}

// DecodeCallSequenceHex deserializes a hex reproducer string produced by EncodeCallSequenceHex. A leading "0x" is
// accepted.
func DecodeCallSequenceHex(reproducer string) (CallSequence, error) {
	reproducer = strings.TrimPrefix(strings.TrimSpace(reproducer), "0x")
	data, err := hex.DecodeString(reproducer)
	if err != nil {
		return nil, errors.Wrap(err, "reproducer is not valid hex")
	}
	return DecodeCallSequence(data)
}
