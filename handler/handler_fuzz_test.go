package handler

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

type fuzzAction struct {
	kind ActionKind
	args []*uint256.Int
}

// decodeActions turns arbitrary bytes into a sequence of actions. Each action takes one byte for its kind and one
// byte per raw argument, with every fourth argument byte promoted to an extreme value so both ends of the
// representable range are reached.
func decodeActions(data []byte) []fuzzAction {
	var actions []fuzzAction
	for len(data) > 0 {
		kind := ActionKinds[int(data[0])%len(ActionKinds)]
		data = data[1:]
		if len(data) < kind.ArgCount() {
			break
		}
		args := make([]*uint256.Int, kind.ArgCount())
		for i := range args {
			b := data[i]
			switch {
			case b%4 == 3 && b > 128:
				args[i] = new(uint256.Int).SetAllOne()
			case b%4 == 3:
				args[i] = new(uint256.Int).Lsh(uint256.NewInt(uint64(b)), 200)
			default:
				args[i] = uint256.NewInt(uint64(b) * 97)
			}
		}
		data = data[kind.ArgCount():]
		actions = append(actions, fuzzAction{kind: kind, args: args})
	}
	return actions
}

// FuzzHandler drives a handler with arbitrary action sequences and checks that no clamped action is rejected, that
// the shadow model never diverges and that both invariants hold after every action.
func FuzzHandler(f *testing.F) {
	f.Add([]byte{1, 0, 200})
	f.Add([]byte{2, 1, 0, 2, 255, 3, 3, 255, 4, 3, 255})
	f.Add([]byte{0, 4, 255, 2, 0, 0, 4, 255, 2, 0, 0, 4, 7})
	f.Add([]byte{4, 0, 255, 4, 0, 255, 2, 2, 0, 1, 10})

	f.Fuzz(func(t *testing.T, data []byte) {
		h := newTestHandler(t)
		for _, action := range decodeActions(data) {
			_, err := h.Execute(action.kind, action.args)
			require.NoError(t, err)
			require.NoError(t, h.Checker().CheckAll())
		}
		require.NoError(t, h.VerifyShadow())
	})
}
