package submit

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/rpc"
)

// ErrReverted reports a mined transaction with a failed status.
var ErrReverted = errors.New("transaction reverted")

// SimulationError reports a call that would revert, with the decoded
// reason when the node returned one.
type SimulationError struct {
	Stage  string
	Reason string
	Err    error
}

func (e *SimulationError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("simulate %s: reverted: %s", e.Stage, e.Reason)
	}
	return fmt.Sprintf("simulate %s: %v", e.Stage, e.Err)
}

func (e *SimulationError) Unwrap() error {
	return e.Err
}

func newSimulationError(stage string, err error) *SimulationError {
	return &SimulationError{Stage: stage, Reason: revertReason(err), Err: err}
}

func revertReason(err error) string {
	var dataErr rpc.DataError
	if !errors.As(err, &dataErr) {
		return ""
	}
	raw, ok := dataErr.ErrorData().(string)
	if !ok {
		return ""
	}
	data, decodeErr := hex.DecodeString(strings.TrimPrefix(raw, "0x"))
	if decodeErr != nil {
		return ""
	}
	reason, unpackErr := abi.UnpackRevert(data)
	if unpackErr != nil {
		return ""
	}
	return reason
}
