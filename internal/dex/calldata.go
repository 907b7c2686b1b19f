package dex

import (
	"bytes"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"

	"github.com/cronii/crikeyooo/internal/usercmd"
)

const userCmdMethod = "userCmd"

// DecodedCall is a dispatch call split back into its proxy and command.
type DecodedCall struct {
	Proxy   usercmd.Proxy
	Payload []byte
	Command usercmd.Command
	Variant usercmd.Variant
}

// UserCmdCalldata packs userCmd(proxy, payload).
func UserCmdCalldata(proxy usercmd.Proxy, payload []byte) ([]byte, error) {
	dexABI, err := DexABI()
	if err != nil {
		return nil, fmt.Errorf("parse dex abi: %w", err)
	}
	data, err := dexABI.Pack(userCmdMethod, uint16(proxy), payload)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", userCmdMethod, err)
	}
	return data, nil
}

// BuildUserCmd encodes cmd and wraps it in dispatch calldata.
func BuildUserCmd(proxy usercmd.Proxy, cmd usercmd.Command) ([]byte, []byte, error) {
	payload, err := usercmd.Encode(proxy, cmd)
	if err != nil {
		return nil, nil, err
	}
	calldata, err := UserCmdCalldata(proxy, payload)
	if err != nil {
		return nil, nil, err
	}
	return payload, calldata, nil
}

// CallDecoder decodes userCmd calldata.
type CallDecoder struct {
	method abi.Method
}

// NewCallDecoder builds a decoder for the dispatch entry point.
func NewCallDecoder() (*CallDecoder, error) {
	dexABI, err := DexABI()
	if err != nil {
		return nil, err
	}
	method, ok := dexABI.Methods[userCmdMethod]
	if !ok {
		return nil, fmt.Errorf("dex abi missing %s", userCmdMethod)
	}
	return &CallDecoder{method: method}, nil
}

// CanDecode checks if the calldata targets userCmd.
func (d *CallDecoder) CanDecode(data []byte) bool {
	return len(data) >= 4 && bytes.Equal(data[:4], d.method.ID)
}

// Decode converts userCmd calldata into a DecodedCall.
func (d *CallDecoder) Decode(data []byte) (*DecodedCall, error) {
	if !d.CanDecode(data) {
		return nil, fmt.Errorf("calldata does not target %s", userCmdMethod)
	}

	values, err := d.method.Inputs.Unpack(data[4:])
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", userCmdMethod, err)
	}
	if len(values) != 2 {
		return nil, fmt.Errorf("unexpected %s values: %d", userCmdMethod, len(values))
	}

	callpath, ok := values[0].(uint16)
	if !ok {
		return nil, fmt.Errorf("callpath unexpected type %T", values[0])
	}
	payload, ok := values[1].([]byte)
	if !ok {
		return nil, fmt.Errorf("cmd unexpected type %T", values[1])
	}

	proxy := usercmd.Proxy(callpath)
	cmd, err := usercmd.Decode(proxy, payload)
	if err != nil {
		return nil, err
	}
	variant, err := cmd.Variant(proxy)
	if err != nil {
		return nil, err
	}

	return &DecodedCall{
		Proxy:   proxy,
		Payload: payload,
		Command: cmd,
		Variant: variant,
	}, nil
}
