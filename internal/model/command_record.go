package model

import (
	"encoding/json"
)

// CommandRecord journals one dispatch command, simulated or submitted.
type CommandRecord struct {
	ChainID     uint64          `json:"chain_id"`
	Dex         string          `json:"dex"`
	Sender      string          `json:"sender"`
	Proxy       uint16          `json:"proxy"`
	Code        uint8           `json:"code"`
	Variant     string          `json:"variant"`
	Command     json.RawMessage `json:"command"`
	Payload     string          `json:"payload"`
	PayloadHash string          `json:"payload_hash"`
	Value       string          `json:"value"`
	Gas         uint64          `json:"gas"`
	DryRun      bool            `json:"dry_run"`
	TxHash      string          `json:"tx_hash,omitempty"`
	BlockNumber uint64          `json:"block_number,omitempty"`
	Status      string          `json:"status"`
	Error       string          `json:"error,omitempty"`
	CreatedAt   string          `json:"created_at"`
}

// MarshalJSON ensures CommandRecord is encoded with stable field names.
func (r CommandRecord) MarshalJSON() ([]byte, error) {
	type Alias CommandRecord
	return json.Marshal(Alias(r))
}

// UnmarshalJSON decodes a CommandRecord from JSON.
func (r *CommandRecord) UnmarshalJSON(data []byte) error {
	type Alias CommandRecord
	var a Alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*r = CommandRecord(a)
	return nil
}
