package audit

import (
	"bytes"
	"encoding/json"

	"github.com/casks-mutters/state-delta-audit/types"
	"github.com/ethereum/go-ethereum/common"
)

// SlotValue is the outcome of reading one slot at one block: either the value read, or the error which caused a
// zero value to be substituted.
type SlotValue struct {
	// Value is the 32-byte slot value. It is all zeros if Err is non-nil.
	Value common.Hash

	// Err describes why the read failed, or nil if it succeeded.
	Err error
}

// Failed indicates whether the read failed and Value was substituted.
func (v SlotValue) Failed() bool {
	return v.Err != nil
}

// SlotReadResult describes the comparison of one slot between the two audited blocks.
type SlotReadResult struct {
	// Slot is the index of the slot which was read.
	Slot types.Slot

	// A is the value read at the first block.
	A SlotValue

	// B is the value read at the second block.
	B SlotValue

	// Changed is true iff A.Value and B.Value differ.
	Changed bool
}

// MarshalJSON encodes the result as {"a", "b", "changed"}, adding "aError"/"bError" for failed reads.
func (r *SlotReadResult) MarshalJSON() ([]byte, error) {
	out := struct {
		A       common.Hash `json:"a"`
		B       common.Hash `json:"b"`
		Changed bool        `json:"changed"`
		AError  string      `json:"aError,omitempty"`
		BError  string      `json:"bError,omitempty"`
	}{
		A:       r.A.Value,
		B:       r.B.Value,
		Changed: r.Changed,
	}
	if r.A.Err != nil {
		out.AError = r.A.Err.Error()
	}
	if r.B.Err != nil {
		out.BError = r.B.Err.Error()
	}
	return json.Marshal(out)
}

// AuditReport describes the outcome of a single audit run. It is owned by the caller and never persisted.
type AuditReport struct {
	// Address is the contract which was audited.
	Address common.Address

	// BlockA and BlockB are the two block references compared.
	BlockA types.BlockRef
	BlockB types.BlockRef

	// Fingerprint is computed over ChangedSlots.
	Fingerprint Fingerprint

	// ChangedSlots lists every changed slot in input order. Duplicated input slots appear once per occurrence.
	ChangedSlots []types.Slot

	// Results maps each audited slot to its result. For duplicated input slots, the last read wins.
	Results map[types.Slot]*SlotReadResult

	// slotOrder lists each distinct slot once, in order of first appearance.
	slotOrder []types.Slot

	// failedReads counts every failed read, including those of duplicated slots.
	failedReads int
}

// newAuditReport creates an empty report for the given audit parameters.
func newAuditReport(address common.Address, blockA types.BlockRef, blockB types.BlockRef, capacity int) *AuditReport {
	return &AuditReport{
		Address:      address,
		BlockA:       blockA,
		BlockB:       blockB,
		ChangedSlots: make([]types.Slot, 0),
		Results:      make(map[types.Slot]*SlotReadResult, capacity),
		slotOrder:    make([]types.Slot, 0, capacity),
	}
}

// record stores a slot result, tracking first-appearance order, failures and changes.
func (r *AuditReport) record(result *SlotReadResult) {
	if _, exists := r.Results[result.Slot]; !exists {
		r.slotOrder = append(r.slotOrder, result.Slot)
	}
	r.Results[result.Slot] = result

	if result.A.Failed() {
		r.failedReads++
	}
	if result.B.Failed() {
		r.failedReads++
	}
	if result.Changed {
		r.ChangedSlots = append(r.ChangedSlots, result.Slot)
	}
}

// Slots returns each audited slot once, in order of first appearance.
func (r *AuditReport) Slots() []types.Slot {
	return append([]types.Slot(nil), r.slotOrder...)
}

// FailedReads returns how many reads failed and had a zero value substituted.
func (r *AuditReport) FailedReads() int {
	return r.failedReads
}

// MarshalJSON encodes the report as {"root", "changed", "slots"}. Slot entries keep their first-appearance order
// and are keyed by decimal slot index.
func (r *AuditReport) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer

	root, err := json.Marshal(r.Fingerprint)
	if err != nil {
		return nil, err
	}
	changed, err := json.Marshal(r.ChangedSlots)
	if err != nil {
		return nil, err
	}
	if r.ChangedSlots == nil {
		changed = []byte("[]")
	}

	buf.WriteString(`{"root":`)
	buf.Write(root)
	buf.WriteString(`,"changed":`)
	buf.Write(changed)
	buf.WriteString(`,"slots":{`)
	for i, slot := range r.slotOrder {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(slot.String())
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(r.Results[slot])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteString(`}}`)
	return buf.Bytes(), nil
}
