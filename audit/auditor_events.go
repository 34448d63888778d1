package audit

import (
	"github.com/casks-mutters/state-delta-audit/events"
	"github.com/casks-mutters/state-delta-audit/types"
	"github.com/ethereum/go-ethereum/common"
)

// AuditorEvents defines event emitters for an Auditor.
type AuditorEvents struct {
	// SlotReadFailed emits events when a single storage read fails and a zero value is substituted.
	SlotReadFailed events.EventEmitter[SlotReadFailedEvent]

	// SlotAudited emits events when both reads of a slot have completed and the slot was compared.
	SlotAudited events.EventEmitter[SlotAuditedEvent]
}

// SlotReadFailedEvent describes a failed storage read.
type SlotReadFailedEvent struct {
	// Address is the contract whose storage was read.
	Address common.Address

	// Slot is the slot which could not be read.
	Slot types.Slot

	// Block is the block reference the read was pinned to.
	Block types.BlockRef

	// Err is the error returned by the StorageReader.
	Err error
}

// SlotAuditedEvent describes a slot which has been compared across both blocks.
type SlotAuditedEvent struct {
	// Index is the position of the slot within the audited slot list.
	Index int

	// Total is the length of the audited slot list.
	Total int

	// Result is the comparison result for the slot.
	Result *SlotReadResult
}
