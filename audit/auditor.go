package audit

import (
	"context"

	"github.com/casks-mutters/state-delta-audit/logging"
	"github.com/casks-mutters/state-delta-audit/logging/colors"
	"github.com/casks-mutters/state-delta-audit/types"
	"github.com/ethereum/go-ethereum/common"
)

// Auditor compares contract storage slots between two blocks. Reads are strictly sequential and nothing is cached
// between them, so an Auditor holds no state across audits besides its reader and event subscriptions.
type Auditor struct {
	// reader is the injected capability used to read storage slots.
	reader StorageReader

	// logger describes the Auditor's log object that can be used to log important events
	logger *logging.Logger

	// Events describes the event system for the Auditor.
	Events AuditorEvents
}

// NewAuditor creates an Auditor which reads storage through reader. If logger is nil, a sub-logger of
// logging.GlobalLogger is used.
func NewAuditor(reader StorageReader, logger *logging.Logger) *Auditor {
	if logger == nil {
		logger = logging.GlobalLogger
	}
	return &Auditor{
		reader: reader,
		logger: logger.NewSubLogger("module", logging.AUDIT_SERVICE),
	}
}

// ReadSlotValue reads a single slot at a single block. A failed read is not propagated: the value is replaced with
// 32 zero bytes, exactly one warning is logged and one SlotReadFailedEvent is published, and the error is kept on
// the returned SlotValue so callers can tell a failed read apart from a genuine zero. Once ctx is done, failures are
// logged at debug level instead, as the caller already knows the audit was interrupted.
func (a *Auditor) ReadSlotValue(ctx context.Context, address common.Address, slot types.Slot, block types.BlockRef) SlotValue {
	value, err := a.reader.StorageAt(ctx, address, slot, block)
	if err == nil {
		return SlotValue{Value: value}
	}

	if ctx.Err() != nil {
		a.logger.Debug("Storage read for slot ", slot, " at block ", block, " abandoned", err)
	} else {
		a.logger.Warn("Storage read failed for slot ", colors.Bold, slot, colors.Reset, " at block ", colors.Bold, block,
			colors.Reset, ", substituting zero value", err)
	}
	publishErr := a.Events.SlotReadFailed.Publish(SlotReadFailedEvent{
		Address: address,
		Slot:    slot,
		Block:   block,
		Err:     err,
	})
	if publishErr != nil {
		a.logger.Error("SlotReadFailed event handler returned an error", publishErr)
	}
	return SlotValue{Value: common.Hash{}, Err: err}
}

// AuditDiff reads every slot at blockA and then at blockB, in input order, and reports which slots differ. Duplicate
// slots are read and compared once per occurrence. The report's fingerprint is computed over the changed slots in
// the order they were found. AuditDiff never fails; failed reads are recorded on the report.
//
// Callers should not invoke AuditDiff with blockA equal to blockB: the result is trivially empty.
func (a *Auditor) AuditDiff(ctx context.Context, address common.Address, slots []types.Slot, blockA types.BlockRef, blockB types.BlockRef) *AuditReport {
	report := newAuditReport(address, blockA, blockB, len(slots))

	for i, slot := range slots {
		valueA := a.ReadSlotValue(ctx, address, slot, blockA)
		valueB := a.ReadSlotValue(ctx, address, slot, blockB)

		result := &SlotReadResult{
			Slot:    slot,
			A:       valueA,
			B:       valueB,
			Changed: valueA.Value != valueB.Value,
		}
		report.record(result)

		err := a.Events.SlotAudited.Publish(SlotAuditedEvent{
			Index:  i,
			Total:  len(slots),
			Result: result,
		})
		if err != nil {
			a.logger.Error("SlotAudited event handler returned an error", err)
		}
	}

	report.Fingerprint = ComputeFingerprint(report.ChangedSlots)
	return report
}
