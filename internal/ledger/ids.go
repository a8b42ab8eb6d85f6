package ledger

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	tbtypes "github.com/tigerbeetle/tigerbeetle-go/pkg/types"
)

const (
	operatorAccountLabel    = "acct:operator"
	promptAccountPrefix     = "acct:prompt:"
	completionAccountPrefix = "acct:completion:"
	promptTransferPrefix    = "xfer:prompt:"
	completionTransferPref  = "xfer:completion:"
)

// ID128 deterministically maps a string label to a TigerBeetle Uint128.
func ID128(label string) tbtypes.Uint128 {
	sum := sha256.Sum256([]byte(label))
	var raw [16]byte
	copy(raw[:], sum[:16])
	if isZero(raw) || isMax(raw) {
		raw[0] ^= 0x01
	}
	return tbtypes.BytesToUint128(raw)
}

// OperatorAccountID is the account every token transfer debits.
func OperatorAccountID() tbtypes.Uint128 {
	return ID128(operatorAccountLabel)
}

// PromptAccountID returns the prompt-token account of a backend.
func PromptAccountID(backend string) tbtypes.Uint128 {
	return ID128(promptAccountPrefix + backend)
}

// CompletionAccountID returns the completion-token account of a backend.
func CompletionAccountID(backend string) tbtypes.Uint128 {
	return ID128(completionAccountPrefix + backend)
}

// PromptTransferID returns the transfer id for a run's prompt tokens of one condition.
func PromptTransferID(runID, backend, mode string) tbtypes.Uint128 {
	return ID128(promptTransferPrefix + runID + ":" + backend + ":" + mode)
}

// CompletionTransferID returns the transfer id for a run's completion tokens of one condition.
func CompletionTransferID(runID, backend, mode string) tbtypes.Uint128 {
	return ID128(completionTransferPref + runID + ":" + backend + ":" + mode)
}

// toUint64 converts a Uint128 to uint64 and fails on overflow.
func toUint64(value tbtypes.Uint128) (uint64, error) {
	bytes := value.Bytes()
	if binary.LittleEndian.Uint64(bytes[8:]) != 0 {
		return 0, fmt.Errorf("uint128 overflows uint64")
	}
	return binary.LittleEndian.Uint64(bytes[:8]), nil
}

func isZero(raw [16]byte) bool {
	for _, b := range raw {
		if b != 0 {
			return false
		}
	}
	return true
}

func isMax(raw [16]byte) bool {
	for _, b := range raw {
		if b != 0xFF {
			return false
		}
	}
	return true
}
