package common

import (
	"strings"

	"github.com/google/uuid"
)

const trxNoLength = 16

// GenerateTrxNo returns an upper-case alphanumeric transaction number shared by
// every leg of one ledger transaction.
func GenerateTrxNo() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return strings.ToUpper(id[:trxNoLength])
}
