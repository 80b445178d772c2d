package validation

import (
	"fmt"

	dErrors "walletverify/pkg/domain-errors"
)

// MaxFingerprintLength bounds a claimed fingerprint. CIDs are well under
// 100 bytes; the headroom covers opaque digests with a prefix.
const MaxFingerprintLength = 512

// CheckStringLength returns CodeValidation when value is longer than max bytes.
func CheckStringLength(fieldName, value string, max int) error {
	if len(value) > max {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("%s exceeds max length of %d", fieldName, max))
	}
	return nil
}
