package secretbox

import (
	"errors"
	"math/big"
	"strconv"
	"strings"
	"unicode"
)

var ErrInvalidIBAN = errors.New("invalid IBAN")

// NormalizeIBAN strips spaces and upper-cases s.
func NormalizeIBAN(s string) string {
	return strings.ToUpper(strings.Join(strings.Fields(s), ""))
}

// ValidateIBAN checks length, charset and the ISO 13616 mod-97 checksum of a
// normalized IBAN.
func ValidateIBAN(iban string) error {
	if len(iban) < 15 || len(iban) > 34 {
		return ErrInvalidIBAN
	}
	for i, r := range iban {
		switch {
		case i < 2 && !unicode.IsUpper(r):
			return ErrInvalidIBAN
		case i >= 2 && i < 4 && !unicode.IsDigit(r):
			return ErrInvalidIBAN
		case r > unicode.MaxASCII || !(unicode.IsUpper(r) || unicode.IsDigit(r)):
			return ErrInvalidIBAN
		}
	}

	// move the first four characters to the end and map letters to 10..35
	rearranged := iban[4:] + iban[:4]
	var digits strings.Builder
	for _, r := range rearranged {
		if unicode.IsDigit(r) {
			digits.WriteRune(r)
			continue
		}
		digits.WriteString(strconv.Itoa(int(r-'A') + 10))
	}

	n, ok := new(big.Int).SetString(digits.String(), 10)
	if !ok || new(big.Int).Mod(n, big.NewInt(97)).Int64() != 1 {
		return ErrInvalidIBAN
	}
	return nil
}

// MaskIBAN keeps the country and check digits plus the last four characters.
func MaskIBAN(prefix, last4 string) string {
	return prefix + " **** **** **** " + last4
}

// MaskBIC keeps the bank code, the first four characters.
func MaskBIC(bic string) string {
	if len(bic) <= 4 {
		return bic
	}
	return bic[:4] + strings.Repeat("*", len(bic)-4)
}
