package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marchelocal/server/pkg/secretbox"
)

func TestSealBankDetails(t *testing.T) {
	box, err := secretbox.New("test-secret")
	require.NoError(t, err)

	row, err := sealBankDetails(box, 3, &BankDetailsRequest{
		HolderName: " Ferme Dupont ",
		IBAN:       "fr76 3000 6000 0112 3456 7890 189",
		BIC:        "bnpafrpp",
	})
	require.NoError(t, err)

	assert.Equal(t, uint(3), row.VendorID)
	assert.Equal(t, "Ferme Dupont", row.HolderName)
	assert.Equal(t, "0189", row.IBANLast4)
	assert.Equal(t, "FR76", row.IBANCountry)
	assert.Equal(t, 1, row.KeyVersion)
	assert.False(t, strings.Contains(row.IBANSealed, "3000"))

	iban, err := box.Open(row.IBANSealed)
	require.NoError(t, err)
	assert.Equal(t, "FR7630006000011234567890189", iban)

	masked, err := maskBankDetails(box, row)
	require.NoError(t, err)
	assert.Equal(t, "FR76 **** **** **** 0189", masked.IBAN)
	assert.Equal(t, "BNPA****", masked.BIC)
}

func TestSealBankDetailsRejectsInvalidInput(t *testing.T) {
	box, err := secretbox.New("test-secret")
	require.NoError(t, err)

	_, err = sealBankDetails(box, 1, &BankDetailsRequest{HolderName: "x", IBAN: "FR7630006000011234567890188", BIC: "BNPAFRPP"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = sealBankDetails(box, 1, &BankDetailsRequest{HolderName: "x", IBAN: "FR7630006000011234567890189", BIC: "BNP"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}
