package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/marchelocal/server/internal/database"
	"github.com/marchelocal/server/internal/models"
	"github.com/marchelocal/server/pkg/secretbox"
)

var bicRegex = regexp.MustCompile(`^[A-Z]{4}[A-Z]{2}[A-Z0-9]{2}([A-Z0-9]{3})?$`)

// Sealer encrypts and decrypts bank account numbers.
type Sealer interface {
	Seal(plaintext string) (string, error)
	Open(sealed string) (string, error)
	Version() int
}

type BankService struct {
	db  *database.DB
	box Sealer
}

func NewBankService(db *database.DB, box Sealer) *BankService {
	return &BankService{db: db, box: box}
}

type BankDetailsRequest struct {
	HolderName string `json:"holderName" validate:"required,max=255"`
	IBAN       string `json:"iban" validate:"required"`
	BIC        string `json:"bic" validate:"required"`
}

// MaskedBankDetails is the only shape bank details leave the service in.
type MaskedBankDetails struct {
	HolderName string    `json:"holderName"`
	IBAN       string    `json:"iban"`
	BIC        string    `json:"bic"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// sealBankDetails validates req and builds the stored row for vendorID
func sealBankDetails(box Sealer, vendorID uint, req *BankDetailsRequest) (*models.BankDetails, error) {
	iban := secretbox.NormalizeIBAN(req.IBAN)
	if err := secretbox.ValidateIBAN(iban); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	bic := strings.ToUpper(strings.TrimSpace(req.BIC))
	if !bicRegex.MatchString(bic) {
		return nil, fmt.Errorf("%w: invalid BIC", ErrInvalidInput)
	}

	sealedIBAN, err := box.Seal(iban)
	if err != nil {
		return nil, fmt.Errorf("seal iban: %w", err)
	}
	sealedBIC, err := box.Seal(bic)
	if err != nil {
		return nil, fmt.Errorf("seal bic: %w", err)
	}

	return &models.BankDetails{
		VendorID:    vendorID,
		HolderName:  strings.TrimSpace(req.HolderName),
		IBANSealed:  sealedIBAN,
		BICSealed:   sealedBIC,
		IBANLast4:   iban[len(iban)-4:],
		IBANCountry: iban[:4],
		KeyVersion:  box.Version(),
	}, nil
}

func maskBankDetails(box Sealer, d *models.BankDetails) (*MaskedBankDetails, error) {
	bic, err := box.Open(d.BICSealed)
	if err != nil {
		return nil, fmt.Errorf("open bic: %w", err)
	}
	return &MaskedBankDetails{
		HolderName: d.HolderName,
		IBAN:       secretbox.MaskIBAN(d.IBANCountry, d.IBANLast4),
		BIC:        secretbox.MaskBIC(bic),
		UpdatedAt:  d.UpdatedAt,
	}, nil
}

// Get returns the masked bank details of a vendor
func (s *BankService) Get(ctx context.Context, vendorID uint) (*MaskedBankDetails, error) {
	var details models.BankDetails
	if err := s.db.WithContext(ctx).Where("vendor_id = ?", vendorID).First(&details).Error; err != nil {
		return nil, notFound(err)
	}
	return maskBankDetails(s.box, &details)
}

// Put validates, encrypts and stores bank details, replacing earlier ones
func (s *BankService) Put(ctx context.Context, vendorID uint, req *BankDetailsRequest) (*MaskedBankDetails, error) {
	sealed, err := sealBankDetails(s.box, vendorID, req)
	if err != nil {
		return nil, err
	}

	var existing models.BankDetails
	err = s.db.WithContext(ctx).Where("vendor_id = ?", vendorID).First(&existing).Error
	switch {
	case err == nil:
		sealed.ID = existing.ID
		sealed.CreatedAt = existing.CreatedAt
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, err
	}

	if err := s.db.WithContext(ctx).Save(sealed).Error; err != nil {
		return nil, err
	}
	return maskBankDetails(s.box, sealed)
}
