package payment

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Session metadata keys written at checkout and read back by the webhook.
const (
	MetadataUserID      = "userId"
	MetadataProductIDs  = "productIds"
	MetadataTotalAmount = "totalAmount"

	// Provider limit on a single metadata value.
	maxMetadataValueLen = 500
)

type Metadata struct {
	UserID      string
	ProductIDs  []string
	TotalAmount decimal.NullDecimal
}

func NewMetadata(userID string, productIDs []string, total decimal.Decimal) Metadata {
	return Metadata{
		UserID:      userID,
		ProductIDs:  productIDs,
		TotalAmount: decimal.NullDecimal{Decimal: total, Valid: true},
	}
}

func (m Metadata) Encode() (map[string]string, error) {
	ids := m.ProductIDs
	if ids == nil {
		ids = []string{}
	}
	rawIDs, err := json.Marshal(ids)
	if err != nil {
		return nil, fmt.Errorf("encode product ids: %w", err)
	}

	out := map[string]string{
		MetadataUserID:     m.UserID,
		MetadataProductIDs: string(rawIDs),
	}
	if m.TotalAmount.Valid {
		out[MetadataTotalAmount] = m.TotalAmount.Decimal.String()
	}

	for k, v := range out {
		if len(v) > maxMetadataValueLen {
			return nil, fmt.Errorf("%w: %s has %d characters", ErrMetadataTooLarge, k, len(v))
		}
	}
	return out, nil
}

// DecodeMetadata parses session metadata. The user id and a non-empty
// product id list are required; the total is optional.
func DecodeMetadata(raw map[string]string) (Metadata, error) {
	var m Metadata

	m.UserID = strings.TrimSpace(raw[MetadataUserID])
	if m.UserID == "" {
		return m, fmt.Errorf("%w: %s", ErrMissingMetadata, MetadataUserID)
	}

	rawIDs := strings.TrimSpace(raw[MetadataProductIDs])
	if rawIDs == "" {
		return m, fmt.Errorf("%w: %s", ErrMissingMetadata, MetadataProductIDs)
	}
	if err := json.Unmarshal([]byte(rawIDs), &m.ProductIDs); err != nil {
		return m, fmt.Errorf("%w: %s: %v", ErrInvalidMetadata, MetadataProductIDs, err)
	}
	if len(m.ProductIDs) == 0 {
		return m, fmt.Errorf("%w: %s is empty", ErrMissingMetadata, MetadataProductIDs)
	}

	if rawTotal := strings.TrimSpace(raw[MetadataTotalAmount]); rawTotal != "" {
		total, err := decimal.NewFromString(rawTotal)
		if err != nil {
			return m, fmt.Errorf("%w: %s: %v", ErrInvalidMetadata, MetadataTotalAmount, err)
		}
		m.TotalAmount = decimal.NullDecimal{Decimal: total, Valid: true}
	}

	return m, nil
}
