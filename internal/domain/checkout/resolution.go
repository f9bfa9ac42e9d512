package checkout

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ResolutionKind is the remedy chosen for a shortage
type ResolutionKind string

const (
	ResolutionRefund      ResolutionKind = "refund"
	ResolutionOtherBranch ResolutionKind = "other_branch"
	ResolutionWallet      ResolutionKind = "wallet"
)

// IsValid checks if the kind is known
func (k ResolutionKind) IsValid() bool {
	return k == ResolutionRefund || k == ResolutionOtherBranch || k == ResolutionWallet
}

// Resolution is the operator's answer to the shortage of one product.
// ShortageQuantity is what the caller saw; the shortfall at reservation time wins.
type Resolution struct {
	ProductID           uuid.UUID
	Kind                ResolutionKind
	AlternativeBranchID *uuid.UUID
	ShortageQuantity    int
}

// Resolutions indexes resolutions by product id
type Resolutions map[uuid.UUID]Resolution

// NewResolutions indexes a list, rejecting duplicates per product
func NewResolutions(list []Resolution) (Resolutions, error) {
	out := make(Resolutions, len(list))
	var details []FieldError
	for _, r := range list {
		if _, dup := out[r.ProductID]; dup {
			details = append(details, FieldError{Field: "shortage_options.product_id", Message: "duplicate resolution for product " + r.ProductID.String()})
			continue
		}
		if !r.Kind.IsValid() {
			details = append(details, FieldError{Field: "shortage_options.option_type", Message: "must be one of refund, other_branch, wallet"})
			continue
		}
		if r.Kind == ResolutionOtherBranch && (r.AlternativeBranchID == nil || *r.AlternativeBranchID == uuid.Nil) {
			details = append(details, FieldError{Field: "shortage_options.alternative_branch_id", Message: "required for other_branch"})
			continue
		}
		out[r.ProductID] = r
	}
	if len(details) > 0 {
		return nil, NewValidationError("invalid shortage options", details...)
	}
	return out, nil
}

// WalletCreditInstruction is emitted for a wallet resolution and handed to the
// wallet collaborator once the order is placed
type WalletCreditInstruction struct {
	BusinessID uuid.UUID       `json:"business_id"`
	ProductID  uuid.UUID       `json:"product_id"`
	LineID     uuid.UUID       `json:"line_id"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	Amount     decimal.Decimal `json:"amount"`
}
