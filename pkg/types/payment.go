package types

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/angelmondragon/quickdelivery-backend/pkg/enums"
)

// PaymentDetails is implemented by CODPayment and UPIPayment only.
type PaymentDetails interface {
	Method() enums.PaymentMethod
	isPaymentDetails()
}

// CODPayment is settled in cash at the door and carries no reference.
type CODPayment struct{}

func (CODPayment) Method() enums.PaymentMethod { return enums.PaymentMethodCOD }
func (CODPayment) isPaymentDetails()           {}

// UPIPayment is settled through the gateway; TransactionID is mandatory.
type UPIPayment struct {
	TransactionID string
}

func (UPIPayment) Method() enums.PaymentMethod { return enums.PaymentMethodUPI }
func (UPIPayment) isPaymentDetails()           {}

// Payment wraps the method-specific details for JSON transport.
type Payment struct {
	Details PaymentDetails
}

func NewCODPayment() Payment {
	return Payment{Details: CODPayment{}}
}

func NewUPIPayment(transactionID string) (Payment, error) {
	if strings.TrimSpace(transactionID) == "" {
		return Payment{}, fmt.Errorf("upi payment requires a transaction id")
	}
	return Payment{Details: UPIPayment{TransactionID: transactionID}}, nil
}

// Method returns the payment method, or "" when unset.
func (p Payment) Method() enums.PaymentMethod {
	if p.Details == nil {
		return ""
	}
	return p.Details.Method()
}

// Ref returns the gateway transaction id for UPI payments.
func (p Payment) Ref() string {
	if upi, ok := p.Details.(UPIPayment); ok {
		return upi.TransactionID
	}
	return ""
}

type paymentWire struct {
	Method enums.PaymentMethod `json:"method"`
	Ref    string              `json:"ref,omitempty"`
}

func (p Payment) MarshalJSON() ([]byte, error) {
	if p.Details == nil {
		return []byte("null"), nil
	}
	return json.Marshal(paymentWire{Method: p.Method(), Ref: p.Ref()})
}

func (p *Payment) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		p.Details = nil
		return nil
	}
	var wire paymentWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	switch wire.Method {
	case enums.PaymentMethodCOD:
		if wire.Ref != "" {
			return fmt.Errorf("cod payment cannot carry a reference")
		}
		p.Details = CODPayment{}
	case enums.PaymentMethodUPI:
		parsed, err := NewUPIPayment(wire.Ref)
		if err != nil {
			return err
		}
		*p = parsed
	default:
		return fmt.Errorf("invalid payment method %q", wire.Method)
	}
	return nil
}
