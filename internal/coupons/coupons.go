package coupons

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/quickdelivery-backend/pkg/enums"
	"github.com/angelmondragon/quickdelivery-backend/pkg/types"
)

var (
	ErrInvalidCoupon = errors.New("invalid coupon")
	ErrNotApplicable = errors.New("coupon not applicable")
)

// Coupon is a static catalog rule. MaxDiscount only applies to percent coupons.
type Coupon struct {
	Code           string           `json:"code"`
	Type           enums.CouponType `json:"type"`
	Value          int64            `json:"value"`
	MaxDiscount    *types.Paise     `json:"max_discount_paise,omitempty"`
	FirstOrderOnly bool             `json:"first_order_only"`
	Description    string           `json:"description"`
}

// Resolution is the outcome of a successful lookup.
type Resolution struct {
	Coupon   Coupon
	Discount types.Paise
}

func capAt(p types.Paise) *types.Paise { return &p }

var defaultCoupons = []Coupon{
	{
		Code:        "KADAPA10",
		Type:        enums.CouponTypePercent,
		Value:       10,
		MaxDiscount: capAt(types.Rupees(50)),
		Description: "10% off up to ₹50 - No minimum order",
	},
	{
		Code:           "FIRST30",
		Type:           enums.CouponTypeFlat,
		Value:          30,
		FirstOrderOnly: true,
		Description:    "₹30 off on your first order",
	},
}

// Resolver validates codes against a fixed coupon list.
type Resolver struct {
	coupons []Coupon
}

func NewResolver() *Resolver {
	return NewResolverWith(defaultCoupons)
}

func NewResolverWith(coupons []Coupon) *Resolver {
	return &Resolver{coupons: append([]Coupon(nil), coupons...)}
}

func (r *Resolver) List() []Coupon {
	return append([]Coupon(nil), r.coupons...)
}

// Lookup finds a coupon by code, ignoring case and surrounding space.
func (r *Resolver) Lookup(code string) (Coupon, bool) {
	code = strings.TrimSpace(code)
	for _, c := range r.coupons {
		if strings.EqualFold(c.Code, code) {
			return c, true
		}
	}
	return Coupon{}, false
}

// Resolve computes the discount a coupon grants on subtotal. Flat values are
// whole rupees. The result is not clamped to the subtotal.
func (r *Resolver) Resolve(code string, subtotal types.Paise, hasPriorOrders bool) (Resolution, error) {
	c, ok := r.Lookup(code)
	if !ok {
		return Resolution{}, ErrInvalidCoupon
	}
	if c.FirstOrderOnly && hasPriorOrders {
		return Resolution{}, ErrNotApplicable
	}

	var discount types.Paise
	switch c.Type {
	case enums.CouponTypePercent:
		raw := subtotal.Decimal().Mul(decimal.NewFromInt(c.Value)).Div(decimal.NewFromInt(100))
		discount = types.Paise(raw.Round(2).Shift(2).IntPart())
		if c.MaxDiscount != nil {
			discount = types.MinPaise(discount, *c.MaxDiscount)
		}
	case enums.CouponTypeFlat:
		discount = types.Rupees(c.Value)
	default:
		return Resolution{}, ErrInvalidCoupon
	}
	return Resolution{Coupon: c, Discount: discount}, nil
}
