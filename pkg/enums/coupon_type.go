package enums

// CouponType discriminates how a coupon's value is interpreted.
type CouponType string

const (
	CouponTypePercent CouponType = "percent"
	CouponTypeFlat    CouponType = "flat"
)

// String implements fmt.Stringer.
func (c CouponType) String() string {
	return string(c)
}

// IsValid reports whether the value is a known CouponType.
func (c CouponType) IsValid() bool {
	return c == CouponTypePercent || c == CouponTypeFlat
}
