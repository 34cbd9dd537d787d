package address

import (
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/quickdelivery-backend/pkg/errors"
	"github.com/angelmondragon/quickdelivery-backend/pkg/types"
)

// City is the only city the service delivers to.
const City = "Kadapa"

var (
	serviceablePincodes = []string{"516001", "516002", "516003", "516004"}
	mobilePattern       = regexp.MustCompile(`^[6-9]\d{9}$`)
)

// Input is an address as entered by the customer.
type Input struct {
	Name    string `json:"name" validate:"required,max=80"`
	Phone   string `json:"phone" validate:"required"`
	Line1   string `json:"line1" validate:"required,max=200"`
	Line2   string `json:"line2" validate:"max=200"`
	Area    string `json:"area" validate:"required,max=120"`
	Pincode string `json:"pincode" validate:"required"`
}

// ServiceablePincodes returns the allow-list of postal codes.
func ServiceablePincodes() []string {
	return append([]string(nil), serviceablePincodes...)
}

// IsServiceable reports whether the pincode is inside the delivery area.
func IsServiceable(pincode string) bool {
	pincode = strings.TrimSpace(pincode)
	for _, p := range serviceablePincodes {
		if p == pincode {
			return true
		}
	}
	return false
}

// ValidMobile reports whether phone is a 10-digit Indian mobile number.
func ValidMobile(phone string) bool {
	return mobilePattern.MatchString(strings.TrimSpace(phone))
}

// Validate checks the input and returns a saved address with a fresh id and
// the city fixed.
func Validate(in Input) (types.Address, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Line1 = strings.TrimSpace(in.Line1)
	in.Line2 = strings.TrimSpace(in.Line2)
	in.Area = strings.TrimSpace(in.Area)
	in.Pincode = strings.TrimSpace(in.Pincode)

	switch {
	case in.Name == "":
		return types.Address{}, invalid("name", "name is required")
	case !ValidMobile(in.Phone):
		return types.Address{}, invalid("phone", "please enter a valid 10-digit mobile number")
	case in.Line1 == "":
		return types.Address{}, invalid("line1", "house/flat number is required")
	case in.Area == "":
		return types.Address{}, invalid("area", "area/locality is required")
	case !IsServiceable(in.Pincode):
		return types.Address{}, errors.New(errors.CodeValidation, "delivery not available for this pincode").
			WithDetails(map[string]any{
				"field":                "pincode",
				"serviceable_pincodes": ServiceablePincodes(),
				"city":                 City,
			})
	}

	return types.Address{
		ID:      uuid.NewString(),
		Name:    in.Name,
		Phone:   in.Phone,
		Line1:   in.Line1,
		Line2:   in.Line2,
		Area:    in.Area,
		Pincode: in.Pincode,
		City:    City,
	}, nil
}

func invalid(field, msg string) error {
	return errors.New(errors.CodeValidation, msg).WithDetails(map[string]any{"field": field})
}
