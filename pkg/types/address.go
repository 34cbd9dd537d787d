package types

// Address is a saved delivery address. Addresses are append-only per session.
type Address struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Line1   string `json:"line1"`
	Line2   string `json:"line2,omitempty"`
	Area    string `json:"area"`
	Pincode string `json:"pincode"`
	City    string `json:"city"`
}
