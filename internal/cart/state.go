package cart

import (
	"time"

	"github.com/angelmondragon/quickdelivery-backend/pkg/enums"
	"github.com/angelmondragon/quickdelivery-backend/pkg/types"
)

// State is the cart session aggregate. It is persisted wholesale as one blob.
type State struct {
	Items             []types.LineItem `json:"items"`
	Addresses         []types.Address  `json:"addresses"`
	Orders            []types.Order    `json:"orders"`
	AppliedCouponCode *string          `json:"applied_coupon_code"`
	AppliedDiscount   types.Paise      `json:"applied_discount_paise"`
}

// Intent is a named mutation of State. The set is closed.
type Intent interface {
	isIntent()
}

// AddItem merges Item into the line with the same (product, unit) or appends it.
type AddItem struct {
	Item types.LineItem
}

// UpdateQuantity sets the quantity of the matching lines; quantity <= 0 removes them.
type UpdateQuantity struct {
	ProductID string
	Unit      string
	Quantity  int
}

type RemoveItem struct {
	ProductID string
	Unit      string
}

// ClearCart empties items and the applied coupon.
type ClearCart struct{}

type ApplyCoupon struct {
	Code     string
	Discount types.Paise
}

type RemoveCoupon struct{}

type AddAddress struct {
	Address types.Address
}

// AddOrder prepends Order to the history without touching the cart.
type AddOrder struct {
	Order types.Order
}

// PlaceOrder prepends Order and clears the cart in one transition.
type PlaceOrder struct {
	Order types.Order
}

// UpdateOrderStatus moves an order and appends to its history. Reason is kept
// only when Status is CANCELLED.
type UpdateOrderStatus struct {
	OrderID string
	Status  enums.OrderStatus
	At      time.Time
	Reason  string
}

type RateOrder struct {
	OrderID string
	Rating  types.Rating
}

func (AddItem) isIntent()           {}
func (UpdateQuantity) isIntent()    {}
func (RemoveItem) isIntent()        {}
func (ClearCart) isIntent()         {}
func (ApplyCoupon) isIntent()       {}
func (RemoveCoupon) isIntent()      {}
func (AddAddress) isIntent()        {}
func (AddOrder) isIntent()          {}
func (PlaceOrder) isIntent()        {}
func (UpdateOrderStatus) isIntent() {}
func (RateOrder) isIntent()         {}

// Reduce applies intent to s and returns the next state. s is never mutated.
func Reduce(s State, intent Intent) State {
	next := s.Clone()

	switch in := intent.(type) {
	case AddItem:
		next.Items = addItem(next.Items, in.Item)
	case UpdateQuantity:
		next.Items = setQuantity(next.Items, in.ProductID, in.Unit, in.Quantity)
	case RemoveItem:
		next.Items = setQuantity(next.Items, in.ProductID, in.Unit, 0)
	case ClearCart:
		next.Items = nil
		next.AppliedCouponCode = nil
		next.AppliedDiscount = 0
	case ApplyCoupon:
		code := in.Code
		next.AppliedCouponCode = &code
		next.AppliedDiscount = in.Discount
	case RemoveCoupon:
		next.AppliedCouponCode = nil
		next.AppliedDiscount = 0
	case AddAddress:
		next.Addresses = append(next.Addresses, in.Address)
	case AddOrder:
		next.Orders = prependOrder(next.Orders, in.Order)
	case PlaceOrder:
		next.Orders = prependOrder(next.Orders, in.Order)
		next.Items = nil
		next.AppliedCouponCode = nil
		next.AppliedDiscount = 0
	case UpdateOrderStatus:
		if o := next.findOrder(in.OrderID); o != nil {
			o.Status = in.Status
			o.StatusHistory = append(o.StatusHistory, types.StatusUpdate{Status: in.Status, Timestamp: in.At})
			if in.Status == enums.OrderStatusCancelled && in.Reason != "" {
				o.CancelReason = in.Reason
			}
		}
	case RateOrder:
		if o := next.findOrder(in.OrderID); o != nil {
			r := in.Rating
			o.Rating = &r
		}
	}
	return next
}

// ReduceAll folds intents over s in order.
func ReduceAll(s State, intents ...Intent) State {
	for _, in := range intents {
		s = Reduce(s, in)
	}
	return s
}

// Clone returns a deep copy of the state.
func (s State) Clone() State {
	out := State{
		Items:           types.CloneLineItems(s.Items),
		AppliedDiscount: s.AppliedDiscount,
	}
	if s.Addresses != nil {
		out.Addresses = append([]types.Address(nil), s.Addresses...)
	}
	if s.Orders != nil {
		out.Orders = make([]types.Order, len(s.Orders))
		for i, o := range s.Orders {
			out.Orders[i] = o.Clone()
		}
	}
	if s.AppliedCouponCode != nil {
		code := *s.AppliedCouponCode
		out.AppliedCouponCode = &code
	}
	return out
}

// FindOrder returns a copy of the order with id.
func (s State) FindOrder(id string) (types.Order, bool) {
	for _, o := range s.Orders {
		if o.ID == id {
			return o.Clone(), true
		}
	}
	return types.Order{}, false
}

// FindAddress returns the saved address with id.
func (s State) FindAddress(id string) (types.Address, bool) {
	for _, a := range s.Addresses {
		if a.ID == id {
			return a, true
		}
	}
	return types.Address{}, false
}

// QuantityOf sums the quantity of every line of the product in unit.
func (s State) QuantityOf(productID, unit string) int {
	total := 0
	for _, item := range s.Items {
		if item.Matches(productID, unit) {
			total += item.Quantity
		}
	}
	return total
}

func (s *State) findOrder(id string) *types.Order {
	for i := range s.Orders {
		if s.Orders[i].ID == id {
			return &s.Orders[i]
		}
	}
	return nil
}

func addItem(items []types.LineItem, item types.LineItem) []types.LineItem {
	for i := range items {
		if items[i].ProductID == item.ProductID && items[i].Unit == item.Unit {
			items[i].Quantity += item.Quantity
			if items[i].Quantity <= 0 {
				return append(items[:i], items[i+1:]...)
			}
			return items
		}
	}
	if item.Quantity <= 0 {
		return items
	}
	return append(items, item)
}

func setQuantity(items []types.LineItem, productID, unit string, quantity int) []types.LineItem {
	out := items[:0]
	for _, item := range items {
		if item.Matches(productID, unit) {
			if quantity <= 0 {
				continue
			}
			item.Quantity = quantity
		}
		out = append(out, item)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// prependOrder puts order first. Replaying the same order id replaces the
// earlier copy instead of duplicating it.
func prependOrder(orders []types.Order, order types.Order) []types.Order {
	out := make([]types.Order, 0, len(orders)+1)
	out = append(out, order.Clone())
	for _, o := range orders {
		if o.ID != order.ID {
			out = append(out, o)
		}
	}
	return out
}
