package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/angelmondragon/quickdelivery-backend/internal/address"
	"github.com/angelmondragon/quickdelivery-backend/internal/catalog"
	"github.com/angelmondragon/quickdelivery-backend/internal/coupons"
	"github.com/angelmondragon/quickdelivery-backend/internal/pricing"
	pkgerrors "github.com/angelmondragon/quickdelivery-backend/pkg/errors"
	"github.com/angelmondragon/quickdelivery-backend/pkg/logger"
	"github.com/angelmondragon/quickdelivery-backend/pkg/types"
)

// View is the cart as returned to clients, with the bill derived on read.
type View struct {
	Items      []types.LineItem `json:"items"`
	CouponCode *string          `json:"coupon_code"`
	Bill       types.Bill       `json:"bill"`
	ItemCount  int              `json:"item_count"`
}

// NewView derives the bill from the state's items and applied discount.
func NewView(s State) View {
	items := s.Items
	if items == nil {
		items = []types.LineItem{}
	}
	count := 0
	for _, item := range items {
		count += item.Quantity
	}
	view := View{Items: items, CouponCode: s.AppliedCouponCode, ItemCount: count}
	// an empty cart owes nothing, not the flat delivery fee
	if len(items) > 0 {
		view.Bill = pricing.ComputeBill(items, s.AppliedDiscount)
	}
	return view
}

// AddItemInput identifies a catalog product and pack size. Unit may be empty
// for the product's default unit.
type AddItemInput struct {
	ProductID string `json:"product_id" validate:"required"`
	Unit      string `json:"unit"`
	Quantity  int    `json:"quantity" validate:"required,min=1,max=50"`
}

// Service exposes the cart operations behind the HTTP surface.
type Service interface {
	View(ctx context.Context, sessionID string) (View, error)
	AddItem(ctx context.Context, sessionID string, input AddItemInput) (View, error)
	UpdateQuantity(ctx context.Context, sessionID, productID, unit string, quantity int) (View, error)
	RemoveItem(ctx context.Context, sessionID, productID, unit string) (View, error)
	Clear(ctx context.Context, sessionID string) (View, error)
	ApplyCoupon(ctx context.Context, sessionID, code string) (View, error)
	RemoveCoupon(ctx context.Context, sessionID string) (View, error)
	AddAddress(ctx context.Context, sessionID string, input address.Input) (types.Address, error)
	Addresses(ctx context.Context, sessionID string) ([]types.Address, error)
}

type service struct {
	store   *Store
	catalog catalog.Reader
	coupons *coupons.Resolver
	logg    *logger.Logger
}

func NewService(store *Store, products catalog.Reader, resolver *coupons.Resolver, logg *logger.Logger) (Service, error) {
	if store == nil {
		return nil, fmt.Errorf("cart store required")
	}
	if products == nil {
		return nil, fmt.Errorf("catalog required")
	}
	if resolver == nil {
		return nil, fmt.Errorf("coupon resolver required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{store: store, catalog: products, coupons: resolver, logg: logg}, nil
}

func (s *service) View(ctx context.Context, sessionID string) (View, error) {
	state, err := s.store.Load(ctx, sessionID)
	if err != nil {
		return View{}, err
	}
	return NewView(state), nil
}

func (s *service) AddItem(ctx context.Context, sessionID string, input AddItemInput) (View, error) {
	if input.Quantity <= 0 {
		return View{}, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	line, product, err := s.catalog.Resolve(strings.TrimSpace(input.ProductID), strings.TrimSpace(input.Unit))
	if err != nil {
		return View{}, err
	}
	line.Quantity = input.Quantity

	state, err := s.store.Update(ctx, sessionID, func(current State) ([]Intent, error) {
		if !product.InStock {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product is out of stock").
				WithDetails(map[string]any{"product_id": product.ID})
		}
		intent := AddItem{Item: line}
		if err := checkStock(product, Reduce(current, intent)); err != nil {
			return nil, err
		}
		return s.withCouponRefresh(current, intent), nil
	})
	if err != nil {
		return View{}, err
	}
	return NewView(state), nil
}

// UpdateQuantity sets the quantity of one pack size, or of every pack size
// when unit is empty.
func (s *service) UpdateQuantity(ctx context.Context, sessionID, productID, unit string, quantity int) (View, error) {
	intent := UpdateQuantity{ProductID: strings.TrimSpace(productID), Unit: strings.TrimSpace(unit), Quantity: quantity}
	if quantity <= 0 {
		return s.mutate(ctx, sessionID, intent)
	}
	product, err := s.catalog.Get(intent.ProductID)
	if err != nil {
		return View{}, err
	}
	state, err := s.store.Update(ctx, sessionID, func(current State) ([]Intent, error) {
		if err := checkStock(product, Reduce(current, intent)); err != nil {
			return nil, err
		}
		return s.withCouponRefresh(current, intent), nil
	})
	if err != nil {
		return View{}, err
	}
	return NewView(state), nil
}

// checkStock holds the product's quantity summed over all pack sizes in next
// to its stock.
func checkStock(product catalog.Product, next State) error {
	if next.QuantityOf(product.ID, "") > product.StockQty {
		return pkgerrors.New(pkgerrors.CodeValidation, "requested quantity exceeds available stock").
			WithDetails(map[string]any{"product_id": product.ID, "stock_qty": product.StockQty})
	}
	return nil
}

func (s *service) RemoveItem(ctx context.Context, sessionID, productID, unit string) (View, error) {
	return s.mutate(ctx, sessionID, RemoveItem{ProductID: strings.TrimSpace(productID), Unit: strings.TrimSpace(unit)})
}

func (s *service) Clear(ctx context.Context, sessionID string) (View, error) {
	state, err := s.store.Dispatch(ctx, sessionID, ClearCart{})
	if err != nil {
		return View{}, err
	}
	return NewView(state), nil
}

func (s *service) ApplyCoupon(ctx context.Context, sessionID, code string) (View, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return View{}, pkgerrors.New(pkgerrors.CodeValidation, "coupon code is required")
	}

	state, err := s.store.Update(ctx, sessionID, func(current State) ([]Intent, error) {
		if len(current.Items) == 0 {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "add items before applying a coupon")
		}
		intent, err := s.resolve(code, current)
		if err != nil {
			return nil, couponError(err, code)
		}
		return []Intent{intent}, nil
	})
	if err != nil {
		return View{}, err
	}
	ctx = s.logg.WithSessionID(ctx, sessionID)
	s.logg.Info(s.logg.WithField(ctx, "coupon_code", strings.ToUpper(code)), "coupon applied")
	return NewView(state), nil
}

func (s *service) RemoveCoupon(ctx context.Context, sessionID string) (View, error) {
	state, err := s.store.Dispatch(ctx, sessionID, RemoveCoupon{})
	if err != nil {
		return View{}, err
	}
	return NewView(state), nil
}

func (s *service) AddAddress(ctx context.Context, sessionID string, input address.Input) (types.Address, error) {
	addr, err := address.Validate(input)
	if err != nil {
		return types.Address{}, err
	}
	if _, err := s.store.Dispatch(ctx, sessionID, AddAddress{Address: addr}); err != nil {
		return types.Address{}, err
	}
	return addr, nil
}

func (s *service) Addresses(ctx context.Context, sessionID string) ([]types.Address, error) {
	state, err := s.store.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if state.Addresses == nil {
		return []types.Address{}, nil
	}
	return state.Addresses, nil
}

func (s *service) mutate(ctx context.Context, sessionID string, intent Intent) (View, error) {
	state, err := s.store.Update(ctx, sessionID, func(current State) ([]Intent, error) {
		return s.withCouponRefresh(current, intent), nil
	})
	if err != nil {
		return View{}, err
	}
	return NewView(state), nil
}

// withCouponRefresh appends the intent that keeps the applied discount in step
// with the subtotal produced by intent.
func (s *service) withCouponRefresh(current State, intent Intent) []Intent {
	intents := []Intent{intent}
	if current.AppliedCouponCode == nil {
		return intents
	}
	next := Reduce(current, intent)
	refreshed, err := s.resolve(*current.AppliedCouponCode, next)
	if err != nil {
		return append(intents, RemoveCoupon{})
	}
	return append(intents, refreshed)
}

// resolve prices code against state; the discount never exceeds the subtotal.
func (s *service) resolve(code string, state State) (Intent, error) {
	if len(state.Items) == 0 {
		return nil, coupons.ErrNotApplicable
	}
	subtotal := pricing.Subtotal(state.Items)
	res, err := s.coupons.Resolve(code, subtotal, len(state.Orders) > 0)
	if err != nil {
		return nil, err
	}
	return ApplyCoupon{Code: res.Coupon.Code, Discount: types.MinPaise(res.Discount, subtotal)}, nil
}

func couponError(err error, code string) error {
	switch {
	case errors.Is(err, coupons.ErrInvalidCoupon):
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid coupon code").
			WithDetails(map[string]any{"reason": "invalid_coupon", "code": code})
	case errors.Is(err, coupons.ErrNotApplicable):
		return pkgerrors.New(pkgerrors.CodeValidation, "coupon is not applicable to this cart").
			WithDetails(map[string]any{"reason": "coupon_not_applicable", "code": code})
	default:
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "resolve coupon")
	}
}
