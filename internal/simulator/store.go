package simulator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sekia-ai/nativebridge/pkg/model"
	"github.com/sekia-ai/nativebridge/pkg/plugin"
	"github.com/sekia-ai/nativebridge/pkg/protocol"
)

// ErrBillingUnavailable is returned for store calls before iap_initialize.
var ErrBillingUnavailable = errors.New("billing client not initialized")

// DefaultProducts is the simulated store catalogue.
var DefaultProducts = []model.Product{
	{ID: "book_123", Title: "The Book", Description: "A single book", Price: "$9.99", PriceCurrencyCode: strPtr("USD"), PriceAmountMicros: 9_990_000, ProductType: model.ProductNonConsumable},
	{ID: "credits_100", Title: "100 Credits", Description: "Translation credits", Price: "$1.99", PriceCurrencyCode: strPtr("USD"), PriceAmountMicros: 1_990_000, ProductType: model.ProductConsumable},
	{ID: "plus_monthly", Title: "Plus", Description: "Monthly subscription", Price: "$4.99", PriceCurrencyCode: strPtr("USD"), PriceAmountMicros: 4_990_000, ProductType: model.ProductSubscription},
}

func strPtr(s string) *string { return &s }

// StoreEngine simulates a billing client.
type StoreEngine struct {
	platform  model.Platform
	products  map[string]model.Product
	cancelled map[string]bool
	now       func() time.Time
	logger    zerolog.Logger

	mu          sync.Mutex
	initialized bool
	publicKey   string
	purchases   []model.Purchase
}

// NewStoreEngine returns a StoreEngine. Purchases of a product listed in
// cancelled come back as cancelled.
func NewStoreEngine(platform model.Platform, products []model.Product, cancelled []string, logger zerolog.Logger) *StoreEngine {
	s := &StoreEngine{
		platform:  platform,
		products:  make(map[string]model.Product, len(products)),
		cancelled: make(map[string]bool, len(cancelled)),
		now:       time.Now,
		logger:    logger.With().Str("engine", "store").Logger(),
	}
	for _, p := range products {
		s.products[p.ID] = p
	}
	for _, id := range cancelled {
		s.cancelled[id] = true
	}
	return s
}

// PublicKey returns the key passed to the last iap_initialize.
func (s *StoreEngine) PublicKey() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.publicKey
}

// Handlers returns the store methods of the bridge plugin.
func (s *StoreEngine) Handlers() map[string]plugin.Handler {
	return map[string]plugin.Handler{
		protocol.CmdIAPInitialize:       plugin.Typed(s.initialize),
		protocol.CmdIAPFetchProducts:    plugin.Typed(s.fetchProducts),
		protocol.CmdIAPPurchaseProduct:  plugin.Typed(s.purchaseProduct),
		protocol.CmdIAPRestorePurchases: plugin.Typed(s.restorePurchases),
	}
}

func (s *StoreEngine) initialize(_ context.Context, req model.IAPInitializeRequest) (model.IAPInitializeResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	// Google Play verifies purchases against the app's public key.
	if s.platform == model.PlatformAndroid && req.PublicKey == nil {
		return model.IAPInitializeResponse{Success: false}, nil
	}
	if req.PublicKey != nil {
		s.publicKey = *req.PublicKey
	}
	s.initialized = true
	return model.IAPInitializeResponse{Success: true}, nil
}

// fetchProducts returns the known products in request order. Unknown ids
// are left out, as real stores do.
func (s *StoreEngine) fetchProducts(_ context.Context, req model.IAPFetchProductsRequest) (model.IAPFetchProductsResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return model.IAPFetchProductsResponse{}, ErrBillingUnavailable
	}
	products := []model.Product{}
	for _, id := range req.ProductIDs {
		if p, ok := s.products[id]; ok {
			products = append(products, p)
		}
	}
	return model.IAPFetchProductsResponse{Products: products}, nil
}

func (s *StoreEngine) purchaseProduct(_ context.Context, req model.IAPPurchaseProductRequest) (model.IAPPurchaseProductResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return model.IAPPurchaseProductResponse{}, ErrBillingUnavailable
	}
	if _, ok := s.products[req.ProductID]; !ok {
		return model.IAPPurchaseProductResponse{}, fmt.Errorf("product %q not found", req.ProductID)
	}

	txID := uuid.NewString()
	p := model.Purchase{
		ProductID:             req.ProductID,
		TransactionID:         txID,
		PurchaseDate:          s.now().UTC().Format(time.RFC3339),
		OriginalTransactionID: txID,
		Platform:              s.platform,
	}
	if s.cancelled[req.ProductID] {
		p.PurchaseState = model.PurchaseCancelled
		return model.IAPPurchaseProductResponse{CancelledPurchase: &p}, nil
	}
	p.PurchaseState = model.PurchasePurchased
	s.purchases = append(s.purchases, p)
	return model.IAPPurchaseProductResponse{Purchase: &p}, nil
}

// restorePurchases returns every non-consumable and subscription purchase
// made so far, marked restored.
func (s *StoreEngine) restorePurchases(context.Context, model.Empty) (model.IAPRestorePurchasesResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return model.IAPRestorePurchasesResponse{}, ErrBillingUnavailable
	}
	restored := []model.Purchase{}
	for _, p := range s.purchases {
		if s.products[p.ProductID].ProductType == model.ProductConsumable {
			continue
		}
		p.PurchaseState = model.PurchaseRestored
		restored = append(restored, p)
	}
	return model.IAPRestorePurchasesResponse{Purchases: restored}, nil
}
