package model

import (
	"encoding/json"
	"fmt"
)

// Product is a store product as reported by the native billing SDK.
type Product struct {
	ID                string      `json:"id"`
	Title             string      `json:"title"`
	Description       string      `json:"description"`
	Price             string      `json:"price"`
	PriceCurrencyCode *string     `json:"priceCurrencyCode,omitempty"`
	PriceAmountMicros int64       `json:"priceAmountMicros"`
	ProductType       ProductType `json:"productType"`
}

func (p *Product) UnmarshalJSON(data []byte) error {
	type plain Product
	return decodeObject(data, (*plain)(p), "id", "title", "description", "price", "priceAmountMicros", "productType")
}

// Purchase is a store transaction record. The core passes it through
// without interpreting it.
type Purchase struct {
	ProductID             string        `json:"productId"`
	TransactionID         string        `json:"transactionId"`
	PurchaseDate          string        `json:"purchaseDate"`
	OriginalTransactionID string        `json:"originalTransactionId"`
	PurchaseState         PurchaseState `json:"purchaseState"`
	Platform              Platform      `json:"platform"`
}

func (p *Purchase) UnmarshalJSON(data []byte) error {
	type plain Purchase
	return decodeObject(data, (*plain)(p),
		"productId", "transactionId", "purchaseDate", "originalTransactionId", "purchaseState", "platform")
}

type IAPInitializeRequest struct {
	PublicKey *string `json:"publicKey,omitempty"`
}

type IAPInitializeResponse struct {
	Success bool `json:"success"`
}

func (r *IAPInitializeResponse) UnmarshalJSON(data []byte) error {
	type plain IAPInitializeResponse
	return decodeObject(data, (*plain)(r), "success")
}

type IAPFetchProductsRequest struct {
	ProductIDs []string `json:"productIds"`
}

func (r *IAPFetchProductsRequest) UnmarshalJSON(data []byte) error {
	type plain IAPFetchProductsRequest
	return decodeObject(data, (*plain)(r), "productIds")
}

func (r IAPFetchProductsRequest) Validate() error {
	if len(r.ProductIDs) == 0 {
		return fmt.Errorf("productIds must not be empty")
	}
	for i, id := range r.ProductIDs {
		if err := nonEmpty(fmt.Sprintf("productIds[%d]", i), id); err != nil {
			return err
		}
	}
	return nil
}

type IAPFetchProductsResponse struct {
	Products []Product `json:"products"`
}

func (r *IAPFetchProductsResponse) UnmarshalJSON(data []byte) error {
	type plain IAPFetchProductsResponse
	return decodeObject(data, (*plain)(r), "products")
}

func (r IAPFetchProductsResponse) MarshalJSON() ([]byte, error) {
	type plain IAPFetchProductsResponse
	if r.Products == nil {
		r.Products = []Product{}
	}
	return json.Marshal(plain(r))
}

type IAPPurchaseProductRequest struct {
	ProductID string `json:"productId"`
}

func (r *IAPPurchaseProductRequest) UnmarshalJSON(data []byte) error {
	type plain IAPPurchaseProductRequest
	return decodeObject(data, (*plain)(r), "productId")
}

func (r IAPPurchaseProductRequest) Validate() error { return nonEmpty("productId", r.ProductID) }

// IAPPurchaseProductResponse carries at most one of Purchase and
// CancelledPurchase. Both nil means the flow has not produced a result yet.
type IAPPurchaseProductResponse struct {
	Purchase          *Purchase `json:"purchase,omitempty"`
	CancelledPurchase *Purchase `json:"cancelledPurchase,omitempty"`
}

func (r *IAPPurchaseProductResponse) UnmarshalJSON(data []byte) error {
	type plain IAPPurchaseProductResponse
	if err := decodeObject(data, (*plain)(r)); err != nil {
		return err
	}
	return r.Validate()
}

func (r IAPPurchaseProductResponse) MarshalJSON() ([]byte, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	type plain IAPPurchaseProductResponse
	return json.Marshal(plain(r))
}

func (r IAPPurchaseProductResponse) Validate() error {
	if r.Purchase != nil && r.CancelledPurchase != nil {
		return fmt.Errorf("purchase and cancelledPurchase are mutually exclusive")
	}
	return nil
}

type IAPRestorePurchasesResponse struct {
	Purchases []Purchase `json:"purchases"`
}

func (r *IAPRestorePurchasesResponse) UnmarshalJSON(data []byte) error {
	type plain IAPRestorePurchasesResponse
	return decodeObject(data, (*plain)(r), "purchases")
}

func (r IAPRestorePurchasesResponse) MarshalJSON() ([]byte, error) {
	type plain IAPRestorePurchasesResponse
	if r.Purchases == nil {
		r.Purchases = []Purchase{}
	}
	return json.Marshal(plain(r))
}
