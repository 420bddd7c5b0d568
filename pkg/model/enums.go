package model

import "encoding/json"

// EventCode is the kind of an asynchronous TTS event.
type EventCode string

const (
	EventBoundary EventCode = "boundary"
	EventError    EventCode = "error"
	EventEnd      EventCode = "end"
)

// Granularity is a unit at which a TTS engine can report boundaries.
type Granularity string

const (
	GranularityWord      Granularity = "word"
	GranularitySentence  Granularity = "sentence"
	GranularityParagraph Granularity = "paragraph"
)

// PurchaseState is the lifecycle state of a store transaction.
type PurchaseState string

const (
	PurchasePurchased PurchaseState = "purchased"
	PurchasePending   PurchaseState = "pending"
	PurchaseCancelled PurchaseState = "cancelled"
	PurchaseRestored  PurchaseState = "restored"
)

// ProductType classifies a store product.
type ProductType string

const (
	ProductConsumable    ProductType = "consumable"
	ProductNonConsumable ProductType = "non_consumable"
	ProductSubscription  ProductType = "subscription"
)

// Platform is the mobile platform a record originated from.
type Platform string

const (
	PlatformIOS     Platform = "ios"
	PlatformAndroid Platform = "android"
)

// Orientation is a screen orientation lock mode.
type Orientation string

const (
	OrientationPortrait  Orientation = "portrait"
	OrientationLandscape Orientation = "landscape"
	OrientationAuto      Orientation = "auto"
)

func (c EventCode) Valid() bool {
	switch c {
	case EventBoundary, EventError, EventEnd:
		return true
	}
	return false
}

func (g Granularity) Valid() bool {
	switch g {
	case GranularityWord, GranularitySentence, GranularityParagraph:
		return true
	}
	return false
}

func (s PurchaseState) Valid() bool {
	switch s {
	case PurchasePurchased, PurchasePending, PurchaseCancelled, PurchaseRestored:
		return true
	}
	return false
}

func (p ProductType) Valid() bool {
	switch p {
	case ProductConsumable, ProductNonConsumable, ProductSubscription:
		return true
	}
	return false
}

func (p Platform) Valid() bool {
	return p == PlatformIOS || p == PlatformAndroid
}

func (o Orientation) Valid() bool {
	switch o {
	case OrientationPortrait, OrientationLandscape, OrientationAuto:
		return true
	}
	return false
}

func unmarshalEnum(data []byte, name string, valid func(string) bool) (string, error) {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return "", err
	}
	if !valid(s) {
		return "", &EnumError{Enum: name, Value: s}
	}
	return s, nil
}

func marshalEnum(s, name string, ok bool) ([]byte, error) {
	if !ok {
		return nil, &EnumError{Enum: name, Value: s}
	}
	return json.Marshal(s)
}

func (c EventCode) MarshalJSON() ([]byte, error) {
	return marshalEnum(string(c), "event code", c.Valid())
}

func (c *EventCode) UnmarshalJSON(data []byte) error {
	s, err := unmarshalEnum(data, "event code", func(s string) bool { return EventCode(s).Valid() })
	*c = EventCode(s)
	return err
}

func (g Granularity) MarshalJSON() ([]byte, error) {
	return marshalEnum(string(g), "granularity", g.Valid())
}

func (g *Granularity) UnmarshalJSON(data []byte) error {
	s, err := unmarshalEnum(data, "granularity", func(s string) bool { return Granularity(s).Valid() })
	*g = Granularity(s)
	return err
}

func (s PurchaseState) MarshalJSON() ([]byte, error) {
	return marshalEnum(string(s), "purchase state", s.Valid())
}

func (s *PurchaseState) UnmarshalJSON(data []byte) error {
	v, err := unmarshalEnum(data, "purchase state", func(v string) bool { return PurchaseState(v).Valid() })
	*s = PurchaseState(v)
	return err
}

func (p ProductType) MarshalJSON() ([]byte, error) {
	return marshalEnum(string(p), "product type", p.Valid())
}

func (p *ProductType) UnmarshalJSON(data []byte) error {
	s, err := unmarshalEnum(data, "product type", func(s string) bool { return ProductType(s).Valid() })
	*p = ProductType(s)
	return err
}

func (p Platform) MarshalJSON() ([]byte, error) {
	return marshalEnum(string(p), "platform", p.Valid())
}

func (p *Platform) UnmarshalJSON(data []byte) error {
	s, err := unmarshalEnum(data, "platform", func(s string) bool { return Platform(s).Valid() })
	*p = Platform(s)
	return err
}

func (o Orientation) MarshalJSON() ([]byte, error) {
	return marshalEnum(string(o), "orientation", o.Valid())
}

func (o *Orientation) UnmarshalJSON(data []byte) error {
	s, err := unmarshalEnum(data, "orientation", func(s string) bool { return Orientation(s).Valid() })
	*o = Orientation(s)
	return err
}
