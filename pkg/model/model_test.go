package model

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"
)

func ptr[T any](v T) *T { return &v }

func roundTrip[T any](t *testing.T, in T) {
	t.Helper()
	data, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal %T: %v", in, err)
	}
	out, err := Decode[T](data)
	if err != nil {
		t.Fatalf("decode %T from %s: %v", in, data, err)
	}
	if !reflect.DeepEqual(in, out) {
		t.Fatalf("round trip mismatch for %T:\n in: %+v\nout: %+v\nwire: %s", in, in, out, data)
	}
}

func TestRoundTrip(t *testing.T) {
	roundTrip(t, TTSMessageEvent{Code: EventBoundary, Mark: ptr("pos:0-5"), UtteranceID: ptr("u-1")})
	roundTrip(t, TTSMessageEvent{Code: EventEnd})
	roundTrip(t, SetRateArgs{Rate: 1.1})
	roundTrip(t, SetPitchArgs{Pitch: 0.75})
	roundTrip(t, GetVoicesResponse{Voices: []Voice{
		{ID: "en-us-x-sfg", Name: "Sofia", Lang: "en-US"},
		{ID: "de-de-x-nfh", Name: "Nils", Lang: "de-DE", Disabled: true},
	}})
	roundTrip(t, GetGranularitiesResponse{Granularities: []Granularity{GranularityWord, GranularitySentence}})
	roundTrip(t, CopyURIResponse{Success: true, Error: ptr("copied with warnings")})
	roundTrip(t, GetStatusBarHeightResponse{Height: 4294967295})
	roundTrip(t, GetSysFontsListResponse{Fonts: map[string]string{"Georgia": "/fonts/georgia.ttf"}})
	roundTrip(t, InterceptKeysRequest{VolumeKeys: ptr(true)})
	roundTrip(t, IAPFetchProductsResponse{Products: []Product{{
		ID: "book_123", Title: "Book", Description: "A book", Price: "9.99",
		PriceCurrencyCode: ptr("USD"), PriceAmountMicros: 9_223_372_036_854_775_807,
		ProductType: ProductNonConsumable,
	}}})
	roundTrip(t, IAPPurchaseProductResponse{CancelledPurchase: &Purchase{
		ProductID: "book_123", TransactionID: "t1", PurchaseDate: "2025-01-02T03:04:05Z",
		OriginalTransactionID: "t1", PurchaseState: PurchaseCancelled, Platform: PlatformAndroid,
	}})
	roundTrip(t, IAPPurchaseProductResponse{})
	roundTrip(t, GetVoicesResponse{Voices: []Voice{}})
	roundTrip(t, IAPRestorePurchasesResponse{Purchases: []Purchase{}})
	roundTrip(t, GetSysFontsListResponse{Fonts: map[string]string{}})
}

// emptyTrip checks that a nil collection goes out as an empty one and
// decodes back to the same empty value.
func emptyTrip[T any](t *testing.T, in, empty T, wantWire string) {
	t.Helper()
	data, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal %T: %v", in, err)
	}
	if string(data) != wantWire {
		t.Fatalf("%T encoded as %s, want %s", in, data, wantWire)
	}
	out, err := Decode[T](data)
	if err != nil {
		t.Fatalf("decode %T from %s: %v", in, data, err)
	}
	if !reflect.DeepEqual(out, empty) {
		t.Fatalf("%T decoded as %+v, want %+v", in, out, empty)
	}
}

func TestNilCollectionsEncodeEmpty(t *testing.T) {
	emptyTrip(t, GetVoicesResponse{}, GetVoicesResponse{Voices: []Voice{}}, `{"voices":[]}`)
	emptyTrip(t, GetGranularitiesResponse{}, GetGranularitiesResponse{Granularities: []Granularity{}}, `{"granularities":[]}`)
	emptyTrip(t, GetSysFontsListResponse{}, GetSysFontsListResponse{Fonts: map[string]string{}}, `{"fonts":{}}`)
	emptyTrip(t, IAPFetchProductsResponse{}, IAPFetchProductsResponse{Products: []Product{}}, `{"products":[]}`)
	emptyTrip(t, IAPRestorePurchasesResponse{}, IAPRestorePurchasesResponse{Purchases: []Purchase{}}, `{"purchases":[]}`)

	// Still rejected when a peer sends an explicit null.
	if _, err := Decode[GetVoicesResponse]([]byte(`{"voices":null}`)); err == nil {
		t.Fatal("expected error for null voices")
	}
}

func TestWireNamesAreCamelCase(t *testing.T) {
	data, err := json.Marshal(SetSystemUIVisibilityRequest{Visible: true, DarkMode: true})
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"visible":true,"darkMode":true}` {
		t.Fatalf("unexpected wire form %s", data)
	}
	data, _ = json.Marshal(SpeakResponse{UtteranceID: "abc"})
	if string(data) != `{"utteranceId":"abc"}` {
		t.Fatalf("unexpected wire form %s", data)
	}
}

func TestVoiceDisabledDefaultsFalse(t *testing.T) {
	resp, err := Decode[GetVoicesResponse]([]byte(`{"voices":[{"id":"a","name":"A","lang":"en"},{"id":"b","name":"B","lang":"fr","disabled":true}]}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Voices) != 2 {
		t.Fatalf("got %d voices, want 2", len(resp.Voices))
	}
	if resp.Voices[0].Disabled {
		t.Error("voice without disabled field should default to false")
	}
	if !resp.Voices[1].Disabled {
		t.Error("explicit disabled=true was lost")
	}
	if resp.Voices[0].ID != "a" || resp.Voices[1].ID != "b" {
		t.Error("voice order not preserved")
	}
}

func TestOptionalAbsentAndNullAreEquivalent(t *testing.T) {
	absent, err := Decode[TTSMessageEvent]([]byte(`{"code":"error"}`))
	if err != nil {
		t.Fatal(err)
	}
	null, err := Decode[TTSMessageEvent]([]byte(`{"code":"error","message":null,"mark":null}`))
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(absent, null) {
		t.Fatalf("absent %+v != null %+v", absent, null)
	}
	if absent.Message != nil || absent.Mark != nil {
		t.Fatal("optional fields should be nil")
	}
}

func TestPreloadDefaultsFalse(t *testing.T) {
	args, err := Decode[SpeakArgs]([]byte(`{"text":"hello"}`))
	if err != nil {
		t.Fatal(err)
	}
	if args.Preload {
		t.Fatal("preload should default to false")
	}
}

func TestClosedEnumRejection(t *testing.T) {
	tests := []struct {
		name string
		run  func() error
	}{
		{"purchase state", func() error {
			_, err := Decode[Purchase]([]byte(`{"productId":"p","transactionId":"t","purchaseDate":"d","originalTransactionId":"t","purchaseState":"refunded","platform":"ios"}`))
			return err
		}},
		{"granularity", func() error {
			_, err := Decode[GetGranularitiesResponse]([]byte(`{"granularities":["word","syllable"]}`))
			return err
		}},
		{"event code", func() error {
			_, err := Decode[TTSMessageEvent]([]byte(`{"code":"start"}`))
			return err
		}},
		{"product type", func() error {
			_, err := Decode[Product]([]byte(`{"id":"p","title":"t","description":"d","price":"1","priceAmountMicros":1,"productType":"bundle"}`))
			return err
		}},
		{"platform", func() error {
			_, err := Decode[Purchase]([]byte(`{"productId":"p","transactionId":"t","purchaseDate":"d","originalTransactionId":"t","purchaseState":"pending","platform":"windows"}`))
			return err
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run()
			var enumErr *EnumError
			if !errors.As(err, &enumErr) {
				t.Fatalf("expected EnumError, got %v", err)
			}
		})
	}
}

func TestMarshalRejectsInvalidEnum(t *testing.T) {
	if _, err := json.Marshal(TTSMessageEvent{Code: "start"}); err == nil {
		t.Fatal("expected marshal error for invalid event code")
	}
}

func TestRequiredFields(t *testing.T) {
	_, err := Decode[Voice]([]byte(`{"id":"a","name":"A"}`))
	var fieldErr *FieldError
	if !errors.As(err, &fieldErr) || fieldErr.Field != "lang" {
		t.Fatalf("expected missing lang, got %v", err)
	}

	_, err = Decode[SetRateArgs]([]byte(`{"rate":null}`))
	if !errors.As(err, &fieldErr) || fieldErr.Reason != "null" {
		t.Fatalf("expected null rate error, got %v", err)
	}

	if _, err := Decode[SetRateArgs]([]byte(`null`)); err == nil {
		t.Fatal("expected error for null object")
	}
}

func TestNumericWidths(t *testing.T) {
	if _, err := Decode[GetStatusBarHeightResponse]([]byte(`{"height":-1}`)); err == nil {
		t.Fatal("negative height should not decode into uint32")
	}
	if _, err := Decode[SetRateArgs]([]byte(`{"rate":1e40}`)); err == nil {
		t.Fatal("rate beyond float32 range should not decode")
	}
	if _, err := Decode[Product]([]byte(`{"id":"p","title":"t","description":"d","price":"1","priceAmountMicros":1.5,"productType":"consumable"}`)); err == nil {
		t.Fatal("fractional micros should not decode into int64")
	}
}

func TestPurchaseResponseAtMostOne(t *testing.T) {
	p := `{"productId":"book_123","transactionId":"t","purchaseDate":"d","originalTransactionId":"t","purchaseState":"purchased","platform":"ios"}`
	_, err := Decode[IAPPurchaseProductResponse]([]byte(`{"purchase":` + p + `,"cancelledPurchase":` + p + `}`))
	if err == nil || !strings.Contains(err.Error(), "mutually exclusive") {
		t.Fatalf("expected mutual exclusion error, got %v", err)
	}

	resp, err := Decode[IAPPurchaseProductResponse]([]byte(`{}`))
	if err != nil {
		t.Fatalf("empty response should decode: %v", err)
	}
	if resp.Purchase != nil || resp.CancelledPurchase != nil {
		t.Fatal("expected both absent")
	}

	both := IAPPurchaseProductResponse{Purchase: &Purchase{}, CancelledPurchase: &Purchase{}}
	if _, err := json.Marshal(both); err == nil {
		t.Fatal("marshal should refuse both populated")
	}
}

func TestEmptyPayload(t *testing.T) {
	for _, in := range []string{"", "{}", "null", `{"ignored":1}`} {
		if _, err := Decode[Empty]([]byte(in)); err != nil {
			t.Errorf("Decode[Empty](%q): %v", in, err)
		}
	}
	if _, err := Decode[Empty]([]byte(`[1]`)); err == nil {
		t.Error("array should not decode as Empty")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		v     Validator
		valid bool
	}{
		{"rate ok", SetRateArgs{Rate: 1.5}, true},
		{"rate low", SetRateArgs{Rate: 0.1}, false},
		{"rate high", SetRateArgs{Rate: 3.5}, false},
		{"pitch ok", SetPitchArgs{Pitch: 1}, true},
		{"pitch high", SetPitchArgs{Pitch: 2.5}, false},
		{"voice empty", SetVoiceArgs{Voice: " "}, false},
		{"lang ok", SetLangArgs{Lang: "zh-Hant-TW"}, true},
		{"lang bad", SetLangArgs{Lang: "not a tag!"}, false},
		{"voices lang empty", GetVoicesArgs{Lang: ""}, false},
		{"speak empty", SpeakArgs{Text: "  "}, false},
		{"speak ok", SpeakArgs{Text: "<speak>hi</speak>"}, true},
		{"auth relative", AuthRequest{AuthURL: "/callback"}, false},
		{"auth ok", AuthRequest{AuthURL: "https://example.com/auth"}, true},
		{"copy missing dst", CopyURIRequest{URI: "content://x"}, false},
		{"install ok", InstallPackageRequest{Path: "/tmp/app.apk"}, true},
		{"fetch none", IAPFetchProductsRequest{}, false},
		{"fetch blank id", IAPFetchProductsRequest{ProductIDs: []string{"a", ""}}, false},
		{"purchase ok", IAPPurchaseProductRequest{ProductID: "book_123"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.v.Validate()
			if tt.valid && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tt.valid && err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestSpeakArgsIsSSML(t *testing.T) {
	if !(SpeakArgs{Text: `  <speak version="1.0">hi</speak>`}).IsSSML() {
		t.Error("expected SSML")
	}
	if (SpeakArgs{Text: "plain text"}).IsSSML() {
		t.Error("plain text is not SSML")
	}
}
