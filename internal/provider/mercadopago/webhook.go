// internal/provider/mercadopago/webhook.go
package mercadopago

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/DrawzeoBarrela/pix-pocket-brasil/internal/domain"
)

// SentinelTestPaymentID is the id Mercado Pago uses for "test your webhook" deliveries.
const SentinelTestPaymentID = "123456"

// deliveryView is a generic key-value view over both places an id can arrive.
type deliveryView struct {
	query url.Values
	body  map[string]any
}

// extractor tries one known delivery shape and reports whether it matched.
type extractor struct {
	name string
	fn   func(v *deliveryView) (*domain.DeliveryEvent, bool)
}

// extractors are tried in order, first match wins. Query shapes come first
// because the provider's connectivity test sends its id only in the URL.
var extractors = []extractor{
	{name: "query data.id", fn: func(v *deliveryView) (*domain.DeliveryEvent, bool) {
		return fromQuery(v, "data.id", false)
	}},
	{name: "query id with topic", fn: func(v *deliveryView) (*domain.DeliveryEvent, bool) {
		return fromQuery(v, "id", true)
	}},
	{name: "body data.id", fn: func(v *deliveryView) (*domain.DeliveryEvent, bool) {
		data, ok := v.body["data"].(map[string]any)
		if !ok {
			return nil, false
		}
		return fromBody(v, data["id"])
	}},
	{name: "body id", fn: func(v *deliveryView) (*domain.DeliveryEvent, bool) {
		return fromBody(v, v.body["id"])
	}},
	{name: "body payment_id", fn: func(v *deliveryView) (*domain.DeliveryEvent, bool) {
		return fromBody(v, v.body["payment_id"])
	}},
}

// ParseNotification normalizes a webhook delivery into a canonical event.
// It fails with domain.ErrMalformedEvent when no known shape yields an id.
func ParseNotification(query url.Values, body []byte) (*domain.DeliveryEvent, error) {
	view := &deliveryView{query: query}

	var bodyErr error
	if trimmed := bytes.TrimSpace(body); len(trimmed) > 0 {
		dec := json.NewDecoder(bytes.NewReader(trimmed))
		dec.UseNumber()
		var decoded any
		if err := dec.Decode(&decoded); err != nil {
			bodyErr = err
		} else if m, ok := decoded.(map[string]any); ok {
			view.body = m
		} else {
			bodyErr = fmt.Errorf("body is not a JSON object")
		}
	}

	for _, ex := range extractors {
		if event, ok := ex.fn(view); ok {
			event.IsTest = event.ProviderPaymentID == SentinelTestPaymentID
			return event, nil
		}
	}

	if bodyErr != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedEvent, bodyErr)
	}
	return nil, fmt.Errorf("%w: no payment id in query or body", domain.ErrMalformedEvent)
}

// SignedContent is what the delivery signature covers: the raw body, or the
// canonical event when the delivery carried everything in the query string.
func SignedContent(body []byte, event *domain.DeliveryEvent) []byte {
	if len(bytes.TrimSpace(body)) > 0 {
		return body
	}
	canonical, _ := json.Marshal(map[string]any{
		"type": event.Kind,
		"data": map[string]string{"id": event.ProviderPaymentID},
	})
	return canonical
}

func fromQuery(v *deliveryView, key string, requireKind bool) (*domain.DeliveryEvent, bool) {
	if v.query == nil {
		return nil, false
	}
	paymentID := strings.TrimSpace(v.query.Get(key))
	if paymentID == "" {
		return nil, false
	}

	kind := firstNonEmpty(v.query.Get("type"), v.query.Get("topic"))
	if kind == "" && requireKind {
		return nil, false
	}
	if kind == "" {
		kind = bodyKind(v.body)
	}

	return &domain.DeliveryEvent{
		Kind:              normalizeKind(kind),
		ProviderPaymentID: paymentID,
		Source:            domain.EventSourceQuery,
	}, true
}

func fromBody(v *deliveryView, raw any) (*domain.DeliveryEvent, bool) {
	if v.body == nil {
		return nil, false
	}
	paymentID, ok := stringify(raw)
	if !ok {
		return nil, false
	}
	return &domain.DeliveryEvent{
		Kind:              normalizeKind(bodyKind(v.body)),
		ProviderPaymentID: paymentID,
		Source:            domain.EventSourceBody,
	}, true
}

func bodyKind(body map[string]any) string {
	if body == nil {
		return ""
	}
	t, _ := body["type"].(string)
	topic, _ := body["topic"].(string)
	return firstNonEmpty(t, topic)
}

// normalizeKind treats a missing kind as a payment event.
func normalizeKind(kind string) string {
	kind = strings.ToLower(strings.TrimSpace(kind))
	if kind == "" {
		return domain.EventKindPayment
	}
	return kind
}

func stringify(raw any) (string, bool) {
	var s string
	switch v := raw.(type) {
	case string:
		s = v
	case json.Number:
		s = v.String()
	default:
		return "", false
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
