package broker

import (
	"fmt"
	"strconv"

	"github.com/example/order-saga/internal/model"
)

// OrderSnapshot is the denormalized order state carried on both streams.
// All fields travel as text; consumers parse and must tolerate garbage.
type OrderSnapshot struct {
	OrderID   int64
	ProductID int64
	Price     float64
	Fee       float64
	Total     float64
	Quantity  int
	Status    string
}

// SnapshotFromOrder builds the wire payload for an order.
func SnapshotFromOrder(o *model.Order) OrderSnapshot {
	return OrderSnapshot{
		OrderID:   o.ID,
		ProductID: o.ProductID,
		Price:     o.Price,
		Fee:       o.Fee,
		Total:     o.Total,
		Quantity:  o.Quantity,
		Status:    string(o.Status),
	}
}

// Fields encodes the snapshot as stream entry fields.
func (s OrderSnapshot) Fields() map[string]string {
	return map[string]string{
		"order_id":   strconv.FormatInt(s.OrderID, 10),
		"product_id": strconv.FormatInt(s.ProductID, 10),
		"price":      strconv.FormatFloat(s.Price, 'f', -1, 64),
		"fee":        strconv.FormatFloat(s.Fee, 'f', -1, 64),
		"total":      strconv.FormatFloat(s.Total, 'f', -1, 64),
		"quantity":   strconv.Itoa(s.Quantity),
		"status":     s.Status,
	}
}

// ParseSnapshot decodes stream entry fields. A missing or non-numeric
// required field is an error; callers route that to the malformed-message
// handling path.
func ParseSnapshot(fields map[string]string) (OrderSnapshot, error) {
	var s OrderSnapshot
	var err error

	if s.OrderID, err = parseInt64(fields, "order_id"); err != nil {
		return s, err
	}
	if s.ProductID, err = parseInt64(fields, "product_id"); err != nil {
		return s, err
	}
	if s.Price, err = parseFloat(fields, "price"); err != nil {
		return s, err
	}
	if s.Fee, err = parseFloat(fields, "fee"); err != nil {
		return s, err
	}
	if s.Total, err = parseFloat(fields, "total"); err != nil {
		return s, err
	}
	quantity, err := parseInt64(fields, "quantity")
	if err != nil {
		return s, err
	}
	s.Quantity = int(quantity)
	status, ok := fields["status"]
	if !ok {
		return s, fmt.Errorf("missing field %q", "status")
	}
	s.Status = status
	return s, nil
}

func parseInt64(fields map[string]string, key string) (int64, error) {
	raw, ok := fields[key]
	if !ok {
		return 0, fmt.Errorf("missing field %q", key)
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("field %q: %w", key, err)
	}
	return v, nil
}

func parseFloat(fields map[string]string, key string) (float64, error) {
	raw, ok := fields[key]
	if !ok {
		return 0, fmt.Errorf("missing field %q", key)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("field %q: %w", key, err)
	}
	return v, nil
}
