package order

import "time"

type OrderItemResponse struct {
	ID          string `json:"id"`
	ProductID   string `json:"productId"`
	StoreID     string `json:"storeId"`
	ProductName string `json:"productName,omitempty"`
	Price       string `json:"price,omitempty"`
}

type OrderResponse struct {
	ID              string              `json:"id"`
	UserID          string              `json:"userId"`
	TotalPrice      string              `json:"totalPrice"`
	Status          OrderStatus         `json:"status"`
	PaymentIntentID *string             `json:"paymentIntentId,omitempty"`
	Token           *string             `json:"token,omitempty"`
	CreatedAt       time.Time           `json:"createdAt"`
	UpdatedAt       time.Time           `json:"updatedAt"`
	Items           []OrderItemResponse `json:"items,omitempty"`
	Actions         []Action            `json:"actions"`
}

func ToResponse(o *Order) *OrderResponse {
	if o == nil {
		return nil
	}

	resp := &OrderResponse{
		ID:              o.ID,
		UserID:          o.UserID,
		TotalPrice:      o.TotalPrice.StringFixed(2),
		Status:          o.Status,
		PaymentIntentID: o.PaymentIntentID,
		Token:           o.Token,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
		Actions:         AvailableActions(o),
	}

	for _, it := range o.Items {
		item := OrderItemResponse{
			ID:          it.ID,
			ProductID:   it.ProductID,
			StoreID:     it.StoreID,
			ProductName: it.ProductName,
		}
		if !it.Price.IsZero() {
			item.Price = it.Price.StringFixed(2)
		}
		resp.Items = append(resp.Items, item)
	}

	return resp
}

func ToResponses(orders []*Order) []*OrderResponse {
	out := make([]*OrderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, ToResponse(o))
	}
	return out
}
