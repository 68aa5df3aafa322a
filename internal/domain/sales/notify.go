package sales

import (
	"context"
	"time"

	"github.com/Pawandasila/Ecom-backend/internal/domain/orders"
	"github.com/Pawandasila/Ecom-backend/internal/mailer"

	"github.com/shopspring/decimal"
)

type OrderCreated struct {
	OrderID      int64              `json:"order_id"`
	OrderNumber  string             `json:"order_number"`
	UserID       int64              `json:"user_id"`
	Items        []orders.OrderItem `json:"items"`
	TotalPrice   decimal.Decimal    `json:"total_price"`
	ShippingCost decimal.Decimal    `json:"shipping_cost"`
}

type StatusChanged struct {
	OrderID     int64         `json:"order_id"`
	OrderNumber string        `json:"order_number"`
	From        orders.Status `json:"from"`
	To          orders.Status `json:"to"`
}

// publish never fails the caller: the order change is already committed.
func (s *Service) publish(ctx context.Context, topic string, o *orders.Order, payload any) {
	if err := s.events.Publish(ctx, topic, o.OrderNumber, payload); err != nil {
		s.logger.Errorw("publish order event", "topic", topic, "order_id", o.ID, "error", err)
	}
}

func (s *Service) sendConfirmation(o *orders.Order) {
	if s.mailer == nil || s.users == nil {
		return
	}

	s.bg.Add(1)
	go func() {
		defer s.bg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		u, err := s.users.GetByID(ctx, o.UserID)
		if err != nil {
			s.logger.Errorw("order confirmation recipient", "order_id", o.ID, "error", err)
			return
		}

		vars := struct {
			Username          string
			OrderNumber       string
			Items             []orders.OrderItem
			TotalPrice        string
			ShippingCost      string
			ShippingAddress   string
			EstimatedDelivery string
		}{
			Username:          u.Name,
			OrderNumber:       o.OrderNumber,
			Items:             o.Items,
			TotalPrice:        o.TotalPrice.StringFixed(2),
			ShippingCost:      o.ShippingCost.StringFixed(2),
			ShippingAddress:   o.ShippingAddress,
			EstimatedDelivery: o.EstimatedDeliveryDate.Format("Mon, 02 Jan 2006"),
		}

		status, err := s.mailer.Send(mailer.OrderConfirmationTemplate, u.Name, u.Email, vars)
		if err != nil {
			s.logger.Errorw("error sending order confirmation", "order_id", o.ID, "error", err)
			return
		}
		s.logger.Infow("Email sent", "status code", status, "order_id", o.ID)
	}()
}
