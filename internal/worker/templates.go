package worker

import (
	"fmt"

	"github.com/ariefcatur/go-shop-events.git/internal/events"
)

type emailContent struct {
	recipient string
	subject   string
	html      string
	text      string
}

// renderEmail resolves one email task into recipient + rendered content.
// Unknown task types come back with ok=false and are dropped, not retried.
func renderEmail(env events.Envelope) (emailContent, bool, error) {
	switch env.EventType {
	case events.TaskWelcomeEmail:
		p, err := events.Decode[events.WelcomeEmailPayload](env)
		if err != nil {
			return emailContent{}, true, err
		}
		name := p.Name
		if name == "" {
			name = "Customer"
		}
		return emailContent{
			recipient: p.Email,
			subject:   "Welcome to our store!",
			html:      fmt.Sprintf("<h1>Welcome, %s!</h1><p>Thanks for signing up. Happy shopping!</p>", name),
			text:      fmt.Sprintf("Welcome, %s! Thanks for signing up.", name),
		}, true, nil

	case events.TaskOrderConfirmationEmail:
		p, err := events.Decode[events.OrderConfirmationEmailPayload](env)
		if err != nil {
			return emailContent{}, true, err
		}
		return emailContent{
			recipient: p.Email,
			subject:   fmt.Sprintf("Order %s confirmed", p.OrderID),
			html: fmt.Sprintf("<h1>Order confirmed</h1><p>Order <b>%s</b> for $%s is being processed.</p>",
				p.OrderID, p.Amount.StringFixed(2)),
			text: fmt.Sprintf("Order %s for $%s is being processed.", p.OrderID, p.Amount.StringFixed(2)),
		}, true, nil

	case events.TaskPaymentReceiptEmail:
		p, err := events.Decode[events.PaymentReceiptEmailPayload](env)
		if err != nil {
			return emailContent{}, true, err
		}
		method := p.PaymentMethod
		if method == "" {
			method = "Card"
		}
		return emailContent{
			recipient: p.Email,
			subject:   "Your payment receipt",
			html: fmt.Sprintf("<h1>Payment received</h1><p>Transaction %s, $%s via %s.</p>",
				p.TransactionID, p.Amount.StringFixed(2), method),
			text: fmt.Sprintf("Transaction %s, $%s via %s.", p.TransactionID, p.Amount.StringFixed(2), method),
		}, true, nil

	case events.TaskLoyaltyCouponEmail:
		p, err := events.Decode[events.LoyaltyCouponEmailPayload](env)
		if err != nil {
			return emailContent{}, true, err
		}
		if p.Email == "" {
			// recipient resolution is the auth collaborator's data; without it
			// there is nothing to send
			return emailContent{}, true, fmt.Errorf("no email for user %s", p.UserID)
		}
		return emailContent{
			recipient: p.Email,
			subject:   "A thank-you coupon, just for you",
			html: fmt.Sprintf("<h1>Thanks for your order!</h1><p>Use <b>%s</b> for %s%% off until %s.</p>",
				p.CouponCode, p.Discount.StringFixed(0), p.ExpiresAt.Format("Jan 2, 2006")),
			text: fmt.Sprintf("Use %s for %s%% off until %s.",
				p.CouponCode, p.Discount.StringFixed(0), p.ExpiresAt.Format("Jan 2, 2006")),
		}, true, nil

	case events.TaskShippingNotification:
		p, err := events.Decode[events.ShippingNotificationPayload](env)
		if err != nil {
			return emailContent{}, true, err
		}
		if p.Email == "" {
			return emailContent{}, true, fmt.Errorf("no email for user %s", p.UserID)
		}
		return emailContent{
			recipient: p.Email,
			subject:   fmt.Sprintf("Order %s is on its way", p.OrderID),
			html: fmt.Sprintf("<h1>Shipped!</h1><p>Order %s status: %s. %s</p>",
				p.OrderID, p.Status, p.TrackingNote),
			text: fmt.Sprintf("Order %s status: %s. %s", p.OrderID, p.Status, p.TrackingNote),
		}, true, nil
	}
	return emailContent{}, false, nil
}
