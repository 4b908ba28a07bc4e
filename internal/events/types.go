package events

// Topics. Partition key = subject id, so all events for one order (or one
// user, for tasks) maintain order.
const (
	TopicAnalytics         = "analytics-events"
	TopicOrderEvents       = "order-events"
	TopicPaymentEvents     = "payment-events"
	TopicEmailTasks        = "email-tasks"
	TopicNotificationTasks = "notification-tasks"
)

// Domain event types (analytics fact stream + saga events).
const (
	EventUserRegistered       = "user-registered"
	EventUserLogin            = "user-login"
	EventProductViewed        = "product-viewed"
	EventCartItemAdded        = "cart-item-added"
	EventCartItemRemoved      = "cart-item-removed"
	EventOrderCreated         = "order-created"
	EventOrderStatusChanged   = "order-status-changed"
	EventOrderCancelled       = "order-cancelled"
	EventOrderCompleted       = "order-completed"
	EventPaymentInitiated     = "payment-initiated"
	EventPaymentCompleted     = "payment-completed"
	EventPaymentFailed        = "payment-failed"
	EventPaymentStatusUpdated = "payment-status-updated"
	EventPaymentRefunded      = "payment-refunded"
	EventCouponCreated        = "coupon-created"
	EventCouponUsed           = "coupon-used"
)

// Email task types.
const (
	TaskWelcomeEmail           = "send-welcome-email"
	TaskOrderConfirmationEmail = "send-order-confirmation-email"
	TaskPaymentReceiptEmail    = "send-payment-receipt"
	TaskLoyaltyCouponEmail     = "send-loyalty-coupon-email"
)

// Notification task types.
const (
	TaskShippingNotification  = "send-shipping-notification"
	TaskDeliveryNotification  = "send-delivery-notification"
	TaskLowStockAlert         = "low-stock-alert"
	TaskAbandonedCartReminder = "send-abandoned-cart-reminder"
)
