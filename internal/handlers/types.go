package handlers

// Request bodies. Monetary fields are decimal strings; they are parsed with
// parseAmount and never bound into floats.

type PaymentRequest struct {
	Amount        string `json:"amount" validate:"required"`
	PaymentMethod string `json:"payment_method" validate:"required,oneof=pix card boleto cash manual"`
	Notes         string `json:"notes"`
}

type DiscountRequest struct {
	DiscountAmount string `json:"discount_amount" validate:"required"`
	Notes          string `json:"notes"`
}

type LateFeeRequest struct {
	LateFeeAmount string `json:"late_fee_amount" validate:"required"`
	Notes         string `json:"notes"`
}

type NotesRequest struct {
	Notes string `json:"notes"`
}

type RecalculateRequest struct {
	EventID *uint `json:"event_id"`
}

type CreateEventRequest struct {
	Name           string                 `json:"name" validate:"required"`
	Description    string                 `json:"description"`
	StartsAt       string                 `json:"starts_at" validate:"required"`
	EndsAt         string                 `json:"ends_at" validate:"required"`
	LateFeePolicy  map[string]interface{} `json:"late_fee_policy"`
	DiscountPolicy map[string]interface{} `json:"discount_policy"`
}

type CreateGroupRequest struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
}

type AssignManagerRequest struct {
	UserID uint `json:"user_id" validate:"required"`
}

type CreatePlanRequest struct {
	Name                 string                 `json:"name" validate:"required"`
	InstallmentCount     int                    `json:"installment_count" validate:"required,min=1"`
	InstallmentInterval  string                 `json:"installment_interval" validate:"required,oneof=weekly biweekly monthly"`
	FirstInstallmentDate string                 `json:"first_installment_date" validate:"required"`
	LateFeePolicy        map[string]interface{} `json:"late_fee_policy"`
	DiscountPolicy       map[string]interface{} `json:"discount_policy"`
	IsDefault            bool                   `json:"is_default"`
}

type CreateRegistrationRequest struct {
	ParticipantName  string `json:"participant_name" validate:"required"`
	ParticipantEmail string `json:"participant_email" validate:"required,email"`
	GroupID          *uint  `json:"group_id"`
	PaymentPlanID    *uint  `json:"payment_plan_id"`
	TotalAmount      string `json:"total_amount" validate:"required"`
}

type CreateChargeRequest struct {
	// Empty amount charges the installment's full outstanding balance
	Amount string `json:"amount"`
}

type PIXWebhookRequest struct {
	TxID   string `json:"txid" validate:"required"`
	Status string `json:"status" validate:"required"`
}

type CardWebhookRequest struct {
	IntentID string `json:"intent_id" validate:"required"`
	Status   string `json:"status" validate:"required"`
}

type NotificationPreferenceRequest struct {
	Channel string `json:"channel" validate:"required,oneof=email realtime none"`
}
