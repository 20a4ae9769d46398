package models

// Wire contract with the payment gateway. The shapes are typed so a malformed
// provider response fails the parse step instead of surfacing later as an
// empty field.

// CreateOrderRequest is what the workflow sends to the gateway's
// create-order endpoint.
type CreateOrderRequest struct {
	SupportType string `json:"supportType"`
	Category    string `json:"category"`
	UserEmail   string `json:"userEmail"`
}

// OrderLink is one HATEOAS link on a provider order; the workflow only cares
// about rel == "approve".
type OrderLink struct {
	Rel  string `json:"rel"`
	Href string `json:"href"`
}

// CreateOrderResponse is the raw gateway response for order creation.
type CreateOrderResponse struct {
	ID    string      `json:"id"`
	Links []OrderLink `json:"links"`
}

// ApproveLink returns the approval redirect URL, or "" when the provider did
// not include one.
func (r *CreateOrderResponse) ApproveLink() string {
	for _, link := range r.Links {
		if link.Rel == "approve" {
			return link.Href
		}
	}
	return ""
}

// OrderCreated is the validated result of a successful order creation.
type OrderCreated struct {
	OrderID     string
	ApprovalURL string
}

// CaptureOrderRequest is what the workflow sends to the gateway's
// capture-order endpoint.
type CaptureOrderRequest struct {
	OrderID string `json:"orderID"`
}

// CaptureDetails is the provider's capture receipt.
type CaptureDetails struct {
	ID     string `json:"id"`
	Status string `json:"status,omitempty"`
}

// CaptureOrderResponse is the raw gateway response for a capture call.
type CaptureOrderResponse struct {
	Success bool            `json:"success"`
	Capture *CaptureDetails `json:"capture,omitempty"`
	Message string          `json:"message,omitempty"`
}

// CaptureSucceeded is the validated result of a successful capture.
type CaptureSucceeded struct {
	OrderID   string
	CaptureID string
}
