package model

// Notification templates.
const (
	TemplateContractSigned = "contract_signed"
)

// Notification is one e-mail dispatch request. Rendering the template is the
// mailer's job; only its id travels here.
type Notification struct {
	To          string `json:"to"`
	Name        string `json:"name,omitempty"`
	OrderNumber string `json:"order_number"`
	Template    string `json:"template"`
	Locale      string `json:"locale,omitempty"`
	ContractURL string `json:"contract_url,omitempty"`
}
