package gateway

import "encoding/json"

// AmountOfMoney carries monetary values in minor units, as the API expects.
type AmountOfMoney struct {
	Amount       int64  `json:"amount"`
	CurrencyCode string `json:"currencyCode"`
}

type Address struct {
	Street      string `json:"street,omitempty"`
	City        string `json:"city,omitempty"`
	Zip         string `json:"zip,omitempty"`
	CountryCode string `json:"countryCode"`
}

type ContactDetails struct {
	EmailAddress string `json:"emailAddress,omitempty"`
}

type Customer struct {
	MerchantCustomerID string          `json:"merchantCustomerId,omitempty"`
	ContactDetails     *ContactDetails `json:"contactDetails,omitempty"`
	BillingAddress     *Address        `json:"billingAddress,omitempty"`
	Locale             string          `json:"locale,omitempty"`
}

type References struct {
	MerchantReference string `json:"merchantReference,omitempty"`
}

type OrderInput struct {
	AmountOfMoney AmountOfMoney `json:"amountOfMoney"`
	Customer      *Customer     `json:"customer,omitempty"`
	References    *References   `json:"references,omitempty"`
}

type HostedCheckoutSpecificInput struct {
	Locale         string `json:"locale,omitempty"`
	ReturnURL      string `json:"returnUrl,omitempty"`
	ShowResultPage bool   `json:"showResultPage"`
}

type CardPaymentMethodSpecificInput struct {
	PaymentProductID int32 `json:"paymentProductId,omitempty"`
}

type CreateHostedCheckoutRequest struct {
	Order                          OrderInput                      `json:"order"`
	HostedCheckoutSpecificInput    *HostedCheckoutSpecificInput    `json:"hostedCheckoutSpecificInput,omitempty"`
	CardPaymentMethodSpecificInput *CardPaymentMethodSpecificInput `json:"cardPaymentMethodSpecificInput,omitempty"`
}

type CreateHostedCheckoutResponse struct {
	HostedCheckoutID   string `json:"hostedCheckoutId"`
	RedirectURL        string `json:"redirectUrl,omitempty"`
	PartialRedirectURL string `json:"partialRedirectUrl,omitempty"`
	ReturnMAC          string `json:"RETURNMAC,omitempty"`
}

type StatusOutput struct {
	StatusCode     json.Number `json:"statusCode,omitempty"`
	StatusCategory string      `json:"statusCategory,omitempty"`
	IsCancellable  bool        `json:"isCancellable,omitempty"`
}

type CardPaymentMethodSpecificOutput struct {
	PaymentProductID int32 `json:"paymentProductId,omitempty"`
}

type PaymentOutput struct {
	AmountOfMoney                   *AmountOfMoney                   `json:"amountOfMoney,omitempty"`
	References                      *References                      `json:"references,omitempty"`
	PaymentMethod                   string                           `json:"paymentMethod,omitempty"`
	CardPaymentMethodSpecificOutput *CardPaymentMethodSpecificOutput `json:"cardPaymentMethodSpecificOutput,omitempty"`
}

// Payment is the gateway's view of a single payment attempt. A raw status
// string arrives here and is mapped to an internal status by the payment
// package.
type Payment struct {
	ID            string         `json:"id"`
	Status        string         `json:"status"`
	StatusOutput  *StatusOutput  `json:"statusOutput,omitempty"`
	PaymentOutput *PaymentOutput `json:"paymentOutput,omitempty"`
}

type CreatedPaymentOutput struct {
	Payment *Payment `json:"payment,omitempty"`
}

type HostedCheckoutStatus struct {
	Status               string                `json:"status"`
	CreatedPaymentOutput *CreatedPaymentOutput `json:"createdPaymentOutput,omitempty"`
}

// WebhookPayload mirrors the body the gateway POSTs to the webhook endpoint.
type WebhookPayload struct {
	Type    string   `json:"type,omitempty"`
	Created string   `json:"created,omitempty"`
	Payment *Payment `json:"payment,omitempty"`
}

type PaymentProduct struct {
	ID              int32  `json:"id"`
	PaymentMethod   string `json:"paymentMethod,omitempty"`
	DisplayHints    Hints  `json:"displayHints"`
	AllowsRefunds   bool   `json:"allowsRefunds,omitempty"`
	AllowsRecurring bool   `json:"allowsRecurring,omitempty"`
}

type Hints struct {
	Label   string `json:"label,omitempty"`
	LogoURL string `json:"logo,omitempty"`
}

type PaymentProductsResponse struct {
	PaymentProducts []PaymentProduct `json:"paymentProducts"`
}

type APIError struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

type ErrorResponse struct {
	ErrorID string     `json:"errorId,omitempty"`
	Errors  []APIError `json:"errors,omitempty"`
}
