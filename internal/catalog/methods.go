package catalog

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	CategoryCards        = "cards"
	CategoryWallets      = "wallets"
	CategoryBankTransfer = "banktransfer"
	CategoryBNPL         = "bnpl"
	CategoryVouchers     = "vouchers"
	CategoryAPI          = "api"
)

// Method describes a payment method the merchant can enable, tied to the
// gateway product id used to pre-select it on the hosted page.
type Method struct {
	Code      string `json:"code"`
	ProductID int32  `json:"product_id"`
	Name      string `json:"name"`
	Category  string `json:"category"`
	Icon      string `json:"icon"`
}

// methodTable lists the methods with well-known product ids. Methods outside
// this table are addressed with the product_<id> code form.
var methodTable = map[string]Method{
	"visa":       {Code: "visa", ProductID: 1, Name: "Visa", Category: CategoryCards, Icon: "visa.svg"},
	"mastercard": {Code: "mastercard", ProductID: 3, Name: "Mastercard", Category: CategoryCards, Icon: "mastercard.svg"},
	"cb":         {Code: "cb", ProductID: 130, Name: "Carte Bancaire", Category: CategoryCards, Icon: "cb.svg"},
	"amex":       {Code: "amex", ProductID: 2, Name: "American Express", Category: CategoryCards, Icon: "amex.svg"},
	"maestro":    {Code: "maestro", ProductID: 117, Name: "Maestro", Category: CategoryCards, Icon: "maestro.svg"},

	"applepay":  {Code: "applepay", ProductID: 302, Name: "Apple Pay", Category: CategoryWallets, Icon: "applepay.svg"},
	"googlepay": {Code: "googlepay", ProductID: 320, Name: "Google Pay", Category: CategoryWallets, Icon: "googlepay.svg"},
	"paypal":    {Code: "paypal", ProductID: 840, Name: "PayPal", Category: CategoryWallets, Icon: "paypal.svg"},
	"wechatpay": {Code: "wechatpay", ProductID: 863, Name: "WeChat Pay", Category: CategoryWallets, Icon: "wechatpay.svg"},

	"ideal":      {Code: "ideal", ProductID: 809, Name: "iDEAL", Category: CategoryBankTransfer, Icon: "ideal.svg"},
	"bancontact": {Code: "bancontact", ProductID: 3012, Name: "Bancontact", Category: CategoryBankTransfer, Icon: "bancontact.svg"},
	"przelewy24": {Code: "przelewy24", ProductID: 3124, Name: "Przelewy24", Category: CategoryBankTransfer, Icon: "przelewy24.svg"},
	"eps":        {Code: "eps", ProductID: 5700, Name: "EPS", Category: CategoryBankTransfer, Icon: "eps.svg"},
	"giropay":    {Code: "giropay", ProductID: 5408, Name: "Giropay", Category: CategoryBankTransfer, Icon: "giropay.svg"},

	"klarna_paynow":   {Code: "klarna_paynow", ProductID: 3301, Name: "Klarna Pay Now", Category: CategoryBNPL, Icon: "klarna.svg"},
	"klarna_paylater": {Code: "klarna_paylater", ProductID: 3302, Name: "Klarna Pay Later", Category: CategoryBNPL, Icon: "klarna.svg"},
	"klarna_sliceit":  {Code: "klarna_sliceit", ProductID: 3303, Name: "Klarna Slice It", Category: CategoryBNPL, Icon: "klarna.svg"},
	"oney3x":          {Code: "oney3x", ProductID: 5110, Name: "Oney 3x", Category: CategoryBNPL, Icon: "oney.svg"},
	"oney4x":          {Code: "oney4x", ProductID: 5111, Name: "Oney 4x", Category: CategoryBNPL, Icon: "oney.svg"},

	"edenred":      {Code: "edenred", ProductID: 5405, Name: "Edenred", Category: CategoryVouchers, Icon: "edenred.svg"},
	"mealvouchers": {Code: "mealvouchers", ProductID: 5402, Name: "Mealvouchers", Category: CategoryVouchers, Icon: "mealvouchers.svg"},
}

// productNames maps product ids to display names for methods addressed
// directly by id.
var productNames = map[int32]string{
	1:    "Visa",
	2:    "American Express",
	3:    "Mastercard",
	117:  "Maestro",
	125:  "JCB",
	128:  "Discover",
	130:  "Carte Bancaire",
	132:  "Diners Club",
	302:  "Apple Pay",
	320:  "Google Pay",
	809:  "iDEAL",
	840:  "PayPal",
	861:  "Alipay",
	863:  "WeChat Pay",
	3012: "Bancontact",
	3112: "Illicado",
	3124: "Przelewy24",
	3301: "Klarna Pay Now",
	3302: "Klarna Pay Later",
	3303: "Klarna Slice It",
	5001: "Cpay",
	5110: "Oney 3x",
	5111: "Oney 4x",
	5125: "Bizum",
	5402: "Mealvouchers",
	5404: "Intersolve",
	5405: "Edenred",
	5408: "Giropay",
	5500: "Multibanco",
	5600: "TWINT",
	5700: "EPS",
	5771: "PostFinance Card",
	5772: "PostFinance E-Finance",
}

// MethodRef identifies the payment method chosen at checkout. It is resolved
// once at the boundary: either a code from the built-in table, a direct
// product_<id> reference, or unresolved when the code is unknown or empty.
type MethodRef struct {
	code      string
	productID int32
	resolved  bool
}

// Resolve parses a raw method code into a MethodRef. An empty code means the
// customer chooses on the hosted page; an unknown code proceeds without a
// product filter rather than failing the checkout.
func Resolve(code string) MethodRef {
	code = strings.TrimSpace(code)
	if code == "" {
		return MethodRef{}
	}

	if m, ok := methodTable[code]; ok {
		return MethodRef{code: code, productID: m.ProductID, resolved: true}
	}

	if id, ok := strings.CutPrefix(code, "product_"); ok {
		if productID, err := strconv.ParseInt(id, 10, 32); err == nil && productID > 0 {
			return MethodRef{code: code, productID: int32(productID), resolved: true}
		}
	}

	return MethodRef{code: code}
}

func (r MethodRef) Code() string { return r.code }

// ProductID returns the gateway product id and whether a filter should be
// applied at all.
func (r MethodRef) ProductID() (int32, bool) {
	return r.productID, r.resolved
}

func (r MethodRef) Name() string {
	if !r.resolved {
		return r.code
	}
	if name, ok := productNames[r.productID]; ok {
		return name
	}
	return fmt.Sprintf("Payment %d", r.productID)
}

// Methods returns the built-in method table, optionally filtered by category.
func Methods(category string) []Method {
	var out []Method
	for _, m := range methodTable {
		if category != "" && m.Category != category {
			continue
		}
		out = append(out, m)
	}
	return out
}

// ProductName resolves a display name for a product id, falling back to a
// generic label for ids outside the table.
func ProductName(productID int32) string {
	if name, ok := productNames[productID]; ok {
		return name
	}
	return fmt.Sprintf("Payment %d", productID)
}
