package validation

import (
	"errors"
	"strings"

	validatorv10 "github.com/go-playground/validator/v10"
)

// New returns a configured validator with struct-level rules registered.
func New() *validatorv10.Validate {
	v := validatorv10.New()

	// a screenshot attachment must carry a readable body, not just a name
	v.RegisterStructValidation(createOrderStructValidation, CreateOrderForm{})

	return v
}

func createOrderStructValidation(sl validatorv10.StructLevel) {
	form := sl.Current().Interface().(CreateOrderForm)

	if form.OrderSS != nil && form.OrderSS.Reader == nil {
		sl.ReportError(form.OrderSS, "OrderSS", "OrderSS", "file_body", "")
	}
	if form.ProductSS != nil && form.ProductSS.Reader == nil {
		sl.ReportError(form.ProductSS, "AmazonProductSS", "ProductSS", "file_body", "")
	}
}

var messages = map[string]string{
	"OrderName":     "Order name is required",
	"AmazonOrderNo": "Amazon order number is required",
	"BuyerPaypal":   "Buyer PayPal is required",
	"OrderSS":       "Please upload at least one order screenshot",
	"ProductSS":     "Product screenshot could not be read",
	"Email":         "A valid email is required",
	"Password":      "Password must be at least 6 characters",
	"Username":      "Username must be at least 3 characters",
	"Role":          "Role must be admin or user",
}

// Message turns a validation error into the single line shown to the user.
func Message(err error) string {
	var ve validatorv10.ValidationErrors
	if !errors.As(err, &ve) {
		return err.Error()
	}
	lines := make([]string, 0, len(ve))
	for _, fe := range ve {
		if m, ok := messages[fe.StructField()]; ok {
			lines = append(lines, m)
			continue
		}
		lines = append(lines, fe.Error())
	}
	return strings.Join(lines, "; ")
}
