package validation

import "io"

// File is an attachment picked by the user.
type File struct {
	Name   string
	Reader io.Reader
}

// CreateOrderForm is the payload behind the order-submission action.
type CreateOrderForm struct {
	OrderName     string `validate:"required"`
	AmazonOrderNo string `validate:"required"`
	BuyerPaypal   string `validate:"required"`
	BuyerName     string
	Comments      string
	SheetName     string
	OrderSS       *File `validate:"required"`
	ProductSS     *File
}

type RegisterForm struct {
	Username string `json:"username" validate:"required,min=3"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Role     string `json:"role,omitempty" validate:"omitempty,oneof=admin user"`
}

type LoginForm struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}
