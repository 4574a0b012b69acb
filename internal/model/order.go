package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type ScreenshotRole string

const (
	ScreenshotOrder   ScreenshotRole = "order"
	ScreenshotProduct ScreenshotRole = "product"
	ScreenshotRefund  ScreenshotRole = "refund"
)

type Screenshot struct {
	Role ScreenshotRole `json:"role"`
	URL  string         `json:"url"`
}

type Owner struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type Order struct {
	ID            string               `json:"id"`
	OrderName     string               `json:"orderName"`
	AmazonOrderNo string               `json:"amazonOrderNo"`
	BuyerPaypal   string               `json:"buyerPaypal"`
	BuyerName     string               `json:"buyerName,omitempty"`
	Status        string               `json:"status"`
	Comments      []Comment            `json:"comments,omitempty"`
	Commission    decimal.Decimal      `json:"commission"`
	SheetName     string               `json:"sheetName,omitempty"`
	Screenshots   []Screenshot         `json:"screenshots,omitempty"`
	CreatedBy     Owner                `json:"createdBy"`
	CreatedAt     time.Time            `json:"createdAt"`
	UpdatedAt     time.Time            `json:"updatedAt"`
	StatusHistory []StatusHistoryEntry `json:"statusHistory,omitempty"`
}

type Comment struct {
	ID          string    `json:"id"`
	Text        string    `json:"comment"`
	CommentedBy Actor     `json:"commentedBy"`
	Role        string    `json:"role"`
	CommentedAt time.Time `json:"commentedAt"`
}

type Sheet struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedBy string    `json:"createdBy,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
