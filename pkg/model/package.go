package model

import (
	"errors"
	"fmt"
	"time"
)

var ErrInsufficientCredits = errors.New("insufficient credits")

type PackageStatus string

const (
	PackageActive  PackageStatus = "ACTIVE"
	PackageExpired PackageStatus = "EXPIRED"
)

// Package is a catalog template users can buy.
type Package struct {
	ID        string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	Name      string    `json:"name" bson:"name" validate:"required,min=2,max=100"`
	Country   string    `json:"country" bson:"country" validate:"required,supported_country"`
	Credits   int       `json:"credits" bson:"credits" validate:"required,min=1,max=1000"`
	Price     int64     `json:"price" bson:"price" validate:"required,min=1"`
	ValidDays int       `json:"valid_days" bson:"valid_days" validate:"required,min=1,max=730"`
	CreatedAt time.Time `json:"created_at" bson:"created_at" validate:"omitempty"`
}

// UserPackage is a ledger entry: a user's purchased balance of credits.
type UserPackage struct {
	ID               string        `json:"id,omitempty" bson:"_id,omitempty"`
	UserID           string        `json:"user_id" bson:"user_id"`
	PackageID        string        `json:"package_id" bson:"package_id"`
	PackageName      string        `json:"package_name" bson:"package_name"`
	Country          string        `json:"country" bson:"country"`
	RemainingCredits int           `json:"remaining_credits" bson:"remaining_credits"`
	ExpiryDate       time.Time     `json:"expiry_date" bson:"expiry_date"`
	Status           PackageStatus `json:"status" bson:"status"`
	PaymentRef       string        `json:"payment_ref,omitempty" bson:"payment_ref,omitempty"`
	PurchasedAt      time.Time     `json:"purchased_at" bson:"purchased_at"`
}

type PurchaseRequest struct {
	CardToken string `json:"card_token" validate:"required,min=4,max=200"`
}

// Debit removes amount credits. The balance never goes negative.
func (p *UserPackage) Debit(amount int) error {
	if amount < 0 {
		return fmt.Errorf("debit amount must be non-negative, got %d", amount)
	}
	if p.RemainingCredits < amount {
		return ErrInsufficientCredits
	}
	p.RemainingCredits -= amount
	return nil
}

// Credit adds amount credits back. Expiry does not block refunds.
func (p *UserPackage) Credit(amount int) error {
	if amount < 0 {
		return fmt.Errorf("credit amount must be non-negative, got %d", amount)
	}
	p.RemainingCredits += amount
	return nil
}

func (p *UserPackage) IsExpired(now time.Time) bool {
	return p.Status == PackageExpired || now.After(p.ExpiryDate)
}

// EffectiveStatus is the status shown to the user; an entry past its expiry
// date reads as EXPIRED even before the nightly job marks it.
func (p *UserPackage) EffectiveStatus(now time.Time) PackageStatus {
	if p.IsExpired(now) {
		return PackageExpired
	}
	return PackageActive
}
