// models.go

package main

import (
	"bytes"
	"math"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	RoleAdmin    = "admin"
	RoleCustomer = "customer"

	StatusPending = "pending"
)

type User struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Name      string             `bson:"name" json:"name"`
	Email     string             `bson:"email" json:"email"`
	Password  string             `bson:"password" json:"-"`
	Role      string             `bson:"role" json:"role"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}

// UserProfile is what leaves the service for a user: never the hash.
type UserProfile struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

func (u *User) Profile() UserProfile {
	return UserProfile{
		ID:    u.ID.Hex(),
		Name:  u.Name,
		Email: u.Email,
		Role:  u.Role,
	}
}

// Price accepts both a JSON number and a numeric string ("500"). NaN and
// the infinities are rejected.
type Price float64

func (p *Price) UnmarshalJSON(data []byte) error {
	raw := bytes.TrimSpace(data)
	s := string(raw)
	if len(raw) > 0 && raw[0] == '"' {
		unquoted, err := strconv.Unquote(s)
		if err != nil {
			return &ValidationError{Field: "price", Msg: "price must be a number"}
		}
		s = strings.TrimSpace(unquoted)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return &ValidationError{Field: "price", Msg: "price must be a number"}
	}
	*p = Price(f)
	return nil
}

type Product struct {
	ID                  primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Name                string             `bson:"name" json:"name"`
	Description         string             `bson:"description" json:"description"`
	DetailedDescription string             `bson:"detailedDescription" json:"detailedDescription"`
	MainImage           string             `bson:"mainImage" json:"mainImage"`
	SubImages           []string           `bson:"subImages" json:"subImages"`
	Price               Price              `bson:"price" json:"price"`
	CreatedAt           time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt           time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// ProductInput carries a create or update request. A nil field was not
// sent by the client.
type ProductInput struct {
	Name                *string  `json:"name"`
	Description         *string  `json:"description"`
	DetailedDescription *string  `json:"detailedDescription"`
	MainImage           *string  `json:"mainImage"`
	SubImages           []string `json:"subImages"`
	Price               *Price   `json:"price"`
}

type Order struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	ProductID     string             `bson:"productId" json:"productId"`
	ProductName   string             `bson:"productName" json:"productName"`
	Price         Price              `bson:"price" json:"price"`
	CustomerName  string             `bson:"customerName" json:"customerName"`
	CustomerEmail string             `bson:"customerEmail" json:"customerEmail"`
	Phone         string             `bson:"phone" json:"phone"`
	AltPhone      string             `bson:"altphone" json:"altphone"`
	Address       string             `bson:"address" json:"address"`
	Pincode       string             `bson:"pincode" json:"pincode"`
	City          string             `bson:"city" json:"city"`
	Taluka        string             `bson:"taluka" json:"taluka"`
	Status        string             `bson:"status" json:"status"`
	CreatedAt     time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time          `bson:"updatedAt" json:"updatedAt"`
}

type OrderInput struct {
	ProductID     string `json:"productId"`
	ProductName   string `json:"productName"`
	Price         *Price `json:"price"`
	CustomerName  string `json:"customerName"`
	CustomerEmail string `json:"customerEmail"`
	Phone         string `json:"phone"`
	AltPhone      string `json:"altphone"`
	Address       string `json:"address"`
	Pincode       string `json:"pincode"`
	City          string `json:"city"`
	Taluka        string `json:"taluka"`
}
