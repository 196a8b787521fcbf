package admin

import (
	"github.com/amogham/storefront/internal/backend"
	"github.com/amogham/storefront/internal/enum"
	"github.com/go-playground/validator/v10"
)

// FormError rejects a product form with an operator-facing message.
type FormError struct {
	Message string
}

func (e *FormError) Error() string { return e.Message }

var (
	ErrProductIncomplete = &FormError{"Please fill all required (*) fields correctly. Ensure Base Price and Stock are valid positive numbers."}
	ErrProductImageURL   = &FormError{"Please enter a valid Image URL (e.g., https://...)."}
)

// ProductForm is the operator's add/edit product form.
type ProductForm struct {
	ID                string                `json:"id"`
	Name              string                `json:"name" validate:"required"`
	TeluguName        string                `json:"teluguName" validate:"required"`
	Description       string                `json:"description"`
	TeluguDescription string                `json:"teluguDescription"`
	Category          string                `json:"category"`
	BasePrice         backend.OptionalPrice `json:"basePrice"`
	Price250g         backend.OptionalPrice `json:"price250g"`
	Price500g         backend.OptionalPrice `json:"price500g"`
	Price1kg          backend.OptionalPrice `json:"price1kg"`
	Unit              string                `json:"unit"`
	Image             string                `json:"image" validate:"required"`
	Stock             *int                  `json:"stock" validate:"required,gte=0"`
}

var validate = validator.New()

// Validate applies the form's required-field and image URL rules.
func (f ProductForm) Validate() error {
	if err := validate.Struct(f); err != nil {
		return ErrProductIncomplete
	}
	if !f.BasePrice.Valid || f.BasePrice.Decimal.IsNegative() {
		return ErrProductIncomplete
	}
	if err := validate.Var(f.Image, "url"); err != nil {
		return ErrProductImageURL
	}
	return nil
}

// Product builds the backend record, defaulting category and unit.
func (f ProductForm) Product() backend.Product {
	p := backend.Product{
		ID:                backend.ID(f.ID),
		Name:              f.Name,
		TeluguName:        f.TeluguName,
		Description:       f.Description,
		TeluguDescription: f.TeluguDescription,
		Category:          f.Category,
		BasePrice:         f.BasePrice,
		Price250g:         f.Price250g,
		Price500g:         f.Price500g,
		Price1kg:          f.Price1kg,
		Unit:              f.Unit,
		Image:             f.Image,
	}
	if p.Category == "" {
		p.Category = enum.CategorySweets
	}
	if p.Unit == "" {
		p.Unit = enum.UnitBulk
	}
	if f.Stock != nil {
		p.Stock = backend.Stock(*f.Stock)
	}
	return p
}
