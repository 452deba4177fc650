package criterion

import (
	"strings"
	"time"

	"github.com/geocoder89/perfeval/internal/domain"
	"github.com/geocoder89/perfeval/internal/validation"
)

const IDPrefix = "c-"

const DefaultWeight = 1.0

type Criterion struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Weight      float64 `json:"weight"`
	Description string  `json:"description"`
	CreatedAt   string  `json:"created_at"`
}

type CreateRequest struct {
	Name        string   `json:"name" validate:"required,min=2"`
	Weight      *float64 `json:"weight"`
	Description string   `json:"description"`
}

// New validates r and returns a criterion with a fresh id. A nil weight
// defaults to 1.0.
func New(r CreateRequest) (Criterion, error) {
	return newAt(r, time.Now())
}

func newAt(r CreateRequest, now time.Time) (Criterion, error) {
	r.Name = strings.TrimSpace(r.Name)
	r.Description = strings.TrimSpace(r.Description)

	var fields []validation.FieldError
	if err := validation.Struct(r); err != nil {
		verr, ok := validation.As(err)
		if !ok {
			return Criterion{}, err
		}
		fields = append(fields, verr.Fields...)
	}

	weight := DefaultWeight
	if r.Weight != nil {
		weight = *r.Weight
	}
	if !(weight > 0) {
		fields = append(fields, validation.Field("weight", "gt", "0"))
	}

	if err := validation.New(fields...); err != nil {
		return Criterion{}, err
	}

	return Criterion{
		ID:          domain.NewID(IDPrefix),
		Name:        r.Name,
		Weight:      weight,
		Description: r.Description,
		CreatedAt:   domain.Timestamp(now),
	}, nil
}

type Patch struct {
	Name        *string  `json:"name,omitempty"`
	Weight      *float64 `json:"weight,omitempty"`
	Description *string  `json:"description,omitempty"`
}

// Normalize trims the text fields and checks the same rules as New.
func (p Patch) Normalize() (Patch, error) {
	var fields []validation.FieldError

	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		p.Name = &name
		if len([]rune(name)) < 2 {
			fields = append(fields, validation.Field("name", "min", "2"))
		}
	}
	if p.Description != nil {
		desc := strings.TrimSpace(*p.Description)
		p.Description = &desc
	}
	if p.Weight != nil && !(*p.Weight > 0) {
		fields = append(fields, validation.Field("weight", "gt", "0"))
	}

	return p, validation.New(fields...)
}
