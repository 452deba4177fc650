package evaluation

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/geocoder89/perfeval/internal/domain"
	"github.com/geocoder89/perfeval/internal/validation"
)

const IDPrefix = "ev-"

const (
	StatusDraft    = "draft"
	StatusFinal    = "final"
	StatusArchived = "archived"
)

var Statuses = []string{StatusDraft, StatusFinal, StatusArchived}

// Rating is the inclusive range every score must fall into.
type Rating struct {
	Min int
	Max int
}

var DefaultRating = Rating{Min: 1, Max: 5}

func (r Rating) Contains(score int) bool {
	return score >= r.Min && score <= r.Max
}

func (r Rating) param() string {
	return strconv.Itoa(r.Min) + " " + strconv.Itoa(r.Max)
}

type Evaluation struct {
	ID          string         `json:"id"`
	EmployeeID  string         `json:"employee_id"`
	EvaluatorID string         `json:"evaluator_id"`
	Date        string         `json:"date"`
	Scores      map[string]int `json:"scores"`
	Comments    string         `json:"comments"`
	Status      string         `json:"status"`
	CreatedAt   string         `json:"created_at"`
	UpdatedAt   string         `json:"updated_at"`
}

type CreateRequest struct {
	EmployeeID  string         `json:"employee_id" validate:"required"`
	EvaluatorID string         `json:"evaluator_id" validate:"required"`
	Scores      map[string]int `json:"scores" validate:"required,min=1"`
	Comments    string         `json:"comments"`
	Status      string         `json:"status" validate:"omitempty,oneof=draft final archived"`
}

// New validates r against rating and returns an evaluation dated today.
// An empty status defaults to draft.
func New(r CreateRequest, rating Rating) (Evaluation, error) {
	return newAt(r, rating, time.Now())
}

func newAt(r CreateRequest, rating Rating, now time.Time) (Evaluation, error) {
	r.EmployeeID = strings.TrimSpace(r.EmployeeID)
	r.EvaluatorID = strings.TrimSpace(r.EvaluatorID)
	r.Comments = strings.TrimSpace(r.Comments)
	if r.Status == "" {
		r.Status = StatusDraft
	}

	var fields []validation.FieldError
	if err := validation.Struct(r); err != nil {
		verr, ok := validation.As(err)
		if !ok {
			return Evaluation{}, err
		}
		fields = append(fields, verr.Fields...)
	}
	fields = append(fields, scoreErrors(r.Scores, rating)...)

	if err := validation.New(fields...); err != nil {
		return Evaluation{}, err
	}

	ts := domain.Timestamp(now)

	return Evaluation{
		ID:          domain.NewID(IDPrefix),
		EmployeeID:  r.EmployeeID,
		EvaluatorID: r.EvaluatorID,
		Date:        now.Format(domain.DateLayout),
		Scores:      r.Scores,
		Comments:    r.Comments,
		Status:      r.Status,
		CreatedAt:   ts,
		UpdatedAt:   ts,
	}, nil
}

// scoreErrors reports out-of-range scores in criterion id order.
func scoreErrors(scores map[string]int, rating Rating) []FieldError {
	ids := make([]string, 0, len(scores))
	for id := range scores {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var out []FieldError
	for _, id := range ids {
		if !rating.Contains(scores[id]) {
			out = append(out, validation.Field("scores."+id, "range", rating.param()))
		}
	}
	return out
}

type FieldError = validation.FieldError

// Patch is a partial update. UpdatedAt is stamped by whoever applies it.
type Patch struct {
	Scores    map[string]int `json:"scores,omitempty"`
	Comments  *string        `json:"comments,omitempty"`
	Status    *string        `json:"status,omitempty"`
	UpdatedAt string         `json:"updated_at,omitempty"`
}

// Normalize trims comments and checks the scores and status of p.
func (p Patch) Normalize(rating Rating) (Patch, error) {
	var fields []FieldError

	if p.Scores != nil {
		if len(p.Scores) == 0 {
			fields = append(fields, validation.Field("scores", "min", "1"))
		}
		fields = append(fields, scoreErrors(p.Scores, rating)...)
	}
	if p.Comments != nil {
		c := strings.TrimSpace(*p.Comments)
		p.Comments = &c
	}
	if p.Status != nil && !ValidStatus(*p.Status) {
		fields = append(fields, validation.Field("status", "oneof", strings.Join(Statuses, " ")))
	}

	return p, validation.New(fields...)
}

func ValidStatus(s string) bool {
	for _, v := range Statuses {
		if s == v {
			return true
		}
	}
	return false
}

// Stamp returns p with UpdatedAt set to now.
func (p Patch) Stamp(now time.Time) Patch {
	p.UpdatedAt = domain.Timestamp(now)
	return p
}
