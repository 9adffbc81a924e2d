package core

import (
	"errors"
	"strings"
	"time"
)

const (
	OneTime   Frequency = "one_time"
	Weekly    Frequency = "weekly"
	Biweekly  Frequency = "biweekly"
	Monthly   Frequency = "monthly"
	Quarterly Frequency = "quarterly"
	Annually  Frequency = "annually"
)

const (
	KindIncome    Kind = "income"
	KindBudget    Kind = "budget"
	KindSavings   Kind = "savings"
	KindPortfolio Kind = "portfolio"
	KindTax       Kind = "tax"
)

type (
	// Frequency describes how often a recurring record repeats.
	// OneTime records carry a single date instead of a start/end range.
	Frequency string

	// Kind identifies the domain a record belongs to. All kinds share the
	// same record shape and the same set of operations.
	Kind string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// Record is the shared shape behind income sources, budgets, savings
	// accounts, portfolio assets and tax records. The backend is the system
	// of record; IDs are opaque strings assigned at creation time.
	Record struct {
		ID        string
		Kind      Kind
		Name      string
		Amount    Money
		Currency  string
		Category  string
		Frequency Frequency
		StartDate Date // zero for one-time records without a range
		EndDate   Date // zero means unbounded future
		Asset     *AssetPosition
		IsActive  bool
		CreatedAt time.Time
		UpdatedAt time.Time
	}
)

var (
	ErrInvalidKind      = errors.New("invalid record kind")
	ErrInvalidFrequency = errors.New("invalid frequency")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidCurrency  = errors.New("invalid currency code")
	ErrEmptyName        = errors.New("empty name")
	ErrNotFound         = errors.New("record not found")
)

var validFrequencies = map[Frequency]struct{}{
	OneTime:   {},
	Weekly:    {},
	Biweekly:  {},
	Monthly:   {},
	Quarterly: {},
	Annually:  {},
}

var validKinds = map[Kind]struct{}{
	KindIncome:    {},
	KindBudget:    {},
	KindSavings:   {},
	KindPortfolio: {},
	KindTax:       {},
}

// Valid reports whether f is a known frequency.
func (f Frequency) Valid() bool {
	_, ok := validFrequencies[f]
	return ok
}

// Valid reports whether k is a known record kind.
func (k Kind) Valid() bool {
	_, ok := validKinds[k]
	return ok
}

// Kinds returns all record kinds in a fixed order.
func Kinds() []Kind {
	return []Kind{KindIncome, KindBudget, KindSavings, KindPortfolio, KindTax}
}

// NewDate creates a Date from year, month, day at UTC midnight.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a date in YYYY-MM-DD form. An empty string yields the
// zero Date, which callers treat as "no date".
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t}, nil
}

// IsEmpty returns true if the date is zero (optional dates).
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

// String formats the date as YYYY-MM-DD, or "" for the zero Date.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format("2006-01-02")
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (r Record) Validate() error {
	if !r.Kind.Valid() {
		return ErrInvalidKind
	}
	if len(strings.TrimSpace(r.Name)) == 0 {
		return ErrEmptyName
	}
	if len(r.Name) > 200 {
		return errors.New("name too long (max 200 characters)")
	}
	if err := r.Amount.Validate(); err != nil {
		return err
	}
	if len(r.Currency) != 3 {
		return ErrInvalidCurrency
	}
	if !r.Frequency.Valid() {
		return ErrInvalidFrequency
	}
	if r.Frequency != OneTime {
		if r.StartDate.IsEmpty() {
			return errors.New("recurring record requires a start date")
		}
		if !r.EndDate.IsEmpty() && r.EndDate.Before(r.StartDate.Time) {
			return errors.New("end date must not be before start date")
		}
	}
	if r.Asset != nil {
		if err := r.Asset.Validate(); err != nil {
			return err
		}
	}
	return nil
}
