package bill

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

// DateLayout is the only accepted bill date format. Lexicographic order of
// dates in this layout is chronological order.
const DateLayout = "2006-01-02"

// DefaultPct is the VAT percentage used when the form leaves it blank.
const DefaultPct = 20

type Type string

const (
	TypeTransports  Type = "Transports"
	TypeRestaurants Type = "Restaurants et bars"
	TypeHotel       Type = "Hôtel et logement"
	TypeOnline      Type = "Services en ligne"
	TypeIT          Type = "IT et électronique"
	TypeEquipment   Type = "Equipement et matériel"
	TypeOffice      Type = "Fournitures de bureau"
)

// Types lists expense categories in the order the form offers them.
var Types = []Type{
	TypeTransports,
	TypeRestaurants,
	TypeHotel,
	TypeOnline,
	TypeIT,
	TypeEquipment,
	TypeOffice,
}

func (t Type) Valid() bool {
	return slices.Contains(Types, t)
}

type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusRefused  Status = "refused"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusRefused:
		return true
	}
	return false
}

// Label is the French text shown to employees for a status.
func (s Status) Label() string {
	switch s {
	case StatusPending:
		return "En attente"
	case StatusAccepted:
		return "Accepté"
	case StatusRefused:
		return "Refusé"
	default:
		return string(s)
	}
}

type Bill struct {
	ID           string `json:"id,omitempty"`
	Email        string `json:"email"`
	Type         Type   `json:"type"`
	Name         string `json:"name"`
	Date         string `json:"date"`
	Amount       int    `json:"amount"`
	VAT          string `json:"vat"`
	Pct          int    `json:"pct"`
	Commentary   string `json:"commentary"`
	FileURL      string `json:"fileUrl"`
	FileName     string `json:"fileName"`
	Status       Status `json:"status"`
	CommentAdmin string `json:"commentAdmin,omitempty"`
}

var (
	ErrNotFound      = errors.New("bill not found")
	ErrReceiptFormat = errors.New("receipt must be a jpg, jpeg or png file")
)

// ParseError reports a bill field that failed validation.
type ParseError struct {
	Field  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid bill %s: %s", e.Field, e.Reason)
}

// Validate checks the fields every stored bill must carry.
func (b Bill) Validate() error {
	if b.Email == "" {
		return &ParseError{Field: "email", Reason: "required"}
	}
	if !b.Type.Valid() {
		return &ParseError{Field: "type", Reason: fmt.Sprintf("unknown expense type %q", b.Type)}
	}
	if strings.TrimSpace(b.Date) == "" {
		return &ParseError{Field: "date", Reason: "required"}
	}
	if _, err := time.Parse(DateLayout, b.Date); err != nil {
		return &ParseError{Field: "date", Reason: "expected YYYY-MM-DD"}
	}
	if b.Amount < 0 {
		return &ParseError{Field: "amount", Reason: "must not be negative"}
	}
	if b.Pct < 0 {
		return &ParseError{Field: "pct", Reason: "must not be negative"}
	}
	if !b.Status.Valid() {
		return &ParseError{Field: "status", Reason: fmt.Sprintf("unknown status %q", b.Status)}
	}
	return nil
}

// SortByDateDesc orders bills most recent first. Bills sharing a date keep
// their relative order.
func SortByDateDesc(bills []Bill) {
	slices.SortStableFunc(bills, func(a, b Bill) int {
		return cmp.Compare(b.Date, a.Date)
	})
}

// SortedByDateDesc is SortByDateDesc on a copy.
func SortedByDateDesc(bills []Bill) []Bill {
	sorted := slices.Clone(bills)
	SortByDateDesc(sorted)
	return sorted
}
