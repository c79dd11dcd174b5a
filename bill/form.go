package bill

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Form field names shared by the new-bill view, its controller and the API.
const (
	FieldType       = "expense-type"
	FieldName       = "expense-name"
	FieldDate       = "datepicker"
	FieldAmount     = "amount"
	FieldVAT        = "vat"
	FieldPct        = "pct"
	FieldCommentary = "commentary"
	FieldFile       = "file"
)

// Values is satisfied by url.Values and multipart form values.
type Values interface {
	Get(key string) string
}

// FromForm builds a pending bill for email out of submitted form values.
func FromForm(v Values, email string) (Bill, error) {
	b := Bill{
		Email:      email,
		Type:       Type(strings.TrimSpace(v.Get(FieldType))),
		Name:       strings.TrimSpace(v.Get(FieldName)),
		Date:       strings.TrimSpace(v.Get(FieldDate)),
		VAT:        strings.TrimSpace(v.Get(FieldVAT)),
		Commentary: strings.TrimSpace(v.Get(FieldCommentary)),
		Pct:        DefaultPct,
		Status:     StatusPending,
	}

	amount := strings.TrimSpace(v.Get(FieldAmount))
	if amount == "" {
		return Bill{}, &ParseError{Field: "amount", Reason: "required"}
	}
	n, err := strconv.Atoi(amount)
	if err != nil {
		return Bill{}, &ParseError{Field: "amount", Reason: "must be a whole number"}
	}
	b.Amount = n

	if pct := strings.TrimSpace(v.Get(FieldPct)); pct != "" {
		n, err := strconv.Atoi(pct)
		if err != nil {
			return Bill{}, &ParseError{Field: "pct", Reason: "must be a whole number"}
		}
		b.Pct = n
	}

	if err := b.Validate(); err != nil {
		return Bill{}, err
	}
	return b, nil
}

// Parse decodes one bill record received from outside the process.
func Parse(data []byte) (Bill, error) {
	var b Bill
	if err := json.Unmarshal(data, &b); err != nil {
		return Bill{}, &ParseError{Field: "record", Reason: err.Error()}
	}
	if b.Status == "" {
		b.Status = StatusPending
	}
	if err := b.Validate(); err != nil {
		return Bill{}, err
	}
	return b, nil
}

// ParseList decodes a JSON array of bills, rejecting the whole list on the
// first malformed record.
func ParseList(data []byte) ([]Bill, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &ParseError{Field: "list", Reason: err.Error()}
	}
	bills := make([]Bill, 0, len(raw))
	for _, r := range raw {
		b, err := Parse(r)
		if err != nil {
			return nil, err
		}
		bills = append(bills, b)
	}
	return bills, nil
}
