package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var ErrMissingIdentity = errors.New("full_name and email are required")

// ErrNumberOutOfRange rejects plan amounts too large or too precise to be a
// real plan value. The bound keeps the decimal text written to the CRM small.
var ErrNumberOutOfRange = errors.New("plan number out of range")

// maxDigits bounds both the integer and the fractional digits of a Number.
const maxDigits = 30

// maxRawLen caps the raw text kept for a dropped value.
const maxRawLen = 64

// PlanSubmission is the payload posted by the risk calculator form.
type PlanSubmission struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`

	PlanParameters
}

// PlanParameters are the optional plan values written onto the contact.
// A value the form sent in an unusable shape is dropped, never fatal; see
// Dropped.
type PlanParameters struct {
	ProfitTarget       Number `json:"profit_target"`
	MaxLossLimit       Number `json:"max_loss_limit"`
	MaxContractSize    Count  `json:"max_contract_size"`
	DailyLossLimit     Number `json:"daily_loss_limit"`
	TradesUntilLost    Count  `json:"trades_until_lost"`
	ConsistencyEnabled Flag   `json:"consistency_enabled"`
	ConsistencyRule    Number `json:"consistency_rule"`
	Product            Text   `json:"product"`
	StopLossTicks      Count  `json:"stop_loss_ticks"`
	SuggestedContracts Count  `json:"suggested_contracts"`
	RiskPerTrade       Number `json:"risk_per_trade"`
	MaxSLHitsPerDay    Count  `json:"max_sl_hits_per_day"`
	DailyProfitTarget  Number `json:"daily_profit_target"`
	MaxDailyProfit     Number `json:"max_daily_profit"`
}

// FieldValue is one plan parameter keyed by its CRM field key.
type FieldValue struct {
	Key   string
	Value any
}

// param is implemented by the optional parameter types.
type param interface {
	fieldValue() (any, bool)
	dropped() string
}

// Number is an optional decimal that accepts JSON numbers or numeric strings.
// An empty string decodes as absent, which is what HTML forms send for blank
// inputs. A trailing "%" is ignored.
type Number struct {
	decimal.NullDecimal

	// Raw holds the input when it was not a number.
	Raw string
}

func NewNumber(v float64) Number {
	return Number{NullDecimal: decimal.NewNullDecimal(decimal.NewFromFloat(v))}
}

func (n *Number) UnmarshalJSON(b []byte) error {
	*n = Number{}

	text, ok := scalarText(b)
	if !ok {
		n.Raw = truncateRaw(string(b))
		return nil
	}
	text = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(text), "%"))
	if text == "" || text == "null" {
		return nil
	}

	d, err := decimal.NewFromString(text)
	if err != nil {
		n.Raw = truncateRaw(text)
		return nil
	}
	if !inRange(d) {
		return fmt.Errorf("%w: %s", ErrNumberOutOfRange, truncateRaw(text))
	}
	n.NullDecimal = decimal.NewNullDecimal(d)
	return nil
}

// inRange reports whether d has at most maxDigits digits on each side of the
// decimal point.
func inRange(d decimal.Decimal) bool {
	exp := int64(d.Exponent())
	if exp > maxDigits || exp < -maxDigits {
		return false
	}
	return int64(d.NumDigits())+exp <= maxDigits
}

func (n Number) fieldValue() (any, bool) {
	if !n.Valid {
		return nil, false
	}
	return json.Number(n.Decimal.String()), true
}

func (n Number) dropped() string { return n.Raw }

// Count is an optional whole number such as a contract or tick count.
// Fractions are dropped.
type Count struct {
	Number
}

func NewCount(v int64) Count {
	return Count{Number{NullDecimal: decimal.NewNullDecimal(decimal.NewFromInt(v))}}
}

func (c *Count) UnmarshalJSON(b []byte) error {
	if err := c.Number.UnmarshalJSON(b); err != nil {
		return err
	}
	if c.Valid && !c.Decimal.IsInteger() {
		c.Raw = c.Decimal.String()
		c.NullDecimal = decimal.NullDecimal{}
	}
	return nil
}

// Flag is an optional boolean. Besides JSON booleans it accepts what checkbox
// inputs post: "true"/"false", "on"/"off", "yes"/"no" and 1/0.
type Flag struct {
	Value bool
	Valid bool
	Raw   string
}

func NewFlag(v bool) Flag {
	return Flag{Value: v, Valid: true}
}

func (f *Flag) UnmarshalJSON(b []byte) error {
	*f = Flag{}

	text, ok := scalarText(b)
	if !ok {
		f.Raw = truncateRaw(string(b))
		return nil
	}
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "", "null":
	case "true", "on", "yes", "1":
		f.Value, f.Valid = true, true
	case "false", "off", "no", "0":
		f.Valid = true
	default:
		f.Raw = truncateRaw(text)
	}
	return nil
}

func (f Flag) fieldValue() (any, bool) { return f.Value, f.Valid }

func (f Flag) dropped() string { return f.Raw }

// Text is an optional string. Numbers are kept as their literal text; blank
// strings are absent.
type Text struct {
	Value string
	Valid bool
	Raw   string
}

func NewText(v string) Text {
	return Text{Value: v, Valid: true}
}

func (t *Text) UnmarshalJSON(b []byte) error {
	*t = Text{}

	trimmed := bytes.TrimSpace(b)
	if len(trimmed) > 0 && (trimmed[0] == 't' || trimmed[0] == 'f') {
		t.Raw = truncateRaw(string(trimmed))
		return nil
	}
	text, ok := scalarText(b)
	if !ok {
		t.Raw = truncateRaw(string(b))
		return nil
	}
	if text = strings.TrimSpace(text); text != "" && string(trimmed) != "null" {
		t.Value, t.Valid = text, true
	}
	return nil
}

func (t Text) fieldValue() (any, bool) {
	v := strings.TrimSpace(t.Value)
	return v, t.Valid && v != ""
}

func (t Text) dropped() string { return t.Raw }

// scalarText returns the text of a JSON string, number, boolean or null.
// Objects and arrays report false.
func scalarText(b []byte) (string, bool) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return "", true
	}
	switch b[0] {
	case '{', '[':
		return "", false
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return "", false
		}
		return s, true
	}
	return string(b), true
}

func truncateRaw(s string) string {
	if len(s) <= maxRawLen {
		return s
	}
	r := []rune(s)
	if len(r) <= maxRawLen {
		return s
	}
	return string(r[:maxRawLen]) + "..."
}

// Normalize returns a copy with the identity fields trimmed.
func (p PlanSubmission) Normalize() PlanSubmission {
	p.FullName = strings.TrimSpace(p.FullName)
	p.Email = strings.TrimSpace(p.Email)
	return p
}

// Validate checks the identity fields. It does not touch plan parameters.
func (p PlanSubmission) Validate() error {
	if strings.TrimSpace(p.FullName) == "" || strings.TrimSpace(p.Email) == "" {
		return ErrMissingIdentity
	}
	return nil
}

type namedParam struct {
	key   string
	value param
}

func (p PlanParameters) params() []namedParam {
	return []namedParam{
		{"profit_target", p.ProfitTarget},
		{"max_loss_limit", p.MaxLossLimit},
		{"max_contract_size", p.MaxContractSize},
		{"daily_loss_limit", p.DailyLossLimit},
		{"trades_until_lost", p.TradesUntilLost},
		{"consistency_enabled", p.ConsistencyEnabled},
		{"consistency_rule", p.ConsistencyRule},
		{"product", p.Product},
		{"stop_loss_ticks", p.StopLossTicks},
		{"suggested_contracts", p.SuggestedContracts},
		{"risk_per_trade", p.RiskPerTrade},
		{"max_sl_hits_per_day", p.MaxSLHitsPerDay},
		{"daily_profit_target", p.DailyProfitTarget},
		{"max_daily_profit", p.MaxDailyProfit},
	}
}

// FieldValues lists the parameters the submission carries, in a stable order.
// Absent parameters are left out so an update never clears a stored value.
func (p PlanParameters) FieldValues() []FieldValue {
	var values []FieldValue
	for _, item := range p.params() {
		if v, ok := item.value.fieldValue(); ok {
			values = append(values, FieldValue{Key: item.key, Value: v})
		}
	}
	return values
}

// Dropped lists the parameters that were sent but could not be used, with
// the raw input as Value.
func (p PlanParameters) Dropped() []FieldValue {
	var dropped []FieldValue
	for _, item := range p.params() {
		if raw := item.value.dropped(); raw != "" {
			dropped = append(dropped, FieldValue{Key: item.key, Value: raw})
		}
	}
	return dropped
}
