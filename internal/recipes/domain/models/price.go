package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"
)

const (
	// PriceMaxDigits and PriceDecimalPlaces match the NUMERIC(5,2) column.
	PriceMaxDigits     = 5
	PriceDecimalPlaces = 2
)

var (
	ErrPriceFormat         = errors.New("A valid number is required.")                                       //nolint:stylecheck
	ErrPriceDecimalPlaces  = errors.New("Ensure that there are no more than 2 decimal places.")               //nolint:stylecheck
	ErrPriceDigits         = errors.New("Ensure that there are no more than 5 digits in total.")              //nolint:stylecheck
	errPriceNotRepresented = errors.New("numeric value cannot be represented with 2 decimal places")
)

// Price is a fixed-point amount with two fractional digits, stored in cents.
type Price int64

// ParsePrice accepts plain decimal notation such as "4", "4.5" or "-12.30".
func ParsePrice(s string) (Price, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrPriceFormat
	}

	neg := false

	switch s[0] {
	case '-':
		neg = true
		s = s[1:]
	case '+':
		s = s[1:]
	}

	whole, frac, hasDot := strings.Cut(s, ".")
	if whole == "" && (!hasDot || frac == "") {
		return 0, ErrPriceFormat
	}

	if !digitsOnly(whole) || !digitsOnly(frac) {
		return 0, ErrPriceFormat
	}

	frac = strings.TrimRight(frac, "0")
	if len(frac) > PriceDecimalPlaces {
		return 0, ErrPriceDecimalPlaces
	}

	whole = strings.TrimLeft(whole, "0")
	if len(whole)+PriceDecimalPlaces > PriceMaxDigits {
		return 0, ErrPriceDigits
	}

	frac += strings.Repeat("0", PriceDecimalPlaces-len(frac))

	cents, err := strconv.ParseInt(whole+frac, 10, 64)
	if err != nil {
		return 0, ErrPriceFormat
	}

	if neg {
		cents = -cents
	}

	return Price(cents), nil
}

func digitsOnly(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}

	return true
}

func (p Price) Cents() int64 {
	return int64(p)
}

func (p Price) String() string {
	c := int64(p)

	sign := ""
	if c < 0 {
		sign = "-"
		c = -c
	}

	return fmt.Sprintf("%s%d.%02d", sign, c/100, c%100) //nolint:gomnd
}

// MarshalJSON writes the price as a decimal string so no precision is lost.
func (p Price) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

// UnmarshalJSON reads either a JSON number or a decimal string.
func (p *Price) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)

	var raw string

	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return ErrPriceFormat
		}
	} else {
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return ErrPriceFormat
		}

		raw = n.String()
		if strings.ContainsAny(raw, "eE") {
			return ErrPriceFormat
		}
	}

	v, err := ParsePrice(raw)
	if err != nil {
		return err
	}

	*p = v

	return nil
}

// ScanNumeric implements pgtype.NumericScanner.
func (p *Price) ScanNumeric(v pgtype.Numeric) error {
	if !v.Valid {
		*p = 0

		return nil
	}

	if v.NaN || v.InfinityModifier != pgtype.Finite {
		return errPriceNotRepresented
	}

	n := new(big.Int).Set(v.Int)
	shift := int64(v.Exp) + PriceDecimalPlaces

	ten := big.NewInt(10) //nolint:gomnd

	if shift >= 0 {
		n.Mul(n, new(big.Int).Exp(ten, big.NewInt(shift), nil))
	} else {
		div := new(big.Int).Exp(ten, big.NewInt(-shift), nil)

		var rem big.Int

		n.QuoRem(n, div, &rem)

		if rem.Sign() != 0 {
			return errPriceNotRepresented
		}
	}

	if !n.IsInt64() {
		return errPriceNotRepresented
	}

	*p = Price(n.Int64())

	return nil
}

// NumericValue implements pgtype.NumericValuer.
func (p Price) NumericValue() (pgtype.Numeric, error) {
	return pgtype.Numeric{Int: big.NewInt(int64(p)), Exp: -PriceDecimalPlaces, Valid: true}, nil //nolint:exhaustruct
}
