package transport

import (
	"bytes"
	"math"
	"strconv"

	"github.com/pkg/errors"

	"pos/pkg/domain/model"
)

// Money is an amount in cents that travels as a decimal number, e.g. 130.00.
type Money int64

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(model.FormatCents(int64(m))), nil
}

// UnmarshalJSON accepts numbers and numeric strings, rounded to the cent.
// Amounts beyond model.MaxAmountCents are rejected.
func (m *Money) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	value, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return errors.Wrapf(ErrMalformedRequest, "amount %s", data)
	}
	cents := math.Round(value * 100)
	if math.IsNaN(cents) || math.Abs(cents) > float64(model.MaxAmountCents) {
		return errors.Wrapf(ErrMalformedRequest, "amount %s out of range", data)
	}
	*m = Money(cents)
	return nil
}

func (m Money) Cents() int64 {
	return int64(m)
}
