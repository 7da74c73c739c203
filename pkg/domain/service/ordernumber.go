package service

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"pos/pkg/domain/model"
)

const (
	orderNumberAttempts   = 3
	orderNumberDateLayout = "20060102"
)

func orderNumberPrefix(clock model.Clock) string {
	return fmt.Sprintf("ORD-%s-", clock.Now().UTC().Format(orderNumberDateLayout))
}

// nextOrderNumber returns ORD-<date>-<seq> where seq follows the highest
// number already stored for the restaurant on that date.
func nextOrderNumber(repo model.OrderRepository, clock model.Clock, restaurantID uuid.UUID) (string, error) {
	prefix := orderNumberPrefix(clock)

	highest, err := repo.HighestOrderNumber(restaurantID, prefix)
	if err != nil {
		return "", errors.Wrap(err, "find latest order number")
	}

	sequence := 1
	if highest != "" {
		if n, err := strconv.Atoi(strings.TrimPrefix(highest, prefix)); err == nil {
			sequence = n + 1
		}
	}
	return fmt.Sprintf("%s%04d", prefix, sequence), nil
}

func paymentNumber(clock model.Clock, id uuid.UUID) string {
	return fmt.Sprintf("PAY-%s-%s", clock.Now().UTC().Format(orderNumberDateLayout), strings.ToUpper(id.String()[:8]))
}
