package transport

import (
	"errors"
	"net/http"

	"google.golang.org/grpc/codes"

	"pos/pkg/domain/model"
)

var ErrMalformedRequest = errors.New("malformed request")

type Classification struct {
	HTTPStatus int
	GRPCCode   codes.Code
	// Code is the stable machine readable name sent to clients.
	Code string
}

var classifications = []struct {
	err error
	Classification
}{
	// A recalculation failure wraps its cause, so it is matched first.
	{model.ErrRecalculationFailed, Classification{http.StatusInternalServerError, codes.Internal, "RECALCULATION_FAILED"}},

	{ErrMalformedRequest, Classification{http.StatusBadRequest, codes.InvalidArgument, "MALFORMED_REQUEST"}},
	{model.ErrMissingField, Classification{http.StatusBadRequest, codes.InvalidArgument, "MISSING_FIELD"}},
	{model.ErrInvalidOrderType, Classification{http.StatusBadRequest, codes.InvalidArgument, "INVALID_ORDER_TYPE"}},
	{model.ErrInvalidStatus, Classification{http.StatusBadRequest, codes.InvalidArgument, "INVALID_STATUS"}},
	{model.ErrInvalidQuantity, Classification{http.StatusBadRequest, codes.InvalidArgument, "INVALID_QUANTITY"}},
	{model.ErrInvalidDiscount, Classification{http.StatusBadRequest, codes.InvalidArgument, "INVALID_DISCOUNT"}},
	{model.ErrAmountMismatch, Classification{http.StatusBadRequest, codes.InvalidArgument, "AMOUNT_MISMATCH"}},

	{model.ErrOrderNotFound, Classification{http.StatusNotFound, codes.NotFound, "NOT_FOUND"}},
	{model.ErrOrderItemNotFound, Classification{http.StatusNotFound, codes.NotFound, "NOT_FOUND"}},
	{model.ErrTableNotFound, Classification{http.StatusNotFound, codes.NotFound, "NOT_FOUND"}},
	{model.ErrPaymentNotFound, Classification{http.StatusNotFound, codes.NotFound, "NOT_FOUND"}},
	{model.ErrMenuItemNotFound, Classification{http.StatusNotFound, codes.NotFound, "NOT_FOUND"}},
	{model.ErrCustomerNotFound, Classification{http.StatusNotFound, codes.NotFound, "NOT_FOUND"}},
	{model.ErrStaffNotFound, Classification{http.StatusNotFound, codes.NotFound, "NOT_FOUND"}},

	{model.ErrPaymentExists, Classification{http.StatusConflict, codes.AlreadyExists, "PAYMENT_EXISTS"}},
	{model.ErrTableUnavailable, Classification{http.StatusConflict, codes.FailedPrecondition, "TABLE_UNAVAILABLE"}},
	{model.ErrItemUnavailable, Classification{http.StatusConflict, codes.FailedPrecondition, "ITEM_UNAVAILABLE"}},
	{model.ErrOrderClosed, Classification{http.StatusConflict, codes.FailedPrecondition, "ORDER_CLOSED"}},
	{model.ErrInvalidTransition, Classification{http.StatusConflict, codes.FailedPrecondition, "INVALID_TRANSITION"}},
	{model.ErrLastItemProtected, Classification{http.StatusConflict, codes.FailedPrecondition, "LAST_ITEM_PROTECTED"}},
	{model.ErrInvalidState, Classification{http.StatusConflict, codes.FailedPrecondition, "INVALID_STATE"}},
	{model.ErrOrderNotDeletable, Classification{http.StatusConflict, codes.FailedPrecondition, "ORDER_NOT_DELETABLE"}},
	{model.ErrTableNotOccupied, Classification{http.StatusConflict, codes.FailedPrecondition, "TABLE_NOT_OCCUPIED"}},
	{model.ErrTableHasActiveOrders, Classification{http.StatusConflict, codes.FailedPrecondition, "TABLE_HAS_ACTIVE_ORDERS"}},

	{model.ErrOrderNumberExhausted, Classification{http.StatusServiceUnavailable, codes.Aborted, "ORDER_NUMBER_EXHAUSTED"}},
}

var internal = Classification{http.StatusInternalServerError, codes.Internal, "INTERNAL"}

// Classify maps an error returned by the services to transport codes.
// Unknown errors are internal.
func Classify(err error) Classification {
	for _, c := range classifications {
		if errors.Is(err, c.err) {
			return c.Classification
		}
	}
	return internal
}

type ErrorResponse struct {
	Error   string                 `json:"error"`
	Code    string                 `json:"code"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// NewErrorResponse hides the message of internal errors and carries the
// structured context of transition and amount errors.
func NewErrorResponse(err error) (ErrorResponse, Classification) {
	c := Classify(err)
	resp := ErrorResponse{Error: err.Error(), Code: c.Code}
	if c == internal {
		resp.Error = "internal error"
	}

	var transitionErr *model.TransitionError
	if errors.As(err, &transitionErr) {
		allowed := make([]string, 0, len(transitionErr.Allowed))
		for _, s := range transitionErr.Allowed {
			allowed = append(allowed, string(s))
		}
		resp.Details = map[string]interface{}{
			"from":    string(transitionErr.From),
			"to":      string(transitionErr.To),
			"allowed": allowed,
		}
	}
	var amountErr *model.AmountMismatchError
	if errors.As(err, &amountErr) {
		resp.Details = map[string]interface{}{
			"amount": Money(amountErr.AmountCents),
			"total":  Money(amountErr.TotalCents),
		}
	}
	return resp, c
}
