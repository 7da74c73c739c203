package rest

import (
	"net/http"

	"pos/pkg/domain/model"
	"pos/pkg/infrastructure/transport"
)

func (h *Handler) getTable(w http.ResponseWriter, r *http.Request) {
	tableID, err := pathID(r, "tableID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	table, err := h.tables.GetTable(r.Context(), tableID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, transport.NewTableResponse(*table))
}

func (h *Handler) occupyTable(w http.ResponseWriter, r *http.Request) {
	tableID, err := pathID(r, "tableID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	table, err := h.tables.OccupyTable(r.Context(), tableID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, transport.NewTableResponse(*table))
}

func (h *Handler) releaseTable(w http.ResponseWriter, r *http.Request) {
	tableID, err := pathID(r, "tableID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	table, err := h.tables.ReleaseTable(r.Context(), tableID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, transport.NewTableResponse(*table))
}

func (h *Handler) deactivateTable(w http.ResponseWriter, r *http.Request) {
	tableID, err := pathID(r, "tableID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := h.tables.DeactivateTable(r.Context(), tableID); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) suggestTables(w http.ResponseWriter, r *http.Request) {
	restaurantID, err := queryID(r, "restaurantId")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if restaurantID == nil {
		h.writeError(w, r, model.ErrMissingField)
		return
	}
	partySize, err := queryInt(r, "partySize")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	tables, err := h.tables.SuggestTables(r.Context(), *restaurantID, partySize)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, transport.NewTableResponses(tables))
}

func (h *Handler) activeOrdersForTable(w http.ResponseWriter, r *http.Request) {
	tableID, err := pathID(r, "tableID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	orders, err := h.orders.ActiveOrdersForTable(r.Context(), tableID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, transport.NewOrderSummaries(orders))
}
