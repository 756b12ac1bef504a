package httppresentation

import (
	"net/http"

	appCart "github.com/Zhima-Mochi/minishop-storefront/internal/application/cart"
)

func (h *Handler) handleGetCart(w http.ResponseWriter, r *http.Request) {
	view, err := h.svc.Cart.GetCart(r.Context(), callerFrom(r.Context()))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(view))
}

type addToCartRequest struct {
	ProductID string `json:"productId"`
	Color     string `json:"color"`
	Size      string `json:"size"`
	Quantity  int    `json:"quantity"`
}

func (h *Handler) handleAddToCart(w http.ResponseWriter, r *http.Request) {
	var req addToCartRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	view, err := h.svc.Cart.AddItem(r.Context(), callerFrom(r.Context()), appCart.AddItemInput{
		ProductID: req.ProductID,
		Color:     req.Color,
		Size:      req.Size,
		Quantity:  req.Quantity,
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCartResponse(view))
}

type updateCartItemRequest struct {
	Quantity int `json:"quantity"`
}

func (h *Handler) handleUpdateCartItem(w http.ResponseWriter, r *http.Request) {
	var req updateCartItemRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	view, err := h.svc.Cart.UpdateItem(r.Context(), callerFrom(r.Context()), r.PathValue("itemId"), req.Quantity)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(view))
}

func (h *Handler) handleRemoveCartItem(w http.ResponseWriter, r *http.Request) {
	view, err := h.svc.Cart.RemoveItem(r.Context(), callerFrom(r.Context()), r.PathValue("itemId"))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(view))
}

func (h *Handler) handleClearCart(w http.ResponseWriter, r *http.Request) {
	view, err := h.svc.Cart.ClearCart(r.Context(), callerFrom(r.Context()))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(view))
}
