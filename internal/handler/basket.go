package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Sotatek-TuNguyen6/yolo-sub000/internal/basket"
	"github.com/Sotatek-TuNguyen6/yolo-sub000/internal/domain"
	"github.com/Sotatek-TuNguyen6/yolo-sub000/internal/middleware"
)

// itemRequest is the body of POST /{kind}/items and the item-level calls.
type itemRequest struct {
	Item *domain.LineItem `json:"item"`
	Mode string           `json:"mode,omitempty"`
}

// replaceRequest is the body of PUT /{kind}.
type replaceRequest struct {
	Items []domain.LineItem `json:"items"`
}

// basketRoutes mounts the collection endpoints for kind.
//
//	GET    /            current collection
//	PUT    /            replace all lines
//	DELETE /            clear
//	POST   /items       add (cart merges, wishlist upserts)
//	DELETE /items       remove the matching line
//	POST   /items/increment
//	POST   /items/decrement
func (s *Server) basketRoutes(kind domain.Kind) func(chi.Router) {
	return func(r chi.Router) {
		r.Get("/", s.getBasket(kind))
		r.Put("/", s.replaceBasket(kind))
		r.Delete("/", s.clearBasket(kind))
		r.Post("/items", s.addItem(kind))
		r.Delete("/items", s.removeItem(kind))
		r.Post("/items/increment", s.incrementItem(kind))
		r.Post("/items/decrement", s.decrementItem(kind))
	}
}

func (s *Server) getBasket(kind domain.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, ok := s.owner(w, r)
		if !ok {
			return
		}
		b, err := s.baskets.Get(r.Context(), kind, owner)
		s.respondBasket(w, r, b, err)
	}
}

func (s *Server) replaceBasket(kind domain.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, ok := s.owner(w, r)
		if !ok {
			return
		}
		var req replaceRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if req.Items == nil {
			invalidRequest(w, "items is required")
			return
		}
		b, err := s.baskets.Replace(r.Context(), kind, owner, req.Items)
		s.respondBasket(w, r, b, err)
	}
}

func (s *Server) clearBasket(kind domain.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, ok := s.owner(w, r)
		if !ok {
			return
		}
		b, err := s.baskets.Clear(r.Context(), kind, owner)
		s.respondBasket(w, r, b, err)
	}
}

func (s *Server) addItem(kind domain.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, ok := s.owner(w, r)
		if !ok {
			return
		}
		req, ok := decodeItem(w, r)
		if !ok {
			return
		}
		mode, err := basket.ParseMode(req.Mode)
		if err != nil {
			s.respondServiceError(w, r, err, "item")
			return
		}
		b, err := s.baskets.Add(r.Context(), kind, owner, *req.Item, mode)
		s.respondBasket(w, r, b, err)
	}
}

func (s *Server) removeItem(kind domain.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, ok := s.owner(w, r)
		if !ok {
			return
		}
		req, ok := decodeItem(w, r)
		if !ok {
			return
		}
		b, err := s.baskets.Remove(r.Context(), kind, owner, *req.Item)
		s.respondBasket(w, r, b, err)
	}
}

func (s *Server) incrementItem(kind domain.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, ok := s.owner(w, r)
		if !ok {
			return
		}
		req, ok := decodeItem(w, r)
		if !ok {
			return
		}
		b, err := s.baskets.Increment(r.Context(), kind, owner, *req.Item)
		s.respondBasket(w, r, b, err)
	}
}

func (s *Server) decrementItem(kind domain.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, ok := s.owner(w, r)
		if !ok {
			return
		}
		req, ok := decodeItem(w, r)
		if !ok {
			return
		}
		b, err := s.baskets.Decrement(r.Context(), kind, owner, *req.Item)
		s.respondBasket(w, r, b, err)
	}
}

// owner returns the shopper session id, responding 500 when the session
// middleware did not run.
func (s *Server) owner(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := middleware.SessionID(r.Context())
	if id == "" {
		s.respondServiceError(w, r, errors.New("no shopper session in request context"), "session")
		return "", false
	}
	return id, true
}

func (s *Server) respondBasket(w http.ResponseWriter, r *http.Request, b domain.Basket, err error) {
	if err != nil {
		s.respondServiceError(w, r, err, "basket")
		return
	}
	if b.Items == nil {
		b.Items = []domain.PricedLine{}
	}
	respondJSON(w, http.StatusOK, b)
}

func decodeItem(w http.ResponseWriter, r *http.Request) (itemRequest, bool) {
	var req itemRequest
	if !decodeBody(w, r, &req) {
		return req, false
	}
	if req.Item == nil {
		invalidRequest(w, "item is required")
		return req, false
	}
	return req, true
}

// decodeBody decodes a JSON request body into dst. On failure it writes 413
// for an oversized body or 422 otherwise and returns false.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, "payload_too_large", "request body too large")
			return false
		}
		invalidRequest(w, fmt.Sprintf("invalid JSON body: %v", err))
		return false
	}
	return true
}
