// Package httpapi exposes the order editor and the dispenser actions over
// HTTP for the register front end.
package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/pourline/pourline/internal/adapters/outbound/orderfile"
	"github.com/pourline/pourline/internal/application"
	"github.com/pourline/pourline/internal/bootstrap"
	"github.com/pourline/pourline/internal/domain"
	"github.com/pourline/pourline/internal/platform/logging"
)

// Handlers contains HTTP handlers for order and dispenser endpoints.
type Handlers struct {
	rt       *bootstrap.Runtime
	registry *Registry
	logger   *logging.Logger
}

// NewHandlers creates new HTTP handlers.
func NewHandlers(rt *bootstrap.Runtime, registry *Registry) *Handlers {
	return &Handlers{rt: rt, registry: registry, logger: rt.Logger}
}

type addLineRequest struct {
	Product string `json:"product" binding:"required"`
	Qty     int    `json:"qty"`
	Parent  int    `json:"parent"`
}

type selectRequest struct {
	LineID int `json:"line_id" binding:"required"`
}

type inputRequest struct {
	Kind   string `json:"kind" binding:"required"`
	Buffer string `json:"buffer"`
}

type cancelRequest struct {
	Product string `json:"product" binding:"required"`
	Qty     int    `json:"qty"`
}

type editResponse struct {
	Result application.EditResult `json:"result"`
	Order  domain.OrderView       `json:"order"`
}

type dispatchResponse struct {
	Report        domain.SessionReport  `json:"report"`
	Notifications []domain.Notification `json:"notifications"`
}

// CreateOrder handles POST /api/v1/orders
func (h *Handlers) CreateOrder() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req orderfile.File
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if req.ID == "" {
			req.ID = application.NewOrderID()
		}
		if req.Session == "" {
			req.Session = application.NewSessionID()
		}

		o, err := orderfile.Build(req, h.rt.Catalog)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.service(nil).Track(o)
		if err := h.registry.Add(o); err != nil {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, o.View())
	}
}

// GetOrder handles GET /api/v1/orders/:id
func (h *Handlers) GetOrder() gin.HandlerFunc {
	return func(c *gin.Context) {
		var view domain.OrderView
		err := h.registry.With(c.Param("id"), func(o *domain.Order) error {
			view = o.View()
			return nil
		})
		if err != nil {
			h.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, view)
	}
}

// DeleteOrder handles DELETE /api/v1/orders/:id
func (h *Handlers) DeleteOrder() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := h.registry.Delete(c.Param("id")); err != nil {
			h.respondError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// AddLine handles POST /api/v1/orders/:id/lines
func (h *Handlers) AddLine() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req addLineRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		p, err := h.rt.Catalog.Lookup(req.Product)
		if err != nil {
			h.respondError(c, err)
			return
		}

		var view domain.OrderView
		err = h.registry.With(c.Param("id"), func(o *domain.Order) error {
			if req.Parent != 0 {
				anchor, err := o.Line(req.Parent)
				if err != nil {
					return err
				}
				if _, err := o.AddComboLine(anchor, p); err != nil {
					return err
				}
			} else {
				qty := req.Qty
				if qty == 0 {
					qty = 1
				}
				if _, err := o.AddLine(p, qty); err != nil {
					return err
				}
			}
			view = o.View()
			return nil
		})
		if err != nil {
			h.respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, view)
	}
}

// SelectLine handles POST /api/v1/orders/:id/select
func (h *Handlers) SelectLine() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req selectRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		var view domain.OrderView
		err := h.registry.With(c.Param("id"), func(o *domain.Order) error {
			if err := o.Select(req.LineID); err != nil {
				return err
			}
			view = o.View()
			return nil
		})
		if err != nil {
			h.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, view)
	}
}

// Input handles POST /api/v1/orders/:id/input
func (h *Handlers) Input() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req inputRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		kind, err := application.ParseInputKind(req.Kind)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		var resp editResponse
		err = h.registry.With(c.Param("id"), func(o *domain.Order) error {
			resp.Result = h.service(nil).OnQuantityEditInput(o, application.Input{Kind: kind, Buffer: req.Buffer})
			resp.Order = o.View()
			return nil
		})
		if err != nil {
			h.respondError(c, err)
			return
		}
		status := http.StatusOK
		if resp.Result.Error != "" {
			status = http.StatusUnprocessableEntity
		}
		c.JSON(status, resp)
	}
}

// RemoveLine handles DELETE /api/v1/orders/:id/lines/:lineId
func (h *Handlers) RemoveLine() gin.HandlerFunc {
	return func(c *gin.Context) {
		lineID, err := strconv.Atoi(c.Param("lineId"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid line id"})
			return
		}

		var resp editResponse
		err = h.registry.With(c.Param("id"), func(o *domain.Order) error {
			res, err := h.service(nil).RemoveLine(o, lineID)
			if err != nil {
				return err
			}
			resp.Result = res
			resp.Order = o.View()
			return nil
		})
		if err != nil {
			h.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

// Dispatch handles POST /api/v1/orders/:id/dispatch
func (h *Handlers) Dispatch() gin.HandlerFunc {
	return func(c *gin.Context) {
		notes := &domain.NotificationLog{}
		var report domain.SessionReport
		err := h.registry.With(c.Param("id"), func(o *domain.Order) error {
			report = h.service(notes).OnSendToDispenserRequested(c.Request.Context(), o)
			return nil
		})
		if err != nil {
			h.respondError(c, err)
			return
		}

		status := http.StatusOK
		if report.Status == domain.ReportDenied {
			status = http.StatusForbidden
		}
		c.JSON(status, dispatchResponse{Report: report, Notifications: notes.Items()})
	}
}

// Credits handles GET /api/v1/sessions/:session/credits
func (h *Handlers) Credits() gin.HandlerFunc {
	return func(c *gin.Context) {
		recs, err := h.rt.Gateway.Credits(c.Request.Context(), c.Param("session"))
		if err != nil {
			h.respondError(c, err)
			return
		}
		if recs == nil {
			recs = []domain.CreditRecord{}
		}
		c.JSON(http.StatusOK, recs)
	}
}

// CancelCredits handles POST /api/v1/sessions/:session/cancel
func (h *Handlers) CancelCredits() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req cancelRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if req.Qty == 0 {
			req.Qty = 1
		}
		if req.Qty < 0 {
			h.respondError(c, domain.ErrInvalidQuantity)
			return
		}
		p, err := h.rt.Catalog.Lookup(req.Product)
		if err != nil {
			h.respondError(c, err)
			return
		}

		outcome := h.rt.Canceller.CancelCredits(c.Request.Context(), c.Param("session"), *p, req.Qty)
		status := http.StatusOK
		if outcome.Err != nil {
			status = http.StatusBadGateway
		}
		c.JSON(status, outcome)
	}
}

// Probe handles GET /api/v1/probe
func (h *Handlers) Probe() gin.HandlerFunc {
	return func(c *gin.Context) {
		res, err := h.rt.Gateway.ProbeConnectivity(c.Request.Context())
		if err != nil {
			h.respondError(c, err)
			return
		}
		status := http.StatusOK
		if !res.Success {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, res)
	}
}

// Health handles GET /health
func (h *Handlers) Health() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":        "ok",
			"orders":        h.registry.Len(),
			"breaker":       h.rt.Breaker.State(),
			"middleware":    h.rt.Client.BaseURL(),
			"operator":      h.rt.Operator.Name,
			"server_number": h.rt.Operator.ServerNo,
		})
	}
}

func (h *Handlers) service(notifier domain.Notifier) *application.DispenserService {
	if notifier == nil {
		notifier = &domain.NotificationLog{}
	}
	return h.rt.Service(notifier)
}

func (h *Handlers) respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrOrderNotFound), errors.Is(err, domain.ErrLineNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrUnknownProduct), errors.Is(err, domain.ErrInvalidQuantity):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrOrderFinalized):
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		h.logger.WithError(err).Error("request failed", "path", c.FullPath())
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
