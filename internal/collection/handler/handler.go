package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"revenuehub/internal/access"
	"revenuehub/internal/collection/models"
	"revenuehub/internal/collection/service"
	id "revenuehub/pkg/domain"
	"revenuehub/pkg/platform/httputil"
	"revenuehub/pkg/requestcontext"
)

// Service defines the collection operations exposed over HTTP.
type Service interface {
	Record(ctx context.Context, in service.PaymentInput) (*models.Collection, error)
	MakePayment(ctx context.Context, in service.PaymentInput) (*models.Collection, error)
	Get(ctx context.Context, collectionID id.CollectionID) (*models.Collection, error)
	List(ctx context.Context, filter service.ListFilter) ([]*models.Collection, error)
	Mine(ctx context.Context) ([]*models.Collection, error)
	Update(ctx context.Context, collectionID id.CollectionID, u models.CollectionUpdate) (*models.Collection, error)
	Validate(ctx context.Context, collectionID id.CollectionID) (*models.Collection, error)
	Cancel(ctx context.Context, collectionID id.CollectionID, reason string) (*models.Collection, error)
	Receipt(ctx context.Context, collectionID id.CollectionID) (*models.Receipt, error)
	Flag(ctx context.Context, collectionID id.CollectionID, in service.FlagInput) (*models.Collection, error)
	Unflag(ctx context.Context, collectionID id.CollectionID) (*models.Collection, error)
}

// Handler serves the /collections and /payments endpoints.
type Handler struct {
	service Service
	logger  *slog.Logger
	guard   *access.Guard
}

func New(service Service, logger *slog.Logger, guard *access.Guard) *Handler {
	return &Handler{service: service, logger: logger, guard: guard}
}

func (h *Handler) Register(r chi.Router) {
	r.Route("/collections", func(r chi.Router) {
		r.With(h.guard.Require(access.PermViewCollections)).Get("/", h.HandleList)
		r.With(h.guard.Require(access.PermViewMyCollections, access.PermViewMyPayments)).Get("/mine", h.HandleMine)
		r.With(h.guard.Require(access.PermRecordPayment)).Post("/", h.HandleRecord)
		r.With(h.guard.Require(access.PermViewCollections, access.PermViewMyCollections, access.PermViewMyPayments)).Get("/{id}", h.HandleGet)
		r.With(h.guard.Require(access.PermEditPayment)).Put("/{id}", h.HandleUpdate)
		r.With(h.guard.Require(access.PermValidatePayment)).Post("/{id}/validate", h.HandleValidate)
		r.With(h.guard.Require(access.PermDeletePayment)).Delete("/{id}", h.HandleCancel)
		r.With(h.guard.Require(access.PermGenerateReceipt)).Get("/{id}/receipt", h.HandleReceipt)
		r.With(h.guard.Require(access.PermFlagIrregularities)).Post("/{id}/flag", h.HandleFlag)
		r.With(h.guard.Require(access.PermFlagIrregularities)).Delete("/{id}/flag", h.HandleUnflag)
	})
	r.With(h.guard.Require(access.PermMakePayment)).Post("/payments", h.HandleMakePayment)
}

func (h *Handler) HandleRecord(w http.ResponseWriter, r *http.Request) {
	h.pay(w, r, "record payment", h.service.Record)
}

func (h *Handler) HandleMakePayment(w http.ResponseWriter, r *http.Request) {
	h.pay(w, r, "make payment", h.service.MakePayment)
}

func (h *Handler) pay(w http.ResponseWriter, r *http.Request, op string, fn func(context.Context, service.PaymentInput) (*models.Collection, error)) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[PaymentRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	c, err := fn(ctx, service.PaymentInput{
		BusinessID:    req.businessID,
		RevenueTypeID: req.revenueTypeID,
		Amount:        req.amount(),
		PaymentMethod: req.method,
		CollectedAt:   req.collectedAt,
		Notes:         req.Notes,
	})
	if err != nil {
		httputil.WriteServiceError(ctx, w, h.logger, op, err)
		return
	}
	h.logger.InfoContext(ctx, op,
		"collection_id", c.ID,
		"receipt_code", c.ReceiptCode,
		"district", c.District,
		"request_id", requestID,
	)
	httputil.WriteJSON(w, http.StatusCreated, c)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	filter, err := parseListFilter(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	collections, err := h.service.List(ctx, filter)
	if err != nil {
		httputil.WriteServiceError(ctx, w, h.logger, "list collections", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, CollectionListResponse{Collections: collections, Total: len(collections)})
}

func parseListFilter(r *http.Request) (service.ListFilter, error) {
	q := r.URL.Query()
	var (
		filter service.ListFilter
		err    error
	)
	if v := q.Get("status"); v != "" {
		if filter.Status, err = models.ParseStatus(v); err != nil {
			return filter, err
		}
	}
	if v := q.Get("payment_method"); v != "" {
		if filter.Method, err = models.ParsePaymentMethod(v); err != nil {
			return filter, err
		}
	}
	if v := q.Get("collector_id"); v != "" {
		collectorID, err := id.ParseUserID(v)
		if err != nil {
			return filter, err
		}
		filter.CollectorID = &collectorID
	}
	if v := q.Get("business_id"); v != "" {
		businessID, err := id.ParseBusinessID(v)
		if err != nil {
			return filter, err
		}
		filter.BusinessID = &businessID
	}
	if v := q.Get("revenue_type_id"); v != "" {
		revenueTypeID, err := id.ParseRevenueTypeID(v)
		if err != nil {
			return filter, err
		}
		filter.RevenueTypeID = &revenueTypeID
	}
	if v := q.Get("flagged"); v != "" {
		flagged := v == "true"
		filter.Flagged = &flagged
	}
	if v := q.Get("from"); v != "" {
		if filter.From, err = parseDate("from", v); err != nil {
			return filter, err
		}
	}
	if v := q.Get("to"); v != "" {
		if filter.To, err = parseDate("to", v); err != nil {
			return filter, err
		}
		// a bare date covers the whole day
		if len(v) == len("2006-01-02") {
			filter.To = filter.To.AddDate(0, 0, 1).Add(-1)
		}
	}
	return filter, nil
}

func (h *Handler) HandleMine(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	collections, err := h.service.Mine(ctx)
	if err != nil {
		httputil.WriteServiceError(ctx, w, h.logger, "list my collections", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, CollectionListResponse{Collections: collections, Total: len(collections)})
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "get collection", h.service.Get)
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	collectionID, err := id.ParseCollectionID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[UpdateCollectionRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	c, err := h.service.Update(ctx, collectionID, req.update)
	if err != nil {
		httputil.WriteServiceError(ctx, w, h.logger, "update collection", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) HandleValidate(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "validate collection", h.service.Validate)
}

func (h *Handler) HandleUnflag(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "unflag collection", h.service.Unflag)
}

// HandleCancel voids a collection. The body with a reason is optional.
func (h *Handler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	collectionID, err := id.ParseCollectionID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[CancelCollectionRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	c, err := h.service.Cancel(ctx, collectionID, req.Reason)
	if err != nil {
		httputil.WriteServiceError(ctx, w, h.logger, "cancel collection", err)
		return
	}
	h.logger.InfoContext(ctx, "collection cancelled",
		"collection_id", c.ID,
		"request_id", requestID,
	)
	httputil.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) HandleReceipt(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	collectionID, err := id.ParseCollectionID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	receipt, err := h.service.Receipt(ctx, collectionID)
	if err != nil {
		httputil.WriteServiceError(ctx, w, h.logger, "generate receipt", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, receipt)
}

func (h *Handler) HandleFlag(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	collectionID, err := id.ParseCollectionID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[FlagCollectionRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	c, err := h.service.Flag(ctx, collectionID, service.FlagInput{Reason: req.Reason, RiskLevel: req.risk})
	if err != nil {
		httputil.WriteServiceError(ctx, w, h.logger, "flag collection", err)
		return
	}
	h.logger.WarnContext(ctx, "collection flagged",
		"collection_id", c.ID,
		"risk_level", c.RiskLevel,
		"request_id", requestID,
	)
	httputil.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, op string, fn func(context.Context, id.CollectionID) (*models.Collection, error)) {
	ctx := r.Context()
	collectionID, err := id.ParseCollectionID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	c, err := fn(ctx, collectionID)
	if err != nil {
		httputil.WriteServiceError(ctx, w, h.logger, op, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, c)
}
