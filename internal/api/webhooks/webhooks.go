package webhooks

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/BearBump/OrderSync/internal/broker/messages"
	"github.com/BearBump/OrderSync/internal/models"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const maxBody = 1 << 20

type Publisher interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

// API accepts webhook deliveries for known stores and queues them as envelopes.
type API struct {
	stores   map[string]struct{}
	pub      Publisher
	topic    string
	validate *validator.Validate
	now      func() time.Time
}

func New(storeIDs []string, pub Publisher, topic string) *API {
	stores := make(map[string]struct{}, len(storeIDs))
	for _, id := range storeIDs {
		stores[id] = struct{}{}
	}
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &API{stores: stores, pub: pub, topic: topic, validate: v, now: time.Now}
}

// Routes mounts under /webhooks.
func (a *API) Routes() chi.Router {
	r := chi.NewRouter()
	r.Route("/{storeID}", func(r chi.Router) {
		r.Post("/orders/created", a.handle(messages.TypeOrderCreated, a.checkOrder))
		r.Post("/orders/updated", a.handle(messages.TypeOrderUpdated, a.checkOrder))
		r.Post("/assignments", a.handle(messages.TypeAssignmentChanged, a.checkAssignment))
		r.Post("/issues/moved", a.handle(messages.TypeIssueMoved, a.checkIssueMoved))
	})
	return r
}

type check func(body []byte) error

func (a *API) handle(typ string, ok check) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		storeID := chi.URLParam(r, "storeID")
		if _, known := a.stores[storeID]; !known {
			writeError(w, http.StatusNotFound, "unknown store")
			return
		}

		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBody))
		if err != nil {
			writeError(w, http.StatusBadRequest, "read body: "+err.Error())
			return
		}
		if err := ok(body); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		env := messages.NewEnvelope(typ, storeID, body, a.now())
		b, err := env.Marshal()
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if err := a.pub.Publish(r.Context(), a.topic, env.Key(), b); err != nil {
			log.Error().Err(err).Str("store", storeID).Str("type", typ).Msg("publish webhook")
			writeError(w, http.StatusServiceUnavailable, "queue unavailable")
			return
		}

		log.Info().Str("store", storeID).Str("type", typ).Str("id", env.ID).Msg("webhook queued")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		_ = json.NewEncoder(w).Encode(map[string]string{"id": env.ID})
	}
}

func (a *API) checkOrder(body []byte) error {
	var o models.Order
	return a.decodeValid(body, &o)
}

func (a *API) checkAssignment(body []byte) error {
	var as models.Assignment
	return a.decodeValid(body, &as)
}

type issueMovedBody struct {
	Issue *struct {
		ID string `json:"id" validate:"required"`
	} `json:"issue" validate:"required"`
	Changelog *struct {
		ID string `json:"id"`
	} `json:"changelog" validate:"required"`
}

func (a *API) checkIssueMoved(body []byte) error {
	var b issueMovedBody
	return a.decodeValid(body, &b)
}

func (a *API) decodeValid(body []byte, v any) error {
	if err := json.Unmarshal(body, v); err != nil {
		return errors.Wrap(models.ErrValidation, "malformed json")
	}
	if err := a.validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fe.Namespace()+" "+fe.Tag())
			}
			return errors.Wrap(models.ErrValidation, strings.Join(fields, ", "))
		}
		return errors.Wrap(models.ErrValidation, err.Error())
	}
	return nil
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
