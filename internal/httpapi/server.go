// Package httpapi exposes the satellite controller over a local HTTP
// control surface. Mutating routes map controller results to HTTP
// status codes; every response carries the result name so callers can
// distinguish rejections that share a status code.
package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/satcom-control/satcom-go/internal/version"
	"github.com/satcom-control/satcom-go/pkg/controller"
	"github.com/satcom-control/satcom-go/pkg/satellite"
)

const maxBodyBytes = 64 << 10

// Handler serves the control surface for one controller.
type Handler struct {
	c   *controller.Controller
	log zerolog.Logger
}

// NewHandler builds the chi router. reg supplies the /metrics gatherer;
// nil falls back to the default registry.
func NewHandler(c *controller.Controller, log zerolog.Logger, reg *prometheus.Registry) http.Handler {
	h := &Handler{c: c, log: log.With().Str("component", "httpapi").Logger()}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(h.requestLogger)
	r.Use(metricsMiddleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	var metricsHandler http.Handler = promhttp.Handler()
	if reg != nil {
		metricsHandler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	}
	r.Get("/metrics", metricsHandler.ServeHTTP)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/status", h.getStatus)
		r.Post("/enable", h.postEnable)
		r.Get("/supported", h.getSupported)
		r.Get("/enabled", h.getEnabled)
		r.Get("/provisioned", h.getProvisioned)
		r.Get("/capabilities", h.getCapabilities)
		r.Get("/visibility", h.getVisibility)

		r.Post("/provision", h.postProvision)
		r.Post("/deprovision", h.postDeprovision)

		r.Post("/datagrams", h.postDatagram)
		r.Post("/datagrams/poll", h.postPoll)

		r.Route("/subscriptions/{subID}", func(r chi.Router) {
			r.Get("/restrictions", h.getRestrictions)
			r.Put("/restrictions/{reason}", h.putRestriction)
			r.Delete("/restrictions/{reason}", h.deleteRestriction)
			r.Put("/carrier", h.putCarrier)
		})
	})

	return r
}

// statusResponse mirrors controller.Snapshot with JSON-friendly fields.
type statusResponse struct {
	Version      string                  `json:"version"`
	Supported    *bool                   `json:"supported"`
	Provisioned  *bool                   `json:"provisioned"`
	Enabled      *bool                   `json:"enabled"`
	DemoMode     bool                    `json:"demo_mode"`
	ModemState   string                  `json:"modem_state"`
	Capabilities *satellite.Capabilities `json:"capabilities,omitempty"`
	LastPointing *satellite.PointingInfo `json:"last_pointing,omitempty"`
}

func (h *Handler) getStatus(w http.ResponseWriter, _ *http.Request) {
	snap := h.c.Snapshot()
	writeJSON(w, http.StatusOK, statusResponse{
		Version:      version.Version,
		Supported:    snap.Supported,
		Provisioned:  snap.Provisioned,
		Enabled:      snap.Enabled,
		DemoMode:     snap.DemoMode,
		ModemState:   snap.ModemState.String(),
		Capabilities: snap.Capabilities,
		LastPointing: snap.LastPointing,
	})
}

type enableRequest struct {
	Enable bool `json:"enable"`
	Demo   bool `json:"demo"`
}

func (h *Handler) postEnable(w http.ResponseWriter, r *http.Request) {
	var req enableRequest
	if !decodeBody(w, r, &req) {
		return
	}
	result, err := h.c.RequestEnableSync(r.Context(), req.Enable, req.Demo)
	writeResult(w, result, err)
}

func (h *Handler) getSupported(w http.ResponseWriter, r *http.Request) {
	supported, result, err := h.c.IsSupportedSync(r.Context())
	writeBoolResult(w, "supported", supported, result, err)
}

func (h *Handler) getEnabled(w http.ResponseWriter, r *http.Request) {
	enabled, result, err := h.c.IsEnabledSync(r.Context())
	writeBoolResult(w, "enabled", enabled, result, err)
}

func (h *Handler) getProvisioned(w http.ResponseWriter, r *http.Request) {
	provisioned, result, err := h.c.IsProvisionedSync(r.Context())
	writeBoolResult(w, "provisioned", provisioned, result, err)
}

func (h *Handler) getCapabilities(w http.ResponseWriter, r *http.Request) {
	type answer struct {
		result satellite.Result
		caps   *satellite.Capabilities
	}
	ch := make(chan answer, 1)
	h.c.RequestCapabilities(func(result satellite.Result, caps *satellite.Capabilities) {
		ch <- answer{result, caps}
	})
	select {
	case a := <-ch:
		if a.result.IsError() {
			writeResult(w, a.result, nil)
			return
		}
		writeJSON(w, http.StatusOK, a.caps)
	case <-r.Context().Done():
		writeError(w, http.StatusGatewayTimeout, "capability query did not complete")
	}
}

type visibilityResponse struct {
	Result               string `json:"result"`
	CommunicationAllowed bool   `json:"communication_allowed"`
	NextVisibilityMillis int64  `json:"next_visibility_ms"`
}

func (h *Handler) getVisibility(w http.ResponseWriter, r *http.Request) {
	type answer struct {
		result  satellite.Result
		allowed bool
		next    time.Duration
	}
	ch := make(chan answer, 1)
	h.c.RequestCommunicationAllowed(func(result satellite.Result, allowed bool) {
		if result.IsError() {
			ch <- answer{result: result}
			return
		}
		h.c.RequestTimeForNextVisibility(func(result satellite.Result, next time.Duration) {
			ch <- answer{result: result, allowed: allowed, next: next}
		})
	})
	select {
	case a := <-ch:
		if a.result.IsError() {
			writeResult(w, a.result, nil)
			return
		}
		writeJSON(w, http.StatusOK, visibilityResponse{
			Result:               a.result.String(),
			CommunicationAllowed: a.allowed,
			NextVisibilityMillis: a.next.Milliseconds(),
		})
	case <-r.Context().Done():
		writeError(w, http.StatusGatewayTimeout, "visibility query did not complete")
	}
}

type provisionRequest struct {
	SubscriptionID int64  `json:"subscription_id"`
	Token          string `json:"token"`
	Data           []byte `json:"data,omitempty"`
}

func (h *Handler) postProvision(w http.ResponseWriter, r *http.Request) {
	var req provisionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Token == "" {
		writeError(w, http.StatusBadRequest, "token is required")
		return
	}
	result, err := h.c.ProvisionSync(r.Context(), req.SubscriptionID, req.Token, req.Data)
	writeResult(w, result, err)
}

func (h *Handler) postDeprovision(w http.ResponseWriter, r *http.Request) {
	var req provisionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Token == "" {
		writeError(w, http.StatusBadRequest, "token is required")
		return
	}
	result, err := h.c.DeprovisionSync(r.Context(), req.SubscriptionID, req.Token)
	writeResult(w, result, err)
}

type datagramRequest struct {
	Type    string `json:"type"`
	Payload []byte `json:"payload"`
}

func (h *Handler) postDatagram(w http.ResponseWriter, r *http.Request) {
	var req datagramRequest
	if !decodeBody(w, r, &req) {
		return
	}
	var dgType satellite.DatagramType
	switch strings.ToUpper(req.Type) {
	case "SOS":
		dgType = satellite.DatagramSOS
	case "LOCATION_SHARING", "":
		dgType = satellite.DatagramLocationSharing
	default:
		writeError(w, http.StatusBadRequest, "unknown datagram type")
		return
	}
	result, err := h.c.SendDatagramSync(r.Context(), dgType, satellite.Datagram{Payload: req.Payload})
	writeResult(w, result, err)
}

func (h *Handler) postPoll(w http.ResponseWriter, r *http.Request) {
	ch := make(chan satellite.Result, 1)
	h.c.PollPendingDatagrams(func(result satellite.Result) { ch <- result })
	select {
	case result := <-ch:
		writeResult(w, result, nil)
	case <-r.Context().Done():
		writeError(w, http.StatusGatewayTimeout, "poll did not complete")
	}
}

func (h *Handler) getRestrictions(w http.ResponseWriter, r *http.Request) {
	subID, ok := subscriptionID(w, r)
	if !ok {
		return
	}
	reasons := h.c.AttachRestrictions(subID)
	names := make([]string, 0, len(reasons))
	for _, reason := range reasons {
		names = append(names, reason.String())
	}
	writeJSON(w, http.StatusOK, map[string]any{"restrictions": names})
}

func (h *Handler) putRestriction(w http.ResponseWriter, r *http.Request) {
	h.changeRestriction(w, r, true)
}

func (h *Handler) deleteRestriction(w http.ResponseWriter, r *http.Request) {
	h.changeRestriction(w, r, false)
}

func (h *Handler) changeRestriction(w http.ResponseWriter, r *http.Request, add bool) {
	subID, ok := subscriptionID(w, r)
	if !ok {
		return
	}
	reason, ok := parseReason(chi.URLParam(r, "reason"))
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown restriction reason")
		return
	}
	var (
		result satellite.Result
		err    error
	)
	if add {
		result, err = h.c.AddAttachRestrictionSync(r.Context(), subID, reason)
	} else {
		result, err = h.c.RemoveAttachRestrictionSync(r.Context(), subID, reason)
	}
	writeResult(w, result, err)
}

type carrierRequest struct {
	Supported bool `json:"supported"`
}

func (h *Handler) putCarrier(w http.ResponseWriter, r *http.Request) {
	subID, ok := subscriptionID(w, r)
	if !ok {
		return
	}
	var req carrierRequest
	if !decodeBody(w, r, &req) {
		return
	}
	h.c.SetCarrierSupported(subID, req.Supported)
	writeJSON(w, http.StatusAccepted, map[string]any{"result": satellite.ResultSuccess.String()})
}

func subscriptionID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	subID, err := strconv.ParseInt(chi.URLParam(r, "subID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid subscription id")
		return 0, false
	}
	return subID, true
}

func parseReason(name string) (satellite.RestrictionReason, bool) {
	switch strings.ToUpper(name) {
	case "USER":
		return satellite.RestrictionUser, true
	case "GEOLOCATION":
		return satellite.RestrictionGeolocation, true
	case "ENTITLEMENT":
		return satellite.RestrictionEntitlement, true
	default:
		return 0, false
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, into any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(into); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

// resultStatus maps a controller result to an HTTP status code.
func resultStatus(result satellite.Result) int {
	switch result {
	case satellite.ResultSuccess:
		return http.StatusOK
	case satellite.ResultInvalidArguments:
		return http.StatusBadRequest
	case satellite.ResultNotSupported, satellite.ResultRequestNotSupported:
		return http.StatusNotImplemented
	case satellite.ResultRequestInProgress, satellite.ResultServiceProvisionInProgress, satellite.ResultInvalidState:
		return http.StatusConflict
	case satellite.ResultServiceNotProvisioned:
		return http.StatusPreconditionFailed
	default:
		return http.StatusInternalServerError
	}
}

func writeResult(w http.ResponseWriter, result satellite.Result, err error) {
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, resultStatus(result), map[string]any{"result": result.String()})
}

func writeBoolResult(w http.ResponseWriter, name string, value bool, result satellite.Result, err error) {
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	if result.IsError() {
		writeJSON(w, resultStatus(result), map[string]any{"result": result.String()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"result": result.String(), name: value})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"error": msg, "code": status})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
