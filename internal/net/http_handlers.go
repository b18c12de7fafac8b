// Package net exposes the operator and client HTTP surface of the ability
// engine: health, diagnostics, catalog listing, command intake and reloads.
package net

import (
	"encoding/json"
	"errors"
	"io"
	nethttp "net/http"
	"net/http/pprof"
	"strings"
	"time"

	"github.com/google/uuid"

	"ability-engine/internal/ability"
	"ability-engine/internal/actors"
	"ability-engine/internal/element"
	"ability-engine/internal/geom"
	"ability-engine/internal/sim"
	"ability-engine/internal/telemetry"
)

// HTTPHandlerConfig wires the handler to the runtime.
type HTTPHandlerConfig struct {
	Engine   *sim.Engine
	Roster   *actors.Roster
	TickRate int
	// Metrics returns the counters shown in diagnostics.
	Metrics        func() map[string]uint64
	StreamInterval time.Duration
	Logger         telemetry.Logger
	Clock          func() time.Time
	EnablePprof    bool
}

// Diagnostics is the payload of /diagnostics and of each stream frame.
type Diagnostics struct {
	Status      string                     `json:"status"`
	ServerTime  int64                      `json:"serverTime"`
	Tick        uint64                     `json:"tick"`
	TickRate    int                        `json:"tickRate"`
	Definitions int                        `json:"definitions"`
	Pairs       int                        `json:"collisionPairs"`
	Pending     int                        `json:"pendingCommands"`
	Abilities   ability.Stats              `json:"abilities"`
	Players     []actors.DiagnosticsPlayer `json:"players"`
	Telemetry   map[string]uint64          `json:"telemetry,omitempty"`
}

type definitionView struct {
	Name         string               `json:"name"`
	Type         ability.Type         `json:"type"`
	Element      string               `json:"element"`
	Caps         ability.Capabilities `json:"capabilities"`
	Description  string               `json:"description,omitempty"`
	Instructions string               `json:"instructions,omitempty"`
	Hidden       bool                 `json:"hidden,omitempty"`
	Author       string               `json:"author,omitempty"`
	Version      string               `json:"version,omitempty"`
}

type joinRequest struct {
	ID       string   `json:"id,omitempty"`
	Name     string   `json:"name"`
	Elements []string `json:"elements"`
}

type joinResponse struct {
	ID       string `json:"id"`
	Passives int    `json:"passives"`
}

type commandRequest struct {
	ActorID   string    `json:"actorId"`
	Type      string    `json:"type"`
	Ability   string    `json:"ability"`
	Origin    geom.Vec3 `json:"origin"`
	Direction geom.Vec3 `json:"direction"`
	SentAt    int64     `json:"sentAt"`
}

type commandResponse struct {
	Status string `json:"status"`
	Tick   uint64 `json:"tick"`
	Reason string `json:"reason,omitempty"`
}

type handler struct {
	engine   *sim.Engine
	roster   *actors.Roster
	tickRate int
	metrics  func() map[string]uint64
	interval time.Duration
	logger   telemetry.Logger
	now      func() time.Time
}

// NewHTTPHandler builds the mux.
func NewHTTPHandler(cfg HTTPHandlerConfig) nethttp.Handler {
	h := &handler{
		engine:   cfg.Engine,
		roster:   cfg.Roster,
		tickRate: cfg.TickRate,
		metrics:  cfg.Metrics,
		interval: cfg.StreamInterval,
		logger:   cfg.Logger,
		now:      cfg.Clock,
	}
	if h.logger == nil {
		h.logger = telemetry.NopLogger()
	}
	if h.now == nil {
		h.now = time.Now
	}
	if h.interval <= 0 {
		h.interval = time.Second
	}

	mux := nethttp.NewServeMux()

	mux.HandleFunc("/health", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("/diagnostics", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		writeJSON(w, nethttp.StatusOK, h.diagnostics())
	})

	mux.HandleFunc("/debug/abilities", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte(h.engine.DebugString()))
	})

	mux.HandleFunc("/abilities", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodGet {
			httpError(w, "method not allowed", nethttp.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, nethttp.StatusOK, h.definitions(r.URL.Query().Get("element"), r.URL.Query().Get("all") == "1"))
	})

	mux.HandleFunc("/reload", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodPost {
			httpError(w, "method not allowed", nethttp.StatusMethodNotAllowed)
			return
		}
		report := h.engine.Reload()
		h.logger.Printf("[net] reload requested from %s", r.RemoteAddr)
		writeJSON(w, nethttp.StatusOK, report)
	})

	mux.HandleFunc("/join", h.handleJoin)
	mux.HandleFunc("/commands", h.handleCommand)
	mux.HandleFunc("/ws/diagnostics", h.handleStream)

	if cfg.EnablePprof {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}

	return mux
}

func (h *handler) diagnostics() Diagnostics {
	payload := Diagnostics{
		Status:      "ok",
		ServerTime:  h.now().UnixMilli(),
		Tick:        h.engine.CurrentTick(),
		TickRate:    h.tickRate,
		Definitions: h.engine.Catalog().Len(),
		Pairs:       len(h.engine.Collisions().Pairs()),
		Pending:     h.engine.Pending(),
		Abilities:   h.engine.Registry().Stats(),
	}
	if h.roster != nil {
		payload.Players = h.roster.DiagnosticsSnapshot()
	}
	if h.metrics != nil {
		payload.Telemetry = h.metrics()
	}
	return payload
}

func (h *handler) definitions(elementName string, includeHidden bool) []definitionView {
	defs := h.engine.Catalog().All()
	if elementName != "" {
		el, ok := element.ByName(elementName)
		if !ok {
			return []definitionView{}
		}
		defs = h.engine.Catalog().ByElement(el)
	}
	out := make([]definitionView, 0, len(defs))
	for _, def := range defs {
		if def.Hidden && !includeHidden {
			continue
		}
		view := definitionView{
			Name:         def.Name,
			Type:         def.Type,
			Element:      def.Element.Name(),
			Caps:         def.Caps,
			Description:  def.Description,
			Instructions: def.Instructions,
			Hidden:       def.Hidden,
		}
		if def.Addon != nil {
			view.Author = def.Addon.Author
			view.Version = def.Addon.Version
		}
		out = append(out, view)
	}
	return out
}

func (h *handler) handleJoin(w nethttp.ResponseWriter, r *nethttp.Request) {
	if r.Method != nethttp.MethodPost {
		httpError(w, "method not allowed", nethttp.StatusMethodNotAllowed)
		return
	}
	if h.roster == nil {
		httpError(w, "roster unavailable", nethttp.StatusServiceUnavailable)
		return
	}
	var req joinRequest
	if err := decodeBody(r, &req); err != nil {
		httpError(w, "invalid payload", nethttp.StatusBadRequest)
		return
	}
	id := uuid.Nil
	if req.ID != "" {
		parsed, err := uuid.Parse(req.ID)
		if err != nil {
			httpError(w, "invalid id", nethttp.StatusBadRequest)
			return
		}
		id = parsed
	}
	elements := make([]*element.Element, 0, len(req.Elements))
	for _, name := range req.Elements {
		el, ok := element.ByName(name)
		if !ok {
			httpError(w, "unknown element "+name, nethttp.StatusBadRequest)
			return
		}
		elements = append(elements, el)
	}
	player := h.roster.Join(id, strings.TrimSpace(req.Name), elements...)
	passives := h.engine.RegisterPassives(player.ID())
	writeJSON(w, nethttp.StatusOK, joinResponse{ID: player.ID().String(), Passives: passives})
}

var errUnknownCommand = errors.New("unknown command type")

func (h *handler) handleCommand(w nethttp.ResponseWriter, r *nethttp.Request) {
	if r.Method != nethttp.MethodPost {
		httpError(w, "method not allowed", nethttp.StatusMethodNotAllowed)
		return
	}
	var req commandRequest
	if err := decodeBody(r, &req); err != nil {
		httpError(w, "invalid payload", nethttp.StatusBadRequest)
		return
	}
	actorID, err := uuid.Parse(req.ActorID)
	if err != nil {
		httpError(w, "invalid actorId", nethttp.StatusBadRequest)
		return
	}
	cmd, err := h.toCommand(actorID, req)
	if err != nil {
		httpError(w, err.Error(), nethttp.StatusBadRequest)
		return
	}
	ok, reason := h.engine.Enqueue(cmd)
	if !ok {
		writeJSON(w, nethttp.StatusTooManyRequests, commandResponse{Status: "rejected", Tick: h.engine.CurrentTick(), Reason: reason})
		return
	}
	writeJSON(w, nethttp.StatusAccepted, commandResponse{Status: "queued", Tick: cmd.OriginTick})
}

func (h *handler) toCommand(actorID uuid.UUID, req commandRequest) (sim.Command, error) {
	now := h.now()
	cmd := sim.Command{
		OriginTick: h.engine.CurrentTick(),
		ActorID:    actorID,
		Type:       sim.CommandType(req.Type),
		IssuedAt:   now,
	}
	switch cmd.Type {
	case sim.CommandActivate:
		if req.Ability == "" {
			return sim.Command{}, errors.New("ability is required")
		}
		cmd.Activate = &sim.ActivateCommand{Ability: req.Ability, Origin: req.Origin, Direction: req.Direction}
	case sim.CommandCancel:
		if req.Ability == "" {
			return sim.Command{}, errors.New("ability is required")
		}
		cmd.Cancel = &sim.CancelCommand{Ability: req.Ability}
	case sim.CommandHeartbeat:
		cmd.Heartbeat = &sim.HeartbeatCommand{ReceivedAt: now, ClientSent: req.SentAt}
	default:
		return sim.Command{}, errUnknownCommand
	}
	return cmd, nil
}

func decodeBody(r *nethttp.Request, out any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(out); err != nil && err != io.EOF {
		return err
	}
	return nil
}

func writeJSON(w nethttp.ResponseWriter, status int, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		httpError(w, "failed to encode", nethttp.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}

func httpError(w nethttp.ResponseWriter, msg string, code int) {
	nethttp.Error(w, msg, code)
}
