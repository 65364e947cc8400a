// (c) Copyright 2021 Hewlett Packard Enterprise Development LP

// Package httpapi exposes a local control/status surface over the
// discovery core: GET for current props, POST to enable/disable
// methods, poke a discovery pass, or push a parameter override. It
// stands in for the external ioctl/door-daemon surface the discovery
// core itself never implements, the same way the teacher's chapi2
// package fronts its host-local drivers with a gorilla/mux router
// instead of a raw socket protocol.
package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/hpe-storage/iscsid/discovery"
	log "github.com/hpe-storage/iscsid/logger"
	"github.com/hpe-storage/iscsid/model"
	"github.com/hpe-storage/iscsid/util"
)

// Response is the envelope every handler writes, mirroring the
// teacher's chapi2/handler Response{Data, Err} shape.
type Response struct {
	Data interface{} `json:"data,omitempty"`
	Err  string      `json:"error,omitempty"`
}

// Server wires a Coordinator to the HTTP control surface.
type Server struct {
	coord *discovery.Coordinator
}

// NewRouter builds the mux.Router for coord's control surface.
func NewRouter(coord *discovery.Coordinator) *mux.Router {
	s := &Server{coord: coord}
	routes := []util.Route{
		{Name: "DiscoveryProps", Method: http.MethodGet, Pattern: "/api/v1/discovery/props", HandlerFunc: s.getProps},
		{Name: "DiscoveryEnable", Method: http.MethodPost, Pattern: "/api/v1/discovery/enable", HandlerFunc: s.postEnable},
		{Name: "DiscoveryDisable", Method: http.MethodPost, Pattern: "/api/v1/discovery/disable", HandlerFunc: s.postDisable},
		{Name: "DiscoveryPoke", Method: http.MethodPost, Pattern: "/api/v1/discovery/poke", HandlerFunc: s.postPoke},
		{Name: "DiscoverySessions", Method: http.MethodGet, Pattern: "/api/v1/discovery/sessions", HandlerFunc: s.getSessions},
		{Name: "DiscoveryParam", Method: http.MethodPost, Pattern: "/api/v1/discovery/targets/{target}/params", HandlerFunc: s.postParamOverride},
	}

	router := mux.NewRouter().StrictSlash(true)
	util.InitializeRouter(router, routes)
	return router
}

type methodsRequest struct {
	Methods model.DiscoveryMethod `json:"methods"`
	// Poke requests Enable run the newly-enabled methods immediately
	// rather than waiting for the next poke; ignored by postDisable.
	Poke bool `json:"poke,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Errorf("httpapi: failed to encode response: %s", err.Error())
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, Response{Err: err.Error()})
}

func (s *Server) getProps(w http.ResponseWriter, r *http.Request) {
	init, status, err := s.coord.Props(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, Response{Data: struct {
		Initiator model.Initiator       `json:"initiator"`
		Discovery model.DiscoveryStatus `json:"discovery"`
	}{scrubInitiator(init), status}})
}

// scrubInitiator masks init's CHAP credentials before it crosses the
// HTTP boundary, the same redaction logger.MapScrubber applies to a
// log line carrying sensitive fields.
func scrubInitiator(init model.Initiator) model.Initiator {
	scrubbed := log.MapScrubber(map[string]string{
		"chap_user":   init.ChapUser,
		"chap_secret": init.ChapSecret,
	})
	init.ChapUser = scrubbed["chap_user"]
	init.ChapSecret = scrubbed["chap_secret"]
	return init
}

func (s *Server) postEnable(w http.ResponseWriter, r *http.Request) {
	var req methodsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.coord.Enable(r.Context(), req.Methods, req.Poke); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, Response{})
}

func (s *Server) postDisable(w http.ResponseWriter, r *http.Request) {
	var req methodsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.coord.Disable(r.Context(), req.Methods); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, Response{})
}

func (s *Server) postPoke(w http.ResponseWriter, r *http.Request) {
	var req methodsRequest
	// A poke with no body pokes every method, mirroring
	// iscsid_poke_discovery being called with iSCSIDiscoveryMethodUnknown.
	_ = json.NewDecoder(r.Body).Decode(&req)
	if err := s.coord.Poke(r.Context(), req.Methods); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, Response{})
}

func (s *Server) getSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Response{Data: s.coord.Registry().Snapshot()})
}

func (s *Server) postParamOverride(w http.ResponseWriter, r *http.Request) {
	target := mux.Vars(r)["target"]
	var o model.ParamOverride
	if err := json.NewDecoder(r.Body).Decode(&o); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.coord.SetParamOverride(r.Context(), target, o); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, Response{})
}
