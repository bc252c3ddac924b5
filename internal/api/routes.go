package api

import (
	"net/http"

	"github.com/gorilla/mux"
)

func RegisterRoutes(r *mux.Router, svc Provisioner) {
	h := NewHandler(svc)
	sub := r.PathPrefix("/api").Subrouter()
	sub.HandleFunc("/login", h.Login).Methods(http.MethodPost)
	sub.HandleFunc("/request_vpn", h.RequestVPN).Methods(http.MethodPost)
	sub.HandleFunc("/peers", h.Peers).Methods(http.MethodGet)
	sub.HandleFunc("/revoke_vpn/{peer_id}", h.RevokeVPN).Methods(http.MethodDelete)
	sub.HandleFunc("/server_info", h.ServerInfo).Methods(http.MethodGet)
}
