package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"vpnportal/internal/logs"
	"vpnportal/internal/middleware"
	"vpnportal/internal/models"
	"vpnportal/internal/provision"
)

// Provisioner — контракт сервисного слоя, который нужен обработчикам.
type Provisioner interface {
	Authenticate(username, password string) error
	Issue(ctx context.Context, req provision.IssueRequest) (*provision.Issued, error)
	Revoke(ctx context.Context, id string) error
	List() []models.Peer
	ServerInfo() provision.ServerInfo
}

type Handler struct {
	svc Provisioner
}

func NewHandler(svc Provisioner) *Handler { return &Handler{svc: svc} }

/* ───── DTO ───── */

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	RealName string `json:"realName"`
}

type userDTO struct {
	Username string `json:"username"`
	RealName string `json:"realName"`
}

type loginResponse struct {
	Success bool    `json:"success"`
	User    userDTO `json:"user"`
}

type vpnRequest struct {
	Username string `json:"username"`
	RealName string `json:"realName"`
}

type vpnResponse struct {
	Success bool   `json:"success"`
	Config  string `json:"config"`
	PeerID  string `json:"peer_id"`
}

type peerDTO struct {
	ID              string `json:"id"`
	Description     string `json:"description"`
	IPAddress       string `json:"ip_address"`
	PlaceholderKeys bool   `json:"placeholder_keys,omitempty"`
}

type peersResponse struct {
	Success bool      `json:"success"`
	Peers   []peerDTO `json:"peers"`
}

type serverInfoResponse struct {
	Success        bool   `json:"success"`
	ServerEndpoint string `json:"server_endpoint"`
	RouteNetwork   string `json:"route_network"`
}

type okResponse struct {
	Success bool `json:"success"`
}

/* ───── Endpoints ───── */

// POST /api/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		models.WriteFailure(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := h.svc.Authenticate(req.Username, req.Password); err != nil {
		logs.Logger.WithField("reqid", middleware.GetRequestID(r)).Info("login rejected")
		models.WriteFailure(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	models.WriteJSON(w, http.StatusOK, loginResponse{
		Success: true,
		User:    userDTO{Username: req.Username, RealName: req.RealName},
	})
}

// POST /api/request_vpn
func (h *Handler) RequestVPN(w http.ResponseWriter, r *http.Request) {
	var req vpnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		models.WriteFailure(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	out, err := h.svc.Issue(r.Context(), provision.IssueRequest{Username: req.Username, RealName: req.RealName})
	if err != nil {
		status, msg := issueFailure(err)
		logs.Logger.WithError(err).WithField("reqid", middleware.GetRequestID(r)).Error("request_vpn failed")
		models.WriteFailure(w, status, msg)
		return
	}
	models.WriteJSON(w, http.StatusOK, vpnResponse{Success: true, Config: out.Config, PeerID: out.Peer.ID})
}

func issueFailure(err error) (int, string) {
	switch {
	case errors.Is(err, provision.ErrInvalidRequest):
		return http.StatusBadRequest, "username is required"
	case errors.Is(err, provision.ErrAllocationExhausted):
		return http.StatusInternalServerError, "Failed to allocate IP address"
	case errors.Is(err, provision.ErrUpstreamCreate):
		return http.StatusInternalServerError, "Failed to create WireGuard peer on firewall"
	case errors.Is(err, provision.ErrKeyGeneration):
		return http.StatusInternalServerError, "Failed to generate WireGuard keys"
	default:
		return http.StatusInternalServerError, "Failed to register WireGuard peer"
	}
}

// GET /api/peers
func (h *Handler) Peers(w http.ResponseWriter, _ *http.Request) {
	peers := h.svc.List()
	out := peersResponse{Success: true, Peers: make([]peerDTO, 0, len(peers))}
	for _, p := range peers {
		out.Peers = append(out.Peers, peerDTO{
			ID:              p.ID,
			Description:     p.Description,
			IPAddress:       p.Address,
			PlaceholderKeys: p.PlaceholderKeys,
		})
	}
	models.WriteJSON(w, http.StatusOK, out)
}

// DELETE /api/revoke_vpn/{peer_id}
func (h *Handler) RevokeVPN(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["peer_id"]
	if err := h.svc.Revoke(r.Context(), id); err != nil {
		logs.Logger.WithError(err).WithField("peer_id", id).Error("revoke_vpn failed")
		models.WriteFailure(w, http.StatusInternalServerError, "Failed to delete peer")
		return
	}
	models.WriteJSON(w, http.StatusOK, okResponse{Success: true})
}

// GET /api/server_info
func (h *Handler) ServerInfo(w http.ResponseWriter, _ *http.Request) {
	info := h.svc.ServerInfo()
	models.WriteJSON(w, http.StatusOK, serverInfoResponse{
		Success:        true,
		ServerEndpoint: info.Endpoint,
		RouteNetwork:   info.RouteNetwork,
	})
}
