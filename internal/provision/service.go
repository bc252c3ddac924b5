// Package provision выдаёт и отзывает клиентов WireGuard: ключи, адрес,
// регистрация на firewall, клиентский конфиг.
package provision

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/netip"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"vpnportal/internal/firewall"
	"vpnportal/internal/ipam"
	"vpnportal/internal/logs"
	"vpnportal/internal/middleware"
	"vpnportal/internal/models"
	"vpnportal/internal/repo"
	"vpnportal/internal/vpn/wireguard"
)

// Params — статичная часть, читается из конфига один раз.
type Params struct {
	Subnet          netip.Prefix
	RouteNetwork    string
	DNS             []string
	ServerPublicKey string
	ServerEndpoint  string
	DemoUser        string
	DemoPassword    string
}

type IssueRequest struct {
	Username string
	RealName string
}

type Issued struct {
	Peer   models.Peer
	Config string
}

type ServerInfo struct {
	Endpoint     string
	RouteNetwork string
}

type Service struct {
	store repo.PeerStore
	gw    firewall.Gateway
	keys  wireguard.Provider
	p     Params
	now   func() time.Time

	// mu делает атомарным "выбрать адрес -> занять": адрес резервируется до
	// ответа firewall и переходит в store под тем же мьютексом.
	mu       sync.Mutex
	reserved map[netip.Addr]struct{}
}

func New(store repo.PeerStore, gw firewall.Gateway, keys wireguard.Provider, p Params) *Service {
	return &Service{
		store:    store,
		gw:       gw,
		keys:     keys,
		p:        p,
		now:      time.Now,
		reserved: map[netip.Addr]struct{}{},
	}
}

// Authenticate сверяет логин/пароль с демо-учёткой из конфига.
func (s *Service) Authenticate(username, password string) error {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(s.p.DemoUser)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(s.p.DemoPassword)) == 1
	if !userOK || !passOK || s.p.DemoUser == "" {
		return ErrAuthentication
	}
	return nil
}

func (s *Service) Issue(ctx context.Context, req IssueRequest) (*Issued, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" {
		return nil, fmt.Errorf("%w: username required", ErrInvalidRequest)
	}
	log := logs.Logger.WithFields(logrus.Fields{
		"reqid":    middleware.RequestIDFrom(ctx),
		"username": username,
	})

	kp, err := s.keys.Generate(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrKeyGeneration, err)
	}
	if kp.Placeholder {
		log.Warn("issuing peer with placeholder keys")
	}

	addr, ok := s.reserve()
	if !ok {
		log.WithField("subnet", s.p.Subnet.String()).Error("address pool exhausted")
		return nil, ErrAllocationExhausted
	}
	defer s.release(addr)

	desc := BuildDescription(username, req.RealName)
	id, err := s.gw.CreatePeer(ctx, kp.PublicKey, addr.String(), desc)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpstreamCreate, err)
	}

	peer := models.Peer{
		ID:              id,
		Description:     desc,
		PublicKey:       kp.PublicKey,
		Address:         addr.String(),
		PlaceholderKeys: kp.Placeholder,
		CreatedAt:       s.now().UTC(),
	}
	if err := s.commit(peer); err != nil {
		// firewall пир уже создал, удаляем его и там
		if derr := s.gw.DeletePeer(context.WithoutCancel(ctx), id); derr != nil {
			log.WithError(derr).WithField("peer_id", id).Error("rollback of firewall peer failed")
		}
		return nil, fmt.Errorf("%w: %w", ErrRegistration, err)
	}

	log.WithFields(logrus.Fields{"peer_id": id, "address": peer.Address}).Info("peer issued")
	return &Issued{
		Peer: peer,
		Config: wireguard.RenderClientConfig(wireguard.ClientConfig{
			PrivateKey:      kp.PrivateKey,
			Address:         peer.Address,
			DNS:             s.p.DNS,
			ServerPublicKey: s.p.ServerPublicKey,
			Endpoint:        s.p.ServerEndpoint,
			AllowedIPs:      s.p.RouteNetwork,
		}),
	}, nil
}

// Revoke удаляет пир на firewall, затем локально. Неизвестный локально id
// при успешном удалении на firewall — не ошибка.
func (s *Service) Revoke(ctx context.Context, id string) error {
	if err := s.gw.DeletePeer(ctx, id); err != nil {
		return fmt.Errorf("%w: %w", ErrUpstreamDelete, err)
	}
	log := logs.Logger.WithFields(logrus.Fields{"reqid": middleware.RequestIDFrom(ctx), "peer_id": id})
	if s.store.Remove(id) {
		log.Info("peer revoked")
	} else {
		log.Debug("peer revoked upstream, not tracked locally")
	}
	return nil
}

func (s *Service) List() []models.Peer { return s.store.List() }

func (s *Service) ServerInfo() ServerInfo {
	return ServerInfo{Endpoint: s.p.ServerEndpoint, RouteNetwork: s.p.RouteNetwork}
}

func (s *Service) reserve() (netip.Addr, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	addr, ok := ipam.Allocate(s.p.Subnet, func(a netip.Addr) bool {
		if _, r := s.reserved[a]; r {
			return true
		}
		return s.store.ContainsAddress(a.String())
	})
	if ok {
		s.reserved[addr] = struct{}{}
	}
	return addr, ok
}

func (s *Service) release(addr netip.Addr) {
	s.mu.Lock()
	delete(s.reserved, addr)
	s.mu.Unlock()
}

func (s *Service) commit(p models.Peer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.Put(p); err != nil {
		return err
	}
	a, _ := netip.ParseAddr(p.Address)
	delete(s.reserved, a)
	return nil
}
