package repo

import (
	"errors"
	"sort"
	"sync"

	"vpnportal/internal/models"
)

var (
	ErrPeerExists   = errors.New("peer already registered")
	ErrAddressInUse = errors.New("address already assigned to another peer")
)

// PeerStore — реестр выданных пиров. Живёт столько же, сколько процесс.
type PeerStore interface {
	Put(p models.Peer) error
	Remove(id string) bool
	Get(id string) (models.Peer, bool)
	List() []models.Peer
	ContainsAddress(addr string) bool
}

type MemPeerStore struct {
	mu     sync.RWMutex
	byID   map[string]models.Peer
	byAddr map[string]string // адрес -> id
}

func NewMemPeerStore() *MemPeerStore {
	return &MemPeerStore{byID: map[string]models.Peer{}, byAddr: map[string]string{}}
}

func (s *MemPeerStore) Put(p models.Peer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[p.ID]; ok {
		return ErrPeerExists
	}
	if owner, ok := s.byAddr[p.Address]; ok && owner != p.ID {
		return ErrAddressInUse
	}
	s.byID[p.ID] = p
	s.byAddr[p.Address] = p.ID
	return nil
}

// Remove возвращает false, если такого пира не было (не ошибка).
func (s *MemPeerStore) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.byID[id]
	if !ok {
		return false
	}
	delete(s.byID, id)
	delete(s.byAddr, p.Address)
	return true
}

func (s *MemPeerStore) Get(id string) (models.Peer, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.byID[id]
	return p, ok
}

// List отдаёт копию, отсортированную по id.
func (s *MemPeerStore) List() []models.Peer {
	s.mu.RLock()
	out := make([]models.Peer, 0, len(s.byID))
	for _, p := range s.byID {
		out = append(out, p)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *MemPeerStore) ContainsAddress(addr string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byAddr[addr]
	return ok
}
