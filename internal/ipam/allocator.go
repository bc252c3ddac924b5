// Package ipam выдаёт клиентские адреса из IPv4-подсети VPN.
package ipam

import (
	"encoding/binary"
	"net/netip"
)

// DefaultOffset — первые 100 адресов подсети под статику (шлюз, серверы).
const DefaultOffset = 100

// Allocate возвращает наименьший адрес в [network+100, broadcast-1], для которого
// taken == false. Второе значение false — диапазон исчерпан или подсеть
// слишком мала (меньше 102 адресов), это не паника, а отказ по ёмкости.
func Allocate(subnet netip.Prefix, taken func(netip.Addr) bool) (netip.Addr, bool) {
	if !subnet.IsValid() || !subnet.Addr().Is4() {
		return netip.Addr{}, false
	}
	subnet = subnet.Masked()

	// uint64, чтобы /0 и /32 не переполнялись
	size := uint64(1) << (32 - subnet.Bits())
	if size < DefaultOffset+2 {
		return netip.Addr{}, false
	}

	base := uint64(addrToUint32(subnet.Addr()))
	for i := uint64(DefaultOffset); i <= size-2; i++ {
		candidate := uint32ToAddr(uint32(base + i))
		if taken == nil || !taken(candidate) {
			return candidate, true
		}
	}
	return netip.Addr{}, false
}

// AllocateFrom — Allocate по готовому множеству занятых адресов.
func AllocateFrom(subnet netip.Prefix, allocated map[netip.Addr]struct{}) (netip.Addr, bool) {
	return Allocate(subnet, func(a netip.Addr) bool {
		_, ok := allocated[a]
		return ok
	})
}

// Capacity — сколько адресов вообще может выдать Allocate в этой подсети.
func Capacity(subnet netip.Prefix) uint64 {
	if !subnet.IsValid() || !subnet.Addr().Is4() {
		return 0
	}
	size := uint64(1) << (32 - subnet.Bits())
	if size < DefaultOffset+2 {
		return 0
	}
	return size - 1 - DefaultOffset
}

func addrToUint32(a netip.Addr) uint32 {
	b := a.As4()
	return binary.BigEndian.Uint32(b[:])
}

func uint32ToAddr(n uint32) netip.Addr {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], n)
	return netip.AddrFrom4(b)
}
