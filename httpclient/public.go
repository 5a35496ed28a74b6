package httpclient

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"syscall"
	"time"
)

// ErrBlockedAddress 는 공개 클라이언트가 내부망 주소로 연결하려 할 때 반환된다.
var ErrBlockedAddress = errors.New("httpclient: destination address is not public")

// carrier-grade NAT 대역은 IsPrivate 에 포함되지 않는다.
var sharedAddressSpace = netip.MustParsePrefix("100.64.0.0/10")

// NewPublic 은 사용자가 입력한 URL 을 가져오기 위한 http.Client 를 생성한다.
// 이름 해석이 끝난 뒤 실제로 연결하는 IP 를 검사하므로 리다이렉트도 같은 규칙을 따른다.
func NewPublic(cfg Config) *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
		Control:   publicOnly,
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	// 프록시를 거치면 실제 목적지를 검사할 수 없다.
	transport.Proxy = nil
	transport.DialContext = dialer.DialContext

	return &http.Client{
		Timeout:   cfg.Timeout,
		Transport: &loggingRoundTripper{inner: transport},
	}
}

func publicOnly(network, address string, _ syscall.RawConn) error {
	ap, err := netip.ParseAddrPort(address)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrBlockedAddress, address)
	}
	if !IsPublicAddr(ap.Addr()) {
		return fmt.Errorf("%w: %s", ErrBlockedAddress, ap.Addr())
	}
	return nil
}

// IsPublicAddr 는 루프백, 사설, 링크 로컬, 미지정, 멀티캐스트 주소가 아니면 true 를 반환한다.
func IsPublicAddr(addr netip.Addr) bool {
	addr = addr.Unmap()
	switch {
	case !addr.IsValid(),
		addr.IsLoopback(),
		addr.IsPrivate(),
		addr.IsLinkLocalUnicast(),
		addr.IsLinkLocalMulticast(),
		addr.IsInterfaceLocalMulticast(),
		addr.IsMulticast(),
		addr.IsUnspecified(),
		sharedAddressSpace.Contains(addr):
		return false
	}
	return true
}
