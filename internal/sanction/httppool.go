package sanction

import (
	"crypto/tls"
	"sync/atomic"
	"time"

	"github.com/valyala/fasthttp"
)

// httpPool round-robins sanction requests across a small set of
// fasthttp clients so a stalled connection never serializes the
// chain.
type httpPool struct {
	clients []*fasthttp.Client
	next    uint32
}

func newHTTPPool(size int) *httpPool {
	if size <= 0 {
		size = 4
	}

	tlsConfig := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		ClientSessionCache: tls.NewLRUClientSessionCache(64),
	}

	clients := make([]*fasthttp.Client, size)
	for i := range clients {
		clients[i] = &fasthttp.Client{
			MaxConnsPerHost:     256,
			MaxIdleConnDuration: 90 * time.Second,
			ReadTimeout:         2 * time.Second,
			WriteTimeout:        2 * time.Second,
			TLSConfig:           tlsConfig,
		}
	}
	return &httpPool{clients: clients}
}

func (p *httpPool) get() *fasthttp.Client {
	n := atomic.AddUint32(&p.next, 1)
	return p.clients[n%uint32(len(p.clients))]
}
