package server

import (
	"context"
	"net"
	"net/http"
	"net/netip"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

const (
	rateSweepInterval = 5 * time.Minute
	rateIdleTTL       = 10 * time.Minute
)

// window 固定时间窗口计数
type window struct {
	start time.Time
	count int
}

// hit 记一次并返回窗口内的次数，窗口过期时从头计数
func (w *window) hit(now time.Time, span time.Duration) int {
	if now.Sub(w.start) >= span {
		w.start = now
		w.count = 0
	}
	w.count++
	return w.count
}

// RateLimiter 按 IP 限制连接和创建房间的频率，超限后封禁一段时间
type RateLimiter struct {
	mu        sync.Mutex
	clients   map[string]*ipRecord
	perSecond int
	perMinute int
	ban       time.Duration
}

type ipRecord struct {
	second      window
	minute      window
	bannedUntil time.Time
	lastSeen    time.Time
}

// NewRateLimiter 创建速率限制器，过期记录由 Run 清理
func NewRateLimiter(perSecond, perMinute int, ban time.Duration) *RateLimiter {
	return &RateLimiter{
		clients:   make(map[string]*ipRecord),
		perSecond: perSecond,
		perMinute: perMinute,
		ban:       ban,
	}
}

// Allow 记一次请求，返回是否放行
func (rl *RateLimiter) Allow(ip string) bool {
	return rl.allowAt(ip, time.Now())
}

func (rl *RateLimiter) allowAt(ip string, now time.Time) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rec, ok := rl.clients[ip]
	if !ok {
		rec = &ipRecord{}
		rl.clients[ip] = rec
	}
	rec.lastSeen = now

	if now.Before(rec.bannedUntil) {
		return false
	}
	perSecond := rec.second.hit(now, time.Second)
	perMinute := rec.minute.hit(now, time.Minute)
	if perSecond > rl.perSecond || perMinute > rl.perMinute {
		rec.bannedUntil = now.Add(rl.ban)
		return false
	}
	return true
}

// Run 定期清理过期记录，直到 ctx 取消
func (rl *RateLimiter) Run(ctx context.Context) {
	ticker := time.NewTicker(rateSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			rl.sweep(now)
		}
	}
}

// sweep 删除长时间没有请求且未被封禁的记录
func (rl *RateLimiter) sweep(now time.Time) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	removed := 0
	for ip, rec := range rl.clients {
		if now.Sub(rec.lastSeen) > rateIdleTTL && !now.Before(rec.bannedUntil) {
			delete(rl.clients, ip)
			removed++
		}
	}
	return removed
}

// OriginChecker WebSocket 来源验证
type OriginChecker struct {
	allowed map[string]struct{}
	any     bool
}

// NewOriginChecker "*" 表示允许所有来源
func NewOriginChecker(origins []string) *OriginChecker {
	oc := &OriginChecker{allowed: make(map[string]struct{}, len(origins))}
	for _, o := range origins {
		if o == "*" {
			oc.any = true
		}
		oc.allowed[strings.ToLower(o)] = struct{}{}
	}
	return oc
}

// Check 没有 Origin 头的请求（本地客户端、同源）直接放行
func (oc *OriginChecker) Check(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if oc.any || origin == "" {
		return true
	}
	_, ok := oc.allowed[strings.ToLower(origin)]
	return ok
}

// IPFilter 黑名单与可信代理
type IPFilter struct {
	blocked []netip.Prefix
	trusted []netip.Prefix
}

// NewIPFilter 创建 IP 过滤器
func NewIPFilter(blocked, trustedProxies []netip.Prefix) *IPFilter {
	return &IPFilter{blocked: blocked, trusted: trustedProxies}
}

// IsAllowed 不在黑名单中即放行，无法解析的地址同样放行
func (f *IPFilter) IsAllowed(ip string) bool {
	return !matchAny(f.blocked, ip)
}

// IsTrustedProxy 对端是否是可信的反向代理
func (f *IPFilter) IsTrustedProxy(ip string) bool {
	return matchAny(f.trusted, ip)
}

// RealIP 只有对端是可信代理时才用 X-Forwarded-For / X-Real-IP 改写 RemoteAddr
func (f *IPFilter) RealIP(next http.Handler) http.Handler {
	proxied := middleware.RealIP(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if f.IsTrustedProxy(GetClientIP(r)) {
			proxied.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func matchAny(prefixes []netip.Prefix, ip string) bool {
	if len(prefixes) == 0 {
		return false
	}
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range prefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// GetClientIP 客户端 IP，取自（经 RealIP 改写后的）RemoteAddr
func GetClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// MessageRateLimiter 已连接客户端的消息速率限制
type MessageRateLimiter struct {
	mu        sync.Mutex
	clients   map[string]*messageRecord
	perSecond int
	warnAbove int
}

type messageRecord struct {
	win     window
	strikes int
}

// NewMessageRateLimiter 超过一半额度开始警告
func NewMessageRateLimiter(perSecond int) *MessageRateLimiter {
	return &MessageRateLimiter{
		clients:   make(map[string]*messageRecord),
		perSecond: perSecond,
		warnAbove: perSecond / 2,
	}
}

// AllowMessage 记一条消息，warning 表示接近或超过限制
func (ml *MessageRateLimiter) AllowMessage(clientID string) (allowed, warning bool) {
	ml.mu.Lock()
	defer ml.mu.Unlock()

	rec, ok := ml.clients[clientID]
	if !ok {
		rec = &messageRecord{}
		ml.clients[clientID] = rec
	}

	n := rec.win.hit(time.Now(), time.Second)
	switch {
	case n > ml.perSecond:
		rec.strikes++
		return false, true
	case n > ml.warnAbove:
		return true, true
	default:
		return true, false
	}
}

// Strikes 被拒绝的消息数
func (ml *MessageRateLimiter) Strikes(clientID string) int {
	ml.mu.Lock()
	defer ml.mu.Unlock()
	if rec, ok := ml.clients[clientID]; ok {
		return rec.strikes
	}
	return 0
}

// RemoveClient 连接断开时移除记录
func (ml *MessageRateLimiter) RemoveClient(clientID string) {
	ml.mu.Lock()
	defer ml.mu.Unlock()
	delete(ml.clients, clientID)
}
