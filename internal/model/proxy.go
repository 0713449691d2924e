// Package model defines the core data structures for clashui.
package model

import (
	"time"
)

// Proxy type tags reported by the daemon.
const (
	TypeSelector     = "Selector"
	TypeURLTest      = "URLTest"
	TypeFallback     = "Fallback"
	TypeLoadBalance  = "LoadBalance"
	TypeRelay        = "Relay"
	TypeDirect       = "Direct"
	TypeReject       = "Reject"
	TypePass         = "Pass"
	TypeCompatible   = "Compatible"
	TypeShadowsocks  = "Shadowsocks"
	TypeShadowsocksR = "ShadowsocksR"
	TypeSnell        = "Snell"
	TypeSocks5       = "Socks5"
	TypeHTTP         = "Http"
	TypeVmess        = "Vmess"
	TypeVless        = "Vless"
	TypeTrojan       = "Trojan"
	TypeHysteria     = "Hysteria"
	TypeHysteria2    = "Hysteria2"
	TypeWireGuard    = "WireGuard"
	TypeTuic         = "Tuic"
)

// KnownTypes lists the recognized proxy type tags.
var KnownTypes = []string{
	TypeSelector, TypeURLTest, TypeFallback, TypeLoadBalance, TypeRelay,
	TypeDirect, TypeReject, TypePass, TypeCompatible,
	TypeShadowsocks, TypeShadowsocksR, TypeSnell, TypeSocks5, TypeHTTP,
	TypeVmess, TypeVless, TypeTrojan, TypeHysteria, TypeHysteria2,
	TypeWireGuard, TypeTuic,
}

// IsKnownType reports whether t is one of the recognized type tags.
func IsKnownType(t string) bool {
	for _, k := range KnownTypes {
		if k == t {
			return true
		}
	}
	return false
}

// ProxyRecord is a single proxy as reported by GET /proxies.
// Now and All are only populated for group types such as Selector.
type ProxyRecord struct {
	Name    string        `json:"name" yaml:"name"`
	Type    string        `json:"type" yaml:"type"`
	Alive   bool          `json:"alive" yaml:"alive"`
	UDP     bool          `json:"udp,omitempty" yaml:"udp,omitempty"`
	History []DelaySample `json:"history" yaml:"history"`
	Now     string        `json:"now,omitempty" yaml:"now,omitempty"`
	All     []string      `json:"all,omitempty" yaml:"all,omitempty"`
}

// IsSelector reports whether the record is a Selector group.
func (p *ProxyRecord) IsSelector() bool {
	return p.Type == TypeSelector
}

// LatestSample returns the most recent health-check sample.
func (p *ProxyRecord) LatestSample() (DelaySample, bool) {
	if len(p.History) == 0 {
		return DelaySample{}, false
	}
	return p.History[len(p.History)-1], true
}

// DelaySample is one health-check result. Every field is optional.
type DelaySample struct {
	Time      string `json:"time,omitempty" yaml:"time,omitempty"`
	Delay     *int   `json:"delay,omitempty" yaml:"delay,omitempty"`
	MeanDelay *int   `json:"meanDelay,omitempty" yaml:"mean_delay,omitempty"`
}

// HasDelays reports whether both delay and mean delay are present.
func (d DelaySample) HasDelays() bool {
	return d.Delay != nil && d.MeanDelay != nil
}

// CheckedAt parses the sample time. Missing or malformed times report false.
func (d DelaySample) CheckedAt() (time.Time, bool) {
	if d.Time == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, d.Time)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// SelectorSummary is the printable view of one selector. FetchedAt is when
// the snapshot it was built from was taken; Now is as of that time.
type SelectorSummary struct {
	Name      string          `json:"name" yaml:"name"`
	Alive     bool            `json:"alive" yaml:"alive"`
	Now       string          `json:"now" yaml:"now"`
	FetchedAt time.Time       `json:"fetched_at,omitzero" yaml:"fetched_at,omitempty"`
	Members   []MemberSummary `json:"members" yaml:"members"`
}

// MemberSummary describes one alive member of a selector.
// Index is the member's position in the selector's all list.
type MemberSummary struct {
	Index     int       `json:"index" yaml:"index"`
	Name      string    `json:"name" yaml:"name"`
	Alive     bool      `json:"alive" yaml:"alive"`
	Delay     *int      `json:"delay,omitempty" yaml:"delay,omitempty"`
	MeanDelay *int      `json:"mean_delay,omitempty" yaml:"mean_delay,omitempty"`
	CheckedAt time.Time `json:"checked_at,omitzero" yaml:"checked_at,omitempty"`
}

// Delay is the response of a single delay test.
type Delay struct {
	Delay     int `json:"delay" yaml:"delay"`
	MeanDelay int `json:"meanDelay,omitempty" yaml:"mean_delay,omitempty"`
}

// DelayResult pairs a proxy name with its delay test outcome.
type DelayResult struct {
	Name  string `json:"name" yaml:"name"`
	Delay *Delay `json:"delay,omitempty" yaml:"delay,omitempty"`
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Traffic is one sample from the traffic stream, in bytes per second.
type Traffic struct {
	Up   int64 `json:"up" yaml:"up"`
	Down int64 `json:"down" yaml:"down"`
}

// Version is the daemon's version report.
type Version struct {
	Version string `json:"version" yaml:"version"`
	Premium bool   `json:"premium,omitempty" yaml:"premium,omitempty"`
	Meta    bool   `json:"meta,omitempty" yaml:"meta,omitempty"`
}
