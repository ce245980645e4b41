package tools

import (
	"testing"
	"time"
)

func TestCheckSSRFRejectsPrivateIP(t *testing.T) {
	cases := []string{
		"http://127.0.0.1/",
		"http://10.1.2.3/",
		"http://169.254.169.254/latest/meta-data/",
		"http://[::1]/",
	}
	for _, u := range cases {
		if err := checkSSRF(u); err == nil {
			t.Errorf("expected %s to be rejected", u)
		}
	}
}

func TestCheckSSRFRejectsMissingHost(t *testing.T) {
	if err := checkSSRF("http:///path"); err == nil {
		t.Error("expected missing hostname to be rejected")
	}
}

func TestWebCacheExpiresEntries(t *testing.T) {
	c := newWebCache(2, -1) // already-expired TTL
	c.set("k", "v")
	if _, ok := c.get("k"); ok {
		t.Error("expected entry to have expired")
	}
}

func TestWebCacheEvictsOldest(t *testing.T) {
	c := newWebCache(2, time.Minute)
	c.set("a", "1")
	c.set("b", "2")
	c.set("c", "3")
	if _, ok := c.get("a"); ok {
		t.Error("expected oldest entry to be evicted")
	}
	if v, ok := c.get("c"); !ok || v != "3" {
		t.Error("expected newest entry to survive")
	}
}
