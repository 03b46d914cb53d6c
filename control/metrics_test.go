package control_test

import (
	"errors"
	"net/netip"
	"testing"

	"github.com/momentics/etlisten/api"
	"github.com/momentics/etlisten/control"
	"github.com/momentics/etlisten/fake"
)

func TestMetricsRegistryBasic(t *testing.T) {
	reg := control.NewMetricsRegistry()
	reg.Set("foo.count", int64(42))
	reg.Set("bar.status", "ok")
	reg.Add("foo.count", 3)
	reg.Add("new.count", 1)

	metrics := reg.GetSnapshot()
	if metrics["foo.count"] != int64(45) {
		t.Errorf("foo.count = %v", metrics["foo.count"])
	}
	if metrics["bar.status"] != "ok" {
		t.Error("string value mismatch")
	}
	if reg.Counter("new.count") != 1 || reg.Counter("missing") != 0 {
		t.Error("counter mismatch")
	}
	if reg.Updated().IsZero() {
		t.Error("update time not recorded")
	}
}

func TestMetricsSinkCountsAndForwards(t *testing.T) {
	reg := control.NewMetricsRegistry()
	rec := &fake.Sink{}
	s := control.NewMetricsSink(reg, rec)
	c := api.ConnInfo{ID: 1, FD: 5, Peer: netip.MustParseAddrPort("127.0.0.1:5000")}

	s.Accepted(c)
	s.Received(c, make([]byte, 512))
	s.Received(c, make([]byte, 100))
	s.Error("read", c, errors.New("boom"))
	s.Closed(c)

	checks := map[string]int64{
		control.MetricAccepted:       1,
		control.MetricChunksReceived: 2,
		control.MetricBytesReceived:  612,
		control.MetricErrors:         1,
		control.MetricClosed:         1,
	}
	for k, want := range checks {
		if got := reg.Counter(k); got != want {
			t.Errorf("%s = %d, want %d", k, got, want)
		}
	}
	if n := len(rec.Events()); n != 5 {
		t.Errorf("forwarded %d events", n)
	}

	control.NewMetricsSink(reg, nil).Accepted(c)
	if reg.Counter(control.MetricAccepted) != 2 {
		t.Error("nil next sink not tolerated")
	}
}
