package trace

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	target = net.IPv4(93, 184, 216, 34).To4()
	r1     = net.IPv4(10, 0, 0, 1).To4()
	r2     = net.IPv4(10, 0, 1, 1).To4()
)

func TestNewHop(t *testing.T) {
	h := NewHop(3, r1, 12*time.Millisecond)
	assert.False(t, h.Unreachable())
	assert.Equal(t, int64(12), h.RTTMillis())
	assert.True(t, h.IsDestination(r1))
	assert.False(t, h.IsDestination(target))

	neg := NewHop(3, r1, -5*time.Millisecond)
	assert.Equal(t, time.Duration(0), neg.RTT)

	absent := NewHop(4, nil, 8*time.Millisecond)
	assert.True(t, absent.Unreachable())
	assert.Equal(t, UnreachableRTT, absent.RTT)
	assert.Equal(t, int64(-1), absent.RTTMillis())
	assert.False(t, absent.IsDestination(target))
}

func TestUnreachableHop(t *testing.T) {
	h := UnreachableHop(7)
	assert.Equal(t, 7, h.TTL)
	assert.Nil(t, h.Addr)
	assert.Equal(t, UnreachableRTT, h.RTT)
}

func TestNewRoute(t *testing.T) {
	tests := []struct {
		name        string
		hops        []Hop
		wantReached bool
		wantRTT     time.Duration
		wantMillis  int64
	}{
		{
			name:        "Last hop is target",
			hops:        []Hop{NewHop(1, r1, 10*time.Millisecond), NewHop(2, target, 30*time.Millisecond)},
			wantReached: true,
			wantRTT:     30 * time.Millisecond,
			wantMillis:  30,
		},
		{
			name:        "Last hop is a router",
			hops:        []Hop{NewHop(1, r1, 10*time.Millisecond), NewHop(2, r2, 20*time.Millisecond)},
			wantReached: false,
			wantRTT:     UnreachableRTT,
			wantMillis:  -1,
		},
		{
			name:        "Last hop is absent",
			hops:        []Hop{NewHop(1, target, 10*time.Millisecond), UnreachableHop(2)},
			wantReached: false,
			wantRTT:     UnreachableRTT,
			wantMillis:  -1,
		},
		{
			name:        "Target with zero rtt",
			hops:        []Hop{NewHop(1, target, 0)},
			wantReached: true,
			wantRTT:     0,
			wantMillis:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewRoute(target, tt.hops)
			require.NoError(t, err)

			assert.Equal(t, tt.wantReached, r.IsReached())
			assert.Equal(t, tt.wantRTT, r.TotalRoundTripTime())
			assert.Equal(t, tt.wantMillis, r.TotalRoundTripMillis())
			assert.Equal(t, len(tt.hops), r.Len())
			assert.Equal(t, tt.hops[len(tt.hops)-1], r.LastHop())
		})
	}
}

func TestNewRoute_Empty(t *testing.T) {
	_, err := NewRoute(target, nil)
	assert.ErrorIs(t, err, ErrEmptyRoute)
}

func TestNewRoute_CopiesHops(t *testing.T) {
	hops := []Hop{NewHop(1, r1, time.Millisecond), NewHop(2, target, 5*time.Millisecond)}
	r, err := NewRoute(target, hops)
	require.NoError(t, err)

	hops[1] = UnreachableHop(2)

	assert.True(t, r.IsReached())
	assert.Equal(t, 5*time.Millisecond, r.TotalRoundTripTime())
	assert.True(t, r.LastHop().Addr.Equal(target))
}

func TestRoute_Responding(t *testing.T) {
	r, err := NewRoute(target, []Hop{UnreachableHop(1), NewHop(2, r1, time.Millisecond), UnreachableHop(3)})
	require.NoError(t, err)
	assert.Equal(t, 1, r.Responding())
}

func TestResult_HostnamesAndAddrs(t *testing.T) {
	r, err := NewRoute(target, []Hop{
		NewHop(1, r1, time.Millisecond),
		UnreachableHop(2),
		NewHop(3, r1, time.Millisecond),
		NewHop(4, target, 2*time.Millisecond),
	})
	require.NoError(t, err)

	res := &Result{Route: r, Hostnames: map[string]string{r1.String(): "gw.example.net"}}

	assert.Equal(t, "gw.example.net", res.Hostname(r.Hops[0]))
	assert.Equal(t, "", res.Hostname(r.Hops[1]))
	assert.Equal(t, "", res.Hostname(r.Hops[3]))

	addrs := res.Addrs()
	require.Len(t, addrs, 2)
	assert.True(t, addrs[0].Equal(r1))
	assert.True(t, addrs[1].Equal(target))

	empty := &Result{Route: r}
	assert.Equal(t, "", empty.Hostname(r.Hops[0]))
}
