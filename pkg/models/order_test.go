package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var allStatuses = []Status{
	StatusPending,
	StatusConfirmed,
	StatusProcessing,
	StatusShipped,
	StatusDelivered,
	StatusCancelled,
}

func TestParseStatus(t *testing.T) {
	for _, s := range allStatuses {
		parsed, err := ParseStatus(string(s))
		assert.NoError(t, err)
		assert.Equal(t, s, parsed)
	}

	for _, raw := range []string{"", "PENDING", "returned", "in transit"} {
		_, err := ParseStatus(raw)
		assert.Error(t, err, "raw=%q", raw)
	}
}

func TestTransitionGraph(t *testing.T) {
	allowed := map[[2]Status]bool{
		{StatusPending, StatusConfirmed}:    true,
		{StatusPending, StatusCancelled}:    true,
		{StatusConfirmed, StatusProcessing}: true,
		{StatusConfirmed, StatusCancelled}:  true,
		{StatusProcessing, StatusShipped}:   true,
		{StatusProcessing, StatusCancelled}: true,
		{StatusShipped, StatusDelivered}:    true,
		{StatusShipped, StatusCancelled}:    true,
	}

	for _, from := range allStatuses {
		for _, to := range allStatuses {
			got := from.CanTransitionTo(to)
			assert.Equal(t, allowed[[2]Status{from, to}], got, "%s -> %s", from, to)
		}
	}
}

func TestSameStatusIsNotATransition(t *testing.T) {
	for _, s := range allStatuses {
		assert.False(t, s.CanTransitionTo(s), "%s -> %s", s, s)
	}
}

func TestTerminalStatuses(t *testing.T) {
	for _, s := range allStatuses {
		terminal := s == StatusDelivered || s == StatusCancelled
		assert.Equal(t, terminal, s.Terminal(), "status=%s", s)
		if terminal {
			for _, to := range allStatuses {
				assert.False(t, s.CanTransitionTo(to), "%s -> %s", s, to)
			}
		}
	}
}

func TestParseRole(t *testing.T) {
	for _, r := range []Role{RoleCustomer, RoleVendor, RoleAdmin} {
		parsed, err := ParseRole(string(r))
		assert.NoError(t, err)
		assert.Equal(t, r, parsed)
	}
	_, err := ParseRole("superuser")
	assert.Error(t, err)
}

func TestOrderOwnership(t *testing.T) {
	o := &Order{CustomerID: "cust-1", VendorID: "vend-1"}
	assert.True(t, o.OwnedByCustomer("cust-1"))
	assert.False(t, o.OwnedByCustomer("cust-2"))
	assert.True(t, o.OwnedByVendor("vend-1"))
	assert.False(t, o.OwnedByVendor("vend-2"))
}
