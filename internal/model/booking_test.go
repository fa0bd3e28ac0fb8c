package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2025-06-12")
	assert.NoError(t, err)
	assert.Equal(t, 2025, d.Year())
	assert.Equal(t, 12, d.Day())

	_, err = ParseDate("12-06-2025")
	assert.Error(t, err)
	_, err = ParseDate("2025-6-1")
	assert.Error(t, err)
	_, err = ParseDate("")
	assert.Error(t, err)
}

func TestHolderValidate(t *testing.T) {
	assert.NoError(t, AuthenticatedHolder(7).Validate())
	assert.NoError(t, GuestHolder("Asha Nair", "+91-98450-12345").Validate())

	cases := []HolderIdentity{
		{},                                  // zero value
		AuthenticatedHolder(0),              // missing user id
		GuestHolder("", "+91-98450-12345"),  // missing name
		GuestHolder("Asha Nair", ""),        // missing phone
		GuestHolder("   ", "  "),            // whitespace only
		{Kind: HolderKind("SOMETHING")},     // unknown kind
	}
	for _, h := range cases {
		assert.ErrorIs(t, h.Validate(), ErrInvalidHolder, "%+v", h)
	}
}

func TestGuestHolderTrimsContactDetails(t *testing.T) {
	h := GuestHolder("  Asha Nair ", " +91-98450-12345  ")
	assert.Equal(t, "Asha Nair", h.GuestName)
	assert.Equal(t, "+91-98450-12345", h.GuestPhone)
}

func TestOwns(t *testing.T) {
	user := AuthenticatedHolder(7)
	assert.True(t, user.Owns(AuthenticatedHolder(7)))
	assert.False(t, user.Owns(AuthenticatedHolder(8)))

	guest := GuestHolder("Asha Nair", "+91-98450-12345")
	// guests match by phone only; the name may be spelled differently
	assert.True(t, guest.Owns(GuestHolder("A. Nair", "+91-98450-12345")))
	assert.False(t, guest.Owns(GuestHolder("Asha Nair", "+91-00000-00000")))

	// kinds never cross-match
	assert.False(t, user.Owns(guest))
	assert.False(t, guest.Owns(user))

	// a guest with no phone owns nothing
	empty := HolderIdentity{Kind: HolderGuest}
	assert.False(t, empty.Owns(HolderIdentity{Kind: HolderGuest}))
}
