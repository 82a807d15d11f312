package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewUserCode(t *testing.T) {
	seen := map[UserCode]bool{}
	for i := 0; i < 100; i++ {
		code := NewUserCode(UserRoleMember)
		assert.Regexp(t, `^MEM-[0-9A-F]{8}$`, string(code))
		assert.False(t, seen[code])
		seen[code] = true
	}
	assert.Regexp(t, `^LIB-`, string(NewUserCode(UserRoleLibrarian)))
}

func TestUser_FullName(t *testing.T) {
	u := User{FirstName: "Ada", LastName: "Lovelace"}
	assert.Equal(t, "Ada Lovelace", u.FullName())

	u.LastName = ""
	assert.Equal(t, "Ada", u.FullName())
}
