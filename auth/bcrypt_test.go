package auth_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/crypto/bcrypt"

	"github.com/shophub/shophub/auth"
)

func TestHashPassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{
			name:     "Valid password",
			password: "securePassword123!",
			wantErr:  false,
		},
		{
			name:     "Empty password",
			password: "",
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := auth.HashPasswordCost(tt.password, bcrypt.MinCost)

			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			assert.NoError(t, err)
			assert.NotEmpty(t, hash)
			assert.NotEqual(t, tt.password, hash)

			err = auth.ComparePasswordAndHash(tt.password, hash)
			assert.NoError(t, err)
		})
	}
}

func TestComparePasswordAndHash(t *testing.T) {
	password := "testPassword123!"
	hash, err := auth.HashPasswordCost(password, bcrypt.MinCost)
	assert.NoError(t, err)

	t.Run("Correct password", func(t *testing.T) {
		assert.NoError(t, auth.ComparePasswordAndHash(password, hash))
	})

	t.Run("Wrong password", func(t *testing.T) {
		err := auth.ComparePasswordAndHash("testPassword123?", hash)
		assert.ErrorIs(t, err, auth.ErrMismatchedHashAndPassword)
	})

	t.Run("Garbage hash", func(t *testing.T) {
		err := auth.ComparePasswordAndHash(password, "not-a-bcrypt-hash")
		assert.Error(t, err)
	})
}

func TestHashPasswordCostClamping(t *testing.T) {
	// out-of-range costs fall back to the default work factor
	hash, err := auth.HashPasswordCost("password123", 99)
	assert.NoError(t, err)

	cost, err := bcrypt.Cost([]byte(hash))
	assert.NoError(t, err)
	assert.Equal(t, auth.DefaultBcryptCost, cost)
}
