package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUserKey_NormalizesCase(t *testing.T) {
	got, err := UserKey("  Alice@Example.COM  ")
	assert.NoError(t, err)
	assert.Equal(t, "alice@example.com", got)
}

func TestUserKey_RejectsMissingAt(t *testing.T) {
	_, err := UserKey("alice-example.com")
	assert.Error(t, err)
}

func TestUserKey_RejectsMultipleAt(t *testing.T) {
	_, err := UserKey("ali@ce@example.com")
	assert.Error(t, err)
}

func TestUserKey_RejectsDomainWithoutDot(t *testing.T) {
	_, err := UserKey("alice@localhost")
	assert.Error(t, err)
}

func TestUserKey_RejectsLeadingOrTrailingDotInDomain(t *testing.T) {
	_, err := UserKey("alice@.example.com")
	assert.Error(t, err)

	_, err = UserKey("alice@example.com.")
	assert.Error(t, err)
}

func TestUserKey_RejectsEmptyLocalPart(t *testing.T) {
	_, err := UserKey("@example.com")
	assert.Error(t, err)
}
