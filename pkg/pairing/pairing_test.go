package pairing

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var codePattern = regexp.MustCompile(`^[0-9A-Z]{4}$`)

// TestNewGenerator_MissingSecret tests that an empty secret is a configuration error.
func TestNewGenerator_MissingSecret(t *testing.T) {
	g, err := NewGenerator("")
	assert.Nil(t, g)
	assert.ErrorIs(t, err, ErrMissingSecret)
}

// TestCode_Deterministic tests that the same id and secret produce the same code.
func TestCode_Deterministic(t *testing.T) {
	g, err := NewGenerator("s3cret")
	require.NoError(t, err)

	first := g.Code(42)
	assert.Equal(t, first, g.Code(42))
	assert.Regexp(t, codePattern, first)

	other, err := NewGenerator("s3cret")
	require.NoError(t, err)
	assert.Equal(t, first, other.Code(42))
}

// TestCode_Charset tests the alphabet across many ids.
func TestCode_Charset(t *testing.T) {
	g, err := NewGenerator("s3cret")
	require.NoError(t, err)
	for id := int64(1); id <= 500; id++ {
		assert.Regexp(t, codePattern, g.Code(id))
	}
}

// TestCode_VariesWithIDAndSecret tests that ids and secrets spread across the code space.
func TestCode_VariesWithIDAndSecret(t *testing.T) {
	g, err := NewGenerator("s3cret")
	require.NoError(t, err)

	seen := map[string]struct{}{}
	for id := int64(1); id <= 100; id++ {
		seen[g.Code(id)] = struct{}{}
	}
	// 100 draws from ~1.6M codes; a handful of repeats at most.
	assert.Greater(t, len(seen), 90)

	h, err := NewGenerator("different")
	require.NoError(t, err)
	differs := 0
	for id := int64(1); id <= 20; id++ {
		if g.Code(id) != h.Code(id) {
			differs++
		}
	}
	assert.Greater(t, differs, 15)
}

// TestCode_CollisionsAccepted tests the collision policy: codes are derived
// per id with no uniqueness check, so two ids sharing a code is allowed
// and each still verifies against its own id.
func TestCode_CollisionsAccepted(t *testing.T) {
	g, err := NewGenerator("s3cret")
	require.NoError(t, err)

	byCode := map[string]int64{}
	for id := int64(1); id <= 20000; id++ {
		code := g.Code(id)
		if prev, ok := byCode[code]; ok {
			assert.True(t, g.Verify(prev, code))
			assert.True(t, g.Verify(id, code))
			return
		}
		byCode[code] = id
	}
	// 20000 ids over 36^4 codes collide with probability > 99.9%.
	t.Fatal("expected at least one pairing code collision")
}

// TestVerify tests case-insensitive verification.
func TestVerify(t *testing.T) {
	g, err := NewGenerator("s3cret")
	require.NoError(t, err)

	code := g.Code(7)
	assert.True(t, g.Verify(7, code))
	assert.False(t, g.Verify(7, "!!!!"))
}
