package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizedLikeCount(t *testing.T) {
	legacy := &Review{Details: ReviewDetails{LikeCount: 7}}
	assert.Equal(t, int64(7), legacy.NormalizedLikeCount())

	newer := int64(11)
	both := &Review{Details: ReviewDetails{LikeCount: 3}, LikeCount: &newer}
	assert.Equal(t, int64(11), both.NormalizedLikeCount())

	zero := int64(0)
	explicit := &Review{Details: ReviewDetails{LikeCount: 3}, LikeCount: &zero}
	assert.Equal(t, int64(0), explicit.NormalizedLikeCount(), "an explicit zero beats the legacy field")

	assert.Equal(t, int64(0), (&Review{}).NormalizedLikeCount())
}

func TestLikeDocID(t *testing.T) {
	assert.Equal(t, "r1_u1", LikeDocID("r1", "u1"))
}
