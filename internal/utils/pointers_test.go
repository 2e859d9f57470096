package utils_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-session-client/internal/utils"
)

func TestAssign(t *testing.T) {
	t.Run("set source overwrites", func(t *testing.T) {
		dst := "old"
		utils.Assign(&dst, utils.Ptr("new"))
		require.Equal(t, "new", dst)
	})

	t.Run("nil source keeps destination", func(t *testing.T) {
		dst := int64(7)
		utils.Assign(&dst, nil)
		require.EqualValues(t, 7, dst)
	})

	t.Run("zero value is still a value", func(t *testing.T) {
		dst := true
		utils.Assign(&dst, utils.Ptr(false))
		require.False(t, dst)
	})
}
